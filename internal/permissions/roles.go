// Package permissions derives capability sets from already-fetched membership data.
//
// Every function in this package is pure: it reads its arguments, performs no I/O and
// never returns an error. Missing or still-loading input always yields denied capabilities.
package permissions

import "github.com/yukikurage/workspace-task-api/internal/models"

// WorkspaceCapability names one row of the workspace authority table.
type WorkspaceCapability int

const (
	CapManageWorkspace WorkspaceCapability = iota
	CapManageMembers
	CapCreateProjects
	CapEditProjects
	CapDeleteProjects
	CapInviteMembers
	CapRemoveMembers
	CapEditSettings
	CapDeleteWorkspace
	CapViewContent
)

var workspaceAdmins = []models.WorkspaceRole{models.WorkspaceRoleOwner, models.WorkspaceRoleAdmin}

// workspaceAuthority lists, for each capability, the roles holding it.
var workspaceAuthority = map[WorkspaceCapability][]models.WorkspaceRole{
	CapManageWorkspace: workspaceAdmins,
	CapManageMembers:   workspaceAdmins,
	CapCreateProjects:  workspaceAdmins,
	CapEditProjects:    workspaceAdmins,
	CapDeleteProjects:  workspaceAdmins,
	CapInviteMembers:   workspaceAdmins,
	CapRemoveMembers:   workspaceAdmins,
	CapEditSettings:    {models.WorkspaceRoleOwner},
	CapDeleteWorkspace: {models.WorkspaceRoleOwner},
	CapViewContent: {
		models.WorkspaceRoleOwner,
		models.WorkspaceRoleAdmin,
		models.WorkspaceRoleMember,
		models.WorkspaceRoleGuest,
	},
}

// AllWorkspaceRoles returns the closed set of workspace roles, highest first.
func AllWorkspaceRoles() []models.WorkspaceRole {
	return []models.WorkspaceRole{
		models.WorkspaceRoleOwner,
		models.WorkspaceRoleAdmin,
		models.WorkspaceRoleMember,
		models.WorkspaceRoleGuest,
	}
}

// AllProjectRoles returns the closed set of project roles, highest first.
func AllProjectRoles() []models.ProjectRole {
	return []models.ProjectRole{
		models.ProjectRoleManager,
		models.ProjectRoleCollaborator,
		models.ProjectRoleViewer,
	}
}

// AllWorkspaceCapabilities returns every row of the workspace authority table.
func AllWorkspaceCapabilities() []WorkspaceCapability {
	return []WorkspaceCapability{
		CapManageWorkspace,
		CapManageMembers,
		CapCreateProjects,
		CapEditProjects,
		CapDeleteProjects,
		CapInviteMembers,
		CapRemoveMembers,
		CapEditSettings,
		CapDeleteWorkspace,
		CapViewContent,
	}
}

// WorkspaceRoleGrants reports whether role holds capability.
func WorkspaceRoleGrants(role models.WorkspaceRole, capability WorkspaceCapability) bool {
	for _, r := range workspaceAuthority[capability] {
		if r == role {
			return true
		}
	}
	return false
}

// WorkspaceRoleLevel returns the hierarchy level of role (higher = more authority, 0 = unknown).
func WorkspaceRoleLevel(role models.WorkspaceRole) int {
	switch role {
	case models.WorkspaceRoleOwner:
		return 4
	case models.WorkspaceRoleAdmin:
		return 3
	case models.WorkspaceRoleMember:
		return 2
	case models.WorkspaceRoleGuest:
		return 1
	default:
		return 0
	}
}

// ProjectRoleLevel returns the hierarchy level of role (higher = more authority, 0 = unknown).
func ProjectRoleLevel(role models.ProjectRole) int {
	switch role {
	case models.ProjectRoleManager:
		return 3
	case models.ProjectRoleCollaborator:
		return 2
	case models.ProjectRoleViewer:
		return 1
	default:
		return 0
	}
}

// WorkspaceRoleAtLeast reports whether role is a known role at or above min.
func WorkspaceRoleAtLeast(role, min models.WorkspaceRole) bool {
	level := WorkspaceRoleLevel(role)
	return level > 0 && level >= WorkspaceRoleLevel(min)
}

// ProjectRoleAtLeast reports whether role is a known role at or above min.
func ProjectRoleAtLeast(role, min models.ProjectRole) bool {
	level := ProjectRoleLevel(role)
	return level > 0 && level >= ProjectRoleLevel(min)
}

// CanAssignWorkspaceRole reports whether an actor holding actor may grant target to someone,
// or modify someone who currently holds target.
func CanAssignWorkspaceRole(actor, target models.WorkspaceRole) bool {
	if !target.IsValid() || !WorkspaceRoleAtLeast(actor, models.WorkspaceRoleAdmin) {
		return false
	}
	// only owners reach the owner level
	return actor == models.WorkspaceRoleOwner || !WorkspaceRoleAtLeast(target, models.WorkspaceRoleOwner)
}
