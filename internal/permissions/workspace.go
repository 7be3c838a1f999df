package permissions

import "github.com/yukikurage/workspace-task-api/internal/models"

// WorkspaceMembers is the membership list of one workspace as read by a single fetch.
type WorkspaceMembers struct {
	Members []models.WorkspaceMember
	Loading bool
}

// WorkspaceCapabilities is the derived permission bundle of a user in a workspace.
// Role is empty when the user holds no membership.
type WorkspaceCapabilities struct {
	Role models.WorkspaceRole `json:"role"`

	IsOwner  bool `json:"is_owner"`
	IsAdmin  bool `json:"is_admin"`
	IsMember bool `json:"is_member"`
	IsGuest  bool `json:"is_guest"`

	CanManageWorkspace bool `json:"can_manage_workspace"`
	CanManageMembers   bool `json:"can_manage_members"`
	CanCreateProjects  bool `json:"can_create_projects"`
	CanEditProjects    bool `json:"can_edit_projects"`
	CanDeleteProjects  bool `json:"can_delete_projects"`
	CanInviteMembers   bool `json:"can_invite_members"`
	CanRemoveMembers   bool `json:"can_remove_members"`
	CanEditSettings    bool `json:"can_edit_settings"`
	CanDeleteWorkspace bool `json:"can_delete_workspace"`
	CanViewContent     bool `json:"can_view_content"`

	HasAccess bool `json:"has_access"`
	IsLoading bool `json:"is_loading"`
}

// PendingWorkspaceCapabilities is the set reported while membership data is loading.
func PendingWorkspaceCapabilities() WorkspaceCapabilities {
	return WorkspaceCapabilities{IsLoading: true}
}

// ResolveWorkspaceRole derives the capabilities of userID in workspaceID from members.
func ResolveWorkspaceRole(workspaceID, userID uint64, members WorkspaceMembers) WorkspaceCapabilities {
	if members.Loading {
		return PendingWorkspaceCapabilities()
	}
	if workspaceID == 0 || userID == 0 {
		return WorkspaceCapabilities{}
	}

	member, ok := findWorkspaceMember(members.Members, userID)
	if !ok || !member.Role.IsValid() {
		return WorkspaceCapabilities{}
	}

	role := member.Role
	return WorkspaceCapabilities{
		Role:     role,
		IsOwner:  role == models.WorkspaceRoleOwner,
		IsAdmin:  role == models.WorkspaceRoleAdmin,
		IsMember: role == models.WorkspaceRoleMember,
		IsGuest:  role == models.WorkspaceRoleGuest,

		CanManageWorkspace: WorkspaceRoleGrants(role, CapManageWorkspace),
		CanManageMembers:   WorkspaceRoleGrants(role, CapManageMembers),
		CanCreateProjects:  WorkspaceRoleGrants(role, CapCreateProjects),
		CanEditProjects:    WorkspaceRoleGrants(role, CapEditProjects),
		CanDeleteProjects:  WorkspaceRoleGrants(role, CapDeleteProjects),
		CanInviteMembers:   WorkspaceRoleGrants(role, CapInviteMembers),
		CanRemoveMembers:   WorkspaceRoleGrants(role, CapRemoveMembers),
		CanEditSettings:    WorkspaceRoleGrants(role, CapEditSettings),
		CanDeleteWorkspace: WorkspaceRoleGrants(role, CapDeleteWorkspace),
		CanViewContent:     WorkspaceRoleGrants(role, CapViewContent),

		HasAccess: true,
	}
}

// IsWorkspaceAdmin reports whether the capabilities carry owner or admin authority.
func (c WorkspaceCapabilities) IsWorkspaceAdmin() bool {
	return c.IsOwner || c.IsAdmin
}

func findWorkspaceMember(members []models.WorkspaceMember, userID uint64) (models.WorkspaceMember, bool) {
	for _, m := range members {
		if m.UserID == userID {
			return m, true
		}
	}
	return models.WorkspaceMember{}, false
}
