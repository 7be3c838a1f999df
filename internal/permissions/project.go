package permissions

import "github.com/yukikurage/workspace-task-api/internal/models"

// WorkspaceRef identifies the workspace a project belongs to and its owner.
type WorkspaceRef struct {
	ID      uint64
	OwnerID uint64
}

// ProjectDetails is the project membership data the resolver works on.
// IsAdmin must be computed by the caller for the project's workspace from the same fetch.
type ProjectDetails struct {
	Members   []models.ProjectMember
	Workspace *WorkspaceRef
	IsAdmin   bool
	Loading   bool
}

// ProjectCapabilities is the derived permission bundle of a user in a project.
// Role is empty when the user holds no project membership, even when escalated.
type ProjectCapabilities struct {
	Role models.ProjectRole `json:"role"`

	IsManager        bool `json:"is_manager"`
	IsCollaborator   bool `json:"is_collaborator"`
	IsViewer         bool `json:"is_viewer"`
	IsWorkspaceAdmin bool `json:"is_workspace_admin"`

	HasManagerPerms      bool `json:"has_manager_perms"`
	HasCollaboratorPerms bool `json:"has_collaborator_perms"`

	CanManageProject     bool `json:"can_manage_project"`
	CanEditProject       bool `json:"can_edit_project"`
	CanDeleteProject     bool `json:"can_delete_project"`
	CanManageMembers     bool `json:"can_manage_members"`
	CanAddMembers        bool `json:"can_add_members"`
	CanRemoveMembers     bool `json:"can_remove_members"`
	CanUpdateMemberRoles bool `json:"can_update_member_roles"`

	CanCreateTasks bool `json:"can_create_tasks"`
	CanEditTasks   bool `json:"can_edit_tasks"`
	CanDeleteTasks bool `json:"can_delete_tasks"`

	CanCommentOnTasks bool `json:"can_comment_on_tasks"`
	CanViewProject    bool `json:"can_view_project"`
	CanViewTasks      bool `json:"can_view_tasks"`

	HasAccess bool `json:"has_access"`
	IsLoading bool `json:"is_loading"`
}

// PendingProjectCapabilities is the set reported while project details are loading.
func PendingProjectCapabilities() ProjectCapabilities {
	return ProjectCapabilities{IsLoading: true}
}

// ResolveProjectRole derives the capabilities of userID in projectID.
// Workspace owners and admins receive manager authority without a project membership.
func ResolveProjectRole(projectID, userID uint64, details *ProjectDetails) ProjectCapabilities {
	if details != nil && details.Loading {
		return PendingProjectCapabilities()
	}
	if details == nil || projectID == 0 || userID == 0 {
		return ProjectCapabilities{}
	}

	var role models.ProjectRole
	member, found := findProjectMember(details.Members, userID)
	if found && member.Role.IsValid() {
		role = member.Role
	} else {
		found = false
	}

	isWorkspaceAdmin := (details.Workspace != nil && details.Workspace.OwnerID == userID) || details.IsAdmin

	isManager := role == models.ProjectRoleManager
	isCollaborator := role == models.ProjectRoleCollaborator
	isViewer := role == models.ProjectRoleViewer

	managerPerms := ProjectRoleAtLeast(role, models.ProjectRoleManager) || isWorkspaceAdmin
	collaboratorPerms := ProjectRoleAtLeast(role, models.ProjectRoleCollaborator) || isWorkspaceAdmin
	viewPerms := ProjectRoleAtLeast(role, models.ProjectRoleViewer) || isWorkspaceAdmin

	return ProjectCapabilities{
		Role: role,

		IsManager:        isManager,
		IsCollaborator:   isCollaborator,
		IsViewer:         isViewer,
		IsWorkspaceAdmin: isWorkspaceAdmin,

		HasManagerPerms:      managerPerms,
		HasCollaboratorPerms: collaboratorPerms,

		CanManageProject:     managerPerms,
		CanEditProject:       managerPerms,
		CanDeleteProject:     managerPerms,
		CanManageMembers:     managerPerms,
		CanAddMembers:        managerPerms,
		CanRemoveMembers:     managerPerms,
		CanUpdateMemberRoles: managerPerms,

		CanCreateTasks: collaboratorPerms,
		CanEditTasks:   collaboratorPerms,
		CanDeleteTasks: collaboratorPerms,

		CanCommentOnTasks: viewPerms,
		CanViewProject:    viewPerms,
		CanViewTasks:      viewPerms,

		HasAccess: found || isWorkspaceAdmin,
	}
}

func findProjectMember(members []models.ProjectMember, userID uint64) (models.ProjectMember, bool) {
	for _, m := range members {
		if m.UserID == userID {
			return m, true
		}
	}
	return models.ProjectMember{}, false
}
