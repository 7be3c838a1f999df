package permissions

import "github.com/yukikurage/workspace-task-api/internal/models"

// Denial messages surfaced to clients through TaskPermissions.Reason.
const (
	ReasonUnauthenticated = "You must be signed in to access this task"
	ReasonPersonalTask    = "This is a personal task. Only its creator can access it"
	ReasonNoProjectAccess = "You do not have access to this project"
	ReasonNotTaskCreator  = "Only the task creator can edit or delete this task"
)

// TaskPermissions is the final decision for one user acting on one task.
type TaskPermissions struct {
	IsOwner    bool `json:"is_owner"`
	IsPersonal bool `json:"is_personal"`

	CanEdit         bool `json:"can_edit"`
	CanDelete       bool `json:"can_delete"`
	CanChangeStatus bool `json:"can_change_status"`
	CanComment      bool `json:"can_comment"`
	CanView         bool `json:"can_view"`

	IsLoading bool   `json:"is_loading"`
	Reason    string `json:"reason,omitempty"`
}

// ResolveTaskPermissions composes task ownership with the caller's project and workspace
// capabilities. Edit and delete stay with the creator no matter which roles the caller holds;
// only status changes escalate to project managers and workspace owners/admins.
func ResolveTaskPermissions(task *models.Task, userID uint64, project ProjectCapabilities, workspace WorkspaceCapabilities) TaskPermissions {
	loading := project.IsLoading || workspace.IsLoading
	if loading {
		return TaskPermissions{IsLoading: true}
	}

	if task == nil || userID == 0 {
		return TaskPermissions{Reason: ReasonUnauthenticated}
	}

	isOwner := task.CreatorID == userID

	if task.IsPersonal() {
		perms := TaskPermissions{
			IsOwner:         isOwner,
			IsPersonal:      true,
			CanEdit:         isOwner,
			CanDelete:       isOwner,
			CanChangeStatus: isOwner,
			CanComment:      isOwner,
			CanView:         isOwner,
		}
		if !isOwner {
			perms.Reason = ReasonPersonalTask
		}
		return perms
	}

	perms := TaskPermissions{
		IsOwner:         isOwner,
		CanEdit:         isOwner,
		CanDelete:       isOwner,
		CanChangeStatus: isOwner || project.IsManager || workspace.IsOwner || workspace.IsAdmin,
		CanComment:      project.CanCommentOnTasks,
		CanView:         project.CanViewTasks,
	}
	if !perms.CanEdit {
		if !project.HasAccess {
			perms.Reason = ReasonNoProjectAccess
		} else {
			perms.Reason = ReasonNotTaskCreator
		}
	}
	return perms
}
