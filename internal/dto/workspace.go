package dto

import (
	"time"

	"github.com/yukikurage/workspace-task-api/internal/models"
	"github.com/yukikurage/workspace-task-api/internal/permissions"
	"github.com/yukikurage/workspace-task-api/internal/services"
)

// WorkspaceDTO represents a workspace in API responses
type WorkspaceDTO struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     uint64    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// WorkspaceWithRoleDTO represents a workspace with the user's role
type WorkspaceWithRoleDTO struct {
	WorkspaceDTO
	Role models.WorkspaceRole `json:"role"`
}

// WorkspaceMemberDTO represents a member of a workspace, with what the caller may do to them
type WorkspaceMemberDTO struct {
	User       UserDTO                   `json:"user"`
	Role       models.WorkspaceRole      `json:"role"`
	JoinedAt   time.Time                 `json:"joined_at"`
	CanManage  bool                      `json:"can_manage"`
	Protection permissions.GuardDecision `json:"protection"`
}

// WorkspaceDetailDTO represents detailed workspace information
type WorkspaceDetailDTO struct {
	WorkspaceDTO
	Members     []WorkspaceMemberDTO              `json:"members"`
	YourRole    models.WorkspaceRole              `json:"your_role"`
	Permissions permissions.WorkspaceCapabilities `json:"permissions"`
}

// InvitationDTO represents a workspace invitation
type InvitationDTO struct {
	ID          uint64               `json:"id"`
	WorkspaceID uint64               `json:"workspace_id"`
	Code        string               `json:"code"`
	Role        models.WorkspaceRole `json:"role"`
	InvitedByID uint64               `json:"invited_by_id"`
	ExpiresAt   time.Time            `json:"expires_at"`
	CreatedAt   time.Time            `json:"created_at"`
}

// ToWorkspaceDTO converts a Workspace model to WorkspaceDTO
func ToWorkspaceDTO(workspace models.Workspace) WorkspaceDTO {
	return WorkspaceDTO{
		ID:          workspace.ID,
		Name:        workspace.Name,
		Description: workspace.Description,
		OwnerID:     workspace.OwnerID,
		CreatedAt:   workspace.CreatedAt,
	}
}

// ToWorkspaceWithRoleDTO converts a membership to DTO with role
func ToWorkspaceWithRoleDTO(member models.WorkspaceMember) WorkspaceWithRoleDTO {
	return WorkspaceWithRoleDTO{
		WorkspaceDTO: ToWorkspaceDTO(member.Workspace),
		Role:         member.Role,
	}
}

// ToWorkspaceMemberDTO converts a member view to DTO
func ToWorkspaceMemberDTO(view services.MemberView) WorkspaceMemberDTO {
	return WorkspaceMemberDTO{
		User:       ToUserDTO(view.Member.User),
		Role:       view.Member.Role,
		JoinedAt:   view.Member.JoinedAt,
		CanManage:  view.Manageable,
		Protection: view.Guard,
	}
}

// ToWorkspaceDetailDTO converts workspace details to DTO
func ToWorkspaceDetailDTO(details *services.WorkspaceDetails) WorkspaceDetailDTO {
	members := make([]WorkspaceMemberDTO, len(details.Members))
	for i, view := range details.Members {
		members[i] = ToWorkspaceMemberDTO(view)
	}

	return WorkspaceDetailDTO{
		WorkspaceDTO: ToWorkspaceDTO(*details.Workspace),
		Members:      members,
		YourRole:     details.Capabilities.Role,
		Permissions:  details.Capabilities,
	}
}

// ToInvitationDTO converts an invitation to DTO
func ToInvitationDTO(invitation models.WorkspaceInvitation) InvitationDTO {
	return InvitationDTO{
		ID:          invitation.ID,
		WorkspaceID: invitation.WorkspaceID,
		Code:        invitation.Code,
		Role:        invitation.Role,
		InvitedByID: invitation.InvitedByID,
		ExpiresAt:   invitation.ExpiresAt,
		CreatedAt:   invitation.CreatedAt,
	}
}
