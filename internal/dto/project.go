package dto

import (
	"time"

	"github.com/yukikurage/workspace-task-api/internal/models"
	"github.com/yukikurage/workspace-task-api/internal/permissions"
	"github.com/yukikurage/workspace-task-api/internal/services"
)

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID          uint64    `json:"id"`
	WorkspaceID uint64    `json:"workspace_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatorID   uint64    `json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProjectMemberDTO represents a member of a project
type ProjectMemberDTO struct {
	User       UserDTO                   `json:"user"`
	Role       models.ProjectRole        `json:"role"`
	JoinedAt   time.Time                 `json:"joined_at"`
	CanManage  bool                      `json:"can_manage"`
	Protection permissions.GuardDecision `json:"protection"`
}

// ProjectDetailDTO represents detailed project information
type ProjectDetailDTO struct {
	ProjectDTO
	Members     []ProjectMemberDTO              `json:"members"`
	YourRole    models.ProjectRole              `json:"your_role"`
	Permissions permissions.ProjectCapabilities `json:"permissions"`
}

// ToProjectDTO converts a Project model to ProjectDTO
func ToProjectDTO(project models.Project) ProjectDTO {
	return ProjectDTO{
		ID:          project.ID,
		WorkspaceID: project.WorkspaceID,
		Name:        project.Name,
		Description: project.Description,
		CreatorID:   project.CreatorID,
		CreatedAt:   project.CreatedAt,
	}
}

// ToProjectDTOs converts a slice of projects
func ToProjectDTOs(projects []models.Project) []ProjectDTO {
	items := make([]ProjectDTO, len(projects))
	for i, project := range projects {
		items[i] = ToProjectDTO(project)
	}
	return items
}

// ToProjectMemberDTO converts a project member view to DTO
func ToProjectMemberDTO(view services.ProjectMemberView) ProjectMemberDTO {
	return ProjectMemberDTO{
		User:       ToUserDTO(view.Member.User),
		Role:       view.Member.Role,
		JoinedAt:   view.Member.JoinedAt,
		CanManage:  view.Manageable,
		Protection: view.Guard,
	}
}

// ToProjectDetailDTO converts project details to DTO
func ToProjectDetailDTO(details *services.ProjectDetails) ProjectDetailDTO {
	members := make([]ProjectMemberDTO, len(details.Members))
	for i, view := range details.Members {
		members[i] = ToProjectMemberDTO(view)
	}

	return ProjectDetailDTO{
		ProjectDTO:  ToProjectDTO(details.Project),
		Members:     members,
		YourRole:    details.Capabilities.Role,
		Permissions: details.Capabilities,
	}
}
