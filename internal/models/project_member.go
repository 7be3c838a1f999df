package models

import "time"

type ProjectRole string

const (
	ProjectRoleManager      ProjectRole = "MANAGER"
	ProjectRoleCollaborator ProjectRole = "COLLABORATOR"
	ProjectRoleViewer       ProjectRole = "VIEWER"
)

// IsValid reports whether r is one of the known project roles.
func (r ProjectRole) IsValid() bool {
	switch r {
	case ProjectRoleManager, ProjectRoleCollaborator, ProjectRoleViewer:
		return true
	default:
		return false
	}
}

type ProjectMember struct {
	ID        uint64      `gorm:"primarykey" json:"id"`
	ProjectID uint64      `gorm:"not null;uniqueIndex:idx_project_members_project_user" json:"project_id"`
	UserID    uint64      `gorm:"not null;uniqueIndex:idx_project_members_project_user;index" json:"user_id"`
	Role      ProjectRole `gorm:"type:varchar(20);not null" json:"role"`
	JoinedAt  time.Time   `json:"joined_at"`

	// Relations
	Project Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	User    User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// MemberUserID returns the member's user id.
func (m ProjectMember) MemberUserID() uint64 {
	return m.UserID
}

// HoldsTopRole reports whether the member is a project manager.
func (m ProjectMember) HoldsTopRole() bool {
	return m.Role == ProjectRoleManager
}
