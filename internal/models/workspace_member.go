package models

import "time"

type WorkspaceRole string

const (
	WorkspaceRoleOwner  WorkspaceRole = "OWNER"
	WorkspaceRoleAdmin  WorkspaceRole = "ADMIN"
	WorkspaceRoleMember WorkspaceRole = "MEMBER"
	WorkspaceRoleGuest  WorkspaceRole = "GUEST"
)

// IsValid reports whether r is one of the known workspace roles.
func (r WorkspaceRole) IsValid() bool {
	switch r {
	case WorkspaceRoleOwner, WorkspaceRoleAdmin, WorkspaceRoleMember, WorkspaceRoleGuest:
		return true
	default:
		return false
	}
}

type WorkspaceMember struct {
	ID          uint64        `gorm:"primarykey" json:"id"`
	WorkspaceID uint64        `gorm:"not null;uniqueIndex:idx_workspace_members_workspace_user" json:"workspace_id"`
	UserID      uint64        `gorm:"not null;uniqueIndex:idx_workspace_members_workspace_user;index" json:"user_id"`
	Role        WorkspaceRole `gorm:"type:varchar(20);not null" json:"role"`
	JoinedAt    time.Time     `json:"joined_at"`

	// Relations
	Workspace Workspace `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
	User      User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// MemberUserID returns the member's user id.
func (m WorkspaceMember) MemberUserID() uint64 {
	return m.UserID
}

// HoldsTopRole reports whether the member is a workspace owner.
func (m WorkspaceMember) HoldsTopRole() bool {
	return m.Role == WorkspaceRoleOwner
}
