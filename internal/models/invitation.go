package models

import "time"

// WorkspaceInvitation is a single-use code granting Role in a workspace until ExpiresAt.
type WorkspaceInvitation struct {
	ID           uint64        `gorm:"primarykey" json:"id"`
	WorkspaceID  uint64        `gorm:"not null;index" json:"workspace_id"`
	Code         string        `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Role         WorkspaceRole `gorm:"type:varchar(20);not null" json:"role"`
	InvitedByID  uint64        `gorm:"not null" json:"invited_by_id"`
	ExpiresAt    time.Time     `gorm:"not null;index" json:"expires_at"`
	AcceptedAt   *time.Time    `json:"accepted_at"`
	AcceptedByID *uint64       `json:"accepted_by_id"`
	CreatedAt    time.Time     `json:"created_at"`

	// Relations
	Workspace Workspace `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
}

// IsExpired reports whether the invitation can no longer be accepted at now.
func (i WorkspaceInvitation) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// IsAccepted reports whether the invitation was already used.
func (i WorkspaceInvitation) IsAccepted() bool {
	return i.AcceptedAt != nil
}
