package constants

import "time"

// Session and context keys
const (
	SessionCookieName   = "task_session"
	ContextKeyUserID    = "user_id"
	ContextKeyRequestID = "request_id"
	HeaderRequestID     = "X-Request-ID"
)

// Context keys populated by access middleware
const (
	ContextKeyWorkspace             = "workspace"
	ContextKeyWorkspaceCapabilities = "workspace_capabilities"
	ContextKeyTask                  = "task"
	ContextKeyTaskPermissions       = "task_permissions"
)

// Validation limits
const (
	MinPasswordLength  = 8
	MaxCommentLength   = 5000
	MaxTaskTitleLength = 255
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Invitations
const (
	DefaultInvitationTTL = 7 * 24 * time.Hour
	MaxInvitationTTL     = 30 * 24 * time.Hour
)
