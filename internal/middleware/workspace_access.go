package middleware

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-task-api/internal/constants"
	apierrors "github.com/yukikurage/workspace-task-api/internal/errors"
	"github.com/yukikurage/workspace-task-api/internal/permissions"
	"github.com/yukikurage/workspace-task-api/internal/services"
)

// WorkspaceResolver resolves the caller's capabilities in a workspace.
type WorkspaceResolver interface {
	Capabilities(ctx context.Context, workspaceID, actorID uint64) (permissions.WorkspaceCapabilities, error)
}

// RequireWorkspaceAccess checks if the user is a member of the workspace named by the :id parameter
func RequireWorkspaceAccess(workspaces WorkspaceResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid workspace ID")
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			return
		}

		caps, err := workspaces.Capabilities(c.Request.Context(), workspaceID, userID)
		if err != nil {
			if errors.Is(err, services.ErrWorkspaceNotFound) {
				// 404 rather than 403 so non-members cannot probe for workspaces
				apierrors.NotFound(c, "Workspace not found")
				return
			}
			Logger(c).WithError(err).WithField("workspace_id", workspaceID).Error("failed to resolve workspace access")
			apierrors.InternalError(c, "")
			return
		}

		c.Set(constants.ContextKeyWorkspace, workspaceID)
		c.Set(constants.ContextKeyWorkspaceCapabilities, caps)
		c.Next()
	}
}

// RequireWorkspaceOwner only lets workspace owners through. Must run after RequireWorkspaceAccess.
func RequireWorkspaceOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		caps, ok := GetWorkspaceCapabilities(c)
		if !ok {
			apierrors.Forbidden(c, "Workspace access required")
			return
		}

		if !caps.IsOwner {
			apierrors.InsufficientPermissions(c, "owner_only", "Only workspace owners can perform this action")
			return
		}

		c.Next()
	}
}

// GetWorkspaceCapabilities returns the capabilities stored by RequireWorkspaceAccess
func GetWorkspaceCapabilities(c *gin.Context) (permissions.WorkspaceCapabilities, bool) {
	value, exists := c.Get(constants.ContextKeyWorkspaceCapabilities)
	if !exists {
		return permissions.WorkspaceCapabilities{}, false
	}
	caps, ok := value.(permissions.WorkspaceCapabilities)
	return caps, ok
}

// GetWorkspaceID returns the workspace id stored by RequireWorkspaceAccess
func GetWorkspaceID(c *gin.Context) (uint64, bool) {
	value, exists := c.Get(constants.ContextKeyWorkspace)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint64)
	return id, ok
}
