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

// TaskResolver resolves the caller's permissions on a task.
type TaskResolver interface {
	Permissions(ctx context.Context, taskID, actorID uint64) (permissions.TaskPermissions, error)
}

// RequireTaskAccess checks if the user can see the task named by the :id parameter.
// Creators always pass so they can still edit or delete tasks in projects they left.
func RequireTaskAccess(tasks TaskResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid task ID")
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			return
		}

		perms, err := tasks.Permissions(c.Request.Context(), taskID, userID)
		if err != nil {
			if errors.Is(err, services.ErrTaskNotFound) {
				apierrors.NotFound(c, "Task not found")
				return
			}
			Logger(c).WithError(err).WithField("task_id", taskID).Error("failed to resolve task permissions")
			apierrors.InternalError(c, "")
			return
		}

		if !perms.CanView && !perms.IsOwner {
			// Return 404 instead of 403 to avoid leaking task existence
			apierrors.NotFound(c, "Task not found")
			return
		}

		c.Set(constants.ContextKeyTask, taskID)
		c.Set(constants.ContextKeyTaskPermissions, perms)
		c.Next()
	}
}

// GetTaskPermissions returns the permissions stored by RequireTaskAccess
func GetTaskPermissions(c *gin.Context) (permissions.TaskPermissions, bool) {
	value, exists := c.Get(constants.ContextKeyTaskPermissions)
	if !exists {
		return permissions.TaskPermissions{}, false
	}
	perms, ok := value.(permissions.TaskPermissions)
	return perms, ok
}
