package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/workspace-task-api/internal/errors"
	"github.com/yukikurage/workspace-task-api/internal/middleware"
	"github.com/yukikurage/workspace-task-api/internal/services"
)

var notFoundErrors = []error{
	services.ErrWorkspaceNotFound,
	services.ErrWorkspaceMemberNotFound,
	services.ErrInvitationNotFound,
	services.ErrProjectNotFound,
	services.ErrProjectMemberNotFound,
	services.ErrTaskNotFound,
	services.ErrCommentNotFound,
	services.ErrUserNotFound,
}

var badRequestErrors = []error{
	services.ErrInvalidWorkspaceName,
	services.ErrInvalidWorkspaceRole,
	services.ErrInvalidProjectName,
	services.ErrInvalidProjectRole,
	services.ErrNotWorkspaceMember,
	services.ErrNoUserIDsProvided,
	services.ErrTitleRequired,
	services.ErrTitleTooLong,
	services.ErrInvalidTaskStatus,
	services.ErrInvalidTaskPriority,
	services.ErrInvalidTaskAssignee,
	services.ErrNoTaskChanges,
	services.ErrCommentEmpty,
	services.ErrCommentTooLong,
}

// respondServiceError maps domain errors onto API error responses.
func respondServiceError(c *gin.Context, err error) {
	var deniedErr *services.PermissionDeniedError
	if errors.As(err, &deniedErr) {
		apierrors.InsufficientPermissions(c, deniedErr.Action, deniedErr.Reason)
		return
	}
	var soleErr *services.SoleManagerError
	if errors.As(err, &soleErr) {
		apierrors.InvalidOperationWithDetails(c, soleErr.Error(), gin.H{"project_ids": soleErr.ProjectIDs})
		return
	}

	switch {
	case errors.Is(err, services.ErrCannotModifySelf),
		errors.Is(err, services.ErrSoleAuthority):
		apierrors.InvalidOperation(c, err.Error())
		return
	case errors.Is(err, services.ErrUnauthenticated):
		apierrors.Unauthorized(c, "")
		return
	case errors.Is(err, services.ErrNotCommentOwner):
		apierrors.InsufficientPermissions(c, "delete_comment", err.Error())
		return
	case errors.Is(err, services.ErrAlreadyWorkspaceMember),
		errors.Is(err, services.ErrAlreadyProjectMember):
		apierrors.Conflict(c, err.Error())
		return
	case errors.Is(err, services.ErrInvitationExpired),
		errors.Is(err, services.ErrInvitationUsed):
		apierrors.Gone(c, err.Error())
		return
	}

	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			apierrors.NotFound(c, target.Error())
			return
		}
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			apierrors.BadRequest(c, target.Error())
			return
		}
	}

	middleware.Logger(c).WithError(err).Error("unhandled service error")
	apierrors.InternalError(c, "")
}

// currentUserID returns the session user or writes a 401.
func currentUserID(c *gin.Context) (uint64, bool) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return 0, false
	}
	return userID, true
}

// uintParam parses a positive numeric path parameter or writes a 400.
func uintParam(c *gin.Context, name, label string) (uint64, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || value == 0 {
		apierrors.BadRequest(c, "Invalid "+label)
		return 0, false
	}
	return value, true
}
