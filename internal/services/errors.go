package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/yukikurage/workspace-task-api/internal/permissions"
)

var (
	// ErrPermissionDenied matches every PermissionDeniedError.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrCannotModifySelf is returned when a member tries to change their own role or remove themselves.
	ErrCannotModifySelf = errors.New("cannot change your own role or remove yourself")
	// ErrSoleAuthority is returned when the last holder of the top role would be demoted or removed.
	ErrSoleAuthority = errors.New("cannot demote or remove the last holder of the top role")
	// ErrUnauthenticated is returned when no acting user is known.
	ErrUnauthenticated = errors.New("authentication required")
)

// PermissionDeniedError reports a refused action with the reason shown to the caller.
type PermissionDeniedError struct {
	Action string
	Reason string
}

func (e *PermissionDeniedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("permission denied: %s", e.Action)
	}
	return fmt.Sprintf("permission denied: %s: %s", e.Action, e.Reason)
}

// Is makes errors.Is(err, ErrPermissionDenied) true.
func (e *PermissionDeniedError) Is(target error) bool {
	return target == ErrPermissionDenied
}

// SoleManagerError lists the projects a workspace removal would leave without a MANAGER.
type SoleManagerError struct {
	ProjectIDs []uint64
}

func (e *SoleManagerError) Error() string {
	ids := make([]string, len(e.ProjectIDs))
	for i, id := range e.ProjectIDs {
		ids[i] = strconv.FormatUint(id, 10)
	}
	return "member is the only manager of projects " + strings.Join(ids, ", ") + "; appoint another manager first"
}

// Is makes errors.Is(err, ErrSoleAuthority) true.
func (e *SoleManagerError) Is(target error) bool {
	return target == ErrSoleAuthority
}

func denied(action, reason string) error {
	return &PermissionDeniedError{Action: action, Reason: reason}
}

// guardError converts a refused guard decision into its sentinel error.
func guardError(decision permissions.GuardDecision) error {
	switch decision.Blocker {
	case permissions.BlockerNone:
		return nil
	case permissions.BlockerUnauthenticated:
		return ErrUnauthenticated
	case permissions.BlockerSelf:
		return ErrCannotModifySelf
	default:
		return ErrSoleAuthority
	}
}
