package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/workspace-task-api/internal/constants"
	"github.com/yukikurage/workspace-task-api/internal/models"
	"github.com/yukikurage/workspace-task-api/internal/permissions"
	"github.com/yukikurage/workspace-task-api/internal/repository"
	"github.com/yukikurage/workspace-task-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrWorkspaceNotFound        = errors.New("workspace not found")
	ErrInvalidWorkspaceName     = errors.New("workspace name cannot be empty")
	ErrInvalidWorkspaceRole     = errors.New("invalid workspace role")
	ErrWorkspaceMemberNotFound  = errors.New("workspace member not found")
	ErrAlreadyWorkspaceMember   = errors.New("user is already a member of this workspace")
	ErrInvitationNotFound       = errors.New("invitation not found")
	ErrInvitationExpired        = errors.New("invitation has expired")
	ErrInvitationUsed           = errors.New("invitation has already been used")
	ErrInviteCodeGenerationFail = errors.New("failed to generate invite code")
)

const scopeWorkspace = "workspace"

// WorkspaceService provides business logic for workspace operations.
type WorkspaceService struct {
	workspaceRepo repository.WorkspaceRepository
	access        *AccessService
	invitationTTL time.Duration
	now           func() time.Time
	log           logrus.FieldLogger
}

// NewWorkspaceService creates a new WorkspaceService.
func NewWorkspaceService(workspaceRepo repository.WorkspaceRepository, access *AccessService, invitationTTL time.Duration, log logrus.FieldLogger) *WorkspaceService {
	if invitationTTL <= 0 {
		invitationTTL = constants.DefaultInvitationTTL
	}
	return &WorkspaceService{
		workspaceRepo: workspaceRepo,
		access:        access,
		invitationTTL: invitationTTL,
		now:           time.Now,
		log:           log,
	}
}

// CreateWorkspaceInput represents parameters to create a new workspace.
type CreateWorkspaceInput struct {
	Name        string
	Description string
	OwnerID     uint64
}

// UpdateWorkspaceInput holds the workspace settings to change.
type UpdateWorkspaceInput struct {
	Name        *string
	Description *string
}

// CreateInvitationInput represents parameters to invite someone into a workspace.
type CreateInvitationInput struct {
	WorkspaceID uint64
	ActorID     uint64
	Role        models.WorkspaceRole
	TTL         time.Duration
}

// ChangeWorkspaceRoleInput represents a role change of one workspace member.
type ChangeWorkspaceRoleInput struct {
	WorkspaceID uint64
	ActorID     uint64
	UserID      uint64
	Role        models.WorkspaceRole
}

// MemberView is a workspace member with the actor's ability to change it.
type MemberView struct {
	Member models.WorkspaceMember
	// Guard is the sole-authority and self-protection verdict.
	Guard permissions.GuardDecision
	// Manageable also requires the actor's role to outrank or match the member's.
	Manageable bool
}

// WorkspaceDetails is a workspace as seen by one member.
type WorkspaceDetails struct {
	Workspace    *models.Workspace
	Capabilities permissions.WorkspaceCapabilities
	Members      []MemberView
}

// CreateWorkspace creates a new workspace owned by its creator.
func (s *WorkspaceService) CreateWorkspace(ctx context.Context, input CreateWorkspaceInput) (*models.Workspace, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrInvalidWorkspaceName
	}

	workspace := &models.Workspace{
		Name:        name,
		Description: input.Description,
		OwnerID:     input.OwnerID,
	}
	owner := &models.WorkspaceMember{JoinedAt: s.now()}

	if err := s.workspaceRepo.CreateWithOwner(ctx, workspace, owner); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	s.access.InvalidateWorkspace(workspace.ID)
	s.log.WithFields(logrus.Fields{"workspace_id": workspace.ID, "owner_id": input.OwnerID}).Info("Workspace created")

	return workspace, nil
}

// ListWorkspacesForUser returns the memberships of a user, workspace preloaded.
func (s *WorkspaceService) ListWorkspacesForUser(ctx context.Context, userID uint64) ([]models.WorkspaceMember, error) {
	memberships, err := s.workspaceRepo.ListMembershipsByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	return memberships, nil
}

// Capabilities returns what actorID may do in the workspace.
// Users without access get ErrWorkspaceNotFound.
func (s *WorkspaceService) Capabilities(ctx context.Context, workspaceID, actorID uint64) (permissions.WorkspaceCapabilities, error) {
	caps, _, err := s.resolve(ctx, workspaceID, actorID)
	return caps, err
}

// GetWorkspace returns the workspace, the actor's capabilities and, per member,
// whether the actor may change that member's role or remove them.
func (s *WorkspaceService) GetWorkspace(ctx context.Context, workspaceID, actorID uint64) (*WorkspaceDetails, error) {
	caps, members, err := s.resolve(ctx, workspaceID, actorID)
	if err != nil {
		return nil, err
	}

	workspace, err := s.findWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	views := make([]MemberView, 0, len(members))
	for _, m := range members {
		guard := permissions.CheckDemoteOrRemove(actorID, m, members)
		views = append(views, MemberView{
			Member:     m,
			Guard:      guard,
			Manageable: guard.Allowed && caps.CanManageMembers && permissions.CanAssignWorkspaceRole(caps.Role, m.Role),
		})
	}

	return &WorkspaceDetails{
		Workspace:    workspace,
		Capabilities: caps,
		Members:      views,
	}, nil
}

// UpdateWorkspace changes workspace settings. Only owners may do this.
func (s *WorkspaceService) UpdateWorkspace(ctx context.Context, workspaceID, actorID uint64, input UpdateWorkspaceInput) (*models.Workspace, error) {
	caps, _, err := s.resolve(ctx, workspaceID, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.access.authorize(scopeWorkspace, "edit_settings", caps.CanEditSettings, "only workspace owners can edit settings"); err != nil {
		return nil, err
	}

	workspace, err := s.findWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrInvalidWorkspaceName
		}
		workspace.Name = name
	}
	if input.Description != nil {
		workspace.Description = *input.Description
	}

	if err := s.workspaceRepo.Update(ctx, workspace); err != nil {
		return nil, fmt.Errorf("failed to update workspace: %w", err)
	}

	return workspace, nil
}

// DeleteWorkspace deletes a workspace with all its projects and tasks.
func (s *WorkspaceService) DeleteWorkspace(ctx context.Context, workspaceID, actorID uint64) error {
	caps, _, err := s.resolve(ctx, workspaceID, actorID)
	if err != nil {
		return err
	}
	if err := s.access.authorize(scopeWorkspace, "delete_workspace", caps.CanDeleteWorkspace, "only workspace owners can delete the workspace"); err != nil {
		return err
	}

	if err := s.workspaceRepo.Delete(ctx, workspaceID); err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}

	s.access.InvalidateWorkspace(workspaceID)
	s.log.WithFields(logrus.Fields{"workspace_id": workspaceID, "actor_id": actorID}).Info("Workspace deleted")

	return nil
}

// CreateInvitation issues an invitation code granting input.Role.
func (s *WorkspaceService) CreateInvitation(ctx context.Context, input CreateInvitationInput) (*models.WorkspaceInvitation, error) {
	if !input.Role.IsValid() {
		return nil, ErrInvalidWorkspaceRole
	}

	caps, _, err := s.resolve(ctx, input.WorkspaceID, input.ActorID)
	if err != nil {
		return nil, err
	}
	if err := s.access.authorize(scopeWorkspace, "invite_members", caps.CanInviteMembers, "only owners and admins can invite members"); err != nil {
		return nil, err
	}
	if err := s.access.authorize(scopeWorkspace, "assign_role", permissions.CanAssignWorkspaceRole(caps.Role, input.Role),
		fmt.Sprintf("a %s cannot grant the %s role", caps.Role, input.Role)); err != nil {
		return nil, err
	}

	ttl := input.TTL
	if ttl <= 0 {
		ttl = s.invitationTTL
	}
	if ttl > constants.MaxInvitationTTL {
		ttl = constants.MaxInvitationTTL
	}

	code, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, ErrInviteCodeGenerationFail
	}

	invitation := &models.WorkspaceInvitation{
		WorkspaceID: input.WorkspaceID,
		Code:        code,
		Role:        input.Role,
		InvitedByID: input.ActorID,
		ExpiresAt:   s.now().Add(ttl),
	}

	if err := s.workspaceRepo.CreateInvitation(ctx, invitation); err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	return invitation, nil
}

// ListInvitations lists pending invitations of the workspace.
func (s *WorkspaceService) ListInvitations(ctx context.Context, workspaceID, actorID uint64) ([]models.WorkspaceInvitation, error) {
	caps, _, err := s.resolve(ctx, workspaceID, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.access.authorize(scopeWorkspace, "list_invitations", caps.CanManageWorkspace, "only owners and admins can see invitations"); err != nil {
		return nil, err
	}

	invitations, err := s.workspaceRepo.ListInvitations(ctx, workspaceID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invitations, nil
}

// AcceptInvitation makes userID a member with the invitation's role.
func (s *WorkspaceService) AcceptInvitation(ctx context.Context, code string, userID uint64) (*models.WorkspaceMember, error) {
	invitation, err := s.workspaceRepo.FindInvitationByCode(ctx, utils.NormalizeInviteCode(code))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to find invitation: %w", err)
	}

	now := s.now()
	if invitation.IsAccepted() {
		return nil, ErrInvitationUsed
	}
	if invitation.IsExpired(now) {
		return nil, ErrInvitationExpired
	}

	if _, err := s.workspaceRepo.FindMember(ctx, invitation.WorkspaceID, userID); err == nil {
		return nil, ErrAlreadyWorkspaceMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	member := &models.WorkspaceMember{UserID: userID, JoinedAt: now}
	if err := s.workspaceRepo.AcceptInvitation(ctx, invitation, member); err != nil {
		if errors.Is(err, repository.ErrInvitationUsed) {
			return nil, ErrInvitationUsed
		}
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}

	s.access.InvalidateWorkspace(invitation.WorkspaceID)
	s.log.WithFields(logrus.Fields{
		"workspace_id": invitation.WorkspaceID,
		"user_id":      userID,
		"role":         member.Role,
	}).Info("Invitation accepted")

	return member, nil
}

// ChangeMemberRole changes the role of another member.
// Authority and the guard are evaluated on rows locked by the write itself.
func (s *WorkspaceService) ChangeMemberRole(ctx context.Context, input ChangeWorkspaceRoleInput) (*models.WorkspaceMember, error) {
	if !input.Role.IsValid() {
		return nil, ErrInvalidWorkspaceRole
	}

	var target models.WorkspaceMember
	var refusal error
	err := s.workspaceRepo.UpdateMemberRole(ctx, input.WorkspaceID, input.UserID, input.Role, func(members []models.WorkspaceMember) error {
		target, refusal = s.checkMemberChange(members, input.WorkspaceID, input.ActorID, input.UserID, input.Role)
		return refusal
	})
	if refusal != nil {
		return nil, refusal
	}
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrWorkspaceMemberNotFound
		case errors.Is(err, repository.ErrNoSuccessorOwner):
			return nil, ErrSoleAuthority
		}
		return nil, fmt.Errorf("failed to update member role: %w", err)
	}

	s.access.InvalidateWorkspace(input.WorkspaceID)
	s.log.WithFields(logrus.Fields{
		"workspace_id": input.WorkspaceID,
		"actor_id":     input.ActorID,
		"user_id":      input.UserID,
		"from":         target.Role,
		"to":           input.Role,
	}).Info("Workspace member role changed")

	target.Role = input.Role
	return &target, nil
}

// RemoveMember removes another member and their project roles in the workspace.
// A member who is the only MANAGER of a project is refused with a *SoleManagerError.
func (s *WorkspaceService) RemoveMember(ctx context.Context, workspaceID, actorID, userID uint64) error {
	var refusal error
	err := s.workspaceRepo.RemoveMember(ctx, workspaceID, userID, func(members []models.WorkspaceMember) error {
		_, refusal = s.checkMemberChange(members, workspaceID, actorID, userID, "")
		return refusal
	})
	if refusal != nil {
		return refusal
	}
	if err != nil {
		var soleErr *repository.SoleManagerError
		switch {
		case errors.As(err, &soleErr):
			return &SoleManagerError{ProjectIDs: soleErr.ProjectIDs}
		case errors.Is(err, gorm.ErrRecordNotFound):
			return ErrWorkspaceMemberNotFound
		case errors.Is(err, repository.ErrNoSuccessorOwner):
			return ErrSoleAuthority
		}
		return fmt.Errorf("failed to remove member: %w", err)
	}

	s.access.InvalidateWorkspace(workspaceID)
	s.log.WithFields(logrus.Fields{
		"workspace_id": workspaceID,
		"actor_id":     actorID,
		"user_id":      userID,
	}).Info("Workspace member removed")

	return nil
}

// checkMemberChange applies the membership rules for actorID changing userID
// to newRole, or removing userID when newRole is empty. It returns userID's
// current row.
func (s *WorkspaceService) checkMemberChange(members []models.WorkspaceMember, workspaceID, actorID, userID uint64, newRole models.WorkspaceRole) (models.WorkspaceMember, error) {
	caps := permissions.ResolveWorkspaceRole(workspaceID, actorID, permissions.WorkspaceMembers{Members: members})
	if !caps.HasAccess {
		return models.WorkspaceMember{}, ErrWorkspaceNotFound
	}

	removing := newRole == ""
	action, allowed, reason := "change_member_role", caps.CanManageMembers, "only owners and admins can change member roles"
	if removing {
		action, allowed, reason = "remove_member", caps.CanRemoveMembers, "only owners and admins can remove members"
	}
	if err := s.access.authorize(scopeWorkspace, action, allowed, reason); err != nil {
		return models.WorkspaceMember{}, err
	}

	target, ok := findWorkspaceMember(members, userID)
	if !ok {
		return models.WorkspaceMember{}, ErrWorkspaceMemberNotFound
	}

	assignable := permissions.CanAssignWorkspaceRole(caps.Role, target.Role)
	reason = "admins cannot remove owners"
	if !removing {
		assignable = assignable && permissions.CanAssignWorkspaceRole(caps.Role, newRole)
		reason = "admins cannot manage owners or grant ownership"
	}
	if err := s.access.authorize(scopeWorkspace, "assign_role", assignable, reason); err != nil {
		return models.WorkspaceMember{}, err
	}

	return target, guardError(permissions.CheckDemoteOrRemove(actorID, target, members))
}

// resolve returns the actor's capabilities and the member list they were
// resolved from. Non-members get ErrWorkspaceNotFound.
func (s *WorkspaceService) resolve(ctx context.Context, workspaceID, actorID uint64) (permissions.WorkspaceCapabilities, []models.WorkspaceMember, error) {
	caps, members, err := s.access.WorkspaceCapabilities(ctx, workspaceID, actorID)
	if err != nil {
		return caps, nil, err
	}
	if !caps.HasAccess {
		return caps, nil, ErrWorkspaceNotFound
	}
	return caps, members, nil
}

func (s *WorkspaceService) findWorkspace(ctx context.Context, workspaceID uint64) (*models.Workspace, error) {
	workspace, err := s.workspaceRepo.FindByID(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("failed to find workspace: %w", err)
	}
	return workspace, nil
}

func findWorkspaceMember(members []models.WorkspaceMember, userID uint64) (models.WorkspaceMember, bool) {
	for _, m := range members {
		if m.UserID == userID {
			return m, true
		}
	}
	return models.WorkspaceMember{}, false
}
