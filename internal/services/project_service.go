package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/workspace-task-api/internal/models"
	"github.com/yukikurage/workspace-task-api/internal/permissions"
	"github.com/yukikurage/workspace-task-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrInvalidProjectName    = errors.New("project name cannot be empty")
	ErrInvalidProjectRole    = errors.New("invalid project role")
	ErrProjectMemberNotFound = errors.New("project member not found")
	ErrAlreadyProjectMember  = errors.New("user is already a member of this project")
	ErrNotWorkspaceMember    = errors.New("user is not a member of the workspace")
)

const scopeProject = "project"

// ProjectService provides business logic for projects and their members.
type ProjectService struct {
	projectRepo repository.ProjectRepository
	access      *AccessService
	log         logrus.FieldLogger
}

// NewProjectService creates a new ProjectService.
func NewProjectService(projectRepo repository.ProjectRepository, access *AccessService, log logrus.FieldLogger) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		access:      access,
		log:         log,
	}
}

// CreateProjectInput represents parameters to create a project.
type CreateProjectInput struct {
	WorkspaceID uint64
	ActorID     uint64
	Name        string
	Description string
}

// UpdateProjectInput holds the project fields to change.
type UpdateProjectInput struct {
	Name        *string
	Description *string
}

// ProjectMemberInput identifies a project member and the role to give them.
type ProjectMemberInput struct {
	ProjectID uint64
	ActorID   uint64
	UserID    uint64
	Role      models.ProjectRole
}

// ProjectMemberView is a project member with the guard verdict for the actor.
type ProjectMemberView struct {
	Member     models.ProjectMember
	Guard      permissions.GuardDecision
	Manageable bool
}

// ProjectDetails is a project as seen by one user.
type ProjectDetails struct {
	Project      models.Project
	Capabilities permissions.ProjectCapabilities
	Members      []ProjectMemberView
}

// CreateProject creates a project in a workspace with the creator as its manager.
func (s *ProjectService) CreateProject(ctx context.Context, input CreateProjectInput) (*models.Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrInvalidProjectName
	}

	caps, _, err := s.access.WorkspaceCapabilities(ctx, input.WorkspaceID, input.ActorID)
	if err != nil {
		return nil, err
	}
	if !caps.HasAccess {
		return nil, ErrWorkspaceNotFound
	}
	if err := s.access.authorize(scopeWorkspace, "create_project", caps.CanCreateProjects, "only owners and admins can create projects"); err != nil {
		return nil, err
	}

	project := &models.Project{
		WorkspaceID: input.WorkspaceID,
		Name:        name,
		Description: input.Description,
		CreatorID:   input.ActorID,
	}
	manager := &models.ProjectMember{JoinedAt: time.Now()}

	if err := s.projectRepo.CreateWithManager(ctx, project, manager); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.access.InvalidateProject(project.ID)
	s.log.WithFields(logrus.Fields{
		"workspace_id": input.WorkspaceID,
		"project_id":   project.ID,
		"actor_id":     input.ActorID,
	}).Info("Project created")

	return project, nil
}

// ListProjects lists the projects of a workspace visible to the actor.
// Owners and admins see every project, everyone else the projects they belong to.
func (s *ProjectService) ListProjects(ctx context.Context, workspaceID, actorID uint64) ([]models.Project, error) {
	caps, _, err := s.access.WorkspaceCapabilities(ctx, workspaceID, actorID)
	if err != nil {
		return nil, err
	}
	if !caps.HasAccess {
		return nil, ErrWorkspaceNotFound
	}

	var projects []models.Project
	if caps.IsWorkspaceAdmin() {
		projects, err = s.projectRepo.ListByWorkspace(ctx, workspaceID)
	} else {
		projects, err = s.projectRepo.ListForMember(ctx, workspaceID, actorID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	return projects, nil
}

// Capabilities returns what actorID may do in the project.
func (s *ProjectService) Capabilities(ctx context.Context, projectID, actorID uint64) (permissions.ProjectCapabilities, error) {
	access, err := s.resolve(ctx, projectID, actorID)
	if err != nil {
		return permissions.ProjectCapabilities{}, err
	}
	return access.Capabilities, nil
}

// GetProject returns a project with its members and the actor's capabilities.
func (s *ProjectService) GetProject(ctx context.Context, projectID, actorID uint64) (*ProjectDetails, error) {
	access, err := s.resolve(ctx, projectID, actorID)
	if err != nil {
		return nil, err
	}

	members := access.ProjectMembers
	views := make([]ProjectMemberView, 0, len(members))
	for _, m := range members {
		guard := permissions.CheckDemoteOrRemove(actorID, m, members)
		views = append(views, ProjectMemberView{
			Member:     m,
			Guard:      guard,
			Manageable: guard.Allowed && access.Capabilities.CanUpdateMemberRoles,
		})
	}

	return &ProjectDetails{
		Project:      access.Project,
		Capabilities: access.Capabilities,
		Members:      views,
	}, nil
}

// UpdateProject changes project fields.
func (s *ProjectService) UpdateProject(ctx context.Context, projectID, actorID uint64, input UpdateProjectInput) (*models.Project, error) {
	access, err := s.resolve(ctx, projectID, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.access.authorize(scopeProject, "edit_project", access.Capabilities.CanEditProject, "only project managers can edit the project"); err != nil {
		return nil, err
	}

	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrInvalidProjectName
		}
		project.Name = name
	}
	if input.Description != nil {
		project.Description = *input.Description
	}

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	s.access.InvalidateProject(projectID)
	return project, nil
}

// DeleteProject deletes a project with its tasks.
func (s *ProjectService) DeleteProject(ctx context.Context, projectID, actorID uint64) error {
	access, err := s.resolve(ctx, projectID, actorID)
	if err != nil {
		return err
	}
	if err := s.access.authorize(scopeProject, "delete_project", access.Capabilities.CanDeleteProject, "only project managers can delete the project"); err != nil {
		return err
	}

	if err := s.projectRepo.Delete(ctx, projectID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	s.access.InvalidateProject(projectID)
	s.log.WithFields(logrus.Fields{"project_id": projectID, "actor_id": actorID}).Info("Project deleted")

	return nil
}

// AddMember gives a workspace member a role in the project.
func (s *ProjectService) AddMember(ctx context.Context, input ProjectMemberInput) (*models.ProjectMember, error) {
	if !input.Role.IsValid() {
		return nil, ErrInvalidProjectRole
	}

	access, err := s.resolve(ctx, input.ProjectID, input.ActorID)
	if err != nil {
		return nil, err
	}
	if err := s.access.authorize(scopeProject, "add_member", access.Capabilities.CanAddMembers, "only project managers can add members"); err != nil {
		return nil, err
	}

	if _, ok := findWorkspaceMember(access.WorkspaceMembers, input.UserID); !ok {
		return nil, ErrNotWorkspaceMember
	}
	if _, ok := findProjectMember(access.ProjectMembers, input.UserID); ok {
		return nil, ErrAlreadyProjectMember
	}

	member := &models.ProjectMember{
		ProjectID: input.ProjectID,
		UserID:    input.UserID,
		Role:      input.Role,
		JoinedAt:  time.Now(),
	}
	if err := s.projectRepo.AddMember(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to add project member: %w", err)
	}

	s.access.InvalidateProject(input.ProjectID)
	s.log.WithFields(logrus.Fields{
		"project_id": input.ProjectID,
		"actor_id":   input.ActorID,
		"user_id":    input.UserID,
		"role":       input.Role,
	}).Info("Project member added")

	return member, nil
}

// ChangeMemberRole changes the project role of another member.
// Authority and the guard are evaluated on rows locked by the write itself.
func (s *ProjectService) ChangeMemberRole(ctx context.Context, input ProjectMemberInput) (*models.ProjectMember, error) {
	if !input.Role.IsValid() {
		return nil, ErrInvalidProjectRole
	}

	var target models.ProjectMember
	var refusal error
	err := s.projectRepo.UpdateMemberRole(ctx, input.ProjectID, input.UserID, input.Role, func(snapshot *repository.ProjectSnapshot) error {
		access := resolveProjectAccess(snapshot, input.ActorID)
		target, refusal = s.checkMemberChange(access, input.ActorID, input.UserID,
			"change_member_role", access.Capabilities.CanUpdateMemberRoles, "only project managers can change member roles")
		return refusal
	})
	if refusal != nil {
		return nil, refusal
	}
	if err != nil {
		return nil, memberWriteError(err, "failed to update project member role")
	}

	s.access.InvalidateProject(input.ProjectID)
	s.log.WithFields(logrus.Fields{
		"project_id": input.ProjectID,
		"actor_id":   input.ActorID,
		"user_id":    input.UserID,
		"from":       target.Role,
		"to":         input.Role,
	}).Info("Project member role changed")

	target.Role = input.Role
	return &target, nil
}

// RemoveMember removes another member from the project.
func (s *ProjectService) RemoveMember(ctx context.Context, projectID, actorID, userID uint64) error {
	var refusal error
	err := s.projectRepo.RemoveMember(ctx, projectID, userID, func(snapshot *repository.ProjectSnapshot) error {
		access := resolveProjectAccess(snapshot, actorID)
		_, refusal = s.checkMemberChange(access, actorID, userID,
			"remove_member", access.Capabilities.CanRemoveMembers, "only project managers can remove members")
		return refusal
	})
	if refusal != nil {
		return refusal
	}
	if err != nil {
		return memberWriteError(err, "failed to remove project member")
	}

	s.access.InvalidateProject(projectID)
	s.log.WithFields(logrus.Fields{
		"project_id": projectID,
		"actor_id":   actorID,
		"user_id":    userID,
	}).Info("Project member removed")

	return nil
}

// checkMemberChange applies the access, authority and guard rules for a
// change to userID's membership and returns userID's current row.
func (s *ProjectService) checkMemberChange(access *ProjectAccess, actorID, userID uint64, action string, allowed bool, reason string) (models.ProjectMember, error) {
	if !access.Capabilities.HasAccess {
		return models.ProjectMember{}, ErrProjectNotFound
	}
	if err := s.access.authorize(scopeProject, action, allowed, reason); err != nil {
		return models.ProjectMember{}, err
	}

	target, ok := findProjectMember(access.ProjectMembers, userID)
	if !ok {
		return models.ProjectMember{}, ErrProjectMemberNotFound
	}

	return target, guardError(permissions.CheckDemoteOrRemove(actorID, target, access.ProjectMembers))
}

func memberWriteError(err error, msg string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, repository.ErrIncompleteSnapshot):
		return ErrProjectNotFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// resolve loads the actor's access to the project. Users without any
// access get ErrProjectNotFound.
func (s *ProjectService) resolve(ctx context.Context, projectID, actorID uint64) (*ProjectAccess, error) {
	access, err := s.access.ProjectCapabilities(ctx, projectID, actorID)
	if err != nil {
		return nil, err
	}
	if !access.Capabilities.HasAccess {
		return nil, ErrProjectNotFound
	}
	return access, nil
}

func findProjectMember(members []models.ProjectMember, userID uint64) (models.ProjectMember, bool) {
	for _, m := range members {
		if m.UserID == userID {
			return m, true
		}
	}
	return models.ProjectMember{}, false
}
