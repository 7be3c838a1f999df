package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/workspace-task-api/internal/metrics"
	"github.com/yukikurage/workspace-task-api/internal/models"
	"github.com/yukikurage/workspace-task-api/internal/permissions"
	"github.com/yukikurage/workspace-task-api/internal/repository"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const (
	cacheKindWorkspace = "workspace_members"
	cacheKindProject   = "project_snapshot"
)

var ErrProjectNotFound = errors.New("project not found")

// AccessOptions configures the membership caches of AccessService.
type AccessOptions struct {
	CacheSize int
	CacheTTL  time.Duration
	// LoadTimeout bounds a shared cache fill. Defaults to defaultLoadTimeout.
	LoadTimeout time.Duration
}

const defaultLoadTimeout = 5 * time.Second

// AccessService loads membership data and resolves capabilities from it.
// Membership lists are cached briefly; every write that changes roles or
// membership must call InvalidateWorkspace or InvalidateProject afterwards.
type AccessService struct {
	workspaceRepo repository.WorkspaceRepository
	projectRepo   repository.ProjectRepository

	workspaceMembers *lru.LRU[uint64, []models.WorkspaceMember]
	snapshots        *lru.LRU[uint64, *repository.ProjectSnapshot]
	singleflight     singleflight.Group
	loadTimeout      time.Duration
	// generation changes on every invalidation so loads started before it are not cached.
	generation atomic.Uint64

	metrics *metrics.Metrics
	log     logrus.FieldLogger
}

// NewAccessService creates a new AccessService. m may be nil.
func NewAccessService(
	workspaceRepo repository.WorkspaceRepository,
	projectRepo repository.ProjectRepository,
	opts AccessOptions,
	m *metrics.Metrics,
	log logrus.FieldLogger,
) *AccessService {
	size := opts.CacheSize
	if size <= 0 {
		size = 1024
	}
	loadTimeout := opts.LoadTimeout
	if loadTimeout <= 0 {
		loadTimeout = defaultLoadTimeout
	}

	return &AccessService{
		workspaceRepo:    workspaceRepo,
		projectRepo:      projectRepo,
		workspaceMembers: lru.NewLRU[uint64, []models.WorkspaceMember](size, nil, opts.CacheTTL),
		snapshots:        lru.NewLRU[uint64, *repository.ProjectSnapshot](size, nil, opts.CacheTTL),
		loadTimeout:      loadTimeout,
		metrics:          m,
		log:              log,
	}
}

// ProjectAccess is the capability pair of one user on one project, resolved
// from a single snapshot together with the member lists it came from.
type ProjectAccess struct {
	Project          models.Project
	Workspace        models.Workspace
	Capabilities     permissions.ProjectCapabilities
	WorkspaceRole    permissions.WorkspaceCapabilities
	ProjectMembers   []models.ProjectMember
	WorkspaceMembers []models.WorkspaceMember
}

// WorkspaceCapabilities resolves what userID may do in the workspace.
// On error the pending capability set is returned.
func (s *AccessService) WorkspaceCapabilities(ctx context.Context, workspaceID, userID uint64) (permissions.WorkspaceCapabilities, []models.WorkspaceMember, error) {
	members, err := s.loadWorkspaceMembers(ctx, workspaceID)
	if err != nil {
		return permissions.PendingWorkspaceCapabilities(), nil, err
	}

	caps := permissions.ResolveWorkspaceRole(workspaceID, userID, permissions.WorkspaceMembers{Members: members})
	return caps, members, nil
}

// ProjectCapabilities resolves what userID may do in the project and in its workspace.
func (s *AccessService) ProjectCapabilities(ctx context.Context, projectID, userID uint64) (*ProjectAccess, error) {
	snapshot, err := s.loadProjectSnapshot(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return resolveProjectAccess(snapshot, userID), nil
}

// resolveProjectAccess resolves both capability sets of userID from one snapshot.
func resolveProjectAccess(snapshot *repository.ProjectSnapshot, userID uint64) *ProjectAccess {
	workspaceCaps := permissions.ResolveWorkspaceRole(snapshot.Workspace.ID, userID,
		permissions.WorkspaceMembers{Members: snapshot.WorkspaceMembers})

	details := &permissions.ProjectDetails{
		Members:   snapshot.ProjectMembers,
		Workspace: &permissions.WorkspaceRef{ID: snapshot.Workspace.ID, OwnerID: snapshot.Workspace.OwnerID},
		IsAdmin:   workspaceCaps.IsWorkspaceAdmin(),
	}

	return &ProjectAccess{
		Project:          snapshot.Project,
		Workspace:        snapshot.Workspace,
		Capabilities:     permissions.ResolveProjectRole(snapshot.Project.ID, userID, details),
		WorkspaceRole:    workspaceCaps,
		ProjectMembers:   snapshot.ProjectMembers,
		WorkspaceMembers: snapshot.WorkspaceMembers,
	}
}

// TaskPermissions resolves what userID may do with task.
// A task whose project no longer exists grants nothing beyond creator rights.
func (s *AccessService) TaskPermissions(ctx context.Context, task *models.Task, userID uint64) (permissions.TaskPermissions, error) {
	if task == nil || task.IsPersonal() {
		return permissions.ResolveTaskPermissions(task, userID, permissions.ProjectCapabilities{}, permissions.WorkspaceCapabilities{}), nil
	}

	access, err := s.ProjectCapabilities(ctx, *task.ProjectID, userID)
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return permissions.ResolveTaskPermissions(task, userID, permissions.ProjectCapabilities{}, permissions.WorkspaceCapabilities{}), nil
		}
		return permissions.TaskPermissions{IsLoading: true}, err
	}

	return permissions.ResolveTaskPermissions(task, userID, access.Capabilities, access.WorkspaceRole), nil
}

// InvalidateWorkspace drops the cached member list of the workspace and
// every cached snapshot of its projects.
func (s *AccessService) InvalidateWorkspace(workspaceID uint64) {
	s.generation.Add(1)
	s.workspaceMembers.Remove(workspaceID)

	dropped := 0
	for _, projectID := range s.snapshots.Keys() {
		snapshot, ok := s.snapshots.Peek(projectID)
		if ok && snapshot.Workspace.ID == workspaceID {
			s.snapshots.Remove(projectID)
			dropped++
		}
	}

	s.log.WithFields(logrus.Fields{
		"workspace_id":      workspaceID,
		"dropped_snapshots": dropped,
	}).Debug("Invalidated workspace access cache")
}

// InvalidateProject drops the cached snapshot of one project.
func (s *AccessService) InvalidateProject(projectID uint64) {
	s.generation.Add(1)
	s.snapshots.Remove(projectID)

	s.log.WithField("project_id", projectID).Debug("Invalidated project access cache")
}

// authorize records the decision and returns a PermissionDeniedError when refused.
func (s *AccessService) authorize(scope, action string, allowed bool, reason string) error {
	s.metrics.RecordDecision(scope, action, allowed)
	if allowed {
		return nil
	}
	return denied(action, reason)
}

func (s *AccessService) loadWorkspaceMembers(ctx context.Context, workspaceID uint64) ([]models.WorkspaceMember, error) {
	if members, ok := s.workspaceMembers.Get(workspaceID); ok {
		s.metrics.RecordCacheLookup(cacheKindWorkspace, true)
		return members, nil
	}
	s.metrics.RecordCacheLookup(cacheKindWorkspace, false)

	generation := s.generation.Load()
	key := "ws:" + strconv.FormatUint(workspaceID, 10) + ":" + strconv.FormatUint(generation, 10)

	result, err, _ := s.singleflight.Do(key, func() (any, error) {
		loadCtx, cancel := s.sharedLoadContext(ctx)
		defer cancel()
		return s.workspaceRepo.ListMembers(loadCtx, workspaceID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace members: %w", err)
	}

	members, ok := result.([]models.WorkspaceMember)
	if !ok {
		return nil, fmt.Errorf("failed to cast result to workspace members")
	}

	if s.generation.Load() == generation {
		s.workspaceMembers.Add(workspaceID, members)
	}
	return members, nil
}

func (s *AccessService) loadProjectSnapshot(ctx context.Context, projectID uint64) (*repository.ProjectSnapshot, error) {
	if snapshot, ok := s.snapshots.Get(projectID); ok {
		s.metrics.RecordCacheLookup(cacheKindProject, true)
		return snapshot, nil
	}
	s.metrics.RecordCacheLookup(cacheKindProject, false)

	generation := s.generation.Load()
	key := "project:" + strconv.FormatUint(projectID, 10) + ":" + strconv.FormatUint(generation, 10)

	result, err, _ := s.singleflight.Do(key, func() (any, error) {
		loadCtx, cancel := s.sharedLoadContext(ctx)
		defer cancel()
		return s.projectRepo.LoadSnapshot(loadCtx, projectID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, repository.ErrIncompleteSnapshot) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to load project snapshot: %w", err)
	}

	snapshot, ok := result.(*repository.ProjectSnapshot)
	if !ok {
		return nil, fmt.Errorf("failed to cast result to project snapshot")
	}

	if s.generation.Load() == generation {
		s.snapshots.Add(projectID, snapshot)
	}
	return snapshot, nil
}

// sharedLoadContext detaches a singleflight load from the caller that started
// it, since every waiting caller receives its result.
func (s *AccessService) sharedLoadContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
}
