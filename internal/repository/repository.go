package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yukikurage/workspace-task-api/internal/models"
	"gorm.io/gorm/clause"
)

// ErrIncompleteSnapshot is returned when a project exists but its workspace does not.
var ErrIncompleteSnapshot = errors.New("repository: project snapshot is incomplete")

// lockForUpdate is ignored by SQLite and becomes FOR UPDATE elsewhere.
var lockForUpdate = clause.Locking{Strength: "UPDATE"}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(ctx context.Context, id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// UpdateFields writes only the given columns of a task
	UpdateFields(ctx context.Context, id uint64, fields map[string]interface{}) error

	// Delete soft deletes a task with its assignments and comments
	Delete(ctx context.Context, id uint64) error

	// AssignUsers assigns multiple users to a task
	AssignUsers(ctx context.Context, taskID, assignedByID uint64, userIDs []uint64) error

	// UnassignUsers removes user assignments from a task
	UnassignUsers(ctx context.Context, taskID uint64, userIDs []uint64) error

	// CountProjectMembers counts how many of the given user IDs are members of the project
	CountProjectMembers(ctx context.Context, projectID uint64, userIDs []uint64) (int64, error)
}

// TaskFilter holds filtering options for listing tasks.
// Exactly one of ProjectID or PersonalOf selects the task set.
type TaskFilter struct {
	ProjectID      *uint64
	PersonalOf     *uint64
	Status         *models.TaskStatus
	Priority       *models.TaskPriority
	CreatorID      *uint64
	AssignedUserID *uint64
	DueDateFrom    *time.Time
	DueDateTo      *time.Time
	SortByDueDate  bool
	Page           int
	PageSize       int
}

// WorkspaceRepository defines the interface for workspace data access
type WorkspaceRepository interface {
	// CreateWithOwner creates a workspace and its owner membership atomically
	CreateWithOwner(ctx context.Context, workspace *models.Workspace, owner *models.WorkspaceMember) error

	// FindByID finds a workspace by ID
	FindByID(ctx context.Context, id uint64) (*models.Workspace, error)

	// Update updates a workspace
	Update(ctx context.Context, workspace *models.Workspace) error

	// Delete deletes a workspace and everything inside it
	Delete(ctx context.Context, id uint64) error

	// AddMember adds a member to a workspace
	AddMember(ctx context.Context, member *models.WorkspaceMember) error

	// FindMember finds a specific workspace member
	FindMember(ctx context.Context, workspaceID, userID uint64) (*models.WorkspaceMember, error)

	// ListMembers lists all members of a workspace
	ListMembers(ctx context.Context, workspaceID uint64) ([]models.WorkspaceMember, error)

	// ListMembershipsByUserID lists all workspaces a user is a member of
	ListMembershipsByUserID(ctx context.Context, userID uint64) ([]models.WorkspaceMember, error)

	// UpdateMemberRole changes the role of a workspace member once check accepts
	// the member list read under lock inside the same transaction
	UpdateMemberRole(ctx context.Context, workspaceID, userID uint64, role models.WorkspaceRole, check WorkspaceMemberCheck) error

	// RemoveMember removes a member and their project memberships inside the workspace
	// once check accepts the member list read under lock inside the same transaction
	RemoveMember(ctx context.Context, workspaceID, userID uint64, check WorkspaceMemberCheck) error

	// CreateInvitation stores a new invitation
	CreateInvitation(ctx context.Context, invitation *models.WorkspaceInvitation) error

	// FindInvitationByCode finds an invitation by its code
	FindInvitationByCode(ctx context.Context, code string) (*models.WorkspaceInvitation, error)

	// ListInvitations lists the pending invitations of a workspace
	ListInvitations(ctx context.Context, workspaceID uint64, now time.Time) ([]models.WorkspaceInvitation, error)

	// AcceptInvitation marks the invitation used and adds the member atomically
	AcceptInvitation(ctx context.Context, invitation *models.WorkspaceInvitation, member *models.WorkspaceMember) error

	// DeleteExpiredInvitations removes unaccepted invitations that expired before now
	DeleteExpiredInvitations(ctx context.Context, now time.Time) (int64, error)
}

// ProjectSnapshot is a project read together with everything its permissions depend on.
type ProjectSnapshot struct {
	Project          models.Project
	Workspace        models.Workspace
	ProjectMembers   []models.ProjectMember
	WorkspaceMembers []models.WorkspaceMember
}

// WorkspaceMemberCheck vets a membership write against the current member list.
// A non-nil error aborts the write and is returned unchanged.
type WorkspaceMemberCheck func(members []models.WorkspaceMember) error

// ProjectMemberCheck vets a membership write against the current project snapshot.
// A non-nil error aborts the write and is returned unchanged.
type ProjectMemberCheck func(snapshot *ProjectSnapshot) error

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	// CreateWithManager creates a project and its first manager atomically
	CreateWithManager(ctx context.Context, project *models.Project, manager *models.ProjectMember) error

	// FindByID finds a project by ID
	FindByID(ctx context.Context, id uint64) (*models.Project, error)

	// ListByWorkspace lists every project of a workspace
	ListByWorkspace(ctx context.Context, workspaceID uint64) ([]models.Project, error)

	// ListForMember lists the projects of a workspace the user holds a role in
	ListForMember(ctx context.Context, workspaceID, userID uint64) ([]models.Project, error)

	// Update updates a project
	Update(ctx context.Context, project *models.Project) error

	// Delete deletes a project with its members, tasks and comments
	Delete(ctx context.Context, id uint64) error

	// AddMember adds a member to a project
	AddMember(ctx context.Context, member *models.ProjectMember) error

	// FindMember finds a specific project member
	FindMember(ctx context.Context, projectID, userID uint64) (*models.ProjectMember, error)

	// UpdateMemberRole changes the role of a project member once check accepts
	// the snapshot read under lock inside the same transaction
	UpdateMemberRole(ctx context.Context, projectID, userID uint64, role models.ProjectRole, check ProjectMemberCheck) error

	// RemoveMember removes a member from a project once check accepts
	// the snapshot read under lock inside the same transaction
	RemoveMember(ctx context.Context, projectID, userID uint64, check ProjectMemberCheck) error

	// LoadSnapshot reads the project, its workspace and both member lists in one transaction
	LoadSnapshot(ctx context.Context, projectID uint64) (*ProjectSnapshot, error)
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	// Create creates a new comment
	Create(ctx context.Context, comment *models.Comment) error

	// FindByID finds a comment by ID
	FindByID(ctx context.Context, id uint64) (*models.Comment, error)

	// ListByTask lists the comments of a task, oldest first
	ListByTask(ctx context.Context, taskID uint64) ([]models.Comment, error)

	// Delete soft deletes a comment
	Delete(ctx context.Context, id uint64) error
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// CreateWithPersonalWorkspace creates a user, their personal workspace,
	// and the owner membership within a single transaction.
	CreateWithPersonalWorkspace(ctx context.Context, user *models.User, workspace *models.Workspace, member *models.WorkspaceMember) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}
