package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/workspace-task-api/internal/constants"
	"github.com/yukikurage/workspace-task-api/internal/models"
	"github.com/yukikurage/workspace-task-api/internal/permissions"
	"github.com/yukikurage/workspace-task-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound        = errors.New("task not found")
	ErrNoUserIDsProvided   = errors.New("at least one user ID is required")
	ErrTitleRequired       = errors.New("title is required")
	ErrTitleTooLong        = errors.New("title is too long")
	ErrInvalidTaskStatus   = errors.New("invalid task status")
	ErrInvalidTaskPriority = errors.New("invalid task priority")
	ErrInvalidTaskAssignee = errors.New("one or more users cannot be assigned to this task")
	ErrNoTaskChanges       = errors.New("no task fields to update")
)

const scopeTask = "task"

// TaskService handles task business logic
type TaskService struct {
	taskRepo repository.TaskRepository
	access   *AccessService
	log      logrus.FieldLogger
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, access *AccessService, log logrus.FieldLogger) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		access:   access,
		log:      log,
	}
}

// ListTasksInput represents filters for listing tasks.
// Without ProjectID the caller's personal tasks are listed.
type ListTasksInput struct {
	UserID        uint64
	ProjectID     *uint64
	AssignedToMe  bool
	DueToday      bool
	Status        *models.TaskStatus
	Priority      *models.TaskPriority
	SortByDueDate bool
	Page          int
	PageSize      int
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	Status      models.TaskStatus
	Priority    models.TaskPriority
	DueDate     *time.Time
	ProjectID   *uint64
	CreatorID   uint64
}

// UpdateTaskInput represents input for updating a task.
// Status needs the status permission, every other field needs edit.
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	Status       *models.TaskStatus
	Priority     *models.TaskPriority
	DueDate      *time.Time
	ClearDueDate bool
}

func (in UpdateTaskInput) touchesContent() bool {
	return in.Title != nil || in.Description != nil || in.Priority != nil || in.DueDate != nil || in.ClearDueDate
}

func (in UpdateTaskInput) isEmpty() bool {
	return !in.touchesContent() && in.Status == nil
}

// AssignUsersInput represents input for assigning users to a task
type AssignUsersInput struct {
	TaskID  uint64
	ActorID uint64
	UserIDs []uint64
}

// ListTasks returns project tasks when the caller may view them, otherwise the caller's personal tasks
func (s *TaskService) ListTasks(ctx context.Context, input ListTasksInput) ([]models.Task, int64, error) {
	filter := repository.TaskFilter{
		Status:        input.Status,
		Priority:      input.Priority,
		Page:          input.Page,
		PageSize:      input.PageSize,
		SortByDueDate: input.SortByDueDate,
	}

	if input.ProjectID != nil {
		access, err := s.access.ProjectCapabilities(ctx, *input.ProjectID, input.UserID)
		if err != nil {
			return nil, 0, err
		}
		if !access.Capabilities.CanViewTasks {
			return nil, 0, ErrProjectNotFound
		}
		filter.ProjectID = input.ProjectID
	} else {
		filter.PersonalOf = &input.UserID
	}

	if input.AssignedToMe {
		filter.AssignedUserID = &input.UserID
	}
	if input.DueToday {
		now := time.Now()
		startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		endOfDay := startOfDay.Add(24 * time.Hour)
		filter.DueDateFrom = &startOfDay
		filter.DueDateTo = &endOfDay
	}

	tasks, total, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

// GetTask returns a task with related data and the caller's permissions on it
func (s *TaskService) GetTask(ctx context.Context, taskID, actorID uint64) (*models.Task, permissions.TaskPermissions, error) {
	task, perms, err := s.loadTask(ctx, taskID, actorID, "Creator", "Project", "Assignments", "Assignments.User")
	if err != nil {
		return nil, perms, err
	}
	if !perms.CanView {
		return nil, perms, ErrTaskNotFound
	}
	return task, perms, nil
}

// Permissions resolves what actorID may do with the task
func (s *TaskService) Permissions(ctx context.Context, taskID, actorID uint64) (permissions.TaskPermissions, error) {
	_, perms, err := s.loadTask(ctx, taskID, actorID)
	return perms, err
}

// CreateTask creates a personal task, or a project task when the caller may create tasks there
func (s *TaskService) CreateTask(ctx context.Context, input CreateTaskInput) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > constants.MaxTaskTitleLength {
		return nil, ErrTitleTooLong
	}

	if input.Status == "" {
		input.Status = models.TaskStatusTodo
	}
	if !input.Status.IsValid() {
		return nil, ErrInvalidTaskStatus
	}
	if input.Priority == "" {
		input.Priority = models.TaskPriorityMedium
	}
	if !input.Priority.IsValid() {
		return nil, ErrInvalidTaskPriority
	}

	if input.ProjectID != nil {
		access, err := s.access.ProjectCapabilities(ctx, *input.ProjectID, input.CreatorID)
		if err != nil {
			return nil, err
		}
		if !access.Capabilities.HasAccess {
			return nil, ErrProjectNotFound
		}
		if err := s.access.authorize(scopeProject, "create_task", access.Capabilities.CanCreateTasks, "viewers cannot create tasks"); err != nil {
			return nil, err
		}
	}

	task := &models.Task{
		Title:       title,
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
		DueDate:     input.DueDate,
		ProjectID:   input.ProjectID,
		CreatorID:   input.CreatorID,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return s.findTask(ctx, task.ID, "Creator", "Project", "Assignments", "Assignments.User")
}

// UpdateTask updates an existing task
func (s *TaskService) UpdateTask(ctx context.Context, taskID, actorID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, perms, err := s.loadTask(ctx, taskID, actorID)
	if err != nil {
		return nil, err
	}

	if input.isEmpty() {
		return nil, ErrNoTaskChanges
	}
	if input.touchesContent() {
		if err := s.access.authorize(scopeTask, "edit", perms.CanEdit, reasonOr(perms.Reason, permissions.ReasonNotTaskCreator)); err != nil {
			return nil, err
		}
	}
	if input.Status != nil {
		if err := s.access.authorize(scopeTask, "change_status", perms.CanChangeStatus, reasonOr(perms.Reason, permissions.ReasonNotTaskCreator)); err != nil {
			return nil, err
		}
	}

	// only the columns present in input are written
	fields := make(map[string]interface{})
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		if utf8.RuneCountInString(title) > constants.MaxTaskTitleLength {
			return nil, ErrTitleTooLong
		}
		fields["title"] = title
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if input.Priority != nil {
		if !input.Priority.IsValid() {
			return nil, ErrInvalidTaskPriority
		}
		fields["priority"] = *input.Priority
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, ErrInvalidTaskStatus
		}
		fields["status"] = *input.Status
	}
	if input.ClearDueDate {
		fields["due_date"] = nil
	} else if input.DueDate != nil {
		fields["due_date"] = *input.DueDate
	}

	if err := s.taskRepo.UpdateFields(ctx, task.ID, fields); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return s.findTask(ctx, task.ID, "Creator", "Project", "Assignments", "Assignments.User")
}

// ChangeStatus moves a task to another status
func (s *TaskService) ChangeStatus(ctx context.Context, taskID, actorID uint64, status models.TaskStatus) (*models.Task, error) {
	return s.UpdateTask(ctx, taskID, actorID, UpdateTaskInput{Status: &status})
}

// DeleteTask deletes a task if the actor is the creator
func (s *TaskService) DeleteTask(ctx context.Context, taskID, actorID uint64) error {
	_, perms, err := s.loadTask(ctx, taskID, actorID)
	if err != nil {
		return err
	}
	if err := s.access.authorize(scopeTask, "delete", perms.CanDelete, reasonOr(perms.Reason, permissions.ReasonNotTaskCreator)); err != nil {
		return err
	}

	if err := s.taskRepo.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.log.WithFields(logrus.Fields{"task_id": taskID, "actor_id": actorID}).Info("Task deleted")
	return nil
}

// AssignUsers assigns multiple users to a task with validation
func (s *TaskService) AssignUsers(ctx context.Context, input AssignUsersInput) error {
	if len(input.UserIDs) == 0 {
		return ErrNoUserIDsProvided
	}

	task, perms, err := s.loadTask(ctx, input.TaskID, input.ActorID)
	if err != nil {
		return err
	}
	if err := s.access.authorize(scopeTask, "assign", perms.CanEdit, reasonOr(perms.Reason, permissions.ReasonNotTaskCreator)); err != nil {
		return err
	}

	userIDs := uniqueUint64(input.UserIDs)

	if task.IsPersonal() {
		if len(userIDs) != 1 || userIDs[0] != task.CreatorID {
			return ErrInvalidTaskAssignee
		}
	} else {
		count, err := s.taskRepo.CountProjectMembers(ctx, *task.ProjectID, userIDs)
		if err != nil {
			return fmt.Errorf("failed to verify users: %w", err)
		}
		if int(count) != len(userIDs) {
			return ErrInvalidTaskAssignee
		}
	}

	if err := s.taskRepo.AssignUsers(ctx, task.ID, input.ActorID, userIDs); err != nil {
		return fmt.Errorf("failed to assign users: %w", err)
	}

	return nil
}

// UnassignUsers removes user assignments from a task
func (s *TaskService) UnassignUsers(ctx context.Context, taskID, actorID uint64, userIDs []uint64) error {
	if len(userIDs) == 0 {
		return ErrNoUserIDsProvided
	}

	_, perms, err := s.loadTask(ctx, taskID, actorID)
	if err != nil {
		return err
	}
	if err := s.access.authorize(scopeTask, "unassign", perms.CanEdit, reasonOr(perms.Reason, permissions.ReasonNotTaskCreator)); err != nil {
		return err
	}

	if err := s.taskRepo.UnassignUsers(ctx, taskID, uniqueUint64(userIDs)); err != nil {
		return fmt.Errorf("failed to unassign users: %w", err)
	}

	return nil
}

// loadTask finds the task and resolves the actor's permissions on it.
// Tasks the actor can neither view nor owns are reported as not found.
func (s *TaskService) loadTask(ctx context.Context, taskID, actorID uint64, preload ...string) (*models.Task, permissions.TaskPermissions, error) {
	task, err := s.findTask(ctx, taskID, preload...)
	if err != nil {
		return nil, permissions.TaskPermissions{}, err
	}

	perms, err := s.access.TaskPermissions(ctx, task, actorID)
	if err != nil {
		return nil, perms, err
	}
	if !perms.CanView && !perms.IsOwner {
		return nil, perms, ErrTaskNotFound
	}

	return task, perms, nil
}

func (s *TaskService) findTask(ctx context.Context, taskID uint64, preload ...string) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID, preload...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

func reasonOr(reason, fallback string) string {
	if reason != "" {
		return reason
	}
	return fallback
}

// uniqueUint64 removes duplicate values from a slice of uint64
func uniqueUint64(values []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(values))
	result := make([]uint64, 0, len(values))

	for _, v := range values {
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}

	return result
}
