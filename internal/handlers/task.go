package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-task-api/internal/dto"
	apierrors "github.com/yukikurage/workspace-task-api/internal/errors"
	"github.com/yukikurage/workspace-task-api/internal/middleware"
	"github.com/yukikurage/workspace-task-api/internal/models"
	"github.com/yukikurage/workspace-task-api/internal/services"
	"github.com/yukikurage/workspace-task-api/internal/utils"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns the tasks of a project when project_id is given, otherwise the caller's personal tasks
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	input := services.ListTasksInput{
		UserID:        userID,
		AssignedToMe:  c.Query("assigned_to_me") == "true",
		DueToday:      c.Query("due_today") == "true",
		SortByDueDate: c.Query("sort") == "due_date",
		Page:          params.Page,
		PageSize:      params.Limit,
	}

	if projectIDStr := c.Query("project_id"); projectIDStr != "" {
		projectID, err := strconv.ParseUint(projectIDStr, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid project_id")
			return
		}
		input.ProjectID = &projectID
	}
	if status := c.Query("status"); status != "" {
		s := models.TaskStatus(status)
		if !s.IsValid() {
			apierrors.BadRequest(c, "Invalid status")
			return
		}
		input.Status = &s
	}
	if priority := c.Query("priority"); priority != "" {
		p := models.TaskPriority(priority)
		if !p.IsValid() {
			apierrors.BadRequest(c, "Invalid priority")
			return
		}
		input.Priority = &p
	}

	tasks, total, err := h.taskService.ListTasks(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, params.Page, params.Limit, total))
}

// GetTask returns a task with the caller's permissions on it
func (h *TaskHandler) GetTask(c *gin.Context) {
	taskID, userID, ok := taskScope(c)
	if !ok {
		return
	}

	task, perms, err := h.taskService.GetTask(c.Request.Context(), taskID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTOWithPermissions(*task, perms))
}

// GetPermissions returns what the caller may do with the task
func (h *TaskHandler) GetPermissions(c *gin.Context) {
	if perms, ok := middleware.GetTaskPermissions(c); ok {
		c.JSON(http.StatusOK, perms)
		return
	}

	taskID, userID, ok := taskScope(c)
	if !ok {
		return
	}

	perms, err := h.taskService.Permissions(c.Request.Context(), taskID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, perms)
}

// CreateTask creates a personal task, or a project task when project_id is set
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	type CreateTaskRequest struct {
		Title       string              `json:"title" binding:"required"`
		Description string              `json:"description"`
		Status      models.TaskStatus   `json:"status"`
		Priority    models.TaskPriority `json:"priority"`
		DueDate     *time.Time          `json:"due_date"`
		ProjectID   *uint64             `json:"project_id"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		ProjectID:   req.ProjectID,
		CreatorID:   userID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask updates the fields present in the body. due_date: null clears the due date.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	taskID, userID, ok := taskScope(c)
	if !ok {
		return
	}

	// Parse raw JSON to detect which fields were sent
	var rawReq map[string]any
	if err := c.ShouldBindJSON(&rawReq); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input, err := parseTaskUpdate(rawReq)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), taskID, userID, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// ChangeStatus moves a task to another status
func (h *TaskHandler) ChangeStatus(c *gin.Context) {
	taskID, userID, ok := taskScope(c)
	if !ok {
		return
	}

	type ChangeStatusRequest struct {
		Status models.TaskStatus `json:"status" binding:"required"`
	}

	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.ChangeStatus(c.Request.Context(), taskID, userID, req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	taskID, userID, ok := taskScope(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), taskID, userID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

type assignUsersRequest struct {
	UserIDs []uint64 `json:"user_ids" binding:"required"`
}

// AssignTask assigns users to a task
func (h *TaskHandler) AssignTask(c *gin.Context) {
	taskID, userID, ok := taskScope(c)
	if !ok {
		return
	}

	var req assignUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.taskService.AssignUsers(c.Request.Context(), services.AssignUsersInput{
		TaskID:  taskID,
		ActorID: userID,
		UserIDs: req.UserIDs,
	}); err != nil {
		respondServiceError(c, err)
		return
	}

	h.respondAssignments(c, taskID, userID, "Users assigned successfully")
}

// UnassignTask removes user assignments from a task
func (h *TaskHandler) UnassignTask(c *gin.Context) {
	taskID, userID, ok := taskScope(c)
	if !ok {
		return
	}

	var req assignUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.taskService.UnassignUsers(c.Request.Context(), taskID, userID, req.UserIDs); err != nil {
		respondServiceError(c, err)
		return
	}

	h.respondAssignments(c, taskID, userID, "Users unassigned successfully")
}

// respondAssignments reloads the assignments after a change. Creators who cannot view
// the task get the confirmation without the list.
func (h *TaskHandler) respondAssignments(c *gin.Context, taskID, userID uint64, message string) {
	task, _, err := h.taskService.GetTask(c.Request.Context(), taskID, userID)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"message": message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     message,
		"assignments": dto.ToTaskDTO(*task).Assignments,
	})
}

func taskScope(c *gin.Context) (uint64, uint64, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		return 0, 0, false
	}
	taskID, ok := uintParam(c, "id", "task ID")
	if !ok {
		return 0, 0, false
	}
	return taskID, userID, true
}

var errInvalidDueDate = errors.New("due_date must be an RFC 3339 timestamp or null")

func parseTaskUpdate(raw map[string]any) (services.UpdateTaskInput, error) {
	var input services.UpdateTaskInput

	if value, ok := raw["title"]; ok {
		title, ok := value.(string)
		if !ok {
			return input, errors.New("title must be a string")
		}
		input.Title = &title
	}
	if value, ok := raw["description"]; ok {
		description, ok := value.(string)
		if !ok {
			return input, errors.New("description must be a string")
		}
		input.Description = &description
	}
	if value, ok := raw["status"]; ok {
		status, ok := value.(string)
		if !ok {
			return input, errors.New("status must be a string")
		}
		s := models.TaskStatus(status)
		input.Status = &s
	}
	if value, ok := raw["priority"]; ok {
		priority, ok := value.(string)
		if !ok {
			return input, errors.New("priority must be a string")
		}
		p := models.TaskPriority(priority)
		input.Priority = &p
	}
	if value, ok := raw["due_date"]; ok {
		// due_date was provided (might be null)
		if value == nil {
			input.ClearDueDate = true
		} else {
			dueDateStr, ok := value.(string)
			if !ok {
				return input, errInvalidDueDate
			}
			parsed, err := time.Parse(time.RFC3339, dueDateStr)
			if err != nil {
				return input, errInvalidDueDate
			}
			input.DueDate = &parsed
		}
	}

	return input, nil
}
