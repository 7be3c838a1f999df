package handlers

import (
	"fmt"
	"net/http"

	"github.com/yukikurage/workspace-task-api/internal/dto"
	apierrors "github.com/yukikurage/workspace-task-api/internal/errors"
	"github.com/yukikurage/workspace-task-api/internal/models"
	"github.com/yukikurage/workspace-task-api/internal/permissions"
)

// exampleTask has carol create T1 in P as a COLLABORATOR, then bob removes her from P
func (suite *HandlerTestSuite) exampleTask() (projectID, taskID uint64) {
	workspaceID := suite.createWorkspace()
	projectID = suite.createProject(workspaceID)

	w := suite.request(http.MethodPost, fmt.Sprintf("/api/projects/%d/members", projectID), suite.bob, map[string]any{"user_id": suite.carol.ID, "role": "COLLABORATOR"})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	taskID = suite.createTask(suite.carol, &projectID, "T1")

	w = suite.request(http.MethodDelete, fmt.Sprintf("/api/projects/%d/members/%d", projectID, suite.carol.ID), suite.bob, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	return projectID, taskID
}

func (suite *HandlerTestSuite) TestWorkedExample_Manager() {
	_, taskID := suite.exampleTask()
	taskPath := fmt.Sprintf("/api/tasks/%d", taskID)

	w := suite.request(http.MethodGet, taskPath, suite.bob, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var task dto.TaskDTO
	suite.decode(w, &task)
	suite.Equal("T1", task.Title)
	suite.Require().NotNil(task.Permissions)
	suite.False(task.Permissions.CanEdit)
	suite.False(task.Permissions.CanDelete)
	suite.True(task.Permissions.CanChangeStatus)
	suite.True(task.Permissions.CanView)

	w = suite.request(http.MethodPatch, taskPath, suite.bob, map[string]string{"title": "Hijacked"})
	apiErr := suite.requireError(w, http.StatusForbidden, apierrors.ErrCodeInsufficientPermissions)
	suite.Equal(permissions.ReasonNotTaskCreator, apiErr.Message)

	w = suite.request(http.MethodDelete, taskPath, suite.bob, nil)
	suite.requireError(w, http.StatusForbidden, apierrors.ErrCodeInsufficientPermissions)

	w = suite.request(http.MethodPatch, taskPath+"/status", suite.bob, map[string]string{"status": "IN_PROGRESS"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &task)
	suite.Equal(models.TaskStatusInProgress, task.Status)

	// the workspace owner can also move it along
	w = suite.request(http.MethodPatch, taskPath, suite.alice, map[string]string{"status": "DONE"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
}

func (suite *HandlerTestSuite) TestWorkedExample_CreatorWithoutProjectRole() {
	_, taskID := suite.exampleTask()
	taskPath := fmt.Sprintf("/api/tasks/%d", taskID)

	// carol can no longer read the task
	w := suite.request(http.MethodGet, taskPath, suite.carol, nil)
	suite.requireError(w, http.StatusNotFound, apierrors.ErrCodeNotFound)

	w = suite.request(http.MethodGet, taskPath+"/permissions", suite.carol, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var perms permissions.TaskPermissions
	suite.decode(w, &perms)
	suite.True(perms.IsOwner)
	suite.True(perms.CanEdit)
	suite.True(perms.CanDelete)
	suite.True(perms.CanChangeStatus)
	suite.False(perms.CanView)
	suite.False(perms.CanComment)

	w = suite.request(http.MethodPost, taskPath+"/comments", suite.carol, map[string]string{"body": "still mine"})
	suite.requireError(w, http.StatusForbidden, apierrors.ErrCodeInsufficientPermissions)

	w = suite.request(http.MethodPatch, taskPath, suite.carol, map[string]string{"title": "T1 (renamed)"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.request(http.MethodDelete, taskPath, suite.carol, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.request(http.MethodGet, taskPath, suite.bob, nil)
	suite.requireError(w, http.StatusNotFound, apierrors.ErrCodeNotFound)
}

func (suite *HandlerTestSuite) TestPersonalTasks() {
	taskID := suite.createTask(suite.alice, nil, "Groceries")
	taskPath := fmt.Sprintf("/api/tasks/%d", taskID)

	w := suite.request(http.MethodGet, taskPath, suite.alice, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var task dto.TaskDTO
	suite.decode(w, &task)
	suite.Nil(task.ProjectID)
	suite.True(task.Permissions.IsPersonal)
	suite.True(task.Permissions.CanEdit)

	for _, path := range []string{taskPath, taskPath + "/permissions", taskPath + "/comments"} {
		w = suite.request(http.MethodGet, path, suite.bob, nil)
		suite.requireError(w, http.StatusNotFound, apierrors.ErrCodeNotFound)
	}

	w = suite.request(http.MethodGet, "/api/tasks", suite.alice, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var list dto.TaskListResponse
	suite.decode(w, &list)
	suite.Equal(int64(1), list.TotalCount)
	suite.Require().Len(list.Tasks, 1)
	suite.Equal(taskID, list.Tasks[0].ID)

	w = suite.request(http.MethodGet, "/api/tasks", suite.bob, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &list)
	suite.Zero(list.TotalCount)

	// personal tasks only take their creator as assignee
	w = suite.request(http.MethodPost, taskPath+"/assign", suite.alice, map[string]any{"user_ids": []uint64{suite.bob.ID}})
	suite.requireError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput)

	w = suite.request(http.MethodPost, taskPath+"/assign", suite.alice, map[string]any{"user_ids": []uint64{suite.alice.ID}})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
}

func (suite *HandlerTestSuite) TestListProjectTasks() {
	projectID, taskID := suite.exampleTask()

	w := suite.request(http.MethodGet, fmt.Sprintf("/api/tasks?project_id=%d", projectID), suite.bob, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var list dto.TaskListResponse
	suite.decode(w, &list)
	suite.Require().Len(list.Tasks, 1)
	suite.Equal(taskID, list.Tasks[0].ID)
	suite.Equal(1, list.TotalPages)

	w = suite.request(http.MethodGet, fmt.Sprintf("/api/tasks?project_id=%d", projectID), suite.carol, nil)
	suite.requireError(w, http.StatusNotFound, apierrors.ErrCodeNotFound)

	w = suite.request(http.MethodGet, fmt.Sprintf("/api/tasks?project_id=%d&status=BOGUS", projectID), suite.bob, nil)
	suite.requireError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput)

	w = suite.request(http.MethodGet, fmt.Sprintf("/api/tasks?project_id=%d&status=DONE", projectID), suite.bob, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &list)
	suite.Empty(list.Tasks)
}

func (suite *HandlerTestSuite) TestCreateProjectTask_Rules() {
	workspaceID := suite.createWorkspace()
	projectID := suite.createProject(workspaceID)

	w := suite.request(http.MethodPost, fmt.Sprintf("/api/projects/%d/members", projectID), suite.bob, map[string]any{"user_id": suite.carol.ID, "role": "VIEWER"})
	suite.Require().Equal(http.StatusCreated, w.Code)

	w = suite.request(http.MethodPost, "/api/tasks", suite.carol, map[string]any{"title": "Nope", "project_id": projectID})
	suite.requireError(w, http.StatusForbidden, apierrors.ErrCodeInsufficientPermissions)

	outsider := suite.signupAndLogin("dave")
	w = suite.request(http.MethodPost, "/api/tasks", outsider, map[string]any{"title": "Nope", "project_id": projectID})
	suite.requireError(w, http.StatusNotFound, apierrors.ErrCodeNotFound)

	w = suite.request(http.MethodPost, "/api/tasks", suite.bob, map[string]any{"title": "Ship", "project_id": projectID, "priority": "URGENT"})
	suite.Require().Equal(http.StatusCreated, w.Code)
	var task dto.TaskDTO
	suite.decode(w, &task)
	suite.Equal(models.TaskPriorityUrgent, task.Priority)
	suite.Equal(models.TaskStatusTodo, task.Status)

	w = suite.request(http.MethodPost, "/api/tasks", suite.bob, map[string]any{"title": "Ship", "priority": "SOMEDAY"})
	suite.requireError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput)
}

func (suite *HandlerTestSuite) TestUpdateTask_DueDate() {
	taskID := suite.createTask(suite.alice, nil, "Dentist")
	taskPath := fmt.Sprintf("/api/tasks/%d", taskID)

	w := suite.request(http.MethodPatch, taskPath, suite.alice, map[string]any{"due_date": "2030-01-02T15:04:05Z"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var task dto.TaskDTO
	suite.decode(w, &task)
	suite.Require().NotNil(task.DueDate)
	suite.Equal(2030, task.DueDate.Year())

	w = suite.request(http.MethodPatch, taskPath, suite.alice, map[string]any{"due_date": nil})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	task = dto.TaskDTO{}
	suite.decode(w, &task)
	suite.Nil(task.DueDate)

	w = suite.request(http.MethodPatch, taskPath, suite.alice, map[string]any{"due_date": "tomorrow"})
	suite.requireError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput)

	w = suite.request(http.MethodPatch, taskPath, suite.alice, map[string]any{"title": 42})
	suite.requireError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput)

	w = suite.request(http.MethodPatch, taskPath, suite.alice, map[string]any{})
	suite.requireError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput)
}

func (suite *HandlerTestSuite) TestAssignProjectTask() {
	workspaceID := suite.createWorkspace()
	projectID := suite.createProject(workspaceID)
	w := suite.request(http.MethodPost, fmt.Sprintf("/api/projects/%d/members", projectID), suite.bob, map[string]any{"user_id": suite.carol.ID, "role": "COLLABORATOR"})
	suite.Require().Equal(http.StatusCreated, w.Code)
	taskID := suite.createTask(suite.carol, &projectID, "Review")
	assignPath := fmt.Sprintf("/api/tasks/%d/assign", taskID)

	// only the creator edits assignments
	w = suite.request(http.MethodPost, assignPath, suite.bob, map[string]any{"user_ids": []uint64{suite.bob.ID}})
	suite.requireError(w, http.StatusForbidden, apierrors.ErrCodeInsufficientPermissions)

	// alice is not a project member
	w = suite.request(http.MethodPost, assignPath, suite.carol, map[string]any{"user_ids": []uint64{suite.alice.ID}})
	suite.requireError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput)

	w = suite.request(http.MethodPost, assignPath, suite.carol, map[string]any{"user_ids": []uint64{}})
	suite.requireError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput)

	w = suite.request(http.MethodPost, assignPath, suite.carol, map[string]any{"user_ids": []uint64{suite.bob.ID, suite.carol.ID}})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var assigned struct {
		Assignments []dto.TaskAssignmentDTO `json:"assignments"`
	}
	suite.decode(w, &assigned)
	suite.Len(assigned.Assignments, 2)

	w = suite.request(http.MethodGet, fmt.Sprintf("/api/tasks?project_id=%d&assigned_to_me=true", projectID), suite.bob, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var list dto.TaskListResponse
	suite.decode(w, &list)
	suite.Require().Len(list.Tasks, 1)
	suite.Len(list.Tasks[0].Assignees, 2)

	w = suite.request(http.MethodPost, fmt.Sprintf("/api/tasks/%d/unassign", taskID), suite.carol, map[string]any{"user_ids": []uint64{suite.bob.ID}})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &assigned)
	suite.Require().Len(assigned.Assignments, 1)
	suite.Equal(suite.carol.ID, assigned.Assignments[0].User.ID)
}

func (suite *HandlerTestSuite) TestComments() {
	workspaceID := suite.createWorkspace()
	projectID := suite.createProject(workspaceID)
	w := suite.request(http.MethodPost, fmt.Sprintf("/api/projects/%d/members", projectID), suite.bob, map[string]any{"user_id": suite.carol.ID, "role": "VIEWER"})
	suite.Require().Equal(http.StatusCreated, w.Code)
	taskID := suite.createTask(suite.bob, &projectID, "Discuss")
	commentsPath := fmt.Sprintf("/api/tasks/%d/comments", taskID)

	// viewers may comment
	w = suite.request(http.MethodPost, commentsPath, suite.carol, map[string]string{"body": "looks good"})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var comment dto.CommentDTO
	suite.decode(w, &comment)
	suite.Equal(suite.carol.ID, comment.Author.ID)
	suite.Equal("carol", comment.Author.Username)

	w = suite.request(http.MethodPost, commentsPath, suite.carol, map[string]string{"body": "   "})
	suite.requireError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput)

	w = suite.request(http.MethodGet, commentsPath, suite.bob, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var list struct {
		Comments []dto.CommentDTO `json:"comments"`
	}
	suite.decode(w, &list)
	suite.Require().Len(list.Comments, 1)

	w = suite.request(http.MethodDelete, fmt.Sprintf("%s/%d", commentsPath, comment.ID), suite.bob, nil)
	suite.requireError(w, http.StatusForbidden, apierrors.ErrCodeInsufficientPermissions)

	w = suite.request(http.MethodDelete, fmt.Sprintf("%s/%d", commentsPath, comment.ID), suite.carol, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.request(http.MethodDelete, fmt.Sprintf("%s/%d", commentsPath, comment.ID), suite.carol, nil)
	suite.requireError(w, http.StatusNotFound, apierrors.ErrCodeNotFound)
}
