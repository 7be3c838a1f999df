package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-task-api/internal/dto"
	apierrors "github.com/yukikurage/workspace-task-api/internal/errors"
	"github.com/yukikurage/workspace-task-api/internal/models"
	"github.com/yukikurage/workspace-task-api/internal/services"
)

// ProjectHandler serves project and project membership endpoints.
type ProjectHandler struct {
	projectService *services.ProjectService
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// CreateProject creates a project in the workspace named by :id
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	workspaceID, userID, ok := workspaceScope(c)
	if !ok {
		return
	}

	type CreateProjectRequest struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.projectService.CreateProject(c.Request.Context(), services.CreateProjectInput{
		WorkspaceID: workspaceID,
		ActorID:     userID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToProjectDTO(*project))
}

// ListProjects lists the projects of the workspace named by :id visible to the caller
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	workspaceID, userID, ok := workspaceScope(c)
	if !ok {
		return
	}

	projects, err := h.projectService.ListProjects(c.Request.Context(), workspaceID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"projects": dto.ToProjectDTOs(projects)})
}

// GetProject returns a project with members and the caller's capabilities
func (h *ProjectHandler) GetProject(c *gin.Context) {
	projectID, userID, ok := projectScope(c)
	if !ok {
		return
	}

	details, err := h.projectService.GetProject(c.Request.Context(), projectID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDetailDTO(details))
}

// GetPermissions returns the caller's project capabilities
func (h *ProjectHandler) GetPermissions(c *gin.Context) {
	projectID, userID, ok := projectScope(c)
	if !ok {
		return
	}

	caps, err := h.projectService.Capabilities(c.Request.Context(), projectID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, caps)
}

// UpdateProject changes the name or description
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	projectID, userID, ok := projectScope(c)
	if !ok {
		return
	}

	type UpdateProjectRequest struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.projectService.UpdateProject(c.Request.Context(), projectID, userID, services.UpdateProjectInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

// DeleteProject deletes a project with its tasks
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	projectID, userID, ok := projectScope(c)
	if !ok {
		return
	}

	if err := h.projectService.DeleteProject(c.Request.Context(), projectID, userID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Project deleted successfully",
	})
}

// AddMember adds a workspace member to the project
func (h *ProjectHandler) AddMember(c *gin.Context) {
	projectID, userID, ok := projectScope(c)
	if !ok {
		return
	}

	type AddMemberRequest struct {
		UserID uint64             `json:"user_id" binding:"required"`
		Role   models.ProjectRole `json:"role" binding:"required"`
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	member, err := h.projectService.AddMember(c.Request.Context(), services.ProjectMemberInput{
		ProjectID: projectID,
		ActorID:   userID,
		UserID:    req.UserID,
		Role:      req.Role,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user_id": member.UserID,
		"role":    member.Role,
	})
}

// ChangeMemberRole sets a member's project role
func (h *ProjectHandler) ChangeMemberRole(c *gin.Context) {
	projectID, userID, ok := projectScope(c)
	if !ok {
		return
	}
	targetID, ok := uintParam(c, "user_id", "user ID")
	if !ok {
		return
	}

	type ChangeRoleRequest struct {
		Role models.ProjectRole `json:"role" binding:"required"`
	}

	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	member, err := h.projectService.ChangeMemberRole(c.Request.Context(), services.ProjectMemberInput{
		ProjectID: projectID,
		ActorID:   userID,
		UserID:    targetID,
		Role:      req.Role,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": member.UserID,
		"role":    member.Role,
	})
}

// RemoveMember removes a member from the project
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	projectID, userID, ok := projectScope(c)
	if !ok {
		return
	}
	targetID, ok := uintParam(c, "user_id", "user ID")
	if !ok {
		return
	}

	if err := h.projectService.RemoveMember(c.Request.Context(), projectID, userID, targetID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Member removed successfully",
	})
}

func projectScope(c *gin.Context) (uint64, uint64, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		return 0, 0, false
	}
	projectID, ok := uintParam(c, "id", "project ID")
	if !ok {
		return 0, 0, false
	}
	return projectID, userID, true
}
