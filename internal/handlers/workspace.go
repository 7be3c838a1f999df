package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-task-api/internal/dto"
	apierrors "github.com/yukikurage/workspace-task-api/internal/errors"
	"github.com/yukikurage/workspace-task-api/internal/middleware"
	"github.com/yukikurage/workspace-task-api/internal/models"
	"github.com/yukikurage/workspace-task-api/internal/services"
)

// WorkspaceHandler serves workspace, membership and invitation endpoints.
type WorkspaceHandler struct {
	workspaceService *services.WorkspaceService
}

// NewWorkspaceHandler creates a new WorkspaceHandler.
func NewWorkspaceHandler(workspaceService *services.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{workspaceService: workspaceService}
}

// CreateWorkspace creates a workspace owned by the caller
func (h *WorkspaceHandler) CreateWorkspace(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	type CreateWorkspaceRequest struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}

	var req CreateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	workspace, err := h.workspaceService.CreateWorkspace(c.Request.Context(), services.CreateWorkspaceInput{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     userID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToWorkspaceDTO(*workspace))
}

// ListWorkspaces returns all workspaces the user is a member of
func (h *WorkspaceHandler) ListWorkspaces(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	memberships, err := h.workspaceService.ListWorkspacesForUser(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	workspaces := make([]dto.WorkspaceWithRoleDTO, len(memberships))
	for i, m := range memberships {
		workspaces[i] = dto.ToWorkspaceWithRoleDTO(m)
	}

	c.JSON(http.StatusOK, gin.H{"workspaces": workspaces})
}

// GetWorkspace returns workspace details with members and the caller's capabilities
func (h *WorkspaceHandler) GetWorkspace(c *gin.Context) {
	workspaceID, userID, ok := workspaceScope(c)
	if !ok {
		return
	}

	details, err := h.workspaceService.GetWorkspace(c.Request.Context(), workspaceID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkspaceDetailDTO(details))
}

// GetPermissions returns the caller's workspace capabilities
func (h *WorkspaceHandler) GetPermissions(c *gin.Context) {
	if caps, ok := middleware.GetWorkspaceCapabilities(c); ok {
		c.JSON(http.StatusOK, caps)
		return
	}

	workspaceID, userID, ok := workspaceScope(c)
	if !ok {
		return
	}

	caps, err := h.workspaceService.Capabilities(c.Request.Context(), workspaceID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, caps)
}

// UpdateWorkspace changes the name or description
func (h *WorkspaceHandler) UpdateWorkspace(c *gin.Context) {
	workspaceID, userID, ok := workspaceScope(c)
	if !ok {
		return
	}

	type UpdateWorkspaceRequest struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}

	var req UpdateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	workspace, err := h.workspaceService.UpdateWorkspace(c.Request.Context(), workspaceID, userID, services.UpdateWorkspaceInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkspaceDTO(*workspace))
}

// DeleteWorkspace deletes a workspace with all of its projects and tasks
func (h *WorkspaceHandler) DeleteWorkspace(c *gin.Context) {
	workspaceID, userID, ok := workspaceScope(c)
	if !ok {
		return
	}

	if err := h.workspaceService.DeleteWorkspace(c.Request.Context(), workspaceID, userID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Workspace deleted successfully",
	})
}

// CreateInvitation issues a single-use invite code for a role
func (h *WorkspaceHandler) CreateInvitation(c *gin.Context) {
	workspaceID, userID, ok := workspaceScope(c)
	if !ok {
		return
	}

	type CreateInvitationRequest struct {
		Role           models.WorkspaceRole `json:"role" binding:"required"`
		ExpiresInHours int                  `json:"expires_in_hours" binding:"omitempty,min=1"`
	}

	var req CreateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	invitation, err := h.workspaceService.CreateInvitation(c.Request.Context(), services.CreateInvitationInput{
		WorkspaceID: workspaceID,
		ActorID:     userID,
		Role:        req.Role,
		TTL:         time.Duration(req.ExpiresInHours) * time.Hour,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToInvitationDTO(*invitation))
}

// ListInvitations returns the pending invitations of a workspace
func (h *WorkspaceHandler) ListInvitations(c *gin.Context) {
	workspaceID, userID, ok := workspaceScope(c)
	if !ok {
		return
	}

	invitations, err := h.workspaceService.ListInvitations(c.Request.Context(), workspaceID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	items := make([]dto.InvitationDTO, len(invitations))
	for i, inv := range invitations {
		items[i] = dto.ToInvitationDTO(inv)
	}

	c.JSON(http.StatusOK, gin.H{"invitations": items})
}

// JoinWorkspace accepts an invite code for the caller
func (h *WorkspaceHandler) JoinWorkspace(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	type JoinRequest struct {
		Code string `json:"code" binding:"required"`
	}

	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	member, err := h.workspaceService.AcceptInvitation(c.Request.Context(), req.Code, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Successfully joined workspace",
		"workspace_id": member.WorkspaceID,
		"role":         member.Role,
	})
}

// ChangeMemberRole sets a member's workspace role
func (h *WorkspaceHandler) ChangeMemberRole(c *gin.Context) {
	workspaceID, userID, ok := workspaceScope(c)
	if !ok {
		return
	}
	targetID, ok := uintParam(c, "user_id", "user ID")
	if !ok {
		return
	}

	type ChangeRoleRequest struct {
		Role models.WorkspaceRole `json:"role" binding:"required"`
	}

	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	member, err := h.workspaceService.ChangeMemberRole(c.Request.Context(), services.ChangeWorkspaceRoleInput{
		WorkspaceID: workspaceID,
		ActorID:     userID,
		UserID:      targetID,
		Role:        req.Role,
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

// RemoveMember removes a member from the workspace and its projects
func (h *WorkspaceHandler) RemoveMember(c *gin.Context) {
	workspaceID, userID, ok := workspaceScope(c)
	if !ok {
		return
	}
	targetID, ok := uintParam(c, "user_id", "user ID")
	if !ok {
		return
	}

	if err := h.workspaceService.RemoveMember(c.Request.Context(), workspaceID, userID, targetID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Member removed successfully",
	})
}

// workspaceScope reads the workspace id from RequireWorkspaceAccess or the path, and the caller.
func workspaceScope(c *gin.Context) (uint64, uint64, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		return 0, 0, false
	}
	if workspaceID, ok := middleware.GetWorkspaceID(c); ok {
		return workspaceID, userID, true
	}
	workspaceID, ok := uintParam(c, "id", "workspace ID")
	if !ok {
		return 0, 0, false
	}
	return workspaceID, userID, true
}
