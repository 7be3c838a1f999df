package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-task-api/internal/dto"
	apierrors "github.com/yukikurage/workspace-task-api/internal/errors"
	"github.com/yukikurage/workspace-task-api/internal/services"
)

// CommentHandler serves the comment thread of a task.
type CommentHandler struct {
	commentService *services.CommentService
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(commentService *services.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

// ListComments returns the thread of the task named by :id
func (h *CommentHandler) ListComments(c *gin.Context) {
	taskID, userID, ok := taskScope(c)
	if !ok {
		return
	}

	comments, err := h.commentService.ListComments(c.Request.Context(), taskID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"comments": dto.ToCommentDTOs(comments)})
}

// AddComment posts a comment on the task named by :id
func (h *CommentHandler) AddComment(c *gin.Context) {
	taskID, userID, ok := taskScope(c)
	if !ok {
		return
	}

	type AddCommentRequest struct {
		Body string `json:"body" binding:"required"`
	}

	var req AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	comment, err := h.commentService.AddComment(c.Request.Context(), taskID, userID, req.Body)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToCommentDTO(*comment))
}

// DeleteComment deletes one of the caller's comments
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	taskID, userID, ok := taskScope(c)
	if !ok {
		return
	}
	commentID, ok := uintParam(c, "comment_id", "comment ID")
	if !ok {
		return
	}

	if err := h.commentService.DeleteComment(c.Request.Context(), taskID, commentID, userID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Comment deleted successfully",
	})
}
