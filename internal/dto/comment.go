package dto

import (
	"time"

	"github.com/yukikurage/workspace-task-api/internal/models"
)

// CommentDTO represents a task comment
type CommentDTO struct {
	ID        uint64    `json:"id"`
	TaskID    uint64    `json:"task_id"`
	Author    UserDTO   `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// ToCommentDTO converts a Comment model to CommentDTO
func ToCommentDTO(comment models.Comment) CommentDTO {
	author := ToUserDTO(comment.Author)
	if author.ID == 0 {
		author.ID = comment.AuthorID
	}
	return CommentDTO{
		ID:        comment.ID,
		TaskID:    comment.TaskID,
		Author:    author,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
	}
}

// ToCommentDTOs converts a slice of comments
func ToCommentDTOs(comments []models.Comment) []CommentDTO {
	items := make([]CommentDTO, len(comments))
	for i, comment := range comments {
		items[i] = ToCommentDTO(comment)
	}
	return items
}
