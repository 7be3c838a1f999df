package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yukikurage/workspace-task-api/internal/constants"
	"github.com/yukikurage/workspace-task-api/internal/models"
	"github.com/yukikurage/workspace-task-api/internal/permissions"
	"github.com/yukikurage/workspace-task-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrCommentNotFound = errors.New("comment not found")
	ErrCommentEmpty    = errors.New("comment cannot be empty")
	ErrCommentTooLong  = errors.New("comment is too long")
	ErrNotCommentOwner = errors.New("only the author can delete this comment")
)

// CommentService handles discussion threads on tasks.
type CommentService struct {
	commentRepo repository.CommentRepository
	tasks       *TaskService
}

// NewCommentService creates a new CommentService.
func NewCommentService(commentRepo repository.CommentRepository, tasks *TaskService) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		tasks:       tasks,
	}
}

// AddComment posts a comment on a task the author may comment on.
func (s *CommentService) AddComment(ctx context.Context, taskID, authorID uint64, body string) (*models.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrCommentEmpty
	}
	if utf8.RuneCountInString(body) > constants.MaxCommentLength {
		return nil, ErrCommentTooLong
	}

	_, perms, err := s.tasks.loadTask(ctx, taskID, authorID)
	if err != nil {
		return nil, err
	}
	if err := s.tasks.access.authorize(scopeTask, "comment", perms.CanComment, reasonOr(perms.Reason, permissions.ReasonNoProjectAccess)); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		TaskID:   taskID,
		AuthorID: authorID,
		Body:     body,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	created, err := s.commentRepo.FindByID(ctx, comment.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load comment: %w", err)
	}
	return created, nil
}

// ListComments lists the thread of a task the caller may view.
func (s *CommentService) ListComments(ctx context.Context, taskID, actorID uint64) ([]models.Comment, error) {
	_, perms, err := s.tasks.loadTask(ctx, taskID, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.tasks.access.authorize(scopeTask, "view_comments", perms.CanView, reasonOr(perms.Reason, permissions.ReasonNoProjectAccess)); err != nil {
		return nil, err
	}

	comments, err := s.commentRepo.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// DeleteComment deletes a comment written by the actor.
func (s *CommentService) DeleteComment(ctx context.Context, taskID, commentID, actorID uint64) error {
	if _, _, err := s.tasks.loadTask(ctx, taskID, actorID); err != nil {
		return err
	}

	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return fmt.Errorf("failed to find comment: %w", err)
	}
	if comment.TaskID != taskID {
		return ErrCommentNotFound
	}
	if comment.AuthorID != actorID {
		return ErrNotCommentOwner
	}

	if err := s.commentRepo.Delete(ctx, commentID); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}
