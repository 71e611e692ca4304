package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"nodeback/internal/models"
	"nodeback/internal/repository"
)

type CommentService struct {
	repos  *repository.Repositories
	uow    repository.UnitOfWork
	fanout *Fanout
}

type AddCommentInput struct {
	UserID uint
	PostID uint
	Body   string
}

func NewCommentService(repos *repository.Repositories, uow repository.UnitOfWork, fanout *Fanout) *CommentService {
	return &CommentService{repos: repos, uow: uow, fanout: fanout}
}

// AddComment comments on a visible post and notifies its author.
func (s *CommentService) AddComment(ctx context.Context, in AddCommentInput) (*models.Comment, error) {
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, models.NewFieldValidationError("body", "Comment body is required")
	}
	if utf8.RuneCountInString(body) > models.MaxCommentLength {
		return nil, models.NewFieldValidationError("body",
			fmt.Sprintf("Comment too long (max %d characters)", models.MaxCommentLength))
	}

	comment := &models.Comment{PostID: in.PostID, UserID: in.UserID, Body: body}
	var sent []*models.Notification
	err := s.uow.Do(ctx, func(tx *repository.Repositories) error {
		post, err := tx.Posts.GetForUpdate(ctx, in.PostID)
		if err != nil {
			return err
		}
		if !post.Visible() {
			return models.NewNotFoundError("Post", in.PostID)
		}
		if err := tx.Comments.Create(ctx, comment); err != nil {
			return err
		}
		sent = s.fanout.Emit(ctx, tx,
			models.NewCommentNotification(in.UserID, post.UserID, post.ID, comment.ID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.fanout.Push(ctx, sent)
	return s.repos.Comments.GetByID(ctx, comment.ID)
}

// DeleteComment removes the caller's own comment. Any other caller, the
// post's author included, gets NOT_FOUND.
func (s *CommentService) DeleteComment(ctx context.Context, userID, commentID uint) error {
	deleted, err := s.repos.Comments.DeleteOwned(ctx, commentID, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return models.NewNotFoundError("Comment", commentID)
	}
	return nil
}

// ListComments returns a post's comments, newest first.
func (s *CommentService) ListComments(ctx context.Context, userID, postID uint, page repository.Page) ([]*models.Comment, error) {
	if _, err := s.repos.Posts.GetByID(ctx, postID, userID); err != nil {
		return nil, err
	}
	return s.repos.Comments.ListByPost(ctx, postID, page)
}
