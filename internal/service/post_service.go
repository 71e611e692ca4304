package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"nodeback/internal/models"
	"nodeback/internal/observability"
	"nodeback/internal/repository"
)

// PostService owns post lifecycle, likes, reports and moderation.
type PostService struct {
	repos  *repository.Repositories
	uow    repository.UnitOfWork
	images *ImageService
	fanout *Fanout
}

type CreatePostInput struct {
	UserID  uint
	Content string
	Tags    []string
	Image   *UploadImageInput
}

type UpdatePostInput struct {
	UserID  uint
	PostID  uint
	Content *string
	// Tags replaces the tag set when non-nil.
	Tags []string
}

// LikeResult reports the viewer's like state after a toggle.
type LikeResult struct {
	Liked bool
}

// Status is the message returned by the like route.
func (r LikeResult) Status() string {
	if r.Liked {
		return "Like added"
	}
	return "Like removed"
}

func NewPostService(
	repos *repository.Repositories,
	uow repository.UnitOfWork,
	images *ImageService,
	fanout *Fanout,
) *PostService {
	return &PostService{repos: repos, uow: uow, images: images, fanout: fanout}
}

func validateContent(content string) error {
	if utf8.RuneCountInString(content) > models.MaxPostContentLength {
		return models.NewFieldValidationError("content",
			fmt.Sprintf("Content too long (max %d characters)", models.MaxPostContentLength))
	}
	return nil
}

func normalizePostTags(raw []string) ([]string, error) {
	names := models.NormalizeTagNames(raw)
	if len(names) > models.MaxPostTags {
		return nil, models.NewFieldValidationError("tags",
			fmt.Sprintf("A post can have at most %d tags", models.MaxPostTags))
	}
	for _, n := range names {
		if utf8.RuneCountInString(n) > models.MaxTagNameLength {
			return nil, models.NewFieldValidationError("tags",
				fmt.Sprintf("Tag %q is too long (max %d characters)", n, models.MaxTagNameLength))
		}
	}
	return names, nil
}

// CreatePost stores the post, creating unseen tags, and notifies every
// follower of the author. Failures other than bad input surface as
// UNAVAILABLE.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "CreatePost",
		observability.AttrUserID.Int64(int64(in.UserID)))
	defer span.End()

	content := strings.TrimSpace(in.Content)
	if err := validateContent(content); err != nil {
		return nil, err
	}
	if content == "" && in.Image == nil {
		return nil, models.NewValidationError("A post needs content or an image")
	}
	tagNames, err := normalizePostTags(in.Tags)
	if err != nil {
		return nil, err
	}
	span.AddAttributes(observability.AttrTagCount.Int(len(tagNames)))

	var stored *StoredImage
	if in.Image != nil {
		stored, err = s.images.Save(ctx, *in.Image)
		if err != nil {
			span.SetError(err)
			return nil, unavailable(err)
		}
	}

	post := &models.Post{UserID: in.UserID, Content: content}
	if stored != nil {
		post.PostImg = stored.Path
	}

	var sent []*models.Notification
	err = s.uow.Do(ctx, func(tx *repository.Repositories) error {
		if _, err := tx.Users.GetByID(ctx, in.UserID); err != nil {
			return err
		}
		tags, err := tx.Tags.GetOrCreate(ctx, tagNames)
		if err != nil {
			return err
		}
		post.Tags = tags
		if err := tx.Posts.Create(ctx, post); err != nil {
			return err
		}

		followers, err := tx.Follows.FollowerIDs(ctx, in.UserID)
		if err != nil {
			return err
		}
		notes := make([]*models.Notification, 0, len(followers))
		for _, id := range followers {
			notes = append(notes, models.NewPostNotification(in.UserID, id, post.ID))
		}
		sent = s.fanout.Emit(ctx, tx, notes...)
		return nil
	})
	if err != nil {
		s.images.Remove(stored)
		span.SetError(err)
		return nil, unavailable(err)
	}
	span.AddAttributes(
		observability.AttrPostID.Int64(int64(post.ID)),
		observability.AttrNotifyTarget.Int(len(sent)),
	)
	s.fanout.Push(ctx, sent)

	created, err := s.repos.Posts.GetByID(ctx, post.ID, in.UserID)
	if err != nil {
		return nil, unavailable(err)
	}
	return created, nil
}

// UpdatePost edits content and/or tags. Only the author may edit; anyone
// else gets NOT_FOUND.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	var content string
	if in.Content != nil {
		content = strings.TrimSpace(*in.Content)
		if err := validateContent(content); err != nil {
			return nil, err
		}
	}
	var tagNames []string
	if in.Tags != nil {
		var err error
		if tagNames, err = normalizePostTags(in.Tags); err != nil {
			return nil, err
		}
	}

	err := s.uow.Do(ctx, func(tx *repository.Repositories) error {
		post, err := tx.Posts.GetForUpdate(ctx, in.PostID)
		if err != nil {
			return err
		}
		if post.UserID != in.UserID {
			return models.NewNotFoundError("Post", in.PostID)
		}
		if in.Content != nil {
			if content == "" && post.PostImg == "" {
				return models.NewValidationError("A post needs content or an image")
			}
			if err := tx.Posts.UpdateContent(ctx, post.ID, content); err != nil {
				return err
			}
		}
		if in.Tags != nil {
			tags, err := tx.Tags.GetOrCreate(ctx, tagNames)
			if err != nil {
				return err
			}
			return tx.Posts.ReplaceTags(ctx, post, tags)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repos.Posts.GetByID(ctx, in.PostID, in.UserID)
}

func (s *PostService) setDeleted(ctx context.Context, userID, postID uint, deleted bool) error {
	staff, err := isStaff(ctx, s.repos.Users, userID)
	if err != nil {
		return err
	}
	return s.uow.Do(ctx, func(tx *repository.Repositories) error {
		post, err := tx.Posts.GetForUpdate(ctx, postID)
		if err != nil {
			return err
		}
		if post.UserID != userID && !staff {
			return models.NewNotFoundError("Post", postID)
		}
		return tx.Posts.SetDeleted(ctx, postID, deleted)
	})
}

// DeletePost soft-deletes. Authors and staff only; others get NOT_FOUND.
func (s *PostService) DeletePost(ctx context.Context, userID, postID uint) error {
	return s.setDeleted(ctx, userID, postID, true)
}

// RestorePost undoes DeletePost under the same rules.
func (s *PostService) RestorePost(ctx context.Context, userID, postID uint) error {
	return s.setDeleted(ctx, userID, postID, false)
}

// ToggleLike adds or removes the user's like. Adding a like to someone
// else's post notifies the author.
func (s *PostService) ToggleLike(ctx context.Context, userID, postID uint) (LikeResult, error) {
	var (
		result LikeResult
		sent   []*models.Notification
	)
	err := s.uow.Do(ctx, func(tx *repository.Repositories) error {
		post, err := tx.Posts.GetForUpdate(ctx, postID)
		if err != nil {
			return err
		}
		liked, changed, err := tx.Posts.ToggleLike(ctx, postID, userID)
		if err != nil {
			return err
		}
		result.Liked = liked
		if liked && changed {
			sent = s.fanout.Emit(ctx, tx, models.NewLikeNotification(userID, post.UserID, postID))
		}
		return nil
	})
	if err != nil {
		return LikeResult{}, err
	}
	s.fanout.Push(ctx, sent)
	return result, nil
}

// ReportPost records a report. Each user may report a post once.
func (s *PostService) ReportPost(ctx context.Context, userID, postID uint) error {
	return s.uow.Do(ctx, func(tx *repository.Repositories) error {
		if _, err := tx.Posts.GetForUpdate(ctx, postID); err != nil {
			return err
		}
		added, err := tx.Posts.AddReport(ctx, postID, userID)
		if err != nil {
			return err
		}
		if !added {
			return models.NewConflictError("You have already reported this post.")
		}
		return nil
	})
}

// BlockPost hides a post for moderation and tells its author.
func (s *PostService) BlockPost(ctx context.Context, moderatorID, postID uint) error {
	if _, err := requireStaff(ctx, s.repos.Users, moderatorID); err != nil {
		return err
	}
	var sent []*models.Notification
	err := s.uow.Do(ctx, func(tx *repository.Repositories) error {
		post, err := tx.Posts.GetForUpdate(ctx, postID)
		if err != nil {
			return err
		}
		if post.IsBlocked {
			return nil
		}
		if err := tx.Posts.SetBlocked(ctx, postID, true); err != nil {
			return err
		}
		sent = s.fanout.Emit(ctx, tx, models.NewBlockedNotification(&moderatorID, post.UserID, postID))
		return nil
	})
	if err != nil {
		return err
	}
	s.fanout.Push(ctx, sent)
	return nil
}

// GetPost returns the detail view regardless of visibility.
func (s *PostService) GetPost(ctx context.Context, userID, postID uint) (*models.Post, error) {
	return s.repos.Posts.GetByID(ctx, postID, userID)
}

// SearchByTags lists visible posts carrying any of the tags.
func (s *PostService) SearchByTags(ctx context.Context, userID uint, tags []string, page repository.Page) ([]*models.Post, error) {
	names := models.NormalizeTagNames(tags)
	if len(names) == 0 {
		return nil, models.NewFieldValidationError("tags", "At least one tag is required")
	}
	return s.repos.Posts.SearchByTags(ctx, names, userID, page)
}

func (s *PostService) ListBlocked(ctx context.Context, userID uint, page repository.Page) ([]*models.Post, error) {
	if _, err := requireStaff(ctx, s.repos.Users, userID); err != nil {
		return nil, err
	}
	return s.repos.Posts.ListBlocked(ctx, userID, page)
}

func (s *PostService) ListReported(ctx context.Context, userID uint, page repository.Page) ([]*models.Post, error) {
	if _, err := requireStaff(ctx, s.repos.Users, userID); err != nil {
		return nil, err
	}
	return s.repos.Posts.ListReported(ctx, userID, page)
}
