package service

import (
	"context"
	"strings"

	"nodeback/internal/featureflags"
	"nodeback/internal/models"
	"nodeback/internal/repository"
)

// FeedService serves ranked and per-author post listings.
type FeedService struct {
	repos *repository.Repositories
	flags *featureflags.Manager
}

// Profile is a user's public page.
type Profile struct {
	User  *models.User   `json:"profile_user"`
	Posts []*models.Post `json:"profile_posts"`
}

func NewFeedService(repos *repository.Repositories, flags *featureflags.Manager) *FeedService {
	return &FeedService{repos: repos, flags: flags}
}

// Feed ranks visible posts by how many of their tags the user is interested
// in, then by recency. With strict_interests on, users without interests
// get a validation error instead of a zero-overlap ranking.
func (s *FeedService) Feed(ctx context.Context, userID uint, page repository.Page) ([]*models.Post, error) {
	if s.flags.Enabled(featureflags.StrictInterests, userID) {
		interest, err := s.repos.Interests.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		if interest == nil || len(interest.Tags) == 0 {
			return nil, models.NewFieldValidationError("interests", "Interests are not configured")
		}
	}
	return s.repos.Posts.Feed(ctx, userID, page)
}

// UserPosts lists the user's own non-deleted posts, blocked ones included.
func (s *FeedService) UserPosts(ctx context.Context, userID uint, page repository.Page) ([]*models.Post, error) {
	return s.repos.Posts.ListByAuthor(ctx, userID, userID, repository.ByCreated, page)
}

// Profile looks a user up by email and lists their posts by last edit.
func (s *FeedService) Profile(ctx context.Context, viewerID uint, email string, page repository.Page) (*Profile, error) {
	email = strings.TrimSpace(email)
	found, err := s.repos.Users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, models.NewNotFoundError("User", email)
	}
	user, err := s.repos.Users.GetWithCounts(ctx, found.ID)
	if err != nil {
		return nil, err
	}
	posts, err := s.repos.Posts.ListByAuthor(ctx, user.ID, viewerID, repository.ByUpdated, page)
	if err != nil {
		return nil, err
	}
	return &Profile{User: user, Posts: posts}, nil
}
