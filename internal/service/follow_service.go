package service

import (
	"context"

	"nodeback/internal/models"
	"nodeback/internal/repository"
)

// FollowService maintains the directed follow graph and answers set queries on it.
type FollowService struct {
	repos  *repository.Repositories
	uow    repository.UnitOfWork
	fanout *Fanout
}

// FollowResult reports the edge state after a toggle.
type FollowResult struct {
	Following bool
}

// Status is the message returned by the follow route.
func (r FollowResult) Status() string {
	if r.Following {
		return "Followed"
	}
	return "Unfollowed"
}

func NewFollowService(repos *repository.Repositories, uow repository.UnitOfWork, fanout *Fanout) *FollowService {
	return &FollowService{repos: repos, uow: uow, fanout: fanout}
}

// ToggleFollow removes the edge if present, otherwise creates it and
// notifies the target.
func (s *FollowService) ToggleFollow(ctx context.Context, userID, targetID uint) (FollowResult, error) {
	if userID == targetID {
		return FollowResult{}, models.NewValidationError("You cannot follow yourself")
	}

	var (
		result FollowResult
		sent   []*models.Notification
	)
	err := s.uow.Do(ctx, func(tx *repository.Repositories) error {
		if _, err := tx.Users.GetByID(ctx, targetID); err != nil {
			return err
		}
		removed, err := tx.Follows.Delete(ctx, userID, targetID)
		if err != nil {
			return err
		}
		if removed {
			return nil
		}
		inserted, err := tx.Follows.Insert(ctx, userID, targetID)
		if err != nil {
			return err
		}
		result.Following = true
		if inserted {
			sent = s.fanout.Emit(ctx, tx, models.NewFollowNotification(userID, targetID))
		}
		return nil
	})
	if err != nil {
		return FollowResult{}, err
	}
	s.fanout.Push(ctx, sent)
	return result, nil
}

func (s *FollowService) Followers(ctx context.Context, userID uint, page repository.Page) ([]models.User, error) {
	return s.repos.Follows.Followers(ctx, userID, page)
}

func (s *FollowService) Following(ctx context.Context, userID uint, page repository.Page) ([]models.User, error) {
	return s.repos.Follows.Following(ctx, userID, page)
}

// Network suggests accounts the user does not follow yet.
func (s *FollowService) Network(ctx context.Context, userID uint, page repository.Page) ([]models.User, error) {
	return s.repos.Follows.Network(ctx, userID, page)
}

// Contacts is everyone on either side of an edge with the user.
func (s *FollowService) Contacts(ctx context.Context, userID uint, page repository.Page) ([]models.User, error) {
	return s.repos.Follows.Contacts(ctx, userID, page)
}
