package service

import (
	"context"
	"fmt"

	"nodeback/internal/models"
	"nodeback/internal/repository"
)

// InterestService manages the tag set that drives feed ranking.
type InterestService struct {
	repos *repository.Repositories
	uow   repository.UnitOfWork
}

func NewInterestService(repos *repository.Repositories, uow repository.UnitOfWork) *InterestService {
	return &InterestService{repos: repos, uow: uow}
}

// ListTags returns the whole tag vocabulary.
func (s *InterestService) ListTags(ctx context.Context) ([]models.Tag, error) {
	return s.repos.Tags.List(ctx)
}

// AddInterests adds existing tags to the user's interest set.
func (s *InterestService) AddInterests(ctx context.Context, userID uint, names []string) (*models.Interest, error) {
	return s.apply(ctx, userID, names, repository.InterestRepository.Add)
}

// ReplaceInterests swaps the user's interest set for the given tags.
func (s *InterestService) ReplaceInterests(ctx context.Context, userID uint, names []string) (*models.Interest, error) {
	return s.apply(ctx, userID, names, repository.InterestRepository.Replace)
}

type interestWrite func(repository.InterestRepository, context.Context, uint, []models.Tag) (*models.Interest, error)

func (s *InterestService) apply(ctx context.Context, userID uint, raw []string, write interestWrite) (*models.Interest, error) {
	names := models.NormalizeTagNames(raw)
	if len(names) == 0 {
		return nil, models.NewFieldValidationError("tags", "At least one tag is required")
	}

	var out *models.Interest
	err := s.uow.Do(ctx, func(tx *repository.Repositories) error {
		tags, missing, err := tx.Tags.FindByNames(ctx, names)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return models.NewFieldValidationError("tags",
				fmt.Sprintf("Tag with name '%s' does not exist", missing[0]))
		}
		if out, err = write(tx.Interests, ctx, userID, tags); err != nil {
			return err
		}
		return tx.Users.MarkInterestSet(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
