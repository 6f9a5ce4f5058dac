package marketplace

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/sudo-init-do/taskmarket/internal/apperr"
	"github.com/sudo-init-do/taskmarket/internal/model"
	"github.com/sudo-init-do/taskmarket/internal/store"
)

type CreateReviewInput struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=1000"`
}

// ProviderReviews is a provider's review list with its summary
type ProviderReviews struct {
	Summary model.ProviderRatingSummary `json:"summary"`
	Reviews []model.Review              `json:"reviews"`
}

// CreateReview allows the client to rate the provider of a completed task
func (m *Manager) CreateReview(ctx context.Context, actor model.Actor, taskID string, in CreateReviewInput) (*model.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperr.ValidationFields(map[string]string{"rating": "rating must be between 1 and 5"})
	}

	var r *model.Review
	err := m.store.InTx(ctx, func(tx store.Tx) error {
		t, err := tx.Tasks().Find(ctx, taskID)
		if err != nil {
			return store.AppError(err, "task")
		}
		if t.ClientID != actor.UserID {
			return apperr.Forbidden("only the task owner can review it")
		}
		// Only allow reviews for completed tasks
		if t.Status != model.TaskCompleted {
			return apperr.InvalidState("can only review completed tasks")
		}

		r = &model.Review{
			ID:         uuid.New().String(),
			TaskID:     t.ID,
			AuthorID:   actor.UserID,
			ProviderID: t.AssignedProviderID,
			Rating:     in.Rating,
			Comment:    strings.TrimSpace(in.Comment),
			CreatedAt:  m.now(),
		}
		err = tx.Reviews().Create(ctx, r)
		if errors.Is(err, store.ErrConflict) {
			return apperr.Conflict("task has already been reviewed")
		}
		return store.AppError(err, "review")
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListProviderReviews returns every review of providerID, newest first
func (m *Manager) ListProviderReviews(ctx context.Context, providerID string) (*ProviderReviews, error) {
	var out []model.Review
	err := m.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.Reviews().ListByProvider(ctx, providerID)
		return err
	})
	if err != nil {
		return nil, apperr.Internal(err, "failed to fetch reviews")
	}
	return &ProviderReviews{Summary: summarize(providerID, out), Reviews: out}, nil
}

func summarize(providerID string, reviews []model.Review) model.ProviderRatingSummary {
	s := model.ProviderRatingSummary{ProviderID: providerID, TotalReviews: len(reviews)}
	if len(reviews) == 0 {
		return s
	}
	total := 0
	for _, r := range reviews {
		total += r.Rating
		switch r.Rating {
		case 5:
			s.RatingCounts.FiveStar++
		case 4:
			s.RatingCounts.FourStar++
		case 3:
			s.RatingCounts.ThreeStar++
		case 2:
			s.RatingCounts.TwoStar++
		case 1:
			s.RatingCounts.OneStar++
		}
	}
	s.AverageRating = math.Round(float64(total)/float64(len(reviews))*10) / 10
	return s
}
