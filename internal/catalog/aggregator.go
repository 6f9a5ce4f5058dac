package catalog

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/sudo-init-do/taskmarket/internal/apperr"
	"github.com/sudo-init-do/taskmarket/internal/model"
	"github.com/sudo-init-do/taskmarket/internal/store"
)

// Popularity weights and the trailing window for recent bookings
const (
	recentWeight = 0.7
	ratingWeight = 0.3
	recentWindow = 30 * 24 * time.Hour
)

// Stats is the derived state written back to a service
type Stats struct {
	ServiceID       string       `json:"service_id"`
	Rating          model.Rating `json:"rating"`
	PopularityScore float64      `json:"popularity_score"`
	RecentBookings  int          `json:"recent_bookings"`
}

// Aggregator recomputes service ratings and popularity from booking
// history. Each computation reads only stored bookings, so repeated or
// overlapping runs converge on the same values.
type Aggregator struct {
	store store.Store
	now   func() time.Time
}

func NewAggregator(s store.Store) *Aggregator {
	return &Aggregator{store: s, now: time.Now}
}

// CalculateRating stores the mean score of completed, rated bookings
// rounded to one decimal; a service with none gets 0/0.
func (a *Aggregator) CalculateRating(ctx context.Context, serviceID string) (model.Rating, error) {
	var rating model.Rating
	err := a.store.InTx(ctx, func(tx store.Tx) error {
		svc, err := tx.Services().Find(ctx, serviceID)
		if err != nil {
			return err
		}
		rating, err = ratingOf(ctx, tx, serviceID)
		if err != nil {
			return err
		}
		return tx.Services().UpdateStats(ctx, serviceID, rating, svc.PopularityScore)
	})
	if err != nil {
		return model.Rating{}, store.AppError(err, "service")
	}
	return rating, nil
}

// UpdatePopularityScore stores 0.7×(bookings created in the last 30 days)
// + 0.3×(average×count) using the service's stored rating.
func (a *Aggregator) UpdatePopularityScore(ctx context.Context, serviceID string) (float64, error) {
	var score float64
	err := a.store.InTx(ctx, func(tx store.Tx) error {
		svc, err := tx.Services().Find(ctx, serviceID)
		if err != nil {
			return err
		}
		recent, err := tx.Bookings().CountCreatedSince(ctx, serviceID, a.now().Add(-recentWindow))
		if err != nil {
			return err
		}
		score = popularity(recent, svc.Rating)
		return tx.Services().UpdateStats(ctx, serviceID, svc.Rating, score)
	})
	if err != nil {
		return 0, store.AppError(err, "service")
	}
	return score, nil
}

// Recompute refreshes both rating and popularity in one transaction
func (a *Aggregator) Recompute(ctx context.Context, serviceID string) (*Stats, error) {
	st := &Stats{ServiceID: serviceID}
	err := a.store.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Services().Find(ctx, serviceID); err != nil {
			return err
		}
		var err error
		if st.Rating, err = ratingOf(ctx, tx, serviceID); err != nil {
			return err
		}
		if st.RecentBookings, err = tx.Bookings().CountCreatedSince(ctx, serviceID, a.now().Add(-recentWindow)); err != nil {
			return err
		}
		st.PopularityScore = popularity(st.RecentBookings, st.Rating)
		return tx.Services().UpdateStats(ctx, serviceID, st.Rating, st.PopularityScore)
	})
	if err != nil {
		return nil, store.AppError(err, "service")
	}
	return st, nil
}

// RecomputeAll refreshes every service and returns how many were updated.
// A failing service is logged and skipped.
func (a *Aggregator) RecomputeAll(ctx context.Context) (int, error) {
	var ids []string
	err := a.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		ids, err = tx.Services().ListIDs(ctx)
		return err
	})
	if err != nil {
		return 0, apperr.Internal(err, "failed to list services")
	}

	updated := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		if _, err := a.Recompute(ctx, id); err != nil {
			zap.L().Warn("service recompute failed", zap.String("service_id", id), zap.Error(err))
			continue
		}
		updated++
	}
	return updated, nil
}

func ratingOf(ctx context.Context, tx store.Tx, serviceID string) (model.Rating, error) {
	scores, err := tx.Bookings().RatedScores(ctx, serviceID)
	if err != nil {
		return model.Rating{}, err
	}
	return averageOf(scores), nil
}

func averageOf(scores []int) model.Rating {
	if len(scores) == 0 {
		return model.Rating{}
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return model.Rating{
		Average: math.Round(float64(sum)/float64(len(scores))*10) / 10,
		Count:   len(scores),
	}
}

// popularity is rounded to two decimals so repeated runs store identical values
func popularity(recent int, r model.Rating) float64 {
	score := recentWeight*float64(recent) + ratingWeight*(r.Average*float64(r.Count))
	if score <= 0 {
		return 0
	}
	return math.Round(score*100) / 100
}
