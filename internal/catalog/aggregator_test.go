package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/taskmarket/internal/apperr"
	"github.com/sudo-init-do/taskmarket/internal/model"
	"github.com/sudo-init-do/taskmarket/internal/store"
	"github.com/sudo-init-do/taskmarket/internal/store/memory"
)

var now = time.Date(2025, 6, 30, 18, 0, 0, 0, time.UTC)

func seedService(t *testing.T, st store.Store, id string) {
	t.Helper()
	require.NoError(t, st.InTx(context.Background(), func(tx store.Tx) error {
		return tx.Services().Create(context.Background(), &model.Service{
			ID: id, ProviderID: "provider-1", Title: id,
			Packages:  []model.Package{{Name: "basic", Price: 1000}},
			CreatedAt: now.Add(-90 * 24 * time.Hour),
		})
	}))
}

func seedBooking(t *testing.T, st store.Store, serviceID string, created time.Time, status model.BookingStatus, score int) {
	t.Helper()
	require.NoError(t, st.InTx(context.Background(), func(tx store.Tx) error {
		return tx.Bookings().Create(context.Background(), &model.Booking{
			ID:          serviceID + created.Format(time.RFC3339Nano) + string(status),
			ServiceID:   serviceID,
			ClientID:    "client-1",
			ProviderID:  "provider-1",
			PackageName: "basic",
			Price:       1000,
			Status:      status,
			RatingScore: score,
			CreatedAt:   created,
		})
	}))
}

func storedService(t *testing.T, st store.Store, id string) model.Service {
	t.Helper()
	var out model.Service
	require.NoError(t, st.InTx(context.Background(), func(tx store.Tx) error {
		s, err := tx.Services().Find(context.Background(), id)
		if err != nil {
			return err
		}
		out = *s
		return nil
	}))
	return out
}

func newAggregator(st store.Store) *Aggregator {
	a := NewAggregator(st)
	a.now = func() time.Time { return now }
	return a
}

func TestRecompute_NoBookings(t *testing.T) {
	st := memory.New()
	seedService(t, st, "s1")

	stats, err := newAggregator(st).Recompute(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, model.Rating{}, stats.Rating)
	assert.Zero(t, stats.PopularityScore)
	assert.Zero(t, stats.RecentBookings)
}

func TestRecompute_RatingAndPopularity(t *testing.T) {
	st := memory.New()
	seedService(t, st, "s1")
	seedBooking(t, st, "s1", now.Add(-2*24*time.Hour), model.BookingCompleted, 5)
	seedBooking(t, st, "s1", now.Add(-3*24*time.Hour), model.BookingCompleted, 4)
	seedBooking(t, st, "s1", now.Add(-4*24*time.Hour), model.BookingCompleted, 4)
	// old, rated: counts toward the rating only
	seedBooking(t, st, "s1", now.Add(-45*24*time.Hour), model.BookingCompleted, 2)
	// recent but unrated or not completed: popularity only
	seedBooking(t, st, "s1", now.Add(-time.Hour), model.BookingPending, 0)
	seedBooking(t, st, "s1", now.Add(-5*time.Hour), model.BookingCancelled, 0)

	stats, err := newAggregator(st).Recompute(context.Background(), "s1")
	require.NoError(t, err)

	// rating: (5+4+4+2)/4 = 3.75 → 3.8
	assert.Equal(t, 3.8, stats.Rating.Average)
	assert.Equal(t, 4, stats.Rating.Count)
	assert.Equal(t, 5, stats.RecentBookings)
	// 0.7*5 + 0.3*(3.8*4) = 3.5 + 4.56
	assert.Equal(t, 8.06, stats.PopularityScore)

	svc := storedService(t, st, "s1")
	assert.Equal(t, stats.Rating, svc.Rating)
	assert.Equal(t, stats.PopularityScore, svc.PopularityScore)
}

func TestRecompute_Idempotent(t *testing.T) {
	st := memory.New()
	seedService(t, st, "s1")
	seedBooking(t, st, "s1", now.Add(-24*time.Hour), model.BookingCompleted, 3)
	seedBooking(t, st, "s1", now.Add(-48*time.Hour), model.BookingCompleted, 4)
	agg := newAggregator(st)

	first, err := agg.Recompute(context.Background(), "s1")
	require.NoError(t, err)
	second, err := agg.Recompute(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestUpdatePopularityScore_WindowIsInclusive(t *testing.T) {
	st := memory.New()
	seedService(t, st, "s1")
	seedBooking(t, st, "s1", now.Add(-30*24*time.Hour), model.BookingPending, 0)
	seedBooking(t, st, "s1", now.Add(-30*24*time.Hour-time.Second), model.BookingPending, 0)

	score, err := newAggregator(st).UpdatePopularityScore(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 0.7, score)
}

func TestCalculateRating_KeepsPopularity(t *testing.T) {
	st := memory.New()
	seedService(t, st, "s1")
	seedBooking(t, st, "s1", now.Add(-24*time.Hour), model.BookingCompleted, 5)
	agg := newAggregator(st)

	score, err := agg.UpdatePopularityScore(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 0.7, score, "stored rating is still empty")

	rating, err := agg.CalculateRating(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, model.Rating{Average: 5, Count: 1}, rating)
	assert.Equal(t, 0.7, storedService(t, st, "s1").PopularityScore)
}

func TestRecompute_UnknownService(t *testing.T) {
	_, err := newAggregator(memory.New()).Recompute(context.Background(), "missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestRecomputeAll(t *testing.T) {
	st := memory.New()
	seedService(t, st, "s1")
	seedService(t, st, "s2")
	seedBooking(t, st, "s2", now.Add(-time.Hour), model.BookingCompleted, 4)

	n, err := newAggregator(st).RecomputeAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 4.0, storedService(t, st, "s2").Rating.Average)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = newAggregator(st).RecomputeAll(ctx)
	assert.Error(t, err)
}

func TestPopularity(t *testing.T) {
	assert.Zero(t, popularity(0, model.Rating{}))
	assert.Equal(t, 2.1, popularity(3, model.Rating{}))
	assert.Equal(t, 1.35, popularity(0, model.Rating{Average: 4.5, Count: 1}))
	assert.Equal(t, 0.33, popularity(0, model.Rating{Average: 1.1, Count: 1}))
}
