package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/taskmarket/internal/apperr"
	"github.com/sudo-init-do/taskmarket/internal/model"
	"github.com/sudo-init-do/taskmarket/internal/store/memory"
)

var (
	providerActor = model.Actor{UserID: "provider-1", Role: model.RoleProvider}
	clientActor   = model.Actor{UserID: "client-1", Role: model.RoleClient}
	strangerActor = model.Actor{UserID: "client-2", Role: model.RoleClient}
)

type recordingRecomputer struct {
	ids []string
	err error
}

func (r *recordingRecomputer) EnqueueRecompute(_ context.Context, id string) error {
	r.ids = append(r.ids, id)
	return r.err
}

func newCatalog(t *testing.T) (*Catalog, *recordingRecomputer, *model.Service) {
	t.Helper()
	rec := &recordingRecomputer{}
	c := New(memory.New(), rec)
	c.now = func() time.Time { return now }

	svc, err := c.CreateService(context.Background(), providerActor, CreateServiceInput{
		Title:    " Logo design ",
		Category: "Design",
		Packages: []PackageInput{
			{Name: "basic", Price: 10000, DeliveryDays: 3},
			{Name: "premium", Price: 30000, DeliveryDays: 7},
		},
	})
	require.NoError(t, err)
	return c, rec, svc
}

func TestCreateService(t *testing.T) {
	_, _, svc := newCatalog(t)
	assert.Equal(t, "Logo design", svc.Title)
	assert.Equal(t, "design", svc.Category)
	assert.Equal(t, providerActor.UserID, svc.ProviderID)
	assert.Len(t, svc.Packages, 2)
	assert.Equal(t, model.Rating{}, svc.Rating)
}

func TestCreateService_DuplicatePackageNames(t *testing.T) {
	c, _, _ := newCatalog(t)
	_, err := c.CreateService(context.Background(), providerActor, CreateServiceInput{
		Title:    "dup",
		Packages: []PackageInput{{Name: "basic", Price: 1}, {Name: "Basic", Price: 2}},
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestListServices_Sort(t *testing.T) {
	c, _, _ := newCatalog(t)
	ctx := context.Background()

	out, err := c.ListServices(ctx, "")
	require.NoError(t, err)
	assert.Len(t, out, 1)

	_, err = c.ListServices(ctx, "cheapest")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCreateBooking(t *testing.T) {
	c, rec, svc := newCatalog(t)
	ctx := context.Background()

	b, err := c.CreateBooking(ctx, clientActor, svc.ID, CreateBookingInput{PackageName: "premium"})
	require.NoError(t, err)
	assert.Equal(t, model.BookingPending, b.Status)
	assert.Equal(t, int64(30000), b.Price)
	assert.Equal(t, svc.ProviderID, b.ProviderID)
	assert.Equal(t, []string{svc.ID}, rec.ids)

	_, err = c.CreateBooking(ctx, providerActor, svc.ID, CreateBookingInput{PackageName: "basic"})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = c.CreateBooking(ctx, clientActor, svc.ID, CreateBookingInput{PackageName: "gold"})
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, apperr.As(err).Fields, "package_name")

	_, err = c.CreateBooking(ctx, clientActor, "missing", CreateBookingInput{PackageName: "basic"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCreateBooking_EnqueueFailureIsNotFatal(t *testing.T) {
	c, rec, svc := newCatalog(t)
	rec.err = errors.New("redis down")

	b, err := c.CreateBooking(context.Background(), clientActor, svc.ID, CreateBookingInput{PackageName: "basic"})
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
}

func TestBookingLifecycle(t *testing.T) {
	c, rec, svc := newCatalog(t)
	ctx := context.Background()
	b, err := c.CreateBooking(ctx, clientActor, svc.ID, CreateBookingInput{PackageName: "basic"})
	require.NoError(t, err)

	_, err = c.RateBooking(ctx, clientActor, b.ID, RateBookingInput{Score: 5})
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err), "pending bookings cannot be rated")

	_, err = c.CompleteBooking(ctx, clientActor, b.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	done, err := c.CompleteBooking(ctx, providerActor, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)

	_, err = c.CancelBooking(ctx, clientActor, b.ID)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))

	_, err = c.RateBooking(ctx, providerActor, b.ID, RateBookingInput{Score: 5})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = c.RateBooking(ctx, clientActor, b.ID, RateBookingInput{Score: 0})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	rated, err := c.RateBooking(ctx, clientActor, b.ID, RateBookingInput{Score: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, rated.RatingScore)
	require.NotNil(t, rated.RatedAt)

	_, err = c.RateBooking(ctx, clientActor, b.ID, RateBookingInput{Score: 5})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	assert.Equal(t, []string{svc.ID, svc.ID}, rec.ids, "booking and rating both trigger a recompute")
}

func TestCancelBooking(t *testing.T) {
	c, _, svc := newCatalog(t)
	ctx := context.Background()
	b, err := c.CreateBooking(ctx, clientActor, svc.ID, CreateBookingInput{PackageName: "basic"})
	require.NoError(t, err)

	_, err = c.CancelBooking(ctx, strangerActor, b.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	out, err := c.CancelBooking(ctx, providerActor, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, out.Status)
}

func TestSyncRecomputer_UpdatesStats(t *testing.T) {
	st := memory.New()
	agg := NewAggregator(st)
	c := New(st, SyncRecomputer{Aggregator: agg})
	ctx := context.Background()

	svc, err := c.CreateService(ctx, providerActor, CreateServiceInput{
		Title: "Copy", Packages: []PackageInput{{Name: "basic", Price: 5000}},
	})
	require.NoError(t, err)
	b, err := c.CreateBooking(ctx, clientActor, svc.ID, CreateBookingInput{PackageName: "basic"})
	require.NoError(t, err)
	_, err = c.CompleteBooking(ctx, providerActor, b.ID)
	require.NoError(t, err)
	_, err = c.RateBooking(ctx, clientActor, b.ID, RateBookingInput{Score: 5})
	require.NoError(t, err)

	got, err := c.GetService(ctx, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Rating{Average: 5, Count: 1}, got.Rating)
	// 0.7*1 + 0.3*(5*1)
	assert.Equal(t, 2.2, got.PopularityScore)
}
