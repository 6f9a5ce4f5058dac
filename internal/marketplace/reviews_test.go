package marketplace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/taskmarket/internal/apperr"
	"github.com/sudo-init-do/taskmarket/internal/model"
)

func (f *fixture) completedTask(t *testing.T, id, providerID string) {
	t.Helper()
	f.insertTask(t, model.Task{
		ID: id, ClientID: client.UserID, Title: id, Category: "home",
		Status: model.TaskCompleted, AssignedProviderID: providerID, CreatedAt: testNow,
	})
}

func TestCreateReview(t *testing.T) {
	f := newFixture(t)
	f.completedTask(t, "t1", provider1.UserID)
	ctx := context.Background()

	r, err := f.m.CreateReview(ctx, client, "t1", CreateReviewInput{Rating: 5, Comment: " great work "})
	require.NoError(t, err)
	assert.Equal(t, provider1.UserID, r.ProviderID)
	assert.Equal(t, client.UserID, r.AuthorID)
	assert.Equal(t, "great work", r.Comment)

	_, err = f.m.CreateReview(ctx, client, "t1", CreateReviewInput{Rating: 4})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestCreateReview_Rules(t *testing.T) {
	f := newFixture(t)
	f.completedTask(t, "done", provider1.UserID)
	open := f.createTask(t)
	ctx := context.Background()

	_, err := f.m.CreateReview(ctx, client, "done", CreateReviewInput{Rating: 6})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.m.CreateReview(ctx, otherUser, "done", CreateReviewInput{Rating: 3})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = f.m.CreateReview(ctx, client, open.ID, CreateReviewInput{Rating: 3})
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))

	_, err = f.m.CreateReview(ctx, client, "missing", CreateReviewInput{Rating: 3})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestListProviderReviews_Summary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i, rating := range []int{5, 4, 4} {
		id := []string{"a", "b", "c"}[i]
		f.completedTask(t, id, provider1.UserID)
		_, err := f.m.CreateReview(ctx, client, id, CreateReviewInput{Rating: rating})
		require.NoError(t, err)
	}

	out, err := f.m.ListProviderReviews(ctx, provider1.UserID)
	require.NoError(t, err)
	assert.Len(t, out.Reviews, 3)
	assert.Equal(t, 3, out.Summary.TotalReviews)
	assert.Equal(t, 4.3, out.Summary.AverageRating)
	assert.Equal(t, 1, out.Summary.RatingCounts.FiveStar)
	assert.Equal(t, 2, out.Summary.RatingCounts.FourStar)

	empty, err := f.m.ListProviderReviews(ctx, provider2.UserID)
	require.NoError(t, err)
	assert.Zero(t, empty.Summary.TotalReviews)
	assert.Zero(t, empty.Summary.AverageRating)
	assert.Empty(t, empty.Reviews)
}
