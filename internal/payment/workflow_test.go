package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/taskmarket/internal/apperr"
	"github.com/sudo-init-do/taskmarket/internal/events"
	"github.com/sudo-init-do/taskmarket/internal/model"
	"github.com/sudo-init-do/taskmarket/internal/store"
	"github.com/sudo-init-do/taskmarket/internal/store/memory"
)

var (
	now      = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	client   = model.Actor{UserID: "client-1", Role: model.RoleClient}
	provider = model.Actor{UserID: "provider-1", Role: model.RoleProvider}
	admin    = model.Actor{UserID: "admin-1", Role: model.RoleAdmin}
)

func TestSplit(t *testing.T) {
	tests := []struct {
		amount, bps          int64
		commission, provider int64
	}{
		{45000, 1000, 4500, 40500},
		{999, 1000, 99, 900},
		{1, 1000, 0, 1},
		{50000, 0, 0, 50000},
		{50000, 10000, 50000, 0},
		{12345, 250, 308, 12037},
	}
	for _, tt := range tests {
		c, p := Split(tt.amount, tt.bps)
		assert.Equal(t, tt.commission, c, "commission of %d at %d bps", tt.amount, tt.bps)
		assert.Equal(t, tt.provider, p, "provider share of %d at %d bps", tt.amount, tt.bps)
		assert.Equal(t, tt.amount, c+p)
	}
}

func TestNewForBid(t *testing.T) {
	task := &model.Task{ID: "t1", ClientID: client.UserID}
	bid := &model.Bid{ID: "b1", TaskID: "t1", ProviderID: provider.UserID, Amount: 20000}

	p := NewForBid(task, bid, 1000, now)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, model.PaymentRequired, p.Status)
	assert.Equal(t, int64(2000), p.CommissionAmount)
	assert.Equal(t, int64(18000), p.ProviderAmount)
	assert.Equal(t, client.UserID, p.ClientID)
	assert.Equal(t, provider.UserID, p.ProviderID)
	assert.Equal(t, now, p.CreatedAt)
}

func newWorkflow(t *testing.T) (*Workflow, *events.Recorder, *model.Payment) {
	t.Helper()
	st := memory.New()
	rec := &events.Recorder{}
	w := NewWorkflow(st, rec)
	w.now = func() time.Time { return now }

	p := NewForBid(
		&model.Task{ID: "t1", ClientID: client.UserID},
		&model.Bid{ID: "b1", TaskID: "t1", ProviderID: provider.UserID, Amount: 30000},
		1000, now.Add(-time.Hour),
	)
	require.NoError(t, st.InTx(context.Background(), func(tx store.Tx) error {
		return tx.Payments().Create(context.Background(), p)
	}))
	return w, rec, p
}

var proof = SubmitProofInput{ScreenshotURL: "https://cdn.example.com/receipt.png", Reference: "TRX-42"}

func TestSubmitProof(t *testing.T) {
	w, rec, p := newWorkflow(t)
	ctx := context.Background()

	_, err := w.SubmitProof(ctx, provider, p.ID, proof)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	got, err := w.SubmitProof(ctx, client, p.ID, proof)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentSubmitted, got.Status)
	assert.Equal(t, proof.ScreenshotURL, got.ScreenshotURL)
	assert.Equal(t, "TRX-42", got.Reference)
	require.NotNil(t, got.SubmittedAt)
	assert.Equal(t, now, *got.SubmittedAt)

	_, err = w.SubmitProof(ctx, client, p.ID, proof)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))

	_, err = w.SubmitProof(ctx, client, "missing", proof)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	assert.Equal(t, []string{events.PaymentSubmitted}, rec.Types())
}

func TestVerify_Approve(t *testing.T) {
	w, rec, p := newWorkflow(t)
	ctx := context.Background()

	_, err := w.Verify(ctx, admin.UserID, p.ID, model.VerifyApprove)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err), "nothing submitted yet")

	_, err = w.SubmitProof(ctx, client, p.ID, proof)
	require.NoError(t, err)

	pending, err := w.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, p.ID, pending[0].ID)

	got, err := w.Verify(ctx, admin.UserID, p.ID, model.VerifyApprove)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentReleased, got.Status)
	assert.Equal(t, admin.UserID, got.VerifiedBy)
	require.NotNil(t, got.VerifiedAt)

	pending, err = w.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = w.Verify(ctx, admin.UserID, p.ID, model.VerifyReject)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
	assert.Equal(t, []string{events.PaymentSubmitted, events.PaymentVerified}, rec.Types())
}

func TestVerify_RejectAllowsResubmission(t *testing.T) {
	w, _, p := newWorkflow(t)
	ctx := context.Background()

	_, err := w.SubmitProof(ctx, client, p.ID, proof)
	require.NoError(t, err)

	got, err := w.Verify(ctx, admin.UserID, p.ID, model.VerifyReject)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentRequired, got.Status)
	assert.Empty(t, got.ScreenshotURL)
	assert.Empty(t, got.Reference)
	assert.Nil(t, got.SubmittedAt)
	assert.Empty(t, got.VerifiedBy)

	again, err := w.SubmitProof(ctx, client, p.ID, SubmitProofInput{ScreenshotURL: "https://cdn.example.com/second.png"})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentSubmitted, again.Status)
}

func TestVerify_UnknownAction(t *testing.T) {
	w, _, p := newWorkflow(t)
	_, err := w.Verify(context.Background(), admin.UserID, p.ID, "refund")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestGet_PartiesOnly(t *testing.T) {
	w, _, p := newWorkflow(t)
	ctx := context.Background()

	for _, actor := range []model.Actor{client, provider, admin} {
		got, err := w.Get(ctx, actor, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
	}

	_, err := w.Get(ctx, model.Actor{UserID: "stranger", Role: model.RoleClient}, p.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}
