package payment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sudo-init-do/taskmarket/internal/apperr"
	"github.com/sudo-init-do/taskmarket/internal/events"
	"github.com/sudo-init-do/taskmarket/internal/model"
	"github.com/sudo-init-do/taskmarket/internal/store"
)

// Split divides amount into the platform commission and the provider share.
// Commission rounds down so the provider never receives less than
// amount*(1-bps/10000).
func Split(amount, bps int64) (commission, provider int64) {
	commission = amount * bps / 10000
	return commission, amount - commission
}

// NewForBid builds the payment created when bid is accepted on task
func NewForBid(task *model.Task, bid *model.Bid, bps int64, now time.Time) *model.Payment {
	commission, provider := Split(bid.Amount, bps)
	return &model.Payment{
		ID:               uuid.New().String(),
		TaskID:           task.ID,
		BidID:            bid.ID,
		ClientID:         task.ClientID,
		ProviderID:       bid.ProviderID,
		Amount:           bid.Amount,
		CommissionAmount: commission,
		ProviderAmount:   provider,
		Status:           model.PaymentRequired,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Workflow moves payments through proof submission and admin verification
type Workflow struct {
	store  store.Store
	events events.Publisher
	now    func() time.Time
}

func NewWorkflow(s store.Store, pub events.Publisher) *Workflow {
	return &Workflow{store: s, events: pub, now: time.Now}
}

// SubmitProofInput is the client's evidence of an offline transfer
type SubmitProofInput struct {
	ScreenshotURL string `json:"screenshot_url" validate:"required,url,max=2048"`
	Reference     string `json:"reference" validate:"max=255"`
}

func (w *Workflow) Get(ctx context.Context, actor model.Actor, id string) (*model.Payment, error) {
	var p *model.Payment
	err := w.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		p, err = tx.Payments().Find(ctx, id)
		return err
	})
	if err != nil {
		return nil, store.AppError(err, "payment")
	}
	if !actor.IsAdmin() && actor.UserID != p.ClientID && actor.UserID != p.ProviderID {
		return nil, apperr.Forbidden("not a party to this payment")
	}
	return p, nil
}

// ListPending returns payments awaiting admin verification, oldest first
func (w *Workflow) ListPending(ctx context.Context) ([]model.Payment, error) {
	var out []model.Payment
	err := w.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.Payments().ListByStatus(ctx, model.PaymentSubmitted)
		return err
	})
	if err != nil {
		return nil, apperr.Internal(err, "failed to fetch pending payments")
	}
	return out, nil
}

// SubmitProof records the client's transfer proof: payment_required → payment_submitted
func (w *Workflow) SubmitProof(ctx context.Context, actor model.Actor, id string, in SubmitProofInput) (*model.Payment, error) {
	var p *model.Payment
	err := w.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		p, err = tx.Payments().FindForUpdate(ctx, id)
		if err != nil {
			return store.AppError(err, "payment")
		}
		if p.ClientID != actor.UserID {
			return apperr.Forbidden("only the paying client can submit proof")
		}
		if p.Status != model.PaymentRequired {
			return apperr.InvalidState("payment is %s, expected %s", p.Status, model.PaymentRequired)
		}

		now := w.now()
		p.Status = model.PaymentSubmitted
		p.ScreenshotURL = in.ScreenshotURL
		p.Reference = in.Reference
		p.SubmittedAt = &now
		p.UpdatedAt = now
		return store.AppError(tx.Payments().UpdateIfStatus(ctx, p, model.PaymentRequired), "payment")
	})
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, w.events, events.New(events.PaymentSubmitted, p.TaskID, map[string]any{
		"payment_id": p.ID,
		"amount":     p.Amount,
	}))
	return p, nil
}

// Verify applies the admin decision to a submitted payment.
// approve → released; reject → payment_required with the proof cleared.
func (w *Workflow) Verify(ctx context.Context, adminID, id string, action model.VerifyAction) (*model.Payment, error) {
	if action != model.VerifyApprove && action != model.VerifyReject {
		return nil, apperr.ValidationFields(map[string]string{"action": "action must be one of [approve reject]"})
	}

	var p *model.Payment
	err := w.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		p, err = tx.Payments().FindForUpdate(ctx, id)
		if err != nil {
			return store.AppError(err, "payment")
		}
		if p.Status != model.PaymentSubmitted {
			return apperr.InvalidState("payment is %s, expected %s", p.Status, model.PaymentSubmitted)
		}

		now := w.now()
		switch action {
		case model.VerifyApprove:
			p.Status = model.PaymentReleased
			p.VerifiedBy = adminID
			p.VerifiedAt = &now
		case model.VerifyReject:
			p.Status = model.PaymentRequired
			p.ScreenshotURL = ""
			p.Reference = ""
			p.SubmittedAt = nil
		}
		p.UpdatedAt = now
		return store.AppError(tx.Payments().UpdateIfStatus(ctx, p, model.PaymentSubmitted), "payment")
	})
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, w.events, events.New(events.PaymentVerified, p.TaskID, map[string]any{
		"payment_id": p.ID,
		"action":     string(action),
		"status":     string(p.Status),
		"admin_id":   adminID,
	}))
	return p, nil
}
