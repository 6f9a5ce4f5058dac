package marketplace

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/sudo-init-do/taskmarket/internal/apperr"
	"github.com/sudo-init-do/taskmarket/internal/events"
	"github.com/sudo-init-do/taskmarket/internal/model"
	"github.com/sudo-init-do/taskmarket/internal/payment"
	"github.com/sudo-init-do/taskmarket/internal/store"
)

const supersededMessage = "another bid was accepted"

type SubmitBidInput struct {
	TaskID  string `json:"task_id" validate:"required"`
	Amount  int64  `json:"amount" validate:"required,gt=0"`
	Message string `json:"message" validate:"max=2000"`
}

// RespondInput is the client's decision on a pending bid
type RespondInput struct {
	Action  model.BidAction `json:"action" validate:"required,oneof=accept reject"`
	Message string          `json:"message" validate:"max=2000"`
}

// RespondResult describes the state left behind by RespondToBid
type RespondResult struct {
	BidID      string         `json:"bid_id"`
	Bid        *model.Bid     `json:"bid"`
	Task       *model.Task    `json:"task"`
	Payment    *model.Payment `json:"payment,omitempty"`
	Superseded []string       `json:"superseded_bids,omitempty"`
}

// =========================
// SubmitBid - provider bids on an open task
// =========================
func (m *Manager) SubmitBid(ctx context.Context, actor model.Actor, in SubmitBidInput) (*model.Bid, error) {
	if in.Amount <= 0 {
		return nil, apperr.ValidationFields(map[string]string{"amount": "amount must be greater than 0"})
	}

	var bid *model.Bid
	err := m.store.InTx(ctx, func(tx store.Tx) error {
		task, err := lockTask(ctx, tx, in.TaskID)
		if err != nil {
			return err
		}
		if task.Status != model.TaskOpen {
			return apperr.InvalidState("task is %s, bids are only accepted while open", task.Status)
		}
		if task.ClientID == actor.UserID {
			return apperr.Forbidden("you cannot bid on your own task")
		}

		existing, err := tx.Bids().ListByTask(ctx, task.ID)
		if err != nil {
			return store.AppError(err, "bid")
		}
		for _, b := range existing {
			if b.ProviderID == actor.UserID && b.Status == model.BidPending {
				return apperr.Conflict("you already have a pending bid on this task")
			}
		}

		now := m.now()
		bid = &model.Bid{
			ID:         uuid.New().String(),
			TaskID:     task.ID,
			ProviderID: actor.UserID,
			Amount:     in.Amount,
			Message:    strings.TrimSpace(in.Message),
			Status:     model.BidPending,
			CreatedAt:  now,
		}
		if err := tx.Bids().Create(ctx, bid); err != nil {
			return store.AppError(err, "bid")
		}

		task.BidsCount++
		task.UpdatedAt = now
		return updateTask(ctx, tx, task, model.TaskOpen)
	})
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, m.events, events.New(events.BidSubmitted, bid.TaskID, map[string]any{
		"bid_id":      bid.ID,
		"provider_id": bid.ProviderID,
		"amount":      bid.Amount,
	}))
	return bid, nil
}

// =========================
// RespondToBid - task owner accepts or rejects a pending bid
// =========================

// RespondToBid accepts or rejects bidID on taskID. Accepting moves the task
// to in_progress, rejects the remaining pending bids and opens the payment,
// all in one transaction.
func (m *Manager) RespondToBid(ctx context.Context, actor model.Actor, taskID, bidID string, in RespondInput) (*RespondResult, error) {
	if in.Action != model.BidActionAccept && in.Action != model.BidActionReject {
		return nil, apperr.ValidationFields(map[string]string{"action": "action must be one of [accept reject]"})
	}

	res := &RespondResult{BidID: bidID}
	err := m.store.InTx(ctx, func(tx store.Tx) error {
		task, err := lockTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		bid, err := tx.Bids().FindForUpdate(ctx, bidID)
		if errors.Is(err, store.ErrNotFound) || (err == nil && bid.TaskID != taskID) {
			return apperr.NotFound("bid not found")
		}
		if err != nil {
			return store.AppError(err, "bid")
		}
		if !ownsTask(actor, task) {
			return apperr.Forbidden("only the task owner can respond to bids")
		}
		if bid.Status != model.BidPending {
			return apperr.InvalidState("bid is %s, expected %s", bid.Status, model.BidPending)
		}

		now := m.now()
		bid.RespondedAt = &now
		bid.ResponseMessage = strings.TrimSpace(in.Message)

		if in.Action == model.BidActionReject {
			bid.Status = model.BidRejected
			if err := tx.Bids().UpdateIfStatus(ctx, bid, model.BidPending); err != nil {
				return bidWriteErr(err)
			}
			res.Bid, res.Task = bid, task
			return nil
		}

		if task.Status != model.TaskOpen {
			return apperr.InvalidState("task is %s, only open tasks can accept a bid", task.Status)
		}
		bid.Status = model.BidAccepted
		if err := tx.Bids().UpdateIfStatus(ctx, bid, model.BidPending); err != nil {
			return bidWriteErr(err)
		}

		task.Status = model.TaskInProgress
		task.AssignedProviderID = bid.ProviderID
		task.UpdatedAt = now
		if err := updateTask(ctx, tx, task, model.TaskOpen); err != nil {
			return err
		}

		siblings, err := tx.Bids().ListByTask(ctx, task.ID)
		if err != nil {
			return store.AppError(err, "bid")
		}
		for i := range siblings {
			s := &siblings[i]
			if s.ID == bid.ID || s.Status != model.BidPending {
				continue
			}
			s.Status = model.BidRejected
			s.RespondedAt = &now
			s.ResponseMessage = supersededMessage
			if err := tx.Bids().UpdateIfStatus(ctx, s, model.BidPending); err != nil {
				return bidWriteErr(err)
			}
			res.Superseded = append(res.Superseded, s.ID)
		}

		p := payment.NewForBid(task, bid, m.commissionBps, now)
		if err := tx.Payments().Create(ctx, p); err != nil {
			return store.AppError(err, "payment")
		}
		res.Bid, res.Task, res.Payment = bid, task, p
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.emitResponse(ctx, res)
	return res, nil
}

func (m *Manager) emitResponse(ctx context.Context, res *RespondResult) {
	if res.Bid.Status == model.BidRejected {
		events.Emit(ctx, m.events, events.New(events.BidRejected, res.Task.ID, map[string]any{
			"bid_id":      res.Bid.ID,
			"provider_id": res.Bid.ProviderID,
		}))
		return
	}
	events.Emit(ctx, m.events, events.New(events.BidAccepted, res.Task.ID, map[string]any{
		"bid_id":      res.Bid.ID,
		"provider_id": res.Bid.ProviderID,
		"payment_id":  res.Payment.ID,
		"amount":      res.Payment.Amount,
	}))
	for _, id := range res.Superseded {
		events.Emit(ctx, m.events, events.New(events.BidRejected, res.Task.ID, map[string]any{
			"bid_id": id,
			"reason": supersededMessage,
		}))
	}
}

// bidWriteErr classifies a failed bid status write
func bidWriteErr(err error) error {
	switch {
	case errors.Is(err, store.ErrStatusMismatch):
		return apperr.InvalidState("bid is no longer pending")
	case errors.Is(err, store.ErrConflict):
		return apperr.Conflict("task already has an accepted bid")
	}
	return store.AppError(err, "bid")
}

func (m *Manager) findBid(ctx context.Context, id string) (*model.Bid, error) {
	var b *model.Bid
	err := m.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		b, err = tx.Bids().Find(ctx, id)
		return err
	})
	if err != nil {
		return nil, store.AppError(err, "bid")
	}
	return b, nil
}

// ListBids returns the bids on a task, newest first
func (m *Manager) ListBids(ctx context.Context, taskID string) ([]model.Bid, error) {
	var out []model.Bid
	err := m.store.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Tasks().Find(ctx, taskID); err != nil {
			return store.AppError(err, "task")
		}
		var err error
		out, err = tx.Bids().ListByTask(ctx, taskID)
		return store.AppError(err, "bid")
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// WithdrawBid lets a provider retract a pending bid. The task's bids count
// is left as is.
func (m *Manager) WithdrawBid(ctx context.Context, actor model.Actor, bidID string) (*model.Bid, error) {
	var bid *model.Bid
	err := m.store.InTx(ctx, func(tx store.Tx) error {
		b, err := tx.Bids().Find(ctx, bidID)
		if err != nil {
			return store.AppError(err, "bid")
		}
		if _, err := lockTask(ctx, tx, b.TaskID); err != nil {
			return err
		}
		bid, err = tx.Bids().FindForUpdate(ctx, bidID)
		if err != nil {
			return store.AppError(err, "bid")
		}
		if bid.ProviderID != actor.UserID {
			return apperr.Forbidden("only the bidding provider can withdraw this bid")
		}
		if bid.Status != model.BidPending {
			return apperr.InvalidState("bid is %s, expected %s", bid.Status, model.BidPending)
		}

		now := m.now()
		bid.Status = model.BidWithdrawn
		bid.RespondedAt = &now
		return bidWriteErr(tx.Bids().UpdateIfStatus(ctx, bid, model.BidPending))
	})
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, m.events, events.New(events.BidWithdrawn, bid.TaskID, map[string]any{
		"bid_id":      bid.ID,
		"provider_id": bid.ProviderID,
	}))
	return bid, nil
}
