package marketplace

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/sudo-init-do/taskmarket/internal/apperr"
	"github.com/sudo-init-do/taskmarket/internal/events"
	"github.com/sudo-init-do/taskmarket/internal/model"
	"github.com/sudo-init-do/taskmarket/internal/store"
)

const maxListLimit = 100

type BudgetInput struct {
	Amount int64            `json:"amount" validate:"gte=0"`
	Type   model.BudgetType `json:"type" validate:"required,oneof=fixed hourly negotiable"`
}

type CreateTaskInput struct {
	Title       string      `json:"title" validate:"required,max=200"`
	Description string      `json:"description" validate:"max=5000"`
	Category    string      `json:"category" validate:"required,max=100"`
	Budget      BudgetInput `json:"budget"`
}

// =========================
// CreateTask - client posts a task open for bidding
// =========================
func (m *Manager) CreateTask(ctx context.Context, actor model.Actor, in CreateTaskInput) (*model.Task, error) {
	if !in.Budget.Type.Valid() {
		return nil, apperr.ValidationFields(map[string]string{"budget.type": "type must be one of [fixed hourly negotiable]"})
	}
	if in.Budget.Type != model.BudgetNegotiable && in.Budget.Amount <= 0 {
		return nil, apperr.ValidationFields(map[string]string{"budget.amount": "amount must be greater than 0"})
	}

	now := m.now()
	t := &model.Task{
		ID:          uuid.New().String(),
		ClientID:    actor.UserID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Category:    strings.ToLower(strings.TrimSpace(in.Category)),
		Budget:      model.Budget{Amount: in.Budget.Amount, Type: in.Budget.Type},
		Status:      model.TaskOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := m.store.InTx(ctx, func(tx store.Tx) error {
		return tx.Tasks().Create(ctx, t)
	})
	if err != nil {
		return nil, store.AppError(err, "task")
	}
	return t, nil
}

func (m *Manager) GetTask(ctx context.Context, id string) (*model.Task, error) {
	var t *model.Task
	err := m.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		t, err = tx.Tasks().Find(ctx, id)
		return err
	})
	if err != nil {
		return nil, store.AppError(err, "task")
	}
	return t, nil
}

func (m *Manager) ListTasks(ctx context.Context, f model.TaskFilter) ([]model.Task, error) {
	if f.Limit <= 0 || f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Category = strings.ToLower(strings.TrimSpace(f.Category))

	var out []model.Task
	err := m.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.Tasks().List(ctx, f)
		return err
	})
	if err != nil {
		return nil, apperr.Internal(err, "failed to fetch tasks")
	}
	return out, nil
}

// StartTask moves an assigned task into progress; only the assigned
// provider can start it.
func (m *Manager) StartTask(ctx context.Context, actor model.Actor, id string) (*model.Task, error) {
	var t *model.Task
	err := m.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		t, err = lockTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if t.AssignedProviderID != actor.UserID {
			return apperr.Forbidden("only the assigned provider can start this task")
		}
		if t.Status != model.TaskAssigned {
			return apperr.InvalidState("task is %s, expected %s", t.Status, model.TaskAssigned)
		}
		t.Status = model.TaskInProgress
		t.UpdatedAt = m.now()
		return updateTask(ctx, tx, t, model.TaskAssigned)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// CompleteTask marks in-progress work as done
func (m *Manager) CompleteTask(ctx context.Context, actor model.Actor, id string) (*model.Task, error) {
	var t *model.Task
	err := m.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		t, err = lockTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if !ownsTask(actor, t) {
			return apperr.Forbidden("only the task owner can complete this task")
		}
		if t.Status != model.TaskInProgress {
			return apperr.InvalidState("task is %s, expected %s", t.Status, model.TaskInProgress)
		}
		t.Status = model.TaskCompleted
		t.UpdatedAt = m.now()
		return updateTask(ctx, tx, t, model.TaskInProgress)
	})
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, m.events, events.New(events.TaskCompleted, t.ID, map[string]any{
		"provider_id": t.AssignedProviderID,
	}))
	return t, nil
}

// CancelTask withdraws a task that has not started. Pending bids are
// rejected and any provider assignment is cleared.
func (m *Manager) CancelTask(ctx context.Context, actor model.Actor, id string) (*model.Task, error) {
	var t *model.Task
	err := m.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		t, err = lockTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if !ownsTask(actor, t) {
			return apperr.Forbidden("only the task owner can cancel this task")
		}
		prev := t.Status
		if prev != model.TaskOpen && prev != model.TaskAssigned {
			return apperr.InvalidState("task is %s and can no longer be cancelled", prev)
		}

		now := m.now()
		bids, err := tx.Bids().ListByTask(ctx, t.ID)
		if err != nil {
			return store.AppError(err, "bid")
		}
		for i := range bids {
			b := &bids[i]
			if b.Status != model.BidPending {
				continue
			}
			b.Status = model.BidRejected
			b.RespondedAt = &now
			b.ResponseMessage = "task cancelled"
			if err := tx.Bids().UpdateIfStatus(ctx, b, model.BidPending); err != nil {
				return bidWriteErr(err)
			}
		}

		t.Status = model.TaskCancelled
		t.AssignedProviderID = ""
		t.UpdatedAt = now
		return updateTask(ctx, tx, t, prev)
	})
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, m.events, events.New(events.TaskCancelled, t.ID, nil))
	return t, nil
}
