// Package marketplace owns the task and bid lifecycle: posting tasks,
// bidding on them, accepting or rejecting bids, and reviewing the provider
// once the work is done.
package marketplace

import (
	"context"
	"errors"
	"time"

	"github.com/sudo-init-do/taskmarket/internal/apperr"
	"github.com/sudo-init-do/taskmarket/internal/events"
	"github.com/sudo-init-do/taskmarket/internal/model"
	"github.com/sudo-init-do/taskmarket/internal/store"
)

// Manager applies lifecycle transitions. Every operation runs in one store
// transaction that reads the task under lock before touching its bids.
type Manager struct {
	store         store.Store
	events        events.Publisher
	commissionBps int64
	now           func() time.Time
}

func NewManager(s store.Store, pub events.Publisher, commissionBps int64) *Manager {
	return &Manager{store: s, events: pub, commissionBps: commissionBps, now: time.Now}
}

// lockTask loads the task for update, NotFound when absent
func lockTask(ctx context.Context, tx store.Tx, id string) (*model.Task, error) {
	t, err := tx.Tasks().FindForUpdate(ctx, id)
	if err != nil {
		return nil, store.AppError(err, "task")
	}
	return t, nil
}

// updateTask writes t if its stored status is still expected
func updateTask(ctx context.Context, tx store.Tx, t *model.Task, expected model.TaskStatus) error {
	err := tx.Tasks().UpdateIfStatus(ctx, t, expected)
	if errors.Is(err, store.ErrStatusMismatch) {
		return apperr.InvalidState("task is no longer %s", expected)
	}
	return store.AppError(err, "task")
}

func ownsTask(actor model.Actor, t *model.Task) bool {
	return actor.IsAdmin() || actor.UserID == t.ClientID
}
