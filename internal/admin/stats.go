package admin

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskmarket/internal/apperr"
	"github.com/sudo-init-do/taskmarket/internal/model"
	"github.com/sudo-init-do/taskmarket/internal/resp"
	"github.com/sudo-init-do/taskmarket/internal/store"
)

// Stats is the dashboard summary
type Stats struct {
	Users           int                      `json:"users"`
	Services        int                      `json:"services"`
	Tasks           map[model.TaskStatus]int `json:"tasks"`
	PendingPayments int                      `json:"pending_payments"`
}

var taskStatuses = []model.TaskStatus{
	model.TaskOpen, model.TaskAssigned, model.TaskInProgress, model.TaskCompleted, model.TaskCancelled,
}

func collectStats(ctx context.Context, s store.Store) (*Stats, error) {
	st := &Stats{Tasks: make(map[model.TaskStatus]int, len(taskStatuses))}
	err := s.InTx(ctx, func(tx store.Tx) error {
		users, err := tx.Users().List(ctx)
		if err != nil {
			return err
		}
		st.Users = len(users)

		ids, err := tx.Services().ListIDs(ctx)
		if err != nil {
			return err
		}
		st.Services = len(ids)

		for _, status := range taskStatuses {
			tasks, err := tx.Tasks().List(ctx, model.TaskFilter{Status: status})
			if err != nil {
				return err
			}
			st.Tasks[status] = len(tasks)
		}

		pending, err := tx.Payments().ListByStatus(ctx, model.PaymentSubmitted)
		if err != nil {
			return err
		}
		st.PendingPayments = len(pending)
		return nil
	})
	if err != nil {
		return nil, apperr.Internal(err, "failed to collect stats")
	}
	return st, nil
}

// GET /api/admin/stats
func (h *Handler) Stats(c echo.Context) error {
	st, err := collectStats(c.Request().Context(), h.store)
	if err != nil {
		return err
	}
	return resp.OK(c, st)
}
