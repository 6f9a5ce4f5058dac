package marketplace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/taskmarket/internal/events"
	"github.com/sudo-init-do/taskmarket/internal/model"
	"github.com/sudo-init-do/taskmarket/internal/store"
	"github.com/sudo-init-do/taskmarket/internal/store/memory"
)

var (
	testNow   = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	client    = model.Actor{UserID: "client-1", Role: model.RoleClient}
	otherUser = model.Actor{UserID: "client-2", Role: model.RoleClient}
	provider1 = model.Actor{UserID: "provider-1", Role: model.RoleProvider}
	provider2 = model.Actor{UserID: "provider-2", Role: model.RoleProvider}
	admin     = model.Actor{UserID: "admin-1", Role: model.RoleAdmin}
)

type fixture struct {
	m   *Manager
	st  *memory.Store
	rec *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	rec := &events.Recorder{}
	m := NewManager(st, rec, 1000)
	m.now = func() time.Time { return testNow }
	return &fixture{m: m, st: st, rec: rec}
}

func (f *fixture) createTask(t *testing.T) *model.Task {
	t.Helper()
	task, err := f.m.CreateTask(context.Background(), client, CreateTaskInput{
		Title:    "Paint the fence",
		Category: "Home",
		Budget:   BudgetInput{Amount: 50000, Type: model.BudgetFixed},
	})
	require.NoError(t, err)
	return task
}

func (f *fixture) bid(t *testing.T, actor model.Actor, taskID string, amount int64) *model.Bid {
	t.Helper()
	b, err := f.m.SubmitBid(context.Background(), actor, SubmitBidInput{TaskID: taskID, Amount: amount})
	require.NoError(t, err)
	return b
}

func (f *fixture) task(t *testing.T, id string) model.Task {
	t.Helper()
	var out model.Task
	require.NoError(t, f.st.InTx(context.Background(), func(tx store.Tx) error {
		got, err := tx.Tasks().Find(context.Background(), id)
		if err != nil {
			return err
		}
		out = *got
		return nil
	}))
	return out
}

func (f *fixture) bidByID(t *testing.T, id string) model.Bid {
	t.Helper()
	var out model.Bid
	require.NoError(t, f.st.InTx(context.Background(), func(tx store.Tx) error {
		got, err := tx.Bids().Find(context.Background(), id)
		if err != nil {
			return err
		}
		out = *got
		return nil
	}))
	return out
}

// insertTask writes a task directly, for states the API cannot reach quickly
func (f *fixture) insertTask(t *testing.T, task model.Task) {
	t.Helper()
	require.NoError(t, f.st.InTx(context.Background(), func(tx store.Tx) error {
		return tx.Tasks().Create(context.Background(), &task)
	}))
}
