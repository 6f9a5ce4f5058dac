package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type failing struct{ err error }

func (f failing) Publish(context.Context, Event) error { return f.err }

func TestFanout(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	boom := errors.New("broker down")
	f := Fanout{a, nil, failing{boom}, b}

	err := f.Publish(context.Background(), New(BidAccepted, "task-1", map[string]any{"bid_id": "b1"}))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{BidAccepted}, a.Types())
	assert.Equal(t, []string{BidAccepted}, b.Types(), "a failing publisher does not stop the rest")
	assert.Equal(t, "task-1", b.Events()[0].Key)
}

func TestEmit_SwallowsErrors(t *testing.T) {
	assert.NotPanics(t, func() {
		Emit(context.Background(), failing{errors.New("x")}, New(TaskCancelled, "t1", nil))
		Emit(context.Background(), nil, New(TaskCancelled, "t1", nil))
	})
}
