// Package events publishes domain events after the owning transaction commits.
package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	BidSubmitted     = "bid.submitted"
	BidAccepted      = "bid.accepted"
	BidRejected      = "bid.rejected"
	BidWithdrawn     = "bid.withdrawn"
	TaskCancelled    = "task.cancelled"
	TaskCompleted    = "task.completed"
	PaymentSubmitted = "payment.submitted"
	PaymentVerified  = "payment.verified"
)

// Event is the JSON envelope written to the broker. Key groups related
// events onto one partition; it is the task id for bid and payment events.
type Event struct {
	Type       string         `json:"type"`
	Key        string         `json:"key"`
	Data       map[string]any `json:"data"`
	OccurredAt time.Time      `json:"occurred_at"`
}

func New(typ, key string, data map[string]any) Event {
	return Event{Type: typ, Key: key, Data: data, OccurredAt: time.Now().UTC()}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Emit publishes e and logs instead of failing; the state change it
// describes has already been committed.
func Emit(ctx context.Context, p Publisher, e Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		zap.L().Warn("event publish failed", zap.String("type", e.Type), zap.String("key", e.Key), zap.Error(err))
	}
}

// Fanout publishes to every publisher in order and joins their errors
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogPublisher writes events to the log; used by the mock server
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, e Event) error {
	zap.L().Info("event", zap.String("type", e.Type), zap.String("key", e.Key), zap.Any("data", e.Data))
	return nil
}

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Types returns the recorded event types in publish order
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
