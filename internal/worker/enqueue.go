package worker

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// dedupWindow collapses bursts of ratings on one service into one job
const dedupWindow = 30 * time.Second

// Enqueuer schedules aggregator jobs on the asynq queue
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(opt asynq.RedisConnOpt) *Enqueuer {
	return &Enqueuer{client: asynq.NewClient(opt)}
}

// EnqueueRecompute schedules a refresh of one service's statistics.
// A job already queued for the same service within the window counts as success.
func (e *Enqueuer) EnqueueRecompute(ctx context.Context, serviceID string) error {
	task, err := NewRecomputeTask(serviceID)
	if err != nil {
		return err
	}
	info, err := e.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueAggregator),
		asynq.MaxRetry(3),
		asynq.Unique(dedupWindow),
	)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	if err != nil {
		return err
	}
	zap.L().Debug("recompute enqueued", zap.String("service_id", serviceID), zap.String("task_id", info.ID))
	return nil
}

// Close releases the client connection
func (e *Enqueuer) Close() error {
	return e.client.Close()
}
