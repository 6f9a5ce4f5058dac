package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/sudo-init-do/taskmarket/internal/catalog"
)

const recomputeAllLock = "lock:aggregator:recompute_all"

// Processor runs aggregator jobs
type Processor struct {
	agg     *catalog.Aggregator
	lock    Locker
	lockTTL time.Duration
	log     *zap.Logger
}

func NewProcessor(agg *catalog.Aggregator, lock Locker, lockTTL time.Duration) *Processor {
	return &Processor{agg: agg, lock: lock, lockTTL: lockTTL, log: zap.L().With(zap.String("component", "worker"))}
}

// Mux routes task types to their handlers
func (p *Processor) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskRecomputeService, p.HandleRecompute)
	mux.HandleFunc(TaskRecomputeAll, p.HandleRecomputeAll)
	return mux
}

func (p *Processor) HandleRecompute(ctx context.Context, t *asynq.Task) error {
	var payload RecomputePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	st, err := p.agg.Recompute(ctx, payload.ServiceID)
	if err != nil {
		return err
	}
	p.log.Info("service recomputed",
		zap.String("service_id", st.ServiceID),
		zap.Float64("average", st.Rating.Average),
		zap.Int("count", st.Rating.Count),
		zap.Float64("popularity", st.PopularityScore),
	)
	return nil
}

// HandleRecomputeAll refreshes every service unless another run holds the lock
func (p *Processor) HandleRecomputeAll(ctx context.Context, _ *asynq.Task) error {
	if p.lock != nil {
		release, ok, err := p.lock.Acquire(ctx, recomputeAllLock, p.lockTTL)
		if err != nil {
			return fmt.Errorf("acquire aggregator lock: %w", err)
		}
		if !ok {
			p.log.Info("recompute_all already running, skipping")
			return nil
		}
		defer release()
	}

	start := time.Now()
	n, err := p.agg.RecomputeAll(ctx)
	if err != nil {
		return err
	}
	p.log.Info("recompute_all finished", zap.Int("services", n), zap.Duration("took", time.Since(start)))
	return nil
}

// NewServer builds the asynq server consuming the worker queues
func NewServer(opt asynq.RedisConnOpt, concurrency int) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 5
	}
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueAggregator: 10,
			QueueDefault:    5,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, t *asynq.Task, err error) {
			zap.L().Error("task failed", zap.String("type", t.Type()), zap.Error(err))
		}),
	})
}

// NewScheduler registers the periodic recompute_all job on spec, a cron
// expression or "@every <duration>"
func NewScheduler(opt asynq.RedisConnOpt, spec string) (*asynq.Scheduler, error) {
	s := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC})
	if _, err := s.Register(spec, NewRecomputeAllTask(), asynq.Queue(QueueAggregator), asynq.Unique(time.Minute)); err != nil {
		return nil, fmt.Errorf("register %s: %w", TaskRecomputeAll, err)
	}
	return s, nil
}
