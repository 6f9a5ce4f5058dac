package worker

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/sudo-init-do/taskmarket/internal/config"
)

// Task type constants
const (
	TaskRecomputeService = "service:recompute"
	TaskRecomputeAll     = "service:recompute_all"
)

// Queue names and their priorities
const (
	QueueAggregator = "aggregator"
	QueueDefault    = "default"
)

// RecomputePayload identifies the service to refresh
type RecomputePayload struct {
	ServiceID string `json:"service_id"`
}

func NewRecomputeTask(serviceID string) (*asynq.Task, error) {
	if serviceID == "" {
		return nil, fmt.Errorf("worker: service id is required")
	}
	b, err := json.Marshal(RecomputePayload{ServiceID: serviceID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecomputeService, b), nil
}

func NewRecomputeAllTask() *asynq.Task {
	return asynq.NewTask(TaskRecomputeAll, nil)
}

// RedisOpt converts the redis settings into asynq connection options
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
}
