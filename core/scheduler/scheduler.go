package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"presence-sync/core/config"
	"presence-sync/core/constants"
	"presence-sync/core/logger"

	"github.com/hibiken/asynq"
)

// Scheduler enqueues delayed tasks and cancels them by handle. Delivery is
// at-least-once; a cancel racing an already-fired task reports success, so
// task handlers must be idempotent.
type Scheduler interface {
	Schedule(ctx context.Context, taskType string, payload any, delay time.Duration) (string, error)
	Cancel(ctx context.Context, taskID string) error
}

type asynqScheduler struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	queue     string
}

func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func NewScheduler(opt asynq.RedisClientOpt) Scheduler {
	return &asynqScheduler{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
		queue:     constants.TaskQueue,
	}
}

func (s *asynqScheduler) Schedule(ctx context.Context, taskType string, payload any, delay time.Duration) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	opts := []asynq.Option{asynq.Queue(s.queue), asynq.MaxRetry(3)}
	if delay > 0 {
		opts = append(opts, asynq.ProcessIn(delay))
	}

	info, err := s.client.EnqueueContext(ctx, asynq.NewTask(taskType, data), opts...)
	if err != nil {
		return "", err
	}

	logger.Debug("Scheduler:Schedule", "task_type", taskType, "task_id", info.ID, "delay", delay)
	return info.ID, nil
}

func (s *asynqScheduler) Cancel(_ context.Context, taskID string) error {
	err := s.inspector.DeleteTask(s.queue, taskID)
	if err != nil {
		// The task may already have fired or been cancelled; both are fine.
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// NewWorker builds the asynq server that delivers scheduled tasks. Handlers
// are registered on the returned mux by the owning modules.
func NewWorker(opt asynq.RedisClientOpt) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: 10,
		Queues:      map[string]int{constants.TaskQueue: 1},
	})
	return srv, asynq.NewServeMux()
}
