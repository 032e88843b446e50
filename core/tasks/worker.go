package tasks

import (
	"context"

	"calsync-api/core/config"
	"calsync-api/core/constants"
	"calsync-api/core/logger"

	"github.com/hibiken/asynq"
)

// Worker hosts the asynq server (task execution) and scheduler (time-driven
// fallback triggers).
type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
}

func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func NewWorker(redisOpt asynq.RedisClientOpt) *Worker {
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			QueueSync:     6,
			QueueOutbound: 4,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("Worker:TaskFailed", "type", task.Type(), "error", err)
		}),
	})

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})

	return &Worker{
		server:    server,
		scheduler: scheduler,
		mux:       asynq.NewServeMux(),
	}
}

// Mux exposes the handler mux so modules can register their task handlers.
func (w *Worker) Mux() *asynq.ServeMux {
	return w.mux
}

// RegisterPeriodic wires the two fallback timers: channel renewal and the
// full sync sweep. These fire whether or not webhooks are configured.
func (w *Worker) RegisterPeriodic() error {
	if _, err := w.scheduler.Register(constants.ChannelRenewalCronSpec,
		asynq.NewTask(TypeRenewChannels, nil), asynq.Queue(QueueSync)); err != nil {
		return err
	}
	if _, err := w.scheduler.Register(constants.FullSweepCronSpec,
		asynq.NewTask(TypeSyncSweep, nil), asynq.Queue(QueueSync)); err != nil {
		return err
	}
	return nil
}

// Start runs the server and scheduler in background goroutines.
func (w *Worker) Start() {
	go func() {
		if err := w.server.Run(w.mux); err != nil {
			logger.Error("Worker:Server:Run:Error", "error", err)
		}
	}()
	go func() {
		if err := w.scheduler.Run(); err != nil {
			logger.Error("Worker:Scheduler:Run:Error", "error", err)
		}
	}()
}

// Shutdown stops accepting new tasks and waits for in-flight handlers.
func (w *Worker) Shutdown() {
	w.scheduler.Shutdown()
	w.server.Shutdown()
}
