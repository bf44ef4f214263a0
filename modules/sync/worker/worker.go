package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"rehearsal-hub/core/config"
	"rehearsal-hub/core/errors"
	"rehearsal-hub/core/logger"
	"rehearsal-hub/modules/sync/repository"
	"rehearsal-hub/modules/sync/service"
)

const (
	// TaskAutoImport imports one user's selected calendars.
	TaskAutoImport = "sync:auto_import"
	// TaskAutoImportTick fans out TaskAutoImport across all configured users.
	TaskAutoImportTick = "sync:auto_import_tick"
)

type autoImportPayload struct {
	UserID uuid.UUID `json:"user_id"`
}

// Worker runs the background side of calendar import: a periodic tick
// enqueues one import task per user with sync settings, and the task handler
// hands each user to the orchestrator, which applies the interval policy.
type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	client    *asynq.Client

	orchestrator *service.Orchestrator
	store        repository.MappingStore
}

func New(cfg *config.Config, orchestrator *service.Orchestrator, store repository.MappingStore) *Worker {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 5,
		Logger:      asynqLogger{},
	})

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Logger: asynqLogger{},
	})

	return &Worker{
		server:       server,
		scheduler:    scheduler,
		client:       asynq.NewClient(redisOpt),
		orchestrator: orchestrator,
		store:        store,
	}
}

// Start registers handlers and the periodic tick, then begins processing.
// It returns once the server is running. spec is an asynq schedule such as
// "@every 1m" or a cron expression.
func (w *Worker) Start(spec string) error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskAutoImport, w.handleAutoImport)
	mux.HandleFunc(TaskAutoImportTick, w.handleTick)

	if _, err := w.scheduler.Register(spec, asynq.NewTask(TaskAutoImportTick, nil)); err != nil {
		return fmt.Errorf("register auto import tick: %w", err)
	}

	if err := w.scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	if err := w.server.Start(mux); err != nil {
		return fmt.Errorf("start worker server: %w", err)
	}
	logger.Info("Worker:Start:Running", "schedule", spec)
	return nil
}

// Shutdown stops the scheduler and drains in-flight tasks.
func (w *Worker) Shutdown() {
	w.scheduler.Shutdown()
	w.server.Shutdown()
	if err := w.client.Close(); err != nil {
		logger.Warn("Worker:Shutdown:ClientClose:Error", "error", err)
	}
}

// handleTick enqueues one import task per user so a slow account cannot
// starve the rest.
func (w *Worker) handleTick(ctx context.Context, _ *asynq.Task) error {
	users, err := w.store.ListUsersWithSettings(ctx)
	if err != nil {
		return fmt.Errorf("list users with sync settings: %w", err)
	}

	for _, userID := range users {
		payload, err := json.Marshal(autoImportPayload{UserID: userID})
		if err != nil {
			return err
		}
		task := asynq.NewTask(TaskAutoImport, payload)
		if _, err := w.client.EnqueueContext(ctx, task, asynq.MaxRetry(2), asynq.Timeout(10*time.Minute)); err != nil {
			logger.Error("Worker:HandleTick:Enqueue:Error", "user_id", userID, "error", err)
		}
	}
	logger.Debug("Worker:HandleTick:Enqueued", "users", len(users))
	return nil
}

func (w *Worker) handleAutoImport(ctx context.Context, task *asynq.Task) error {
	var payload autoImportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode auto import payload: %w", err)
	}

	result, err := w.orchestrator.HandleScheduledTick(ctx, payload.UserID)
	if err != nil {
		// Another run already holds the slot; the next tick will catch up.
		if errors.IsSyncInProgress(err) {
			logger.Debug("Worker:HandleAutoImport:AlreadyRunning", "user_id", payload.UserID)
			return nil
		}
		logger.Error("Worker:HandleAutoImport:Error", "user_id", payload.UserID, "error", err)
		return err
	}
	if result != nil {
		logger.Info("Worker:HandleAutoImport:Done", "user_id", payload.UserID,
			"succeeded", result.Succeeded, "failed", result.Failed, "skipped", result.Skipped)
	}
	return nil
}

// asynqLogger adapts asynq's logger interface onto the application logger.
type asynqLogger struct{}

func (asynqLogger) Debug(args ...interface{}) { logger.Debug(fmt.Sprint(args...)) }
func (asynqLogger) Info(args ...interface{})  { logger.Info(fmt.Sprint(args...)) }
func (asynqLogger) Warn(args ...interface{})  { logger.Warn(fmt.Sprint(args...)) }
func (asynqLogger) Error(args ...interface{}) { logger.Error(fmt.Sprint(args...)) }
func (asynqLogger) Fatal(args ...interface{}) { logger.Error(fmt.Sprint(args...)) }
