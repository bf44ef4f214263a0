package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"rehearsal-hub/core/cache"
	"rehearsal-hub/core/constants"
	"rehearsal-hub/core/errors"
	"rehearsal-hub/core/logger"
	"rehearsal-hub/modules/sync/dto"
	"rehearsal-hub/modules/sync/entity"
	"rehearsal-hub/modules/sync/repository"
)

// TriggerSource identifies what asked for an import run.
type TriggerSource string

const (
	TriggerForeground TriggerSource = "foreground"
	TriggerManual     TriggerSource = "manual"
	TriggerScheduled  TriggerSource = "scheduled"
)

const importLockTTL = 5 * time.Minute

// Orchestrator decides when reconciliation actually runs: it throttles
// bursts of identical triggers, enforces the configured import interval and
// guarantees a single run in flight per user.
type Orchestrator struct {
	imports  ImportService
	store    repository.MappingStore
	cache    cache.Cache // optional cross-instance lock
	throttle time.Duration
	now      func() time.Time

	mu          sync.Mutex
	lastTrigger map[uuid.UUID]time.Time
	running     map[uuid.UUID]bool
}

func NewOrchestrator(imports ImportService, store repository.MappingStore, c cache.Cache) *Orchestrator {
	return &Orchestrator{
		imports:     imports,
		store:       store,
		cache:       c,
		throttle:    constants.TriggerThrottleWindow,
		now:         time.Now,
		lastTrigger: make(map[uuid.UUID]time.Time),
		running:     make(map[uuid.UUID]bool),
	}
}

// HandleForeground runs on the app-returned-to-foreground signal. A nil
// result with nil error means the trigger was absorbed.
func (o *Orchestrator) HandleForeground(ctx context.Context, userID uuid.UUID) (*dto.ImportResult, error) {
	return o.trigger(ctx, userID, TriggerForeground, false)
}

// TriggerManual is the user's explicit "sync now". force bypasses the
// interval policy but never the import-enabled switch.
func (o *Orchestrator) TriggerManual(ctx context.Context, userID uuid.UUID, force bool) (*dto.ImportResult, error) {
	return o.trigger(ctx, userID, TriggerManual, force)
}

// HandleScheduledTick runs from the periodic background task.
func (o *Orchestrator) HandleScheduledTick(ctx context.Context, userID uuid.UUID) (*dto.ImportResult, error) {
	return o.trigger(ctx, userID, TriggerScheduled, false)
}

// IsRunning reports whether an import is in flight for the user.
func (o *Orchestrator) IsRunning(userID uuid.UUID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running[userID]
}

func (o *Orchestrator) trigger(ctx context.Context, userID uuid.UUID, source TriggerSource, force bool) (*dto.ImportResult, error) {
	now := o.now()

	// The OS can deliver the same foreground transition more than once in
	// quick succession; within the throttle window every trigger is
	// absorbed, policy or not.
	o.mu.Lock()
	if last, ok := o.lastTrigger[userID]; ok && now.Sub(last) < o.throttle {
		o.mu.Unlock()
		logger.Debug("Orchestrator:Trigger:Throttled", "user_id", userID, "source", source)
		return nil, nil
	}
	o.mu.Unlock()

	settings, err := o.store.GetSettings(ctx, userID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to read sync settings", err)
	}

	if !settings.ImportEnabled {
		if source == TriggerManual {
			return nil, errors.NewAppError(errors.ErrPreconditionFailed, "calendar import is not enabled", nil)
		}
		return nil, nil
	}
	if len(settings.ImportCalendarIDs) == 0 {
		if source == TriggerManual {
			return nil, errors.NewAppError(errors.ErrPreconditionFailed, "no import calendars selected", nil)
		}
		return nil, nil
	}

	if !force && !o.isDue(settings.ImportInterval, settings.LastImportTime, now) {
		logger.Debug("Orchestrator:Trigger:NotDue", "user_id", userID, "source", source, "interval", settings.ImportInterval)
		return nil, nil
	}

	// Single-slot guard: a run already in flight wins, concurrent
	// triggers are rejected rather than queued.
	o.mu.Lock()
	if o.running[userID] {
		o.mu.Unlock()
		return nil, errors.NewAppError(errors.ErrSyncInProgress, "an import is already running", nil)
	}
	o.running[userID] = true
	o.lastTrigger[userID] = now
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.running[userID] = false
		o.mu.Unlock()
	}()

	if o.cache != nil {
		lockKey := "sync:import-lock:" + userID.String()
		acquired, err := o.cache.SetNX(ctx, lockKey, string(source), importLockTTL)
		if err != nil {
			// The local guard still holds; losing the distributed
			// lock only matters across instances.
			logger.Warn("Orchestrator:Trigger:LockError", "user_id", userID, "error", err)
		} else if !acquired {
			return nil, errors.NewAppError(errors.ErrSyncInProgress, "an import is already running", nil)
		} else {
			defer func() {
				if err := o.cache.Delete(ctx, lockKey); err != nil {
					logger.Warn("Orchestrator:Trigger:Unlock:Error", "user_id", userID, "error", err)
				}
			}()
		}
	}

	logger.Info("Orchestrator:Trigger:Run", "user_id", userID, "source", source, "force", force)
	return o.imports.Reconcile(ctx, userID, settings.ImportCalendarIDs, nil)
}

// isDue applies the interval policy: "always" means every trigger, "manual"
// means never automatically.
func (o *Orchestrator) isDue(interval entity.ImportInterval, lastImport *time.Time, now time.Time) bool {
	gap, auto := interval.Duration()
	if !auto {
		return false
	}
	if lastImport == nil {
		return true
	}
	return now.Sub(*lastImport) >= gap
}
