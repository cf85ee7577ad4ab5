package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/relay-api/internal/delivery"
	"github.com/phrazzld/relay-api/internal/domain"
	"github.com/phrazzld/relay-api/internal/events"
	"github.com/phrazzld/relay-api/internal/redact"
	"github.com/phrazzld/relay-api/internal/store"
)

// unit is the execution unit of one task. Only its own goroutine touches
// the fields below handle.
type unit struct {
	id       uuid.UUID
	handle   *Handle
	registry *Registry
	store    store.TaskStore
	sender   delivery.Sender
	emitter  events.EventEmitter
	config   ManagerConfig
	logger   *slog.Logger
	wg       *sync.WaitGroup

	task     *domain.Task
	counters domain.Counters

	// failed is set once the unit has marked its task failed and cleared
	// when the status is restored
	failed bool
}

// run is the unit's goroutine body.
func (u *unit) run() {
	defer func() {
		u.registry.release(u.id, u.handle)
		close(u.handle.done)
		u.wg.Done()
	}()

	if !u.load() {
		return
	}

	u.logger.Info("execution unit started",
		"cursor", u.counters.Cursor,
		"paused", u.handle.Paused())

	for !u.handle.Stopped() {
		if u.handle.Paused() {
			u.idle(u.config.PollInterval)
			continue
		}

		err := u.safePass()
		switch {
		case err == nil, errors.Is(err, errStopped):
			// the loop condition sees the stop
		case errors.Is(err, errDeleted):
			u.logger.Info("task record deleted, execution unit exiting")
			return
		default:
			u.markFailed(err)
			u.backoff()
		}
	}

	u.logger.Info("execution unit stopped",
		"messages_sent", u.counters.MessagesSent,
		"failed_count", u.counters.FailedCount)
}

// load reads the task record, retrying unexpected errors until it succeeds
// or the unit is stopped. It returns false when the unit should exit.
func (u *unit) load() bool {
	for {
		ctx, cancel := u.storeCtx()
		t, err := u.store.Get(ctx, u.id)
		cancel()

		switch {
		case err == nil:
			u.task = t
			u.counters = t.Counters
			// A task recovered in the failed state returns to running on the
			// first successful persist
			u.failed = t.Status == domain.TaskStatusFailed
			return true
		case store.IsNotFoundError(err):
			u.logger.Debug("task record missing at unit start")
			return false
		}

		u.logger.Error("failed to load task", "error", redact.Error(err))
		if !u.backoff() {
			return false
		}
	}
}

// safePass runs one pass and converts a panic into an error.
func (u *unit) safePass() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in execution unit: %v", r)
		}
	}()
	return u.pass()
}

// pass delivers attempts from the current cursor until the pass ends, the
// unit is paused or stopped, or an unexpected error occurs.
func (u *unit) pass() error {
	cfg := u.task.Config
	perCycle := int64(cfg.AttemptsPerCycle())
	credCount := int64(len(cfg.Credentials))

	// Flush counters kept in memory during a failure before sending more
	if u.failed {
		if err := u.persist(); err != nil {
			return err
		}
	}

	for {
		if u.handle.Stopped() {
			return errStopped
		}
		if u.handle.Paused() {
			return nil
		}

		if cfg.Cycles > 0 && u.counters.Cursor >= int64(cfg.Cycles)*perCycle {
			// Every configured pass is done. The unit stays registered until
			// it is stopped.
			u.idle(u.config.PollInterval)
			return nil
		}

		pos := u.counters.Cursor % perCycle
		message := cfg.Messages[pos/credCount]
		credential := cfg.Credentials[pos%credCount]

		sendCtx, cancel := context.WithTimeout(u.handle.ctx, u.config.SendTimeout)
		sendErr := u.sender.Send(sendCtx, credential, cfg.Target, cfg.Render(message))
		cancel()

		if sendErr != nil && u.handle.Stopped() && errors.Is(sendErr, context.Canceled) {
			// Cut short by stop: not counted, the cursor stays on this
			// attempt. A call that finished with its own outcome is counted
			// below even when stop arrived meanwhile.
			return errStopped
		}

		next := u.counters
		if sendErr == nil {
			next.MessagesSent++
		} else {
			next.FailedCount++
			u.logger.Warn("delivery attempt failed",
				"credential", redact.Credential(credential),
				"error", redact.Error(sendErr))
		}
		next.Cursor++
		u.counters = next

		if err := u.persist(); err != nil {
			return err
		}
		if sendErr == nil {
			u.emit(events.TypeDeliverySucceeded, domain.TaskStatusRunning)
		}

		// Last credential of a message: wait before the next message
		if pos%credCount == credCount-1 && !u.wait(cfg.Interval) {
			return errStopped
		}

		if next.Cursor%perCycle == 0 {
			return nil
		}
	}
}

// persist writes the in-memory counters and, when the unit had marked its
// task failed, restores the running status.
func (u *unit) persist() error {
	ctx, cancel := u.storeCtx()
	defer cancel()

	if err := u.store.Update(ctx, u.id, store.CountersUpdate(u.counters)); err != nil {
		if store.IsNotFoundError(err) {
			return errDeleted
		}
		return fmt.Errorf("failed to persist counters: %w", err)
	}

	if !u.failed {
		return nil
	}

	err := u.store.Update(ctx, u.id,
		store.StatusUpdate(domain.TaskStatusRunning, domain.TaskStatusFailed))
	switch {
	case err == nil:
		u.failed = false
		u.logger.Info("task recovered from failure")
		u.emit(events.TypeStatusChanged, domain.TaskStatusRunning)
	case store.IsStatusConflictError(err):
		// Someone else moved the status on (pause or stop)
		u.failed = false
	case store.IsNotFoundError(err):
		return errDeleted
	default:
		u.logger.Warn("failed to restore running status", "error", redact.Error(err))
	}
	return nil
}

// markFailed records an unexpected error. The status only moves to failed
// from running, so a concurrent pause or stop is never overwritten.
func (u *unit) markFailed(cause error) {
	u.logger.Error("execution unit error", "error", redact.Error(cause))
	u.failed = true

	ctx, cancel := u.storeCtx()
	defer cancel()

	err := u.store.Update(ctx, u.id,
		store.StatusUpdate(domain.TaskStatusFailed, domain.TaskStatusRunning))
	switch {
	case err == nil:
		u.emit(events.TypeStatusChanged, domain.TaskStatusFailed)
	case store.IsStatusConflictError(err):
	default:
		u.logger.Warn("failed to persist failed status", "error", redact.Error(err))
	}
}

// idle sleeps for d or until a signal changes.
func (u *unit) idle(d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-u.handle.wake:
	case <-u.handle.ctx.Done():
	}
}

// wait sleeps for the message interval. It returns early when the unit is
// paused, and returns false when the unit is stopped.
func (u *unit) wait(d time.Duration) bool {
	if d <= 0 {
		return !u.handle.Stopped()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			return true
		case <-u.handle.ctx.Done():
			return false
		case <-u.handle.wake:
			if u.handle.Stopped() {
				return false
			}
			if u.handle.Paused() {
				return true
			}
		}
	}
}

// backoff sleeps for RecoveryBackoff, preemptible only by stop. It returns
// false when the unit is stopped.
func (u *unit) backoff() bool {
	timer := time.NewTimer(u.config.RecoveryBackoff)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-u.handle.ctx.Done():
		return false
	}
}

// storeCtx returns a context for one persistence call. It survives the stop
// signal so the outcome of a finished attempt is still recorded.
func (u *unit) storeCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(u.handle.ctx), u.config.StoreTimeout)
}

func (u *unit) emit(eventType string, status domain.TaskStatus) {
	if u.emitter == nil {
		return
	}
	event := events.NewTaskEvent(eventType, u.id, status, u.counters)
	_ = u.emitter.EmitEvent(context.Background(), event)
}
