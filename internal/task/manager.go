package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/relay-api/internal/concurrency"
	"github.com/phrazzld/relay-api/internal/delivery"
	"github.com/phrazzld/relay-api/internal/domain"
	"github.com/phrazzld/relay-api/internal/events"
	"github.com/phrazzld/relay-api/internal/store"
)

// TaskState is a task record together with whether a live unit owns it.
type TaskState struct {
	Task *domain.Task
	Live bool
}

// RecoveryReport summarizes a RecoverOnBoot run.
type RecoveryReport struct {
	// Recovered counts units spawned, paused ones included
	Recovered int

	// Paused counts units spawned in the paused state
	Paused int

	// Skipped counts tasks that already had a unit
	Skipped int

	// Errors counts tasks whose unit could not be spawned
	Errors int
}

// Manager owns the execution units of all campaign tasks.
type Manager struct {
	store    store.TaskStore
	sender   delivery.Sender
	emitter  events.EventEmitter
	registry *Registry
	locks    *concurrency.KeyedMutex[uuid.UUID]
	config   ManagerConfig
	logger   *slog.Logger

	// mu guards closed so no unit is added to wg once Shutdown waits on it
	mu     sync.Mutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a Manager. emitter may be nil. If logger is nil, a
// default logger will be used.
func NewManager(
	taskStore store.TaskStore,
	sender delivery.Sender,
	emitter events.EventEmitter,
	config ManagerConfig,
	logger *slog.Logger,
) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		store:    taskStore,
		sender:   sender,
		emitter:  emitter,
		registry: NewRegistry(),
		locks:    concurrency.NewKeyedMutex[uuid.UUID](),
		config:   config.withDefaults(),
		logger:   logger.With("component", "task_manager"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Registry exposes the live handle registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// CreateAndStart validates cfg, persists a new running task and spawns its unit.
func (m *Manager) CreateAndStart(ctx context.Context, cfg domain.TaskConfig) (*domain.Task, error) {
	if m.ctx.Err() != nil {
		return nil, ErrClosed
	}

	t, err := domain.NewTask(cfg, m.config.TestMode)
	if err != nil {
		return nil, err
	}

	m.locks.Lock(t.ID)
	defer m.locks.Unlock(t.ID)

	if err := m.store.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	if err := m.spawn(t.ID, false); err != nil {
		return nil, err
	}

	m.logger.Info("task created",
		"task_id", t.ID,
		"messages", len(t.Config.Messages),
		"credentials", len(t.Config.Credentials),
		"interval", t.Config.Interval)
	m.emit(t, domain.TaskStatusRunning)
	return t, nil
}

// Pause suspends deliveries of a task that has a live unit.
func (m *Manager) Pause(ctx context.Context, id uuid.UUID) error {
	m.locks.Lock(id)
	defer m.locks.Unlock(id)

	t, err := m.load(ctx, id)
	if err != nil {
		return err
	}

	h, ok := m.registry.Lookup(id)
	if !ok || t.Status == domain.TaskStatusStopped {
		return fmt.Errorf("%w: %s", ErrNotRunning, id)
	}

	h.Pause()
	if t.Status == domain.TaskStatusPaused {
		return nil
	}

	err = m.store.Update(ctx, id, store.StatusUpdate(domain.TaskStatusPaused,
		domain.TaskStatusRunning, domain.TaskStatusFailed))
	if err != nil {
		h.Resume()
		return m.mapStoreError(id, "pause", err)
	}

	m.logger.Info("task paused", "task_id", id)
	m.emit(t, domain.TaskStatusPaused)
	return nil
}

// Resume continues a paused task. Resuming a running or failed task is a no-op.
func (m *Manager) Resume(ctx context.Context, id uuid.UUID) error {
	m.locks.Lock(id)
	defer m.locks.Unlock(id)

	t, err := m.load(ctx, id)
	if err != nil {
		return err
	}

	h, ok := m.registry.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRunning, id)
	}

	switch t.Status {
	case domain.TaskStatusRunning, domain.TaskStatusFailed:
		h.Resume()
		return nil
	case domain.TaskStatusStopped:
		return fmt.Errorf("%w: %s", ErrNotRunning, id)
	}

	h.Resume()
	err = m.store.Update(ctx, id, store.StatusUpdate(domain.TaskStatusRunning, domain.TaskStatusPaused))
	if err != nil {
		h.Pause()
		return m.mapStoreError(id, "resume", err)
	}

	m.logger.Info("task resumed", "task_id", id)
	m.emit(t, domain.TaskStatusRunning)
	return nil
}

// Stop persists the stopped status and tells the unit to exit. It does not
// wait for the unit. Stopping a stopped task is a no-op.
func (m *Manager) Stop(ctx context.Context, id uuid.UUID) error {
	m.locks.Lock(id)
	defer m.locks.Unlock(id)

	return m.stopLocked(ctx, id)
}

// Delete stops a task and removes its record.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	m.locks.Lock(id)
	defer m.locks.Unlock(id)

	if err := m.stopLocked(ctx, id); err != nil {
		return err
	}

	if err := m.store.Delete(ctx, id); err != nil {
		return m.mapStoreError(id, "delete", err)
	}

	m.logger.Info("task deleted", "task_id", id)
	return nil
}

// Start spawns a fresh unit for a task that has none, typically a stopped
// one. Counters and cursor carry over from the record.
func (m *Manager) Start(ctx context.Context, id uuid.UUID) error {
	if m.ctx.Err() != nil {
		return ErrClosed
	}

	m.locks.Lock(id)
	defer m.locks.Unlock(id)

	t, err := m.load(ctx, id)
	if err != nil {
		return err
	}

	if m.registry.registered(id) {
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, id)
	}

	if t.Status != domain.TaskStatusRunning {
		if err := m.store.Update(ctx, id, store.StatusUpdate(domain.TaskStatusRunning)); err != nil {
			return m.mapStoreError(id, "start", err)
		}
	}

	if err := m.spawn(id, false); err != nil {
		return err
	}

	m.logger.Info("task started", "task_id", id, "previous_status", t.Status)
	m.emit(t, domain.TaskStatusRunning)
	return nil
}

// RecoverOnBoot spawns a unit for every running, paused and failed task.
// Paused tasks get a unit that starts paused.
func (m *Manager) RecoverOnBoot(ctx context.Context) (RecoveryReport, error) {
	var report RecoveryReport

	if m.ctx.Err() != nil {
		return report, ErrClosed
	}

	tasks, err := m.store.List(ctx, domain.ActiveStatuses...)
	if err != nil {
		return report, fmt.Errorf("failed to list active tasks: %w", err)
	}

	for _, t := range tasks {
		paused := t.Status == domain.TaskStatusPaused

		m.locks.Lock(t.ID)
		err := m.spawn(t.ID, paused)
		m.locks.Unlock(t.ID)

		switch {
		case err == nil:
			report.Recovered++
			if paused {
				report.Paused++
			}
		case errors.Is(err, ErrAlreadyRunning):
			report.Skipped++
		default:
			report.Errors++
			m.logger.Error("failed to recover task", "task_id", t.ID, "error", err)
		}
	}

	m.logger.Info("recovered tasks",
		"recovered", report.Recovered,
		"paused", report.Paused,
		"skipped", report.Skipped,
		"errors", report.Errors)
	return report, nil
}

// GetStatus returns the task record and whether a live unit owns it.
func (m *Manager) GetStatus(ctx context.Context, id uuid.UUID) (*TaskState, error) {
	t, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}

	_, live := m.registry.Lookup(id)
	return &TaskState{Task: t, Live: live}, nil
}

// ListTasks returns every task whose status is in filter, or all tasks when
// filter is empty.
func (m *Manager) ListTasks(ctx context.Context, filter ...domain.TaskStatus) ([]TaskState, error) {
	tasks, err := m.store.List(ctx, filter...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	out := make([]TaskState, 0, len(tasks))
	for _, t := range tasks {
		_, live := m.registry.Lookup(t.ID)
		out = append(out, TaskState{Task: t, Live: live})
	}
	return out, nil
}

// Shutdown cancels every unit without touching persisted statuses, so the
// next RecoverOnBoot picks the tasks up again. It waits for the units to
// exit or for ctx to be done.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.cancel()
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("all execution units stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for execution units: %w", ctx.Err())
	}
}

// Run periodically respawns units for active tasks that have none, for
// example after a unit gave up loading its record. It returns when ctx is
// done or the manager is shut down.
func (m *Manager) Run(ctx context.Context) error {
	if m.config.ReconcileInterval <= 0 {
		select {
		case <-ctx.Done():
		case <-m.ctx.Done():
		}
		return nil
	}

	ticker := time.NewTicker(m.config.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-m.ctx.Done():
			return nil
		case <-ticker.C:
			m.reconcile(ctx)
		}
	}
}

// reconcile spawns units for orphaned active tasks. Tasks whose lock is held
// by a control operation are left for the next round.
func (m *Manager) reconcile(ctx context.Context) {
	tasks, err := m.store.List(ctx, domain.ActiveStatuses...)
	if err != nil {
		m.logger.Error("failed to list tasks for reconciliation", "error", err)
		return
	}

	for _, listed := range tasks {
		if m.registry.registered(listed.ID) || !m.locks.TryLock(listed.ID) {
			continue
		}

		// Re-read under the lock; a control operation may have run since List
		t, err := m.store.Get(ctx, listed.ID)
		if err == nil && t.Status != domain.TaskStatusStopped && !m.registry.registered(t.ID) {
			if spawnErr := m.spawn(t.ID, t.Status == domain.TaskStatusPaused); spawnErr == nil {
				m.logger.Warn("respawned orphaned task", "task_id", t.ID, "status", t.Status)
			}
		}
		m.locks.Unlock(listed.ID)
	}
}

// stopLocked implements Stop; the caller holds the key lock.
func (m *Manager) stopLocked(ctx context.Context, id uuid.UUID) error {
	t, err := m.load(ctx, id)
	if err != nil {
		return err
	}

	if t.Status != domain.TaskStatusStopped {
		if err := m.store.Update(ctx, id, store.StatusUpdate(domain.TaskStatusStopped)); err != nil {
			return m.mapStoreError(id, "stop", err)
		}
		m.logger.Info("task stopped", "task_id", id)
		m.emit(t, domain.TaskStatusStopped)
	}

	if h, ok := m.registry.Lookup(id); ok {
		h.Stop()
	}
	return nil
}

// spawn registers a handle and starts the unit goroutine. The caller holds
// the key lock.
func (m *Manager) spawn(id uuid.UUID, paused bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	h := newHandle(m.ctx, id, paused)
	if err := m.registry.Register(id, h); err != nil {
		h.cancel()
		return err
	}

	u := &unit{
		id:       id,
		handle:   h,
		registry: m.registry,
		store:    m.store,
		sender:   m.sender,
		emitter:  m.emitter,
		config:   m.config,
		logger:   m.logger.With("task_id", id.String(), "component", "execution_unit"),
		wg:       &m.wg,
	}

	m.wg.Add(1)
	go u.run()
	return nil
}

// load reads a task, translating a missing record into ErrNotFound.
func (m *Manager) load(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	t, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, m.mapStoreError(id, "load", err)
	}
	return t, nil
}

func (m *Manager) mapStoreError(id uuid.UUID, op string, err error) error {
	if store.IsNotFoundError(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return fmt.Errorf("failed to %s task %s: %w", op, id, err)
}

func (m *Manager) emit(t *domain.Task, status domain.TaskStatus) {
	if m.emitter == nil {
		return
	}
	event := events.NewTaskEvent(events.TypeStatusChanged, t.ID, status, t.Counters)
	_ = m.emitter.EmitEvent(context.Background(), event)
}
