package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/relay-api/internal/domain"
	"github.com/phrazzld/relay-api/internal/platform/logger"
	"github.com/phrazzld/relay-api/internal/store"
)

const taskColumns = `id, config, status, messages_sent, failed_count, attempt_cursor, created_at, updated_at`

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// NewPostgresTaskStore creates a new PostgresTaskStore.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if task == nil || task.ID == uuid.Nil || !task.Status.IsValid() {
		return store.ErrInvalidEntity
	}

	config, err := json.Marshal(task.Config)
	if err != nil {
		return fmt.Errorf("%w: failed to encode config: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = s.db.ExecContext(ctx, query,
		task.ID,
		config,
		string(task.Status),
		task.Counters.MessagesSent,
		task.Counters.FailedCount,
		task.Counters.Cursor,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create task",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	log.Debug("task created", slog.String("task_id", task.ID.String()))
	return nil
}

// Get implements store.TaskStore.Get
func (s *PostgresTaskStore) Get(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.String("task_id", id.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task",
			slog.String("task_id", id.String()),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return task, nil
}

// List implements store.TaskStore.List
func (s *PostgresTaskStore) List(ctx context.Context, statuses ...domain.TaskStatus) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE cardinality($1::text[]) = 0 OR status = ANY($1::text[])
		ORDER BY created_at, id
	`

	rows, err := s.db.QueryContext(ctx, query, statusStrings(statuses))
	if err != nil {
		log.Error("failed to list tasks", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}

	log.Debug("tasks listed", slog.Int("count", len(tasks)))
	return tasks, nil
}

// Update implements store.TaskStore.Update
//
// Counter columns use GREATEST so a replayed or reordered write can never
// move a counter backwards. The IfStatus precondition is part of the WHERE
// clause, so the check and the write are a single atomic statement.
func (s *PostgresTaskStore) Update(ctx context.Context, id uuid.UUID, update store.TaskUpdate) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var status sql.NullString
	if update.Status != nil {
		if !update.Status.IsValid() {
			return store.ErrInvalidEntity
		}
		status = sql.NullString{String: string(*update.Status), Valid: true}
	}

	var sent, failed, cursor sql.NullInt64
	if update.Counters != nil {
		sent = sql.NullInt64{Int64: update.Counters.MessagesSent, Valid: true}
		failed = sql.NullInt64{Int64: update.Counters.FailedCount, Valid: true}
		cursor = sql.NullInt64{Int64: update.Counters.Cursor, Valid: true}
	}

	query := `
		UPDATE tasks
		SET status = COALESCE($2, status),
			messages_sent = GREATEST(messages_sent, COALESCE($3, messages_sent)),
			failed_count = GREATEST(failed_count, COALESCE($4, failed_count)),
			attempt_cursor = GREATEST(attempt_cursor, COALESCE($5, attempt_cursor)),
			updated_at = $6
		WHERE id = $1
			AND (cardinality($7::text[]) = 0 OR status = ANY($7::text[]))
	`

	result, err := s.db.ExecContext(ctx, query,
		id,
		status,
		sent,
		failed,
		cursor,
		time.Now().UTC(),
		statusStrings(update.IfStatus),
	)
	if err != nil {
		log.Error("failed to update task",
			slog.String("task_id", id.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	err = CheckRowsAffected(result, store.ErrTaskNotFound)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrTaskNotFound) || len(update.IfStatus) == 0 {
		return err
	}

	// Nothing matched: either the row is gone or the precondition failed
	exists, existsErr := s.exists(ctx, id)
	if existsErr != nil {
		return existsErr
	}
	if exists {
		return store.ErrStatusConflict
	}
	return store.ErrTaskNotFound
}

// Delete implements store.TaskStore.Delete
func (s *PostgresTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("task_id", id.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
		return err
	}

	log.Debug("task deleted", slog.String("task_id", id.String()))
	return nil
}

func (s *PostgresTaskStore) exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, MapError(err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task   domain.Task
		config []byte
		status string
	)

	err := row.Scan(
		&task.ID,
		&config,
		&status,
		&task.Counters.MessagesSent,
		&task.Counters.FailedCount,
		&task.Counters.Cursor,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(config, &task.Config); err != nil {
		return nil, store.NewStoreError("task", "scan", "failed to decode config",
			fmt.Errorf("%w: %v", store.ErrInvalidEntity, err))
	}
	task.Status = domain.TaskStatus(status)
	if !task.Status.IsValid() {
		return nil, store.NewStoreError("task", "scan", "unknown status "+status, store.ErrInvalidEntity)
	}

	return &task, nil
}

func statusStrings(statuses []domain.TaskStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, string(st))
	}
	return out
}
