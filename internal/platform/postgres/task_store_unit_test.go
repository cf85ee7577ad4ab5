package postgres

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/relay-api/internal/domain"
	"github.com/phrazzld/relay-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceConverter lets string slices through to the mock driver the way
// pgx's stdlib driver accepts them for text[] parameters.
type sliceConverter struct{}

func (sliceConverter) ConvertValue(v any) (driver.Value, error) {
	if s, ok := v.([]string); ok {
		return s, nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

func newPgErr(code string) *pgconn.PgError {
	return &pgconn.PgError{Code: code, Message: "mock error", TableName: "tasks"}
}

func newMockStore(t *testing.T) (*PostgresTaskStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(sliceConverter{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewPostgresTaskStore(db, slog.New(slog.NewTextHandler(io.Discard, nil))), mock
}

func testTask(t *testing.T) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(domain.TaskConfig{
		Messages:    []string{"A", "B"},
		Credentials: []string{"tok"},
		Interval:    time.Second,
		Target:      "@chan",
	}, false)
	require.NoError(t, err)
	return task
}

func taskRows(t *testing.T, tasks ...*domain.Task) *sqlmock.Rows {
	t.Helper()
	rows := sqlmock.NewRows([]string{
		"id", "config", "status", "messages_sent", "failed_count", "attempt_cursor", "created_at", "updated_at",
	})
	for _, task := range tasks {
		config, err := json.Marshal(task.Config)
		require.NoError(t, err)
		rows.AddRow(
			task.ID.String(), config, string(task.Status),
			task.Counters.MessagesSent, task.Counters.FailedCount, task.Counters.Cursor,
			task.CreatedAt, task.UpdatedAt,
		)
	}
	return rows
}

func TestPostgresTaskStore_Create(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	task := testTask(t)

	mock.ExpectExec("INSERT INTO tasks").
		WithArgs(task.ID, sqlmock.AnyArg(), "running", int64(0), int64(0), int64(0), task.CreatedAt, task.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Create(context.Background(), task))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTaskStore_CreateDuplicate(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	task := testTask(t)

	mock.ExpectExec("INSERT INTO tasks").
		WillReturnError(newPgErr("23505"))

	err := s.Create(context.Background(), task)
	assert.ErrorIs(t, err, store.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTaskStore_Get(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t)
		task := testTask(t)
		task.Counters = domain.Counters{MessagesSent: 3, FailedCount: 1, Cursor: 4}

		mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id").
			WithArgs(task.ID).
			WillReturnRows(taskRows(t, task))

		got, err := s.Get(context.Background(), task.ID)
		require.NoError(t, err)
		assert.Equal(t, task.ID, got.ID)
		assert.Equal(t, task.Config, got.Config)
		assert.Equal(t, task.Counters, got.Counters)
		assert.Equal(t, domain.TaskStatusRunning, got.Status)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t)
		id := uuid.New()

		mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id").
			WithArgs(id).
			WillReturnRows(taskRows(t))

		_, err := s.Get(context.Background(), id)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})

	t.Run("corrupt row", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t)
		task := testTask(t)
		now := time.Now().UTC()

		mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id").
			WithArgs(task.ID).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "config", "status", "messages_sent", "failed_count", "attempt_cursor", "created_at", "updated_at",
			}).AddRow(task.ID.String(), []byte(`{"messages":`), "running", 0, 0, 0, now, now))

		_, err := s.Get(context.Background(), task.ID)
		require.Error(t, err)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)

		var storeErr *store.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "scan", storeErr.Operation)
	})
}

func TestPostgresTaskStore_List(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	first, second := testTask(t), testTask(t)
	second.Status = domain.TaskStatusPaused

	mock.ExpectQuery("SELECT (.+) FROM tasks").
		WithArgs([]string{"running", "paused"}).
		WillReturnRows(taskRows(t, first, second))

	tasks, err := s.List(context.Background(), domain.TaskStatusRunning, domain.TaskStatusPaused)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, domain.TaskStatusPaused, tasks[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTaskStore_Update(t *testing.T) {
	t.Parallel()

	t.Run("counters", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t)
		id := uuid.New()

		mock.ExpectExec("UPDATE tasks").
			WithArgs(id, nil, int64(2), int64(1), int64(3), sqlmock.AnyArg(), []string{}).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := s.Update(context.Background(), id, store.CountersUpdate(domain.Counters{MessagesSent: 2, FailedCount: 1, Cursor: 3}))
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("precondition conflict", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t)
		id := uuid.New()

		mock.ExpectExec("UPDATE tasks").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		err := s.Update(context.Background(), id, store.StatusUpdate(domain.TaskStatusFailed, domain.TaskStatusRunning))
		assert.ErrorIs(t, err, store.ErrStatusConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("precondition on missing row", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t)
		id := uuid.New()

		mock.ExpectExec("UPDATE tasks").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		err := s.Update(context.Background(), id, store.StatusUpdate(domain.TaskStatusFailed, domain.TaskStatusRunning))
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})

	t.Run("missing row", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t)

		mock.ExpectExec("UPDATE tasks").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := s.Update(context.Background(), uuid.New(), store.StatusUpdate(domain.TaskStatusStopped))
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid status", func(t *testing.T) {
		t.Parallel()
		s, _ := newMockStore(t)

		err := s.Update(context.Background(), uuid.New(), store.StatusUpdate("archived"))
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})
}

func TestPostgresTaskStore_Delete(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec("DELETE FROM tasks").WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM tasks").WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Delete(context.Background(), id))
	assert.ErrorIs(t, s.Delete(context.Background(), id), store.ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
