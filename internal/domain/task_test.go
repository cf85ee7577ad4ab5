package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() TaskConfig {
	return TaskConfig{
		Messages:    []string{"A", "B"},
		Credentials: []string{"tok1"},
		Interval:    time.Second,
		Target:      "@channel",
	}
}

func TestTaskConfig_Validate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		mutate    func(c *TaskConfig)
		allowZero bool
		wantErr   bool
	}{
		{name: "valid config", mutate: func(c *TaskConfig) {}},
		{name: "zero interval", mutate: func(c *TaskConfig) { c.Interval = 0 }, wantErr: true},
		{name: "zero interval in test mode", mutate: func(c *TaskConfig) { c.Interval = 0 }, allowZero: true},
		{name: "negative interval in test mode", mutate: func(c *TaskConfig) { c.Interval = -time.Second }, allowZero: true, wantErr: true},
		{name: "no messages", mutate: func(c *TaskConfig) { c.Messages = nil }, wantErr: true},
		{name: "no credentials", mutate: func(c *TaskConfig) { c.Credentials = []string{} }, wantErr: true},
		{name: "blank message", mutate: func(c *TaskConfig) { c.Messages = []string{"A", "  "} }, wantErr: true},
		{name: "blank credential", mutate: func(c *TaskConfig) { c.Credentials = []string{""} }, wantErr: true},
		{name: "missing target", mutate: func(c *TaskConfig) { c.Target = "" }, wantErr: true},
		{name: "negative cycles", mutate: func(c *TaskConfig) { c.Cycles = -1 }, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tc.mutate(&cfg)

			err := cfg.Validate(tc.allowZero)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTaskConfig_Render(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	assert.Equal(t, "hello", cfg.Render("hello"), "empty prefix should be omitted")

	cfg.Prefix = "[promo] "
	assert.Equal(t, "[promo] hello", cfg.Render("hello"))
}

func TestNewTask(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	task, err := NewTask(cfg, false)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, task.ID)
	assert.Equal(t, TaskStatusRunning, task.Status)
	assert.Equal(t, Counters{}, task.Counters)
	assert.False(t, task.CreatedAt.IsZero())

	// The stored config must not alias the caller's slices
	cfg.Messages[0] = "mutated"
	assert.Equal(t, "A", task.Config.Messages[0])

	_, err = NewTask(TaskConfig{}, false)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestCounters_Merge(t *testing.T) {
	t.Parallel()

	a := Counters{MessagesSent: 5, FailedCount: 1, Cursor: 6}
	b := Counters{MessagesSent: 3, FailedCount: 4, Cursor: 7}

	merged := a.Merge(b)
	assert.Equal(t, Counters{MessagesSent: 5, FailedCount: 4, Cursor: 7}, merged)
	assert.Equal(t, int64(9), merged.Attempts())
}

func TestParseTaskStatus(t *testing.T) {
	t.Parallel()

	status, err := ParseTaskStatus(" Paused ")
	require.NoError(t, err)
	assert.Equal(t, TaskStatusPaused, status)

	_, err = ParseTaskStatus("completed")
	assert.ErrorIs(t, err, ErrInvalidTaskStatus)
}
