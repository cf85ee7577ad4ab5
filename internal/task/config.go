package task

import "time"

// ManagerConfig holds configuration for the task manager and its units
type ManagerConfig struct {
	// PollInterval bounds how long a paused unit sleeps before re-checking
	// its signals. Signals also wake the unit early.
	PollInterval time.Duration

	// RecoveryBackoff is how long a unit waits after an unexpected error
	// (usually persistence) before it tries again
	RecoveryBackoff time.Duration

	// SendTimeout bounds a single delivery attempt
	SendTimeout time.Duration

	// StoreTimeout bounds a single persistence call made by a unit
	StoreTimeout time.Duration

	// ReconcileInterval defines how often Run looks for active tasks without
	// a live unit. Zero disables reconciliation.
	ReconcileInterval time.Duration

	// TestMode allows a zero message interval
	TestMode bool
}

// DefaultManagerConfig returns a ManagerConfig with reasonable defaults
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		PollInterval:      time.Second,
		RecoveryBackoff:   30 * time.Second,
		SendTimeout:       10 * time.Second,
		StoreTimeout:      5 * time.Second,
		ReconcileInterval: time.Minute,
	}
}

// withDefaults fills zero durations with defaults. ReconcileInterval is
// left alone because zero is meaningful.
func (c ManagerConfig) withDefaults() ManagerConfig {
	def := DefaultManagerConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.RecoveryBackoff <= 0 {
		c.RecoveryBackoff = def.RecoveryBackoff
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = def.SendTimeout
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = def.StoreTimeout
	}
	return c
}
