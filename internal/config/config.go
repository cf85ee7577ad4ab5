package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Campaign CampaignConfig `mapstructure:"campaign" validate:"required"`
	Delivery DeliveryConfig `mapstructure:"delivery" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// LogFile additionally writes logs to a rotated file when set
	LogFile string `mapstructure:"log_file"`

	// ShutdownTimeout bounds graceful shutdown of the HTTP server and the
	// execution units
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
// An empty URL selects the in-memory task store.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"               validate:"omitempty,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    validate:"gte=0,ltefield=MaxOpenConns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"   validate:"gt=0"`
}

// AuthConfig contains the admin authentication settings.
type AuthConfig struct {
	JWTSecret         string `mapstructure:"jwt_secret"          validate:"required,min=32"`
	AdminUsername     string `mapstructure:"admin_username"      validate:"required"`
	AdminPasswordHash string `mapstructure:"admin_password_hash" validate:"required"`

	// TokenLifetimeMinutes controls how long access tokens stay valid
	TokenLifetimeMinutes int `mapstructure:"token_lifetime_minutes" validate:"required,gt=0,lte=44640"`
}

// CampaignConfig tunes the task manager.
type CampaignConfig struct {
	PollInterval      time.Duration `mapstructure:"poll_interval"      validate:"gt=0"`
	RecoveryBackoff   time.Duration `mapstructure:"recovery_backoff"   validate:"gt=0"`
	SendTimeout       time.Duration `mapstructure:"send_timeout"       validate:"gt=0"`
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval" validate:"gte=0"`

	// TestMode allows tasks with a zero message interval
	TestMode bool `mapstructure:"test_mode"`
}

// DeliveryConfig selects and configures the delivery sender.
type DeliveryConfig struct {
	Driver           string        `mapstructure:"driver"            validate:"required,oneof=telegram log"`
	TelegramEndpoint string        `mapstructure:"telegram_endpoint"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"   validate:"gt=0"`
}
