package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. RELAY_SERVER_PORT.
const EnvPrefix = "RELAY"

// keys lists every configuration key so each can be bound to its
// environment variable even when no default or file value exists.
var keys = []string{
	"server.port",
	"server.log_level",
	"server.log_file",
	"server.shutdown_timeout",
	"database.url",
	"database.max_open_conns",
	"database.max_idle_conns",
	"database.conn_max_lifetime",
	"database.connect_timeout",
	"auth.jwt_secret",
	"auth.admin_username",
	"auth.admin_password_hash",
	"auth.token_lifetime_minutes",
	"campaign.poll_interval",
	"campaign.recovery_backoff",
	"campaign.send_timeout",
	"campaign.reconcile_interval",
	"campaign.test_mode",
	"delivery.driver",
	"delivery.telegram_endpoint",
	"delivery.request_timeout",
}

// Load reads configuration from config.yaml in the working directory (if
// present) and from RELAY_ environment variables. Environment variables take
// precedence over values from config files.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is like Load but reads the given config file instead of looking
// for config.yaml. A missing explicit file is an error.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.connect_timeout", 5*time.Second)

	v.SetDefault("auth.admin_username", "admin")
	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("campaign.poll_interval", time.Second)
	v.SetDefault("campaign.recovery_backoff", 30*time.Second)
	v.SetDefault("campaign.send_timeout", 10*time.Second)
	v.SetDefault("campaign.reconcile_interval", time.Minute)
	v.SetDefault("campaign.test_mode", false)

	v.SetDefault("delivery.driver", "telegram")
	v.SetDefault("delivery.request_timeout", 15*time.Second)
}
