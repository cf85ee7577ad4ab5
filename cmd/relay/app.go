package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/relay-api/internal/config"
	"github.com/phrazzld/relay-api/internal/delivery"
	"github.com/phrazzld/relay-api/internal/events"
	"github.com/phrazzld/relay-api/internal/platform/memory"
	"github.com/phrazzld/relay-api/internal/platform/postgres"
	"github.com/phrazzld/relay-api/internal/platform/telegram"
	"github.com/phrazzld/relay-api/internal/service/auth"
	"github.com/phrazzld/relay-api/internal/store"
	"github.com/phrazzld/relay-api/internal/task"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// db is nil when tasks are kept in memory
	db *sql.DB

	taskStore store.TaskStore
	sender    delivery.Sender

	// Event system
	emitter     *events.InMemoryEventEmitter
	broadcaster *events.Broadcaster

	manager *task.Manager

	jwtService    auth.JWTService
	authenticator *auth.AdminAuthenticator
}

// newApplication creates a new application instance with all dependencies initialized.
// With a database URL the schema is migrated and tasks are stored in
// postgres; otherwise tasks live in memory and do not survive a restart.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	app.authenticator = auth.NewAdminAuthenticator(cfg.Auth, auth.NewBcryptVerifier(), app.jwtService)
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	if cfg.Database.URL != "" {
		app.db, err = openDatabase(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, app.db, "up", logger); err != nil {
			app.cleanup()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		app.taskStore = postgres.NewPostgresTaskStore(app.db, logger)
	} else {
		logger.Warn("no database configured, tasks are kept in memory")
		app.taskStore = memory.NewTaskStore(logger)
	}

	app.sender = newSender(cfg.Delivery, logger)

	app.broadcaster = events.NewBroadcaster(logger)
	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.emitter.RegisterHandler(events.NewLogHandler(logger))
	app.emitter.RegisterHandler(app.broadcaster)

	app.manager = task.NewManager(app.taskStore, app.sender, app.emitter, managerConfig(cfg.Campaign), logger)

	logger.Info("application initialized successfully")
	return app, nil
}

// newSender picks the delivery implementation named by cfg.Driver.
func newSender(cfg config.DeliveryConfig, logger *slog.Logger) delivery.Sender {
	if cfg.Driver == "log" {
		logger.Warn("log delivery driver selected, messages are not sent anywhere")
		return delivery.NewLogSender(logger)
	}
	return telegram.NewSender(telegram.Config{
		Endpoint:       cfg.TelegramEndpoint,
		RequestTimeout: cfg.RequestTimeout,
	}, logger)
}

func managerConfig(cfg config.CampaignConfig) task.ManagerConfig {
	mc := task.DefaultManagerConfig()
	mc.PollInterval = cfg.PollInterval
	mc.RecoveryBackoff = cfg.RecoveryBackoff
	mc.SendTimeout = cfg.SendTimeout
	mc.ReconcileInterval = cfg.ReconcileInterval
	mc.TestMode = cfg.TestMode
	return mc
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
		app.db = nil
	}
	app.logger.Info("application shutdown completed")
}
