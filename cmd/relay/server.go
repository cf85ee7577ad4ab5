package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Run recovers persisted tasks and serves the API on the configured port
// until ctx is done.
func (app *application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", app.config.Server.Port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return app.serve(ctx, ln)
}

// serve runs the HTTP server, the manager's reconciler and the shutdown
// sequence as one group. The first failure or the end of ctx shuts
// everything down. Persisted task statuses are left as they are, so the
// next start recovers the same tasks.
func (app *application) serve(ctx context.Context, ln net.Listener) error {
	report, err := app.manager.RecoverOnBoot(ctx)
	if err != nil {
		_ = ln.Close()
		return fmt.Errorf("failed to recover tasks: %w", err)
	}
	app.logger.Info("boot recovery finished",
		"recovered", report.Recovered,
		"paused", report.Paused,
		"errors", report.Errors)

	streamCtx, stopStreams := context.WithCancel(ctx)
	defer stopStreams()

	server := &http.Server{
		Handler:           app.setupRouter(streamCtx),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server.RegisterOnShutdown(stopStreams)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.logger.Info("starting server", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return app.manager.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.config.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown failed: %w", err))
		}
		if err := app.manager.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("task manager shutdown failed: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		app.logger.Error("server stopped with error", "error", err)
		return err
	}
	app.logger.Info("server shutdown completed")
	return nil
}
