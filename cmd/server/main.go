/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the timesheet engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Build the structured logger
  3. Initialize SQLite store (migrations run on open)
  4. Apply settings defaults (VAT rates, currencies, country rates)
  5. Create API handler and start the weekly timesheet scheduler
  6. Configure HTTP router
  7. Start server with graceful shutdown

CONFIGURATION:
  See config/config.go. Run with --help for the full list.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (--shutdown-timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server --db=./data/timesheets.db

  # Run with in-memory database and JSON logs
  ./server --db=:memory: --log-format=json

  # Custom settings defaults, CHF as base currency
  ./server --seed-file=./settings.yaml --base-currency=CHF

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/warp/timesheet-engine/api"
	"github.com/warp/timesheet-engine/config"
	"github.com/warp/timesheet-engine/seed"
	"github.com/warp/timesheet-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			fmt.Println(ferr.Message)
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	level, _ := cfg.Level()
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func run(cfg *config.Config, logger *slog.Logger) error {
	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()
	if cfg.InMemory() {
		logger.Warn("using in-memory database, data is lost on shutdown")
	}

	// Settings defaults
	if !cfg.SkipSeed {
		doc := seed.Default()
		if cfg.SeedFile != "" {
			if doc, err = seed.LoadFile(cfg.SeedFile); err != nil {
				return err
			}
		}
		res, err := seed.Apply(context.Background(), store, doc)
		if err != nil {
			return fmt.Errorf("apply settings defaults: %w", err)
		}
		logger.Info("settings defaults applied",
			"vat_rates", res.VATRates, "currencies", res.Currencies, "countries", res.Countries)
	}

	// Initialize handler
	handler := api.NewHandler(store, logger, cfg.BaseCurrency)

	scheduler := api.NewTimesheetScheduler(store, logger)
	scheduler.CheckInterval = cfg.WeekCheckInterval
	scheduler.Start()
	defer scheduler.Stop()

	// Create router
	router := api.NewRouter(handler, api.RouterOptions{CORSOrigins: cfg.CORSOrigins, Logger: logger})

	// Create server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr, "db", cfg.DBPath, "base_currency", cfg.BaseCurrency)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server", "timeout", cfg.ShutdownTimeout.String())
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
