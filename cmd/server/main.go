package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/internal/config"
	"github.com/diewo77/go-crm/internal/db"
	"github.com/diewo77/go-crm/internal/platform/logger"
	"github.com/diewo77/go-crm/internal/platform/tracing"
	"github.com/diewo77/go-crm/internal/server"
	"github.com/joho/godotenv"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB seed and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	mode := "development"
	if !cfg.App.Dev() {
		mode = "production"
	}
	log, err := logger.New(logger.Options{Mode: mode, Level: cfg.Log.Level, KeepPII: cfg.Log.KeepPII})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, log, tracing.Config{
		ServiceName: "go-crm",
		Environment: cfg.App.Env,
		Stdout:      cfg.Log.OTelStdout,
	})
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	backend, err := db.Open(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer backend.Close()

	// Open already applied migrations.
	if *migrateOnlyFlag {
		log.Info("migrations completed", "driver", cfg.Database.Driver)
		return nil
	}

	seed := db.SeedOptions{
		AdminEmail:    cfg.Auth.DemoEmail,
		AdminPassword: cfg.Auth.DemoPassword,
		SampleData:    cfg.App.Seed || *seedOnlyFlag,
	}
	if err := db.Seed(ctx, backend, seed, log); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if *seedOnlyFlag {
		log.Info("seeding completed")
		return nil
	}

	// Sessions are only honoured while their user still exists.
	sessions := auth.NewSessions(cfg.Auth.SessionSecret, func(ctx context.Context, uid uint) bool {
		ok, err := backend.UserExists(ctx, uid)
		return err == nil && ok
	})
	sessions.SecureCookies(!cfg.App.Dev())

	app := server.New(server.Deps{
		Store:        backend,
		Log:          log,
		Sessions:     sessions,
		AuthRequired: cfg.AuthRequired(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Server.Port, "env", cfg.App.Env, "driver", cfg.Database.Driver, "auth_required", cfg.AuthRequired())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	// Graceful shutdown with timeout
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped gracefully")
	return nil
}
