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
	"time"

	"github.com/spf13/cobra"

	"github.com/tinoosan/journal/internal/address"
	"github.com/tinoosan/journal/internal/config"
	"github.com/tinoosan/journal/internal/httpapi"
	"github.com/tinoosan/journal/internal/rent"
	"github.com/tinoosan/journal/internal/service/journal"
	"github.com/tinoosan/journal/internal/storage"
	"github.com/tinoosan/journal/internal/storage/memory"
	pgstore "github.com/tinoosan/journal/internal/storage/postgres"
	redisstore "github.com/tinoosan/journal/internal/storage/redis"
	sqlitestore "github.com/tinoosan/journal/internal/storage/sqlite"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	deriver, err := address.NewDeriver(cfg.ProgramID)
	if err != nil {
		return err
	}
	backend, closeFn, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	book, err := rent.NewBook(cfg.Rent)
	if err != nil {
		return fmt.Errorf("rent schedule: %w", err)
	}
	svc := journal.New(backend, deriver, journal.WithAccountant(book), journal.WithLogger(logger))

	opts := []httpapi.Option{
		httpapi.WithDeposits(book),
		httpapi.WithAllowedOrigins(cfg.AllowedOrigins),
		httpapi.WithAuth(httpapi.AuthConfig{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, Audience: cfg.JWTAudience}),
	}
	if rc, ok := backend.(storage.ReadyChecker); ok {
		opts = append(opts, httpapi.WithReadyChecker(rc))
	}
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_HS256_SECRET not set; trusting " + httpapi.CallerHeader + " header")
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.New(svc, logger, opts...).Handler(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("journal service listening", "addr", srv.Addr, "program_id", deriver.ProgramID())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
		return nil
	case err := <-errCh:
		logger.Error("server error", "err", err)
		return err
	}
}

// openBackend connects the configured storage backend.
func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage.Backend, func(), error) {
	switch cfg.Backend() {
	case config.BackendPostgres:
		pg, err := pgstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		logger.Info("storage backend: postgres")
		return pg, pg.Close, nil
	case config.BackendSQLite:
		db, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		logger.Info("storage backend: sqlite", "path", cfg.SQLitePath)
		return db, func() { _ = db.Close() }, nil
	case config.BackendRedis:
		rdb, err := redisstore.Open(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		logger.Info("storage backend: redis")
		return rdb, func() { _ = rdb.Close() }, nil
	default:
		logger.Info("storage backend: memory")
		return memory.New(), func() {}, nil
	}
}
