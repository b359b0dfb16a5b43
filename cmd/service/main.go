// cmd/service/main.go
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

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"github-dashboard/internal/api"
	"github-dashboard/internal/config"
	"github-dashboard/internal/dashboard"
	"github-dashboard/internal/github"
	"github-dashboard/internal/notify"
	"github-dashboard/internal/store"
	"github-dashboard/internal/syncer"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Application startup error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Initialize structured logger
	logLevel := new(slog.LevelVar)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// 2. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logLevel.Set(cfg.Level())
	logger.Info("Configuration loaded successfully", "storage_driver", cfg.StorageDriver, "username", cfg.GithubUsername)

	// 3. Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 4. Open durable storage. The cache keeps working in memory if it is unavailable.
	backend, cleanup := openBackend(ctx, cfg, logger)
	defer cleanup()

	cache := store.New(backend, cfg.StorageKey, logger)
	defer cache.Close()
	cache.Load(ctx)

	// 5. Initialize application components
	ghClient, err := github.NewClient(github.Options{
		Token:   cfg.GithubToken,
		BaseURL: cfg.GithubBaseURL,
		PerPage: cfg.GithubPerPage,
		Timeout: cfg.GithubTimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create github client: %w", err)
	}

	var opts []dashboard.Option
	if cfg.AMQPURL != "" {
		publisher, err := notify.NewRabbitMQ(notify.Config{
			URL:        cfg.AMQPURL,
			Exchange:   cfg.AMQPExchange,
			RoutingKey: cfg.AMQPRoutingKey,
			QueueName:  cfg.AMQPQueue,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		defer publisher.Close()
		opts = append(opts, dashboard.WithNotifier(publisher))
	}
	opts = append(opts, dashboard.WithFetchTimeout(cfg.GithubTimeout))
	dash := dashboard.NewService(ghClient, cache, logger, cfg.StalenessWindow, opts...)

	// 6. Start the background refresher if configured
	if cfg.RefreshInterval > 0 {
		appSyncer, err := syncer.NewSyncer(dash, logger, cfg.GithubUsername, cfg.RefreshInterval)
		if err != nil {
			return fmt.Errorf("failed to create syncer: %w", err)
		}
		go appSyncer.Start(ctx)
	}

	// 7. Serve the API until shutdown
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(dash, limiter, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	logger.Info("Application started. Waiting for shutdown signal...")
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received. Exiting.")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}

// openBackend builds the configured storage backend and falls back to memory when it cannot be reached.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Backend, func()) {
	noop := func() {}

	switch cfg.StorageDriver {
	case config.DriverSQLite:
		b, err := store.NewSQLiteBackend(cfg.SQLitePath)
		if err != nil {
			logger.Warn("SQLite storage unavailable, using memory", "path", cfg.SQLitePath, "error", err)
			return store.NewMemoryBackend(), noop
		}
		logger.Info("SQLite storage opened", "path", cfg.SQLitePath)
		return b, noop

	case config.DriverPostgres:
		dbpool, err := pgxpool.New(ctx, cfg.DBURL)
		if err == nil {
			err = dbpool.Ping(ctx)
		}
		if err == nil {
			err = applyMigrations(cfg.MigrationsPath, cfg.DBURL, logger)
		}
		if err != nil {
			if dbpool != nil {
				dbpool.Close()
			}
			logger.Warn("Postgres storage unavailable, using memory", "error", err)
			return store.NewMemoryBackend(), noop
		}
		logger.Info("Database connection established and migrations applied")
		return store.NewPostgresBackend(dbpool), dbpool.Close

	case config.DriverRedis:
		b, err := store.NewRedisBackend(ctx, store.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			logger.Warn("Redis storage unavailable, using memory", "error", err)
			return store.NewMemoryBackend(), noop
		}
		logger.Info("Redis storage connected", "addr", cfg.RedisAddr)
		return b, noop
	}

	return store.NewMemoryBackend(), noop
}

// applyMigrations brings the cache_records schema in dir up to date.
func applyMigrations(dir, dbURL string, logger *slog.Logger) error {
	m, err := migrate.New("file://"+dir, dbURL)
	if err != nil {
		return fmt.Errorf("open migrations in %s: %w", dir, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	if version, dirty, err := m.Version(); err == nil {
		logger.Info("Cache schema ready", "version", version, "dirty", dirty)
	}
	return nil
}
