package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ridemeter/internal/app"
	"ridemeter/internal/config"
	internalRedis "ridemeter/internal/redis"
	"ridemeter/internal/repository/memory"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	logger, err := app.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server exited")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		var err error
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Warn("failed to initialize New Relic", zap.Error(err))
		} else {
			logger.Info("New Relic enabled", zap.String("app", cfg.NewRelic.AppName))
		}
	}

	deps := app.EngineDeps{NewRelicApp: nrApp, Logger: logger}

	// Only connect to the backends the engine is configured to use.
	if cfg.Engine.Store == config.StorePostgres {
		db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		logger.Info("connected to PostgreSQL", zap.String("host", cfg.Database.Host))
		deps.DB = db
	}

	if cfg.Engine.UsesRedis() {
		redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
		deps.RedisClient = redisClient
	}

	cache := responseCache(deps.RedisClient)
	server, err := wireServer(ctx, cfg, deps, cache)
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(sigCtx)
	if memCache, ok := cache.(*memory.ResponseCache); ok {
		g.Go(func() error {
			sweepResponses(gctx, memCache, time.Minute, logger)
			return nil
		})
	}
	g.Go(func() error {
		logger.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(ctx context.Context, cfg *config.Config, deps app.EngineDeps, cache internalRedis.ResponseCacheInterface) (*http.Server, error) {
	engine, err := app.NewEngine(ctx, cfg.Engine, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to build engine: %w", err)
	}

	routerDeps := app.RouterDeps{
		ResponseCache:  cache,
		IdempotencyTTL: cfg.Engine.IdempotencyTTL,
		NewRelicApp:    deps.NewRelicApp,
		Logger:         deps.Logger,
	}
	router := app.NewRouterForEngine(engine, routerDeps, cfg.Engine.Currency)

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, nil
}

// responseCache keeps idempotency replays in Redis when a client is configured.
func responseCache(client *redis.Client) internalRedis.ResponseCacheInterface {
	if client != nil {
		return internalRedis.NewResponseCache(client)
	}
	return memory.NewResponseCache(nil)
}

// sweepResponses drops expired in-process idempotency entries until ctx ends.
func sweepResponses(ctx context.Context, cache *memory.ResponseCache, every time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := cache.Sweep(); n > 0 {
				logger.Debug("expired idempotency entries dropped", zap.Int("count", n))
			}
		}
	}
}
