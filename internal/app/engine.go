package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ridemeter/internal/clock"
	"ridemeter/internal/config"
	internalRedis "ridemeter/internal/redis"
	"ridemeter/internal/repository"
	"ridemeter/internal/repository/memory"
	"ridemeter/internal/repository/postgres"
	"ridemeter/internal/service"
)

// redisKeyPrefix namespaces engine state inside a shared Redis.
const redisKeyPrefix = "engine:"

// EngineDeps contains the connections an Engine may use. Unused ones may be nil.
type EngineDeps struct {
	DB          *sql.DB
	RedisClient *redis.Client
	NewRelicApp *newrelic.Application
	Logger      *zap.Logger
	Clock       clock.Clock
}

// Engine bundles the metering and progression services.
type Engine struct {
	Store         repository.Store
	Locks         service.DriverLocker
	Notifications *service.NotificationService
	Meter         *service.BillingMeter
	Ledger        *service.ProgressionLedger
	Tracker       *service.VIPTracker
	Accounting    *service.AccountingService
}

// NewEngine selects the store and lock backends from cfg and wires the services.
func NewEngine(ctx context.Context, cfg config.EngineConfig, deps EngineDeps) (*Engine, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}

	store, err := newStore(ctx, cfg, deps)
	if err != nil {
		return nil, err
	}
	locks, err := newLocker(cfg, deps)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid engine time zone: %w", err)
	}

	notifications := service.NewNotificationService(logger, deps.NewRelicApp)
	ledger := service.NewProgressionLedger(store, locks, logger).WithCurrency(cfg.Currency)
	tracker := service.NewVIPTracker(store, clk, locks, loc, logger).WithCurrency(cfg.Currency)

	logger.Info("engine configured",
		zap.String("store", cfg.Store),
		zap.String("locks", cfg.Locks),
		zap.String("timezone", loc.String()),
		zap.String("currency", cfg.Currency),
	)

	return &Engine{
		Store:         store,
		Locks:         locks,
		Notifications: notifications,
		Meter:         service.NewBillingMeter(store, clk, locks, notifications, logger).WithCurrency(cfg.Currency),
		Ledger:        ledger,
		Tracker:       tracker,
		Accounting:    service.NewAccountingService(ledger, tracker, notifications, clk, logger),
	}, nil
}

func newStore(ctx context.Context, cfg config.EngineConfig, deps EngineDeps) (repository.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return memory.NewStore(), nil
	case config.StoreRedis:
		if deps.RedisClient == nil {
			return nil, fmt.Errorf("engine store %q requires a redis client", cfg.Store)
		}
		return internalRedis.NewKVStore(deps.RedisClient, redisKeyPrefix), nil
	case config.StorePostgres:
		if deps.DB == nil {
			return nil, fmt.Errorf("engine store %q requires a database", cfg.Store)
		}
		store := postgres.NewKVStore(deps.DB)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("failed to prepare engine_kv table: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown engine store %q", cfg.Store)
	}
}

func newLocker(cfg config.EngineConfig, deps EngineDeps) (service.DriverLocker, error) {
	switch cfg.Locks {
	case config.LocksLocal:
		return service.NewLocalLocker(), nil
	case config.LocksRedis:
		if deps.RedisClient == nil {
			return nil, fmt.Errorf("engine locks %q require a redis client", cfg.Locks)
		}
		return internalRedis.NewLockStore(deps.RedisClient, cfg.LockTTL), nil
	default:
		return nil, fmt.Errorf("unknown engine locks %q", cfg.Locks)
	}
}
