package repositories

import (
	"context"
	"fmt"

	"callroom/internal/core/ports"
	"callroom/internal/infrastructure/reliability"
	"callroom/internal/infrastructure/repositories/kv"
	"callroom/internal/infrastructure/repositories/memory"
	redisrepo "callroom/internal/infrastructure/repositories/redis"
	"callroom/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RepositoryFactory picks the backing store once at startup and hands out
// repositories that share it.
type RepositoryFactory struct {
	cfg         *config.Config
	store       ports.Store
	redisClient *redis.Client
	logger      *zap.SugaredLogger
}

// NewRepositoryFactory connects to Redis when enabled. If the connection
// cannot be established it falls back to the in-process store, unless
// redis.fallback_to_memory is off.
func NewRepositoryFactory(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	factory := &RepositoryFactory{
		cfg:    cfg,
		logger: logger,
	}

	if cfg.Redis.Enabled {
		client, err := redisrepo.NewRedisClient(ctx, redisrepo.ClientOptions{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			PoolSize:  cfg.Redis.PoolSize,
			KeyPrefix: cfg.Store.KeyPrefix,
			Retry:     cfg.Redis.Retry,
		}, logger)
		if err != nil {
			if !cfg.Redis.FallbackToMemory {
				return nil, fmt.Errorf("redis unavailable and fallback disabled: %w", err)
			}
			logger.Warnw("failed to connect to Redis, falling back to memory store",
				"error", err,
			)
		} else {
			factory.redisClient = client
			var store ports.Store = redisrepo.NewRedisStore(client)
			if cfg.Redis.CircuitBreaker.Enabled {
				store = reliability.NewBreakerStore(store, cfg.Redis.CircuitBreaker, logger)
			}
			factory.store = store
			logger.Infow("using Redis store", "circuit_breaker", cfg.Redis.CircuitBreaker.Enabled)
		}
	}

	if factory.store == nil {
		factory.store = memory.NewMemoryStore()
		logger.Info("using memory store")
	}

	return factory, nil
}

// NewFactoryWithStore wraps an existing store; used by tests and tooling.
func NewFactoryWithStore(cfg *config.Config, store ports.Store, logger *zap.SugaredLogger) *RepositoryFactory {
	return &RepositoryFactory{
		cfg:    cfg,
		store:  store,
		logger: logger,
	}
}

func (f *RepositoryFactory) CreatePresenceRepository() ports.PresenceRepository {
	return kv.NewPresenceRepository(f.store, f.cfg.Store.KeyPrefix, f.cfg.Store.EntryTTL)
}

func (f *RepositoryFactory) CreateMembershipRepository() ports.UserListRepository {
	return kv.NewMembershipRepository(f.store, f.cfg.Store.KeyPrefix, f.cfg.Store.EntryTTL)
}

func (f *RepositoryFactory) CreateWaitingRepository() ports.UserListRepository {
	return kv.NewWaitingRepository(f.store, f.cfg.Store.KeyPrefix, f.cfg.Store.EntryTTL)
}

func (f *RepositoryFactory) Store() ports.Store {
	return f.store
}

// RedisClient returns nil when the memory store is in use.
func (f *RepositoryFactory) RedisClient() *redis.Client {
	return f.redisClient
}

func (f *RepositoryFactory) UsingRedis() bool {
	return f.redisClient != nil
}

func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	return f.store.Ping(ctx)
}

func (f *RepositoryFactory) Close() error {
	return f.store.Close()
}
