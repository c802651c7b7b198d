package reliability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"callroom/internal/core/ports"
	"callroom/pkg/circuitbreaker"

	"go.uber.org/zap"
)

// BreakerStore wraps a ports.Store so that a failing backend is rejected
// quickly instead of stalling every socket event on network timeouts.
// Ping and Close bypass the breaker.
type BreakerStore struct {
	store   ports.Store
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.SugaredLogger
}

func NewBreakerStore(store ports.Store, cfg circuitbreaker.Config, logger *zap.SugaredLogger) *BreakerStore {
	s := &BreakerStore{
		store:   store,
		breaker: circuitbreaker.New(cfg),
		logger:  logger,
	}
	s.breaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Warnw("store circuit breaker state changed",
			"from", from.String(),
			"to", to.String(),
		)
	})
	return s
}

func (s *BreakerStore) Breaker() *circuitbreaker.CircuitBreaker {
	return s.breaker
}

// backendFailure reports whether err says something about the backend.
// Misses and caller cancellation do not.
func backendFailure(err error) bool {
	return err != nil &&
		!errors.Is(err, ports.ErrKeyNotFound) &&
		!errors.Is(err, context.Canceled)
}

func (s *BreakerStore) guard(fn func() error) error {
	var result error
	err := s.breaker.Execute(func() error {
		result = fn()
		if backendFailure(result) {
			return result
		}
		return nil
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return fmt.Errorf("store unavailable: %w", err)
	}
	return result
}

func (s *BreakerStore) Get(ctx context.Context, key string) (val string, err error) {
	err = s.guard(func() error {
		val, err = s.store.Get(ctx, key)
		return err
	})
	return val, err
}

func (s *BreakerStore) HashGetAll(ctx context.Context, key string) (fields map[string]string, err error) {
	err = s.guard(func() error {
		fields, err = s.store.HashGetAll(ctx, key)
		return err
	})
	return fields, err
}

func (s *BreakerStore) HashUpdate(ctx context.Context, key string, fields map[string]string, ttl time.Duration, linked ...ports.LinkedKey) (updated bool, err error) {
	err = s.guard(func() error {
		updated, err = s.store.HashUpdate(ctx, key, fields, ttl, linked...)
		return err
	})
	return updated, err
}

func (s *BreakerStore) ListPush(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.guard(func() error {
		return s.store.ListPush(ctx, key, value, ttl)
	})
}

func (s *BreakerStore) ListRange(ctx context.Context, key string) (vals []string, err error) {
	err = s.guard(func() error {
		vals, err = s.store.ListRange(ctx, key)
		return err
	})
	return vals, err
}

func (s *BreakerStore) ListIndex(ctx context.Context, key string, index int64) (val string, err error) {
	err = s.guard(func() error {
		val, err = s.store.ListIndex(ctx, key, index)
		return err
	})
	return val, err
}

func (s *BreakerStore) ListRemove(ctx context.Context, key, value string, ttl time.Duration) (removed int64, err error) {
	err = s.guard(func() error {
		removed, err = s.store.ListRemove(ctx, key, value, ttl)
		return err
	})
	return removed, err
}

func (s *BreakerStore) Exec(ctx context.Context, ops ...ports.StoreOp) error {
	return s.guard(func() error {
		return s.store.Exec(ctx, ops...)
	})
}

func (s *BreakerStore) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *BreakerStore) Close() error {
	return s.store.Close()
}
