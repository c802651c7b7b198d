package reliability

import (
	"context"
	"errors"
	"testing"
	"time"

	"callroom/internal/core/ports"
	"callroom/internal/infrastructure/repositories/memory"
	"callroom/pkg/circuitbreaker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errConnRefused = errors.New("connection refused")

// flakyStore fails every call while down is set.
type flakyStore struct {
	*memory.MemoryStore
	down  bool
	calls int
}

func (s *flakyStore) Get(ctx context.Context, key string) (string, error) {
	s.calls++
	if s.down {
		return "", errConnRefused
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s *flakyStore) Exec(ctx context.Context, ops ...ports.StoreOp) error {
	s.calls++
	if s.down {
		return errConnRefused
	}
	return s.MemoryStore.Exec(ctx, ops...)
}

func (s *flakyStore) Ping(ctx context.Context) error {
	if s.down {
		return errConnRefused
	}
	return nil
}

func newBreakerStore(t *testing.T) (*BreakerStore, *flakyStore) {
	t.Helper()
	backend := &flakyStore{MemoryStore: memory.NewMemoryStore()}
	store := NewBreakerStore(backend, circuitbreaker.Config{
		Enabled:             true,
		FailureThreshold:    2,
		SuccessThreshold:    1,
		OpenTimeout:         time.Hour,
		MaxRequestsHalfOpen: 1,
	}, zap.NewNop().Sugar())
	return store, backend
}

func TestBreakerStore_PassesThrough(t *testing.T) {
	store, _ := newBreakerStore(t)
	ctx := context.Background()

	require.NoError(t, store.Exec(ctx, ports.StoreOp{Kind: ports.StoreOpSet, Key: "k", Value: "v"}))
	val, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	require.NoError(t, store.ListPush(ctx, "l", "a", 0))
	vals, err := store.ListRange(ctx, "l")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, vals)
}

func TestBreakerStore_MissesDoNotTrip(t *testing.T) {
	store, _ := newBreakerStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.Get(ctx, "absent")
		assert.ErrorIs(t, err, ports.ErrKeyNotFound)
	}
	assert.Equal(t, circuitbreaker.StateClosed, store.Breaker().State())
}

func TestBreakerStore_OpensOnBackendFailures(t *testing.T) {
	store, backend := newBreakerStore(t)
	ctx := context.Background()
	backend.down = true

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, errConnRefused)
	err = store.Exec(ctx, ports.StoreOp{Kind: ports.StoreOpDel, Key: "k"})
	assert.ErrorIs(t, err, errConnRefused)
	require.Equal(t, circuitbreaker.StateOpen, store.Breaker().State())

	calls := backend.calls
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, calls, backend.calls)
}

func TestBreakerStore_PingBypassesBreaker(t *testing.T) {
	store, backend := newBreakerStore(t)
	ctx := context.Background()
	backend.down = true
	_, _ = store.Get(ctx, "k")
	_, _ = store.Get(ctx, "k")
	require.Equal(t, circuitbreaker.StateOpen, store.Breaker().State())

	backend.down = false
	assert.NoError(t, store.Ping(ctx))
}
