package circuitbreaker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend down")

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestBreaker(cfg Config) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	cb := New(cfg)
	cb.SetClock(clock.Now)
	return cb, clock
}

func testConfig() Config {
	return Config{
		Enabled:             true,
		FailureThreshold:    2,
		SuccessThreshold:    2,
		OpenTimeout:         time.Second,
		MaxRequestsHalfOpen: 2,
	}
}

func fail() error    { return errBackend }
func succeed() error { return nil }

func TestExecute_PassesThroughWhenClosed(t *testing.T) {
	cb, _ := newTestBreaker(testConfig())

	require.NoError(t, cb.Execute(succeed))
	err := cb.Execute(fail)
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 1, cb.Stats().FailureCount)
}

func TestExecute_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(testConfig())

	_ = cb.Execute(fail)
	_ = cb.Execute(fail)
	require.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestExecute_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(testConfig())

	_ = cb.Execute(fail)
	require.NoError(t, cb.Execute(succeed))
	_ = cb.Execute(fail)

	assert.Equal(t, StateClosed, cb.State())
}

func TestExecute_HalfOpenClosesAfterSuccesses(t *testing.T) {
	cb, clock := newTestBreaker(testConfig())
	_ = cb.Execute(fail)
	_ = cb.Execute(fail)

	clock.Advance(time.Second)
	require.NoError(t, cb.Execute(succeed))
	assert.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(succeed))
	assert.Equal(t, StateClosed, cb.State())
}

func TestExecute_HalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(testConfig())
	_ = cb.Execute(fail)
	_ = cb.Execute(fail)

	clock.Advance(time.Second)
	assert.ErrorIs(t, cb.Execute(fail), errBackend)
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(succeed), ErrOpen)
}

func TestExecute_HalfOpenLimitsProbes(t *testing.T) {
	cfg := testConfig()
	cfg.SuccessThreshold = 5
	cb, clock := newTestBreaker(cfg)
	_ = cb.Execute(fail)
	_ = cb.Execute(fail)
	clock.Advance(time.Second)

	require.NoError(t, cb.Execute(succeed))
	require.NoError(t, cb.Execute(succeed))
	assert.ErrorIs(t, cb.Execute(succeed), ErrOpen)
}

func TestOnStateChange(t *testing.T) {
	cb, clock := newTestBreaker(testConfig())

	var transitions []string
	cb.OnStateChange(func(from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	_ = cb.Execute(fail)
	_ = cb.Execute(fail)
	clock.Advance(time.Second)
	_ = cb.Execute(succeed)
	_ = cb.Execute(succeed)

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestReset(t *testing.T) {
	cb, _ := newTestBreaker(testConfig())
	_ = cb.Execute(fail)
	_ = cb.Execute(fail)

	cb.Reset()

	assert.Equal(t, StateClosed, cb.State())
	assert.NoError(t, cb.Execute(succeed))
}

func TestNew_ClampsThresholds(t *testing.T) {
	cb, _ := newTestBreaker(Config{})

	_ = cb.Execute(fail)
	assert.Equal(t, StateOpen, cb.State())
}

func TestExecute_Concurrent(t *testing.T) {
	cb := New(DefaultConfig())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = cb.Execute(succeed)
			} else {
				_ = cb.Execute(fail)
			}
		}(i)
	}
	wg.Wait()

	assert.Contains(t, []State{StateClosed, StateOpen, StateHalfOpen}, cb.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
