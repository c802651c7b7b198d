package monitoring

import (
	"context"
	"sync"
	"time"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

type HealthChecker struct {
	checks  []HealthCheck
	mu      sync.RWMutex
	started time.Time
	now     func() time.Time
}

type HealthCheck struct {
	Name    string
	Check   func(ctx context.Context) error
	Timeout time.Duration
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// Liveness is the /health body.
type Liveness struct {
	Status      string  `json:"status"`
	Uptime      string  `json:"uptime"`
	UptimeSecs  float64 `json:"uptime_seconds"`
	Connections int     `json:"connections"`
	Rooms       int     `json:"rooms"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks:  make([]HealthCheck, 0),
		started: time.Now(),
		now:     time.Now,
	}
}

func (h *HealthChecker) AddCheck(name string, check func(ctx context.Context) error, timeout time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.checks = append(h.checks, HealthCheck{
		Name:    name,
		Check:   check,
		Timeout: timeout,
	})
}

// Pinger is anything that can report whether its backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// AddStoreCheck registers a readiness check that pings the session store.
func (h *HealthChecker) AddStoreCheck(store Pinger, timeout time.Duration) {
	h.AddCheck("store", store.Ping, timeout)
}

func (h *HealthChecker) CheckAll(ctx context.Context) HealthStatus {
	h.mu.RLock()
	checks := append([]HealthCheck(nil), h.checks...)
	h.mu.RUnlock()

	status := HealthStatus{
		Status:    StatusHealthy,
		Timestamp: h.now(),
		Checks:    make(map[string]string, len(checks)),
	}

	for _, check := range checks {
		if err := runCheck(ctx, check); err != nil {
			status.Status = StatusUnhealthy
			status.Checks[check.Name] = err.Error()
		} else {
			status.Checks[check.Name] = StatusHealthy
		}
	}

	return status
}

func runCheck(ctx context.Context, check HealthCheck) error {
	if check.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, check.Timeout)
		defer cancel()
	}
	return check.Check(ctx)
}

// IsReady checks if the service is ready to accept traffic
func (h *HealthChecker) IsReady(ctx context.Context) bool {
	return h.CheckAll(ctx).Status == StatusHealthy
}

func (h *HealthChecker) Uptime() time.Duration {
	return h.now().Sub(h.started)
}

// Liveness reports uptime with the live connection and room counts of this instance.
func (h *HealthChecker) Liveness(connections, rooms int) Liveness {
	uptime := h.Uptime()
	return Liveness{
		Status:      StatusHealthy,
		Uptime:      uptime.Round(time.Second).String(),
		UptimeSecs:  uptime.Seconds(),
		Connections: connections,
		Rooms:       rooms,
	}
}
