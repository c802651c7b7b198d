package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"callroom/pkg/config"
	apperrors "callroom/pkg/errors"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL   = 10 * time.Minute
	limiterPruneSize = 4096
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiterStore stores per-key (for example, per IP) rate limiters.
type rateLimiterStore struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	rate      rate.Limit
	burstSize int
	now       func() time.Time
}

func newRateLimiterStore(r rate.Limit, burst int) *rateLimiterStore {
	return &rateLimiterStore{
		limiters:  make(map[string]*limiterEntry),
		rate:      r,
		burstSize: burst,
		now:       time.Now,
	}
}

func (s *rateLimiterStore) allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if len(s.limiters) >= limiterPruneSize {
		for k, e := range s.limiters {
			if now.Sub(e.lastSeen) > limiterIdleTTL {
				delete(s.limiters, k)
			}
		}
	}

	entry, exists := s.limiters[key]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(s.rate, s.burstSize)}
		s.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// clientIP extracts the caller address, preferring the first X-Forwarded-For hop.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if ip := net.ParseIP(first); ip != nil {
			return ip.String()
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func passThrough(c *gin.Context) {
	c.Next()
}

func rejectRateLimited(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"code":    int(apperrors.CodeRateLimited),
		"message": apperrors.CodeRateLimited.Message(),
	})
}

// concurrencyGate caps in-flight handlers; a nil gate admits everything.
type concurrencyGate chan struct{}

func newConcurrencyGate(limit int) concurrencyGate {
	if limit <= 0 {
		return nil
	}
	return make(concurrencyGate, limit)
}

func (g concurrencyGate) enter() bool {
	if g == nil {
		return true
	}
	select {
	case g <- struct{}{}:
		return true
	default:
		return false
	}
}

func (g concurrencyGate) leave() {
	if g != nil {
		<-g
	}
}

// NewHTTPRateLimitMiddleware returns Gin middleware that applies simple IP-based rate limiting.
func NewHTTPRateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	if !cfg.RateLimiting.Enabled {
		return passThrough
	}

	store := newRateLimiterStore(rate.Limit(cfg.RateLimiting.HTTP.RequestsPerSecond), cfg.RateLimiting.HTTP.Burst)
	gate := newConcurrencyGate(cfg.RateLimiting.HTTP.MaxConcurrent)

	return func(c *gin.Context) {
		if !gate.enter() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"code":    int(apperrors.CodeServerError),
				"message": "too many concurrent requests",
			})
			return
		}
		defer gate.leave()

		if !store.allow(clientIP(c.Request)) {
			rejectRateLimited(c)
			return
		}
		c.Next()
	}
}

// NewWebSocketRateLimitMiddleware limits upgrade attempts per IP and caps the
// number of open sockets. The concurrency slot is held until the handler,
// and with it the connection, returns.
func NewWebSocketRateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	if !cfg.RateLimiting.Enabled {
		return passThrough
	}

	perMinute := cfg.RateLimiting.WebSocket.ConnectionsPerMinute
	store := newRateLimiterStore(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	gate := newConcurrencyGate(cfg.RateLimiting.WebSocket.MaxConcurrent)

	return func(c *gin.Context) {
		if !store.allow(clientIP(c.Request)) {
			rejectRateLimited(c)
			return
		}

		if !gate.enter() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"code":    int(apperrors.CodeServerError),
				"message": "too many concurrent connections",
			})
			return
		}
		defer gate.leave()

		c.Next()
	}
}
