package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"go-journal-app/internal/config"
	"go-journal-app/internal/metrics"

	"golang.org/x/time/rate"
)

// LoginRateLimit throttles POSTs to the login forms per client address.
// GET requests are never limited.
func LoginRateLimit(cfg config.RateLimitConfig) func(http.Handler) http.Handler {
	store := newLimiterStore(cfg.LoginPerMinute, cfg.LoginBurst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			limiter := store.limiter(clientKey(r))
			if limiter != nil && !limiter.Allow() {
				metrics.LoginAttempts.WithLabelValues(r.URL.Path, "throttled").Inc()
				w.Header().Set("Retry-After", "60")
				http.Error(w, "Too many login attempts. Please wait a minute and try again.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type limiterStore struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	perMinute int
	burst     int
	lastSweep time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterStore(perMinute, burst int) *limiterStore {
	if burst <= 0 {
		burst = perMinute
	}
	return &limiterStore{
		limiters:  make(map[string]*limiterEntry),
		perMinute: perMinute,
		burst:     burst,
		lastSweep: time.Now(),
	}
}

// limiter returns the client's limiter, or nil when limiting is disabled.
func (s *limiterStore) limiter(key string) *rate.Limiter {
	if s.perMinute <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	// Entries idle for 15 minutes have refilled completely and can go.
	if now.Sub(s.lastSweep) > 5*time.Minute {
		for k, e := range s.limiters {
			if now.Sub(e.lastSeen) > 15*time.Minute {
				delete(s.limiters, k)
			}
		}
		s.lastSweep = now
	}

	if entry, ok := s.limiters[key]; ok {
		entry.lastSeen = now
		return entry.limiter
	}
	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.perMinute)), s.burst)
	s.limiters[key] = &limiterEntry{limiter: limiter, lastSeen: now}
	return limiter
}

// clientKey is the client address. chi's RealIP middleware has already
// replaced RemoteAddr when the site runs behind a proxy.
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
