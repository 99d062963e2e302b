package web

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// rateLimiter ограничивает число вызовов с одного адреса в скользящем окне.
type rateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	events map[string][]time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	if window <= 0 {
		window = time.Second
	}
	return &rateLimiter{
		limit:  limit,
		window: window,
		events: make(map[string][]time.Time),
	}
}

func (l *rateLimiter) allow(client string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	kept := l.events[client][:0]
	for _, ts := range l.events[client] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.limit {
		l.events[client] = kept
		return false
	}
	l.events[client] = append(kept, now)

	// окно других клиентов могло истечь целиком
	if len(l.events) > 1024 {
		for key, items := range l.events {
			if len(items) == 0 || !items[len(items)-1].After(cutoff) {
				delete(l.events, key)
			}
		}
	}
	return true
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (a *Adapter) rateLimitMiddleware() middleware {
	return func(next http.Handler) http.Handler {
		if a.limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.limiter.allow(clientKey(r), time.Now()) {
				a.logger.Warn("rate limited", "client", clientKey(r), "request_id", requestIDFromContext(r.Context()))
				writeError(w, r, http.StatusTooManyRequests, "rate_limited", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
