package httpserver

import (
	"net"
	"net/http"
	"sync"
	"time"

	"trade-reporter/internal/envelope"
	"trade-reporter/internal/httputil"
)

// SecurityHeaders adds standard security headers to every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

type visitor struct {
	lastSeen time.Time
	tokens   float64
}

// RateLimiter is a per-client token bucket.
type RateLimiter struct {
	rate  float64
	burst float64
	idle  time.Duration
	now   func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor
}

func NewRateLimiter(rate, burst float64) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rate:     rate,
		burst:    burst,
		idle:     3 * time.Minute,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
}

// Allow takes one token from the client's bucket.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	v, ok := rl.visitors[client]
	if !ok {
		v = &visitor{tokens: rl.burst, lastSeen: now}
		rl.visitors[client] = v
	}
	v.tokens += now.Sub(v.lastSeen).Seconds() * rl.rate
	if v.tokens > rl.burst {
		v.tokens = rl.burst
	}
	v.lastSeen = now
	if v.tokens < 1 {
		return false
	}
	v.tokens--
	return true
}

// Prune drops clients not seen for the idle window.
func (rl *RateLimiter) Prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for k, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.idle {
			delete(rl.visitors, k)
		}
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientHost(r.RemoteAddr)) {
			httputil.WriteJSON(w, http.StatusTooManyRequests, envelope.New(http.StatusTooManyRequests, "rate limit exceeded", r.URL.Path, nil, nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
