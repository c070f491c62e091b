package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"taskManager/internal/httpjson"
	"taskManager/internal/logger"

	"go.uber.org/zap"
)

const codeRateLimited = "RATE_LIMIT_EXCEEDED"

type clientWindow struct {
	count   int
	resetAt time.Time
}

// RateLimiter allows a fixed number of requests per client IP in each
// window. Clients whose window has ended are dropped once per window, so the
// table holds at most the clients seen in the last two windows.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	clients   map[string]*clientWindow
	nextSweep time.Time
}

func NewRateLimiter(rpm int) *RateLimiter {
	return &RateLimiter{
		limit:   rpm,
		window:  time.Minute,
		now:     time.Now,
		clients: make(map[string]*clientWindow),
	}
}

// RateLimit allows rpm requests per client IP in each one-minute window.
func RateLimit(rpm int) func(http.Handler) http.Handler {
	return NewRateLimiter(rpm).Handler
}

type decision struct {
	allowed    bool
	remaining  int
	resetAt    time.Time
	retryAfter int
}

func (rl *RateLimiter) take(ip string) decision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if !now.Before(rl.nextSweep) {
		rl.sweep(now)
		rl.nextSweep = now.Add(rl.window)
	}

	client, ok := rl.clients[ip]
	if !ok || !now.Before(client.resetAt) {
		client = &clientWindow{resetAt: now.Add(rl.window)}
		rl.clients[ip] = client
	}

	if client.count >= rl.limit {
		return decision{
			resetAt:    client.resetAt,
			retryAfter: max(1, int(math.Ceil(client.resetAt.Sub(now).Seconds()))),
		}
	}

	client.count++
	return decision{
		allowed:   true,
		remaining: rl.limit - client.count,
		resetAt:   client.resetAt,
	}
}

// sweep must be called with mu held.
func (rl *RateLimiter) sweep(now time.Time) {
	for ip, client := range rl.clients {
		if !now.Before(client.resetAt) {
			delete(rl.clients, ip)
		}
	}
}

// Clients reports how many client windows are tracked.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		d := rl.take(ip)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.resetAt.Unix(), 10))

		if !d.allowed {
			requestID := GetRequestID(r.Context())
			logger.Warn("HTTP: rate limit exceeded",
				zap.String("client_ip", ip),
				zap.String("request_id", requestID))

			w.Header().Set("Retry-After", strconv.Itoa(d.retryAfter))
			httpjson.Error(w, http.StatusTooManyRequests, codeRateLimited, "Too many requests, try again later",
				map[string]any{
					"retry_after": d.retryAfter,
					"request_id":  requestID,
				})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
