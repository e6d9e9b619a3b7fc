package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"
)

// RateLimiter hands each client IP a token bucket. Buckets live in an LRU
// cache so a flood of distinct addresses cannot grow memory without bound;
// an evicted client simply starts again with a full bucket.
type RateLimiter struct {
	rps   rate.Limit
	burst int

	mu      sync.Mutex // guards get-or-create on clients
	clients *lru.Cache
	logger  *slog.Logger
}

func NewRateLimiter(requestsPerSecond float64, burst, maxClients int, logger *slog.Logger) (*RateLimiter, error) {
	clients, err := lru.New(maxClients)
	if err != nil {
		return nil, fmt.Errorf("middleware: creating rate limiter cache: %w", err)
	}
	return &RateLimiter{
		rps:     rate.Limit(requestsPerSecond),
		burst:   burst,
		clients: clients,
		logger:  logger,
	}, nil
}

// Allow reports whether the client may make a request now.
func (rl *RateLimiter) Allow(client string) bool {
	return rl.limiter(client).Allow()
}

func (rl *RateLimiter) limiter(client string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok := rl.clients.Get(client); ok {
		return l.(*rate.Limiter)
	}
	l := rate.NewLimiter(rl.rps, rl.burst)
	rl.clients.Add(client, l)
	return l
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientIP(r)
		if !rl.Allow(client) {
			rl.logger.Warn("rate limit exceeded",
				slog.String("client", client),
				slog.String("path", r.URL.Path),
			)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(rl.rps)))
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   "rate_limited",
				"message": "too many requests, slow down",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP is the host part of RemoteAddr. Run chi's RealIP first when the
// server sits behind a proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func retryAfterSeconds(rps rate.Limit) int {
	if rps <= 0 || rps >= 1 {
		return 1
	}
	return int(1/float64(rps)) + 1
}
