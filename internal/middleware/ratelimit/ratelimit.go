// Package ratelimit throttles clients with a token bucket per address.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per client.
type Limiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once

	limit           rate.Limit
	burst           int
	cleanupInterval time.Duration
	idleTimeout     time.Duration
	now             func() time.Time

	rejected atomic.Int64
}

type clientInfo struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMinute int
	// Burst defaults to RequestsPerMinute.
	Burst           int
	CleanupInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
	}
}

// Metrics for monitoring rate limit performance
type Metrics struct {
	Rejected    int64 `json:"rejected"`
	ClientCount int64 `json:"clientCount"`
}

// NewLimiter creates a limiter and starts its cleanup goroutine; call Stop
// to end it.
func NewLimiter(config Config) *Limiter {
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = DefaultConfig().RequestsPerMinute
	}
	if config.Burst <= 0 {
		config.Burst = config.RequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultConfig().CleanupInterval
	}

	rl := &Limiter{
		clients:         make(map[string]*clientInfo),
		stopCleanup:     make(chan struct{}),
		limit:           rate.Every(time.Minute / time.Duration(config.RequestsPerMinute)),
		burst:           config.Burst,
		cleanupInterval: config.CleanupInterval,
		idleTimeout:     10 * time.Minute,
		now:             time.Now,
	}
	go rl.startCleanup()
	return rl
}

// Allow checks if a request from the given client should be allowed
func (rl *Limiter) Allow(clientIP string) bool {
	rl.mu.Lock()
	now := rl.now()
	client, exists := rl.clients[clientIP]
	if !exists {
		client = &clientInfo{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[clientIP] = client
	}
	client.lastSeen = now
	rl.mu.Unlock()

	if !client.limiter.AllowN(now, 1) {
		rl.rejected.Add(1)
		return false
	}
	return true
}

func (rl *Limiter) startCleanup() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries forgets clients idle for longer than idleTimeout; their
// buckets would be full again anyway.
func (rl *Limiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idleTimeout)
	for ip, client := range rl.clients {
		if client.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// ActiveClients returns the number of currently tracked clients
func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Stop gracefully shuts down the rate limiter cleanup goroutine
func (rl *Limiter) Stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		Rejected:    rl.rejected.Load(),
		ClientCount: int64(rl.ActiveClients()),
	}
}

// WritesOnly limits every method except GET, HEAD and OPTIONS.
func WritesOnly(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

// Middleware limits requests for which applies returns true (all requests
// when nil). onLimit writes the rejection; nil sends a plain 429.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, applies func(*http.Request) bool, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int((time.Duration(float64(time.Second) / float64(rl.limit))).Seconds() + 0.999))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if (applies == nil || applies(r)) && !rl.Allow(extractIP(r)) {
				w.Header().Set("Retry-After", retryAfter)
				if onLimit != nil {
					onLimit(w, r)
				} else {
					http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
