package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds the per-user and per-IP limits.
type RateLimitConfig struct {
	// Signed-in users, keyed by user id
	DefaultRatePerSecond int
	DefaultBurst         int
	// Anonymous requests, keyed by client IP
	UnauthRatePerSecond int
	UnauthBurst         int
	// Writes and uploads, on top of the limits above; zero disables
	WriteRatePerSecond int
	WriteBurst         int
	// Limiters idle for MaxAge are dropped every CleanupInterval
	CleanupInterval time.Duration
	MaxAge          time.Duration
}

// DefaultRateLimitConfig returns the limits used when none are configured.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		DefaultRatePerSecond: 50,
		DefaultBurst:         100,
		UnauthRatePerSecond:  10,
		UnauthBurst:          20,
		WriteRatePerSecond:   5,
		WriteBurst:           10,
		CleanupInterval:      5 * time.Minute,
		MaxAge:               10 * time.Minute,
	}
}

// rateLimiterEntry holds a limiter and its last access time
type rateLimiterEntry struct {
	limiter      *rate.Limiter
	lastSeenNano atomic.Int64
}

// RateLimiter manages per-key rate limiters
type RateLimiter struct {
	config   RateLimitConfig
	limiters sync.Map // map[string]*rateLimiterEntry
	stopCh   chan struct{}
}

// NewRateLimiter creates a new rate limiter with the given config
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		config: config,
		stopCh: make(chan struct{}),
	}

	// Start cleanup goroutine
	go rl.cleanup()

	return rl
}

// cleanup periodically removes old limiters
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			rl.limiters.Range(func(key, value interface{}) bool {
				entry := value.(*rateLimiterEntry)
				lastSeen := time.Unix(0, entry.lastSeenNano.Load())
				if now.Sub(lastSeen) > rl.config.MaxAge {
					rl.limiters.Delete(key)
				}
				return true
			})
		case <-rl.stopCh:
			return
		}
	}
}

// Stop stops the cleanup goroutine
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// getLimiter returns or creates a limiter for the given key
func (rl *RateLimiter) getLimiter(key string, ratePerSecond, burst int) *rate.Limiter {
	now := time.Now().UnixNano()

	if val, ok := rl.limiters.Load(key); ok {
		entry := val.(*rateLimiterEntry)
		entry.lastSeenNano.Store(now)
		return entry.limiter
	}

	limiter := rate.NewLimiter(rate.Limit(ratePerSecond), burst)
	entry := &rateLimiterEntry{
		limiter: limiter,
	}
	entry.lastSeenNano.Store(now)
	actual, _ := rl.limiters.LoadOrStore(key, entry)
	return actual.(*rateLimiterEntry).limiter
}

// Allow checks if a request is allowed for the given key and rate
func (rl *RateLimiter) Allow(key string, ratePerSecond, burst int) bool {
	limiter := rl.getLimiter(key, ratePerSecond, burst)
	return limiter.Allow()
}

// RateLimit creates middleware that enforces rate limits. Signed-in users
// are limited per user id, anonymous requests per client IP with the
// stricter limits.
func RateLimit(rl *RateLimiter) func(http.Handler) http.Handler {
	return rl.limit("", rl.config.DefaultRatePerSecond, rl.config.DefaultBurst)
}

// WriteRateLimit applies the write limits to the routes it wraps. Writes
// get their own buckets, so reads do not use them up.
func WriteRateLimit(rl *RateLimiter) func(http.Handler) http.Handler {
	if rl.config.WriteRatePerSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return rl.limit("write:", rl.config.WriteRatePerSecond, rl.config.WriteBurst)
}

func (rl *RateLimiter) limit(prefix string, userRate, userBurst int) func(http.Handler) http.Handler {
	anonRate, anonBurst := rl.config.UnauthRatePerSecond, rl.config.UnauthBurst
	if prefix != "" {
		anonRate, anonBurst = min(anonRate, userRate), min(anonBurst, userBurst)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var key string
			var ratePerSecond, burst int

			if profile := GetProfile(r.Context()); profile != nil {
				key = prefix + "user:" + strconv.Itoa(profile.ID)
				ratePerSecond, burst = userRate, userBurst
			} else {
				ip := r.RemoteAddr
				if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
					ip = host
				}
				key = prefix + "ip:" + ip
				ratePerSecond, burst = anonRate, anonBurst
			}

			if !rl.Allow(key, ratePerSecond, burst) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(ratePerSecond))
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
