// ratelimit.go enforces per-client request budgets. Two backends share the
// Limiter interface: an in-process token bucket for single replicas and a
// redis GCRA limiter (go-redis/redis_rate) when several replicas must share
// one budget.
package middleware

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"

	"github.com/goaltracker/goaltracker/internal/apierr"
	"github.com/goaltracker/goaltracker/internal/auth"
	"github.com/goaltracker/goaltracker/internal/telemetry"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained rate
	RequestsPerMinute int
	// BurstSize is the maximum burst of requests allowed
	BurstSize int
	// CleanupInterval is how often idle in-memory entries are dropped
	CleanupInterval time.Duration
}

// DefaultRateLimitConfig returns the budget for read and tracking routes.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 200,
		BurstSize:         50,
		CleanupInterval:   5 * time.Minute,
	}
}

// AuthRateLimitConfig returns the stricter budget applied to the credential
// routes that check a password or send mail.
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 10,
		BurstSize:         5,
		CleanupInterval:   5 * time.Minute,
	}
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter is implemented by every rate limiting backend.
type Limiter interface {
	Allow(ctx context.Context, key string) Decision
	// Backend names the implementation in metrics.
	Backend() string
	Limit() int
}

type rateLimitEntry struct {
	tokens     float64
	lastUpdate time.Time
}

// RateLimiter is the in-process token bucket.
type RateLimiter struct {
	config  RateLimitConfig
	entries map[string]*rateLimitEntry
	mu      sync.Mutex
	stopCh  chan struct{}
	now     func() time.Time
}

// NewRateLimiter starts a token bucket limiter and its cleanup goroutine.
// Call Stop to release it.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		entries: make(map[string]*rateLimitEntry),
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evictIdle(10 * time.Minute)
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) evictIdle(idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for key, entry := range rl.entries {
		if now.Sub(entry.lastUpdate) > idle {
			delete(rl.entries, key)
		}
	}
}

// Stop stops the cleanup goroutine
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

func (rl *RateLimiter) Backend() string { return "memory" }

func (rl *RateLimiter) Limit() int { return rl.config.RequestsPerMinute }

func (rl *RateLimiter) tokensPerSecond() float64 {
	return float64(rl.config.RequestsPerMinute) / 60.0
}

// Allow takes one token for key, refilling the bucket for the time elapsed
// since the key was last seen. New keys start with a full burst.
func (rl *RateLimiter) Allow(_ context.Context, key string) Decision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, exists := rl.entries[key]
	if !exists {
		entry = &rateLimitEntry{tokens: float64(rl.config.BurstSize), lastUpdate: now}
		rl.entries[key] = entry
	}

	elapsed := now.Sub(entry.lastUpdate)
	entry.tokens = min(float64(rl.config.BurstSize), entry.tokens+elapsed.Seconds()*rl.tokensPerSecond())
	entry.lastUpdate = now

	if entry.tokens >= 1 {
		entry.tokens--
		return Decision{Allowed: true, Remaining: int(entry.tokens)}
	}

	wait := time.Minute
	if rate := rl.tokensPerSecond(); rate > 0 {
		wait = time.Duration((1 - entry.tokens) / rate * float64(time.Second))
	}
	return Decision{Allowed: false, RetryAfter: wait}
}

// RedisRateLimiter shares a GCRA budget across replicas through redis.
type RedisRateLimiter struct {
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
	prefix  string
}

// NewRedisRateLimiter builds a limiter on client. prefix namespaces the keys
// so the auth and default budgets do not share counters.
func NewRedisRateLimiter(client *redis.Client, prefix string, config RateLimitConfig) *RedisRateLimiter {
	return &RedisRateLimiter{
		limiter: redis_rate.NewLimiter(client),
		limit: redis_rate.Limit{
			Rate:   config.RequestsPerMinute,
			Burst:  config.BurstSize,
			Period: time.Minute,
		},
		prefix: prefix,
	}
}

func (rl *RedisRateLimiter) Backend() string { return "redis" }

func (rl *RedisRateLimiter) Limit() int { return rl.limit.Rate }

// Allow fails open: a redis outage must not take the API down with it.
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) Decision {
	res, err := rl.limiter.Allow(ctx, rl.prefix+key, rl.limit)
	if err != nil {
		slog.WarnContext(ctx, "redis rate limiter unavailable, allowing request", "error", err)
		return Decision{Allowed: true, Remaining: rl.limit.Burst}
	}
	return Decision{
		Allowed:    res.Allowed > 0,
		Remaining:  res.Remaining,
		RetryAfter: res.RetryAfter,
	}
}

// RateLimitMiddleware rejects requests over budget with a RATE_LIMITED error
// and a Retry-After header.
func RateLimitMiddleware(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rateLimitKey(c)
		d := limiter.Allow(c.Request.Context(), key)

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

		if !d.Allowed {
			telemetry.RateLimitRejectionsTotal.WithLabelValues(limiter.Backend()).Inc()
			retry := int(math.Ceil(d.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			apierr.Respond(c, apierr.New(apierr.RateLimited, "Rate limit exceeded"))
			return
		}

		c.Next()
	}
}

// rateLimitKey buckets by presented API key when there is one, otherwise by
// client IP. Only a prefix of the key hash is used so the raw key never
// reaches the limiter's storage.
func rateLimitKey(c *gin.Context) string {
	if raw := PresentedAPIKey(c); raw != "" {
		return "key:" + auth.HashKey(raw)[:16]
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = c.Request.RemoteAddr
	}
	return "ip:" + ip
}
