package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"subtitle-hub/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limiter decides whether the client identified by key may make another request.
// When it may not, retryAfter is a hint for the Retry-After header.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// RateLimit rejects requests over the limiter's budget with 429. Limiter
// errors fail open so a broken Redis does not take the comment API down.
func RateLimit(limiter Limiter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := realIP(r)

			allowed, retryAfter, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				logger.Warn("Rate limiter unavailable, allowing request",
					zap.Error(err),
					zap.String("ip", ip),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				logger.Info("Rate limit exceeded",
					zap.String("ip", ip),
					zap.String("path", r.URL.Path),
				)
				utils.ResponseTooManyRequests(w, "Too many requests, slow down", retryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// realIP is the peer address of the request. Forwarding headers only count
// once TrustedRealIP has accepted them from a trusted proxy.
func realIP(r *http.Request) string {
	return peerHost(r.RemoteAddr)
}

func peerHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// ==================== IN-MEMORY ====================

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter is a per-key token bucket kept in process memory.
type MemoryLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	r        rate.Limit
	burst    int
	idleTTL  time.Duration
	done     chan struct{}
	once     sync.Once
}

// NewMemoryLimiter allows r requests per second per key with bursts up to burst.
// Idle keys are dropped by a background janitor until Close is called.
func NewMemoryLimiter(r rate.Limit, burst int) *MemoryLimiter {
	ml := &MemoryLimiter{
		limiters: make(map[string]*ipLimiter),
		r:        r,
		burst:    burst,
		idleTTL:  10 * time.Minute,
		done:     make(chan struct{}),
	}
	go ml.cleanup(5 * time.Minute)
	return ml
}

func (ml *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	if ml.get(key).Allow() {
		return true, 0, nil
	}

	retryAfter := time.Second
	if ml.r > 0 {
		retryAfter = time.Duration(float64(time.Second) / float64(ml.r))
	}
	return false, retryAfter, nil
}

func (ml *MemoryLimiter) Close() {
	ml.once.Do(func() { close(ml.done) })
}

func (ml *MemoryLimiter) get(key string) *rate.Limiter {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	if v, ok := ml.limiters[key]; ok {
		v.lastSeen = time.Now()
		return v.limiter
	}

	l := rate.NewLimiter(ml.r, ml.burst)
	ml.limiters[key] = &ipLimiter{limiter: l, lastSeen: time.Now()}
	return l
}

func (ml *MemoryLimiter) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ml.done:
			return
		case <-ticker.C:
			ml.evictIdle(time.Now())
		}
	}
}

func (ml *MemoryLimiter) evictIdle(now time.Time) {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	for key, v := range ml.limiters {
		if now.Sub(v.lastSeen) > ml.idleTTL {
			delete(ml.limiters, key)
		}
	}
}

// ==================== REDIS ====================

const redisRateLimitPrefix = "comment_rate_limit:"

// RedisLimiter is a fixed-window counter shared by every instance that talks
// to the same Redis.
type RedisLimiter struct {
	client redis.UniversalClient
	limit  int64
	window time.Duration
}

func NewRedisLimiter(client redis.UniversalClient, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  int64(limit),
		window: window,
	}
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	redisKey := redisRateLimitPrefix + key

	// The TTL is only set by the first hit so the window does not slide
	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, rl.window)
	ttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("rate limit counter %s: %w", redisKey, err)
	}

	if incr.Val() <= rl.limit {
		return true, 0, nil
	}

	retryAfter := ttl.Val()
	if retryAfter <= 0 {
		retryAfter = rl.window
	}
	return false, retryAfter, nil
}

// NewRedisClient connects and pings, failing fast on a bad address.
func NewRedisClient(config utils.RateLimitConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to Redis at %s: %w", config.RedisAddr, err)
	}

	return client, nil
}
