// Package middleware provides the fiber middleware guarding the report API
package middleware

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds the rate limiting configuration
type RateLimitConfig struct {
	Requests  int           `yaml:"requests" json:"requests"` // max requests per window and client
	Window    time.Duration `yaml:"window" json:"window"`
	KeyPrefix string        `yaml:"key_prefix" json:"key_prefix"`
}

// RateLimiter counts requests per client in Redis, falling back to an
// in-process token bucket when Redis is not configured or unreachable.
type RateLimiter struct {
	config      RateLimitConfig
	redisClient redis.Cmdable
	logger      *zap.Logger

	mu    sync.Mutex
	local map[string]*rate.Limiter
}

// NewRateLimiter creates a rate limiter. redisClient may be nil.
func NewRateLimiter(config RateLimitConfig, redisClient redis.Cmdable, logger *zap.Logger) *RateLimiter {
	if config.Requests <= 0 {
		config.Requests = 60
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "audit_reporter:rate_limit:"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		config:      config,
		redisClient: redisClient,
		logger:      logger,
		local:       make(map[string]*rate.Limiter),
	}
}

// Allow reports whether identifier may make another request, and how long
// to wait before retrying when it may not.
func (rl *RateLimiter) Allow(ctx context.Context, identifier string) (bool, time.Duration) {
	if rl.redisClient != nil {
		allowed, retry, err := rl.allowRedis(ctx, identifier)
		if err == nil {
			return allowed, retry
		}
		rl.logger.Warn("redis rate limiter unavailable, using local limiter", zap.Error(err))
	}
	return rl.allowLocal(identifier), rl.config.Window / time.Duration(rl.config.Requests)
}

func (rl *RateLimiter) allowRedis(ctx context.Context, identifier string) (bool, time.Duration, error) {
	key := rl.config.KeyPrefix + identifier

	count, err := rl.redisClient.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment rate counter: %w", err)
	}
	if count == 1 {
		if err := rl.redisClient.Expire(ctx, key, rl.config.Window).Err(); err != nil {
			return false, 0, fmt.Errorf("failed to set rate window: %w", err)
		}
	}
	return count <= int64(rl.config.Requests), rl.config.Window, nil
}

func (rl *RateLimiter) allowLocal(identifier string) bool {
	rl.mu.Lock()
	limiter, ok := rl.local[identifier]
	if !ok {
		every := rl.config.Window / time.Duration(rl.config.Requests)
		limiter = rate.NewLimiter(rate.Every(every), rl.config.Requests)
		rl.local[identifier] = limiter
	}
	rl.mu.Unlock()
	return limiter.Allow()
}

// Handler returns a fiber middleware that rejects clients over the limit
// with 429.
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		allowed, retry := rl.Allow(c.UserContext(), c.IP())
		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.config.Requests))
		if allowed {
			return c.Next()
		}

		seconds := max(int(retry.Round(time.Second)/time.Second), 1)
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(seconds))
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":       "Too many requests. Please try again later.",
			"retry_after": seconds,
		})
	}
}
