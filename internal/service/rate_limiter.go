package service

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"survey-api/internal/metrics"
	"survey-api/pkg/logger"
	"survey-api/pkg/redis"
)

const (
	// DefaultSubmitLimit is the number of submissions allowed per client IP per window.
	DefaultSubmitLimit = 20
	// RateLimitWindow is the fixed counting window.
	RateLimitWindow = time.Minute
)

// RateLimitInfo describes the state of one client's window
type RateLimitInfo struct {
	IsAllowed    bool
	RequestCount int64
	Limit        int
	RetryAfter   time.Duration
}

// RateLimiter counts requests per hashed client IP in fixed Redis windows.
// Without Redis, or when Redis fails, every request is allowed.
type RateLimiter struct {
	redis   *redis.Client
	limit   int
	window  time.Duration
	metrics *metrics.Metrics
	logger  *logger.Logger
}

// NewRateLimiter creates a rate limiter allowing limit requests per minute
func NewRateLimiter(redisClient *redis.Client, limit int, m *metrics.Metrics, log *logger.Logger) *RateLimiter {
	if limit <= 0 {
		limit = DefaultSubmitLimit
	}
	if m == nil {
		m = metrics.New()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &RateLimiter{
		redis:   redisClient,
		limit:   limit,
		window:  RateLimitWindow,
		metrics: m,
		logger:  log,
	}
}

// Allow records one request from ipAddress and reports whether it is within the limit
func (r *RateLimiter) Allow(ctx context.Context, ipAddress string) *RateLimitInfo {
	info := &RateLimitInfo{IsAllowed: true, Limit: r.limit}
	if r.redis == nil {
		return info
	}

	key := r.redis.KeyBuilder.KeySurveyRateLimit(createIPHash(ipAddress))
	count, err := r.redis.IncrWithExpire(ctx, key, r.window)
	if err != nil {
		r.logger.WithError(err).Warn("Rate limit check failed, allowing request")
		return info
	}
	info.RequestCount = count

	if count > int64(r.limit) {
		info.IsAllowed = false
		info.RetryAfter = r.window
		if ttl, err := r.redis.TTL(ctx, key); err == nil && ttl > 0 {
			info.RetryAfter = ttl
		}
		r.metrics.RateLimited.Inc()
		r.logger.WithFields(map[string]interface{}{
			"ip_hash":       createIPHash(ipAddress),
			"request_count": count,
		}).Warn("Rate limit exceeded")
	}
	return info
}

// createIPHash keeps raw client addresses out of Redis keys and logs
func createIPHash(ipAddress string) string {
	hash := sha256.Sum256([]byte(ipAddress))
	return fmt.Sprintf("%x", hash)[:16]
}
