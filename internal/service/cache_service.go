package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"survey-api/internal/domain"
	"survey-api/internal/metrics"
	"survey-api/pkg/errors"
	"survey-api/pkg/redis"
)

// FriendshipService answers friendship checks with a cache-aside Redis layer.
// A nil Redis client sends every check straight to LINE.
type FriendshipService struct {
	checker FriendshipChecker
	redis   *redis.Client
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewFriendshipService creates a friendship service
func NewFriendshipService(checker FriendshipChecker, redisClient *redis.Client, m *metrics.Metrics, logger *zap.Logger) *FriendshipService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	return &FriendshipService{
		checker: checker,
		redis:   redisClient,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

type cachedFriendship struct {
	FriendFlag bool      `json:"friend_flag"`
	CheckedAt  time.Time `json:"checked_at"`
}

// CheckFriendship returns the friendship status of userID. refresh skips the cache read.
func (c *FriendshipService) CheckFriendship(ctx context.Context, userID, accessToken string, refresh bool) (*domain.FriendshipStatus, error) {
	var cacheKey string
	if c.redis != nil {
		cacheKey = c.redis.KeyBuilder.KeyFriendship(userID)
	}

	if cacheKey != "" && !refresh {
		cachedData, err := c.redis.Get(ctx, cacheKey)
		if err == nil && cachedData != "" {
			var cached cachedFriendship
			if marshalErr := json.Unmarshal([]byte(cachedData), &cached); marshalErr == nil {
				c.metrics.FriendshipChecks.WithLabelValues("cache").Inc()
				c.logger.Debug("Friendship cache hit", zap.String("user_id", userID))
				return &domain.FriendshipStatus{FriendFlag: cached.FriendFlag, CheckedAt: cached.CheckedAt, Cached: true}, nil
			} else {
				c.logger.Warn("Friendship cache corrupted, falling back to LINE API",
					zap.String("user_id", userID),
					zap.Error(marshalErr))
			}
		} else if err != nil && !redis.IsNil(err) {
			c.logger.Warn("Friendship cache error, falling back to LINE API",
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}

	c.logger.Debug("Friendship cache miss", zap.String("user_id", userID))
	friend, err := c.checker.GetFriendship(ctx, accessToken)
	if err != nil {
		c.metrics.FriendshipChecks.WithLabelValues("error").Inc()
		return nil, errors.NewExternalError("Failed to check LINE friendship status", err)
	}
	c.metrics.FriendshipChecks.WithLabelValues("line").Inc()

	status := &domain.FriendshipStatus{FriendFlag: friend, CheckedAt: c.now().UTC()}
	if cacheKey != "" {
		go c.cacheFriendshipAsync(cacheKey, userID, status)
	}
	return status, nil
}

// cacheFriendshipAsync caches a friendship status asynchronously
func (c *FriendshipService) cacheFriendshipAsync(cacheKey, userID string, status *domain.FriendshipStatus) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := json.Marshal(cachedFriendship{FriendFlag: status.FriendFlag, CheckedAt: status.CheckedAt})
	if err != nil {
		c.logger.Error("Failed to marshal friendship for caching",
			zap.String("user_id", userID),
			zap.Error(err))
		return
	}

	if err := c.redis.Set(ctx, cacheKey, string(data), redis.TTLFriendship); err != nil {
		c.logger.Error("Failed to cache friendship status",
			zap.String("user_id", userID),
			zap.Error(err))
	} else {
		c.logger.Debug("Friendship status cached successfully", zap.String("user_id", userID))
	}
}
