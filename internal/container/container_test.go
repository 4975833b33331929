package container

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"survey-api/internal/config"
	"survey-api/internal/domain"
	"survey-api/internal/service"
	"survey-api/internal/service/line"
	"survey-api/pkg/logger"
)

// nopRepository satisfies repository.SurveyRepository without storage
type nopRepository struct{}

func (nopRepository) Create(ctx context.Context, record *domain.SurveyRecord) error { return nil }
func (nopRepository) GetByUserID(ctx context.Context, userID string) (*domain.SurveyRecord, error) {
	return nil, nil
}
func (nopRepository) GetByCouponCode(ctx context.Context, code string) (*domain.SurveyRecord, error) {
	return nil, nil
}
func (nopRepository) MarkNotified(ctx context.Context, userID string, sentAt time.Time) error {
	return nil
}
func (nopRepository) Ping(ctx context.Context) error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Environment:            "test",
		StorageDriver:          config.StoragePostgres,
		NotificationDriver:     config.NotificationNoop,
		NotificationTimeout:    time.Second,
		LineChannelID:          "123",
		LineChannelAccessToken: "token",
		LineAPIBaseURL:         "http://127.0.0.1:1",
		Timezone:               "Asia/Tokyo",
		RateLimitPerMinute:     5,
	}
}

func TestNewWithRepository(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name          string
		mutate        func(c *config.Config)
		expectRedis   bool
		expectLimiter bool
	}{
		{
			name:          "Container with Redis configured",
			mutate:        func(c *config.Config) { c.RedisURL = "redis://" + mr.Addr() },
			expectRedis:   true,
			expectLimiter: true,
		},
		{
			name:   "Container without Redis configured",
			mutate: func(c *config.Config) {},
		},
		{
			// Redis client initialization fails but container creation succeeds
			name:   "Container with invalid Redis URL",
			mutate: func(c *config.Config) { c.RedisURL = "invalid://redis-url" },
		},
		{
			name: "Rate limiting disabled",
			mutate: func(c *config.Config) {
				c.RedisURL = "redis://" + mr.Addr()
				c.RateLimitPerMinute = 0
			},
			expectRedis: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)

			c, err := NewWithRepository(cfg, logger.NewNop(), nopRepository{})
			require.NoError(t, err)
			t.Cleanup(func() { _ = c.Close(context.Background()) })

			assert.Equal(t, tt.expectRedis, c.HasRedis())
			assert.Equal(t, tt.expectLimiter, c.Services.RateLimit != nil)
			assert.NotNil(t, c.GetAuthService())
			assert.NotNil(t, c.Services.Survey)
			assert.NotNil(t, c.Services.Friendship)
			assert.NotNil(t, c.Metrics)
			assert.Same(t, cfg, c.GetConfig())
		})
	}
}

func TestNewWithRepository_Notifier(t *testing.T) {
	cfg := testConfig()

	c, err := NewWithRepository(cfg, logger.NewNop(), nopRepository{})
	require.NoError(t, err)
	assert.IsType(t, &service.NoopSender{}, c.Notifier)

	cfg.NotificationDriver = config.NotificationLine
	c, err = NewWithRepository(cfg, logger.NewNop(), nopRepository{})
	require.NoError(t, err)
	assert.IsType(t, &line.PushSender{}, c.Notifier)

	cfg.NotificationDriver = "carrier-pigeon"
	_, err = NewWithRepository(cfg, logger.NewNop(), nopRepository{})
	assert.Error(t, err)
}

func TestContainer_SubmitThroughServices(t *testing.T) {
	c, err := NewWithRepository(testConfig(), logger.NewNop(), nopRepository{})
	require.NoError(t, err)

	result, err := c.Services.Survey.Submit(context.Background(), "U1", domain.Answers{
		AgeRange:          domain.Age30s,
		Gender:            domain.GenderMale,
		DiscoveryChannels: []domain.DiscoveryChannel{domain.ChannelLine},
		PriceRange:        domain.Price1000To2999,
		BrandName:         "Acme",
	})
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Len(t, result.CouponCode, 12)
}

func TestContainer_CloseIsIdempotent(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.RedisURL = "redis://" + mr.Addr()

	c, err := NewWithRepository(cfg, logger.NewNop(), nopRepository{})
	require.NoError(t, err)

	assert.NoError(t, c.Close(context.Background()))
	assert.NoError(t, c.Close(context.Background()))
	assert.False(t, c.HasRedis())
}
