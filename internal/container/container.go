package container

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"survey-api/internal/config"
	"survey-api/internal/coupon"
	"survey-api/internal/metrics"
	"survey-api/internal/repository"
	"survey-api/internal/service"
	"survey-api/internal/service/auth"
	"survey-api/internal/service/line"
	"survey-api/pkg/database"
	"survey-api/pkg/logger"
	"survey-api/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *logger.Logger
	Metrics     *metrics.Metrics
	Postgres    *database.PostgresDB
	Mongo       *database.MongoDB
	RedisClient *redis.Client
	Repository  repository.SurveyRepository
	Notifier    service.NotificationSender
	Services    *service.Services
}

// New opens the configured storage and wires every service on top of it
func New(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*Container, error) {
	c := &Container{}

	switch cfg.StorageDriver {
	case config.StorageMongo:
		db, err := database.NewMongoDB(ctx, cfg.MongoURI, cfg.MongoDB, 10*time.Second)
		if err != nil {
			return nil, err
		}
		repo := repository.NewMongoSurveyRepository(db.Database, logger)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = db.Close(context.Background())
			return nil, fmt.Errorf("failed to ensure survey indexes: %w", err)
		}
		c.Mongo = db
		c.Repository = repo
		logger.WithField("database", cfg.MongoDB).Info("MongoDB storage initialized")

	default:
		db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL, database.PoolOptions{
			MaxConns:        cfg.DatabaseMaxConn,
			ApplicationName: "survey-api",
		})
		if err != nil {
			return nil, err
		}
		c.Postgres = db
		c.Repository = repository.NewSurveyRepository(db)
		logger.Info("PostgreSQL storage initialized")
	}

	built, err := NewWithRepository(cfg, logger, c.Repository)
	if err != nil {
		c.closeStorage(context.Background())
		return nil, err
	}
	built.Postgres = c.Postgres
	built.Mongo = c.Mongo
	return built, nil
}

// NewWithRepository wires services on an already opened repository
func NewWithRepository(cfg *config.Config, logger *logger.Logger, repo repository.SurveyRepository) (*Container, error) {
	// Initialize Redis client if Redis URL is configured
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, logger.Logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize Redis client, proceeding without caching or rate limiting")
		} else {
			redisClient = client
			logger.Info("Redis client initialized successfully")
		}
	} else {
		logger.Info("Redis URL not configured, proceeding without caching or rate limiting")
	}

	m := metrics.New()
	httpClient := &http.Client{Timeout: 15 * time.Second}

	var notifier service.NotificationSender
	switch cfg.NotificationDriver {
	case config.NotificationNoop:
		notifier = service.NewNoopSender(logger)
	case config.NotificationLine:
		notifier = line.NewPushSender(line.PushOptions{
			BaseURL:            cfg.LineAPIBaseURL,
			ChannelAccessToken: cfg.LineChannelAccessToken,
			HTTPClient:         httpClient,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown notification driver %q", cfg.NotificationDriver)
	}

	authService := auth.NewService(auth.Options{
		ChannelID:     cfg.LineChannelID,
		ChannelSecret: cfg.LineChannelSecret,
		BaseURL:       cfg.LineAPIBaseURL,
		HTTPClient:    httpClient,
	}, logger)

	surveyService := service.NewSurveyService(
		repo,
		notifier,
		coupon.NewGenerator(cfg.Location()),
		m,
		logger,
		service.SurveyOptions{NotificationTimeout: cfg.NotificationTimeout},
	)

	friendshipService := service.NewFriendshipService(
		line.NewFriendshipClient(cfg.LineAPIBaseURL, httpClient, logger),
		redisClient,
		m,
		logger.Logger,
	)

	var rateLimiter *service.RateLimiter
	if redisClient != nil && cfg.RateLimitPerMinute > 0 {
		rateLimiter = service.NewRateLimiter(redisClient, cfg.RateLimitPerMinute, m, logger)
	}

	return &Container{
		Config:      cfg,
		Logger:      logger,
		Metrics:     m,
		RedisClient: redisClient,
		Repository:  repo,
		Notifier:    notifier,
		Services: &service.Services{
			Auth:       authService,
			Survey:     surveyService,
			Friendship: friendshipService,
			RateLimit:  rateLimiter,
		},
	}, nil
}

// Close releases Redis and storage connections
func (c *Container) Close(ctx context.Context) error {
	var firstErr error
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			firstErr = fmt.Errorf("redis close: %w", err)
		}
		c.RedisClient = nil
	}
	if err := c.closeStorage(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (c *Container) closeStorage(ctx context.Context) error {
	if c.Postgres != nil {
		c.Postgres.Close()
		c.Postgres = nil
	}
	if c.Mongo != nil {
		err := c.Mongo.Close(ctx)
		c.Mongo = nil
		if err != nil {
			return fmt.Errorf("mongo close: %w", err)
		}
	}
	return nil
}

// GetAuthService returns the auth service
func (c *Container) GetAuthService() service.AuthService {
	return c.Services.Auth
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// GetRedisClient returns the Redis client (may be nil if not configured)
func (c *Container) GetRedisClient() *redis.Client {
	return c.RedisClient
}

// HasRedis returns true if Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}
