package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"survey-api/internal/config"
	"survey-api/internal/container"
	"survey-api/internal/handler"
	"survey-api/internal/middleware"
	"survey-api/pkg/logger"
)

const version = "1.0.0"

// Resources holds all resources that need cleanup
type Resources struct {
	container *container.Container
	server    *http.Server
	log       *logger.Logger
	mu        sync.Mutex
	closed    bool
}

// Cleanup gracefully closes all resources
func (r *Resources) Cleanup(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errors []error

	r.log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first to stop accepting new requests
	if r.server != nil {
		r.log.Info("Shutting down HTTP server...")
		if err := r.server.Shutdown(ctx); err != nil {
			r.log.WithError(err).Error("Failed to shutdown HTTP server")
			errors = append(errors, fmt.Errorf("HTTP server shutdown: %w", err))
		} else {
			r.log.Info("HTTP server shutdown complete")
		}
	}

	if r.container != nil {
		// Quick health check before closing (with short timeout)
		healthCtx, healthCancel := context.WithTimeout(ctx, 2*time.Second)
		if err := r.container.Repository.Ping(healthCtx); err != nil {
			r.log.WithError(err).Warn("Storage health check failed before closing")
		}
		healthCancel()

		r.log.Info("Closing storage and Redis connections...")
		if err := r.container.Close(ctx); err != nil {
			r.log.WithError(err).Error("Failed to close connections")
			errors = append(errors, err)
		} else {
			r.log.Info("Connections closed successfully")
		}
	}

	if len(errors) > 0 {
		r.log.WithField("error_count", len(errors)).Error("Cleanup completed with errors")
		return fmt.Errorf("cleanup completed with %d errors: %v", len(errors), errors)
	}

	r.log.Info("Graceful shutdown completed successfully")
	return nil
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"port":                cfg.Port,
		"log_level":           cfg.LogLevel,
		"environment":         cfg.Environment,
		"storage_driver":      cfg.StorageDriver,
		"notification_driver": cfg.NotificationDriver,
		"timezone":            cfg.Timezone,
	}).Info("Starting survey-api server")

	// Connect storage and Redis, then wire services
	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	c, err := container.New(startCtx, cfg, log)
	startCancel()
	if err != nil {
		log.WithError(err).Fatal("Failed to create container")
	}

	router := setupRouter(c)

	// Create HTTP server
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	resources := &Resources{
		container: c,
		server:    server,
		log:       log,
	}

	// Setup graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := resources.Cleanup(cleanupCtx); err != nil {
			log.WithError(err).Error("Cleanup completed with errors")
		}
	}()

	// Start server in a goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("Server starting on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Server error occurred")
			serverErrChan <- err
		}
	}()

	// Wait for interrupt signal or server error
	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErrChan:
		log.WithError(err).Error("Server failed, initiating shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := resources.Cleanup(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown completed with errors")
		os.Exit(1)
	}

	log.Info("Application shutdown complete")
}

// setupRouter configures and returns the HTTP router
func setupRouter(c *container.Container) *chi.Mux {
	cfg := c.GetConfig()
	log := c.GetLogger()
	services := c.Services

	r := chi.NewRouter()

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.AllowedOrigins

	r.Use(middleware.CORS(corsConfig, log))
	r.Use(middleware.RequestID(log))
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.Metrics(c.Metrics))
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	healthChecks := map[string]handler.Pinger{"storage": c.Repository}
	if c.HasRedis() {
		healthChecks["redis"] = handler.PingFunc(c.GetRedisClient().Health)
	}
	healthHandler := handler.NewHealthHandler(version, healthChecks, log)
	surveyHandler := handler.NewSurveyHandler(services.Survey, log)
	friendshipHandler := handler.NewFriendshipHandler(services.Friendship, log)

	r.NotFound(handler.NotFound(log))
	r.MethodNotAllowed(handler.MethodNotAllowed(log))

	// Health check and metrics (no auth required)
	r.Get("/health", healthHandler.Check)
	r.Method(http.MethodGet, "/metrics", c.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		// Protected routes (require a LINE token)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(services.Auth, log))

			r.Route("/survey", func(r chi.Router) {
				r.Get("/status", surveyHandler.GetStatus)

				r.Group(func(r chi.Router) {
					if services.RateLimit != nil {
						r.Use(middleware.RateLimit(services.RateLimit, log))
					}
					r.Post("/", surveyHandler.Submit)
				})
			})

			r.Get("/line/friendship", friendshipHandler.Check)
		})

		// Staff coupon lookup
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminKey(cfg.AdminAPIKey, log))
			r.Get("/coupons/{code}", surveyHandler.LookupCoupon)
		})
	})

	log.Info("Router configured successfully")
	return r
}
