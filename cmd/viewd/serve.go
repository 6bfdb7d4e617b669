package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/chirpfeed/backend/internal/cache"
	"github.com/chirpfeed/backend/internal/config"
	"github.com/chirpfeed/backend/internal/database"
	"github.com/chirpfeed/backend/internal/handlers"
	"github.com/chirpfeed/backend/internal/logger"
	"github.com/chirpfeed/backend/internal/metrics"
	"github.com/chirpfeed/backend/internal/middleware"
	"github.com/chirpfeed/backend/internal/telemetry"
	"github.com/chirpfeed/backend/internal/views"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the view-tracking HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func runServer() error {
	cfg := config.Load()

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		return err
	}
	defer logger.Close()

	logger.Log.Info("=== viewd starting ===", zap.String("environment", cfg.Environment))

	if len(cfg.JWTSecret) == 0 {
		logger.Log.Fatal("JWT_SECRET environment variable is required")
	}

	// Tracing (optional)
	tp, err := telemetry.InitTracer(telemetry.Config{
		ServiceName:  "viewd",
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTLPEndpoint,
		Enabled:      cfg.TracingEnabled,
		SamplingRate: cfg.TracingSampleRate,
	})
	if err != nil {
		logger.WarnWithFields("Failed to initialize tracing, continuing without", err)
	}
	if tp != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.WarnWithFields("Tracer shutdown failed", err)
			}
		}()
	}

	// Database
	if err := database.Initialize(cfg.DatabaseURL); err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.Migrate(); err != nil {
		logger.Log.Fatal("Failed to run migrations", zap.Error(err))
	}

	metrics.Initialize()

	// View store, optionally fronted by the Redis viewed-set cache
	var store views.Store = views.NewGormStore(database.DB)
	if cfg.RedisEnabled() {
		redisClient, err := cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
		if err != nil {
			logger.WarnWithFields("Redis unavailable, running without viewed-set cache", err)
		} else {
			defer redisClient.Close()
			store = views.NewCachedStore(store, redisClient, cfg.SeedWindow)
		}
	}

	manager := views.NewManager(store, views.Config{
		DwellTime:     cfg.DwellTime,
		FlushInterval: cfg.FlushInterval,
		SeedWindow:    cfg.SeedWindow,
		SeedLimit:     cfg.SeedLimit,
	}, cfg.RecorderIdleTTL)
	manager.Start()
	defer manager.Stop()

	// Router
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	if cfg.TracingEnabled {
		r.Use(middleware.TracingMiddleware("viewd"))
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"} // Configure properly for production
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	secret := []byte(cfg.JWTSecret)
	h := handlers.NewHandlers(manager, store)
	h.RegisterRoutes(r, middleware.OptionalAuth(secret), middleware.Auth(secret))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Log.Info("HTTP server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutdown signal received, draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithFields("Graceful shutdown failed", err)
		return err
	}

	logger.Log.Info("=== viewd stopped ===")
	return nil
}
