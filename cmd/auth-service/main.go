// Package main is the entry point for the adaptive authentication service.
// It wires the risk pipeline, analytics, and the login HTTP surface.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/analytics"
	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/auth"
	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/challenge"
	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/common/config"
	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/common/database"
	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/common/errors"
	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/common/logger"
	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/common/middleware"
	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/common/tracing"
	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/history"
	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/identity"
	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/risk"
	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/store"
)

const serviceName = "auth-service"

var (
	Version    = "dev"
	BuildTime  = "unknown"
	CommitHash = "unknown"
)

func main() {
	log := logger.New()
	defer log.Sync()

	log.Info("Starting auth service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("commit", CommitHash),
	)

	cfg, err := config.Load(serviceName)
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	shutdownTracing, err := tracing.Init(context.Background(),
		tracing.ConfigFromEnv(serviceName, cfg.Environment), log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()

	// Postgres backs the login-history audit trail and is optional
	var db *database.PostgresDB
	if cfg.DatabaseURL != "" {
		db, err = database.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
	} else {
		log.Warn("No database configured, login history disabled")
	}

	// Elasticsearch backs the per-event analytics sink and is optional
	var es *database.ElasticsearchClient
	if cfg.ElasticsearchURL != "" {
		es, err = database.NewElasticsearch(cfg.ElasticsearchURL)
		if err != nil {
			log.Fatal("Failed to connect to Elasticsearch", zap.Error(err))
		}
	} else {
		log.Info("No Elasticsearch configured, event sink disabled")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(errors.ErrorHandler())
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	router.Use(middleware.RequestID())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(logger.GinMiddleware(log))
	if cfg.EnableRateLimit {
		router.Use(middleware.DistributedRateLimit(redis.Client, middleware.RateLimitConfig{
			Requests: cfg.RateLimitRequests,
			Window:   time.Duration(cfg.RateLimitWindow) * time.Second,
		}, log))
	}
	router.Use(middleware.PrometheusMetrics(serviceName))

	router.GET("/metrics", middleware.MetricsHandler())

	kv := store.NewRedisStore(redis.Client)

	collector := analytics.NewCollector(kv, es, log)
	engine := risk.NewRiskEngine(kv, collector, log)
	engine.Calculator().UpdateWeights(risk.Weights{
		BruteForce:         cfg.Risk.BruteForceWeight,
		CredentialStuffing: cfg.Risk.CredentialStuffingWeight,
		GeoVelocity:        cfg.Risk.GeoVelocityWeight,
		Anomaly:            cfg.Risk.AnomalyWeight,
		DeviceReputation:   cfg.Risk.DeviceReputationWeight,
	})

	users := identity.NewService(kv, log)
	verifier := challenge.NewTurnstileVerifier(cfg.TurnstileSecret, cfg.TurnstileVerifyURL, log)
	tokens := auth.NewTokenManager(cfg.JWTSecret, serviceName)
	sessions := auth.NewSessionManager(kv)

	hist := history.NewRepository(db, log)
	if db != nil {
		if err := hist.Migrate(context.Background()); err != nil {
			log.Error("Login history migration failed", zap.Error(err))
		}
	}

	handler := identity.NewHandler(users, engine, collector, verifier, tokens, sessions, hist, log)
	identity.RegisterRoutes(router, handler)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": serviceName,
			"version": Version,
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		status := gin.H{"status": "ready", "redis": "ok"}
		if err := redis.Ping(); err != nil {
			status["status"] = "not ready"
			status["redis"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		if db != nil {
			if err := db.Ping(); err != nil {
				status["postgres"] = "unhealthy"
			} else {
				status["postgres"] = "ok"
			}
		}
		c.JSON(http.StatusOK, status)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server listening", zap.Int("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := shutdownTracing(ctx); err != nil {
		log.Error("Tracing shutdown failed", zap.Error(err))
	}

	log.Info("Server exited")
}
