package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/richxcame/claims-fraud/internal/app"
	"github.com/richxcame/claims-fraud/internal/claims"
	"github.com/richxcame/claims-fraud/internal/fraud"
	"github.com/richxcame/claims-fraud/pkg/common"
	"github.com/richxcame/claims-fraud/pkg/config"
	"github.com/richxcame/claims-fraud/pkg/database"
	"github.com/richxcame/claims-fraud/pkg/logger"
	"github.com/richxcame/claims-fraud/pkg/middleware"
	"github.com/richxcame/claims-fraud/pkg/ratelimit"
	"github.com/richxcame/claims-fraud/pkg/tracing"
	"go.uber.org/zap"
)

const (
	serviceName = "claims-api"
	version     = "1.0.0"
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, &cfg.Tracing, serviceName, cfg.Server.Environment)
	if err != nil {
		logger.Fatal("failed to initialize tracing", zap.Error(err))
	}

	if err := database.Migrate(cfg.Database.URL()); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}

	if err := a.Bus.Connect(ctx); err != nil {
		logger.Warn("event bus not reachable yet, fraud alerts will connect on first publish", zap.Error(err))
	}

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := setupRouter(cfg, a)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("claims api starting", zap.String("port", cfg.Server.Port), zap.String("graph_driver", cfg.Graph.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down claims api")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	a.Close(shutdownCtx)
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown failed", zap.Error(err))
	}
	logger.Info("claims api stopped")
}

// setupRouter assembles the middleware chain, probes and API routes.
func setupRouter(cfg *config.Config, a *app.App) *gin.Engine {
	router := gin.New()
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Recovery())
	router.Use(middleware.Metrics(serviceName))
	router.Use(middleware.SecurityHeaders(cfg.Server.Environment == "production"))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.Server.CORSOrigins, ",")
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", middleware.CorrelationIDHeader}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", common.HealthCheck(serviceName, version))
	router.GET("/readyz", common.ReadinessCheck(serviceName, version, a.ReadinessChecks()))
	router.GET("/healthz/dependencies", common.DependencyReport(serviceName, version, a.DependencyChecks()))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	claims.NewHandler(a.Claims).RegisterRoutes(api)
	var resyncGuards []gin.HandlerFunc
	if a.Redis != nil && cfg.RateLimit.Enabled {
		limiter := ratelimit.NewLimiter(a.Redis.Client, cfg.RateLimit)
		resyncGuards = append(resyncGuards, ratelimit.Middleware(limiter, "resync", ratelimit.Rule{
			Limit:  cfg.RateLimit.ResyncLimit,
			Window: cfg.RateLimit.Window(),
		}))
	}
	fraud.NewHandler(a.Scorer, a.AlertService, a.Sync, a.ClaimsRepo).RegisterRoutes(api, resyncGuards...)

	return router
}
