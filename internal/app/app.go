// Package app assembles the claims and fraud components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/claims-fraud/internal/claims"
	"github.com/richxcame/claims-fraud/internal/fraud"
	"github.com/richxcame/claims-fraud/pkg/config"
	"github.com/richxcame/claims-fraud/pkg/database"
	"github.com/richxcame/claims-fraud/pkg/eventbus"
	"github.com/richxcame/claims-fraud/pkg/graph"
	"github.com/richxcame/claims-fraud/pkg/health"
	"github.com/richxcame/claims-fraud/pkg/logger"
	redisclient "github.com/richxcame/claims-fraud/pkg/redis"
	"github.com/richxcame/claims-fraud/pkg/resilience"
	"go.uber.org/zap"
)

// App holds the wired components of one process.
type App struct {
	Config *config.Config

	Pool  *pgxpool.Pool
	Graph graph.Store
	Bus   *eventbus.Bus
	Redis *redisclient.Client

	Alerts       *eventbus.FraudAlertClient
	ClaimsRepo   *claims.Repository
	AlertRepo    *fraud.Repository
	Scorer       *fraud.Scorer
	Sync         *fraud.SyncPipeline
	Notifier     *fraud.Notifier
	Alerting     *fraud.AlertPipeline
	Claims       *claims.Service
	AlertService *fraud.AlertService
}

// New connects to every backing store and wires the pipelines. The event bus
// connects lazily; an unreachable bus only delays notifications.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	pool, err := database.NewPostgresPool(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	store, err := openGraph(ctx, &cfg.Graph)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.Graph = store

	if cfg.Redis.Enabled {
		client, err := redisclient.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			// The live score cache is optional.
			logger.Warn("redis unavailable, live score cache disabled", zap.Error(err))
		} else {
			a.Redis = client
		}
	}

	a.Bus = eventbus.New(eventbus.OptionsFromConfig(&cfg.NATS, cfg.Server.ServiceName))
	a.Alerts = eventbus.NewFraudAlertClient(a.Bus, eventbus.Thresholds{
		Medium: cfg.Fraud.AlertThreshold,
		High:   cfg.Fraud.HighThreshold,
	})

	a.ClaimsRepo = claims.NewRepository(pool)
	a.AlertRepo = fraud.NewRepository(pool)

	scorerOpts := []fraud.ScorerOption{
		fraud.WithThresholds(fraud.Thresholds{Alert: cfg.Fraud.AlertThreshold, High: cfg.Fraud.HighThreshold}),
	}
	syncOpts := []fraud.SyncOption{fraud.WithResyncConcurrency(cfg.Fraud.ResyncConcurrency)}
	if a.Redis != nil && cfg.Fraud.LiveScoreCacheTTL > 0 {
		cache := fraud.NewRedisScoreCache(a.Redis)
		scorerOpts = append(scorerOpts, fraud.WithScoreCache(cache, time.Duration(cfg.Fraud.LiveScoreCacheTTL)*time.Second))
		syncOpts = append(syncOpts, fraud.WithCacheInvalidation(cache))
	}

	a.Scorer = fraud.NewScorer(store, scorerOpts...)
	a.Sync = fraud.NewSyncPipeline(store, a.ClaimsRepo, syncOpts...)
	a.Notifier = fraud.NewNotifier(a.Alerts,
		fraud.WithRetryConfig(resilience.PublishRetryConfig(cfg.Fraud.PublishMaxAttempts)),
		fraud.WithBreaker(resilience.NewCircuitBreaker(
			resilience.SettingsFor("nats", cfg.NATS.Breaker),
			resilience.GracefulDegradation("nats"),
		)),
	)
	a.Alerting = fraud.NewAlertPipeline(a.Scorer, a.AlertRepo, a.Notifier)
	a.Claims = claims.NewService(a.ClaimsRepo,
		claims.WithInsuredObserver(a.Sync),
		claims.WithClaimObserver(a.Alerting),
	)
	a.AlertService = fraud.NewAlertService(a.AlertRepo)

	return a, nil
}

// ReadinessChecks are the dependencies the service cannot run without.
func (a *App) ReadinessChecks() map[string]func() error {
	return map[string]func() error{
		"database": health.NewCachedChecker(health.DatabaseChecker(a.Pool), 5*time.Second).Check,
	}
}

// DependencyChecks report every backing service, including the ones the
// service degrades around.
func (a *App) DependencyChecks() map[string]func() error {
	checks := map[string]func() error{
		"database":  health.DatabaseChecker(a.Pool),
		"graph":     health.AsyncChecker(health.GraphChecker(a.Graph), 3*time.Second),
		"event_bus": health.EventBusChecker(a.Bus),
	}
	if a.Redis != nil {
		checks["redis"] = health.RedisChecker(a.Redis.PingContext)
	}
	return checks
}

// Close waits for pending notifications and releases every connection.
func (a *App) Close(ctx context.Context) {
	if a.Notifier != nil {
		if err := a.Notifier.Shutdown(ctx); err != nil {
			logger.Warn("pending fraud alert notifications abandoned", zap.Error(err))
		}
	}
	if a.Bus != nil {
		if err := a.Bus.Close(); err != nil {
			logger.Warn("closing event bus failed", zap.Error(err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.Warn("closing redis failed", zap.Error(err))
		}
	}
	if a.Graph != nil {
		if err := a.Graph.Close(ctx); err != nil {
			logger.Warn("closing graph store failed", zap.Error(err))
		}
	}
	database.Close(a.Pool)
}

func openGraph(ctx context.Context, cfg *config.GraphConfig) (graph.Store, error) {
	switch cfg.Driver {
	case "memory":
		logger.Warn("using in-memory graph store; overlaps are lost on restart")
		return graph.NewMemoryStore(), nil
	case "neo4j":
		store, err := graph.NewNeo4jStore(ctx, cfg)
		if err != nil {
			if errors.Is(err, graph.ErrUnavailable) {
				return nil, fmt.Errorf("graph store unreachable at %s: %w", cfg.URI, err)
			}
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported graph driver %q", cfg.Driver)
	}
}
