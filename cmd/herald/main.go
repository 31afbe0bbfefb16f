package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/heraldhq/herald/pkg/config"
	"github.com/heraldhq/herald/pkg/observability"
	"github.com/heraldhq/herald/pkg/urlcheck"
	"github.com/heraldhq/herald/pkg/webhooks"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "herald: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithField("log_store", cfg.LogStore.Type).Info("starting herald")

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	ctx := context.Background()

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	var (
		db          *sql.DB
		redisClient *redis.Client
	)

	if cfg.LogStore.Type == "redis" {
		redisClient, err = webhooks.NewRedisClient(cfg.LogStore.RedisURL,
			cfg.LogStore.RedisPassword, cfg.LogStore.RedisDB, cfg.LogStore.RedisPoolSize)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
	}

	if cfg.LogStore.Type == "postgres" {
		db, err = sql.Open("postgres", cfg.LogStore.PostgresURL)
		if err != nil {
			return fmt.Errorf("failed to open postgres connection: %w", err)
		}
		if cfg.LogStore.PostgresMaxConns > 0 {
			db.SetMaxOpenConns(cfg.LogStore.PostgresMaxConns)
		}
		if cfg.LogStore.PostgresMinConns > 0 {
			db.SetMaxIdleConns(cfg.LogStore.PostgresMinConns)
		}
		pingCtx, cancel := context.WithTimeout(ctx, cfg.LogStore.PostgresTimeout)
		err = db.PingContext(pingCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to ping postgres: %w", err)
		}
	}

	var validationCache urlcheck.ResultCache
	if redisClient != nil {
		validationCache = urlcheck.NewRedisCache(redisClient, time.Hour)
	}

	validator := urlcheck.NewValidator(logger, urlcheck.Options{
		AllowInsecure: cfg.Webhooks.AllowInsecureURLs,
		Cache:         validationCache,
		Metrics:       metrics,
	})

	logStore, err := buildLogStore(cfg, db, redisClient, logger, metrics)
	if err != nil {
		return err
	}

	deliverer := webhooks.NewDeliverer(validator, logStore, logger, metrics, webhooks.DelivererConfig{
		AttemptTimeout: cfg.Webhooks.AttemptTimeout,
		Retry: webhooks.RetryConfig{
			MaxAttempts:       cfg.Webhooks.MaxAttempts,
			InitialDelay:      cfg.Webhooks.InitialBackoff,
			BackoffMultiplier: cfg.Webhooks.BackoffMultiplier,
		},
		RateLimit:  cfg.Webhooks.RateLimitPerMinute,
		RatePeriod: time.Minute,
	})

	endpointRegistry := webhooks.NewRegistry(validator, cfg.Webhooks.MaxEndpointsPerGuild)
	manager := webhooks.NewManager(endpointRegistry, deliverer, logger, metrics)
	handlers := webhooks.NewHandlers(endpointRegistry, manager, logger, metrics)

	router := mux.NewRouter()
	handlers.RegisterRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthServer := startHealthServer(cfg, registry, db, redisClient, logger)

	sweeper, err := startSweep(cfg, logStore, logger)
	if err != nil {
		return err
	}

	shutdown := observability.NewShutdownManager(logger, server, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	if sweeper != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			stopped := sweeper.Stop()
			select {
			case <-stopped.Done():
			case <-ctx.Done():
			}
			return nil
		})
	}
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return logStore.Close()
	})
	if otelProviders != nil {
		shutdown.RegisterShutdownFunc(otelProviders.Shutdown)
	}

	go func() {
		logger.WithField("addr", server.Addr).Info("management API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("management API server failed")
		}
	}()

	return shutdown.WaitForShutdown()
}

// buildLogStore selects the delivery-log backend from configuration
func buildLogStore(cfg *config.Config, db *sql.DB, redisClient *redis.Client, logger *observability.Logger, metrics *observability.Metrics) (webhooks.DeliveryLogStore, error) {
	switch cfg.LogStore.Type {
	case "redis":
		return webhooks.NewRedisLogStore(redisClient, cfg.Webhooks.HistoryLimit, 0, logger, metrics), nil
	case "postgres":
		store, err := webhooks.NewPostgresLogStore(db, cfg.Webhooks.HistoryLimit, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres log store: %w", err)
		}
		return store, nil
	default:
		return webhooks.NewMemoryLogStore(cfg.Webhooks.HistoryLimit), nil
	}
}

// startHealthServer serves liveness, readiness and metrics on a separate port
func startHealthServer(cfg *config.Config, registry *prometheus.Registry, db *sql.DB, redisClient *redis.Client, logger *observability.Logger) *http.Server {
	checker := observability.NewHealthChecker(db, redisClient)

	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", checker.Liveness)
	healthMux.HandleFunc("/readyz", checker.Readiness)
	if cfg.Observability.MetricsEnabled {
		healthMux.Handle("/metrics", observability.Handler(registry))
	}

	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	go func() {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("health server failed")
		}
	}()

	return healthServer
}

// startSweep schedules the retention sweep for SQL-backed delivery logs.
// Other backends prune inline and need no sweep.
func startSweep(cfg *config.Config, logStore webhooks.DeliveryLogStore, logger *observability.Logger) (*cron.Cron, error) {
	pgStore, ok := logStore.(*webhooks.PostgresLogStore)
	if !ok {
		return nil, nil
	}

	c := cron.New()
	_, err := c.AddFunc(cfg.LogStore.SweepSchedule, func() {
		defer observability.RecoverPanic(logger, "delivery history sweep")
		removed, err := pgStore.Sweep(context.Background())
		if err != nil {
			logger.WithError(err).Error("delivery history sweep failed")
			return
		}
		if removed > 0 {
			logger.WithField("removed", removed).Info("delivery history sweep pruned rows")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule delivery history sweep: %w", err)
	}

	c.Start()
	logger.WithField("schedule", cfg.LogStore.SweepSchedule).Info("delivery history sweep scheduled")
	return c, nil
}
