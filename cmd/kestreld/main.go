package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/kestrelsec/kestrel/pkg/config"
	"github.com/kestrelsec/kestrel/pkg/httputil"
	"github.com/kestrelsec/kestrel/pkg/middleware"
	"github.com/kestrelsec/kestrel/pkg/monitor"
	"github.com/kestrelsec/kestrel/pkg/observability"
	"github.com/kestrelsec/kestrel/pkg/policy"
	"github.com/kestrelsec/kestrel/pkg/ratelimit"
)

var version = "dev"

func main() {
	port := flag.String("port", "", "Port to listen on (overrides KESTREL_PORT)")
	logLevel := flag.String("log-level", "", "Log level (overrides KESTREL_LOG_LEVEL)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *logLevel != "" {
		cfg.Observability.LogLevel = observability.ParseLogLevel(*logLevel)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithField("version", version).Info("starting kestrel security daemon")

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	var monitorMetrics *monitor.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
		monitorMetrics = monitor.NewMetrics(registry)
	}

	// Policy engine
	engine, err := policy.NewEngine(policy.DefaultConfig())
	if err != nil {
		logger.WithError(err).Error("failed to build policy engine")
		os.Exit(1)
	}

	// Event store
	var db *sql.DB
	var store monitor.EventStore
	switch cfg.Store.Type {
	case "postgres":
		db, err = sql.Open("postgres", cfg.Store.PostgresURL)
		if err != nil {
			logger.WithError(err).Error("failed to open database")
			os.Exit(1)
		}
		store, err = monitor.NewSQLStore(db)
		if err != nil {
			logger.WithError(err).Error("failed to initialize event store")
			os.Exit(1)
		}
		logger.Info("using postgres event store")
	default:
		store = monitor.NewMemoryStore(cfg.Store.Capacity)
		logger.WithField("capacity", cfg.Store.Capacity).Info("using in-memory event store")
	}

	// Security monitor
	monitorOpts := []monitor.Option{}
	if monitorMetrics != nil {
		monitorOpts = append(monitorOpts, monitor.WithMetrics(monitorMetrics))
	}
	if cfg.Monitor.WebhookURL != "" {
		monitorOpts = append(monitorOpts, monitor.WithSink(monitor.NewWebhookSink(cfg.Monitor.WebhookURL)))
		logger.Info("alert webhook sink enabled")
	}
	mon := monitor.NewMonitor(store, monitorOpts...)

	// Rate limiter
	limiter := ratelimit.NewLimiter()

	var redisClient *redis.Client
	var distributed *ratelimit.RedisLimiter
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		distributed = ratelimit.NewRedisLimiter(redisClient, "kestrel")
		if err := distributed.Ping(context.Background()); err != nil {
			logger.WithError(err).Warn("redis unreachable; distributed limits degraded to local")
		} else {
			logger.WithField("addr", cfg.Redis.Addr).Info("distributed rate limiting enabled")
		}
	}

	// Periodic sweep of idle limiter keys
	maxWindow := cfg.RateLimit.Rules.MaxWindow()
	scheduler := cron.New()
	_, err = scheduler.AddFunc(fmt.Sprintf("@every %s", cfg.RateLimit.CleanupInterval), func() {
		start := time.Now()
		limiter.Cleanup(maxWindow)
		if metrics != nil {
			metrics.CleanupSweepsTotal.Inc()
			metrics.CleanupSweepDuration.Observe(time.Since(start).Seconds())
			metrics.RateLimitKeysTracked.Set(float64(limiter.TrackedKeys()))
		}
		logger.WithField("keys", limiter.TrackedKeys()).Debug("rate limit sweep complete")
	})
	if err != nil {
		logger.WithError(err).Error("failed to schedule cleanup sweep")
		os.Exit(1)
	}
	scheduler.Start()

	// Operator API
	router := mux.NewRouter()
	router.Use(httputil.RecoveryMiddleware)
	router.Use(httputil.RequestIDMiddleware)
	router.Use(httputil.LoggingMiddleware)
	router.Use(middleware.SecurityContext)
	if metrics != nil {
		router.Use(metrics.Middleware)
	}
	globalRule := cfg.RateLimit.Rules[ratelimit.CategoryGlobal]
	if distributed != nil {
		router.Use(middleware.DistributedRateLimit(limiter, distributed,
			ratelimit.CategoryGlobal, globalRule, mon, metrics))
	} else {
		router.Use(middleware.RateLimit(limiter, ratelimit.CategoryGlobal,
			globalRule, mon, metrics))
	}

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.RequirePermission(engine, mon, metrics, "reports", "read"))
	monitor.NewHandlers(mon).RegisterRoutes(api)

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics endpoints on a separate port for probes
	healthChecker := observability.NewHealthChecker(db, redisClient, version)
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, healthChecker)
	healthMux.Handle("/metrics", observability.MetricsHandler(registry))

	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	var group errgroup.Group
	group.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("security api listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health endpoint listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	shutdown := observability.NewShutdownManager(logger, apiServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		stopped := scheduler.Stop()
		select {
		case <-stopped.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return redisClient.Close()
		})
	}
	if db != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return db.Close()
		})
	}

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("shutdown finished with errors")
	}
	if err := group.Wait(); err != nil {
		logger.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
	logger.Info("kestrel stopped")
}
