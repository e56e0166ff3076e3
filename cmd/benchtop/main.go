package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"

	"github.com/benchtop-io/benchtop/pkg/api"
	"github.com/benchtop-io/benchtop/pkg/audit"
	"github.com/benchtop-io/benchtop/pkg/config"
	"github.com/benchtop-io/benchtop/pkg/middleware"
	"github.com/benchtop-io/benchtop/pkg/observability"
	"github.com/benchtop-io/benchtop/pkg/store"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	st, err := store.Open(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()

	if err := st.Migrate(context.Background()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Infof("Database ready (%s)", cfg.Storage.Driver)

	// The audit trail gets its own handle. Audit rows commit on their
	// own connection, so a failed request that rolls back its
	// transaction still leaves a trace.
	auditDB, err := sql.Open(cfg.Storage.Driver, cfg.Storage.URL)
	if err != nil {
		log.Fatalf("Failed to open audit database handle: %v", err)
	}
	defer auditDB.Close()

	auditLogger, err := audit.NewDBLogger(auditDB, cfg.Storage.Driver)
	if err != nil {
		log.Fatalf("Failed to initialize audit trail: %v", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Invalid Redis URL: %v", err)
		}
		if cfg.Redis.Password != "" {
			opts.Password = cfg.Redis.Password
		}
		if cfg.Redis.DB != 0 {
			opts.DB = cfg.Redis.DB
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.WithError(err).Warn("Redis unreachable, rate limiting will fail open")
		}
		cancel()
	}

	ctx, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()

	metrics := observability.NewMetrics(nil)
	issueLimiter := buildIssueLimiter(ctx, cfg, redisClient)

	server := api.NewServer(api.ServerOptions{
		Store:           st,
		Logger:          logger,
		Metrics:         metrics,
		Audit:           auditLogger,
		DefaultTokenTTL: cfg.Auth.DefaultTokenTTL,
		BcryptCost:      cfg.Auth.BcryptCost,
		IssueLimiter:    issueLimiter,
		CORSOrigins:     cfg.Server.CORSOrigins,
	})

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	health := observability.NewHealthChecker(st.DB(), redisClient)
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthRouter(health, metrics, cfg.Observability.MetricsEnabled),
	}

	go collectGauges(ctx, st, metrics, logger)

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, healthServer)
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		cancelBackground()
		return auditLogger.Close()
	})

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("API server listening on %s", apiServer.Addr)
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Infof("Health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(shutdown.WaitForShutdown)

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("Server exited with error")
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}

// buildIssueLimiter picks the token issuance throttle: Redis-backed
// when a Redis connection is configured, in-memory otherwise, nil when
// the limit is disabled.
func buildIssueLimiter(ctx context.Context, cfg *config.Config, redisClient *redis.Client) interface {
	Handler(http.Handler) http.Handler
} {
	if cfg.Auth.IssueRateLimit <= 0 {
		return nil
	}
	limitCfg := middleware.IssueRateLimitConfig(cfg.Auth.IssueRateLimit)
	if redisClient != nil {
		return middleware.NewDistributedRateLimitMiddleware(redisClient, limitCfg, "benchtop:ratelimit:issue")
	}
	m := middleware.NewRateLimitMiddleware(limitCfg)
	m.StartCleanup(ctx)
	return m
}

// healthRouter serves the probe endpoints, and /metrics when enabled,
// on the sidecar port.
func healthRouter(health *observability.HealthChecker, metrics *observability.Metrics, metricsEnabled bool) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", health.Liveness).Methods("GET")
	r.HandleFunc("/readyz", health.Readiness).Methods("GET")
	if metricsEnabled {
		r.Handle("/metrics", metrics.Handler()).Methods("GET")
	}
	return r
}

// collectGauges refreshes the pool and token gauges until ctx ends.
func collectGauges(ctx context.Context, st *store.Store, metrics *observability.Metrics, logger *observability.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics.CollectDBStats(st.DB())
			count, err := st.CountActiveTokens(ctx, time.Now())
			if err != nil {
				logger.WithError(err).Warn("Failed to count active tokens")
				continue
			}
			metrics.ActiveTokens.Set(float64(count))
		case <-ctx.Done():
			return
		}
	}
}
