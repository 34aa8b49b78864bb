package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lunary/analytics/internal/api"
	"github.com/lunary/analytics/internal/auth"
	"github.com/lunary/analytics/internal/canonical"
	"github.com/lunary/analytics/internal/config"
	"github.com/lunary/analytics/internal/metrics"
	"github.com/lunary/analytics/internal/pkg/distlock"
	"github.com/lunary/analytics/internal/pkg/logger"
	"github.com/lunary/analytics/internal/ratelimit"
	"github.com/lunary/analytics/internal/repository/postgres"
	"github.com/lunary/analytics/internal/snapshot"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func extractHost(dsn string) string {
	at := strings.Index(dsn, "@")
	if at < 0 {
		return "(unknown)"
	}
	rest := dsn[at+1:]
	if slash := strings.Index(rest, "/"); slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

func main() {
	log := logger.New(logger.INFO)

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Pre-flight check: verify the target port is available
	if err := checkPortAvailable(cfg.Server.Host, cfg.Server.Port); err != nil {
		log.Error("pre-flight check failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Postgres
	log.Info("connecting to postgres", "host", extractHost(cfg.Database.URL))
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute)

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		pingCancel()
		log.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	pingCancel()

	// Redis is optional: without it, rate limiting fails open and the
	// snapshot worker falls back to PG advisory locks.
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.URL})
		} else {
			redisClient = redis.NewClient(opts)
		}
		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis connection failed, continuing without it", "error", err)
			redisClient.Close()
			redisClient = nil
		} else {
			log.Info("redis connected")
		}
		pingCancel()
	} else {
		log.Info("redis not configured (REDIS_URL not set)")
	}

	metrics.Register()

	events := postgres.NewEventRepo(db)
	snapshots := postgres.NewSnapshotRepo(db)
	builder := canonical.NewBuilder()
	limiter := ratelimit.New(redisClient, cfg.Tracking.RateLimitPerMinute, time.Minute, log)
	verifier := auth.NewVerifier(cfg.Auth.SessionSigningKey)

	handlers := api.NewHandlers(
		builder,
		events,
		snapshots,
		limiter,
		verifier,
		log,
		cfg.Auth.AdminToken,
		cfg.Tracking.BatchMaxEvents,
	)
	health := api.NewHealthChecker(db, redisClient)
	router := api.SetupRoutes(handlers, health, cfg.Server.AllowedOrigins)

	// Daily KPI snapshot worker, one instance cluster-wide.
	var worker *snapshot.Worker
	if cfg.Snapshot.Enabled {
		lock := distlock.New(redisClient, db, "snapshot-daily", 10*time.Minute)
		worker = snapshot.NewWorker(
			events,
			snapshots,
			lock,
			time.Duration(cfg.Snapshot.IntervalMinutes)*time.Minute,
			log,
		)
		worker.Start(ctx)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("analytics server listening", "addr", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	cancel()
	if worker != nil {
		worker.Stop()
	}
	if redisClient != nil {
		redisClient.Close()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", "error", err)
	}
	log.Info("server stopped")
}
