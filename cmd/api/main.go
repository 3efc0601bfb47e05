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

	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"

	"github.com/splax/cornerstone/internal/app/migrate"
	"github.com/splax/cornerstone/internal/calsync"
	httpx "github.com/splax/cornerstone/internal/http"
	"github.com/splax/cornerstone/internal/repository/postgres"
	"github.com/splax/cornerstone/internal/service/auth"
	"github.com/splax/cornerstone/internal/service/calendar"
	"github.com/splax/cornerstone/internal/service/contact"
	"github.com/splax/cornerstone/internal/service/organisation"
	"github.com/splax/cornerstone/internal/service/profile"
	"github.com/splax/cornerstone/internal/service/recent"
	"github.com/splax/cornerstone/internal/service/task"
	"github.com/splax/cornerstone/internal/service/team"
	"github.com/splax/cornerstone/internal/service/timeline"
	"github.com/splax/cornerstone/internal/storage"
	"github.com/splax/cornerstone/internal/ws"
	"github.com/splax/cornerstone/pkg/config"
	"github.com/splax/cornerstone/pkg/logger"
)

func main() {
	cfg := config.LoadAPIConfig()
	log := logger.New("api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	runner, err := migrate.New(pool, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migrations", "error", err)
		os.Exit(1)
	}
	if err := runner.Ping(ctx); err != nil {
		log.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	if err := runner.Ensure(ctx); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	var rdb *redis.Client
	if addr := strings.TrimSpace(cfg.RedisAddr); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn("redis unavailable, using in-process rate limits and session events", "error", err)
			_ = client.Close()
		} else {
			rdb = client
			defer rdb.Close()
		}
	}

	repo := postgres.New(pool)
	sessionHub := ws.NewHub()
	broker := auth.NewBroker(sessionHub, rdb, cfg.SessionChannel, log)
	go broker.Run(ctx)

	var mirror calendar.Mirror
	if cfg.CalendarCredsFile != "" && cfg.CalendarID != "" {
		m, err := calsync.New(ctx, cfg.CalendarCredsFile, cfg.CalendarID, log)
		if err != nil {
			log.Warn("calendar mirror disabled", "error", err)
		} else {
			mirror = m
		}
	}

	bucket, err := storage.NewBucket(cfg.StorageDir, cfg.StoragePublicURL, cfg.AvatarMaxBytes)
	if err != nil {
		log.Warn("avatar storage disabled", "error", err)
	}

	authSvc := auth.New(repo, repo, repo, repo, broker, log, cfg)
	services := httpx.Services{
		Auth:          authSvc,
		Team:          team.New(repo, repo, log),
		Organisations: organisation.New(repo, log),
		Contacts:      contact.New(repo, log),
		Tasks:         task.New(repo, log),
		Calendar:      calendar.New(repo, mirror, log),
		Timeline:      timeline.New(repo, log),
		Profiles:      profile.New(repo, authSvc, log),
		Recent:        recent.New(repo),
	}

	limiter := httpx.NewMemoryRateLimiter()
	if rdb != nil {
		limiter.Close()
		limiter = httpx.NewRedisRateLimiter(rdb, log)
	}

	router := httpx.NewRouter(log, services, sessionHub, bucket, limiter, pool.Ping)
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr, "env", cfg.Environment)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
