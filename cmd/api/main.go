package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benediktbwimmer/tagging-service/internal/admission"
	"github.com/benediktbwimmer/tagging-service/internal/audit/postgres"
	"github.com/benediktbwimmer/tagging-service/internal/catalogclient"
	"github.com/benediktbwimmer/tagging-service/internal/config"
	"github.com/benediktbwimmer/tagging-service/internal/db"
	"github.com/benediktbwimmer/tagging-service/internal/httpapi"
	"github.com/benediktbwimmer/tagging-service/internal/observability"
	"github.com/benediktbwimmer/tagging-service/internal/queue/jobqueue"
	"github.com/benediktbwimmer/tagging-service/internal/queue/redisclient"
	"github.com/benediktbwimmer/tagging-service/internal/scheduler"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(context.Background(), "tagging-service-api", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "otel init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	base := observability.NewLogger(cfg.Env).Handler()
	logger := slog.New(observability.NewTraceHandler(base))
	slog.SetDefault(logger)

	pool, err := db.NewPool(cfg.DBURL)
	if err != nil {
		slog.Default().ErrorContext(ctx, "db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	migrateCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = db.EnsureSchema(migrateCtx, pool)
	cancel()
	if err != nil {
		slog.Default().ErrorContext(ctx, "schema migration failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	auditStore := postgres.New(pool, prom)

	redisClient, err := redisclient.NewFromURL(cfg.RedisURL)
	if err != nil {
		slog.Default().ErrorContext(ctx, "redis connect failed", "err", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	queue := jobqueue.New(redisClient.Raw())

	catalog := catalogclient.New(cfg.CatalogBaseURL, cfg.CatalogToken)

	admiss := admission.New(redisClient.Raw(), auditStore, queue, admission.Config{
		Channel:       cfg.RedisEventsChannel,
		RecencyWindow: cfg.EventRecencyWindow,
	})

	sched := scheduler.New(catalog, auditStore, queue, scheduler.Config{
		Interval:      cfg.SchedulerInterval,
		RecencyWindow: cfg.SchedulerRecencyWindow,
	})

	go func() {
		if err := admiss.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Default().ErrorContext(ctx, "admission.run_failed", "err", err)
		}
	}()
	if err := sched.Start(ctx); err != nil {
		slog.Default().ErrorContext(ctx, "scheduler.start_failed", "err", err)
		os.Exit(1)
	}

	router := httpapi.NewRouter(pool, reg, prom, auditStore, queue, cfg)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Default().InfoContext(ctx, "server.start", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Default().ErrorContext(ctx, "server.failed", "err", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Default().InfoContext(context.Background(), "shutdown signal received")

	sched.Stop(context.Background())

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Default().ErrorContext(context.Background(), "server.graceful_shutdown_failed", "err", err)
		_ = srv.Close()
	} else {
		slog.Default().InfoContext(context.Background(), "server.stopped_gracefully")
	}
}
