package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benediktbwimmer/tagging-service/internal/audit/postgres"
	"github.com/benediktbwimmer/tagging-service/internal/catalogclient"
	"github.com/benediktbwimmer/tagging-service/internal/config"
	"github.com/benediktbwimmer/tagging-service/internal/db"
	"github.com/benediktbwimmer/tagging-service/internal/fileexplorerclient"
	"github.com/benediktbwimmer/tagging-service/internal/modelclient"
	"github.com/benediktbwimmer/tagging-service/internal/notify"
	"github.com/benediktbwimmer/tagging-service/internal/observability"
	"github.com/benediktbwimmer/tagging-service/internal/queue/jobqueue"
	"github.com/benediktbwimmer/tagging-service/internal/queue/redisclient"
	"github.com/benediktbwimmer/tagging-service/internal/worker"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(context.Background(), "tagging-service-worker", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if err != nil {
		slog.Default().Error("otel init failed", "err", err)
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
	fileExplorer := fileexplorerclient.New(cfg.FileExplorerBaseURL, cfg.FileExplorerToken)
	model := modelclient.New(cfg.AIConnectorBaseURL, cfg.AIConnectorModel)

	var webhook *notify.ProtectedWebhook
	if cfg.WebhookURL != "" {
		webhook = notify.NewProtectedWebhook(cfg.WebhookURL, notify.ProtectedWebhookConfig{})
	}
	notifier := notify.New(notify.NewRedisPublisher(redisClient.Raw()), cfg.RedisEventsChannel, webhook)

	pipeline := worker.NewPipeline(worker.Config{
		WorkspaceRoot:      cfg.WorkspaceRoot,
		PromptTemplatePath: cfg.TaggingPromptTemplatePath,
	}, auditStore, catalog, fileExplorer, model, notifier)

	wp := worker.NewPool(worker.PoolConfig{
		Concurrency:   cfg.TaggingConcurrency,
		LockTTL:       cfg.WorkerLockTTL,
		ShutdownGrace: cfg.ShutdownGrace,
	}, queue, pipeline).WithProm(prom)

	healthAddr := os.Getenv("WORKER_HEALTH_ADDR")
	if healthAddr == "" {
		healthAddr = ":8081"
	}
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	healthMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	healthSrv := &http.Server{Addr: healthAddr, Handler: healthMux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Default().ErrorContext(ctx, "worker.health_server_failed", "err", err)
		}
	}()

	host, _ := os.Hostname()
	slog.Default().InfoContext(ctx, "worker.start", "host", host, "concurrency", cfg.TaggingConcurrency, "health_addr", healthAddr)

	if err := wp.Run(ctx); err != nil {
		slog.Default().ErrorContext(ctx, "worker.run_failed", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = healthSrv.Shutdown(shutdownCtx)
	cancel()

	slog.Default().InfoContext(context.Background(), "worker.shutdown_complete")
}
