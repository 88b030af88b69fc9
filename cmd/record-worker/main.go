// Package main record-worker 入口：消费结果记录并写入 PostgreSQL，按计划清理过期记录
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"tattoo-ai-api/internal/config"
	"tattoo-ai-api/internal/domain/repository"
	"tattoo-ai-api/internal/wire"
	"tattoo-ai-api/pkg/logger"
	"tattoo-ai-api/pkg/metrics"
	"tattoo-ai-api/pkg/tracer"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// dlqAlertThreshold 死信队列积压告警阈值
const dlqAlertThreshold = 100

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.FromContext(ctx)
	log.Info("starting record-worker", "version", Version, "build_time", BuildTime, "env", cfg.App.Env)

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName:    cfg.App.Name + "-record-worker",
		ServiceVersion: Version,
		Environment:    cfg.App.Env,
		Endpoint:       cfg.Observability.Tracing.Endpoint,
		SampleRate:     cfg.Observability.Tracing.SampleRate,
		Enabled:        cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	worker, cleanup, err := wire.InitializeWorker(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize worker", err)
	}
	defer cleanup()

	if err := worker.Consumer.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start consumer", err)
	}
	go worker.Consumer.MonitorDLQ(ctx, dlqAlertThreshold)

	if cfg.Observability.Metrics.Enabled {
		go serveMetrics(ctx, cfg.Observability.Metrics)
	}

	var scheduler *cron.Cron
	if retention := cfg.Features.RecordRetention; retention.Enabled {
		scheduler, err = schedulePurge(ctx, worker.Repo, retention)
		if err != nil {
			logger.Fatal(ctx, "invalid retention schedule", err, "schedule", retention.Schedule)
		}
		scheduler.Start()
		log.Info("retention purge scheduled", "schedule", retention.Schedule, "days", retention.Days)
	}

	<-ctx.Done()
	log.Info("shutting down record-worker...")

	if scheduler != nil {
		// 等待正在执行的清理结束
		<-scheduler.Stop().Done()
	}
	worker.Consumer.Stop()

	log.Info("record-worker exited")
}

// schedulePurge 按 cron 计划删除超过保留天数的记录
func schedulePurge(ctx context.Context, repo repository.PromptRecordRepository, cfg config.RecordRetentionFeature) (*cron.Cron, error) {
	schedule := cfg.Schedule
	if schedule == "" {
		schedule = "@daily"
	}
	days := cfg.Days
	if days <= 0 {
		days = 90
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(schedule, func() {
		purge(ctx, repo, time.Now().UTC().AddDate(0, 0, -days))
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func purge(ctx context.Context, repo repository.PromptRecordRepository, cutoff time.Time) {
	ctx = logger.WithContext(ctx, logger.OperationKey, "retention_purge")
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	n, err := repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		logger.Error(ctx, "retention purge failed", err, "cutoff", cutoff)
		return
	}
	metrics.RecordPurgedTotal.Add(float64(n))
	logger.Info(ctx, "retention purge finished", "deleted", n, "cutoff", cutoff)
}

func serveMetrics(ctx context.Context, cfg config.MetricsConfig) {
	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	srv := &http.Server{Addr: cfg.WorkerAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "metrics server starting", "addr", cfg.WorkerAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error(ctx, "metrics server error", err)
	}
}
