package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fintrack/internal/analytics"
	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/query"
	"fintrack/internal/services"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	logger.Info("Starting insights-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	reader := query.NewService(repo)
	insights := services.NewInsightService(reader, analytics.NewEngine(time.Now), repo)
	w := worker.NewInsightsWorker(insights)

	scheduler := worker.NewScheduler(time.Local)
	id, err := scheduler.Schedule(cfg.InsightsCron, func() {
		w.RefreshAll(context.Background())
	})
	if err != nil {
		logger.Error("Invalid insights schedule", log.FieldError, err, "cron", cfg.InsightsCron)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(context.Context) {
		scheduler.Stop()
	})

	// snapshots may be stale after downtime
	w.RefreshAll(ctx)

	scheduler.Start()
	logger.Info("Insights schedule started", "cron", cfg.InsightsCron, "next_run", scheduler.Next(id))

	events, err := cli.ConnectEvents(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to connect to broker", log.FieldError, err)
		os.Exit(1)
	}
	if events != nil {
		defer events.Close()
		go func() {
			err := events.ConsumeLedgerEvents(ctx, w.HandleLedgerEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Ledger event consumption failed", log.FieldError, err)
			}
		}()
	} else {
		logger.Info("Running on schedule only")
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
