package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/analytics"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/query"
	"fintrack/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var publisher services.Publisher
	events, err := cli.ConnectEvents(context.Background(), logger, cfg)
	if err != nil {
		// the ledger keeps working without events
		logger.Warn("Broker unavailable, continuing without ledger events", log.FieldError, err)
	} else if events != nil {
		defer events.Close()
		publisher = events
	}

	seed := cfg.DemoRandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	seeder := services.NewSeeder(repo, time.Now, seed)

	var demo services.DemoSeeder
	if cfg.DemoSeed {
		demo = seeder
	}

	reader := query.NewService(repo)
	engine := analytics.NewEngine(time.Now)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Accounts:              services.NewAccountService(repo, seeder, publisher),
		Ledger:                services.NewLedgerService(repo, publisher, time.Now),
		Reader:                reader,
		Insights:              services.NewInsightService(reader, engine, repo),
		Dashboards:            services.NewDashboardService(reader, engine, demo),
		Store:                 repo,
		Logger:                logger,
		AuthRequestsPerMinute: cfg.AuthRequestsPerMinute,
	})

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting fintrack server",
		"port", cfg.Port,
		"events", publisher != nil,
		"demo_seed", cfg.DemoSeed,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
