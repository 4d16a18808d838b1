package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"tendies/internal/amqp"
	"tendies/internal/analytics"
	"tendies/internal/cli"
	apphttp "tendies/internal/http"
	"tendies/internal/log"
	"tendies/internal/reports"
	"tendies/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ledger := cli.OpenLedger(context.Background(), logger, cfg)
	limits := cli.Limits(cfg)

	// Exports are optional: without a broker the endpoint answers 503.
	var publisher services.ExportPublisher
	var amqpClient *amqp.Client
	if cfg.ExportsEnabled() {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, report exports disabled", "error", err)
		} else {
			publisher = amqpClient
		}
	}

	registry := services.NewCategoryRegistry(ledger.Store, limits, logger)
	engine := analytics.NewEngine(ledger.Store, time.Now, logger)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Categories: registry,
		Budgets:    services.NewBudgetAllocator(ledger.Store, limits, logger),
		Payers:     services.NewPayerService(ledger.Store, limits, logger),
		Expenses:   services.NewExpenseService(ledger.Store, time.Now, logger),
		Account:    services.NewAccountService(ledger.Store),
		Exports:    services.NewExportService(publisher, time.Now, limits, logger),
		Reports:    reports.NewComposer(engine, ledger.Store, registry, logger),
	}, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		ReportCacheTTL:     cfg.ReportCacheTTL,
	}, logger)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		if err := ledger.Cleanup(); err != nil {
			logger.Error("Ledger close error", "error", err)
		}
	})

	logger.Info("Starting tendies server", "port", cfg.Port, "backend", cfg.DataBackend, "exports", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
