package main

import (
	"context"
	"os"
	"time"

	"tendies/internal/amqp"
	"tendies/internal/analytics"
	"tendies/internal/cli"
	"tendies/internal/log"
	"tendies/internal/reports"
	"tendies/internal/services"
	"tendies/internal/sheets"
	gsheet "tendies/internal/sheets/google"
	"tendies/internal/sheets/memory"
	"tendies/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	if !cfg.ExportsEnabled() {
		logger.Error("AMQP_URL is required for the export worker")
		os.Exit(1)
	}

	ledger := cli.OpenLedger(context.Background(), logger, cfg)

	var writer sheets.ReportWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = memory.New()
		logger.Warn("No GOOGLE_SPREADSHEET_ID provided, exports are kept in memory only")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	registry := services.NewCategoryRegistry(ledger.Store, cli.Limits(cfg), logger)
	engine := analytics.NewEngine(ledger.Store, time.Now, logger)
	composer := reports.NewComposer(engine, ledger.Store, registry, logger)
	exporter := worker.NewExportWorker(composer, writer, cfg.ExportTimeout, logger)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(context.Context) {
		_ = amqpClient.Close()
		if err := ledger.Cleanup(); err != nil {
			logger.Error("Ledger close error", "error", err)
		}
	})

	logger.Info("Starting export worker", "queue", cfg.AMQPQueue, "backend", cfg.DataBackend)
	if err := exporter.Run(ctx, amqpClient); err != nil {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Export worker stopped gracefully")
}
