// Package worker turns report export messages into sheet writes.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tendies/internal/amqp"
	"tendies/internal/core"
	"tendies/internal/log"
	"tendies/internal/reports"
	"tendies/internal/sheets"
)

// Composer builds the reports the worker exports.
type Composer interface {
	BudgetReport(ctx context.Context, userID int64, year int) ([]reports.BudgetRow, error)
	MonthlyReport(ctx context.Context, userID int64, year int) (reports.MonthlyReport, error)
	SpendingTrendsReport(ctx context.Context, userID int64, year int) (reports.TrendsReport, error)
	PayersReport(ctx context.Context, userID int64, year int) ([]reports.PayerShare, error)
}

// Consumer feeds messages to a handler until its context ends.
type Consumer interface {
	ConsumeReportExports(ctx context.Context, handler amqp.Handler) error
}

type ExportWorker struct {
	composer Composer
	writer   sheets.ReportWriter
	timeout  time.Duration
	logger   *log.Logger
}

func NewExportWorker(composer Composer, writer sheets.ReportWriter, timeout time.Duration, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &ExportWorker{
		composer: composer,
		writer:   writer,
		timeout:  timeout,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// Run consumes export messages until ctx is cancelled.
func (w *ExportWorker) Run(ctx context.Context, consumer Consumer) error {
	w.logger.InfoContext(ctx, "Export worker started")
	err := consumer.ConsumeReportExports(ctx, w.HandleExport)
	if ctx.Err() != nil {
		w.logger.InfoContext(ctx, "Export worker stopped")
		return nil
	}
	return err
}

// HandleExport composes the requested report and writes it to its sheet.
// Unknown report kinds and requests the ledger rejects are discarded rather
// than retried.
func (w *ExportWorker) HandleExport(ctx context.Context, msg *amqp.ReportExportMessage) error {
	fields := log.NewFields().
		WithOperation(log.OpExport).
		WithUser(msg.UserID).
		WithYear(msg.Year).
		With(log.FieldJobID, msg.ID.String()).
		With(log.FieldReportKind, msg.Kind)

	kind, err := reports.ParseKind(msg.Kind)
	if err != nil {
		w.logger.Fields(ctx, slog.LevelWarn, "Discarding export with unknown report", fields.WithError(err))
		return fmt.Errorf("%w: %w", amqp.ErrDiscard, err)
	}

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	start := time.Now()
	table, err := w.compose(ctx, kind, msg.UserID, msg.Year)
	if err != nil {
		w.logger.Fields(ctx, slog.LevelError, "Report compose failed", fields.WithError(err))
		if errors.Is(err, core.ErrValidation) || errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("%w: compose %s report: %w", amqp.ErrDiscard, kind, err)
		}
		return fmt.Errorf("compose %s report: %w", kind, err)
	}

	ref, err := w.writer.WriteTable(ctx, table)
	if err != nil {
		w.logger.Fields(ctx, slog.LevelError, "Report write failed", fields.WithError(err).With(log.FieldSheet, table.Title))
		return fmt.Errorf("write %s report: %w", kind, err)
	}

	w.logger.Fields(ctx, slog.LevelInfo, "Report exported", fields.
		With(log.FieldSheet, table.Title).
		With("ref", ref).
		With(log.FieldCount, len(table.Rows)).
		With(log.FieldDuration, time.Since(start).Milliseconds()))
	return nil
}

func (w *ExportWorker) compose(ctx context.Context, kind reports.Kind, userID int64, year int) (sheets.Table, error) {
	switch kind {
	case reports.KindBudgets:
		rows, err := w.composer.BudgetReport(ctx, userID, year)
		return sheets.BudgetTable(year, rows), err
	case reports.KindMonthly:
		r, err := w.composer.MonthlyReport(ctx, userID, year)
		return sheets.MonthlyTable(year, r), err
	case reports.KindTrends:
		r, err := w.composer.SpendingTrendsReport(ctx, userID, year)
		return sheets.TrendsTable(year, r), err
	case reports.KindPayers:
		shares, err := w.composer.PayersReport(ctx, userID, year)
		return sheets.PayersTable(year, shares), err
	default:
		return sheets.Table{}, fmt.Errorf("unsupported report kind %q", kind)
	}
}
