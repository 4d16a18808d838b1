package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tendies/internal/amqp"
	"tendies/internal/core"
	"tendies/internal/log"
	"tendies/internal/reports"
	"tendies/internal/sheets"
	"tendies/internal/sheets/memory"
)

type stubComposer struct {
	err   error
	calls []string
}

func (s *stubComposer) BudgetReport(context.Context, int64, int) ([]reports.BudgetRow, error) {
	s.calls = append(s.calls, "budgets")
	return []reports.BudgetRow{{Name: "Travel", Amount: decimal.NewFromInt(10), Spent: decimal.Zero, Remaining: decimal.NewFromInt(10)}}, s.err
}

func (s *stubComposer) MonthlyReport(context.Context, int64, int) (reports.MonthlyReport, error) {
	s.calls = append(s.calls, "monthly")
	return reports.MonthlyReport{}, s.err
}

func (s *stubComposer) SpendingTrendsReport(context.Context, int64, int) (reports.TrendsReport, error) {
	s.calls = append(s.calls, "trends")
	return reports.TrendsReport{}, s.err
}

func (s *stubComposer) PayersReport(_ context.Context, userID int64, year int) ([]reports.PayerShare, error) {
	s.calls = append(s.calls, "payers")
	return []reports.PayerShare{{Name: "Alice", Amount: decimal.NewFromInt(300), PercentAmount: 100}}, s.err
}

type failingWriter struct{}

func (failingWriter) WriteTable(context.Context, sheets.Table) (string, error) {
	return "", errors.New("quota exceeded")
}

func TestHandleExportWritesSheet(t *testing.T) {
	composer := &stubComposer{}
	writer := memory.New()
	w := NewExportWorker(composer, writer, time.Second, log.Discard())

	for _, kind := range []string{"budgets", "monthly", "trends", "Payers"} {
		msg := amqp.NewReportExportMessage(1, 2024, kind, time.Now())
		if err := w.HandleExport(context.Background(), msg); err != nil {
			t.Fatalf("HandleExport(%s) error = %v", kind, err)
		}
	}

	want := []string{"2024 Budgets", "2024 Monthly", "2024 Payers", "2024 Trends"}
	got := writer.Titles()
	if len(got) != len(want) {
		t.Fatalf("titles = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("titles[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	payers, _ := writer.Table("2024 Payers")
	if len(payers.Rows) != 2 || payers.Rows[1][0] != "Alice" {
		t.Errorf("payers table = %v", payers.Rows)
	}
}

func TestHandleExportDiscardsUnknownKind(t *testing.T) {
	composer := &stubComposer{}
	w := NewExportWorker(composer, memory.New(), 0, log.Discard())

	err := w.HandleExport(context.Background(), amqp.NewReportExportMessage(1, 2024, "income", time.Now()))
	if !errors.Is(err, amqp.ErrDiscard) {
		t.Fatalf("expected ErrDiscard, got %v", err)
	}
	if len(composer.calls) != 0 {
		t.Errorf("composer should not be called, got %v", composer.calls)
	}
}

func TestHandleExportDiscardsRejectedRequests(t *testing.T) {
	for _, cause := range []error{
		core.NewValidationError("year", "out of range"),
		fmt.Errorf("budget 7: %w", core.ErrNotFound),
	} {
		w := NewExportWorker(&stubComposer{err: cause}, memory.New(), time.Second, log.Discard())
		err := w.HandleExport(context.Background(), amqp.NewReportExportMessage(1, 2024, "budgets", time.Now()))
		if !errors.Is(err, amqp.ErrDiscard) || !errors.Is(err, cause) {
			t.Errorf("HandleExport with %v = %v, want a discard wrapping the cause", cause, err)
		}
	}
}

func TestHandleExportFailuresAreRetryable(t *testing.T) {
	tests := []struct {
		name     string
		composer *stubComposer
		writer   sheets.ReportWriter
	}{
		{"compose error", &stubComposer{err: errors.New("database is locked")}, memory.New()},
		{"write error", &stubComposer{}, failingWriter{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewExportWorker(tt.composer, tt.writer, time.Second, log.Discard())
			err := w.HandleExport(context.Background(), amqp.NewReportExportMessage(1, 2024, "payers", time.Now()))
			if err == nil {
				t.Fatal("expected an error")
			}
			if errors.Is(err, amqp.ErrDiscard) {
				t.Error("transient failures should be requeued, not discarded")
			}
		})
	}
}

type stubConsumer struct {
	msgs []*amqp.ReportExportMessage
	errs []error
}

func (s *stubConsumer) ConsumeReportExports(ctx context.Context, handler amqp.Handler) error {
	for _, m := range s.msgs {
		s.errs = append(s.errs, handler(ctx, m))
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRunStopsWithContext(t *testing.T) {
	writer := memory.New()
	w := NewExportWorker(&stubComposer{}, writer, time.Second, log.Discard())
	consumer := &stubConsumer{msgs: []*amqp.ReportExportMessage{
		amqp.NewReportExportMessage(1, 2023, "monthly", time.Now()),
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := w.Run(ctx, consumer); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(consumer.errs) != 1 || consumer.errs[0] != nil {
		t.Errorf("handler results = %v", consumer.errs)
	}
	if _, ok := writer.Table("2023 Monthly"); !ok {
		t.Error("monthly table not written")
	}
}
