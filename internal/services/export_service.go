package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"tendies/internal/amqp"
	"tendies/internal/core"
	"tendies/internal/log"
	"tendies/internal/reports"
	"tendies/internal/sheets"
)

// ErrExportsDisabled is returned when no publisher is configured.
var ErrExportsDisabled = errors.New("report exports are not configured")

// ExportPublisher queues report export jobs.
type ExportPublisher interface {
	PublishReportExport(ctx context.Context, msg *amqp.ReportExportMessage) error
}

type ExportJob struct {
	ID    uuid.UUID    `json:"id"`
	Year  int          `json:"year"`
	Kind  reports.Kind `json:"kind"`
	Sheet string       `json:"sheet"`
}

type ExportService struct {
	publisher ExportPublisher
	clock     Clock
	limits    Limits
	logger    *log.Logger
}

// NewExportService builds the service. A nil publisher disables exports.
func NewExportService(publisher ExportPublisher, clock Clock, limits Limits, logger *log.Logger) *ExportService {
	return &ExportService{
		publisher: publisher,
		clock:     clockOrNow(clock),
		limits:    limits,
		logger:    componentLogger(logger, log.ComponentReports),
	}
}

func (s *ExportService) Enabled() bool {
	return s != nil && s.publisher != nil
}

// Request queues an export of one report for year. Year 0 means the current
// year.
func (s *ExportService) Request(ctx context.Context, userID int64, year int, kind string) (ExportJob, error) {
	if !s.Enabled() {
		return ExportJob{}, ErrExportsDisabled
	}

	k, err := reports.ParseKind(kind)
	if err != nil {
		return ExportJob{}, err
	}
	now := s.clock()
	if year == 0 {
		year = now.Year()
	}
	if year < s.limits.MinBudgetYear || year > now.Year() {
		return ExportJob{}, core.NewValidationError("year", fmt.Sprintf("must be between %d and %d", s.limits.MinBudgetYear, now.Year()))
	}

	msg := amqp.NewReportExportMessage(userID, year, string(k), now)
	fields := log.NewFields().
		WithOperation(log.OpExport).
		WithUser(userID).
		WithYear(year).
		With(log.FieldReportKind, string(k)).
		With(log.FieldJobID, msg.ID.String())

	if err := s.publisher.PublishReportExport(ctx, msg); err != nil {
		s.logger.Fields(ctx, slog.LevelError, "Export request failed", fields.WithError(err))
		return ExportJob{}, fmt.Errorf("queue export: %w", err)
	}

	s.logger.Fields(ctx, slog.LevelInfo, "Export requested", fields)
	return ExportJob{ID: msg.ID, Year: year, Kind: k, Sheet: sheets.SheetTitle(year, k)}, nil
}
