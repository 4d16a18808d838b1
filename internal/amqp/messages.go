package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReportExportMessage asks the export worker to write one report to a sheet.
// The worker composes the report itself from the ledger.
type ReportExportMessage struct {
	ID          uuid.UUID `json:"id"`
	UserID      int64     `json:"user_id"`
	Year        int       `json:"year"`
	Kind        string    `json:"kind"`
	RequestedAt time.Time `json:"requested_at"`
}

func NewReportExportMessage(userID int64, year int, kind string, requestedAt time.Time) *ReportExportMessage {
	return &ReportExportMessage{
		ID:          uuid.New(),
		UserID:      userID,
		Year:        year,
		Kind:        kind,
		RequestedAt: requestedAt.UTC(),
	}
}

func (m *ReportExportMessage) Validate() error {
	var errs []error
	if m.ID == uuid.Nil {
		errs = append(errs, errors.New("missing id"))
	}
	if m.UserID <= 0 {
		errs = append(errs, fmt.Errorf("invalid user id %d", m.UserID))
	}
	if m.Year <= 0 {
		errs = append(errs, fmt.Errorf("invalid year %d", m.Year))
	}
	if m.Kind == "" {
		errs = append(errs, errors.New("missing report kind"))
	}
	return errors.Join(errs...)
}

func (m *ReportExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportExportMessageFromJSON decodes and validates a message body.
func ReportExportMessageFromJSON(data []byte) (*ReportExportMessage, error) {
	var msg ReportExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
