// Package memory keeps exported tables in process, for local runs and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"tendies/internal/sheets"
)

type Writer struct {
	mu     sync.Mutex
	tables map[string]sheets.Table
	writes int
}

var _ sheets.ReportWriter = (*Writer)(nil)

func New() *Writer {
	return &Writer{tables: make(map[string]sheets.Table)}
}

// WriteTable replaces any table previously written under the same title.
func (w *Writer) WriteTable(_ context.Context, t sheets.Table) (string, error) {
	if t.Title == "" {
		return "", errors.New("table title is required")
	}
	rows := make([][]any, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = append([]any(nil), r...)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.tables[t.Title] = sheets.Table{Title: t.Title, Rows: rows}
	w.writes++
	return fmt.Sprintf("mem:%s#%d", t.Title, w.writes), nil
}

// Table returns the last table written under title.
func (w *Writer) Table(title string) (sheets.Table, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.tables[title]
	return t, ok
}

func (w *Writer) Titles() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	titles := make([]string, 0, len(w.tables))
	for title := range w.tables {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	return titles
}
