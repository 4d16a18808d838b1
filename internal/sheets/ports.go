package sheets

import "context"

// Table is a block of cells written to one sheet, header rows included.
type Table struct {
	Title string
	Rows  [][]any
}

// ReportWriter is the outbound port for report exports.
type ReportWriter interface {
	// WriteTable replaces the contents of the sheet named t.Title, creating it
	// when missing, and returns a reference to the written range.
	WriteTable(ctx context.Context, t Table) (ref string, err error)
}
