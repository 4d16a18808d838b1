package sheets

import (
	"fmt"
	"strings"
	"time"

	"tendies/internal/reports"
)

// SheetTitle names the sheet a report is exported to ("2024 Monthly").
func SheetTitle(year int, kind reports.Kind) string {
	return fmt.Sprintf("%d %s", year, kind.Title())
}

var expenseHeader = []any{"Date", "Description", "Category", "Payer", "Amount"}

func expenseRow(e reports.ExpenseLine) []any {
	return []any{e.Date.String(), e.Description, e.Category, e.Payer, e.Amount.StringFixed(2)}
}

// BudgetTable lists each budget's utilization followed by the expenses that
// counted against it.
func BudgetTable(year int, rows []reports.BudgetRow) Table {
	t := Table{Title: SheetTitle(year, reports.KindBudgets)}
	t.Rows = append(t.Rows, []any{"Budget", "Amount", "Spent", "Remaining", "Categories"})
	for _, b := range rows {
		t.Rows = append(t.Rows, []any{
			b.Name,
			b.Amount.StringFixed(2),
			b.Spent.StringFixed(2),
			b.Remaining.StringFixed(2),
			strings.Join(b.Categories, ", "),
		})
	}
	for _, b := range rows {
		if len(b.Expenses) == 0 {
			continue
		}
		t.Rows = append(t.Rows, []any{}, append([]any{b.Name}, expenseHeader...))
		for _, e := range b.Expenses {
			t.Rows = append(t.Rows, append([]any{""}, expenseRow(e)...))
		}
	}
	return t
}

func MonthlyTable(year int, r reports.MonthlyReport) Table {
	t := Table{Title: SheetTitle(year, reports.KindMonthly)}
	t.Rows = append(t.Rows, []any{"Month", "Amount"})
	for _, m := range r.Chart {
		t.Rows = append(t.Rows, []any{fmt.Sprintf("%s %d", m.Name, m.Year), m.Amount.StringFixed(2)})
	}
	t.Rows = append(t.Rows, []any{}, expenseHeader)
	for _, e := range r.Table {
		t.Rows = append(t.Rows, expenseRow(e))
	}
	return t
}

// TrendsTable writes one row per category with its twelve monthly amounts
// and the yearly total.
func TrendsTable(year int, r reports.TrendsReport) Table {
	t := Table{Title: SheetTitle(year, reports.KindTrends)}
	header := []any{"Category"}
	for m := time.January; m <= time.December; m++ {
		header = append(header, m.String()[:3])
	}
	t.Rows = append(t.Rows, append(header, "Total"))

	for i, total := range r.Categories {
		row := []any{total.Name}
		for _, col := range r.Table {
			row = append(row, col.Categories[i].Amount.StringFixed(2))
		}
		t.Rows = append(t.Rows, append(row, total.Amount.StringFixed(2)))
	}
	return t
}

func PayersTable(year int, shares []reports.PayerShare) Table {
	t := Table{Title: SheetTitle(year, reports.KindPayers)}
	t.Rows = append(t.Rows, []any{"Payer", "Amount", "Percent"})
	for _, p := range shares {
		t.Rows = append(t.Rows, []any{p.Name, p.Amount.StringFixed(2), fmt.Sprintf("%d%%", p.PercentAmount)})
	}
	return t
}
