// Package analytics computes the read-side rollups over a user's expenses:
// period totals, weekly and monthly series, budget utilization and
// per-category trends. Every figure is derived from two store primitives,
// a filtered sum and a filtered row listing.
package analytics

import (
	"context"
	"sort"
	"time"

	"tendies/internal/core"
	"tendies/internal/ledger"
	"tendies/internal/log"
)

// DefaultLastExpenses is how many recent expenses the dashboard shows.
const DefaultLastExpenses = 5

// Store is the slice of the ledger the engine reads.
type Store interface {
	SumExpenses(ctx context.Context, userID int64, f ledger.ExpenseFilter) (core.Money, error)
	ListExpenses(ctx context.Context, userID int64, f ledger.ExpenseFilter) ([]core.Expense, error)
	ListBudgets(ctx context.Context, userID int64, year int) ([]core.Budget, error)
}

type (
	WeeklyAmount struct {
		core.WeekWindow
		Amount core.Money
	}

	MonthlyAmount struct {
		Year   int
		Month  time.Month
		Amount core.Money
	}

	BudgetUsage struct {
		BudgetID   int64
		Name       string
		Categories []string
		Amount     core.Money
		Spent      core.Money
		Remaining  core.Money
	}

	CategoryTrend struct {
		Name               string
		ProportionalAmount int
		TotalSpent         core.Money
		TotalCount         int
	}
)

// Abbreviation returns the three-letter month name ("Jan").
func (m MonthlyAmount) Abbreviation() string {
	return m.Month.String()[:3]
}

type Engine struct {
	store  Store
	clock  func() time.Time
	logger *log.Logger
}

// NewEngine builds an engine reading from store. A nil clock means time.Now.
func NewEngine(store Store, clock func() time.Time, logger *log.Logger) *Engine {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &Engine{
		store:  store,
		clock:  clock,
		logger: logger.WithComponent(log.ComponentAnalytics),
	}
}

// Today is the current calendar day on the engine's clock.
func (e *Engine) Today() core.Date {
	return core.DateOf(e.clock())
}

// CurrentYear is the year used when a caller does not name one.
func (e *Engine) CurrentYear() int {
	return e.clock().Year()
}

func (e *Engine) TotalForYear(ctx context.Context, userID int64) (core.Money, error) {
	return e.store.SumExpenses(ctx, userID, ledger.YearFilter(e.Today().Year()))
}

func (e *Engine) TotalForMonth(ctx context.Context, userID int64) (core.Money, error) {
	today := e.Today()
	first := core.NewDate(today.Year(), int(today.Month()), 1)
	last := core.Date{Time: first.AddDate(0, 1, -1)}
	return e.store.SumExpenses(ctx, userID, ledger.ExpenseFilter{From: first, To: last})
}

func (e *Engine) TotalForWeek(ctx context.Context, userID int64) (core.Money, error) {
	w := weekOf(e.Today())
	return e.store.SumExpenses(ctx, userID, ledger.ExpenseFilter{From: w.Start, To: w.End})
}

// LastExpenses returns the n most recently submitted expenses, newest first.
func (e *Engine) LastExpenses(ctx context.Context, userID int64, n int) ([]core.Expense, error) {
	if n <= 0 {
		n = DefaultLastExpenses
	}
	return e.store.ListExpenses(ctx, userID, ledger.ExpenseFilter{NewestFirst: true, Limit: n})
}

// weekOf returns the Monday..Sunday week containing d.
func weekOf(d core.Date) core.WeekWindow {
	// time.Sunday == 0
	toSunday := (7 - int(d.Weekday())) % 7
	end := d.AddDays(toSunday)
	return core.WeekWindow{Start: end.AddDays(-6), End: end}
}

// LastFourWeekWindows returns the current week and the three before it,
// oldest first.
func (e *Engine) LastFourWeekWindows() []core.WeekWindow {
	current := weekOf(e.Today())
	windows := make([]core.WeekWindow, 4)
	for i := range windows {
		back := 7 * (3 - i)
		windows[i] = core.WeekWindow{Start: current.Start.AddDays(-back), End: current.End.AddDays(-back)}
	}
	return windows
}

// WeeklySpending sums each window. When every window is zero the result is
// empty so callers can render an empty state.
func (e *Engine) WeeklySpending(ctx context.Context, windows []core.WeekWindow, userID int64) ([]WeeklyAmount, error) {
	out := make([]WeeklyAmount, 0, len(windows))
	nonZero := false
	for _, w := range windows {
		sum, err := e.store.SumExpenses(ctx, userID, ledger.ExpenseFilter{From: w.Start, To: w.End})
		if err != nil {
			return nil, err
		}
		if !sum.IsZero() {
			nonZero = true
		}
		out = append(out, WeeklyAmount{WeekWindow: w, Amount: sum})
	}
	if !nonZero {
		return []WeeklyAmount{}, nil
	}
	return out, nil
}

// MonthlySpending sums expenses per month over the twelve months ending at
// the current month (for the current year) or at December of year. Months
// without expenses are omitted; the rest are ordered oldest first.
func (e *Engine) MonthlySpending(ctx context.Context, userID int64, year int) ([]MonthlyAmount, error) {
	endMonth := time.December
	if today := e.Today(); year == today.Year() {
		endMonth = today.Month()
	}
	end := core.Date{Time: core.NewDate(year, int(endMonth), 1).AddDate(0, 1, -1)}
	start := core.NewDate(year, int(endMonth), 1)
	start = core.Date{Time: start.AddDate(0, -11, 0)}

	rows, err := e.store.ListExpenses(ctx, userID, ledger.ExpenseFilter{From: start, To: end})
	if err != nil {
		return nil, err
	}

	type monthKey struct {
		year  int
		month time.Month
	}
	sums := make(map[monthKey]core.Money)
	for _, x := range rows {
		k := monthKey{x.Date.Year(), x.Date.Month()}
		sums[k] = sums[k].Add(x.Amount)
	}

	out := make([]MonthlyAmount, 0, len(sums))
	for m := start; !m.After(end.Time); m = (core.Date{Time: m.AddDate(0, 1, 0)}) {
		k := monthKey{m.Year(), m.Month()}
		if amount, ok := sums[k]; ok {
			out = append(out, MonthlyAmount{Year: k.year, Month: k.month, Amount: amount})
		}
	}
	return out, nil
}

// BudgetUtilization reports spent and remaining for each of the user's
// budgets in year. Remaining never goes below zero. A nil result means the
// user has no budgets that year.
func (e *Engine) BudgetUtilization(ctx context.Context, userID int64, year int) ([]BudgetUsage, error) {
	budgets, err := e.store.ListBudgets(ctx, userID, year)
	if err != nil {
		return nil, err
	}
	if len(budgets) == 0 {
		return nil, nil
	}

	usage := make([]BudgetUsage, 0, len(budgets))
	for _, b := range budgets {
		f := ledger.YearFilter(year)
		f.Categories = b.CategoryNames()
		spent, err := e.store.SumExpenses(ctx, userID, f)
		if err != nil {
			return nil, err
		}
		remaining := b.Amount.Sub(spent)
		if remaining.Cents < 0 {
			remaining = core.Money{}
		}
		usage = append(usage, BudgetUsage{
			BudgetID:   b.ID,
			Name:       b.Name,
			Categories: f.Categories,
			Amount:     b.Amount,
			Spent:      spent,
			Remaining:  remaining,
		})
	}

	e.logger.DebugContext(ctx, "Budget utilization computed",
		log.FieldUserID, userID, log.FieldYear, year, log.FieldCount, len(usage))
	return usage, nil
}

// CategoryTrends groups the year's expenses by category and returns each
// category's whole-percent share of total spend, dropping shares below 1%.
// Rows are ordered by expense count, most first, then by name.
func (e *Engine) CategoryTrends(ctx context.Context, userID int64, year int) ([]CategoryTrend, error) {
	rows, err := e.store.ListExpenses(ctx, userID, ledger.YearFilter(year))
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*CategoryTrend)
	var total core.Money
	for _, x := range rows {
		g, ok := groups[x.Category]
		if !ok {
			g = &CategoryTrend{Name: x.Category}
			groups[x.Category] = g
		}
		g.TotalSpent = g.TotalSpent.Add(x.Amount)
		g.TotalCount++
		total = total.Add(x.Amount)
	}
	if total.IsZero() {
		return []CategoryTrend{}, nil
	}

	trends := make([]CategoryTrend, 0, len(groups))
	for _, g := range groups {
		g.ProportionalAmount = core.Share(g.TotalSpent, total)
		if g.ProportionalAmount < 1 {
			continue
		}
		trends = append(trends, *g)
	}
	sort.Slice(trends, func(i, j int) bool {
		if trends[i].TotalCount != trends[j].TotalCount {
			return trends[i].TotalCount > trends[j].TotalCount
		}
		return trends[i].Name < trends[j].Name
	})
	return trends, nil
}
