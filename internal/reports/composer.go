// Package reports assembles analytics results and expense rows into the
// report shapes handed to the HTTP layer and the sheet exporter. Amounts
// leave this package as decimals.
package reports

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"tendies/internal/analytics"
	"tendies/internal/core"
	"tendies/internal/ledger"
	"tendies/internal/log"
)

// Store is the part of the ledger read directly by the composer.
type Store interface {
	ListExpenses(ctx context.Context, userID int64, f ledger.ExpenseFilter) ([]core.Expense, error)
	ListPayers(ctx context.Context, userID int64) ([]core.Payer, error)
	SumBudgets(ctx context.Context, userID int64, year int) (core.Money, error)
}

// Categories supplies a user's active and inactive category names.
type Categories interface {
	ListActive(ctx context.Context, userID int64) ([]core.Category, error)
	ListInactive(ctx context.Context, userID int64) ([]string, error)
}

type Composer struct {
	engine     *analytics.Engine
	store      Store
	categories Categories
	logger     *log.Logger
}

func NewComposer(engine *analytics.Engine, store Store, categories Categories, logger *log.Logger) *Composer {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &Composer{
		engine:     engine,
		store:      store,
		categories: categories,
		logger:     logger.WithComponent(log.ComponentReports),
	}
}

// Year resolves the report year, defaulting to the current one.
func (c *Composer) Year(year int) int {
	if year <= 0 {
		return c.engine.CurrentYear()
	}
	return year
}

// BudgetReport returns each budget's utilization in year together with the
// expenses that counted against it. An expense whose category is allocated in
// several budgets shows up under each of them. Nil means no budgets.
func (c *Composer) BudgetReport(ctx context.Context, userID int64, year int) ([]BudgetRow, error) {
	year = c.Year(year)
	usage, err := c.engine.BudgetUtilization(ctx, userID, year)
	if err != nil || usage == nil {
		return nil, err
	}

	rows := budgetRows(usage)
	for i, u := range usage {
		f := ledger.YearFilter(year)
		f.Categories = u.Categories
		expenses, err := c.store.ListExpenses(ctx, userID, f)
		if err != nil {
			return nil, err
		}
		rows[i].Expenses = expenseLines(expenses)
	}

	c.logComposed(ctx, KindBudgets, userID, year, len(rows))
	return rows, nil
}

func budgetRows(usage []analytics.BudgetUsage) []BudgetRow {
	if usage == nil {
		return nil
	}
	rows := make([]BudgetRow, 0, len(usage))
	for _, u := range usage {
		rows = append(rows, BudgetRow{
			BudgetID:   u.BudgetID,
			Name:       u.Name,
			Categories: u.Categories,
			Amount:     u.Amount.Decimal(),
			Spent:      u.Spent.Decimal(),
			Remaining:  u.Remaining.Decimal(),
		})
	}
	return rows
}

// MonthlyReport pairs the monthly spending chart with every expense of the
// year in insertion order.
func (c *Composer) MonthlyReport(ctx context.Context, userID int64, year int) (MonthlyReport, error) {
	year = c.Year(year)
	months, err := c.engine.MonthlySpending(ctx, userID, year)
	if err != nil {
		return MonthlyReport{}, err
	}
	expenses, err := c.store.ListExpenses(ctx, userID, ledger.YearFilter(year))
	if err != nil {
		return MonthlyReport{}, err
	}

	c.logComposed(ctx, KindMonthly, userID, year, len(expenses))
	return MonthlyReport{Chart: monthAmounts(months), Table: expenseLines(expenses)}, nil
}

func monthAmounts(months []analytics.MonthlyAmount) []MonthAmount {
	out := make([]MonthAmount, 0, len(months))
	for _, m := range months {
		out = append(out, MonthAmount{Name: m.Abbreviation(), Year: m.Year, Amount: m.Amount.Decimal()})
	}
	return out
}

// SpendingTrendsReport builds the trend chart plus a dense month by category
// grid. Every active category, then every inactive one, appears in each of
// the twelve months even without expenses.
func (c *Composer) SpendingTrendsReport(ctx context.Context, userID int64, year int) (TrendsReport, error) {
	year = c.Year(year)
	trends, err := c.engine.CategoryTrends(ctx, userID, year)
	if err != nil {
		return TrendsReport{}, err
	}
	active, err := c.categories.ListActive(ctx, userID)
	if err != nil {
		return TrendsReport{}, err
	}
	inactive, err := c.categories.ListInactive(ctx, userID)
	if err != nil {
		return TrendsReport{}, err
	}
	expenses, err := c.store.ListExpenses(ctx, userID, ledger.YearFilter(year))
	if err != nil {
		return TrendsReport{}, err
	}

	names := make([]string, 0, len(active)+len(inactive))
	for _, cat := range active {
		names = append(names, cat.Name)
	}
	names = append(names, inactive...)

	type cellKey struct {
		month    time.Month
		category string
	}
	type cellSum struct {
		count  int
		amount core.Money
	}
	cells := make(map[cellKey]cellSum)
	for _, e := range expenses {
		k := cellKey{e.Date.Month(), e.Category}
		s := cells[k]
		s.count++
		s.amount = s.amount.Add(e.Amount)
		cells[k] = s
	}

	totals := make([]core.Money, len(names))
	table := make([]MonthColumn, 0, 12)
	for m := time.January; m <= time.December; m++ {
		col := MonthColumn{Month: m.String(), Categories: make([]TrendCell, len(names))}
		for i, name := range names {
			cell := TrendCell{Name: name, Amount: core.Money{}.Decimal()}
			if s, ok := cells[cellKey{m, name}]; ok {
				cell.ExpenseMonth = int(m)
				cell.ExpenseCount = s.count
				cell.Amount = s.amount.Decimal()
				totals[i] = totals[i].Add(s.amount)
			}
			col.Categories[i] = cell
		}
		table = append(table, col)
	}

	categories := make([]CategoryTotal, len(names))
	for i, name := range names {
		categories[i] = CategoryTotal{Name: name, Amount: totals[i].Decimal()}
	}

	c.logComposed(ctx, KindTrends, userID, year, len(names))
	return TrendsReport{Chart: trendRows(trends), Table: table, Categories: categories}, nil
}

func trendRows(trends []analytics.CategoryTrend) []TrendRow {
	out := make([]TrendRow, 0, len(trends))
	for _, t := range trends {
		out = append(out, TrendRow{
			Name:               t.Name,
			ProportionalAmount: t.ProportionalAmount,
			TotalSpent:         t.TotalSpent.Decimal(),
			TotalCount:         t.TotalCount,
		})
	}
	return out
}

// PayersReport sums the year's expenses per payer, largest first, then lists
// the user's stored payers that paid nothing. Nil when nothing was paid.
func (c *Composer) PayersReport(ctx context.Context, userID int64, year int) ([]PayerShare, error) {
	year = c.Year(year)
	expenses, err := c.store.ListExpenses(ctx, userID, ledger.YearFilter(year))
	if err != nil {
		return nil, err
	}
	stored, err := c.store.ListPayers(ctx, userID)
	if err != nil {
		return nil, err
	}

	sums := make(map[string]core.Money)
	var total core.Money
	for _, e := range expenses {
		sums[e.Payer] = sums[e.Payer].Add(e.Amount)
		total = total.Add(e.Amount)
	}
	if total.IsZero() {
		return nil, nil
	}

	paid := make([]string, 0, len(sums))
	for name := range sums {
		paid = append(paid, name)
	}
	sort.Slice(paid, func(i, j int) bool {
		a, b := sums[paid[i]], sums[paid[j]]
		if a.Cents != b.Cents {
			return a.Cents > b.Cents
		}
		return paid[i] < paid[j]
	})

	shares := make([]PayerShare, 0, len(paid)+len(stored))
	for _, name := range paid {
		shares = append(shares, PayerShare{
			Name:          name,
			Amount:        sums[name].Decimal(),
			PercentAmount: core.Share(sums[name], total),
		})
	}
	for _, p := range stored {
		if _, ok := sums[p.Name]; !ok {
			shares = append(shares, PayerShare{Name: p.Name, Amount: core.Money{}.Decimal()})
		}
	}

	c.logComposed(ctx, KindPayers, userID, year, len(shares))
	return shares, nil
}

// Dashboard gathers the current-year overview. The pieces are independent
// reads and are fetched concurrently.
func (c *Composer) Dashboard(ctx context.Context, userID int64) (Dashboard, error) {
	year := c.engine.CurrentYear()
	d := Dashboard{Year: year}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		total, err := c.engine.TotalForYear(ctx, userID)
		d.TotalYear = total.Decimal()
		return err
	})
	g.Go(func() error {
		total, err := c.engine.TotalForMonth(ctx, userID)
		d.TotalMonth = total.Decimal()
		return err
	})
	g.Go(func() error {
		total, err := c.engine.TotalForWeek(ctx, userID)
		d.TotalWeek = total.Decimal()
		return err
	})
	g.Go(func() error {
		total, err := c.store.SumBudgets(ctx, userID, year)
		d.TotalBudgeted = total.Decimal()
		return err
	})
	g.Go(func() error {
		last, err := c.engine.LastExpenses(ctx, userID, analytics.DefaultLastExpenses)
		d.LastExpenses = expenseLines(last)
		return err
	})
	g.Go(func() error {
		weeks, err := c.engine.WeeklySpending(ctx, c.engine.LastFourWeekWindows(), userID)
		d.WeeklySpending = make([]WeekAmount, 0, len(weeks))
		for _, w := range weeks {
			d.WeeklySpending = append(d.WeeklySpending, WeekAmount{StartOfWeek: w.Start, EndOfWeek: w.End, Amount: w.Amount.Decimal()})
		}
		return err
	})
	g.Go(func() error {
		months, err := c.engine.MonthlySpending(ctx, userID, year)
		d.MonthlySpending = monthAmounts(months)
		return err
	})
	g.Go(func() error {
		usage, err := c.engine.BudgetUtilization(ctx, userID, year)
		d.Budgets = budgetRows(usage)
		return err
	})
	g.Go(func() error {
		trends, err := c.engine.CategoryTrends(ctx, userID, year)
		d.SpendingTrends = trendRows(trends)
		return err
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}

func (c *Composer) logComposed(ctx context.Context, kind Kind, userID int64, year, rows int) {
	c.logger.Fields(ctx, slog.LevelDebug, "Report composed", log.NewFields().
		WithOperation(log.OpCompose).
		WithUser(userID).
		WithYear(year).
		With(log.FieldReportKind, string(kind)).
		With(log.FieldCount, rows))
}
