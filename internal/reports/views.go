package reports

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"tendies/internal/core"
)

// Kind names one of the exportable reports.
type Kind string

const (
	KindBudgets Kind = "budgets"
	KindMonthly Kind = "monthly"
	KindTrends  Kind = "trends"
	KindPayers  Kind = "payers"
)

var kinds = []Kind{KindBudgets, KindMonthly, KindTrends, KindPayers}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range kinds {
		if k == known {
			return k, nil
		}
	}
	return "", core.NewValidationError("kind", fmt.Sprintf("unknown report %q", s))
}

// Title is the human name used for sheet titles ("Monthly").
func (k Kind) Title() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

type (
	ExpenseLine struct {
		ID          int64           `json:"id"`
		Description string          `json:"description"`
		Category    string          `json:"category"`
		Date        core.Date       `json:"expenseDate"`
		Payer       string          `json:"payer"`
		Amount      decimal.Decimal `json:"amount"`
	}

	BudgetRow struct {
		BudgetID   int64           `json:"id"`
		Name       string          `json:"name"`
		Categories []string        `json:"categories"`
		Amount     decimal.Decimal `json:"amount"`
		Spent      decimal.Decimal `json:"spent"`
		Remaining  decimal.Decimal `json:"remaining"`
		Expenses   []ExpenseLine   `json:"expenses,omitempty"`
	}

	MonthAmount struct {
		Name   string          `json:"name"`
		Year   int             `json:"year"`
		Amount decimal.Decimal `json:"amount"`
	}

	MonthlyReport struct {
		Chart []MonthAmount `json:"chart"`
		Table []ExpenseLine `json:"table"`
	}

	TrendRow struct {
		Name               string          `json:"name"`
		ProportionalAmount int             `json:"proportionalAmount"`
		TotalSpent         decimal.Decimal `json:"totalSpent"`
		TotalCount         int             `json:"totalCount"`
	}

	// TrendCell is one category's activity in one month. ExpenseMonth is zero
	// when the category had no expenses that month.
	TrendCell struct {
		Name         string          `json:"name"`
		ExpenseMonth int             `json:"expenseMonth"`
		ExpenseCount int             `json:"expenseCount"`
		Amount       decimal.Decimal `json:"amount"`
	}

	// MonthColumn holds every known category for one calendar month.
	MonthColumn struct {
		Month      string      `json:"month"`
		Categories []TrendCell `json:"categories"`
	}

	CategoryTotal struct {
		Name   string          `json:"name"`
		Amount decimal.Decimal `json:"amount"`
	}

	TrendsReport struct {
		Chart      []TrendRow      `json:"chart"`
		Table      []MonthColumn   `json:"table"`
		Categories []CategoryTotal `json:"categories"`
	}

	PayerShare struct {
		Name          string          `json:"name"`
		Amount        decimal.Decimal `json:"amount"`
		PercentAmount int             `json:"percentAmount"`
	}

	WeekAmount struct {
		StartOfWeek core.Date       `json:"startOfWeek"`
		EndOfWeek   core.Date       `json:"endOfWeek"`
		Amount      decimal.Decimal `json:"amount"`
	}

	Dashboard struct {
		Year            int             `json:"year"`
		TotalYear       decimal.Decimal `json:"expensesYear"`
		TotalMonth      decimal.Decimal `json:"expensesMonth"`
		TotalWeek       decimal.Decimal `json:"expensesWeek"`
		TotalBudgeted   decimal.Decimal `json:"budgeted"`
		LastExpenses    []ExpenseLine   `json:"lastExpenses"`
		WeeklySpending  []WeekAmount    `json:"weeklySpending"`
		MonthlySpending []MonthAmount   `json:"monthlySpending"`
		Budgets         []BudgetRow     `json:"budgets"`
		SpendingTrends  []TrendRow      `json:"spendingTrends"`
	}
)

func expenseLine(e core.Expense) ExpenseLine {
	return ExpenseLine{
		ID:          e.ID,
		Description: e.Description,
		Category:    e.Category,
		Date:        e.Date,
		Payer:       e.Payer,
		Amount:      e.Amount.Decimal(),
	}
}

func expenseLines(expenses []core.Expense) []ExpenseLine {
	lines := make([]ExpenseLine, 0, len(expenses))
	for _, e := range expenses {
		lines = append(lines, expenseLine(e))
	}
	return lines
}
