// Package ledger declares the storage ports the services, the aggregation
// engine and the report composer consume. Every query takes the owning
// userID; nothing here ever reads across users.
package ledger

import (
	"context"

	"tendies/internal/core"
)

// ExpenseFilter narrows an expense query. Zero values mean "unbounded".
type ExpenseFilter struct {
	From core.Date // inclusive
	To   core.Date // inclusive

	// Categories restricts rows to the listed category names. A nil slice
	// matches every category, an empty non-nil slice matches nothing.
	Categories []string

	// NewestFirst orders by insertion sequence descending instead of ascending.
	NewestFirst bool
	Limit       int
}

// YearFilter covers January 1st through December 31st of year.
func YearFilter(year int) ExpenseFilter {
	return ExpenseFilter{From: core.NewDate(year, 1, 1), To: core.NewDate(year, 12, 31)}
}

// Ports for the relational store.
type (
	CategoryStore interface {
		// FindCategory looks a name up in the shared library, ignoring case.
		FindCategory(ctx context.Context, name string) (core.Category, bool, error)
		// FindUserCategory looks a name up in the user's selection, ignoring case.
		FindUserCategory(ctx context.Context, name string, userID int64) (core.Category, bool, error)
		InsertCategory(ctx context.Context, name string) (int64, error)
		AddUserCategory(ctx context.Context, categoryID, userID int64) error
		RemoveUserCategory(ctx context.Context, categoryID, userID int64) error
		ListUserCategories(ctx context.Context, userID int64) ([]core.Category, error)
		ListLibraryCategories(ctx context.Context) ([]core.Category, error)
		// ExpenseCategoryNames returns the distinct category strings found on
		// the user's expenses, any year.
		ExpenseCategoryNames(ctx context.Context, userID int64) ([]string, error)
		// RepointAllocations moves allocations of the user's budgets from one
		// category to another, keeping their percent.
		RepointAllocations(ctx context.Context, userID, fromCategoryID, toCategoryID int64) error
		DeleteAllocationsForCategory(ctx context.Context, userID, categoryID int64) error
		RenameExpenseCategory(ctx context.Context, userID int64, oldName, newName string) (int64, error)
	}

	BudgetStore interface {
		InsertBudget(ctx context.Context, b core.Budget) (int64, error)
		UpdateBudget(ctx context.Context, b core.Budget) error
		DeleteBudget(ctx context.Context, budgetID, userID int64) error
		InsertAllocation(ctx context.Context, budgetID int64, a core.Allocation) error
		DeleteAllocations(ctx context.Context, budgetID int64) error
		GetBudget(ctx context.Context, budgetID, userID int64) (core.Budget, bool, error)
		FindBudgetByName(ctx context.Context, name string, userID int64) (core.Budget, bool, error)
		// ListBudgets returns the user's budgets with allocations loaded,
		// ordered by year then name. year 0 lists every year.
		ListBudgets(ctx context.Context, userID int64, year int) ([]core.Budget, error)
		CountBudgets(ctx context.Context, userID int64) (int, error)
		SumBudgets(ctx context.Context, userID int64, year int) (core.Money, error)
	}

	ExpenseStore interface {
		InsertExpense(ctx context.Context, e core.Expense) (int64, error)
		UpdateExpense(ctx context.Context, e core.Expense) (bool, error)
		DeleteExpense(ctx context.Context, expenseID, userID int64) (bool, error)
		GetExpense(ctx context.Context, expenseID, userID int64) (core.Expense, bool, error)
		// SumExpenses never returns a NULL-derived error: no rows sum to zero.
		SumExpenses(ctx context.Context, userID int64, f ExpenseFilter) (core.Money, error)
		ListExpenses(ctx context.Context, userID int64, f ExpenseFilter) ([]core.Expense, error)
		CountExpenses(ctx context.Context, userID int64) (int, error)
	}

	PayerStore interface {
		ListPayers(ctx context.Context, userID int64) ([]core.Payer, error)
		FindPayer(ctx context.Context, name string, userID int64) (core.Payer, bool, error)
		InsertPayer(ctx context.Context, userID int64, name string) (int64, error)
		UpdatePayerName(ctx context.Context, payerID, userID int64, name string) error
		DeletePayer(ctx context.Context, payerID, userID int64) error
		RenameExpensePayer(ctx context.Context, userID int64, oldName, newName string) (int64, error)
	}

	// Store is the full ledger. WithTx runs fn against a Store bound to a
	// single transaction, committing when fn returns nil and rolling back
	// otherwise. Calling WithTx on a transactional Store reuses it.
	Store interface {
		CategoryStore
		BudgetStore
		ExpenseStore
		PayerStore
		WithTx(ctx context.Context, fn func(Store) error) error
	}
)
