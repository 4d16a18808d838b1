package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tendies/internal/core"
	"tendies/internal/ledger"
	"tendies/internal/log"
	"tendies/internal/storage"
)

const (
	alice int64 = 1
	bob   int64 = 2
)

var testNow = time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testLimits() Limits {
	return DefaultLimits()
}

func fixedClock() time.Time { return testNow }

func addCategories(t *testing.T, r *CategoryRegistry, userID int64, names ...string) {
	t.Helper()
	for _, n := range names {
		_, err := r.AddCategory(context.Background(), n, userID)
		require.NoError(t, err)
	}
}

func mustDate(s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newExpense(date, category, payer string, cents int64) core.Expense {
	return core.Expense{
		Description: category + " purchase",
		Category:    category,
		Date:        mustDate(date),
		Amount:      core.Money{Cents: cents},
		Payer:       payer,
	}
}

var errInjected = errors.New("disk I/O error")

// faultyStore fails one named store call inside transactions.
type faultyStore struct {
	ledger.Store
	failOn string
}

func (f faultyStore) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	return f.Store.WithTx(ctx, func(tx ledger.Store) error {
		return fn(faultyStore{Store: tx, failOn: f.failOn})
	})
}

func (f faultyStore) RenameExpenseCategory(ctx context.Context, userID int64, oldName, newName string) (int64, error) {
	if f.failOn == "RenameExpenseCategory" {
		return 0, errInjected
	}
	return f.Store.RenameExpenseCategory(ctx, userID, oldName, newName)
}

func (f faultyStore) InsertAllocation(ctx context.Context, budgetID int64, a core.Allocation) error {
	if f.failOn == "InsertAllocation" {
		return errInjected
	}
	return f.Store.InsertAllocation(ctx, budgetID, a)
}

func (f faultyStore) InsertExpense(ctx context.Context, e core.Expense) (int64, error) {
	if f.failOn == "InsertExpense" && e.Description == "poison" {
		return 0, errInjected
	}
	return f.Store.InsertExpense(ctx, e)
}

func (f faultyStore) UpdatePayerName(ctx context.Context, payerID, userID int64, name string) error {
	if f.failOn == "UpdatePayerName" {
		return errInjected
	}
	return f.Store.UpdatePayerName(ctx, payerID, userID, name)
}

func discard() *log.Logger { return log.Discard() }

func ledgerAll() ledger.ExpenseFilter { return ledger.ExpenseFilter{} }
