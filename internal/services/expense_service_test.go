package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tendies/internal/core"
)

func TestAddExpensesNormalizesNames(t *testing.T) {
	store := newTestStore(t)
	r := NewCategoryRegistry(store, testLimits(), discard())
	payers := NewPayerService(store, testLimits(), discard())
	svc := NewExpenseService(store, fixedClock, discard())
	ctx := context.Background()
	addCategories(t, r, alice, "Groceries")
	_, err := payers.Add(ctx, "Bob", alice)
	require.NoError(t, err)

	added, err := svc.Add(ctx, []core.Expense{
		newExpense("2024-03-01", " groceries ", "bob", 1250),
		newExpense("2024-03-02", "GROCERIES", "", 0),
	}, alice)
	require.Error(t, err, "empty payer is rejected")
	assert.Nil(t, added)

	added, err = svc.Add(ctx, []core.Expense{
		newExpense("2024-03-01", " groceries ", "bob", 1250),
		newExpense("2024-03-02", "GROCERIES", "SELF", 0),
	}, alice)
	require.NoError(t, err)
	require.Len(t, added, 2)

	for _, e := range added {
		assert.NotZero(t, e.ID)
		assert.Equal(t, alice, e.UserID)
		assert.Equal(t, "Groceries", e.Category)
		assert.True(t, e.SubmitTime.Equal(testNow))
	}
	assert.Equal(t, "Bob", added[0].Payer)
	assert.Equal(t, core.DefaultPayer, added[1].Payer)

	got, err := svc.Get(ctx, added[0].ID, alice)
	require.NoError(t, err)
	assert.Equal(t, added[0].Description, got.Description)
	assert.True(t, got.SubmitTime.Equal(testNow))
}

func TestAddExpensesValidation(t *testing.T) {
	store := newTestStore(t)
	r := NewCategoryRegistry(store, testLimits(), discard())
	svc := NewExpenseService(store, fixedClock, discard())
	ctx := context.Background()
	addCategories(t, r, alice, "Food")

	_, err := svc.Add(ctx, nil, alice)
	assert.ErrorIs(t, err, core.ErrValidation)

	tests := []struct {
		name   string
		mutate func(*core.Expense)
		field  string
	}{
		{"missing date", func(e *core.Expense) { e.Date = core.Date{} }, "expenses[1].date"},
		{"blank description", func(e *core.Expense) { e.Description = "  " }, "expenses[1].description"},
		{"negative amount", func(e *core.Expense) { e.Amount.Cents = -1 }, "expenses[1].amount"},
		{"amount above cap", func(e *core.Expense) { e.Amount.Cents = core.MaxCents + 1 }, "expenses[1].amount"},
		{"blank category", func(e *core.Expense) { e.Category = "" }, "expenses[1].category"},
		{"unknown category", func(e *core.Expense) { e.Category = "Yachts" }, "expenses[1].category"},
		{"unknown payer", func(e *core.Expense) { e.Payer = "Mallory" }, "expenses[1].payer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := newExpense("2024-01-02", "Food", core.DefaultPayer, 100)
			tt.mutate(&bad)
			_, err := svc.Add(ctx, []core.Expense{newExpense("2024-01-01", "Food", core.DefaultPayer, 100), bad}, alice)
			var ve *core.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	n, err := store.CountExpenses(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, n, "a rejected batch inserts nothing")
}

func TestAddExpensesRollsBack(t *testing.T) {
	store := newTestStore(t)
	r := NewCategoryRegistry(store, testLimits(), discard())
	addCategories(t, r, alice, "Food")

	svc := NewExpenseService(faultyStore{Store: store, failOn: "InsertExpense"}, fixedClock, discard())
	poison := newExpense("2024-01-02", "Food", core.DefaultPayer, 100)
	poison.Description = "poison"

	_, err := svc.Add(context.Background(), []core.Expense{newExpense("2024-01-01", "Food", core.DefaultPayer, 100), poison}, alice)
	require.ErrorIs(t, err, core.ErrCascadeFailed)

	n, err := store.CountExpenses(context.Background(), alice)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpdateAndDeleteExpense(t *testing.T) {
	store := newTestStore(t)
	r := NewCategoryRegistry(store, testLimits(), discard())
	svc := NewExpenseService(store, fixedClock, discard())
	ctx := context.Background()
	addCategories(t, r, alice, "Food", "Gas")
	addCategories(t, r, bob, "Food", "Gas")

	added, err := svc.Add(ctx, []core.Expense{newExpense("2024-01-01", "Food", core.DefaultPayer, 100)}, alice)
	require.NoError(t, err)
	e := added[0]

	e.Category = "gas"
	e.Amount = core.Money{Cents: 999}
	updated, err := svc.Update(ctx, e, alice)
	require.NoError(t, err)
	assert.Equal(t, "Gas", updated.Category)
	assert.Equal(t, int64(999), updated.Amount.Cents)
	assert.True(t, updated.SubmitTime.Equal(testNow))

	_, err = svc.Update(ctx, e, bob)
	assert.ErrorIs(t, err, core.ErrNotFound, "other users cannot edit")

	assert.ErrorIs(t, svc.Delete(ctx, e.ID, bob), core.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, e.ID, alice))
	_, err = svc.Get(ctx, e.ID, alice)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUpdateKeepsInactiveCategoryAndPayer(t *testing.T) {
	store := newTestStore(t)
	r := NewCategoryRegistry(store, testLimits(), discard())
	payers := NewPayerService(store, testLimits(), discard())
	svc := NewExpenseService(store, fixedClock, discard())
	ctx := context.Background()
	addCategories(t, r, alice, "Food", "Gas")
	_, err := payers.Add(ctx, "Alice", alice)
	require.NoError(t, err)

	added, err := svc.Add(ctx, []core.Expense{newExpense("2024-01-01", "Food", "Alice", 100)}, alice)
	require.NoError(t, err)
	require.NoError(t, r.DeleteCategory(ctx, "Food", alice))
	require.NoError(t, payers.Delete(ctx, "Alice", alice))

	e := added[0]
	e.Description = "Groceries"
	e.Amount = core.Money{Cents: 250}
	updated, err := svc.Update(ctx, e, alice)
	require.NoError(t, err)
	assert.Equal(t, "Food", updated.Category)
	assert.Equal(t, "Alice", updated.Payer)
	assert.Equal(t, "Groceries", updated.Description)

	e.Category = "food"
	_, err = svc.Update(ctx, e, alice)
	var ve *core.ValidationError
	require.ErrorAs(t, err, &ve, "a different spelling is a new choice and must be active")
	assert.Equal(t, "category", ve.Field)

	e.Category = "Gas"
	e.Payer = "Bob"
	_, err = svc.Update(ctx, e, alice)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "payer", ve.Field)
}

func TestAccountStatistics(t *testing.T) {
	store := newTestStore(t)
	r := NewCategoryRegistry(store, testLimits(), discard())
	payers := NewPayerService(store, testLimits(), discard())
	budgets := NewBudgetAllocator(store, testLimits(), discard())
	expenses := NewExpenseService(store, fixedClock, discard())
	account := NewAccountService(store)
	ctx := context.Background()

	empty, err := account.Statistics(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, Statistics{}, empty)

	addCategories(t, r, alice, "Food", "Gas")
	_, err = payers.Add(ctx, "Bob", alice)
	require.NoError(t, err)
	_, err = budgets.Create(ctx, newBudget("Eat", 2024, 100, alloc("Food", 100)), alice)
	require.NoError(t, err)
	_, err = expenses.Add(ctx, []core.Expense{
		newExpense("2024-01-01", "Food", "Bob", 1),
		newExpense("2024-01-01", "Gas", core.DefaultPayer, 1),
		newExpense("2024-01-01", "Gas", core.DefaultPayer, 1),
	}, alice)
	require.NoError(t, err)

	stats, err := account.Statistics(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, Statistics{Expenses: 3, Budgets: 1, Categories: 2, Payers: 1}, stats)
}
