package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tendies/internal/core"
)

func TestParseBudgetInput(t *testing.T) {
	a := NewBudgetAllocator(nil, testLimits(), discard())

	valid := func() BudgetInput {
		return BudgetInput{
			Name:   " Road Trip_2024 ",
			Year:   2024,
			Amount: "1500.50",
			Allocations: []AllocationInput{
				{Category: "Gas", Percent: 50},
				{Category: "", Percent: 30},
				{Category: "Hotels", Percent: 120},
			},
		}
	}

	b, err := a.ParseBudgetInput(valid(), testNow)
	require.NoError(t, err)
	assert.Equal(t, "Road Trip_2024", b.Name)
	assert.Equal(t, int64(150050), b.Amount.Cents)
	require.Len(t, b.Allocations, 2, "unchecked rows are skipped")
	assert.Equal(t, "0.5", b.Allocations[0].Percent.String())
	assert.Equal(t, "1.2", b.Allocations[1].Percent.String(), "no upper bound")

	tests := []struct {
		name   string
		mutate func(*BudgetInput)
		field  string
	}{
		{"punctuation in name", func(in *BudgetInput) { in.Name = "Trip!" }, "name"},
		{"empty name", func(in *BudgetInput) { in.Name = "   " }, "name"},
		{"year too early", func(in *BudgetInput) { in.Year = 2019 }, "year"},
		{"year in future", func(in *BudgetInput) { in.Year = 2025 }, "year"},
		{"negative amount", func(in *BudgetInput) { in.Amount = "-1" }, "amount"},
		{"garbage amount", func(in *BudgetInput) { in.Amount = "ten" }, "amount"},
		{"amount above cap", func(in *BudgetInput) { in.Amount = "10000000000.01" }, "amount"},
		{"negative percent", func(in *BudgetInput) { in.Allocations[2].Percent = -5 }, "categories[2].percent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid()
			tt.mutate(&in)
			_, err := a.ParseBudgetInput(in, testNow)
			var ve *core.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func newBudget(name string, year int, cents int64, allocs ...core.Allocation) core.Budget {
	return core.Budget{Name: name, Year: year, Amount: core.Money{Cents: cents}, Allocations: allocs}
}

func alloc(name string, points int) core.Allocation {
	return core.Allocation{Name: name, Percent: core.PercentFromPoints(points)}
}

func TestCreateBudget(t *testing.T) {
	store := newTestStore(t)
	r := NewCategoryRegistry(store, testLimits(), discard())
	a := NewBudgetAllocator(store, testLimits(), discard())
	ctx := context.Background()
	addCategories(t, r, alice, "Food", "Gas")

	b, err := a.Create(ctx, newBudget("Groceries", 2024, 40000, alloc("food", 80), alloc("Gas", 20)), alice)
	require.NoError(t, err)
	assert.NotZero(t, b.ID)
	assert.Equal(t, "Food", b.Allocations[0].Name)

	got, err := a.Get(ctx, b.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"Food", "Gas"}, got.CategoryNames())

	_, err = a.Get(ctx, b.ID, bob)
	assert.ErrorIs(t, err, core.ErrNotFound)

	t.Run("duplicate name ignoring case and year", func(t *testing.T) {
		_, err := a.Create(ctx, newBudget("GROCERIES", 2023, 100), alice)
		assert.ErrorIs(t, err, core.ErrDuplicateName)

		_, err = a.Create(ctx, newBudget("groceries", 2024, 100), bob)
		assert.NoError(t, err, "names are unique per user only")
	})

	t.Run("unknown category", func(t *testing.T) {
		_, err := a.Create(ctx, newBudget("Fun", 2024, 100, alloc("Movies", 10)), alice)
		var ve *core.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "categories", ve.Field)
	})

	t.Run("category listed twice", func(t *testing.T) {
		_, err := a.Create(ctx, newBudget("Twice", 2024, 100, alloc("Food", 10), alloc("FOOD", 10)), alice)
		assert.ErrorIs(t, err, core.ErrValidation)
	})
}

func TestCreateBudgetCap(t *testing.T) {
	store := newTestStore(t)
	limits := testLimits()
	limits.MaxBudgets = 2
	a := NewBudgetAllocator(store, limits, discard())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := a.Create(ctx, newBudget(fmt.Sprintf("B%d", i), 2024, 100), alice)
		require.NoError(t, err)
	}
	_, err := a.Create(ctx, newBudget("B2", 2024, 100), alice)
	assert.ErrorIs(t, err, core.ErrLimitReached)
}

func TestBudgetAmountCap(t *testing.T) {
	a := NewBudgetAllocator(newTestStore(t), testLimits(), discard())
	ctx := context.Background()

	_, err := a.Create(ctx, newBudget("Huge", 2024, core.MaxCents+1), alice)
	var ve *core.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "amount", ve.Field)

	_, err = a.Create(ctx, newBudget("Big", 2024, core.MaxCents), alice)
	require.NoError(t, err)
	_, err = a.Update(ctx, "Big", newBudget("Big", 2024, core.MaxCents+1), alice)
	require.ErrorAs(t, err, &ve)
}

func TestCreateBudgetRollsBack(t *testing.T) {
	store := newTestStore(t)
	r := NewCategoryRegistry(store, testLimits(), discard())
	addCategories(t, r, alice, "Food")

	a := NewBudgetAllocator(faultyStore{Store: store, failOn: "InsertAllocation"}, testLimits(), discard())
	_, err := a.Create(context.Background(), newBudget("Groceries", 2024, 100, alloc("Food", 100)), alice)
	require.ErrorIs(t, err, core.ErrCascadeFailed)

	n, err := store.CountBudgets(context.Background(), alice)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpdateBudgetReplacesAllocations(t *testing.T) {
	store := newTestStore(t)
	r := NewCategoryRegistry(store, testLimits(), discard())
	a := NewBudgetAllocator(store, testLimits(), discard())
	ctx := context.Background()
	addCategories(t, r, alice, "Food", "Gas", "Rent")

	_, err := a.Create(ctx, newBudget("Home", 2024, 100000, alloc("Rent", 70), alloc("Food", 20)), alice)
	require.NoError(t, err)
	_, err = a.Create(ctx, newBudget("Car", 2024, 100, alloc("Gas", 100)), alice)
	require.NoError(t, err)

	updated, err := a.Update(ctx, "home", newBudget("House", 2023, 90000, alloc("Gas", 5)), alice)
	require.NoError(t, err)

	got, err := a.GetByName(ctx, "House", alice)
	require.NoError(t, err)
	assert.Equal(t, updated.ID, got.ID)
	assert.Equal(t, 2023, got.Year)
	assert.Equal(t, int64(90000), got.Amount.Cents)
	assert.Equal(t, []string{"Gas"}, got.CategoryNames())

	_, err = a.GetByName(ctx, "Home", alice)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = a.Update(ctx, "House", newBudget("CAR", 2024, 1), alice)
	assert.ErrorIs(t, err, core.ErrDuplicateName)

	_, err = a.Update(ctx, "House", newBudget("house", 2024, 1), alice)
	assert.NoError(t, err, "a budget may keep its own name")

	_, err = a.Update(ctx, "Nope", newBudget("Nope", 2024, 1), alice)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeleteBudget(t *testing.T) {
	store := newTestStore(t)
	r := NewCategoryRegistry(store, testLimits(), discard())
	a := NewBudgetAllocator(store, testLimits(), discard())
	ctx := context.Background()
	addCategories(t, r, alice, "Food")

	_, err := a.Create(ctx, newBudget("Groceries", 2024, 100, alloc("Food", 100)), alice)
	require.NoError(t, err)

	_, err = a.Delete(ctx, "Groceries", bob)
	assert.ErrorIs(t, err, core.ErrNotFound)

	name, err := a.Delete(ctx, "groceries", alice)
	require.NoError(t, err)
	assert.Equal(t, "groceries", name)

	name, err = a.Delete(ctx, "Groceries", alice)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Empty(t, name)
}

func TestTotalBudgetedAndListByYear(t *testing.T) {
	store := newTestStore(t)
	a := NewBudgetAllocator(store, testLimits(), discard())
	ctx := context.Background()

	none, err := a.ListByYear(ctx, alice)
	require.NoError(t, err)
	assert.Nil(t, none)

	total, err := a.TotalBudgeted(ctx, alice, 2024)
	require.NoError(t, err)
	assert.True(t, total.IsZero())

	for _, b := range []core.Budget{
		newBudget("Zoo", 2024, 1000),
		newBudget("Art", 2024, 250),
		newBudget("Old", 2022, 99999),
	} {
		_, err := a.Create(ctx, b, alice)
		require.NoError(t, err)
	}

	total, err = a.TotalBudgeted(ctx, alice, 2024)
	require.NoError(t, err)
	assert.Equal(t, int64(1250), total.Cents)

	years, err := a.ListByYear(ctx, alice)
	require.NoError(t, err)
	require.Len(t, years, 2)
	assert.Equal(t, 2022, years[0].Year)
	assert.Equal(t, 2024, years[1].Year)
	assert.Equal(t, "Art", years[1].Budgets[0].Name)
	assert.Equal(t, "Zoo", years[1].Budgets[1].Name)
}

func TestExpandForEdit(t *testing.T) {
	store := newTestStore(t)
	r := NewCategoryRegistry(store, testLimits(), discard())
	a := NewBudgetAllocator(store, testLimits(), discard())
	ctx := context.Background()
	addCategories(t, r, alice, "Food", "Gas", "Rent")

	b, err := a.Create(ctx, newBudget("Mix", 2024, 100, alloc("Gas", 35)), alice)
	require.NoError(t, err)

	form, err := a.ExpandForEdit(ctx, b, alice)
	require.NoError(t, err)
	require.Len(t, form.Categories, 3)

	assert.Equal(t, "Food", form.Categories[0].Name)
	assert.False(t, form.Categories[0].Checked)
	assert.Nil(t, form.Categories[0].Percent)

	assert.True(t, form.Categories[1].Checked)
	require.NotNil(t, form.Categories[1].Percent)
	assert.Equal(t, 35, *form.Categories[1].Percent)
}
