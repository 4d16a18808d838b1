package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"tendies/internal/core"
	"tendies/internal/ledger"
	"tendies/internal/log"
)

// BudgetInput is the submitted budget form. Allocations with an empty
// Category are unchecked rows and are skipped.
type BudgetInput struct {
	Name        string            `json:"name" validate:"required,max=64,budgetname"`
	Year        int               `json:"year"`
	Amount      string            `json:"amount"`
	Allocations []AllocationInput `json:"categories"`
}

// AllocationInput pairs a category name with whole percent points (25 == 25%).
type AllocationInput struct {
	Category string `json:"category" validate:"max=64"`
	Percent  int    `json:"percent" validate:"min=0"`
}

// EditableBudget is a budget expanded over every active category of its
// owner, for the edit form.
type EditableBudget struct {
	core.Budget
	Categories []EditableCategory
}

type EditableCategory struct {
	Name    string
	Checked bool
	Percent *int // whole percent points, nil when unchecked
}

// BudgetYear groups a user's budgets for one year.
type BudgetYear struct {
	Year    int
	Budgets []core.Budget
}

// BudgetAllocator manages budgets and their category allocations.
type BudgetAllocator struct {
	store  ledger.Store
	limits Limits
	logger *log.Logger
}

func NewBudgetAllocator(store ledger.Store, limits Limits, logger *log.Logger) *BudgetAllocator {
	return &BudgetAllocator{
		store:  store,
		limits: limits,
		logger: componentLogger(logger, log.ComponentBudgets),
	}
}

// ParseBudgetInput validates a submitted budget. Checks run in form order
// (name, year, amount, categories) and the first failure is returned as a
// *core.ValidationError. Category names are not resolved here.
func (a *BudgetAllocator) ParseBudgetInput(in BudgetInput, now time.Time) (core.Budget, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.StructPartial(in, "Name"); err != nil {
		return core.Budget{}, validationError(err)
	}

	if in.Year < a.limits.MinBudgetYear || in.Year > now.Year() {
		return core.Budget{}, core.NewValidationError("year",
			fmt.Sprintf("must be between %d and %d", a.limits.MinBudgetYear, now.Year()))
	}

	amount, err := core.ParseMoney(in.Amount)
	if err != nil {
		return core.Budget{}, core.NewValidationError("amount", "must be a non-negative number no larger than "+core.Money{Cents: core.MaxCents}.Decimal().String())
	}

	b := core.Budget{Name: in.Name, Year: in.Year, Amount: amount}
	for i, alloc := range in.Allocations {
		alloc.Category = strings.TrimSpace(alloc.Category)
		if alloc.Category == "" {
			continue
		}
		if err := validate.Struct(alloc); err != nil {
			ve := validationError(err)
			if v, ok := ve.(*core.ValidationError); ok {
				v.Field = "categories[" + strconv.Itoa(i) + "]." + v.Field
			}
			return core.Budget{}, ve
		}
		b.Allocations = append(b.Allocations, core.Allocation{
			Name:    alloc.Category,
			Percent: core.PercentFromPoints(alloc.Percent),
		})
	}
	return b, nil
}

// Create stores a new budget for userID. The name must not match any of the
// user's budgets in any year, ignoring case.
func (a *BudgetAllocator) Create(ctx context.Context, b core.Budget, userID int64) (core.Budget, error) {
	if err := b.Amount.Validate(); err != nil {
		return core.Budget{}, core.NewValidationError("amount", err.Error())
	}
	fields := log.NewFields().WithOperation(log.OpCreate).WithUser(userID).With(log.FieldBudget, b.Name).WithYear(b.Year)

	err := inTx(ctx, a.store, func(tx ledger.Store) error {
		n, err := tx.CountBudgets(ctx, userID)
		if err != nil {
			return err
		}
		if n >= a.limits.MaxBudgets {
			return fmt.Errorf("at most %d budgets: %w", a.limits.MaxBudgets, core.ErrLimitReached)
		}
		if err := ensureUniqueBudgetName(ctx, tx, b.Name, 0, userID); err != nil {
			return err
		}
		allocs, err := resolveAllocations(ctx, tx, b.Allocations, userID)
		if err != nil {
			return err
		}

		b.UserID = userID
		b.Allocations = allocs
		b.ID, err = tx.InsertBudget(ctx, b)
		if err != nil {
			return err
		}
		return insertAllocations(ctx, tx, b.ID, allocs)
	})
	if err != nil {
		logFailure(ctx, a.logger, "Budget create failed", err, fields)
		return core.Budget{}, err
	}

	a.logger.Fields(ctx, slog.LevelInfo, "Budget created", fields.With(log.FieldCount, len(b.Allocations)))
	return b, nil
}

// Update overwrites the budget named oldName and replaces its allocations
// wholesale.
func (a *BudgetAllocator) Update(ctx context.Context, oldName string, b core.Budget, userID int64) (core.Budget, error) {
	if err := b.Amount.Validate(); err != nil {
		return core.Budget{}, core.NewValidationError("amount", err.Error())
	}
	fields := log.NewFields().WithOperation(log.OpUpdate).WithUser(userID).With(log.FieldBudget, oldName).With("new_budget", b.Name)

	err := inTx(ctx, a.store, func(tx ledger.Store) error {
		existing, found, err := tx.FindBudgetByName(ctx, oldName, userID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("budget %q: %w", oldName, core.ErrNotFound)
		}
		if err := ensureUniqueBudgetName(ctx, tx, b.Name, existing.ID, userID); err != nil {
			return err
		}
		allocs, err := resolveAllocations(ctx, tx, b.Allocations, userID)
		if err != nil {
			return err
		}

		b.ID = existing.ID
		b.UserID = userID
		b.Allocations = allocs
		if err := tx.UpdateBudget(ctx, b); err != nil {
			return err
		}
		if err := tx.DeleteAllocations(ctx, b.ID); err != nil {
			return err
		}
		return insertAllocations(ctx, tx, b.ID, allocs)
	})
	if err != nil {
		logFailure(ctx, a.logger, "Budget update failed", err, fields)
		return core.Budget{}, err
	}

	a.logger.Fields(ctx, slog.LevelInfo, "Budget updated", fields)
	return b, nil
}

// Delete removes the named budget and its allocations, returning the name.
// An unknown name yields core.ErrNotFound.
func (a *BudgetAllocator) Delete(ctx context.Context, name string, userID int64) (string, error) {
	fields := log.NewFields().WithOperation(log.OpDelete).WithUser(userID).With(log.FieldBudget, name)

	err := inTx(ctx, a.store, func(tx ledger.Store) error {
		existing, found, err := tx.FindBudgetByName(ctx, name, userID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("budget %q: %w", name, core.ErrNotFound)
		}
		if err := tx.DeleteAllocations(ctx, existing.ID); err != nil {
			return err
		}
		return tx.DeleteBudget(ctx, existing.ID, userID)
	})
	if err != nil {
		logFailure(ctx, a.logger, "Budget delete failed", err, fields)
		return "", err
	}

	a.logger.Fields(ctx, slog.LevelInfo, "Budget deleted", fields)
	return name, nil
}

// TotalBudgeted sums the amounts of the user's budgets for year.
func (a *BudgetAllocator) TotalBudgeted(ctx context.Context, userID int64, year int) (core.Money, error) {
	return a.store.SumBudgets(ctx, userID, year)
}

// ExpandForEdit lists every active category of the user, marking those the
// budget allocates to with their whole percent.
func (a *BudgetAllocator) ExpandForEdit(ctx context.Context, b core.Budget, userID int64) (EditableBudget, error) {
	active, err := a.store.ListUserCategories(ctx, userID)
	if err != nil {
		return EditableBudget{}, err
	}

	out := EditableBudget{Budget: b, Categories: make([]EditableCategory, 0, len(active))}
	for _, c := range active {
		ec := EditableCategory{Name: c.Name}
		for _, alloc := range b.Allocations {
			if alloc.CategoryID == c.ID {
				points := core.PercentPoints(alloc.Percent)
				ec.Checked = true
				ec.Percent = &points
				break
			}
		}
		out.Categories = append(out.Categories, ec)
	}
	return out, nil
}

func (a *BudgetAllocator) Get(ctx context.Context, budgetID, userID int64) (core.Budget, error) {
	b, found, err := a.store.GetBudget(ctx, budgetID, userID)
	if err != nil {
		return core.Budget{}, err
	}
	if !found {
		return core.Budget{}, fmt.Errorf("budget %d: %w", budgetID, core.ErrNotFound)
	}
	return b, nil
}

func (a *BudgetAllocator) GetByName(ctx context.Context, name string, userID int64) (core.Budget, error) {
	b, found, err := a.store.FindBudgetByName(ctx, name, userID)
	if err != nil {
		return core.Budget{}, err
	}
	if !found {
		return core.Budget{}, fmt.Errorf("budget %q: %w", name, core.ErrNotFound)
	}
	return b, nil
}

// ListByYear groups the user's budgets by year, oldest year first and names
// ascending within a year. It returns nil when the user has no budgets.
func (a *BudgetAllocator) ListByYear(ctx context.Context, userID int64) ([]BudgetYear, error) {
	budgets, err := a.store.ListBudgets(ctx, userID, 0)
	if err != nil {
		return nil, err
	}

	var out []BudgetYear
	for _, b := range budgets {
		if len(out) == 0 || out[len(out)-1].Year != b.Year {
			out = append(out, BudgetYear{Year: b.Year})
		}
		last := &out[len(out)-1]
		last.Budgets = append(last.Budgets, b)
	}
	return out, nil
}

func ensureUniqueBudgetName(ctx context.Context, tx ledger.Store, name string, selfID, userID int64) error {
	existing, found, err := tx.FindBudgetByName(ctx, name, userID)
	if err != nil {
		return err
	}
	if found && existing.ID != selfID {
		return fmt.Errorf("budget %q: %w", name, core.ErrDuplicateName)
	}
	return nil
}

// resolveAllocations maps allocation names onto the user's active categories.
func resolveAllocations(ctx context.Context, tx ledger.Store, allocs []core.Allocation, userID int64) ([]core.Allocation, error) {
	out := make([]core.Allocation, 0, len(allocs))
	seen := make(map[int64]bool, len(allocs))
	for _, alloc := range allocs {
		c, found, err := tx.FindUserCategory(ctx, alloc.Name, userID)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, core.NewValidationError("categories", fmt.Sprintf("unknown category %q", alloc.Name))
		}
		if seen[c.ID] {
			return nil, core.NewValidationError("categories", fmt.Sprintf("category %q listed twice", c.Name))
		}
		seen[c.ID] = true
		out = append(out, core.Allocation{CategoryID: c.ID, Name: c.Name, Percent: alloc.Percent})
	}
	return out, nil
}

func insertAllocations(ctx context.Context, tx ledger.Store, budgetID int64, allocs []core.Allocation) error {
	for _, alloc := range allocs {
		if err := tx.InsertAllocation(ctx, budgetID, alloc); err != nil {
			return err
		}
	}
	return nil
}
