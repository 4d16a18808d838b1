package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"tendies/internal/core"
	"tendies/internal/ledger"
	"tendies/internal/log"
)

// CategoryRegistry maps category names to library IDs and manages each
// user's selection of active categories.
type CategoryRegistry struct {
	store  ledger.Store
	limits Limits
	logger *log.Logger
}

// CategoryBudgets is an active category with the names of the budgets that
// allocate to it.
type CategoryBudgets struct {
	core.Category
	Budgets []string
}

func NewCategoryRegistry(store ledger.Store, limits Limits, logger *log.Logger) *CategoryRegistry {
	return &CategoryRegistry{
		store:  store,
		limits: limits,
		logger: componentLogger(logger, log.ComponentCategories),
	}
}

// ResolveCategoryID looks name up in the shared library, ignoring case.
func (r *CategoryRegistry) ResolveCategoryID(ctx context.Context, name string) (int64, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, false, nil
	}
	c, found, err := r.store.FindCategory(ctx, name)
	if err != nil || !found {
		return 0, false, err
	}
	return c.ID, true, nil
}

// ResolveUserCategoryID looks name up in the user's current selection,
// ignoring case.
func (r *CategoryRegistry) ResolveUserCategoryID(ctx context.Context, name string, userID int64) (int64, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, false, nil
	}
	c, found, err := r.store.FindUserCategory(ctx, name, userID)
	if err != nil || !found {
		return 0, false, err
	}
	return c.ID, true, nil
}

// CreateLibraryCategory inserts name into the library. It does not check for
// an existing entry; callers resolve first.
func (r *CategoryRegistry) CreateLibraryCategory(ctx context.Context, name string) (int64, error) {
	name, err := validateName("name", name)
	if err != nil {
		return 0, err
	}
	id, err := r.store.InsertCategory(ctx, name)
	if err != nil {
		return 0, err
	}
	r.logger.DebugContext(ctx, "Library category created", log.FieldCategory, name, "category_id", id)
	return id, nil
}

func (r *CategoryRegistry) AddToUser(ctx context.Context, categoryID, userID int64) error {
	return r.store.AddUserCategory(ctx, categoryID, userID)
}

func (r *CategoryRegistry) RemoveFromUser(ctx context.Context, categoryID, userID int64) error {
	return r.store.RemoveUserCategory(ctx, categoryID, userID)
}

// Rename moves the user from oldName to newName: the target library category
// is resolved or created and selected, the old one deselected, this user's
// budget allocations repointed and this user's expense rows rewritten. All of
// it commits or none of it does.
//
// Expense rows take the library spelling of the target, so a rename to an
// existing library category written in different case keeps rows matching
// their category.
func (r *CategoryRegistry) Rename(ctx context.Context, oldName, newName string, userID int64) error {
	newName, err := validateName("name", newName)
	if err != nil {
		return err
	}
	fields := log.NewFields().WithOperation(log.OpRename).WithUser(userID).With(log.FieldCategory, oldName).With("new_category", newName)

	var rewritten int64
	err = inTx(ctx, r.store, func(tx ledger.Store) error {
		old, found, err := tx.FindUserCategory(ctx, oldName, userID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("category %q: %w", oldName, core.ErrNotFound)
		}

		if existing, found, err := tx.FindUserCategory(ctx, newName, userID); err != nil {
			return err
		} else if found && existing.ID != old.ID {
			return fmt.Errorf("category %q: %w", newName, core.ErrDuplicateName)
		}

		target, found, err := tx.FindCategory(ctx, newName)
		if err != nil {
			return err
		}
		if !found {
			id, err := tx.InsertCategory(ctx, newName)
			if err != nil {
				return err
			}
			target = core.Category{ID: id, Name: newName}
		}

		if target.ID != old.ID {
			if err := tx.AddUserCategory(ctx, target.ID, userID); err != nil {
				return err
			}
			if err := tx.RemoveUserCategory(ctx, old.ID, userID); err != nil {
				return err
			}
			if err := tx.RepointAllocations(ctx, userID, old.ID, target.ID); err != nil {
				return err
			}
		}

		rewritten, err = tx.RenameExpenseCategory(ctx, userID, old.Name, target.Name)
		return err
	})
	if err != nil {
		logFailure(ctx, r.logger, "Category rename failed", err, fields)
		return err
	}

	r.logger.Fields(ctx, slog.LevelInfo, "Category renamed", fields.With(log.FieldCount, rewritten))
	return nil
}

// Delete deselects a category and strips it from the user's budgets. Expense
// rows keep the name and the category becomes inactive.
func (r *CategoryRegistry) Delete(ctx context.Context, categoryID, userID int64) error {
	fields := log.NewFields().WithOperation(log.OpDelete).WithUser(userID).With("category_id", categoryID)

	err := inTx(ctx, r.store, func(tx ledger.Store) error {
		active, err := tx.ListUserCategories(ctx, userID)
		if err != nil {
			return err
		}
		if !containsCategory(active, categoryID) {
			return fmt.Errorf("category %d: %w", categoryID, core.ErrNotFound)
		}
		if err := tx.DeleteAllocationsForCategory(ctx, userID, categoryID); err != nil {
			return err
		}
		return tx.RemoveUserCategory(ctx, categoryID, userID)
	})
	if err != nil {
		logFailure(ctx, r.logger, "Category delete failed", err, fields)
		return err
	}

	r.logger.Fields(ctx, slog.LevelInfo, "Category deleted", fields)
	return nil
}

// AddCategory selects name for the user, creating the library entry if
// needed. The user may hold at most Limits.MaxCategories categories.
func (r *CategoryRegistry) AddCategory(ctx context.Context, name string, userID int64) (core.Category, error) {
	name, err := validateName("name", name)
	if err != nil {
		return core.Category{}, err
	}
	fields := log.NewFields().WithOperation(log.OpCreate).WithUser(userID).With(log.FieldCategory, name)

	var added core.Category
	err = inTx(ctx, r.store, func(tx ledger.Store) error {
		active, err := tx.ListUserCategories(ctx, userID)
		if err != nil {
			return err
		}
		if len(active) >= r.limits.MaxCategories {
			return fmt.Errorf("at most %d categories: %w", r.limits.MaxCategories, core.ErrLimitReached)
		}
		if _, found, err := tx.FindUserCategory(ctx, name, userID); err != nil {
			return err
		} else if found {
			return fmt.Errorf("category %q: %w", name, core.ErrDuplicateName)
		}

		c, found, err := tx.FindCategory(ctx, name)
		if err != nil {
			return err
		}
		if !found {
			id, err := tx.InsertCategory(ctx, name)
			if err != nil {
				return err
			}
			c = core.Category{ID: id, Name: name}
		}
		added = c
		return tx.AddUserCategory(ctx, c.ID, userID)
	})
	if err != nil {
		logFailure(ctx, r.logger, "Category add failed", err, fields)
		return core.Category{}, err
	}

	r.logger.Fields(ctx, slog.LevelInfo, "Category added", fields)
	return added, nil
}

// DeleteCategory deletes by name and refuses to remove the user's last
// active category.
func (r *CategoryRegistry) DeleteCategory(ctx context.Context, name string, userID int64) error {
	active, err := r.store.ListUserCategories(ctx, userID)
	if err != nil {
		return err
	}
	var target *core.Category
	for i := range active {
		if core.SameName(active[i].Name, name) {
			target = &active[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("category %q: %w", name, core.ErrNotFound)
	}
	if len(active) <= 1 {
		return core.NewValidationError("categories", "at least one category must remain")
	}
	return r.Delete(ctx, target.ID, userID)
}

// ListActive returns the user's selected categories by name.
func (r *CategoryRegistry) ListActive(ctx context.Context, userID int64) ([]core.Category, error) {
	return r.store.ListUserCategories(ctx, userID)
}

func (r *CategoryRegistry) ListLibrary(ctx context.Context) ([]core.Category, error) {
	return r.store.ListLibraryCategories(ctx)
}

// ListInactive returns category names that appear on the user's expenses but
// are not currently selected.
func (r *CategoryRegistry) ListInactive(ctx context.Context, userID int64) ([]string, error) {
	active, err := r.store.ListUserCategories(ctx, userID)
	if err != nil {
		return nil, err
	}
	names, err := r.store.ExpenseCategoryNames(ctx, userID)
	if err != nil {
		return nil, err
	}
	return inactiveNames(active, names), nil
}

func inactiveNames(active []core.Category, expenseNames []string) []string {
	selected := make(map[string]bool, len(active))
	for _, c := range active {
		selected[c.Name] = true
	}
	var out []string
	for _, n := range expenseNames {
		if !selected[n] {
			out = append(out, n)
		}
	}
	return out
}

// CategoriesWithBudgets lists each active category with the budgets (any
// year) that allocate to it.
func (r *CategoryRegistry) CategoriesWithBudgets(ctx context.Context, userID int64) ([]CategoryBudgets, error) {
	active, err := r.store.ListUserCategories(ctx, userID)
	if err != nil {
		return nil, err
	}
	budgets, err := r.store.ListBudgets(ctx, userID, 0)
	if err != nil {
		return nil, err
	}

	out := make([]CategoryBudgets, 0, len(active))
	for _, c := range active {
		cb := CategoryBudgets{Category: c, Budgets: []string{}}
		for _, b := range budgets {
			for _, a := range b.Allocations {
				if a.CategoryID == c.ID {
					cb.Budgets = append(cb.Budgets, b.Name)
					break
				}
			}
		}
		out = append(out, cb)
	}
	return out, nil
}

func containsCategory(cats []core.Category, id int64) bool {
	for _, c := range cats {
		if c.ID == id {
			return true
		}
	}
	return false
}
