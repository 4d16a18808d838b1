package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tendies/internal/core"
)

func (r *SQLiteRepository) FindCategory(ctx context.Context, name string) (core.Category, bool, error) {
	return r.scanCategory(ctx, `
		SELECT id, name FROM categories
		WHERE name_key = ?
		ORDER BY id LIMIT 1`, core.NameKey(name))
}

func (r *SQLiteRepository) FindUserCategory(ctx context.Context, name string, userID int64) (core.Category, bool, error) {
	return r.scanCategory(ctx, `
		SELECT c.id, c.name FROM categories c
		INNER JOIN user_categories uc ON uc.category_id = c.id
		WHERE uc.user_id = ? AND c.name_key = ?
		ORDER BY c.id LIMIT 1`, userID, core.NameKey(name))
}

func (r *SQLiteRepository) scanCategory(ctx context.Context, query string, args ...any) (core.Category, bool, error) {
	var c core.Category
	err := r.q.QueryRowContext(ctx, query, args...).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, false, nil
	}
	if err != nil {
		return core.Category{}, false, fmt.Errorf("find category: %w", err)
	}
	return c, true, nil
}

func (r *SQLiteRepository) InsertCategory(ctx context.Context, name string) (int64, error) {
	id, err := lastInsertID(r.q.ExecContext(ctx, `INSERT INTO categories (name, name_key) VALUES (?, ?)`, name, core.NameKey(name)))
	if err != nil {
		return 0, fmt.Errorf("insert category: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) AddUserCategory(ctx context.Context, categoryID, userID int64) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT OR IGNORE INTO user_categories (user_id, category_id) VALUES (?, ?)`, userID, categoryID)
	if err != nil {
		return fmt.Errorf("add user category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RemoveUserCategory(ctx context.Context, categoryID, userID int64) error {
	_, err := r.q.ExecContext(ctx, `
		DELETE FROM user_categories WHERE user_id = ? AND category_id = ?`, userID, categoryID)
	if err != nil {
		return fmt.Errorf("remove user category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListUserCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	return r.listCategories(ctx, `
		SELECT c.id, c.name FROM categories c
		INNER JOIN user_categories uc ON uc.category_id = c.id
		WHERE uc.user_id = ?
		ORDER BY c.name`, userID)
}

func (r *SQLiteRepository) ListLibraryCategories(ctx context.Context) ([]core.Category, error) {
	return r.listCategories(ctx, `SELECT id, name FROM categories ORDER BY name, id`)
}

func (r *SQLiteRepository) listCategories(ctx context.Context, query string, args ...any) ([]core.Category, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ExpenseCategoryNames(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT DISTINCT category FROM expenses WHERE user_id = ? ORDER BY category`, userID)
	if err != nil {
		return nil, fmt.Errorf("list expense categories: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan expense category: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) RepointAllocations(ctx context.Context, userID, fromCategoryID, toCategoryID int64) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE budget_categories SET category_id = ?
		WHERE category_id = ?
		  AND budget_id IN (SELECT id FROM budgets WHERE user_id = ?)`,
		toCategoryID, fromCategoryID, userID)
	if err != nil {
		return fmt.Errorf("repoint allocations: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAllocationsForCategory(ctx context.Context, userID, categoryID int64) error {
	_, err := r.q.ExecContext(ctx, `
		DELETE FROM budget_categories
		WHERE category_id = ?
		  AND budget_id IN (SELECT id FROM budgets WHERE user_id = ?)`,
		categoryID, userID)
	if err != nil {
		return fmt.Errorf("delete allocations for category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RenameExpenseCategory(ctx context.Context, userID int64, oldName, newName string) (int64, error) {
	n, err := rowsAffected(r.q.ExecContext(ctx, `
		UPDATE expenses SET category = ? WHERE user_id = ? AND category = ?`,
		newName, userID, oldName))
	if err != nil {
		return 0, fmt.Errorf("rename expense category: %w", err)
	}
	return n, nil
}
