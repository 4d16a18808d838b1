package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tendies/internal/core"
)

func (r *SQLiteRepository) InsertBudget(ctx context.Context, b core.Budget) (int64, error) {
	id, err := lastInsertID(r.q.ExecContext(ctx, `
		INSERT INTO budgets (user_id, name, name_key, year, amount_cents) VALUES (?, ?, ?, ?, ?)`,
		b.UserID, b.Name, core.NameKey(b.Name), b.Year, b.Amount.Cents))
	if err != nil {
		return 0, fmt.Errorf("insert budget: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.Budget) error {
	n, err := rowsAffected(r.q.ExecContext(ctx, `
		UPDATE budgets SET name = ?, name_key = ?, year = ?, amount_cents = ?
		WHERE id = ? AND user_id = ?`,
		b.Name, core.NameKey(b.Name), b.Year, b.Amount.Cents, b.ID, b.UserID))
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update budget %d: %w", b.ID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, budgetID, userID int64) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM budgets WHERE id = ? AND user_id = ?`, budgetID, userID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) InsertAllocation(ctx context.Context, budgetID int64, a core.Allocation) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO budget_categories (budget_id, category_id, percent_points) VALUES (?, ?, ?)`,
		budgetID, a.CategoryID, core.PercentPoints(a.Percent))
	if err != nil {
		return fmt.Errorf("insert allocation: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAllocations(ctx context.Context, budgetID int64) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM budget_categories WHERE budget_id = ?`, budgetID)
	if err != nil {
		return fmt.Errorf("delete allocations: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, budgetID, userID int64) (core.Budget, bool, error) {
	return r.findBudget(ctx, `
		SELECT id, user_id, name, year, amount_cents FROM budgets
		WHERE id = ? AND user_id = ?`, budgetID, userID)
}

func (r *SQLiteRepository) FindBudgetByName(ctx context.Context, name string, userID int64) (core.Budget, bool, error) {
	return r.findBudget(ctx, `
		SELECT id, user_id, name, year, amount_cents FROM budgets
		WHERE user_id = ? AND name_key = ?
		ORDER BY id LIMIT 1`, userID, core.NameKey(name))
}

func (r *SQLiteRepository) findBudget(ctx context.Context, query string, args ...any) (core.Budget, bool, error) {
	var b core.Budget
	err := r.q.QueryRowContext(ctx, query, args...).Scan(&b.ID, &b.UserID, &b.Name, &b.Year, &b.Amount.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, false, nil
	}
	if err != nil {
		return core.Budget{}, false, fmt.Errorf("find budget: %w", err)
	}

	allocs, err := r.loadAllocations(ctx, `
		SELECT bc.budget_id, c.id, c.name, bc.percent_points
		FROM budget_categories bc
		INNER JOIN categories c ON c.id = bc.category_id
		WHERE bc.budget_id = ?
		ORDER BY c.name`, b.ID)
	if err != nil {
		return core.Budget{}, false, err
	}
	b.Allocations = allocs[b.ID]
	return b, true, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID int64, year int) ([]core.Budget, error) {
	where := "WHERE user_id = ?"
	args := []any{userID}
	if year != 0 {
		where += " AND year = ?"
		args = append(args, year)
	}

	rows, err := r.q.QueryContext(ctx, `
		SELECT id, user_id, name, year, amount_cents FROM budgets `+where+`
		ORDER BY year, name`, args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}

	var budgets []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.Name, &b.Year, &b.Amount.Cents); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	// Released before the next query: the pool holds a single connection.
	rows.Close()

	if len(budgets) == 0 {
		return nil, nil
	}

	allocs, err := r.loadAllocations(ctx, `
		SELECT bc.budget_id, c.id, c.name, bc.percent_points
		FROM budget_categories bc
		INNER JOIN categories c ON c.id = bc.category_id
		INNER JOIN budgets b ON b.id = bc.budget_id
		`+where+`
		ORDER BY c.name`, args...)
	if err != nil {
		return nil, err
	}
	for i := range budgets {
		budgets[i].Allocations = allocs[budgets[i].ID]
	}
	return budgets, nil
}

func (r *SQLiteRepository) loadAllocations(ctx context.Context, query string, args ...any) (map[int64][]core.Allocation, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load allocations: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]core.Allocation)
	for rows.Next() {
		var (
			budgetID int64
			points   int
			a        core.Allocation
		)
		if err := rows.Scan(&budgetID, &a.CategoryID, &a.Name, &points); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		a.Percent = core.PercentFromPoints(points)
		out[budgetID] = append(out[budgetID], a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CountBudgets(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM budgets WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count budgets: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) SumBudgets(ctx context.Context, userID int64, year int) (core.Money, error) {
	var total sql.NullInt64
	err := r.q.QueryRowContext(ctx, `
		SELECT SUM(amount_cents) FROM budgets WHERE user_id = ? AND year = ?`, userID, year).Scan(&total)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum budgets: %w", err)
	}
	return core.Money{Cents: total.Int64}, nil
}
