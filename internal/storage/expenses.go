package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"tendies/internal/core"
	"tendies/internal/ledger"
)

const expenseColumns = `id, user_id, description, category, expense_date, amount_cents, payer, submit_time`

func (r *SQLiteRepository) InsertExpense(ctx context.Context, e core.Expense) (int64, error) {
	id, err := lastInsertID(r.q.ExecContext(ctx, `
		INSERT INTO expenses (user_id, description, category, expense_date, amount_cents, payer, submit_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Description, e.Category, e.Date.String(), e.Amount.Cents, e.Payer,
		e.SubmitTime.UTC().Format(time.RFC3339Nano)))
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) (bool, error) {
	n, err := rowsAffected(r.q.ExecContext(ctx, `
		UPDATE expenses
		SET description = ?, category = ?, expense_date = ?, amount_cents = ?, payer = ?
		WHERE id = ? AND user_id = ?`,
		e.Description, e.Category, e.Date.String(), e.Amount.Cents, e.Payer, e.ID, e.UserID))
	if err != nil {
		return false, fmt.Errorf("update expense: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, expenseID, userID int64) (bool, error) {
	n, err := rowsAffected(r.q.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND user_id = ?`, expenseID, userID))
	if err != nil {
		return false, fmt.Errorf("delete expense: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, expenseID, userID int64) (core.Expense, bool, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ? AND user_id = ?`, expenseID, userID)
	if err != nil {
		return core.Expense{}, false, fmt.Errorf("get expense: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return core.Expense{}, false, rows.Err()
	}
	e, err := scanExpense(rows)
	if err != nil {
		return core.Expense{}, false, err
	}
	return e, true, nil
}

// expenseWhere renders f as a WHERE clause. ok is false when f can match no row.
func expenseWhere(userID int64, f ledger.ExpenseFilter) (clause string, args []any, ok bool) {
	conds := []string{"user_id = ?"}
	args = []any{userID}

	if !f.From.IsZero() {
		conds = append(conds, "expense_date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		conds = append(conds, "expense_date <= ?")
		args = append(args, f.To.String())
	}
	if f.Categories != nil {
		if len(f.Categories) == 0 {
			return "", nil, false
		}
		conds = append(conds, "category IN (?"+strings.Repeat(", ?", len(f.Categories)-1)+")")
		for _, c := range f.Categories {
			args = append(args, c)
		}
	}
	return " WHERE " + strings.Join(conds, " AND "), args, true
}

func (r *SQLiteRepository) SumExpenses(ctx context.Context, userID int64, f ledger.ExpenseFilter) (core.Money, error) {
	where, args, ok := expenseWhere(userID, f)
	if !ok {
		return core.Money{}, nil
	}

	// SUM over no rows is NULL.
	var total sql.NullInt64
	if err := r.q.QueryRowContext(ctx, `SELECT SUM(amount_cents) FROM expenses`+where, args...).Scan(&total); err != nil {
		return core.Money{}, fmt.Errorf("sum expenses: %w", err)
	}
	return core.Money{Cents: total.Int64}, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID int64, f ledger.ExpenseFilter) ([]core.Expense, error) {
	where, args, ok := expenseWhere(userID, f)
	if !ok {
		return nil, nil
	}

	order := " ORDER BY id ASC"
	if f.NewestFirst {
		order = " ORDER BY id DESC"
	}
	limit := ""
	if f.Limit > 0 {
		limit = " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.q.QueryContext(ctx, `SELECT `+expenseColumns+` FROM expenses`+where+order+limit, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CountExpenses(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

func scanExpense(rows *sql.Rows) (core.Expense, error) {
	var (
		e         core.Expense
		date      string
		submitted string
	)
	if err := rows.Scan(&e.ID, &e.UserID, &e.Description, &e.Category, &date, &e.Amount.Cents, &e.Payer, &submitted); err != nil {
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}

	d, err := core.ParseDate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d has bad date %q: %w", e.ID, date, err)
	}
	e.Date = d

	t, err := time.Parse(time.RFC3339Nano, submitted)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d has bad submit time %q: %w", e.ID, submitted, err)
	}
	e.SubmitTime = t

	return e, nil
}
