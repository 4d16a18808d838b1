package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tendies/internal/core"
)

func (r *SQLiteRepository) ListPayers(ctx context.Context, userID int64) ([]core.Payer, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, user_id, name FROM payers WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list payers: %w", err)
	}
	defer rows.Close()

	var out []core.Payer
	for rows.Next() {
		var p core.Payer
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name); err != nil {
			return nil, fmt.Errorf("scan payer: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) FindPayer(ctx context.Context, name string, userID int64) (core.Payer, bool, error) {
	var p core.Payer
	err := r.q.QueryRowContext(ctx, `
		SELECT id, user_id, name FROM payers
		WHERE user_id = ? AND name_key = ?
		ORDER BY id LIMIT 1`, userID, core.NameKey(name)).Scan(&p.ID, &p.UserID, &p.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Payer{}, false, nil
	}
	if err != nil {
		return core.Payer{}, false, fmt.Errorf("find payer: %w", err)
	}
	return p, true, nil
}

func (r *SQLiteRepository) InsertPayer(ctx context.Context, userID int64, name string) (int64, error) {
	id, err := lastInsertID(r.q.ExecContext(ctx, `INSERT INTO payers (user_id, name, name_key) VALUES (?, ?, ?)`, userID, name, core.NameKey(name)))
	if err != nil {
		return 0, fmt.Errorf("insert payer: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) UpdatePayerName(ctx context.Context, payerID, userID int64, name string) error {
	_, err := r.q.ExecContext(ctx, `UPDATE payers SET name = ?, name_key = ? WHERE id = ? AND user_id = ?`, name, core.NameKey(name), payerID, userID)
	if err != nil {
		return fmt.Errorf("update payer: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeletePayer(ctx context.Context, payerID, userID int64) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM payers WHERE id = ? AND user_id = ?`, payerID, userID)
	if err != nil {
		return fmt.Errorf("delete payer: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RenameExpensePayer(ctx context.Context, userID int64, oldName, newName string) (int64, error) {
	n, err := rowsAffected(r.q.ExecContext(ctx, `
		UPDATE expenses SET payer = ? WHERE user_id = ? AND payer = ?`, newName, userID, oldName))
	if err != nil {
		return 0, fmt.Errorf("rename expense payer: %w", err)
	}
	return n, nil
}
