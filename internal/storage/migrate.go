package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"tendies/internal/core"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations applies every pending migration to db. The migrate instance
// is not closed because its database driver would close db with it.
func RunMigrations(db *sql.DB) error {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}

	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	defer d.Close()

	m, err := migrate.NewWithInstance("iofs", d, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// backfillNameKeys computes name_key for rows written before the column
// existed. It is a no-op once every row has a key.
func backfillNameKeys(ctx context.Context, db *sql.DB) error {
	for _, table := range []string{"categories", "payers", "budgets"} {
		rows, err := db.QueryContext(ctx, `SELECT id, name FROM `+table+` WHERE name_key = ''`)
		if err != nil {
			return fmt.Errorf("backfill %s name keys: %w", table, err)
		}
		keys := map[int64]string{}
		for rows.Next() {
			var id int64
			var name string
			if err := rows.Scan(&id, &name); err != nil {
				rows.Close()
				return fmt.Errorf("backfill %s name keys: %w", table, err)
			}
			keys[id] = core.NameKey(name)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("backfill %s name keys: %w", table, err)
		}

		for id, key := range keys {
			if _, err := db.ExecContext(ctx, `UPDATE `+table+` SET name_key = ? WHERE id = ?`, key, id); err != nil {
				return fmt.Errorf("backfill %s name key for id %d: %w", table, id, err)
			}
		}
		if len(keys) > 0 {
			slog.InfoContext(ctx, "Backfilled name keys", "table", table, "rows", len(keys))
		}
	}
	return nil
}
