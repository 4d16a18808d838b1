package services

import (
	"context"
	"fmt"
	"log/slog"

	"tendies/internal/core"
	"tendies/internal/ledger"
	"tendies/internal/log"
)

// PayerService manages the user's explicit payers. The default payer
// core.DefaultPayer always exists and has no row.
type PayerService struct {
	store  ledger.Store
	limits Limits
	logger *log.Logger
}

func NewPayerService(store ledger.Store, limits Limits, logger *log.Logger) *PayerService {
	return &PayerService{
		store:  store,
		limits: limits,
		logger: componentLogger(logger, log.ComponentPayers),
	}
}

func isDefaultPayer(name string) bool {
	return core.SameName(name, core.DefaultPayer)
}

// List returns the stored payers by name; the default payer is not included.
func (s *PayerService) List(ctx context.Context, userID int64) ([]core.Payer, error) {
	return s.store.ListPayers(ctx, userID)
}

func (s *PayerService) Add(ctx context.Context, name string, userID int64) (core.Payer, error) {
	name, err := validateName("name", name)
	if err != nil {
		return core.Payer{}, err
	}
	fields := log.NewFields().WithOperation(log.OpCreate).WithUser(userID).With(log.FieldPayer, name)

	var added core.Payer
	err = inTx(ctx, s.store, func(tx ledger.Store) error {
		payers, err := tx.ListPayers(ctx, userID)
		if err != nil {
			return err
		}
		if len(payers) >= s.limits.MaxPayers {
			return fmt.Errorf("at most %d payers: %w", s.limits.MaxPayers, core.ErrLimitReached)
		}
		if err := ensurePayerNameFree(ctx, tx, name, userID); err != nil {
			return err
		}
		id, err := tx.InsertPayer(ctx, userID, name)
		if err != nil {
			return err
		}
		added = core.Payer{ID: id, UserID: userID, Name: name}
		return nil
	})
	if err != nil {
		logFailure(ctx, s.logger, "Payer add failed", err, fields)
		return core.Payer{}, err
	}

	s.logger.Fields(ctx, slog.LevelInfo, "Payer added", fields)
	return added, nil
}

// Rename rewrites the user's expense rows paid by oldName and then the payer
// row itself, in one transaction.
func (s *PayerService) Rename(ctx context.Context, oldName, newName string, userID int64) error {
	newName, err := validateName("name", newName)
	if err != nil {
		return err
	}
	if isDefaultPayer(oldName) {
		return core.NewValidationError("name", "the default payer cannot be renamed")
	}
	fields := log.NewFields().WithOperation(log.OpRename).WithUser(userID).With(log.FieldPayer, oldName).With("new_payer", newName)

	var rewritten int64
	err = inTx(ctx, s.store, func(tx ledger.Store) error {
		old, found, err := tx.FindPayer(ctx, oldName, userID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("payer %q: %w", oldName, core.ErrNotFound)
		}
		if !core.SameName(old.Name, newName) {
			if err := ensurePayerNameFree(ctx, tx, newName, userID); err != nil {
				return err
			}
		}
		if rewritten, err = tx.RenameExpensePayer(ctx, userID, old.Name, newName); err != nil {
			return err
		}
		return tx.UpdatePayerName(ctx, old.ID, userID, newName)
	})
	if err != nil {
		logFailure(ctx, s.logger, "Payer rename failed", err, fields)
		return err
	}

	s.logger.Fields(ctx, slog.LevelInfo, "Payer renamed", fields.With(log.FieldCount, rewritten))
	return nil
}

// Delete removes the payer row. Expenses keep the payer name.
func (s *PayerService) Delete(ctx context.Context, name string, userID int64) error {
	if isDefaultPayer(name) {
		return core.NewValidationError("name", "the default payer cannot be deleted")
	}
	fields := log.NewFields().WithOperation(log.OpDelete).WithUser(userID).With(log.FieldPayer, name)

	p, found, err := s.store.FindPayer(ctx, name, userID)
	if err == nil && !found {
		err = fmt.Errorf("payer %q: %w", name, core.ErrNotFound)
	}
	if err == nil {
		err = s.store.DeletePayer(ctx, p.ID, userID)
	}
	if err != nil {
		logFailure(ctx, s.logger, "Payer delete failed", err, fields)
		return err
	}

	s.logger.Fields(ctx, slog.LevelInfo, "Payer deleted", fields)
	return nil
}

func ensurePayerNameFree(ctx context.Context, tx ledger.Store, name string, userID int64) error {
	if isDefaultPayer(name) {
		return fmt.Errorf("payer %q: %w", name, core.ErrDuplicateName)
	}
	_, found, err := tx.FindPayer(ctx, name, userID)
	if err != nil {
		return err
	}
	if found {
		return fmt.Errorf("payer %q: %w", name, core.ErrDuplicateName)
	}
	return nil
}
