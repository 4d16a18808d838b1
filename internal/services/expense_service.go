package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"tendies/internal/core"
	"tendies/internal/ledger"
	"tendies/internal/log"
)

// ExpenseService records and edits expenses. Category and payer names are
// checked against the user's active categories and payers and stored in
// their canonical spelling.
type ExpenseService struct {
	store  ledger.Store
	clock  Clock
	logger *log.Logger
}

func NewExpenseService(store ledger.Store, clock Clock, logger *log.Logger) *ExpenseService {
	return &ExpenseService{
		store:  store,
		clock:  clockOrNow(clock),
		logger: componentLogger(logger, log.ComponentExpenses),
	}
}

// Add inserts a batch of expenses in one transaction, stamping each with the
// current submit time.
func (s *ExpenseService) Add(ctx context.Context, expenses []core.Expense, userID int64) ([]core.Expense, error) {
	if len(expenses) == 0 {
		return nil, core.NewValidationError("expenses", "at least one expense is required")
	}
	fields := log.NewFields().WithOperation(log.OpCreate).WithUser(userID).With(log.FieldCount, len(expenses))

	submitted := s.clock().UTC()
	out := make([]core.Expense, 0, len(expenses))
	err := inTx(ctx, s.store, func(tx ledger.Store) error {
		for i, e := range expenses {
			e, err := normalizeExpense(ctx, tx, e, userID, nil)
			if err != nil {
				return prefixField(err, "expenses["+strconv.Itoa(i)+"].")
			}
			e.SubmitTime = submitted
			if e.ID, err = tx.InsertExpense(ctx, e); err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		logFailure(ctx, s.logger, "Expense add failed", err, fields)
		return nil, err
	}

	s.logger.Fields(ctx, slog.LevelInfo, "Expenses added", fields)
	return out, nil
}

// Update overwrites an expense's editable fields. Submit time is kept. An
// unchanged category or payer is accepted even when it is no longer active,
// so expenses under deleted categories stay editable.
func (s *ExpenseService) Update(ctx context.Context, e core.Expense, userID int64) (core.Expense, error) {
	fields := log.NewFields().WithOperation(log.OpUpdate).WithUser(userID).With("expense_id", e.ID)

	current, err := s.Get(ctx, e.ID, userID)
	if err == nil {
		e, err = normalizeExpense(ctx, s.store, e, userID, &current)
	}
	if err == nil {
		var found bool
		found, err = s.store.UpdateExpense(ctx, e)
		if err == nil && !found {
			err = fmt.Errorf("expense %d: %w", e.ID, core.ErrNotFound)
		}
	}
	if err != nil {
		logFailure(ctx, s.logger, "Expense update failed", err, fields)
		return core.Expense{}, err
	}

	s.logger.Fields(ctx, slog.LevelInfo, "Expense updated", fields)
	return s.Get(ctx, e.ID, userID)
}

func (s *ExpenseService) Delete(ctx context.Context, expenseID, userID int64) error {
	found, err := s.store.DeleteExpense(ctx, expenseID, userID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("expense %d: %w", expenseID, core.ErrNotFound)
	}
	s.logger.InfoContext(ctx, "Expense deleted", log.FieldUserID, userID, "expense_id", expenseID)
	return nil
}

func (s *ExpenseService) Get(ctx context.Context, expenseID, userID int64) (core.Expense, error) {
	e, found, err := s.store.GetExpense(ctx, expenseID, userID)
	if err != nil {
		return core.Expense{}, err
	}
	if !found {
		return core.Expense{}, fmt.Errorf("expense %d: %w", expenseID, core.ErrNotFound)
	}
	return e, nil
}

var expenseFieldErrors = []struct {
	err   error
	field string
}{
	{core.ErrInvalidDate, "date"},
	{core.ErrEmptyDescription, "description"},
	{core.ErrInvalidAmount, "amount"},
	{core.ErrEmptyCategory, "category"},
	{core.ErrEmptyPayer, "payer"},
}

// normalizeExpense validates e and resolves its category and payer to their
// stored spelling. When current is set, names equal to its values are kept
// as they are.
func normalizeExpense(ctx context.Context, store ledger.Store, e core.Expense, userID int64, current *core.Expense) (core.Expense, error) {
	e.UserID = userID
	e.Description = strings.TrimSpace(e.Description)
	e.Category = strings.TrimSpace(e.Category)
	e.Payer = strings.TrimSpace(e.Payer)

	if err := e.Validate(); err != nil {
		for _, fe := range expenseFieldErrors {
			if errors.Is(err, fe.err) {
				return e, core.NewValidationError(fe.field, err.Error())
			}
		}
		return e, core.NewValidationError("description", err.Error())
	}

	if current == nil || e.Category != current.Category {
		c, found, err := store.FindUserCategory(ctx, e.Category, userID)
		if err != nil {
			return e, err
		}
		if !found {
			return e, core.NewValidationError("category", fmt.Sprintf("unknown category %q", e.Category))
		}
		e.Category = c.Name
	}

	if current != nil && e.Payer == current.Payer {
		return e, nil
	}
	if isDefaultPayer(e.Payer) {
		e.Payer = core.DefaultPayer
		return e, nil
	}
	p, found, err := store.FindPayer(ctx, e.Payer, userID)
	if err != nil {
		return e, err
	}
	if !found {
		return e, core.NewValidationError("payer", fmt.Sprintf("unknown payer %q", e.Payer))
	}
	e.Payer = p.Name
	return e, nil
}

func prefixField(err error, prefix string) error {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		return core.NewValidationError(prefix+ve.Field, ve.Message)
	}
	return err
}
