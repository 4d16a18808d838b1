package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"tendies/internal/core"
	"tendies/internal/ledger"
	"tendies/internal/log"
)

// Limits are the per-user caps enforced by the services.
type Limits struct {
	MaxBudgets    int
	MaxCategories int
	MaxPayers     int
	MinBudgetYear int
}

func DefaultLimits() Limits {
	return Limits{
		MaxBudgets:    20,
		MaxCategories: 30,
		MaxPayers:     5,
		MinBudgetYear: 2020,
	}
}

// Clock returns the current time. Services take one so tests can pin "now".
type Clock func() time.Time

func clockOrNow(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

func componentLogger(logger *log.Logger, component string) *log.Logger {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return logger.WithComponent(component)
}

var budgetNamePattern = regexp.MustCompile(`^[A-Za-z0-9_ -]*$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return strings.ToLower(fld.Name)
		}
		return name
	})
	_ = v.RegisterValidation("budgetname", func(fl validator.FieldLevel) bool {
		return budgetNamePattern.MatchString(fl.Field().String())
	})
	return v
}

// validationError turns the first validator failure into a core.ValidationError.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return core.NewValidationError(field, "is required")
	case "budgetname":
		return core.NewValidationError(field, "only letters, digits, spaces, underscores and hyphens are allowed")
	case "max":
		return core.NewValidationError(field, "must be at most "+fe.Param()+" characters")
	case "min", "gte":
		return core.NewValidationError(field, "must not be negative")
	default:
		return core.NewValidationError(field, "is invalid")
	}
}

// validateName checks a category or payer name.
func validateName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if err := validate.Var(name, "required,max=64"); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && verrs[0].Tag() == "max" {
			return "", core.NewValidationError(field, "must be at most 64 characters")
		}
		return "", core.NewValidationError(field, "is required")
	}
	return name, nil
}

// isDomainError reports whether err is one of the expected rejection kinds
// rather than a store failure.
func isDomainError(err error) bool {
	return errors.Is(err, core.ErrValidation) ||
		errors.Is(err, core.ErrNotFound) ||
		errors.Is(err, core.ErrDuplicateName) ||
		errors.Is(err, core.ErrLimitReached)
}

// inTx runs fn in one store transaction. Store failures come back wrapped in
// core.ErrCascadeFailed; rejections pass through untouched.
func inTx(ctx context.Context, store ledger.Store, fn func(ledger.Store) error) error {
	err := store.WithTx(ctx, fn)
	if err == nil || isDomainError(err) {
		return err
	}
	return fmt.Errorf("%w: %w", core.ErrCascadeFailed, err)
}

func errorType(err error) string {
	switch {
	case errors.Is(err, core.ErrValidation):
		return log.ErrorTypeValidation
	case errors.Is(err, core.ErrNotFound):
		return log.ErrorTypeNotFound
	case errors.Is(err, core.ErrDuplicateName):
		return log.ErrorTypeConflict
	case errors.Is(err, core.ErrLimitReached):
		return log.ErrorTypeLimit
	default:
		return log.ErrorTypeDatabase
	}
}

// logFailure logs rejections at Warn and store failures at Error.
func logFailure(ctx context.Context, logger *log.Logger, msg string, err error, fields log.LogFields) {
	fields = fields.WithError(err).WithErrorType(errorType(err))
	level := slog.LevelError
	if isDomainError(err) {
		level = slog.LevelWarn
	}
	logger.Fields(ctx, level, msg, fields)
}
