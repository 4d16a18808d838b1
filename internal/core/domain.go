package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPayer is the implicit payer every user has without a stored row.
const DefaultPayer = "Self"

const dateLayout = "2006-01-02"

type (
	Date struct {
		time.Time
	}

	Expense struct {
		ID          int64
		UserID      int64
		Description string
		Category    string // category name, not a foreign key
		Date        Date
		Amount      Money
		Payer       string // payer name, not a foreign key
		SubmitTime  time.Time
	}

	Category struct {
		ID   int64
		Name string
	}

	Payer struct {
		ID     int64
		UserID int64
		Name   string
	}

	// Allocation is a category's share of a budget amount. Percent is a fraction
	// (0.25 == 25%) with no upper bound.
	Allocation struct {
		CategoryID int64
		Name       string
		Percent    decimal.Decimal
	}

	Budget struct {
		ID          int64
		UserID      int64
		Name        string
		Year        int
		Amount      Money
		Allocations []Allocation
	}

	// WeekWindow is a Monday..Sunday range, both ends inclusive.
	WeekWindow struct {
		Start Date
		End   Date
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyPayer       = errors.New("empty payer")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(e.Payer) == "" {
		return ErrEmptyPayer
	}
	return nil
}

// CategoryNames returns the allocated category names in allocation order.
func (b Budget) CategoryNames() []string {
	names := make([]string, 0, len(b.Allocations))
	for _, a := range b.Allocations {
		names = append(names, a.Name)
	}
	return names
}
