package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"tendies/internal/core"
)

// HeaderUserID carries the authenticated user, set by the proxy in front of
// this service.
const HeaderUserID = "X-User-ID"

const maxBodyBytes = 1 << 20

type userKey struct{}

// requireUser rejects requests without a positive numeric user id.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get(HeaderUserID)), 10, 64)
		if err != nil || id <= 0 {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing or invalid " + HeaderUserID})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, id)))
	})
}

func userID(r *http.Request) int64 {
	id, _ := r.Context().Value(userKey{}).(int64)
	return id
}

// decodeJSON reads a single JSON object into v. Unknown fields are rejected.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var syntax *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return core.NewValidationError("body", "request body is empty")
		case errors.As(err, &typeErr):
			return core.NewValidationError(typeErr.Field, "has the wrong type")
		case errors.As(err, &syntax):
			return core.NewValidationError("body", fmt.Sprintf("malformed JSON at offset %d", syntax.Offset))
		default:
			return core.NewValidationError("body", err.Error())
		}
	}
	return nil
}

// yearParam reads ?year=, returning 0 when absent.
func yearParam(r *http.Request) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("year"))
	if v == "" {
		return 0, nil
	}
	year, err := strconv.Atoi(v)
	if err != nil || year < 1 {
		return 0, core.NewValidationError("year", "must be a positive integer")
	}
	return year, nil
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.NewValidationError("id", "must be a positive integer")
	}
	return id, nil
}

type nameInput struct {
	Name string `json:"name"`
}

type expenseInput struct {
	Description string `json:"description"`
	Category    string `json:"category"`
	Date        string `json:"expenseDate"`
	Amount      string `json:"amount"`
	Payer       string `json:"payer"`
}

type expenseBatchInput struct {
	Expenses []expenseInput `json:"expenses"`
}

// toExpense parses the date and amount strings. An empty payer means the
// default payer.
func (in expenseInput) toExpense(field string) (core.Expense, error) {
	date, err := core.ParseDate(in.Date)
	if err != nil {
		return core.Expense{}, core.NewValidationError(field+"date", "must be a date formatted YYYY-MM-DD")
	}
	amount, err := core.ParseMoney(in.Amount)
	if err != nil {
		return core.Expense{}, core.NewValidationError(field+"amount", "must be a non-negative number")
	}
	payer := in.Payer
	if strings.TrimSpace(payer) == "" {
		payer = core.DefaultPayer
	}
	return core.Expense{
		Description: in.Description,
		Category:    in.Category,
		Date:        date,
		Amount:      amount,
		Payer:       payer,
	}, nil
}

type exportInput struct {
	Year int    `json:"year"`
	Kind string `json:"kind"`
}
