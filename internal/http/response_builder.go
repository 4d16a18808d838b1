package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"tendies/internal/core"
	"tendies/internal/log"
	"tendies/internal/services"
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service errors onto status codes. Unexpected errors are
// logged and hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: ve.Message, Field: ve.Field})
	case errors.Is(err, core.ErrLimitReached):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	case errors.Is(err, core.ErrDuplicateName):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, services.ErrExportsDisabled):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
	default:
		log.FromContext(r.Context()).Fields(r.Context(), slog.LevelError, "Request failed",
			log.NewFields().
				WithError(err).
				WithErrorType(log.ErrorTypeInternal).
				With(log.FieldMethod, r.Method).
				With(log.FieldPath, r.URL.Path))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

type categoryView struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Budgets []string `json:"budgets,omitempty"`
}

type categoriesView struct {
	Active   []categoryView `json:"active"`
	Inactive []string       `json:"inactive"`
}

type allocationView struct {
	Category string `json:"category"`
	Percent  int    `json:"percent"`
}

type budgetView struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Year        int              `json:"year"`
	Amount      decimal.Decimal  `json:"amount"`
	Allocations []allocationView `json:"categories"`
}

func newBudgetView(b core.Budget) budgetView {
	v := budgetView{
		ID:          b.ID,
		Name:        b.Name,
		Year:        b.Year,
		Amount:      b.Amount.Decimal(),
		Allocations: make([]allocationView, 0, len(b.Allocations)),
	}
	for _, a := range b.Allocations {
		v.Allocations = append(v.Allocations, allocationView{Category: a.Name, Percent: core.PercentPoints(a.Percent)})
	}
	return v
}

type budgetYearView struct {
	Year    int          `json:"year"`
	Budgets []budgetView `json:"budgets"`
}

type editableCategoryView struct {
	Name    string `json:"name"`
	Checked bool   `json:"checked"`
	Percent *int   `json:"percent"`
}

type editableBudgetView struct {
	budgetView
	Categories []editableCategoryView `json:"categories"`
}

type expenseView struct {
	ID          int64           `json:"id"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Date        core.Date       `json:"expenseDate"`
	Amount      decimal.Decimal `json:"amount"`
	Payer       string          `json:"payer"`
	SubmitTime  string          `json:"submitTime"`
}

func newExpenseView(e core.Expense) expenseView {
	return expenseView{
		ID:          e.ID,
		Description: e.Description,
		Category:    e.Category,
		Date:        e.Date,
		Amount:      e.Amount.Decimal(),
		Payer:       e.Payer,
		SubmitTime:  e.SubmitTime.UTC().Format(time.RFC3339),
	}
}

type payerView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
