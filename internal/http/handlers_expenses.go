package http

import (
	"net/http"
	"strconv"

	"tendies/internal/core"
)

func (s *Server) handleAddExpenses(w http.ResponseWriter, r *http.Request) {
	var in expenseBatchInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	batch := make([]core.Expense, 0, len(in.Expenses))
	for i, e := range in.Expenses {
		exp, err := e.toExpense("expenses[" + strconv.Itoa(i) + "].")
		if err != nil {
			writeError(w, r, err)
			return
		}
		batch = append(batch, exp)
	}

	added, err := s.svc.Expenses.Add(r.Context(), batch, userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]expenseView, 0, len(added))
	for _, e := range added {
		out = append(out, newExpenseView(e))
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.svc.Expenses.Get(r.Context(), id, userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newExpenseView(e))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in expenseInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := in.toExpense("")
	if err != nil {
		writeError(w, r, err)
		return
	}
	e.ID = id

	updated, err := s.svc.Expenses.Update(r.Context(), e, userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newExpenseView(updated))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Expenses.Delete(r.Context(), id, userID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListPayers lists the stored payers after the implicit default one.
func (s *Server) handleListPayers(w http.ResponseWriter, r *http.Request) {
	payers, err := s.svc.Payers.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]payerView, 0, len(payers)+1)
	out = append(out, payerView{Name: core.DefaultPayer})
	for _, p := range payers {
		out = append(out, payerView{ID: p.ID, Name: p.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddPayer(w http.ResponseWriter, r *http.Request) {
	var in nameInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.svc.Payers.Add(r.Context(), in.Name, userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, payerView{ID: p.ID, Name: p.Name})
}

func (s *Server) handleRenamePayer(w http.ResponseWriter, r *http.Request) {
	var in nameInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Payers.Rename(r.Context(), r.PathValue("name"), in.Name, userID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeletePayer(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Payers.Delete(r.Context(), r.PathValue("name"), userID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
