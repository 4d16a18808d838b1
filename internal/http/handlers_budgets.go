package http

import (
	"net/http"

	"tendies/internal/services"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	years, err := s.svc.Budgets.ListByYear(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]budgetYearView, 0, len(years))
	for _, y := range years {
		v := budgetYearView{Year: y.Year, Budgets: make([]budgetView, 0, len(y.Budgets))}
		for _, b := range y.Budgets {
			v.Budgets = append(v.Budgets, newBudgetView(b))
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTotalBudgeted(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if year == 0 {
		year = s.svc.Clock().Year()
	}
	total, err := s.svc.Budgets.TotalBudgeted(r.Context(), userID(r), year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"year": year, "budgeted": total.Decimal()})
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var in services.BudgetInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.svc.Budgets.ParseBudgetInput(in, s.svc.Clock())
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.svc.Budgets.Create(r.Context(), b, userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newBudgetView(created))
}

// handleGetBudget returns the budget expanded over every active category,
// ready for an edit form.
func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	ctx, uid := r.Context(), userID(r)
	b, err := s.svc.Budgets.GetByName(ctx, r.PathValue("name"), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	edit, err := s.svc.Budgets.ExpandForEdit(ctx, b, uid)
	if err != nil {
		writeError(w, r, err)
		return
	}

	view := editableBudgetView{budgetView: newBudgetView(edit.Budget), Categories: make([]editableCategoryView, 0, len(edit.Categories))}
	for _, c := range edit.Categories {
		view.Categories = append(view.Categories, editableCategoryView{Name: c.Name, Checked: c.Checked, Percent: c.Percent})
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var in services.BudgetInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.svc.Budgets.ParseBudgetInput(in, s.svc.Clock())
	if err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.svc.Budgets.Update(r.Context(), r.PathValue("name"), b, userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBudgetView(updated))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	name, err := s.svc.Budgets.Delete(r.Context(), r.PathValue("name"), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": name})
}
