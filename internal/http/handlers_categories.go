package http

import (
	"net/http"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, uid := r.Context(), userID(r)

	active, err := s.svc.Categories.CategoriesWithBudgets(ctx, uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	inactive, err := s.svc.Categories.ListInactive(ctx, uid)
	if err != nil {
		writeError(w, r, err)
		return
	}

	view := categoriesView{Active: make([]categoryView, 0, len(active)), Inactive: inactive}
	if view.Inactive == nil {
		view.Inactive = []string{}
	}
	for _, c := range active {
		view.Active = append(view.Active, categoryView{ID: c.ID, Name: c.Name, Budgets: c.Budgets})
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleListLibrary(w http.ResponseWriter, r *http.Request) {
	lib, err := s.svc.Categories.ListLibrary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]categoryView, 0, len(lib))
	for _, c := range lib {
		out = append(out, categoryView{ID: c.ID, Name: c.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var in nameInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.svc.Categories.AddCategory(r.Context(), in.Name, userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, categoryView{ID: c.ID, Name: c.Name})
}

func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	var in nameInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Categories.Rename(r.Context(), r.PathValue("name"), in.Name, userID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Categories.DeleteCategory(r.Context(), r.PathValue("name"), userID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
