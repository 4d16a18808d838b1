package http

import (
	"net/http"
	"strconv"

	"tendies/internal/reports"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := cachedReport(s, r, "dashboard", func() (reports.Dashboard, error) {
		return s.svc.Reports.Dashboard(r.Context(), userID(r))
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleReport serves one of the four yearly reports. Absent ?year= means
// the current year.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	kind, err := reports.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	year, err := yearParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, uid := r.Context(), userID(r)
	year = s.svc.Reports.Year(year)

	body, err := cachedReport(s, r, string(kind)+":"+strconv.Itoa(year), func() (any, error) {
		switch kind {
		case reports.KindBudgets:
			return s.svc.Reports.BudgetReport(ctx, uid, year)
		case reports.KindMonthly:
			return s.svc.Reports.MonthlyReport(ctx, uid, year)
		case reports.KindTrends:
			return s.svc.Reports.SpendingTrendsReport(ctx, uid, year)
		default:
			return s.svc.Reports.PayersReport(ctx, uid, year)
		}
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"year": year, "kind": kind, "report": body})
}

func (s *Server) handleRequestExport(w http.ResponseWriter, r *http.Request) {
	var in exportInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	job, err := s.svc.Exports.Request(r.Context(), userID(r), in.Year, in.Kind)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleAccountStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Account.Statistics(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
