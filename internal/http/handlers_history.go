package http

import (
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"smartexpense/internal/auth"
	"smartexpense/internal/core"
	"smartexpense/internal/storage"
)

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	summaries, err := s.budgets.History(r.Context(), p.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "History load failed", "error", err, "user_id", p.ID)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	s.render(w, r, "history.html", struct {
		FirstName string
		Budgets   []storage.BudgetSummary
		Flashes   []flash
	}{
		FirstName: p.FirstName,
		Budgets:   summaries,
		Flashes:   s.sessions.flashes(w, r),
	})
}

// chartSeries is one labelled dataset serialized into the charts page.
type chartSeries struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

func (s *Server) handleHistoryDetail(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	budgetID, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/history/"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	d, err := s.budgets.BudgetDetail(r.Context(), p.ID, budgetID)
	if err != nil {
		if errors.Is(err, storage.ErrBudgetNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.ErrorContext(r.Context(), "Budget detail load failed",
			"error", err, "user_id", p.ID, "budget_id", budgetID)
		http.Error(w, "failed to load budget", http.StatusInternalServerError)
		return
	}

	planned := chartSeries{Labels: []string{}, Values: []float64{}}
	for _, e := range d.Planned {
		planned.Labels = append(planned.Labels, core.Capitalize(e.Category))
		planned.Values = append(planned.Values, dollars(e.Amount))
	}
	spent := chartSeries{Labels: []string{}, Values: []float64{}}
	for _, c := range d.SpentSums {
		spent.Labels = append(spent.Labels, core.Capitalize(c.Category))
		spent.Values = append(spent.Values, dollars(c.Amount))
	}

	plannedJSON, err := json.Marshal(planned)
	if err != nil {
		http.Error(w, "failed to encode chart data", http.StatusInternalServerError)
		return
	}
	spentJSON, err := json.Marshal(spent)
	if err != nil {
		http.Error(w, "failed to encode chart data", http.StatusInternalServerError)
		return
	}

	s.render(w, r, "budget_charts.html", struct {
		FirstName   string
		Budget      *core.Budget
		PlannedJSON template.JS
		SpentJSON   template.JS
		Flashes     []flash
	}{
		FirstName:   p.FirstName,
		Budget:      d.Budget,
		PlannedJSON: template.JS(plannedJSON),
		SpentJSON:   template.JS(spentJSON),
		Flashes:     s.sessions.flashes(w, r),
	})
}

func dollars(m core.Money) float64 {
	return float64(m.Cents) / 100
}
