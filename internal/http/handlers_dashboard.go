package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// handleDashboard may seed demo data before reading, so the first visit of
// an empty account is slower than later ones.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Dashboards.Load(r.Context(), userID(r.Context()))
	if err != nil {
		s.fail(w, r, err, log.OpRead)
		return
	}
	NewJSONResponse().Data(d).Write(w)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	ins, err := s.deps.Insights.Current(r.Context(), userID(r.Context()))
	if err != nil {
		s.fail(w, r, err, log.OpRead)
		return
	}
	if ins == nil {
		ins = []core.Insight{}
	}
	NewJSONResponse().Data(map[string]any{"insights": ins}).Write(w)
}
