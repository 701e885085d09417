// Package insights exposes the C9 Insights Engine over HTTP:
// GET /insights/{kind}?period=... and POST /insights/cache/clear.
package insights

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finagent/pkg/api/httpx"
	"finagent/pkg/apperr"
	coreinsights "finagent/pkg/core/insights"
)

// Handler wires the Insights Engine to chi routes.
type Handler struct {
	engine *coreinsights.Engine
	log    *zap.Logger
}

// NewHandler builds an insights Handler.
func NewHandler(engine *coreinsights.Engine, log *zap.Logger) *Handler {
	return &Handler{engine: engine, log: log}
}

// Routes mounts this handler's endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/insights/{kind}", h.generate)
	r.Post("/insights/cache/clear", h.clearCache)
}

var validKinds = map[string]coreinsights.Kind{
	"revenue-trends":        coreinsights.KindRevenueTrends,
	"expense-analysis":      coreinsights.KindExpenseAnalysis,
	"cash-flow":             coreinsights.KindCashFlow,
	"seasonal-patterns":     coreinsights.KindSeasonalPatterns,
	"quarterly-performance": coreinsights.KindQuarterlyPerformance,
	"comprehensive-summary": coreinsights.KindComprehensiveSummary,
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	kindParam := chi.URLParam(r, "kind")
	kind, ok := validKinds[kindParam]
	if !ok {
		httpx.WriteError(w, h.log, apperr.ValidationError("unknown insight kind %q", kindParam))
		return
	}

	period := r.URL.Query().Get("period")
	if period == "" {
		httpx.WriteError(w, h.log, apperr.ValidationError("period query parameter is required"))
		return
	}

	result, err := h.engine.Generate(r.Context(), kind, period)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) clearCache(w http.ResponseWriter, r *http.Request) {
	h.engine.ClearCache()
	httpx.WriteJSON(w, http.StatusNoContent, nil)
}
