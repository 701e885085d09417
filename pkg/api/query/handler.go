// Package query exposes the C8 Agent Controller over HTTP: POST /query
// runs process_query for a natural-language question against the ingested
// financial data.
package query

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finagent/pkg/api/httpx"
	"finagent/pkg/apperr"
	"finagent/pkg/core/agent"
)

// Handler wires the Agent Controller to chi routes.
type Handler struct {
	controller *agent.Controller
	log        *zap.Logger
}

// NewHandler builds a query Handler.
func NewHandler(controller *agent.Controller, log *zap.Logger) *Handler {
	return &Handler{controller: controller, log: log}
}

// Routes mounts this handler's endpoint on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/query", h.query)
}

// defaultMaxIterations mirrors process_query's documented max_iterations=5
// default, applied only when the field is absent from the request body. A
// pointer is required here: an omitted field and an explicit 0 both decode
// to Go's int zero value, but they mean different things (apply the
// default vs. force immediate summarization with no tool use).
const defaultMaxIterations = 5

type queryRequest struct {
	Query          string `json:"query"`
	ConversationID string `json:"conversation_id,omitempty"`
	MaxIterations  *int   `json:"max_iterations,omitempty"`
}

func (h *Handler) query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	if req.Query == "" {
		httpx.WriteError(w, h.log, apperr.ValidationError("query is required"))
		return
	}

	maxIterations := defaultMaxIterations
	if req.MaxIterations != nil {
		maxIterations = *req.MaxIterations
	}

	result, err := h.controller.ProcessQuery(r.Context(), req.Query, req.ConversationID, maxIterations)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}
