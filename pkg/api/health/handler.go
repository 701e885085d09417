// Package health exposes liveness and readiness endpoints: GET /health
// (always 200 once the process is up) and GET /health/detailed (pings the
// store's connection pool).
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"finagent/pkg/api/httpx"
	"finagent/pkg/core/store"
)

// Handler serves /health and /health/detailed.
type Handler struct {
	store     *store.Store
	startedAt time.Time
}

// NewHandler builds a health Handler.
func NewHandler(st *store.Store) *Handler {
	return &Handler{store: st, startedAt: time.Now()}
}

// Routes mounts this handler's endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/health", h.health)
	r.Get("/health/detailed", h.detailed)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) detailed(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":   "ok",
		"uptime_s": int(time.Since(h.startedAt).Seconds()),
		"database": "ok",
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if err := h.store.Pool().Ping(ctx); err != nil {
		body["status"] = "degraded"
		body["database"] = "unreachable"
		httpx.WriteJSON(w, http.StatusServiceUnavailable, body)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, body)
}
