// Package ingest exposes the C5 Ingestion Orchestrator over HTTP:
// POST /data/ingest (single file), POST /data/ingest/batch, and
// GET /data/status/{batch_id}.
package ingest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finagent/pkg/api/httpx"
	"finagent/pkg/apperr"
	"finagent/pkg/core/orchestrator"
)

// Handler wires the Ingestion Orchestrator to chi routes.
type Handler struct {
	orch *orchestrator.Orchestrator
	log  *zap.Logger
}

// NewHandler builds an ingest Handler.
func NewHandler(orch *orchestrator.Orchestrator, log *zap.Logger) *Handler {
	return &Handler{orch: orch, log: log}
}

// Routes mounts this handler's endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/data/ingest", h.ingestFile)
	r.Post("/data/ingest/batch", h.ingestBatch)
	r.Get("/data/status", h.history)
	r.Get("/data/status/{batchID}", h.status)
}

type ingestFileRequest struct {
	Path string `json:"path"`
}

func (h *Handler) ingestFile(w http.ResponseWriter, r *http.Request) {
	var req ingestFileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	if req.Path == "" {
		httpx.WriteError(w, h.log, apperr.ValidationError("path is required"))
		return
	}

	result := h.orch.IngestFile(r.Context(), req.Path)
	httpx.WriteJSON(w, http.StatusOK, result)
}

type ingestBatchRequest struct {
	Paths []string `json:"paths"`
	Async bool     `json:"async"`
}

func (h *Handler) ingestBatch(w http.ResponseWriter, r *http.Request) {
	var req ingestBatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	if len(req.Paths) == 0 {
		httpx.WriteError(w, h.log, apperr.ValidationError("paths must contain at least one file"))
		return
	}

	if req.Async {
		batchID := h.orch.IngestBatchAsync(r.Context(), req.Paths)
		httpx.WriteJSON(w, http.StatusAccepted, map[string]string{"batch_id": batchID})
		return
	}

	result := h.orch.IngestBatch(r.Context(), req.Paths)
	httpx.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.orch.History())
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	result, err := h.orch.Status(batchID)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}
