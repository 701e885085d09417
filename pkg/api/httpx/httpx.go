// Package httpx holds the small set of response/error helpers every
// handler package in pkg/api shares, so each one doesn't re-derive its own
// JSON envelope and apperr-to-status mapping.
package httpx

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"finagent/pkg/apperr"
)

// WriteJSON encodes v as the response body with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("failed to encode response body", zap.Error(err))
	}
}

// errorBody is the JSON shape returned for any failed request.
type errorBody struct {
	Error         string `json:"error"`
	Kind          string `json:"kind"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// WriteError maps err to an HTTP status via apperr.HTTPStatus and writes a
// uniform error body. Every handler funnels its error return through here.
func WriteError(w http.ResponseWriter, log *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)

	body := errorBody{Error: err.Error(), Kind: string(kind)}
	if appErr, ok := err.(*apperr.Error); ok {
		body.CorrelationID = appErr.CorrelationID
	}

	if log != nil && status >= 500 {
		log.Error("request failed", zap.Error(err), zap.String("kind", string(kind)))
	}

	WriteJSON(w, status, body)
}

// DecodeJSON decodes the request body into v, returning a ValidationError
// (400) on malformed JSON rather than letting callers invent their own.
func DecodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.ValidationError("malformed request body: %v", err)
	}
	return nil
}
