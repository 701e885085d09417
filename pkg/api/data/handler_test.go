package data

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

// These handlers take a concrete *store.Store and need a real database
// connection for any path that reaches it; these tests only exercise the
// validation logic that runs before the store is ever touched, so a nil
// Store is safe.
func newTestHandler() *Handler {
	return NewHandler(nil, nil)
}

func TestFindRecords_InvalidPeriodFromIsBadRequest(t *testing.T) {
	h := newTestHandler()
	r := chi.NewRouter()
	h.Routes(r)

	req := httptest.NewRequest(http.MethodGet, "/financial-data?period_from=not-a-period", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestFindRecords_InvalidPeriodToIsBadRequest(t *testing.T) {
	h := newTestHandler()
	r := chi.NewRouter()
	h.Routes(r)

	req := httptest.NewRequest(http.MethodGet, "/financial-data?period_to=nope", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestParseIntParam_FallsBackOnMissingOrInvalid(t *testing.T) {
	q := map[string][]string{"page": {"not-a-number"}}
	if got := parseIntParam(q, "page", 7); got != 7 {
		t.Fatalf("expected fallback 7, got %d", got)
	}
	if got := parseIntParam(q, "page_size", 20); got != 20 {
		t.Fatalf("expected fallback 20 for missing key, got %d", got)
	}
}

func TestParseIntParam_ParsesValidValue(t *testing.T) {
	q := map[string][]string{"page": {"3"}}
	if got := parseIntParam(q, "page", 1); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestParseDecimalParam_ParsesAndFallsBack(t *testing.T) {
	q := map[string][]string{"min_revenue": {"123.45"}, "max_revenue": {"nope"}}

	v, ok := parseDecimalParam(q, "min_revenue")
	if !ok || v.String() != "123.45" {
		t.Fatalf("expected 123.45, got %s (ok=%v)", v.String(), ok)
	}

	if _, ok := parseDecimalParam(q, "max_revenue"); ok {
		t.Fatal("expected ok=false for an unparsable decimal")
	}
	if _, ok := parseDecimalParam(q, "missing"); ok {
		t.Fatal("expected ok=false for a missing key")
	}
}
