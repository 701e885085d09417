// Package data exposes the C4 Store's read surface over HTTP:
// GET /financial-data, GET /financial-data/{period}, GET /accounts,
// GET /accounts/{id}, GET /accounts/{id}/hierarchy.
package data

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"finagent/pkg/api/httpx"
	"finagent/pkg/core/store"
	"finagent/pkg/model"
)

// Handler wires the Store's query surface to chi routes.
type Handler struct {
	store *store.Store
	log   *zap.Logger
}

// NewHandler builds a data Handler.
func NewHandler(st *store.Store, log *zap.Logger) *Handler {
	return &Handler{store: st, log: log}
}

// Routes mounts this handler's endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/financial-data", h.findRecords)
	r.Get("/financial-data/{period}", h.aggregatePeriod)
	r.Get("/accounts", h.findAccounts)
	r.Get("/accounts/{id}", h.getAccount)
	r.Get("/accounts/{id}/hierarchy", h.accountHierarchy)
}

func (h *Handler) findRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f store.RecordFilter

	if v := q.Get("source"); v != "" {
		src := model.Source(v)
		f.Source = &src
	}
	if v := q.Get("currency"); v != "" {
		f.Currency = &v
	}
	if v, ok := parseDecimalParam(q, "min_revenue"); ok {
		f.MinRevenue = &v
	}
	if v, ok := parseDecimalParam(q, "max_revenue"); ok {
		f.MaxRevenue = &v
	}
	if v, ok := parseDecimalParam(q, "min_expenses"); ok {
		f.MinExpenses = &v
	}
	if v, ok := parseDecimalParam(q, "max_expenses"); ok {
		f.MaxExpenses = &v
	}
	if v := q.Get("period_from"); v != "" {
		start, _, err := store.ParsePeriodSpec(v)
		if err != nil {
			httpx.WriteError(w, h.log, err)
			return
		}
		f.PeriodFrom = &start
	}
	if v := q.Get("period_to"); v != "" {
		_, end, err := store.ParsePeriodSpec(v)
		if err != nil {
			httpx.WriteError(w, h.log, err)
			return
		}
		f.PeriodTo = &end
	}
	f.SortField = q.Get("sort_field")
	f.SortDesc = q.Get("sort_desc") == "true"
	f.Page = parseIntParam(q, "page", 1)
	f.PageSize = parseIntParam(q, "page_size", 20)

	records, total, err := h.store.FindRecords(r.Context(), f)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, store.Page{Items: records, Page: f.Page, PageSize: f.PageSize, TotalItems: total})
}

func (h *Handler) aggregatePeriod(w http.ResponseWriter, r *http.Request) {
	period := chi.URLParam(r, "period")
	result, err := h.store.AggregatePeriod(r.Context(), period)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) findAccounts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f store.AccountFilter

	if v := q.Get("account_type"); v != "" {
		at := model.AccountType(v)
		f.AccountType = &at
	}
	if v := q.Get("source"); v != "" {
		src := model.Source(v)
		f.Source = &src
	}
	if v := q.Get("is_active"); v != "" {
		active := v == "true"
		f.IsActive = &active
	}
	if v := q.Get("name_like"); v != "" {
		f.NameLike = &v
	}
	f.Page = parseIntParam(q, "page", 1)
	f.PageSize = parseIntParam(q, "page_size", 20)

	accounts, total, err := h.store.FindAccounts(r.Context(), f)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, store.Page{Items: accounts, Page: f.Page, PageSize: f.PageSize, TotalItems: total})
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	account, err := h.store.GetAccount(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, account)
}

func (h *Handler) accountHierarchy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	hierarchy, err := h.store.AccountHierarchy(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, hierarchy)
}

func parseIntParam(q map[string][]string, key string, def int) int {
	vals, ok := q[key]
	if !ok || len(vals) == 0 || vals[0] == "" {
		return def
	}
	n, err := strconv.Atoi(vals[0])
	if err != nil {
		return def
	}
	return n
}

func parseDecimalParam(q map[string][]string, key string) (decimal.Decimal, bool) {
	vals, ok := q[key]
	if !ok || len(vals) == 0 || vals[0] == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(vals[0])
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
