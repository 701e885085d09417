// Package api assembles every handler package under pkg/api into one chi
// router. Grounded on the middleware-chain style of the pack's gateway
// router (chi + chi's own middleware package, Recoverer first, request
// logging after), simplified to this system's single-service surface.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"finagent/pkg/api/data"
	"finagent/pkg/api/health"
	"finagent/pkg/api/ingest"
	"finagent/pkg/api/insights"
	"finagent/pkg/api/query"
	"finagent/pkg/core/agent"
	coreinsights "finagent/pkg/core/insights"
	"finagent/pkg/core/orchestrator"
	"finagent/pkg/core/store"
)

// Deps is everything the router needs to mount every handler.
type Deps struct {
	Store        *store.Store
	Orchestrator *orchestrator.Orchestrator
	Controller   *agent.Controller
	Insights     *coreinsights.Engine
	Logger       *zap.Logger
}

// NewRouter builds the fully-wired chi router for the service.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(d.Logger))
	r.Use(chimw.Timeout(60 * time.Second))

	health.NewHandler(d.Store).Routes(r)
	ingest.NewHandler(d.Orchestrator, d.Logger).Routes(r)
	data.NewHandler(d.Store, d.Logger).Routes(r)
	query.NewHandler(d.Controller, d.Logger).Routes(r)
	insights.NewHandler(d.Insights, d.Logger).Routes(r)

	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("request_id", chimw.GetReqID(r.Context())),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
