// Package httptransport wires the HTTP surface: global middleware, public
// endpoints, and the authenticated API group.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	platformmiddleware "clinicore/internal/platform/middleware"
	"clinicore/internal/platform/metrics"
	"clinicore/pkg/platform/middleware/auth"
	"clinicore/pkg/platform/middleware/metadata"
	"clinicore/pkg/platform/middleware/requestid"
	"clinicore/pkg/platform/middleware/requesttime"
	"clinicore/pkg/platform/middleware/tracing"
)

// Registrar is implemented by module handlers that attach routes.
type Registrar interface {
	Register(r chi.Router)
}

// RouterDeps carries everything the router needs from main.
type RouterDeps struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Validator auth.TokenValidator
	// Health reports readiness of backing services; nil checks pass.
	Health func(ctx context.Context) error
	// Modules register their routes inside the authenticated group.
	Modules []Registrar
}

// NewRouter builds the chi router with the full middleware chain. The order
// matters: request id and time first so every later layer (including auth
// failures) logs and audits consistently, then client metadata and tracing,
// then authentication for the API group.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.Middleware)
	r.Use(tracing.Middleware)
	r.Use(platformmiddleware.Logger(deps.Logger))
	r.Use(platformmiddleware.Latency(deps.Metrics))
	r.Use(chimiddleware.Timeout(30 * time.Second))

	// Tenant-agnostic endpoints stay outside the auth group.
	r.Get("/healthz", healthHandler(deps.Health))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(api chi.Router) {
		api.Use(auth.RequireAuth(deps.Validator, deps.Logger))
		for _, module := range deps.Modules {
			module.Register(api)
		}
	})

	return r
}

func healthHandler(health func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if err := health(r.Context()); err != nil {
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
