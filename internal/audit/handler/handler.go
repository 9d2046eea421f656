// Package handler exposes read access to the audit trail. Trail queries are
// restricted to administrative roles and always run within the caller's
// tenant.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clinicore/internal/audit"
	"clinicore/internal/authz"
	platformmetrics "clinicore/internal/platform/metrics"
	httptransport "clinicore/internal/transport/http"
	"clinicore/internal/transport/http/shared"
	id "clinicore/pkg/domain"
	dErrors "clinicore/pkg/domain-errors"
	"clinicore/pkg/requestcontext"
)

type Handler struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *platformmetrics.Metrics
}

func New(store audit.Store, logger *slog.Logger, metrics *platformmetrics.Metrics) *Handler {
	return &Handler{store: store, logger: logger, metrics: metrics}
}

var adminRoles = []authz.Role{authz.RoleOwner, authz.RoleSystemAdmin}

func (h *Handler) Register(r chi.Router) {
	r.Get("/audit/entity/{entityType}/{entityID}", httptransport.Endpoint(httptransport.Operation{
		Name:  "audit.trail.by-entity",
		Roles: adminRoles,
	}, nil, h.metrics, h.handleByEntity))

	r.Get("/audit/actor/{actorID}", httptransport.Endpoint(httptransport.Operation{
		Name:  "audit.trail.by-actor",
		Roles: adminRoles,
	}, nil, h.metrics, h.handleByActor))

	r.Get("/audit/correlation/{correlationID}", httptransport.Endpoint(httptransport.Operation{
		Name:  "audit.trail.by-correlation",
		Roles: adminRoles,
	}, nil, h.metrics, h.handleByCorrelation))
}

func (h *Handler) handleByEntity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	events, err := h.store.ListByEntity(ctx, requestcontext.TenantID(ctx),
		chi.URLParam(r, "entityType"), chi.URLParam(r, "entityID"))
	if err != nil {
		h.fail(w, r, "audit trail query by entity failed", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) handleByActor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, err := id.ParseUserID(chi.URLParam(r, "actorID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	events, err := h.store.ListByActor(ctx, requestcontext.TenantID(ctx), actorID)
	if err != nil {
		h.fail(w, r, "audit trail query by actor failed", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) handleByCorrelation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	events, err := h.store.ListByCorrelation(ctx, requestcontext.TenantID(ctx),
		chi.URLParam(r, "correlationID"))
	if err != nil {
		h.fail(w, r, "audit trail query by correlation failed", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg,
		"error", err,
		"request_id", requestcontext.RequestID(r.Context()),
	)
	shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "audit trail query failed"))
}
