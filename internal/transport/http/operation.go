package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"clinicore/internal/audit"
	"clinicore/internal/authz"
	"clinicore/internal/platform/metrics"
	"clinicore/internal/transport/http/shared"
	dErrors "clinicore/pkg/domain-errors"
)

// AuditSpec declares how an operation's audit event is derived. The entity id
// is resolved from the route path first, then the request body, then the query
// string; when none yields a value the event records the id as unknown.
type AuditSpec struct {
	Action     string
	EntityType string
	PathParam  string
	BodyField  string
	QueryParam string
	// Before, when set, builds the pre-mutation snapshot for the resolved
	// entity id.
	Before func(entityID string) audit.BeforeFunc
}

// Operation is the declarative surface of one route: who may call it and how
// it is audited. Routes are registered through Endpoint so the authorization
// order (authenticate, role, then handler) is fixed in one place and cannot
// drift per handler.
type Operation struct {
	Name  string
	Roles []authz.Role
	Audit *AuditSpec
}

// Endpoint wraps a handler with the operation's authorization and audit
// declarations. Role rejection happens before the handler runs, so a caller
// with an insufficient role never triggers a store access.
func Endpoint(op Operation, recorder *audit.Recorder, m *metrics.Metrics, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if _, err := authz.Authorize(ctx, op.Roles); err != nil {
			if m != nil {
				m.AuthzRejections.WithLabelValues(rejectionLayer(err)).Inc()
			}
			shared.WriteError(w, err)
			return
		}

		if op.Audit == nil || recorder == nil {
			next(w, r)
			return
		}

		entityID := resolveEntityID(r, op.Audit)
		auditOp := audit.Operation{
			Action:     op.Audit.Action,
			EntityType: op.Audit.EntityType,
			EntityID:   entityID,
		}
		if op.Audit.Before != nil && entityID != audit.UnknownEntityID {
			auditOp.Before = op.Audit.Before(entityID)
		}

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		_, _ = recorder.Record(ctx, auditOp, func(ctx context.Context) (map[string]any, error) {
			next(ww, r.WithContext(ctx))
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status >= http.StatusBadRequest {
				return nil, fmt.Errorf("request failed with status %d", status)
			}
			return map[string]any{"status_code": status}, nil
		})
	}
}

func rejectionLayer(err error) string {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeUnauthenticated:
		return "authentication"
	case dErrors.CodeScopeDenied:
		return "branch"
	default:
		return "role"
	}
}

// resolveEntityID walks the declared sources in priority order.
func resolveEntityID(r *http.Request, spec *AuditSpec) string {
	if spec.PathParam != "" {
		if v := chi.URLParam(r, spec.PathParam); v != "" {
			return v
		}
	}
	if spec.BodyField != "" {
		if v := peekBodyField(r, spec.BodyField); v != "" {
			return v
		}
	}
	if spec.QueryParam != "" {
		if v := r.URL.Query().Get(spec.QueryParam); v != "" {
			return v
		}
	}
	return audit.UnknownEntityID
}

const maxPeekBytes = 1 << 20

// peekBodyField reads the body to extract one field, then restores it so the
// handler still sees the full payload.
func peekBodyField(r *http.Request, field string) string {
	if r.Body == nil {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes))
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	if v, ok := payload[field].(string); ok {
		return v
	}
	return ""
}
