package audit

import (
	"context"

	id "clinicore/pkg/domain"
)

//go:generate mockgen -source=store.go -destination=mocks/store.go -package=mocks

// Store persists audit events. Append-only: events are never updated or
// deleted through normal operation. Queries are tenant-scoped - audit rows are
// themselves tenant-owned data.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByEntity(ctx context.Context, tenantID id.TenantID, entityType, entityID string) ([]Event, error)
	ListByActor(ctx context.Context, tenantID id.TenantID, actorID id.UserID) ([]Event, error)
	ListByCorrelation(ctx context.Context, tenantID id.TenantID, correlationID string) ([]Event, error)
}
