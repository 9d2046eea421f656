package scope

import (
	"context"

	"clinicore/pkg/requestcontext"
)

// Scoped wraps an EntityStore and transparently constrains every operation to
// the tenant recorded in the request context.
//
// Rules, applied only when a tenant context is active AND the entity type is
// on the tenant-scoped allow-list:
//   - reads, updates, deletes: the tenant constraint is merged into the
//     caller's filter (AND, never replacing it);
//   - creates and upserts: the tenant id is force-set on the payload,
//     overriding any caller-supplied value, for every element;
//   - updates: the tenant id is stripped from the changes payload, so a
//     write can never move a row into another tenant.
//
// With no active tenant context, or for entity types off the allow-list,
// operations pass through unmodified. Pass-through for unknown types is
// fail-open by design: the allow-list in entities.go is the sole gate, so
// introducing a new tenant-owned entity type must add it there.
type Scoped struct {
	inner EntityStore
}

// NewScoped wraps the given store with tenant scoping.
func NewScoped(inner EntityStore) *Scoped {
	return &Scoped{inner: inner}
}

// scopeFilter merges the active tenant constraint into the caller's filter.
func scopeFilter(ctx context.Context, entityType string, filter Filter) Filter {
	tc, ok := requestcontext.Tenant(ctx)
	if !ok || !TenantScoped(entityType) {
		return filter
	}
	merged := filter.clone()
	merged[FieldTenantID] = tc.TenantID.String()
	return merged
}

// scopePayload force-sets the tenant id on a write payload. The context always
// wins over caller-supplied values.
func scopePayload(ctx context.Context, entityType string, record Record) Record {
	tc, ok := requestcontext.Tenant(ctx)
	if !ok || !TenantScoped(entityType) {
		return record
	}
	out := record.clone()
	out[FieldTenantID] = tc.TenantID.String()
	return out
}

// scopeChanges strips the tenant id from an update payload. An update can
// never move a row across tenants; the tenant constraint merged into the
// filter is the sole tenancy input for updates.
func scopeChanges(ctx context.Context, entityType string, changes Record) Record {
	if _, ok := requestcontext.Tenant(ctx); !ok || !TenantScoped(entityType) {
		return changes
	}
	if _, present := changes[FieldTenantID]; !present {
		return changes
	}
	out := changes.clone()
	delete(out, FieldTenantID)
	return out
}

func (s *Scoped) FindOne(ctx context.Context, entityType string, filter Filter) (Record, error) {
	return s.inner.FindOne(ctx, entityType, scopeFilter(ctx, entityType, filter))
}

func (s *Scoped) FindMany(ctx context.Context, entityType string, filter Filter) ([]Record, error) {
	return s.inner.FindMany(ctx, entityType, scopeFilter(ctx, entityType, filter))
}

func (s *Scoped) Count(ctx context.Context, entityType string, filter Filter) (int64, error) {
	return s.inner.Count(ctx, entityType, scopeFilter(ctx, entityType, filter))
}

func (s *Scoped) Create(ctx context.Context, entityType string, record Record) (Record, error) {
	return s.inner.Create(ctx, entityType, scopePayload(ctx, entityType, record))
}

func (s *Scoped) CreateMany(ctx context.Context, entityType string, records []Record) ([]Record, error) {
	scoped := make([]Record, len(records))
	for i, record := range records {
		scoped[i] = scopePayload(ctx, entityType, record)
	}
	return s.inner.CreateMany(ctx, entityType, scoped)
}

func (s *Scoped) Update(ctx context.Context, entityType string, filter Filter, changes Record) (int64, error) {
	return s.inner.Update(ctx, entityType, scopeFilter(ctx, entityType, filter), scopeChanges(ctx, entityType, changes))
}

func (s *Scoped) Delete(ctx context.Context, entityType string, filter Filter) (int64, error) {
	return s.inner.Delete(ctx, entityType, scopeFilter(ctx, entityType, filter))
}

func (s *Scoped) Upsert(ctx context.Context, entityType string, filter Filter, record Record) (Record, error) {
	return s.inner.Upsert(ctx, entityType,
		scopeFilter(ctx, entityType, filter),
		scopePayload(ctx, entityType, record))
}

var _ EntityStore = (*Scoped)(nil)
