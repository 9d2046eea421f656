// Package scope is the data-access scoping layer. Every tenant-scoped read
// and write issued by business logic flows through a Scoped store, which
// injects the active tenant's constraint so a missing tenant filter in any
// single business module cannot leak or corrupt another tenant's data.
package scope

import (
	"context"
	"maps"
)

// Filter selects records by field equality. Multiple entries combine with AND
// semantics; an empty filter matches everything the caller may see.
type Filter map[string]any

// Record is the generic row representation exchanged with entity stores.
type Record map[string]any

func (f Filter) clone() Filter {
	merged := make(Filter, len(f)+1)
	maps.Copy(merged, f)
	return merged
}

func (r Record) clone() Record {
	out := make(Record, len(r)+1)
	maps.Copy(out, r)
	return out
}

// EntityStore is the underlying generic data store. Implementations perform no
// tenancy logic of their own; they execute exactly the filters and payloads
// they are given.
type EntityStore interface {
	// FindOne returns the single record matching the filter, or
	// sentinel.ErrNotFound.
	FindOne(ctx context.Context, entityType string, filter Filter) (Record, error)
	// FindMany returns all records matching the filter.
	FindMany(ctx context.Context, entityType string, filter Filter) ([]Record, error)
	// Count returns the number of records matching the filter.
	Count(ctx context.Context, entityType string, filter Filter) (int64, error)
	// Create inserts one record and returns it as stored.
	Create(ctx context.Context, entityType string, record Record) (Record, error)
	// CreateMany inserts all records and returns them as stored.
	CreateMany(ctx context.Context, entityType string, records []Record) ([]Record, error)
	// Update applies changes to every record matching the filter and returns
	// the number of records changed.
	Update(ctx context.Context, entityType string, filter Filter, changes Record) (int64, error)
	// Delete removes every record matching the filter and returns the number
	// removed.
	Delete(ctx context.Context, entityType string, filter Filter) (int64, error)
	// Upsert inserts the record or, when a record with the same id exists and
	// matches the filter, replaces its fields.
	Upsert(ctx context.Context, entityType string, filter Filter, record Record) (Record, error)
}
