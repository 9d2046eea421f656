// Package sequence produces race-free, monotonically increasing counters per
// (tenant, type, period) key, used to mint human-readable business identifiers
// such as patient file numbers and invoice numbers.
package sequence

import (
	"context"
	"fmt"
	"time"

	id "clinicore/pkg/domain"
)

// Sequence types issued by the system.
const (
	TypePatientFile = "patient_file"
	TypeInvoice     = "invoice"
)

// Period buckets a counter in time. The empty period is a lifetime counter.
// The period participates in the storage key, so counters for different
// periods never interfere.
type Period string

const PeriodNone Period = ""

// DailyPeriod buckets by calendar day, e.g. "20260118".
func DailyPeriod(t time.Time) Period { return Period(t.Format("20060102")) }

// MonthlyPeriod buckets by calendar month, e.g. "202601".
func MonthlyPeriod(t time.Time) Period { return Period(t.Format("200601")) }

// Key identifies one counter.
type Key struct {
	TenantID id.TenantID
	Type     string
	Period   Period
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s", k.TenantID, k.Type, k.Period)
}

// Store provides the atomic counter primitive. Increment MUST be a single
// atomic operation at the storage layer (upsert-with-increment or an
// equivalent); an application-level read-then-write is a race under load and
// is not an acceptable implementation.
type Store interface {
	// Increment atomically advances the counter for the key and returns the
	// new value. The first increment for a key returns 1.
	Increment(ctx context.Context, key Key) (int64, error)
	// Current returns the counter without advancing it, 0 if never issued.
	// The result may be stale relative to concurrent increments and must not
	// be used to predict the next issued value.
	Current(ctx context.Context, key Key) (int64, error)
	// Reset forces the counter to the given value. Administrative use only
	// (migrations, tests); never called on request paths.
	Reset(ctx context.Context, key Key, value int64) error
}

// Generator is the request-facing surface over a Store.
type Generator struct {
	store Store
}

func NewGenerator(store Store) *Generator {
	return &Generator{store: store}
}

// Next issues the next value for the key. Two concurrent callers with the same
// key never receive the same value and no value is skipped.
func (g *Generator) Next(ctx context.Context, tenantID id.TenantID, seqType string, period Period) (int64, error) {
	value, err := g.store.Increment(ctx, Key{TenantID: tenantID, Type: seqType, Period: period})
	if err != nil {
		return 0, fmt.Errorf("next sequence value for %s/%s: %w", seqType, period, err)
	}
	return value, nil
}

// Current is a non-incrementing diagnostic read.
func (g *Generator) Current(ctx context.Context, tenantID id.TenantID, seqType string, period Period) (int64, error) {
	return g.store.Current(ctx, Key{TenantID: tenantID, Type: seqType, Period: period})
}

// Reset is the administrative override; not exposed on request paths.
func (g *Generator) Reset(ctx context.Context, tenantID id.TenantID, seqType string, period Period, value int64) error {
	return g.store.Reset(ctx, Key{TenantID: tenantID, Type: seqType, Period: period}, value)
}
