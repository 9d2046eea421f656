package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Tenant-owned entities share one table shape: identity columns plus a jsonb
// document. Unique business keys (file numbers, national ids) live in the
// document and are enforced by expression indexes below.
var entityTables = []string{"patients", "appointments", "invoices", "inventory_items", "diagnosis_codes"}

const entityTableDDL = `
	CREATE TABLE IF NOT EXISTS %s (
		id         TEXT PRIMARY KEY,
		tenant_id  TEXT,
		branch_id  TEXT,
		data       JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_%s_tenant ON %s (tenant_id);
`

const schemaDDL = `
	CREATE TABLE IF NOT EXISTS audit_events (
		id             TEXT PRIMARY KEY,
		tenant_id      UUID NOT NULL,
		branch_id      TEXT,
		actor_id       UUID NOT NULL,
		actor_role     TEXT NOT NULL,
		entity_type    TEXT NOT NULL,
		entity_id      TEXT NOT NULL,
		action         TEXT NOT NULL,
		status         TEXT NOT NULL,
		before_state   JSONB,
		after_state    JSONB,
		correlation_id TEXT NOT NULL,
		timestamp      TIMESTAMPTZ NOT NULL,
		source_ip      TEXT,
		user_agent     TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_audit_events_entity
		ON audit_events (tenant_id, entity_type, entity_id);
	CREATE INDEX IF NOT EXISTS idx_audit_events_actor
		ON audit_events (tenant_id, actor_id);
	CREATE INDEX IF NOT EXISTS idx_audit_events_correlation
		ON audit_events (tenant_id, correlation_id);

	CREATE TABLE IF NOT EXISTS sequence_counters (
		tenant_id  UUID NOT NULL,
		seq_type   TEXT NOT NULL,
		period     TEXT NOT NULL DEFAULT '',
		value      BIGINT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (tenant_id, seq_type, period)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_patients_file_number
		ON patients (tenant_id, (data->>'file_number'));
	CREATE UNIQUE INDEX IF NOT EXISTS idx_patients_national_id
		ON patients (tenant_id, (data->>'national_id'))
		WHERE data->>'national_id' IS NOT NULL AND data->>'national_id' <> '';
	CREATE UNIQUE INDEX IF NOT EXISTS idx_invoices_number
		ON invoices (tenant_id, (data->>'invoice_number'));
`

// EnsureSchema creates every table the stores expect. Idempotent; safe to run
// on each startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, table := range entityTables {
		ddl := fmt.Sprintf(entityTableDDL, table, table, table)
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}
	}
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("create core tables: %w", err)
	}
	return nil
}
