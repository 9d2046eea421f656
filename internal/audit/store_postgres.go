package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	id "clinicore/pkg/domain"
	txcontext "clinicore/pkg/platform/tx"
)

// PostgresStore persists audit events in the append-only audit_events table.
// All queries filter by tenant id; an audit trail is tenant-owned data and
// never crosses the isolation boundary.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const eventColumns = `
	id, tenant_id, branch_id, actor_id, actor_role, entity_type, entity_id,
	action, status, before_state, after_state, correlation_id, timestamp, source_ip,
	user_agent
`

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	before, err := marshalSnapshot(event.Before)
	if err != nil {
		return fmt.Errorf("marshal before state: %w", err)
	}
	after, err := marshalSnapshot(event.After)
	if err != nil {
		return fmt.Errorf("marshal after state: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO audit_events (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, eventColumns)
	_, err = s.execer(ctx).ExecContext(ctx, query,
		event.ID,
		uuid.UUID(event.TenantID),
		nullString(event.BranchID),
		uuid.UUID(event.ActorID),
		event.ActorRole,
		event.EntityType,
		event.EntityID,
		event.Action,
		string(event.Status),
		before,
		after,
		event.CorrelationID,
		event.Timestamp,
		nullString(event.SourceIP),
		nullString(event.UserAgent),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByEntity(ctx context.Context, tenantID id.TenantID, entityType, entityID string) ([]Event, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM audit_events
		WHERE tenant_id = $1 AND entity_type = $2 AND entity_id = $3
		ORDER BY timestamp DESC
	`, eventColumns)
	return s.query(ctx, query, uuid.UUID(tenantID), entityType, entityID)
}

func (s *PostgresStore) ListByActor(ctx context.Context, tenantID id.TenantID, actorID id.UserID) ([]Event, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM audit_events
		WHERE tenant_id = $1 AND actor_id = $2
		ORDER BY timestamp DESC
	`, eventColumns)
	return s.query(ctx, query, uuid.UUID(tenantID), uuid.UUID(actorID))
}

func (s *PostgresStore) ListByCorrelation(ctx context.Context, tenantID id.TenantID, correlationID string) ([]Event, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM audit_events
		WHERE tenant_id = $1 AND correlation_id = $2
		ORDER BY timestamp
	`, eventColumns)
	return s.query(ctx, query, uuid.UUID(tenantID), correlationID)
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event                         Event
			tenantID, actorID             uuid.UUID
			branchID, sourceIP, userAgent sql.NullString
			before, after                 []byte
			status                        string
		)
		err := rows.Scan(
			&event.ID, &tenantID, &branchID, &actorID, &event.ActorRole,
			&event.EntityType, &event.EntityID, &event.Action, &status,
			&before, &after, &event.CorrelationID, &event.Timestamp, &sourceIP,
			&userAgent,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.TenantID = id.TenantID(tenantID)
		event.ActorID = id.UserID(actorID)
		event.Status = Status(status)
		event.BranchID = branchID.String
		event.SourceIP = sourceIP.String
		event.UserAgent = userAgent.String
		if event.Before, err = unmarshalSnapshot(before); err != nil {
			return nil, err
		}
		if event.After, err = unmarshalSnapshot(after); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func marshalSnapshot(snapshot map[string]any) ([]byte, error) {
	if snapshot == nil {
		return nil, nil
	}
	return json.Marshal(snapshot)
}

func unmarshalSnapshot(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var snapshot map[string]any
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("decode audit snapshot: %w", err)
	}
	return snapshot, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Store = (*PostgresStore)(nil)
