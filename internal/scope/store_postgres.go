package scope

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"clinicore/pkg/platform/sentinel"
	txcontext "clinicore/pkg/platform/tx"
)

// PostgresStore persists entities in per-type tables sharing a common shape:
// id, tenant_id, branch_id as first-class columns and everything else in a
// jsonb document. Table names come from the entity registry, never from
// caller input.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

var fieldPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

const uniqueViolation = "23505"

func tableFor(entityType string) (string, error) {
	if !Known(entityType) {
		return "", fmt.Errorf("unknown entity type %q", entityType)
	}
	return entityType, nil
}

// compileFilter renders filter entries into WHERE conditions. Column fields
// compare natively; document fields compare as jsonb text. Fields are sorted
// so generated SQL is deterministic for tests and plan caching.
func compileFilter(filter Filter, startArg int) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}
	fields := make([]string, 0, len(filter))
	for field := range filter {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	conds := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields))
	for _, field := range fields {
		if !fieldPattern.MatchString(field) {
			return "", nil, fmt.Errorf("invalid filter field %q", field)
		}
		arg := startArg + len(args)
		switch field {
		case FieldID, FieldTenantID, FieldBranchID:
			conds = append(conds, fmt.Sprintf("%s = $%d", field, arg))
			args = append(args, fmt.Sprint(filter[field]))
		default:
			conds = append(conds, fmt.Sprintf("data->>'%s' = $%d", field, arg))
			args = append(args, fmt.Sprint(filter[field]))
		}
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// splitRecord separates column fields from the jsonb document.
func splitRecord(record Record) (recordID string, tenantID, branchID sql.NullString, doc []byte, err error) {
	payload := make(map[string]any, len(record))
	for field, value := range record {
		switch field {
		case FieldID:
			recordID = fmt.Sprint(value)
		case FieldTenantID:
			tenantID = sql.NullString{String: fmt.Sprint(value), Valid: true}
		case FieldBranchID:
			branchID = sql.NullString{String: fmt.Sprint(value), Valid: true}
		default:
			if !fieldPattern.MatchString(field) {
				return "", tenantID, branchID, nil, fmt.Errorf("invalid record field %q", field)
			}
			payload[field] = value
		}
	}
	doc, err = json.Marshal(payload)
	return recordID, tenantID, branchID, doc, err
}

func scanRecord(scanner interface{ Scan(...any) error }) (Record, error) {
	var (
		recordID           string
		tenantID, branchID sql.NullString
		doc                []byte
	)
	if err := scanner.Scan(&recordID, &tenantID, &branchID, &doc); err != nil {
		return nil, err
	}
	record := Record{}
	if len(doc) > 0 {
		if err := json.Unmarshal(doc, &record); err != nil {
			return nil, fmt.Errorf("decode entity document: %w", err)
		}
	}
	record[FieldID] = recordID
	if tenantID.Valid {
		record[FieldTenantID] = tenantID.String
	}
	if branchID.Valid {
		record[FieldBranchID] = branchID.String
	}
	return record, nil
}

func (s *PostgresStore) FindOne(ctx context.Context, entityType string, filter Filter) (Record, error) {
	table, err := tableFor(entityType)
	if err != nil {
		return nil, err
	}
	where, args, err := compileFilter(filter, 1)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT id, tenant_id, branch_id, data FROM %s%s LIMIT 1", table, where)
	record, err := scanRecord(s.execer(ctx).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", entityType, err)
	}
	return record, nil
}

func (s *PostgresStore) FindMany(ctx context.Context, entityType string, filter Filter) ([]Record, error) {
	table, err := tableFor(entityType)
	if err != nil {
		return nil, err
	}
	where, args, err := compileFilter(filter, 1)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT id, tenant_id, branch_id, data FROM %s%s ORDER BY created_at", table, where)
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", entityType, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", entityType, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", entityType, err)
	}
	return records, nil
}

func (s *PostgresStore) Count(ctx context.Context, entityType string, filter Filter) (int64, error) {
	table, err := tableFor(entityType)
	if err != nil {
		return 0, err
	}
	where, args, err := compileFilter(filter, 1)
	if err != nil {
		return 0, err
	}
	var n int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", table, where)
	if err := s.execer(ctx).QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", entityType, err)
	}
	return n, nil
}

func (s *PostgresStore) Create(ctx context.Context, entityType string, record Record) (Record, error) {
	table, err := tableFor(entityType)
	if err != nil {
		return nil, err
	}
	return s.insert(ctx, table, entityType, record)
}

func (s *PostgresStore) CreateMany(ctx context.Context, entityType string, records []Record) ([]Record, error) {
	table, err := tableFor(entityType)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(records))
	for _, record := range records {
		created, err := s.insert(ctx, table, entityType, record)
		if err != nil {
			return nil, err
		}
		out = append(out, created)
	}
	return out, nil
}

func (s *PostgresStore) insert(ctx context.Context, table, entityType string, record Record) (Record, error) {
	recordID, tenantID, branchID, doc, err := splitRecord(record)
	if err != nil {
		return nil, err
	}
	if recordID == "" {
		recordID = uuid.NewString()
	}
	now := time.Now()
	query := fmt.Sprintf(`
		INSERT INTO %s (id, tenant_id, branch_id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`, table)
	if _, err := s.execer(ctx).ExecContext(ctx, query, recordID, tenantID, branchID, doc, now); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, sentinel.ErrConflict
		}
		return nil, fmt.Errorf("insert %s: %w", entityType, err)
	}
	stored := record.clone()
	stored[FieldID] = recordID
	return stored, nil
}

func (s *PostgresStore) Update(ctx context.Context, entityType string, filter Filter, changes Record) (int64, error) {
	table, err := tableFor(entityType)
	if err != nil {
		return 0, err
	}

	sets := []string{"updated_at = $1"}
	args := []any{time.Now()}
	_, tenantID, branchID, doc, err := splitRecord(changes)
	if err != nil {
		return 0, err
	}
	if tenantID.Valid {
		args = append(args, tenantID.String)
		sets = append(sets, fmt.Sprintf("tenant_id = $%d", len(args)))
	}
	if branchID.Valid {
		args = append(args, branchID.String)
		sets = append(sets, fmt.Sprintf("branch_id = $%d", len(args)))
	}
	if string(doc) != "{}" {
		args = append(args, doc)
		sets = append(sets, fmt.Sprintf("data = data || $%d::jsonb", len(args)))
	}

	where, whereArgs, err := compileFilter(filter, len(args)+1)
	if err != nil {
		return 0, err
	}
	args = append(args, whereArgs...)

	query := fmt.Sprintf("UPDATE %s SET %s%s", table, strings.Join(sets, ", "), where)
	res, err := s.execer(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", entityType, err)
	}
	return res.RowsAffected()
}

func (s *PostgresStore) Delete(ctx context.Context, entityType string, filter Filter) (int64, error) {
	table, err := tableFor(entityType)
	if err != nil {
		return 0, err
	}
	where, args, err := compileFilter(filter, 1)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf("DELETE FROM %s%s", table, where)
	res, err := s.execer(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", entityType, err)
	}
	return res.RowsAffected()
}

func (s *PostgresStore) Upsert(ctx context.Context, entityType string, filter Filter, record Record) (Record, error) {
	recordID, _ := record[FieldID].(string)
	if recordID == "" {
		return s.Create(ctx, entityType, record)
	}
	existing, err := s.FindOne(ctx, entityType, Filter{FieldID: recordID})
	if errors.Is(err, sentinel.ErrNotFound) {
		return s.Create(ctx, entityType, record)
	}
	if err != nil {
		return nil, err
	}
	// The row exists; replace its fields only if it matches the (scoped)
	// filter, so a caller cannot overwrite a row outside its tenant.
	updateFilter := filter.clone()
	updateFilter[FieldID] = recordID
	changes := record.clone()
	delete(changes, FieldID)
	n, err := s.Update(ctx, entityType, updateFilter, changes)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, sentinel.ErrNotFound
	}
	updated := existing
	for field, value := range record {
		updated[field] = value
	}
	return updated, nil
}

var _ EntityStore = (*PostgresStore)(nil)
