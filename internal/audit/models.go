// Package audit records a durable activity trail for every audited operation,
// success or failure, without ever altering the operation's own outcome.
package audit

import (
	"time"

	id "clinicore/pkg/domain"
)

// Status distinguishes successful from failed invocations of an audited
// operation. Failed invocations additionally carry the FailedSuffix on the
// action so trails remain distinguishable when queried by action alone.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// FailedSuffix is appended to the declared action when the operation returns
// an error.
const FailedSuffix = "_FAILED"

// UnknownEntityID is recorded when an operation declares an entity-id
// parameter that cannot be resolved from the request.
const UnknownEntityID = "unknown"

// Actions recorded by the exemplar clinical module. Consumers declare their
// own action names; the suffix convention is the only reserved part.
const (
	ActionPatientCreated     = "PATIENT_CREATED"
	ActionPatientUpdated     = "PATIENT_UPDATED"
	ActionPatientDeleted     = "PATIENT_DELETED"
	ActionAppointmentCreated = "APPOINTMENT_CREATED"
	ActionAppointmentUpdated = "APPOINTMENT_UPDATED"
)

// Event is the durable audit record. Immutable once written; the field names
// and semantics are a stable contract queried by entity, by actor, and by
// correlation id downstream.
type Event struct {
	ID            string         `json:"id"`
	TenantID      id.TenantID    `json:"tenant_id"`
	BranchID      string         `json:"branch_id,omitempty"`
	ActorID       id.UserID      `json:"actor_id"`
	ActorRole     string         `json:"actor_role"`
	EntityType    string         `json:"entity_type"`
	EntityID      string         `json:"entity_id"`
	Action        string         `json:"action"`
	Status        Status         `json:"status"`
	Before        map[string]any `json:"before,omitempty"`
	After         map[string]any `json:"after,omitempty"`
	CorrelationID string         `json:"correlation_id"`
	Timestamp     time.Time      `json:"timestamp"`
	SourceIP      string         `json:"source_ip,omitempty"`
	UserAgent     string         `json:"user_agent,omitempty"`
}
