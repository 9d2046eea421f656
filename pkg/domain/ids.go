// Package domain holds typed identifiers shared across modules.
//
// IDs are distinct types over uuid.UUID so the compiler rejects cross-type
// assignment (a PatientID can never be passed where a TenantID is expected).
// Parse functions enforce the trust-boundary invariant that IDs arriving from
// the outside are valid, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "clinicore/pkg/domain-errors"
)

type (
	// TenantID identifies an isolated customer organization.
	TenantID uuid.UUID
	// UserID identifies a staff member within a tenant.
	UserID uuid.UUID
	// BranchID identifies a clinic location within a tenant.
	BranchID uuid.UUID
	// PatientID identifies a patient record.
	PatientID uuid.UUID
	// AppointmentID identifies an appointment record.
	AppointmentID uuid.UUID
)

func (id TenantID) String() string      { return uuid.UUID(id).String() }
func (id UserID) String() string        { return uuid.UUID(id).String() }
func (id BranchID) String() string      { return uuid.UUID(id).String() }
func (id PatientID) String() string     { return uuid.UUID(id).String() }
func (id AppointmentID) String() string { return uuid.UUID(id).String() }

// MarshalText renders IDs in canonical UUID form so JSON payloads carry
// strings, not byte arrays.
func (id TenantID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id UserID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }
func (id BranchID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id PatientID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id AppointmentID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *TenantID) UnmarshalText(text []byte) error {
	parsed, err := ParseTenantID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *UserID) UnmarshalText(text []byte) error {
	parsed, err := ParseUserID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *BranchID) UnmarshalText(text []byte) error {
	parsed, err := ParseBranchID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *PatientID) UnmarshalText(text []byte) error {
	parsed, err := ParsePatientID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *AppointmentID) UnmarshalText(text []byte) error {
	parsed, err := ParseAppointmentID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id TenantID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id BranchID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id PatientID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id AppointmentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewTenantID mints a random tenant ID.
func NewTenantID() TenantID { return TenantID(uuid.New()) }

// NewUserID mints a random user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewBranchID mints a random branch ID.
func NewBranchID() BranchID { return BranchID(uuid.New()) }

// NewPatientID mints a random patient ID.
func NewPatientID() PatientID { return PatientID(uuid.New()) }

// NewAppointmentID mints a random appointment ID.
func NewAppointmentID() AppointmentID { return AppointmentID(uuid.New()) }

// ParseTenantID parses and validates a tenant ID from its string form.
func ParseTenantID(s string) (TenantID, error) {
	u, err := parseUUID(s, "tenant id")
	return TenantID(u), err
}

// ParseUserID parses and validates a user ID from its string form.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

// ParseBranchID parses and validates a branch ID from its string form.
func ParseBranchID(s string) (BranchID, error) {
	u, err := parseUUID(s, "branch id")
	return BranchID(u), err
}

// ParsePatientID parses and validates a patient ID from its string form.
func ParsePatientID(s string) (PatientID, error) {
	u, err := parseUUID(s, "patient id")
	return PatientID(u), err
}

// ParseAppointmentID parses and validates an appointment ID from its string form.
func ParseAppointmentID(s string) (AppointmentID, error) {
	u, err := parseUUID(s, "appointment id")
	return AppointmentID(u), err
}

// parseUUID rejects empty strings, malformed UUIDs, and the nil UUID.
// Nil is rejected because a nil ID silently matches nothing in scoped queries,
// which would mask caller bugs at a security boundary.
func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" must not be the nil UUID")
	}
	return u, nil
}
