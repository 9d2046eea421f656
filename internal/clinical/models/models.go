// Package models holds the clinical module's domain types and their mapping
// to the generic entity record shape.
package models

import (
	"time"

	"clinicore/internal/scope"
	id "clinicore/pkg/domain"
)

type Patient struct {
	ID          id.PatientID `json:"id"`
	TenantID    id.TenantID  `json:"tenant_id"`
	BranchID    id.BranchID  `json:"branch_id"`
	FileNumber  string       `json:"file_number"`
	FirstName   string       `json:"first_name"`
	LastName    string       `json:"last_name"`
	NationalID  string       `json:"national_id,omitempty"`
	Phone       string       `json:"phone,omitempty"`
	DateOfBirth string       `json:"date_of_birth,omitempty"`
}

type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

type Appointment struct {
	ID        id.AppointmentID  `json:"id"`
	TenantID  id.TenantID       `json:"tenant_id"`
	BranchID  id.BranchID       `json:"branch_id"`
	PatientID id.PatientID      `json:"patient_id"`
	DoctorID  id.UserID         `json:"doctor_id"`
	StartsAt  time.Time         `json:"starts_at"`
	EndsAt    time.Time         `json:"ends_at"`
	Status    AppointmentStatus `json:"status"`
	Reason    string            `json:"reason,omitempty"`
}

type CreatePatientRequest struct {
	BranchID    string `json:"branch_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	NationalID  string `json:"national_id,omitempty"`
	Phone       string `json:"phone,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
}

type UpdatePatientRequest struct {
	Phone       *string `json:"phone,omitempty"`
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	DateOfBirth *string `json:"date_of_birth,omitempty"`
}

type CreateAppointmentRequest struct {
	BranchID  string    `json:"branch_id"`
	PatientID string    `json:"patient_id"`
	DoctorID  string    `json:"doctor_id"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Reason    string    `json:"reason,omitempty"`
}

// PatientRecord maps a patient to the entity record shape. Identity fields
// become columns; the rest lives in the document.
func PatientRecord(p Patient) scope.Record {
	return scope.Record{
		scope.FieldID:       p.ID.String(),
		scope.FieldTenantID: p.TenantID.String(),
		scope.FieldBranchID: p.BranchID.String(),
		"file_number":       p.FileNumber,
		"first_name":        p.FirstName,
		"last_name":         p.LastName,
		"national_id":       p.NationalID,
		"phone":             p.Phone,
		"date_of_birth":     p.DateOfBirth,
	}
}

func PatientFromRecord(record scope.Record) (Patient, error) {
	patientID, err := id.ParsePatientID(str(record, scope.FieldID))
	if err != nil {
		return Patient{}, err
	}
	tenantID, err := id.ParseTenantID(str(record, scope.FieldTenantID))
	if err != nil {
		return Patient{}, err
	}
	branchID, err := id.ParseBranchID(str(record, scope.FieldBranchID))
	if err != nil {
		return Patient{}, err
	}
	return Patient{
		ID:          patientID,
		TenantID:    tenantID,
		BranchID:    branchID,
		FileNumber:  str(record, "file_number"),
		FirstName:   str(record, "first_name"),
		LastName:    str(record, "last_name"),
		NationalID:  str(record, "national_id"),
		Phone:       str(record, "phone"),
		DateOfBirth: str(record, "date_of_birth"),
	}, nil
}

func AppointmentRecord(a Appointment) scope.Record {
	return scope.Record{
		scope.FieldID:       a.ID.String(),
		scope.FieldTenantID: a.TenantID.String(),
		scope.FieldBranchID: a.BranchID.String(),
		"patient_id":        a.PatientID.String(),
		"doctor_id":         a.DoctorID.String(),
		"starts_at":         a.StartsAt.Format(time.RFC3339),
		"ends_at":           a.EndsAt.Format(time.RFC3339),
		"status":            string(a.Status),
		"reason":            a.Reason,
	}
}

func AppointmentFromRecord(record scope.Record) (Appointment, error) {
	appointmentID, err := id.ParseAppointmentID(str(record, scope.FieldID))
	if err != nil {
		return Appointment{}, err
	}
	tenantID, err := id.ParseTenantID(str(record, scope.FieldTenantID))
	if err != nil {
		return Appointment{}, err
	}
	branchID, err := id.ParseBranchID(str(record, scope.FieldBranchID))
	if err != nil {
		return Appointment{}, err
	}
	patientID, err := id.ParsePatientID(str(record, "patient_id"))
	if err != nil {
		return Appointment{}, err
	}
	doctorID, err := id.ParseUserID(str(record, "doctor_id"))
	if err != nil {
		return Appointment{}, err
	}

	appointment := Appointment{
		ID:        appointmentID,
		TenantID:  tenantID,
		BranchID:  branchID,
		PatientID: patientID,
		DoctorID:  doctorID,
		Status:    AppointmentStatus(str(record, "status")),
		Reason:    str(record, "reason"),
	}
	if t, err := time.Parse(time.RFC3339, str(record, "starts_at")); err == nil {
		appointment.StartsAt = t
	}
	if t, err := time.Parse(time.RFC3339, str(record, "ends_at")); err == nil {
		appointment.EndsAt = t
	}
	return appointment, nil
}

func str(record scope.Record, field string) string {
	v, _ := record[field].(string)
	return v
}
