// Package service implements the clinical operations on top of the scoped
// entity store. It carries no tenancy logic of its own: tenant constraints
// come from the scoping layer, branch constraints from the authorization
// chain, and the service only decides clinical semantics.
package service

import (
	"context"
	"errors"
	"log/slog"

	"clinicore/internal/authz"
	"clinicore/internal/clinical/models"
	platformmetrics "clinicore/internal/platform/metrics"
	"clinicore/internal/scope"
	"clinicore/internal/sequence"
	id "clinicore/pkg/domain"
	dErrors "clinicore/pkg/domain-errors"
	"clinicore/pkg/platform/sentinel"
	"clinicore/pkg/requestcontext"
)

// EntityStore is the subset of the scoped store the service needs.
type EntityStore interface {
	FindOne(ctx context.Context, entityType string, filter scope.Filter) (scope.Record, error)
	FindMany(ctx context.Context, entityType string, filter scope.Filter) ([]scope.Record, error)
	Create(ctx context.Context, entityType string, record scope.Record) (scope.Record, error)
	Update(ctx context.Context, entityType string, filter scope.Filter, changes scope.Record) (int64, error)
}

type Service struct {
	entities  EntityStore
	sequences *sequence.Generator
	logger    *slog.Logger
	metrics   *platformmetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *platformmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(entities EntityStore, sequences *sequence.Generator, opts ...Option) *Service {
	s := &Service{
		entities:  entities,
		sequences: sequences,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreatePatient(ctx context.Context, req models.CreatePatientRequest) (models.Patient, error) {
	tc, ok := requestcontext.Tenant(ctx)
	if !ok {
		return models.Patient{}, dErrors.New(dErrors.CodeUnauthenticated, "no active tenant context")
	}
	if req.FirstName == "" || req.LastName == "" {
		return models.Patient{}, dErrors.New(dErrors.CodeInvalidInput, "first and last name are required")
	}
	branchID, err := id.ParseBranchID(req.BranchID)
	if err != nil {
		return models.Patient{}, err
	}
	if err := authz.CheckBranchCtx(ctx, branchID); err != nil {
		s.scopeDenied(ctx, scope.EntityPatients)
		return models.Patient{}, err
	}

	now := requestcontext.Now(ctx)
	value, err := s.sequences.Next(ctx, tc.TenantID, sequence.TypePatientFile, sequence.DailyPeriod(now))
	if err != nil {
		return models.Patient{}, dErrors.Wrap(err, dErrors.CodeInternal, "mint file number")
	}
	s.sequenceIssued(sequence.TypePatientFile)

	patient := models.Patient{
		ID:          id.NewPatientID(),
		TenantID:    tc.TenantID,
		BranchID:    branchID,
		FileNumber:  sequence.FormatFileNumber(now, value),
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		NationalID:  req.NationalID,
		Phone:       req.Phone,
		DateOfBirth: req.DateOfBirth,
	}

	if _, err := s.entities.Create(ctx, scope.EntityPatients, models.PatientRecord(patient)); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return models.Patient{}, dErrors.New(dErrors.CodeConflict, "patient with this national id already exists")
		}
		return models.Patient{}, dErrors.Wrap(err, dErrors.CodeInternal, "create patient")
	}
	return patient, nil
}

func (s *Service) GetPatient(ctx context.Context, patientID id.PatientID) (models.Patient, error) {
	record, err := s.entities.FindOne(ctx, scope.EntityPatients, scope.Filter{scope.FieldID: patientID.String()})
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.Patient{}, dErrors.New(dErrors.CodeNotFound, "patient not found")
	}
	if err != nil {
		return models.Patient{}, dErrors.Wrap(err, dErrors.CodeInternal, "read patient")
	}
	return models.PatientFromRecord(record)
}

func (s *Service) ListPatients(ctx context.Context, branchID string) ([]models.Patient, error) {
	filter := scope.Filter{}
	if branchID != "" {
		parsed, err := id.ParseBranchID(branchID)
		if err != nil {
			return nil, err
		}
		if err := authz.CheckBranchCtx(ctx, parsed); err != nil {
			s.scopeDenied(ctx, scope.EntityPatients)
			return nil, err
		}
		filter[scope.FieldBranchID] = parsed.String()
	}
	records, err := s.entities.FindMany(ctx, scope.EntityPatients, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list patients")
	}
	patients := make([]models.Patient, 0, len(records))
	for _, record := range records {
		patient, err := models.PatientFromRecord(record)
		if err != nil {
			return nil, err
		}
		patients = append(patients, patient)
	}
	return patients, nil
}

func (s *Service) UpdatePatient(ctx context.Context, patientID id.PatientID, req models.UpdatePatientRequest) (models.Patient, error) {
	changes := scope.Record{}
	setIf(changes, "phone", req.Phone)
	setIf(changes, "first_name", req.FirstName)
	setIf(changes, "last_name", req.LastName)
	setIf(changes, "date_of_birth", req.DateOfBirth)
	if len(changes) == 0 {
		return models.Patient{}, dErrors.New(dErrors.CodeBadRequest, "no fields to update")
	}

	n, err := s.entities.Update(ctx, scope.EntityPatients, scope.Filter{scope.FieldID: patientID.String()}, changes)
	if err != nil {
		return models.Patient{}, dErrors.Wrap(err, dErrors.CodeInternal, "update patient")
	}
	if n == 0 {
		return models.Patient{}, dErrors.New(dErrors.CodeNotFound, "patient not found")
	}
	return s.GetPatient(ctx, patientID)
}

// PatientSnapshot returns the stored state of a patient for audit pre-capture.
// Missing patients yield an empty snapshot rather than an error so creates and
// already-deleted targets still audit cleanly.
func (s *Service) PatientSnapshot(ctx context.Context, rawID string) (map[string]any, error) {
	record, err := s.entities.FindOne(ctx, scope.EntityPatients, scope.Filter{scope.FieldID: rawID})
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) CreateAppointment(ctx context.Context, req models.CreateAppointmentRequest) (models.Appointment, error) {
	tc, ok := requestcontext.Tenant(ctx)
	if !ok {
		return models.Appointment{}, dErrors.New(dErrors.CodeUnauthenticated, "no active tenant context")
	}
	branchID, err := id.ParseBranchID(req.BranchID)
	if err != nil {
		return models.Appointment{}, err
	}
	patientID, err := id.ParsePatientID(req.PatientID)
	if err != nil {
		return models.Appointment{}, err
	}
	doctorID, err := id.ParseUserID(req.DoctorID)
	if err != nil {
		return models.Appointment{}, err
	}
	if !req.EndsAt.After(req.StartsAt) {
		return models.Appointment{}, dErrors.New(dErrors.CodeInvalidInput, "appointment must end after it starts")
	}
	if err := authz.CheckBranchCtx(ctx, branchID); err != nil {
		s.scopeDenied(ctx, scope.EntityAppointments)
		return models.Appointment{}, err
	}

	// The patient must be visible in this tenant before booking.
	if _, err := s.GetPatient(ctx, patientID); err != nil {
		return models.Appointment{}, err
	}

	appointment := models.Appointment{
		ID:        id.NewAppointmentID(),
		TenantID:  tc.TenantID,
		BranchID:  branchID,
		PatientID: patientID,
		DoctorID:  doctorID,
		StartsAt:  req.StartsAt,
		EndsAt:    req.EndsAt,
		Status:    models.AppointmentScheduled,
		Reason:    req.Reason,
	}
	if _, err := s.entities.Create(ctx, scope.EntityAppointments, models.AppointmentRecord(appointment)); err != nil {
		return models.Appointment{}, dErrors.Wrap(err, dErrors.CodeInternal, "create appointment")
	}
	return appointment, nil
}

// GetAppointment fetches within the tenant, then checks branch membership
// against the row actually stored. The check must use the fetched branch, not
// a caller-supplied one, or a caller could name a branch they belong to while
// reading another branch's row.
func (s *Service) GetAppointment(ctx context.Context, appointmentID id.AppointmentID) (models.Appointment, error) {
	record, err := s.entities.FindOne(ctx, scope.EntityAppointments, scope.Filter{scope.FieldID: appointmentID.String()})
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.Appointment{}, dErrors.New(dErrors.CodeNotFound, "appointment not found")
	}
	if err != nil {
		return models.Appointment{}, dErrors.Wrap(err, dErrors.CodeInternal, "read appointment")
	}
	appointment, err := models.AppointmentFromRecord(record)
	if err != nil {
		return models.Appointment{}, err
	}
	if err := authz.CheckBranchCtx(ctx, appointment.BranchID); err != nil {
		s.scopeDenied(ctx, scope.EntityAppointments)
		return models.Appointment{}, err
	}
	return appointment, nil
}

func (s *Service) ListAppointments(ctx context.Context, branchID string) ([]models.Appointment, error) {
	filter := scope.Filter{}
	if branchID != "" {
		parsed, err := id.ParseBranchID(branchID)
		if err != nil {
			return nil, err
		}
		if err := authz.CheckBranchCtx(ctx, parsed); err != nil {
			s.scopeDenied(ctx, scope.EntityAppointments)
			return nil, err
		}
		filter[scope.FieldBranchID] = parsed.String()
	}
	records, err := s.entities.FindMany(ctx, scope.EntityAppointments, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list appointments")
	}
	appointments := make([]models.Appointment, 0, len(records))
	for _, record := range records {
		appointment, err := models.AppointmentFromRecord(record)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, appointment)
	}
	return appointments, nil
}

// ListDiagnosisCodes reads the shared reference table; it is global data and
// deliberately not tenant-filtered.
func (s *Service) ListDiagnosisCodes(ctx context.Context) ([]scope.Record, error) {
	records, err := s.entities.FindMany(ctx, scope.EntityDiagnosisCodes, scope.Filter{})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list diagnosis codes")
	}
	return records, nil
}

func setIf(changes scope.Record, field string, value *string) {
	if value != nil {
		changes[field] = *value
	}
}

func (s *Service) scopeDenied(ctx context.Context, entityType string) {
	s.logger.WarnContext(ctx, "branch scope denied",
		slog.String("entity_type", entityType),
		slog.String("request_id", requestcontext.RequestID(ctx)),
	)
	if s.metrics != nil {
		s.metrics.ScopedQueryDenied.Inc()
	}
}

func (s *Service) sequenceIssued(seqType string) {
	if s.metrics != nil {
		s.metrics.SequencesIssued.WithLabelValues(seqType).Inc()
	}
}
