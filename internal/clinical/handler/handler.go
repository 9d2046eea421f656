// Package handler exposes the clinical module over HTTP. Routes are declared
// as operations so authorization and audit behavior is data, not code.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clinicore/internal/audit"
	"clinicore/internal/authz"
	"clinicore/internal/clinical/models"
	"clinicore/internal/clinical/service"
	platformmetrics "clinicore/internal/platform/metrics"
	"clinicore/internal/scope"
	httptransport "clinicore/internal/transport/http"
	"clinicore/internal/transport/http/shared"
	id "clinicore/pkg/domain"
	dErrors "clinicore/pkg/domain-errors"
	"clinicore/pkg/requestcontext"
)

type Handler struct {
	clinical *service.Service
	recorder *audit.Recorder
	logger   *slog.Logger
	metrics  *platformmetrics.Metrics
}

func New(clinical *service.Service, recorder *audit.Recorder, logger *slog.Logger, metrics *platformmetrics.Metrics) *Handler {
	return &Handler{
		clinical: clinical,
		recorder: recorder,
		logger:   logger,
		metrics:  metrics,
	}
}

// Staff roles allowed to register patients and book appointments. Owners and
// system admins are listed explicitly; the role allow-list has no implicit
// escalation.
var frontDeskRoles = []authz.Role{
	authz.RoleReception, authz.RoleNurse, authz.RoleDoctor,
	authz.RoleOwner, authz.RoleSystemAdmin,
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/patients", h.endpoint(httptransport.Operation{
		Name:  "clinical.patient.create",
		Roles: frontDeskRoles,
		Audit: &httptransport.AuditSpec{
			Action:     audit.ActionPatientCreated,
			EntityType: scope.EntityPatients,
		},
	}, h.handleCreatePatient))

	r.Get("/patients", h.endpoint(httptransport.Operation{
		Name: "clinical.patient.list",
	}, h.handleListPatients))

	r.Get("/patients/{patientID}", h.endpoint(httptransport.Operation{
		Name: "clinical.patient.get",
		Audit: &httptransport.AuditSpec{
			Action:     "PATIENT_VIEWED",
			EntityType: scope.EntityPatients,
			PathParam:  "patientID",
		},
	}, h.handleGetPatient))

	r.Patch("/patients/{patientID}", h.endpoint(httptransport.Operation{
		Name:  "clinical.patient.update",
		Roles: frontDeskRoles,
		Audit: &httptransport.AuditSpec{
			Action:     audit.ActionPatientUpdated,
			EntityType: scope.EntityPatients,
			PathParam:  "patientID",
			Before:     h.patientSnapshot,
		},
	}, h.handleUpdatePatient))

	r.Post("/appointments", h.endpoint(httptransport.Operation{
		Name:  "clinical.appointment.create",
		Roles: frontDeskRoles,
		Audit: &httptransport.AuditSpec{
			Action:     audit.ActionAppointmentCreated,
			EntityType: scope.EntityAppointments,
			BodyField:  "patient_id",
		},
	}, h.handleCreateAppointment))

	r.Get("/appointments", h.endpoint(httptransport.Operation{
		Name: "clinical.appointment.list",
	}, h.handleListAppointments))

	r.Get("/appointments/{appointmentID}", h.endpoint(httptransport.Operation{
		Name: "clinical.appointment.get",
	}, h.handleGetAppointment))

	r.Get("/diagnosis-codes", h.endpoint(httptransport.Operation{
		Name: "clinical.diagnosis-codes.list",
	}, h.handleListDiagnosisCodes))
}

func (h *Handler) endpoint(op httptransport.Operation, next http.HandlerFunc) http.HandlerFunc {
	return httptransport.Endpoint(op, h.recorder, h.metrics, next)
}

func (h *Handler) patientSnapshot(entityID string) audit.BeforeFunc {
	return func(ctx context.Context) (map[string]any, error) {
		return h.clinical.PatientSnapshot(ctx, entityID)
	}
}

func (h *Handler) handleCreatePatient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.CreatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warn(ctx, "invalid create patient request", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	patient, err := h.clinical.CreatePatient(ctx, req)
	if err != nil {
		h.warn(ctx, "create patient failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, patient)
}

func (h *Handler) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	patientID, err := id.ParsePatientID(chi.URLParam(r, "patientID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	patient, err := h.clinical.GetPatient(r.Context(), patientID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, patient)
}

func (h *Handler) handleListPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.clinical.ListPatients(r.Context(), r.URL.Query().Get("branch_id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"patients": patients})
}

func (h *Handler) handleUpdatePatient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	patientID, err := id.ParsePatientID(chi.URLParam(r, "patientID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req models.UpdatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warn(ctx, "invalid update patient request", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	patient, err := h.clinical.UpdatePatient(ctx, patientID, req)
	if err != nil {
		h.warn(ctx, "update patient failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, patient)
}

func (h *Handler) handleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warn(ctx, "invalid create appointment request", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	appointment, err := h.clinical.CreateAppointment(ctx, req)
	if err != nil {
		h.warn(ctx, "create appointment failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, appointment)
}

func (h *Handler) handleGetAppointment(w http.ResponseWriter, r *http.Request) {
	appointmentID, err := id.ParseAppointmentID(chi.URLParam(r, "appointmentID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	appointment, err := h.clinical.GetAppointment(r.Context(), appointmentID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, appointment)
}

func (h *Handler) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	appointments, err := h.clinical.ListAppointments(r.Context(), r.URL.Query().Get("branch_id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"appointments": appointments})
}

func (h *Handler) handleListDiagnosisCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.clinical.ListDiagnosisCodes(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"diagnosis_codes": codes})
}

func (h *Handler) warn(ctx context.Context, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}
