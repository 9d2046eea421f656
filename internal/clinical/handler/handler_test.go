package handler_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"clinicore/internal/audit"
	"clinicore/internal/authz"
	"clinicore/internal/clinical/handler"
	"clinicore/internal/clinical/models"
	"clinicore/internal/clinical/service"
	"clinicore/internal/scope"
	"clinicore/internal/sequence"
	id "clinicore/pkg/domain"
	"clinicore/pkg/requestcontext"
	"clinicore/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite

	router     chi.Router
	auditStore *audit.InMemoryStore
	store      *scope.InMemoryStore

	tenantID id.TenantID
	branchID id.BranchID
	role     authz.Role
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.auditStore = audit.NewInMemoryStore()
	s.store = scope.NewInMemoryStore()
	s.tenantID = id.NewTenantID()
	s.branchID = id.NewBranchID()
	s.role = authz.RoleReception

	clinical := service.New(scope.NewScoped(s.store), sequence.NewGenerator(sequence.NewInMemoryStore()))
	recorder := audit.NewRecorder(s.auditStore)
	h := handler.New(clinical, recorder, slog.Default(), nil)

	s.router = chi.NewRouter()
	// Stand-in for the auth middleware: installs the suite's identity.
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := testutil.AuthedContext(r.Context(), s.tenantID, id.NewUserID(), s.role, s.branchID)
			ctx = requestcontext.WithTime(ctx, time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	h.Register(s.router)
}

func (s *HandlerSuite) TestCreatePatient() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/patients", models.CreatePatientRequest{
		BranchID:  s.branchID.String(),
		FirstName: "Lina",
		LastName:  "Haddad",
	})
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Require().Equal(http.StatusCreated, rec.Code)

	var patient models.Patient
	testutil.DecodeJSON(s.T(), rec, &patient)
	s.Equal("P-20260115-00001", patient.FileNumber)
	s.Equal(s.tenantID, patient.TenantID)

	events := s.auditStore.All()
	s.Require().Len(events, 1)
	s.Equal(audit.ActionPatientCreated, events[0].Action)
	s.Equal(audit.StatusSucceeded, events[0].Status)
}

func (s *HandlerSuite) TestCreatePatient_AccountantForbidden() {
	s.role = authz.RoleAccountant

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/patients", models.CreatePatientRequest{
		BranchID:  s.branchID.String(),
		FirstName: "Lina",
		LastName:  "Haddad",
	})
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusForbidden, rec.Code)

	// Rejected before the operation: no row, no audit event.
	records, err := s.store.FindMany(req.Context(), scope.EntityPatients, scope.Filter{})
	s.Require().NoError(err)
	s.Empty(records)
	s.Empty(s.auditStore.All())
}

func (s *HandlerSuite) TestUpdatePatient_AuditsBeforeState() {
	create := testutil.NewJSONRequest(s.T(), http.MethodPost, "/patients", models.CreatePatientRequest{
		BranchID:  s.branchID.String(),
		FirstName: "Lina",
		LastName:  "Haddad",
		Phone:     "0791111111",
	})
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, create)
	s.Require().Equal(http.StatusCreated, rec.Code)

	var patient models.Patient
	testutil.DecodeJSON(s.T(), rec, &patient)

	update := testutil.NewJSONRequest(s.T(), http.MethodPatch, "/patients/"+patient.ID.String(), map[string]string{
		"phone": "0792222222",
	})
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, update)
	s.Require().Equal(http.StatusOK, rec.Code)

	events, err := s.auditStore.ListByEntity(update.Context(), s.tenantID, scope.EntityPatients, patient.ID.String())
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.ActionPatientUpdated, events[0].Action)
	s.Equal("0791111111", events[0].Before["phone"])
}

func (s *HandlerSuite) TestGetPatient_UnknownIsNotFound() {
	req := httptest.NewRequest(http.MethodGet, "/patients/"+id.NewPatientID().String(), nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestGetAppointment_ForeignBranchForbidden() {
	// Seed as owner in another branch.
	s.role = authz.RoleOwner
	otherBranch := id.NewBranchID()

	create := testutil.NewJSONRequest(s.T(), http.MethodPost, "/patients", models.CreatePatientRequest{
		BranchID: otherBranch.String(), FirstName: "Maya", LastName: "Saleh",
	})
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, create)
	s.Require().Equal(http.StatusCreated, rec.Code)
	var patient models.Patient
	testutil.DecodeJSON(s.T(), rec, &patient)

	book := testutil.NewJSONRequest(s.T(), http.MethodPost, "/appointments", models.CreateAppointmentRequest{
		BranchID:  otherBranch.String(),
		PatientID: patient.ID.String(),
		DoctorID:  id.NewUserID().String(),
		StartsAt:  time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		EndsAt:    time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
	})
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, book)
	s.Require().Equal(http.StatusCreated, rec.Code)
	var appointment models.Appointment
	testutil.DecodeJSON(s.T(), rec, &appointment)

	// Reception in the suite's branch cannot read it.
	s.role = authz.RoleReception
	get := httptest.NewRequest(http.MethodGet, "/appointments/"+appointment.ID.String(), nil)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, get)
	s.Equal(http.StatusForbidden, rec.Code)
}
