//go:build integration

package scope_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"clinicore/internal/scope"
	id "clinicore/pkg/domain"
	"clinicore/pkg/platform/sentinel"
	"clinicore/pkg/testutil"
	"clinicore/pkg/testutil/containers"
)

type PostgresScopeSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *scope.Scoped

	tenant1 id.TenantID
	tenant2 id.TenantID
	ctx1    context.Context
	ctx2    context.Context
}

func TestPostgresScopeSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresScopeSuite))
}

func (s *PostgresScopeSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = scope.NewScoped(scope.NewPostgres(s.postgres.DB))
}

func (s *PostgresScopeSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(),
		"patients", "appointments", "diagnosis_codes"))
	s.tenant1 = id.NewTenantID()
	s.tenant2 = id.NewTenantID()
	s.ctx1 = testutil.TenantContext(context.Background(), s.tenant1)
	s.ctx2 = testutil.TenantContext(context.Background(), s.tenant2)
}

func (s *PostgresScopeSuite) TestTenantIsolation() {
	created, err := s.store.Create(s.ctx1, scope.EntityPatients, scope.Record{
		"first_name": "Lina", "last_name": "Haddad", "file_number": "P-20260115-00001",
	})
	s.Require().NoError(err)
	rawID := created[scope.FieldID].(string)

	// Visible in tenant 1.
	got, err := s.store.FindOne(s.ctx1, scope.EntityPatients, scope.Filter{scope.FieldID: rawID})
	s.Require().NoError(err)
	s.Equal("Lina", got["first_name"])

	// Invisible to tenant 2, even by raw id.
	_, err = s.store.FindOne(s.ctx2, scope.EntityPatients, scope.Filter{scope.FieldID: rawID})
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	n, err := s.store.Update(s.ctx2, scope.EntityPatients, scope.Filter{scope.FieldID: rawID}, scope.Record{"phone": "0790000000"})
	s.Require().NoError(err)
	s.Zero(n)

	n, err = s.store.Delete(s.ctx2, scope.EntityPatients, scope.Filter{scope.FieldID: rawID})
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *PostgresScopeSuite) TestCreateForcesTenantOverPayload() {
	created, err := s.store.Create(s.ctx1, scope.EntityPatients, scope.Record{
		scope.FieldTenantID: s.tenant2.String(),
		"first_name":        "Omar", "last_name": "Nasser", "file_number": "P-20260115-00002",
	})
	s.Require().NoError(err)
	s.Equal(s.tenant1.String(), created[scope.FieldTenantID])

	rawID := created[scope.FieldID].(string)
	_, err = s.store.FindOne(s.ctx2, scope.EntityPatients, scope.Filter{scope.FieldID: rawID})
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresScopeSuite) TestUniqueFileNumberPerTenant() {
	record := scope.Record{
		"first_name": "A", "last_name": "B", "file_number": "P-20260115-00003",
	}
	_, err := s.store.Create(s.ctx1, scope.EntityPatients, record)
	s.Require().NoError(err)

	_, err = s.store.Create(s.ctx1, scope.EntityPatients, record)
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	// Same file number in another tenant is fine.
	_, err = s.store.Create(s.ctx2, scope.EntityPatients, record)
	s.Require().NoError(err)
}

func (s *PostgresScopeSuite) TestDocumentFieldFilter() {
	_, err := s.store.Create(s.ctx1, scope.EntityPatients, scope.Record{
		"first_name": "Maya", "last_name": "Saleh", "file_number": "P-20260115-00004",
	})
	s.Require().NoError(err)

	records, err := s.store.FindMany(s.ctx1, scope.EntityPatients, scope.Filter{"last_name": "Saleh"})
	s.Require().NoError(err)
	s.Len(records, 1)

	records, err = s.store.FindMany(s.ctx1, scope.EntityPatients, scope.Filter{"last_name": "Nobody"})
	s.Require().NoError(err)
	s.Empty(records)
}

func (s *PostgresScopeSuite) TestGlobalEntityPassThrough() {
	_, err := s.store.Create(s.ctx1, scope.EntityDiagnosisCodes, scope.Record{
		scope.FieldID: uuid.NewString(),
		"code":        "J06.9", "description": "acute upper respiratory infection",
	})
	s.Require().NoError(err)

	// Reference data is shared: visible from any tenant context.
	records, err := s.store.FindMany(s.ctx2, scope.EntityDiagnosisCodes, scope.Filter{"code": "J06.9"})
	s.Require().NoError(err)
	s.Len(records, 1)
}
