//go:build integration

package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"clinicore/internal/audit"
	id "clinicore/pkg/domain"
	"clinicore/pkg/testutil/containers"
)

type PostgresAuditSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *audit.PostgresStore
}

func TestPostgresAuditSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresAuditSuite))
}

func (s *PostgresAuditSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = audit.NewPostgres(s.postgres.DB)
}

func (s *PostgresAuditSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_events"))
}

func (s *PostgresAuditSuite) newEvent(tenantID id.TenantID, actorID id.UserID, action string) audit.Event {
	return audit.Event{
		ID:            uuid.NewString(),
		TenantID:      tenantID,
		ActorID:       actorID,
		ActorRole:     "DOCTOR",
		EntityType:    "patients",
		EntityID:      "p-1",
		Action:        action,
		Status:        audit.StatusSucceeded,
		Before:        map[string]any{"phone": "0791111111"},
		After:         map[string]any{"phone": "0792222222"},
		CorrelationID: uuid.NewString(),
		Timestamp:     time.Now().UTC().Truncate(time.Microsecond),
		SourceIP:      "10.0.0.7",
		UserAgent:     "Safari 17 (iPhone)",
	}
}

func (s *PostgresAuditSuite) TestAppendAndListByEntity() {
	ctx := context.Background()
	tenantID, actorID := id.NewTenantID(), id.NewUserID()
	event := s.newEvent(tenantID, actorID, audit.ActionPatientUpdated)

	s.Require().NoError(s.store.Append(ctx, event))

	events, err := s.store.ListByEntity(ctx, tenantID, "patients", "p-1")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	got := events[0]
	s.Equal(event.Action, got.Action)
	s.Equal(event.Before, got.Before)
	s.Equal(event.After, got.After)
	s.Equal(event.SourceIP, got.SourceIP)
	s.Equal(event.UserAgent, got.UserAgent)
	s.True(event.Timestamp.Equal(got.Timestamp))
}

func (s *PostgresAuditSuite) TestQueriesAreTenantScoped() {
	ctx := context.Background()
	t1, t2 := id.NewTenantID(), id.NewTenantID()
	actorID := id.NewUserID()

	event := s.newEvent(t1, actorID, audit.ActionPatientCreated)
	s.Require().NoError(s.store.Append(ctx, event))

	events, err := s.store.ListByEntity(ctx, t2, "patients", "p-1")
	s.Require().NoError(err)
	s.Empty(events)

	events, err = s.store.ListByActor(ctx, t2, actorID)
	s.Require().NoError(err)
	s.Empty(events)

	events, err = s.store.ListByCorrelation(ctx, t2, event.CorrelationID)
	s.Require().NoError(err)
	s.Empty(events)
}

func (s *PostgresAuditSuite) TestListByCorrelationOrdersByTime() {
	ctx := context.Background()
	tenantID, actorID := id.NewTenantID(), id.NewUserID()
	correlationID := uuid.NewString()

	first := s.newEvent(tenantID, actorID, "OUTER")
	first.CorrelationID = correlationID
	second := s.newEvent(tenantID, actorID, "INNER")
	second.CorrelationID = correlationID
	second.Timestamp = first.Timestamp.Add(time.Second)

	s.Require().NoError(s.store.Append(ctx, second))
	s.Require().NoError(s.store.Append(ctx, first))

	events, err := s.store.ListByCorrelation(ctx, tenantID, correlationID)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal("OUTER", events[0].Action)
	s.Equal("INNER", events[1].Action)
}
