package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"clinicore/internal/audit"
	"clinicore/internal/audit/mocks"
	"clinicore/internal/authz"
	id "clinicore/pkg/domain"
	"clinicore/pkg/requestcontext"
)

type appenderFunc func(ctx context.Context, event audit.Event) error

func (f appenderFunc) Append(ctx context.Context, event audit.Event) error {
	return f(ctx, event)
}

type RecorderSuite struct {
	suite.Suite

	store    *audit.InMemoryStore
	recorder *audit.Recorder
	tenantID id.TenantID
	userID   id.UserID
	ctx      context.Context
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) SetupTest() {
	s.store = audit.NewInMemoryStore()
	s.recorder = audit.NewRecorder(s.store)
	s.tenantID = id.NewTenantID()
	s.userID = id.NewUserID()

	ctx := requestcontext.WithTenant(context.Background(), requestcontext.TenantContext{
		TenantID: s.tenantID,
		UserID:   s.userID,
	})
	s.ctx = authz.WithIdentity(ctx, authz.Identity{
		SubjectID: s.userID,
		TenantID:  s.tenantID,
		Role:      authz.RoleDoctor,
	})
}

func (s *RecorderSuite) TestRecord_SuccessProducesExactlyOneEvent() {
	result, err := s.recorder.Record(s.ctx, audit.Operation{
		Action:     audit.ActionPatientCreated,
		EntityType: "patients",
		EntityID:   "p-1",
	}, func(ctx context.Context) (map[string]any, error) {
		return map[string]any{"file_number": "P-20260115-00001"}, nil
	})

	s.Require().NoError(err)
	s.Equal("P-20260115-00001", result["file_number"])

	events := s.store.All()
	s.Require().Len(events, 1)
	event := events[0]
	s.Equal(audit.ActionPatientCreated, event.Action)
	s.Equal(audit.StatusSucceeded, event.Status)
	s.Equal(s.tenantID, event.TenantID)
	s.Equal(s.userID, event.ActorID)
	s.Equal(string(authz.RoleDoctor), event.ActorRole)
	s.Equal("patients", event.EntityType)
	s.Equal("p-1", event.EntityID)
	s.Equal(result, event.After)
	s.NotEmpty(event.ID)
	s.NotEmpty(event.CorrelationID)
}

func (s *RecorderSuite) TestRecord_FailureSuffixesActionAndPropagatesError() {
	opErr := errors.New("duplicate national id")

	_, err := s.recorder.Record(s.ctx, audit.Operation{
		Action:     audit.ActionPatientCreated,
		EntityType: "patients",
	}, func(ctx context.Context) (map[string]any, error) {
		return nil, opErr
	})

	s.Require().ErrorIs(err, opErr)

	events := s.store.All()
	s.Require().Len(events, 1)
	event := events[0]
	s.Equal(audit.ActionPatientCreated+audit.FailedSuffix, event.Action)
	s.Equal(audit.StatusFailed, event.Status)
	s.Equal("duplicate national id", event.After["error"])
}

func (s *RecorderSuite) TestRecord_AppendFailureDoesNotAlterOutcome() {
	broken := appenderFunc(func(context.Context, audit.Event) error {
		return errors.New("audit store down")
	})
	recorder := audit.NewRecorder(broken)

	result, err := s.recorder.Record(s.ctx, audit.Operation{Action: "NOOP"}, func(ctx context.Context) (map[string]any, error) {
		return map[string]any{"ok": true}, nil
	})
	s.Require().NoError(err)
	s.Equal(true, result["ok"])

	result, err = recorder.Record(s.ctx, audit.Operation{Action: "NOOP"}, func(ctx context.Context) (map[string]any, error) {
		return map[string]any{"ok": true}, nil
	})
	s.Require().NoError(err)
	s.Equal(true, result["ok"])
}

func (s *RecorderSuite) TestRecord_AppendsDespiteCancelledRequest() {
	var appendErr error
	observing := appenderFunc(func(ctx context.Context, event audit.Event) error {
		appendErr = ctx.Err()
		return s.store.Append(ctx, event)
	})
	recorder := audit.NewRecorder(observing)

	ctx, cancel := context.WithCancel(s.ctx)
	_, err := recorder.Record(ctx, audit.Operation{Action: "SLOW_OP"}, func(ctx context.Context) (map[string]any, error) {
		cancel()
		return nil, ctx.Err()
	})

	s.Require().ErrorIs(err, context.Canceled)
	s.NoError(appendErr)
	s.Len(s.store.All(), 1)
}

func (s *RecorderSuite) TestRecord_CascadingOperationsShareCorrelationID() {
	_, err := s.recorder.Record(s.ctx, audit.Operation{Action: "OUTER"}, func(ctx context.Context) (map[string]any, error) {
		return s.recorder.Record(ctx, audit.Operation{Action: "INNER"}, func(ctx context.Context) (map[string]any, error) {
			return nil, nil
		})
	})
	s.Require().NoError(err)

	events := s.store.All()
	s.Require().Len(events, 2)
	s.Equal(events[0].CorrelationID, events[1].CorrelationID)

	byCorrelation, err := s.store.ListByCorrelation(s.ctx, s.tenantID, events[0].CorrelationID)
	s.Require().NoError(err)
	s.Len(byCorrelation, 2)
}

func (s *RecorderSuite) TestRecord_BeforeStateIsPreCaptured() {
	prior := map[string]any{"phone": "0791111111"}

	_, err := s.recorder.Record(s.ctx, audit.Operation{
		Action:     audit.ActionPatientUpdated,
		EntityType: "patients",
		EntityID:   "p-1",
		Before: func(ctx context.Context) (map[string]any, error) {
			return prior, nil
		},
	}, func(ctx context.Context) (map[string]any, error) {
		return map[string]any{"phone": "0792222222"}, nil
	})
	s.Require().NoError(err)

	events := s.store.All()
	s.Require().Len(events, 1)
	s.Equal(prior, events[0].Before)
	s.Equal("0792222222", events[0].After["phone"])
}

func (s *RecorderSuite) TestRecord_BeforeCaptureFailureIsNonFatal() {
	result, err := s.recorder.Record(s.ctx, audit.Operation{
		Action: audit.ActionPatientUpdated,
		Before: func(ctx context.Context) (map[string]any, error) {
			return nil, errors.New("entity read failed")
		},
	}, func(ctx context.Context) (map[string]any, error) {
		return map[string]any{"ok": true}, nil
	})

	s.Require().NoError(err)
	s.Equal(true, result["ok"])

	events := s.store.All()
	s.Require().Len(events, 1)
	s.Nil(events[0].Before)
	s.Equal(audit.StatusSucceeded, events[0].Status)
}

func (s *RecorderSuite) TestRecord_UnresolvedEntityIDRecordedAsUnknown() {
	_, err := s.recorder.Record(s.ctx, audit.Operation{
		Action:     audit.ActionAppointmentCreated,
		EntityType: "appointments",
	}, func(ctx context.Context) (map[string]any, error) {
		return nil, nil
	})
	s.Require().NoError(err)

	events := s.store.All()
	s.Require().Len(events, 1)
	s.Equal(audit.UnknownEntityID, events[0].EntityID)
}

// TestRecord_CapturesClientMetadata verifies the event carries the client ip
// and normalized user agent from the request context, attributing the action
// to a device as well as an actor.
func (s *RecorderSuite) TestRecord_CapturesClientMetadata() {
	ctx := requestcontext.WithClientMetadata(s.ctx, "203.0.113.7", "Chrome 120 (Linux)")

	_, err := s.recorder.Record(ctx, audit.Operation{Action: "NOOP"}, func(ctx context.Context) (map[string]any, error) {
		return nil, nil
	})
	s.Require().NoError(err)

	events := s.store.All()
	s.Require().Len(events, 1)
	s.Equal("203.0.113.7", events[0].SourceIP)
	s.Equal("Chrome 120 (Linux)", events[0].UserAgent)
}

func (s *RecorderSuite) TestRecord_TimestampFromRequestClock() {
	at := time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(s.ctx, at)

	_, err := s.recorder.Record(ctx, audit.Operation{Action: "NOOP"}, func(ctx context.Context) (map[string]any, error) {
		return nil, nil
	})
	s.Require().NoError(err)

	events := s.store.All()
	s.Require().Len(events, 1)
	s.Equal(at, events[0].Timestamp)
}

func TestRecorder_StoreReceivesSingleAppend(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().
		Append(gomock.Any(), gomock.Cond(func(e audit.Event) bool {
			return e.Action == "INVOICE_ISSUED" && e.Status == audit.StatusSucceeded
		})).
		Return(nil).
		Times(1)

	recorder := audit.NewRecorder(store)
	_, err := recorder.Record(context.Background(), audit.Operation{Action: "INVOICE_ISSUED"}, func(ctx context.Context) (map[string]any, error) {
		return nil, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
