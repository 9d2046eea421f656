package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"clinicore/internal/authz"
	auditmetrics "clinicore/internal/audit/metrics"
	"clinicore/pkg/requestcontext"
)

// Appender is the write side of audit persistence. Satisfied by Store directly
// (synchronous writes) or by Pipeline (buffered asynchronous writes).
type Appender interface {
	Append(ctx context.Context, event Event) error
}

// BeforeFunc captures the target entity's state prior to mutation. It runs a
// genuine pre-read through the scoped store - the raw request payload is the
// caller's intended change, not the entity's actual prior state, and is not an
// acceptable substitute.
type BeforeFunc func(ctx context.Context) (map[string]any, error)

// Operation declares what an audited invocation is about. The transport layer
// builds it from route declarations; services may also record directly.
type Operation struct {
	Action     string
	EntityType string
	EntityID   string
	BranchID   string
	Before     BeforeFunc
}

// Recorder wraps audited operations. Exactly one event is recorded per
// invocation whether the operation succeeds or fails; persistence is
// best-effort and never changes the operation's outcome.
type Recorder struct {
	appender Appender
	logger   *slog.Logger
	metrics  *auditmetrics.Metrics
}

// Option configures the Recorder.
type Option func(*Recorder)

// WithLogger sets the logger used when audit persistence fails.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *auditmetrics.Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

func NewRecorder(appender Appender, opts ...Option) *Recorder {
	r := &Recorder{appender: appender, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type correlationKey struct{}

// WithCorrelationID injects a correlation id so cascading audited operations
// within one logical operation share a trail.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationKey{}, correlationID)
}

// CorrelationID returns the active correlation id, or "" if none.
func CorrelationID(ctx context.Context) string {
	if cid, ok := ctx.Value(correlationKey{}).(string); ok {
		return cid
	}
	return ""
}

// Record executes fn as an audited operation. The returned map is the
// operation's result summary, stored as the event's after-state on success;
// on failure the event carries the error description and the action gains the
// failed suffix, while fn's error is propagated to the caller unchanged.
func (r *Recorder) Record(ctx context.Context, op Operation, fn func(ctx context.Context) (map[string]any, error)) (map[string]any, error) {
	correlationID := CorrelationID(ctx)
	if correlationID == "" {
		correlationID = uuid.NewString()
		ctx = WithCorrelationID(ctx, correlationID)
	}

	event := Event{
		ID:            uuid.NewString(),
		TenantID:      requestcontext.TenantID(ctx),
		BranchID:      op.BranchID,
		EntityType:    op.EntityType,
		EntityID:      op.EntityID,
		Action:        op.Action,
		CorrelationID: correlationID,
		Timestamp:     requestcontext.Now(ctx),
		SourceIP:      requestcontext.ClientIP(ctx),
		UserAgent:     requestcontext.UserAgent(ctx),
	}
	if event.EntityID == "" {
		event.EntityID = UnknownEntityID
	}
	if identity, ok := authz.FromContext(ctx); ok {
		event.ActorID = identity.SubjectID
		event.ActorRole = string(identity.Role)
	}

	// Pre-capture happens-before the operation.
	if op.Before != nil {
		before, err := op.Before(ctx)
		if err != nil {
			r.logf(ctx, "audit before-state capture failed", op.Action, err)
		} else {
			event.Before = before
		}
	}

	result, opErr := fn(ctx)
	if opErr != nil {
		event.Action += FailedSuffix
		event.Status = StatusFailed
		event.After = map[string]any{"error": opErr.Error()}
	} else {
		event.Status = StatusSucceeded
		event.After = result
	}

	r.append(ctx, event)
	return result, opErr
}

// append persists the event best-effort. The write is attempted even when the
// request was cancelled mid-flight, so a trail entry can still materialize for
// an operation whose response was never delivered.
func (r *Recorder) append(ctx context.Context, event Event) {
	ctx = context.WithoutCancel(ctx)
	if err := r.appender.Append(ctx, event); err != nil {
		r.metricAppendFailed()
		r.logf(ctx, "audit append failed", event.Action, err)
		return
	}
	r.metricAppended()
}

func (r *Recorder) logf(ctx context.Context, msg, action string, err error) {
	r.logger.ErrorContext(ctx, msg,
		"action", action,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}

func (r *Recorder) metricAppended() {
	if r.metrics != nil {
		r.metrics.EventsRecorded.Inc()
	}
}

func (r *Recorder) metricAppendFailed() {
	if r.metrics != nil {
		r.metrics.AppendFailures.Inc()
	}
}
