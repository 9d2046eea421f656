package audit

import (
	"context"
	"log/slog"

	auditmetrics "clinicore/internal/audit/metrics"
)

// Pipeline buffers events between recorders and the background worker so
// audit persistence never blocks a request path. A full buffer drops the
// event (counted) rather than stalling the caller; audit is best-effort
// relative to the primary operation.
type Pipeline struct {
	inbox   chan Event
	metrics *auditmetrics.Metrics
}

func NewPipeline(size int, metrics *auditmetrics.Metrics) *Pipeline {
	if size <= 0 {
		size = 1024
	}
	return &Pipeline{inbox: make(chan Event, size), metrics: metrics}
}

// Append enqueues the event without blocking.
func (p *Pipeline) Append(_ context.Context, event Event) error {
	select {
	case p.inbox <- event:
	default:
		if p.metrics != nil {
			p.metrics.EventsDropped.Inc()
		}
	}
	return nil
}

// Inbox exposes the drain side for the worker.
func (p *Pipeline) Inbox() <-chan Event { return p.inbox }

var _ Appender = (*Pipeline)(nil)

// Sink receives a copy of every persisted event, e.g. a Kafka topic consumed
// by downstream reporting. Sink failures are logged, never retried here.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Worker drains the pipeline into the store and fans out to optional sinks.
type Worker struct {
	store  Store
	inbox  <-chan Event
	sinks  []Sink
	logger *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger, sinks ...Sink) *Worker {
	return &Worker{store: store, inbox: inbox, sinks: sinks, logger: logger}
}

// Run processes events until ctx is cancelled. Store failures are logged and
// the worker keeps going; a broken audit path must not take the service down.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "audit worker append failed",
					"action", event.Action,
					"error", err,
				)
			}
			for _, sink := range w.sinks {
				if err := sink.Publish(ctx, event); err != nil {
					w.logger.WarnContext(ctx, "audit sink publish failed",
						"action", event.Action,
						"error", err,
					)
				}
			}
		}
	}
}
