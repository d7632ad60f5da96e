package audit

import (
	"context"
	"log/slog"
	"time"

	"evidex/internal/platform/metrics"
)

const defaultQueueSize = 1024

// Async queues events and hands them to a Worker, so request latency does
// not depend on the stream. Publish never blocks: a full queue drops.
type Async struct {
	queue   chan Event
	metrics *metrics.Metrics
}

func NewAsync(size int, m *metrics.Metrics) *Async {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Async{queue: make(chan Event, size), metrics: m}
}

func (a *Async) Publish(_ context.Context, events ...Event) error {
	for _, e := range events {
		select {
		case a.queue <- e:
		default:
			if a.metrics != nil {
				a.metrics.CustodyDropped.Inc()
			}
		}
	}
	return nil
}

// Inbox is the receiving side for a Worker.
func (a *Async) Inbox() <-chan Event {
	return a.queue
}

// Worker drains an inbox into a sink publisher.
type Worker struct {
	sink    Publisher
	inbox   <-chan Event
	logger  *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration
}

func NewWorker(sink Publisher, inbox <-chan Event, logger *slog.Logger, m *metrics.Metrics) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger, metrics: m, timeout: 10 * time.Second}
}

// Run publishes until ctx is done. Failures are logged and counted; the
// worker keeps going.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			w.publish(ctx, event)
		}
	}
}

func (w *Worker) publish(ctx context.Context, event Event) {
	pubCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	if err := w.sink.Publish(pubCtx, event); err != nil {
		if w.metrics != nil {
			w.metrics.CustodyPublishFailure.Inc()
		}
		if w.logger != nil {
			w.logger.WarnContext(ctx, "failed to publish custody event",
				"evidence_id", event.Entry.EvidenceID.String(),
				"sequence", event.Entry.Sequence,
				"error", err,
			)
		}
	}
}
