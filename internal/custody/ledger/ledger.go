// Package ledger appends to and reads the per-item chain-of-custody ledger.
//
// Appends happen inside the caller's unit of work so the ledger entry and the
// state change that caused it commit or roll back together. Entries are
// collected in a Batch and only counted and published after commit.
package ledger

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"evidex/internal/audit"
	custody "evidex/internal/custody/models"
	evidence "evidex/internal/evidence/models"
	"evidex/internal/platform/metrics"
	"evidex/internal/storage"
	id "evidex/pkg/domain"
	"evidex/pkg/requestcontext"
)

var tracer = otel.Tracer("evidex/custody")

// Ledger owns custody appends and reads.
type Ledger struct {
	runner    storage.Runner
	publisher audit.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// WithPublisher streams committed entries. Defaults to audit.Nop.
func WithPublisher(p audit.Publisher) Option {
	return func(l *Ledger) {
		if p != nil {
			l.publisher = p
		}
	}
}

func New(runner storage.Runner, opts ...Option) *Ledger {
	l := &Ledger{runner: runner, publisher: audit.Nop{}}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Batch collects entries appended in one unit of work.
type Batch struct {
	pending []pendingEntry
}

type pendingEntry struct {
	caseID         id.CaseID
	evidenceNumber string
	entry          *custody.Entry
}

func NewBatch() *Batch {
	return &Batch{}
}

// Len is the number of collected entries.
func (b *Batch) Len() int {
	return len(b.pending)
}

// Entries returns the collected entries in append order.
func (b *Batch) Entries() []*custody.Entry {
	out := make([]*custody.Entry, len(b.pending))
	for i, p := range b.pending {
		out[i] = p.entry
	}
	return out
}

// AppendTx seals d as the next entry of item's ledger within tx. Request
// metadata (device, client IP, clock) comes from ctx.
func (l *Ledger) AppendTx(ctx context.Context, tx storage.Tx, b *Batch, item *evidence.Item, d custody.Draft) (*custody.Entry, error) {
	last, err := tx.Custody().Last(ctx, item.ID)
	if err != nil {
		return nil, storage.Translate(err, "custody ledger")
	}
	entry, err := custody.NewEntry(item.ID, last, d,
		requestcontext.Device(ctx), requestcontext.ClientIP(ctx), requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := tx.Custody().Append(ctx, entry); err != nil {
		return nil, storage.Translate(err, "custody ledger")
	}
	if b != nil {
		b.pending = append(b.pending, pendingEntry{caseID: item.CaseID, evidenceNumber: item.EvidenceNumber, entry: entry})
	}
	return entry, nil
}

// Flush counts and publishes a committed batch. Publishing failures are
// logged; the stored ledger is authoritative.
func (l *Ledger) Flush(ctx context.Context, b *Batch) {
	if b == nil || len(b.pending) == 0 {
		return
	}
	events := make([]audit.Event, 0, len(b.pending))
	now := requestcontext.Now(ctx)
	requestID := requestcontext.RequestID(ctx)
	for _, p := range b.pending {
		if l.metrics != nil {
			l.metrics.IncCustodyEntry(string(p.entry.Action))
		}
		events = append(events, audit.NewCustodyEvent(p.caseID, p.evidenceNumber, requestID, p.entry, now))
	}
	b.pending = nil

	if err := l.publisher.Publish(ctx, events...); err != nil {
		if l.metrics != nil {
			l.metrics.CustodyPublishFailure.Add(float64(len(events)))
		}
		if l.logger != nil {
			l.logger.WarnContext(ctx, "custody events not published",
				"count", len(events),
				"request_id", requestID,
				"error", err,
			)
		}
	}
}

// Append records a standalone custody event for an existing item.
func (l *Ledger) Append(ctx context.Context, evidenceID id.EvidenceID, d custody.Draft) (*custody.Entry, error) {
	ctx, span := tracer.Start(ctx, "custody.Append", trace.WithAttributes(
		attribute.String("evidence.id", evidenceID.String()),
		attribute.String("custody.action", string(d.Action)),
	))
	defer span.End()

	if err := d.Validate(); err != nil {
		return nil, err
	}
	batch := NewBatch()
	var entry *custody.Entry
	err := l.runner.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		item, err := tx.Evidence().GetForUpdate(ctx, evidenceID)
		if err != nil {
			return storage.Translate(err, "evidence")
		}
		entry, err = l.AppendTx(ctx, tx, batch, item, d)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		return nil, err
	}
	l.Flush(ctx, batch)
	return entry, nil
}

// History returns the full ledger of an item in sequence order.
func (l *Ledger) History(ctx context.Context, evidenceID id.EvidenceID) ([]*custody.Entry, error) {
	var entries []*custody.Entry
	err := l.runner.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := tx.Evidence().Get(ctx, evidenceID); err != nil {
			return storage.Translate(err, "evidence")
		}
		var err error
		entries, err = tx.Custody().List(ctx, evidenceID)
		return storage.Translate(err, "custody ledger")
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Verify walks the hash chain and reports the first broken link.
func (l *Ledger) Verify(ctx context.Context, evidenceID id.EvidenceID) (custody.Verification, error) {
	ctx, span := tracer.Start(ctx, "custody.Verify", trace.WithAttributes(
		attribute.String("evidence.id", evidenceID.String()),
	))
	defer span.End()

	entries, err := l.History(ctx, evidenceID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "history unavailable")
		return custody.Verification{}, err
	}
	v := custody.VerifyChain(evidenceID, entries)
	span.SetAttributes(attribute.Bool("custody.valid", v.Valid))
	if !v.Valid && l.logger != nil {
		l.logger.ErrorContext(ctx, "custody ledger integrity failure",
			"log_type", "audit",
			"evidence_id", evidenceID.String(),
			"broken_at", v.BrokenAt,
			"reason", v.Reason,
		)
	}
	return v, nil
}
