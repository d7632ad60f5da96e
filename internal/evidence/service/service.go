// Package service implements the evidence registry: collection, preservation,
// processing, classification, hold references and disposal. Every state
// change appends its custody entry in the same unit of work.
package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"evidex/internal/contentstore"
	"evidex/internal/custody/ledger"
	custody "evidex/internal/custody/models"
	evidence "evidex/internal/evidence/models"
	"evidex/internal/evidence/processing"
	"evidex/internal/platform/metrics"
	"evidex/internal/storage"
	id "evidex/pkg/domain"
	"evidex/pkg/requestcontext"
)

var tracer = otel.Tracer("evidex/evidence")

// Service is the evidence registry.
type Service struct {
	runner   storage.Runner
	ledger   *ledger.Ledger
	content  contentstore.Store
	pipeline *processing.Pipeline
	logger   *slog.Logger
	metrics  *metrics.Metrics

	pipelineOpts []processing.Option
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPipelineOptions tunes the processing fan-out.
func WithPipelineOptions(opts ...processing.Option) Option {
	return func(s *Service) {
		s.pipelineOpts = append(s.pipelineOpts, opts...)
	}
}

// New constructs a Service. content receives uploaded bytes and performs text
// extraction.
func New(runner storage.Runner, l *ledger.Ledger, content contentstore.Store, opts ...Option) *Service {
	s := &Service{runner: runner, ledger: l, content: content}
	for _, opt := range opts {
		opt(s)
	}
	pipelineOpts := []processing.Option{
		processing.WithLogger(s.logger),
		processing.WithMetrics(s.metrics),
	}
	s.pipeline = processing.New(s, append(pipelineOpts, s.pipelineOpts...)...)
	return s
}

// mutation changes item inside a unit of work and may append ledger entries.
type mutation func(ctx context.Context, tx storage.Tx, b *ledger.Batch, item *evidence.Item) error

// mutate locks the item, applies fn, persists it and publishes the entries
// appended on the way.
func (s *Service) mutate(ctx context.Context, op string, evidenceID id.EvidenceID, fn mutation) (*evidence.Item, error) {
	ctx, span := tracer.Start(ctx, "evidence."+op, trace.WithAttributes(
		attribute.String("evidence.id", evidenceID.String()),
	))
	defer span.End()

	batch := ledger.NewBatch()
	var out *evidence.Item
	err := s.runner.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		item, err := tx.Evidence().GetForUpdate(ctx, evidenceID)
		if err != nil {
			return storage.Translate(err, "evidence")
		}
		if err := fn(ctx, tx, batch, item); err != nil {
			return err
		}
		if err := tx.Evidence().Update(ctx, item); err != nil {
			return storage.Translate(err, "evidence")
		}
		out = item
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
		return nil, err
	}
	s.ledger.Flush(ctx, batch)
	return out, nil
}

// Get returns one item.
func (s *Service) Get(ctx context.Context, evidenceID id.EvidenceID) (*evidence.Item, error) {
	var item *evidence.Item
	err := s.runner.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		item, err = tx.Evidence().Get(ctx, evidenceID)
		return storage.Translate(err, "evidence")
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListByCase returns a case's items in collection order.
func (s *Service) ListByCase(ctx context.Context, caseID id.CaseID) ([]*evidence.Item, error) {
	var items []*evidence.Item
	err := s.runner.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		items, err = tx.Evidence().ListByCase(ctx, caseID)
		return storage.Translate(err, "evidence")
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*evidence.Item{}
	}
	return items, nil
}

// Custody returns the item's ledger.
func (s *Service) Custody(ctx context.Context, evidenceID id.EvidenceID) ([]*custody.Entry, error) {
	return s.ledger.History(ctx, evidenceID)
}

// VerifyCustody checks the item's ledger hash chain.
func (s *Service) VerifyCustody(ctx context.Context, evidenceID id.EvidenceID) (custody.Verification, error) {
	return s.ledger.Verify(ctx, evidenceID)
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, event, args...)
	}
}
