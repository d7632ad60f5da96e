// Package service allocates Bates numbers and drives productions through
// their lifecycle.
//
// Numbers of one (case, prefix) series are allocated under two locks: the
// allocation Locker (in-process or Redis) keeps instances from racing, and
// the store's series lock keeps the unit of work itself serialized. Every
// number issued is strictly greater than any number issued before it in the
// same series.
package service

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"evidex/internal/custody/ledger"
	"evidex/internal/platform/metrics"
	"evidex/internal/production/lock"
	"evidex/internal/production/models"
	"evidex/internal/sequence"
	"evidex/internal/storage"
	id "evidex/pkg/domain"
	dErrors "evidex/pkg/domain-errors"
	"evidex/pkg/requestcontext"
)

var tracer = otel.Tracer("evidex/production")

// Service is the production allocator.
type Service struct {
	runner          storage.Runner
	ledger          *ledger.Ledger
	locker          lock.Locker
	defaultPadWidth int
	logger          *slog.Logger
	metrics         *metrics.Metrics
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

// WithLocker replaces the in-process allocation lock, e.g. with a Redis lease
// shared by every instance.
func WithLocker(l lock.Locker) Option {
	return func(s *Service) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithDefaultPadWidth sets the zero-padding used when Create is not given one.
func WithDefaultPadWidth(n int) Option {
	return func(s *Service) {
		if n > 0 && n <= models.MaxPadWidth {
			s.defaultPadWidth = n
		}
	}
}

func New(runner storage.Runner, l *ledger.Ledger, opts ...Option) *Service {
	s := &Service{
		runner:          runner,
		ledger:          l,
		locker:          lock.NewLocal(),
		defaultPadWidth: models.DefaultPadWidth,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// withSeries runs fn under the allocation lock and inside one unit of work
// holding the store's series lock.
func (s *Service) withSeries(ctx context.Context, caseID id.CaseID, prefix string, fn func(ctx context.Context, tx storage.Tx) error) error {
	release, err := s.locker.Acquire(ctx, lock.SeriesKey(caseID, prefix))
	if err != nil {
		return storage.Translate(err, "bates series")
	}
	defer release()

	return s.runner.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Productions().LockSeries(ctx, caseID, prefix); err != nil {
			return storage.Translate(err, "bates series")
		}
		return fn(ctx, tx)
	})
}

// NextNumber is a preview of the next Bates number of a series.
type NextNumber struct {
	CaseID      id.CaseID `json:"caseId"`
	Prefix      string    `json:"prefix"`
	LastIssued  int64     `json:"lastIssued"`
	Next        int64     `json:"next"`
	BatesNumber string    `json:"batesNumber"`
}

// NextBatesNumber returns lastIssued+1 for the series; a fresh series starts at 1.
func (s *Service) NextBatesNumber(ctx context.Context, caseID id.CaseID, prefix string) (*NextNumber, error) {
	prefix, err := models.NormalizePrefix(prefix)
	if err != nil {
		return nil, err
	}
	if caseID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "caseId is required")
	}
	var last int64
	err = s.withSeries(ctx, caseID, prefix, func(ctx context.Context, tx storage.Tx) error {
		var err error
		last, err = tx.Productions().LastIssued(ctx, caseID, prefix)
		return storage.Translate(err, "bates series")
	})
	if err != nil {
		return nil, err
	}
	return &NextNumber{
		CaseID:      caseID,
		Prefix:      prefix,
		LastIssued:  last,
		Next:        last + 1,
		BatesNumber: models.FormatBates(prefix, last+1, s.defaultPadWidth),
	}, nil
}

// CreateCommand is the input to Create. Nil StartNumber and PadWidth take
// the next number of the series and the configured default.
type CreateCommand struct {
	CaseID      id.CaseID
	Name        string
	Recipient   string
	BatesPrefix string
	StartNumber *int64
	PadWidth    *int
}

// Create opens a Draft production. An explicit start below the next number of
// the series would overlap issued numbers and is rejected; gaps above it are
// allowed.
func (s *Service) Create(ctx context.Context, cmd CreateCommand, createdBy string) (*models.Production, error) {
	ctx, span := tracer.Start(ctx, "production.Create", trace.WithAttributes(
		attribute.String("case.id", cmd.CaseID.String()),
		attribute.String("bates.prefix", cmd.BatesPrefix),
	))
	defer span.End()

	prefix, err := models.NormalizePrefix(cmd.BatesPrefix)
	if err != nil {
		return nil, err
	}
	createdBy = strings.TrimSpace(createdBy)
	if createdBy == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "createdBy is required")
	}
	padWidth := s.defaultPadWidth
	if cmd.PadWidth != nil {
		padWidth = *cmd.PadWidth
	}
	if cmd.StartNumber != nil && *cmd.StartNumber < 1 {
		return nil, dErrors.New(dErrors.CodeValidation, "batesStartNumber must be at least 1")
	}
	// Shape checks before any lock is taken or number drawn.
	if _, err := models.NewProduction(id.NewProductionID(), "", cmd.CaseID, cmd.Name, cmd.Recipient, prefix, 1, padWidth, createdBy, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}

	var p *models.Production
	err = s.withSeries(ctx, cmd.CaseID, prefix, func(ctx context.Context, tx storage.Tx) error {
		last, err := tx.Productions().LastIssued(ctx, cmd.CaseID, prefix)
		if err != nil {
			return storage.Translate(err, "bates series")
		}
		start := last + 1
		if cmd.StartNumber != nil {
			if *cmd.StartNumber <= last {
				return dErrors.Newf(dErrors.CodeConflict,
					"bates start %d overlaps numbers already issued for %s (next is %d)", *cmd.StartNumber, prefix, last+1)
			}
			start = *cmd.StartNumber
		}
		now := requestcontext.Now(ctx)
		number, err := sequence.Allocate(ctx, tx.Sequences(), sequence.KindProduction, now)
		if err != nil {
			return storage.Translate(err, "production number")
		}
		p, err = models.NewProduction(id.NewProductionID(), number, cmd.CaseID, cmd.Name, cmd.Recipient, prefix, start, padWidth, createdBy, now)
		if err != nil {
			return err
		}
		return storage.Translate(tx.Productions().Create(ctx, p), "production")
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return nil, err
	}

	s.logAudit(ctx, "production_created",
		"production_id", p.ID.String(),
		"production_number", p.ProductionNumber,
		"case_id", p.CaseID.String(),
		"bates_prefix", p.BatesPrefix,
		"bates_start", p.BatesStartNumber,
		"created_by", createdBy,
	)
	return p, nil
}

// Get returns one production.
func (s *Service) Get(ctx context.Context, productionID id.ProductionID) (*models.Production, error) {
	var p *models.Production
	err := s.runner.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		p, err = tx.Productions().Get(ctx, productionID)
		return storage.Translate(err, "production")
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListByCase returns the case's productions in creation order.
func (s *Service) ListByCase(ctx context.Context, caseID id.CaseID) ([]*models.Production, error) {
	var out []*models.Production
	err := s.runner.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		out, err = tx.Productions().ListByCase(ctx, caseID)
		return storage.Translate(err, "production")
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*models.Production{}
	}
	return out, nil
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
