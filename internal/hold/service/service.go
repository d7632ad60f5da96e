// Package service manages legal holds: issuing notices, tracking custodian
// acknowledgements, attaching evidence and releasing the hold.
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
	evidence "evidex/internal/evidence/models"
	"evidex/internal/hold/models"
	"evidex/internal/platform/metrics"
	"evidex/internal/sequence"
	"evidex/internal/storage"
	id "evidex/pkg/domain"
	dErrors "evidex/pkg/domain-errors"
	"evidex/pkg/requestcontext"
)

var tracer = otel.Tracer("evidex/hold")

const maxEvidencePerCall = 500

// EvidenceHolds changes an item's hold references inside a caller's unit of
// work, appending the matching custody entry.
type EvidenceHolds interface {
	PlaceOnHoldTx(ctx context.Context, tx storage.Tx, b *ledger.Batch, item *evidence.Item, h *models.Hold, by string) (bool, error)
	ReleaseHoldTx(ctx context.Context, tx storage.Tx, b *ledger.Batch, item *evidence.Item, h *models.Hold, by string) error
}

// Service orchestrates legal holds.
type Service struct {
	runner   storage.Runner
	evidence EvidenceHolds
	ledger   *ledger.Ledger
	logger   *slog.Logger
	metrics  *metrics.Metrics
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

// New constructs a Service. l flushes the custody entries appended when
// evidence is placed on or released from a hold.
func New(runner storage.Runner, evidenceHolds EvidenceHolds, l *ledger.Ledger, opts ...Option) *Service {
	s := &Service{runner: runner, evidence: evidenceHolds, ledger: l}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueCommand is the input to Issue.
type IssueCommand struct {
	CaseID     id.CaseID
	Title      string
	Scope      string
	Custodians []models.Custodian
}

// Issue creates an Active hold with no acknowledgements.
func (s *Service) Issue(ctx context.Context, cmd IssueCommand, issuedBy string) (*models.Hold, error) {
	ctx, span := tracer.Start(ctx, "hold.Issue", trace.WithAttributes(
		attribute.String("case.id", cmd.CaseID.String()),
		attribute.Int("hold.custodians", len(cmd.Custodians)),
	))
	defer span.End()

	issuedBy = strings.TrimSpace(issuedBy)
	if issuedBy == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "issuedBy is required")
	}
	// Validate before a number is drawn.
	if _, err := models.NewHold(id.NewHoldID(), "", cmd.CaseID, cmd.Title, cmd.Scope, cmd.Custodians, issuedBy, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}

	var h *models.Hold
	err := s.runner.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		now := requestcontext.Now(ctx)
		number, err := sequence.Allocate(ctx, tx.Sequences(), sequence.KindHold, now)
		if err != nil {
			return storage.Translate(err, "hold number")
		}
		h, err = models.NewHold(id.NewHoldID(), number, cmd.CaseID, cmd.Title, cmd.Scope, cmd.Custodians, issuedBy, now)
		if err != nil {
			return err
		}
		return storage.Translate(tx.Holds().Create(ctx, h), "legal hold")
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "issue failed")
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.HoldsIssued.Inc()
	}
	s.logAudit(ctx, "legal_hold_issued",
		"hold_id", h.ID.String(),
		"hold_number", h.HoldNumber,
		"case_id", h.CaseID.String(),
		"custodians", len(h.Custodians),
		"issued_by", issuedBy,
	)
	return h, nil
}

// Get returns one hold.
func (s *Service) Get(ctx context.Context, holdID id.HoldID) (*models.Hold, error) {
	var h *models.Hold
	err := s.runner.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		h, err = tx.Holds().Get(ctx, holdID)
		return storage.Translate(err, "legal hold")
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// ListByCase returns a case's holds in issue order.
func (s *Service) ListByCase(ctx context.Context, caseID id.CaseID) ([]*models.Hold, error) {
	var holds []*models.Hold
	err := s.runner.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		holds, err = tx.Holds().ListByCase(ctx, caseID)
		return storage.Translate(err, "legal hold")
	})
	if err != nil {
		return nil, err
	}
	if holds == nil {
		holds = []*models.Hold{}
	}
	return holds, nil
}

// Acknowledge records a custodian's acknowledgement. Repeating it is a no-op
// that keeps the first time and method.
func (s *Service) Acknowledge(ctx context.Context, holdID id.HoldID, custodianEmail string, method models.AckMethod) (*models.Hold, error) {
	ctx, span := tracer.Start(ctx, "hold.Acknowledge", trace.WithAttributes(
		attribute.String("hold.id", holdID.String()),
	))
	defer span.End()

	if strings.TrimSpace(custodianEmail) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if method == "" {
		method = models.AckPortal
	}

	var (
		h       *models.Hold
		changed bool
	)
	err := s.runner.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		h, err = tx.Holds().GetForUpdate(ctx, holdID)
		if err != nil {
			return storage.Translate(err, "legal hold")
		}
		changed, err = h.Acknowledge(custodianEmail, method, requestcontext.Now(ctx))
		if err != nil || !changed {
			return err
		}
		return storage.Translate(tx.Holds().Update(ctx, h), "legal hold")
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "acknowledge failed")
		return nil, err
	}

	span.SetAttributes(attribute.Float64("hold.compliance_rate", h.ComplianceRate))
	if changed {
		if s.metrics != nil {
			s.metrics.HoldAcknowledgements.Inc()
		}
		s.logAudit(ctx, "legal_hold_acknowledged",
			"hold_id", holdID.String(),
			"method", string(method),
			"compliance_rate", h.ComplianceRate,
		)
	}
	return h, nil
}

// Release ends the hold and drops its reference from every item it covers.
// Items still under another active hold stay held.
func (s *Service) Release(ctx context.Context, holdID id.HoldID, releasedBy, reason string) (*models.Hold, error) {
	ctx, span := tracer.Start(ctx, "hold.Release", trace.WithAttributes(
		attribute.String("hold.id", holdID.String()),
	))
	defer span.End()

	releasedBy = strings.TrimSpace(releasedBy)
	if releasedBy == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "releasedBy is required")
	}

	batch := ledger.NewBatch()
	var (
		h        *models.Hold
		released int
	)
	err := s.runner.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		h, err = tx.Holds().GetForUpdate(ctx, holdID)
		if err != nil {
			return storage.Translate(err, "legal hold")
		}
		if err := h.CanRelease(); err != nil {
			return err
		}
		h.ApplyRelease(releasedBy, reason, requestcontext.Now(ctx))
		if err := tx.Holds().Update(ctx, h); err != nil {
			return storage.Translate(err, "legal hold")
		}

		covered, err := tx.Evidence().ListByHold(ctx, holdID)
		if err != nil {
			return storage.Translate(err, "evidence")
		}
		for _, c := range covered {
			item, err := tx.Evidence().GetForUpdate(ctx, c.ID)
			if err != nil {
				return storage.Translate(err, "evidence")
			}
			if err := s.evidence.ReleaseHoldTx(ctx, tx, batch, item, h, releasedBy); err != nil {
				return err
			}
			if err := tx.Evidence().Update(ctx, item); err != nil {
				return storage.Translate(err, "evidence")
			}
			released++
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "release failed")
		return nil, err
	}
	s.ledger.Flush(ctx, batch)

	if s.metrics != nil {
		s.metrics.HoldsReleased.Inc()
	}
	s.logAudit(ctx, "legal_hold_released",
		"hold_id", holdID.String(),
		"hold_number", h.HoldNumber,
		"evidence_released", released,
		"released_by", releasedBy,
	)
	return h, nil
}

// AddEvidenceResult reports which items a bulk placement changed.
type AddEvidenceResult struct {
	Hold        *models.Hold     `json:"hold"`
	Added       int              `json:"added"`
	AlreadyHeld int              `json:"alreadyHeld"`
	Items       []*evidence.Item `json:"items"`
}

// AddEvidence places every listed item on the hold in one unit of work; any
// failure leaves all items untouched.
func (s *Service) AddEvidence(ctx context.Context, holdID id.HoldID, evidenceIDs []id.EvidenceID, by string) (*AddEvidenceResult, error) {
	ctx, span := tracer.Start(ctx, "hold.AddEvidence", trace.WithAttributes(
		attribute.String("hold.id", holdID.String()),
		attribute.Int("hold.evidence", len(evidenceIDs)),
	))
	defer span.End()

	evidenceIDs = distinct(evidenceIDs)
	if len(evidenceIDs) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "evidenceIds must not be empty")
	}
	if len(evidenceIDs) > maxEvidencePerCall {
		return nil, dErrors.Newf(dErrors.CodeValidation, "at most %d evidence items per call", maxEvidencePerCall)
	}

	batch := ledger.NewBatch()
	res := &AddEvidenceResult{Items: make([]*evidence.Item, 0, len(evidenceIDs))}
	err := s.runner.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		h, err := tx.Holds().GetForUpdate(ctx, holdID)
		if err != nil {
			return storage.Translate(err, "legal hold")
		}
		res.Hold = h
		for _, evidenceID := range evidenceIDs {
			item, err := tx.Evidence().GetForUpdate(ctx, evidenceID)
			if err != nil {
				return storage.Translate(err, "evidence")
			}
			changed, err := s.evidence.PlaceOnHoldTx(ctx, tx, batch, item, h, by)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeOf(err), "evidence "+item.EvidenceNumber+": "+dErrors.MessageOf(err))
			}
			if !changed {
				res.AlreadyHeld++
				res.Items = append(res.Items, item)
				continue
			}
			if err := tx.Evidence().Update(ctx, item); err != nil {
				return storage.Translate(err, "evidence")
			}
			res.Added++
			res.Items = append(res.Items, item)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "add evidence failed")
		return nil, err
	}
	s.ledger.Flush(ctx, batch)

	s.logAudit(ctx, "legal_hold_evidence_added",
		"hold_id", holdID.String(),
		"added", res.Added,
		"already_held", res.AlreadyHeld,
		"performed_by", by,
	)
	return res, nil
}

func distinct(ids []id.EvidenceID) []id.EvidenceID {
	seen := make(map[id.EvidenceID]struct{}, len(ids))
	out := make([]id.EvidenceID, 0, len(ids))
	for _, evidenceID := range ids {
		if _, ok := seen[evidenceID]; ok || evidenceID.IsNil() {
			continue
		}
		seen[evidenceID] = struct{}{}
		out = append(out, evidenceID)
	}
	return out
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
