// Package service keeps the privilege log: what is withheld from production,
// on what basis, and how waivers and clawbacks changed that over time.
package service

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"evidex/internal/platform/metrics"
	"evidex/internal/privilege/models"
	"evidex/internal/sequence"
	"evidex/internal/storage"
	id "evidex/pkg/domain"
	dErrors "evidex/pkg/domain-errors"
	"evidex/pkg/requestcontext"
)

var tracer = otel.Tracer("evidex/privilege")

// Service orchestrates the privilege log.
type Service struct {
	runner  storage.Runner
	logger  *slog.Logger
	metrics *metrics.Metrics
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

func New(runner storage.Runner, opts ...Option) *Service {
	s := &Service{runner: runner}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LogPrivilege records a privilege claim over an item of the same case.
func (s *Service) LogPrivilege(ctx context.Context, cmd models.LogCommand, loggedBy string) (*models.Entry, error) {
	ctx, span := tracer.Start(ctx, "privilege.Log", trace.WithAttributes(
		attribute.String("case.id", cmd.CaseID.String()),
		attribute.String("evidence.id", cmd.EvidenceID.String()),
	))
	defer span.End()

	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	loggedBy = strings.TrimSpace(loggedBy)
	if loggedBy == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "loggedBy is required")
	}

	var entry *models.Entry
	err := s.runner.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		item, err := tx.Evidence().Get(ctx, cmd.EvidenceID)
		if err != nil {
			return storage.Translate(err, "evidence")
		}
		if item.CaseID != cmd.CaseID {
			return dErrors.New(dErrors.CodeValidation, "evidence belongs to a different case")
		}
		now := requestcontext.Now(ctx)
		number, err := sequence.Allocate(ctx, tx.Sequences(), sequence.KindPrivilege, now)
		if err != nil {
			return storage.Translate(err, "privilege entry number")
		}
		entry = models.NewEntry(id.NewPrivilegeEntryID(), number, cmd, item.EvidenceNumber, loggedBy, now)
		return storage.Translate(tx.Privilege().Create(ctx, entry), "privilege entry")
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "log failed")
		return nil, err
	}

	s.logAudit(ctx, "privilege_logged",
		"entry_id", entry.ID.String(),
		"entry_number", entry.EntryNumber,
		"evidence_id", entry.EvidenceID.String(),
		"privilege_type", string(entry.PrivilegeType),
		"withheld", entry.Withheld,
		"logged_by", loggedBy,
	)
	return entry, nil
}

// Get returns one entry.
func (s *Service) Get(ctx context.Context, entryID id.PrivilegeEntryID) (*models.Entry, error) {
	var entry *models.Entry
	err := s.runner.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		entry, err = tx.Privilege().Get(ctx, entryID)
		return storage.Translate(err, "privilege entry")
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ListByCase returns the case's log in entry order.
func (s *Service) ListByCase(ctx context.Context, caseID id.CaseID) ([]*models.Entry, error) {
	var entries []*models.Entry
	err := s.runner.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		entries, err = tx.Privilege().ListByCase(ctx, caseID)
		return storage.Translate(err, "privilege entry")
	})
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*models.Entry{}
	}
	return entries, nil
}

// IsWithheld reports whether any log entry currently withholds the item.
func (s *Service) IsWithheld(ctx context.Context, evidenceID id.EvidenceID) (bool, error) {
	var withheld bool
	err := s.runner.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		withheld, err = IsWithheldTx(ctx, tx, evidenceID)
		return err
	})
	return withheld, err
}

// IsWithheldTx is IsWithheld inside the caller's unit of work.
func IsWithheldTx(ctx context.Context, tx storage.Tx, evidenceID id.EvidenceID) (bool, error) {
	entries, err := tx.Privilege().ListByEvidence(ctx, evidenceID)
	if err != nil {
		return false, storage.Translate(err, "privilege entry")
	}
	for _, e := range entries {
		if e.Withheld {
			return true, nil
		}
	}
	return false, nil
}

// Waive releases the privilege so the item may be produced. A second waiver
// fails and leaves the entry as it was.
func (s *Service) Waive(ctx context.Context, entryID id.PrivilegeEntryID, by, reason string) (*models.Entry, error) {
	entry, err := s.mutate(ctx, "Waive", entryID, by, func(ctx context.Context, _ storage.Tx, e *models.Entry) error {
		if err := e.CanWaive(); err != nil {
			return err
		}
		e.ApplyWaive(by, reason, requestcontext.Now(ctx))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "privilege_waived",
		"entry_id", entryID.String(),
		"evidence_id", entry.EvidenceID.String(),
		"waived_by", by,
	)
	return entry, nil
}

// RequestClawback asks for a produced privileged document back.
func (s *Service) RequestClawback(ctx context.Context, entryID id.PrivilegeEntryID, by, reason string) (*models.Entry, error) {
	entry, err := s.mutate(ctx, "RequestClawback", entryID, by, func(ctx context.Context, _ storage.Tx, e *models.Entry) error {
		if err := e.CanRequestClawback(); err != nil {
			return err
		}
		e.ApplyClawbackRequest(by, reason, requestcontext.Now(ctx))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "privilege_clawback_requested",
		"entry_id", entryID.String(),
		"evidence_id", entry.EvidenceID.String(),
		"requested_by", by,
	)
	return entry, nil
}

// ClawbackResult is the resolved entry plus the production documents a grant
// withdrew.
type ClawbackResult struct {
	Entry              *models.Entry `json:"entry"`
	WithdrawnDocuments int           `json:"withdrawnDocuments"`
}

// ResolveClawback grants or denies a pending request. A grant re-withholds the
// entry and withdraws every production document of the item; their Bates
// numbers stay issued.
func (s *Service) ResolveClawback(ctx context.Context, entryID id.PrivilegeEntryID, resolution models.ClawbackStatus, by, notes string) (*ClawbackResult, error) {
	res := &ClawbackResult{}
	entry, err := s.mutate(ctx, "ResolveClawback", entryID, by, func(ctx context.Context, tx storage.Tx, e *models.Entry) error {
		if err := e.CanResolveClawback(resolution); err != nil {
			return err
		}
		now := requestcontext.Now(ctx)
		e.ApplyClawbackResolution(resolution, by, notes, now)
		if resolution != models.ClawbackGranted {
			return nil
		}
		productions, err := tx.Productions().ListByEvidence(ctx, e.EvidenceID)
		if err != nil {
			return storage.Translate(err, "production")
		}
		for _, listed := range productions {
			p, err := tx.Productions().GetForUpdate(ctx, listed.ID)
			if err != nil {
				return storage.Translate(err, "production")
			}
			n := p.WithdrawEvidence(e.EvidenceID, now)
			if n == 0 {
				continue
			}
			if err := tx.Productions().Update(ctx, p); err != nil {
				return storage.Translate(err, "production")
			}
			res.WithdrawnDocuments += n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Entry = entry

	if resolution == models.ClawbackGranted && s.metrics != nil {
		s.metrics.ClawbacksGranted.Inc()
	}
	s.logAudit(ctx, "privilege_clawback_resolved",
		"entry_id", entryID.String(),
		"evidence_id", entry.EvidenceID.String(),
		"resolution", string(resolution),
		"withdrawn_documents", res.WithdrawnDocuments,
		"resolved_by", by,
	)
	return res, nil
}

func (s *Service) mutate(ctx context.Context, op string, entryID id.PrivilegeEntryID, by string, fn func(ctx context.Context, tx storage.Tx, e *models.Entry) error) (*models.Entry, error) {
	ctx, span := tracer.Start(ctx, "privilege."+op, trace.WithAttributes(
		attribute.String("privilege.entry_id", entryID.String()),
	))
	defer span.End()

	if strings.TrimSpace(by) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "performer is required")
	}
	var entry *models.Entry
	err := s.runner.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		entry, err = tx.Privilege().GetForUpdate(ctx, entryID)
		if err != nil {
			return storage.Translate(err, "privilege entry")
		}
		if err := fn(ctx, tx, entry); err != nil {
			return err
		}
		return storage.Translate(tx.Privilege().Update(ctx, entry), "privilege entry")
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
		return nil, err
	}
	return entry, nil
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
