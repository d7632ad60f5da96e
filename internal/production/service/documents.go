package service

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"evidex/internal/custody/ledger"
	custody "evidex/internal/custody/models"
	privilegeSvc "evidex/internal/privilege/service"
	"evidex/internal/production/models"
	"evidex/internal/storage"
	id "evidex/pkg/domain"
	dErrors "evidex/pkg/domain-errors"
	"evidex/pkg/requestcontext"
)

// AddDocumentCommand is the input to AddDocument.
type AddDocumentCommand struct {
	EvidenceID id.EvidenceID
	PageCount  int
	Redacted   bool
}

// AddDocumentResult is the updated production plus the document just numbered.
type AddDocumentResult struct {
	Production *models.Production `json:"production"`
	Document   models.Document    `json:"document"`
}

// AddDocument numbers the next document of a production. Withheld items are
// refused unless the document is redacted. An empty production whose start has
// been overtaken by another production of the same series is moved to the
// next free number; a production that already issued numbers cannot skip back
// and fails with a conflict.
func (s *Service) AddDocument(ctx context.Context, productionID id.ProductionID, cmd AddDocumentCommand, by string) (*AddDocumentResult, error) {
	ctx, span := tracer.Start(ctx, "production.AddDocument", trace.WithAttributes(
		attribute.String("production.id", productionID.String()),
		attribute.String("evidence.id", cmd.EvidenceID.String()),
	))
	defer span.End()

	by = strings.TrimSpace(by)
	if by == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "addedBy is required")
	}
	if cmd.EvidenceID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "evidenceId is required")
	}
	if cmd.PageCount < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "pageCount cannot be negative")
	}

	// Case and prefix never change, so the unlocked read is enough to name the series.
	current, err := s.Get(ctx, productionID)
	if err != nil {
		return nil, err
	}

	batch := ledger.NewBatch()
	res := &AddDocumentResult{}
	err = s.withSeries(ctx, current.CaseID, current.BatesPrefix, func(ctx context.Context, tx storage.Tx) error {
		p, err := tx.Productions().GetForUpdate(ctx, productionID)
		if err != nil {
			return storage.Translate(err, "production")
		}
		if err := p.CanAddDocument(); err != nil {
			return err
		}
		item, err := tx.Evidence().GetForUpdate(ctx, cmd.EvidenceID)
		if err != nil {
			return storage.Translate(err, "evidence")
		}
		if item.CaseID != p.CaseID {
			return dErrors.New(dErrors.CodeValidation, "evidence belongs to a different case")
		}
		if err := item.CanProduce(); err != nil {
			return err
		}
		withheld, err := privilegeSvc.IsWithheldTx(ctx, tx, item.ID)
		if err != nil {
			return err
		}
		if withheld && !cmd.Redacted {
			if s.metrics != nil {
				s.metrics.PrivilegedRejections.Inc()
			}
			return dErrors.Newf(dErrors.CodePrivilegedDocument,
				"evidence %s is withheld as privileged; produce it redacted or waive the privilege", item.EvidenceNumber)
		}

		last, err := tx.Productions().LastIssued(ctx, p.CaseID, p.BatesPrefix)
		if err != nil {
			return storage.Translate(err, "bates series")
		}
		if p.NextNumber() <= last {
			if p.HasDocuments() {
				return dErrors.Newf(dErrors.CodeConflict,
					"bates series %s has moved past production %s", p.BatesPrefix, p.ProductionNumber)
			}
			if err := p.Rebase(last + 1); err != nil {
				return err
			}
		}

		now := requestcontext.Now(ctx)
		doc := p.ApplyDocument(item.ID, item.EvidenceNumber, cmd.PageCount, cmd.Redacted, by, now)
		if err := tx.Productions().Update(ctx, p); err != nil {
			return storage.Translate(err, "production")
		}
		item.ApplyProduced(p.ID, doc.BatesNumber, now)
		if err := tx.Evidence().Update(ctx, item); err != nil {
			return storage.Translate(err, "evidence")
		}
		if _, err := s.ledger.AppendTx(ctx, tx, batch, item, custody.Draft{
			Action:      custody.ActionProduced,
			PerformedBy: by,
			Detail: custody.Detail{Production: &custody.ProductionDetail{
				ProductionID:     p.ID,
				ProductionNumber: p.ProductionNumber,
				BatesNumber:      doc.BatesNumber,
				Redacted:         cmd.Redacted,
			}},
		}); err != nil {
			return err
		}
		res.Production = p
		res.Document = doc
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "add document failed")
		return nil, err
	}
	s.ledger.Flush(ctx, batch)

	if s.metrics != nil {
		s.metrics.BatesNumbersIssued.Inc()
	}
	span.SetAttributes(attribute.String("bates.number", res.Document.BatesNumber))
	s.logAudit(ctx, "production_document_added",
		"production_id", productionID.String(),
		"evidence_id", cmd.EvidenceID.String(),
		"bates_number", res.Document.BatesNumber,
		"redacted", cmd.Redacted,
		"added_by", by,
	)
	return res, nil
}

// Start moves Draft to InProgress.
func (s *Service) Start(ctx context.Context, productionID id.ProductionID, by string) (*models.Production, error) {
	return s.transition(ctx, productionID, models.StatusInProgress, by)
}

// SubmitForReview moves InProgress to ReadyForReview; the production must
// hold at least one document.
func (s *Service) SubmitForReview(ctx context.Context, productionID id.ProductionID, by string) (*models.Production, error) {
	return s.transition(ctx, productionID, models.StatusReadyForReview, by)
}

func (s *Service) Approve(ctx context.Context, productionID id.ProductionID, by string) (*models.Production, error) {
	return s.transition(ctx, productionID, models.StatusApproved, by)
}

func (s *Service) Deliver(ctx context.Context, productionID id.ProductionID, by string) (*models.Production, error) {
	return s.transition(ctx, productionID, models.StatusDelivered, by)
}

func (s *Service) Complete(ctx context.Context, productionID id.ProductionID, by string) (*models.Production, error) {
	return s.transition(ctx, productionID, models.StatusCompleted, by)
}

func (s *Service) transition(ctx context.Context, productionID id.ProductionID, to models.Status, by string) (*models.Production, error) {
	ctx, span := tracer.Start(ctx, "production.Transition", trace.WithAttributes(
		attribute.String("production.id", productionID.String()),
		attribute.String("production.to", string(to)),
	))
	defer span.End()

	by = strings.TrimSpace(by)
	if by == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "performer is required")
	}
	var p *models.Production
	var from models.Status
	err := s.runner.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		p, err = tx.Productions().GetForUpdate(ctx, productionID)
		if err != nil {
			return storage.Translate(err, "production")
		}
		if err := p.CanTransitionTo(to); err != nil {
			return err
		}
		from = p.Status
		p.ApplyTransition(to, by, requestcontext.Now(ctx))
		return storage.Translate(tx.Productions().Update(ctx, p), "production")
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transition failed")
		return nil, err
	}
	s.logAudit(ctx, "production_status_changed",
		"production_id", productionID.String(),
		"from", string(from),
		"to", string(to),
		"performed_by", by,
	)
	return p, nil
}
