package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"evidex/internal/custody/ledger"
	custody "evidex/internal/custody/models"
	evidence "evidex/internal/evidence/models"
	hold "evidex/internal/hold/models"
	"evidex/internal/storage"
	id "evidex/pkg/domain"
	dErrors "evidex/pkg/domain-errors"
	"evidex/pkg/requestcontext"
)

// PlaceOnHold adds holdID to the item's hold references. Placing an item under
// a hold it is already under changes nothing and appends nothing.
func (s *Service) PlaceOnHold(ctx context.Context, evidenceID id.EvidenceID, holdID id.HoldID, by string) (*evidence.Item, error) {
	var changed bool
	item, err := s.mutateUnderHold(ctx, "PlaceOnHold", evidenceID, holdID, func(ctx context.Context, tx storage.Tx, b *ledger.Batch, item *evidence.Item, h *hold.Hold) error {
		var err error
		changed, err = s.PlaceOnHoldTx(ctx, tx, b, item, h, by)
		return err
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.logAudit(ctx, "evidence_hold_applied",
			"evidence_id", evidenceID.String(),
			"hold_id", holdID.String(),
			"performed_by", by,
		)
	}
	return item, nil
}

// ReleaseHold removes holdID from the item's hold references. The item stays
// on hold while other references remain.
func (s *Service) ReleaseHold(ctx context.Context, evidenceID id.EvidenceID, holdID id.HoldID, by string) (*evidence.Item, error) {
	item, err := s.mutateUnderHold(ctx, "ReleaseHold", evidenceID, holdID, func(ctx context.Context, tx storage.Tx, b *ledger.Batch, item *evidence.Item, h *hold.Hold) error {
		return s.ReleaseHoldTx(ctx, tx, b, item, h, by)
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "evidence_hold_released",
		"evidence_id", evidenceID.String(),
		"hold_id", holdID.String(),
		"still_held", item.OnLegalHold,
		"performed_by", by,
	)
	return item, nil
}

// mutateUnderHold locks the hold before the item, the same order hold release
// and bulk placement use.
func (s *Service) mutateUnderHold(ctx context.Context, op string, evidenceID id.EvidenceID, holdID id.HoldID,
	fn func(ctx context.Context, tx storage.Tx, b *ledger.Batch, item *evidence.Item, h *hold.Hold) error,
) (*evidence.Item, error) {
	ctx, span := tracer.Start(ctx, "evidence."+op, trace.WithAttributes(
		attribute.String("evidence.id", evidenceID.String()),
		attribute.String("hold.id", holdID.String()),
	))
	defer span.End()

	batch := ledger.NewBatch()
	var out *evidence.Item
	err := s.runner.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		h, err := tx.Holds().GetForUpdate(ctx, holdID)
		if err != nil {
			return storage.Translate(err, "legal hold")
		}
		item, err := tx.Evidence().GetForUpdate(ctx, evidenceID)
		if err != nil {
			return storage.Translate(err, "evidence")
		}
		if err := fn(ctx, tx, batch, item, h); err != nil {
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

// PlaceOnHoldTx applies h to item inside the caller's unit of work and appends
// LegalHoldApplied. The caller persists item. Returns false when item was
// already under h.
func (s *Service) PlaceOnHoldTx(ctx context.Context, tx storage.Tx, b *ledger.Batch, item *evidence.Item, h *hold.Hold, by string) (bool, error) {
	if !h.IsActive() {
		return false, dErrors.New(dErrors.CodeInvalidTransition, "legal hold has been released")
	}
	if h.CaseID != item.CaseID {
		return false, dErrors.New(dErrors.CodeValidation, "legal hold belongs to a different case")
	}
	if err := item.CanPlaceHold(); err != nil {
		return false, err
	}
	if !item.ApplyHold(h.ID, requestcontext.Now(ctx)) {
		return false, nil
	}
	_, err := s.ledger.AppendTx(ctx, tx, b, item, custody.Draft{
		Action:      custody.ActionLegalHoldApplied,
		PerformedBy: by,
		Location:    item.Location,
		Detail: custody.Detail{Hold: &custody.HoldDetail{
			HoldID:     h.ID,
			HoldNumber: h.HoldNumber,
		}},
	})
	return true, err
}

// ReleaseHoldTx removes h from item inside the caller's unit of work and
// appends LegalHoldReleased. The caller persists item.
func (s *Service) ReleaseHoldTx(ctx context.Context, tx storage.Tx, b *ledger.Batch, item *evidence.Item, h *hold.Hold, by string) error {
	if err := item.CanReleaseHold(h.ID); err != nil {
		return err
	}
	item.ApplyReleaseHold(h.ID, requestcontext.Now(ctx))
	_, err := s.ledger.AppendTx(ctx, tx, b, item, custody.Draft{
		Action:      custody.ActionLegalHoldReleased,
		PerformedBy: by,
		Location:    item.Location,
		Detail: custody.Detail{Hold: &custody.HoldDetail{
			HoldID:     h.ID,
			HoldNumber: h.HoldNumber,
			StillHeld:  item.OnLegalHold,
		}},
	})
	return err
}
