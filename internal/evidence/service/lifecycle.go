package service

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"evidex/internal/contentstore"
	"evidex/internal/custody/ledger"
	custody "evidex/internal/custody/models"
	evidence "evidex/internal/evidence/models"
	"evidex/internal/sequence"
	"evidex/internal/storage"
	id "evidex/pkg/domain"
	dErrors "evidex/pkg/domain-errors"
	"evidex/pkg/platform/sentinel"
	"evidex/pkg/requestcontext"
)

// Collect validates cmd, stores any inline content and creates the item with
// its first custody entry.
func (s *Service) Collect(ctx context.Context, cmd evidence.CollectCommand, collectedBy string) (*evidence.Item, error) {
	ctx, span := tracer.Start(ctx, "evidence.Collect", trace.WithAttributes(
		attribute.String("case.id", cmd.CaseID.String()),
	))
	defer span.End()

	cmd.Normalize()
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	collectedBy = strings.TrimSpace(collectedBy)
	if collectedBy == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "collectedBy is required")
	}

	// Bytes are stored before the unit of work so no transaction spans the
	// upload. A failed unit of work leaves the object in place. Objects are
	// content-addressed and may already back another item; a retry with the
	// same bytes reuses it.
	var content evidence.Content
	if len(cmd.Content) > 0 {
		stored, err := s.content.StoreBytes(ctx, cmd.Content, cmd.ContentType, cmd.FileName)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "content store failed")
			return nil, contentError(err, "failed to store evidence content")
		}
		content = evidence.Content{
			StorageRef:  stored.Ref,
			SHA256:      stored.SHA256,
			SizeBytes:   stored.Size,
			ContentType: cmd.ContentType,
			FileName:    cmd.FileName,
		}
	}

	batch := ledger.NewBatch()
	var item *evidence.Item
	err := s.runner.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		now := requestcontext.Now(ctx)
		number, err := sequence.Allocate(ctx, tx.Sequences(), sequence.KindEvidence, now)
		if err != nil {
			return storage.Translate(err, "evidence number")
		}
		item = evidence.NewItem(id.NewEvidenceID(), number, cmd, content, collectedBy, now)
		if err := tx.Evidence().Create(ctx, item); err != nil {
			return storage.Translate(err, "evidence")
		}
		_, err = s.ledger.AppendTx(ctx, tx, batch, item, custody.Draft{
			Action:      custody.ActionCollected,
			PerformedBy: collectedBy,
			Location:    item.Location,
			Notes:       cmd.Description,
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "collect failed")
		if content.StorageRef != "" && s.logger != nil {
			s.logger.WarnContext(ctx, "stored content is unreferenced after failed collect",
				"storage_ref", content.StorageRef,
				"sha256", content.SHA256,
				"case_id", cmd.CaseID.String(),
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
		return nil, err
	}
	s.ledger.Flush(ctx, batch)

	if s.metrics != nil {
		s.metrics.EvidenceCollected.Inc()
	}
	s.logAudit(ctx, "evidence_collected",
		"evidence_id", item.ID.String(),
		"evidence_number", item.EvidenceNumber,
		"case_id", item.CaseID.String(),
		"collected_by", collectedBy,
	)
	return item, nil
}

// Tag merges tags and overwrites the given classifications. Classification is
// not a custody event.
func (s *Service) Tag(ctx context.Context, evidenceID id.EvidenceID, cmd evidence.TagCommand) (*evidence.Item, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, "Tag", evidenceID, func(ctx context.Context, _ storage.Tx, _ *ledger.Batch, item *evidence.Item) error {
		if err := item.CanTag(); err != nil {
			return err
		}
		item.ApplyTags(cmd, requestcontext.Now(ctx))
		return nil
	})
}

// Preserve moves a collected item to Preserved.
func (s *Service) Preserve(ctx context.Context, evidenceID id.EvidenceID, by, notes string) (*evidence.Item, error) {
	return s.mutate(ctx, "Preserve", evidenceID, func(ctx context.Context, tx storage.Tx, b *ledger.Batch, item *evidence.Item) error {
		if err := item.CanPreserve(); err != nil {
			return err
		}
		item.ApplyPreserve(requestcontext.Now(ctx))
		_, err := s.ledger.AppendTx(ctx, tx, b, item, custody.Draft{
			Action:      custody.ActionPreserved,
			PerformedBy: by,
			Location:    item.Location,
			Notes:       notes,
		})
		return err
	})
}

// Verify moves a preserved item to Verified. A non-empty expectedSHA256 must
// match the stored content hash.
func (s *Service) Verify(ctx context.Context, evidenceID id.EvidenceID, expectedSHA256, by, notes string) (*evidence.Item, error) {
	expectedSHA256 = strings.ToLower(strings.TrimSpace(expectedSHA256))
	return s.mutate(ctx, "Verify", evidenceID, func(ctx context.Context, tx storage.Tx, b *ledger.Batch, item *evidence.Item) error {
		if err := item.CanVerify(expectedSHA256); err != nil {
			return err
		}
		item.ApplyVerify(requestcontext.Now(ctx))
		_, err := s.ledger.AppendTx(ctx, tx, b, item, custody.Draft{
			Action:      custody.ActionVerified,
			PerformedBy: by,
			Location:    item.Location,
			Notes:       notes,
			Detail: custody.Detail{Verification: &custody.VerificationDetail{
				SHA256:  item.Content.SHA256,
				Matched: expectedSHA256 != "",
			}},
		})
		return err
	})
}

// MarkReadyForReview hands a processed item to review.
func (s *Service) MarkReadyForReview(ctx context.Context, evidenceID id.EvidenceID, by, notes string) (*evidence.Item, error) {
	return s.mutate(ctx, "MarkReadyForReview", evidenceID, func(ctx context.Context, tx storage.Tx, b *ledger.Batch, item *evidence.Item) error {
		if err := item.CanMarkReadyForReview(); err != nil {
			return err
		}
		item.ApplyReadyForReview(requestcontext.Now(ctx))
		_, err := s.ledger.AppendTx(ctx, tx, b, item, custody.Draft{
			Action:      custody.ActionReviewed,
			PerformedBy: by,
			Location:    item.Location,
			Notes:       notes,
		})
		return err
	})
}

// TransferCommand moves an item to a new holder and optionally a new location.
type TransferCommand struct {
	ToHolder string
	Location string
	Notes    string
}

// Transfer changes the item's holder.
func (s *Service) Transfer(ctx context.Context, evidenceID id.EvidenceID, cmd TransferCommand, by string) (*evidence.Item, error) {
	cmd.ToHolder = strings.TrimSpace(cmd.ToHolder)
	cmd.Location = strings.TrimSpace(cmd.Location)
	item, err := s.mutate(ctx, "Transfer", evidenceID, func(ctx context.Context, tx storage.Tx, b *ledger.Batch, item *evidence.Item) error {
		if err := item.CanTransfer(cmd.ToHolder); err != nil {
			return err
		}
		from := item.ApplyTransfer(cmd.ToHolder, cmd.Location, requestcontext.Now(ctx))
		_, err := s.ledger.AppendTx(ctx, tx, b, item, custody.Draft{
			Action:      custody.ActionTransferred,
			PerformedBy: by,
			Location:    item.Location,
			Notes:       cmd.Notes,
			Detail: custody.Detail{Transfer: &custody.TransferDetail{
				FromHolder: from,
				ToHolder:   cmd.ToHolder,
			}},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "evidence_transferred",
		"evidence_id", evidenceID.String(),
		"to_holder", cmd.ToHolder,
		"performed_by", by,
	)
	return item, nil
}

// Archive retires an active item. Archived items may still be held.
func (s *Service) Archive(ctx context.Context, evidenceID id.EvidenceID, by, notes string) (*evidence.Item, error) {
	return s.mutate(ctx, "Archive", evidenceID, func(ctx context.Context, tx storage.Tx, b *ledger.Batch, item *evidence.Item) error {
		if err := item.CanArchive(); err != nil {
			return err
		}
		item.ApplyArchive(requestcontext.Now(ctx))
		_, err := s.ledger.AppendTx(ctx, tx, b, item, custody.Draft{
			Action:      custody.ActionArchived,
			PerformedBy: by,
			Location:    item.Location,
			Notes:       notes,
		})
		return err
	})
}

// Delete disposes of an item. Held items cannot be deleted.
func (s *Service) Delete(ctx context.Context, evidenceID id.EvidenceID, by, notes string) (*evidence.Item, error) {
	item, err := s.mutate(ctx, "Delete", evidenceID, func(ctx context.Context, tx storage.Tx, b *ledger.Batch, item *evidence.Item) error {
		if err := item.CanDelete(); err != nil {
			return err
		}
		item.ApplyDelete(requestcontext.Now(ctx))
		_, err := s.ledger.AppendTx(ctx, tx, b, item, custody.Draft{
			Action:      custody.ActionDeleted,
			PerformedBy: by,
			Location:    item.Location,
			Notes:       notes,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "evidence_deleted",
		"evidence_id", evidenceID.String(),
		"evidence_number", item.EvidenceNumber,
		"performed_by", by,
	)
	return item, nil
}

// contentError classifies a content store failure.
func contentError(err error, msg string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "content store call timed out")
	case errors.Is(err, contentstore.ErrUnsupportedContent):
		return dErrors.Wrap(err, dErrors.CodeValidation, "text cannot be extracted from this content type")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "evidence content not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
