package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"evidex/internal/custody/ledger"
	custody "evidex/internal/custody/models"
	evidence "evidex/internal/evidence/models"
	"evidex/internal/evidence/processing"
	"evidex/internal/storage"
	id "evidex/pkg/domain"
	dErrors "evidex/pkg/domain-errors"
	"evidex/pkg/requestcontext"
)

// Process runs a best-effort batch; per-item failures come back in the result.
// Ids are parsed per item so one malformed entry cannot sink the batch.
func (s *Service) Process(ctx context.Context, ids []string, cmd processing.Command) (*processing.Result, error) {
	return s.pipeline.Run(ctx, ids, cmd)
}

// ProcessItem processes a single item. Text extraction runs before the unit of
// work so no row lock is held across the content store call.
func (s *Service) ProcessItem(ctx context.Context, evidenceID id.EvidenceID, cmd processing.Command) (*evidence.Item, error) {
	ctx, span := tracer.Start(ctx, "evidence.ProcessItem", trace.WithAttributes(
		attribute.String("evidence.id", evidenceID.String()),
		attribute.Bool("processing.extract_text", cmd.ExtractText),
	))
	defer span.End()

	current, err := s.Get(ctx, evidenceID)
	if err != nil {
		return nil, err
	}
	if err := current.CanProcess(); err != nil {
		return nil, err
	}

	var text *string
	if cmd.ExtractText {
		if current.Content.StorageRef == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "evidence has no stored content to extract text from")
		}
		extracted, err := s.content.ExtractText(ctx, current.Content.StorageRef, current.Content.ContentType)
		if err != nil {
			span.RecordError(err)
			return nil, contentError(err, "text extraction failed")
		}
		text = &extracted
	}

	return s.mutate(ctx, "Process", evidenceID, func(ctx context.Context, tx storage.Tx, b *ledger.Batch, item *evidence.Item) error {
		// Re-checked under the row lock; the item may have moved on meanwhile.
		if err := item.CanProcess(); err != nil {
			return err
		}
		item.ApplyProcess(cmd.ProcessingType, text, requestcontext.Now(ctx))
		_, err := s.ledger.AppendTx(ctx, tx, b, item, custody.Draft{
			Action:      custody.ActionProcessed,
			PerformedBy: cmd.ProcessedBy,
			Location:    item.Location,
			Detail: custody.Detail{Processing: &custody.ProcessingDetail{
				ProcessingType: cmd.ProcessingType,
				TextExtracted:  text != nil,
			}},
		})
		return err
	})
}
