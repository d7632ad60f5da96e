package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	evidence "evidex/internal/evidence/models"
	id "evidex/pkg/domain"
	txcontext "evidex/pkg/platform/tx"
)

// EvidenceStore persists evidence items. Pure I/O; lifecycle rules live in
// the model.
type EvidenceStore struct {
	db *sql.DB
}

const evidenceColumns = `
	id, evidence_number, case_id, evidence_type, description, custodian, collection_method,
	source, current_holder, location, preservation_status, relevance, confidentiality_level,
	tags, hold_ids, on_legal_hold, produced_in_set, bates_number, status, content,
	processing_type, collected_by, collected_at, processed_at, updated_at`

func (s *EvidenceStore) Create(ctx context.Context, item *evidence.Item) error {
	args, err := evidenceArgs(item)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO evidence_items (` + evidenceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14::text[], $15::text[], $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
	`
	if _, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert evidence: %w", classify(err))
	}
	return nil
}

func (s *EvidenceStore) Get(ctx context.Context, evidenceID id.EvidenceID) (*evidence.Item, error) {
	return s.get(ctx, evidenceID, "")
}

func (s *EvidenceStore) GetForUpdate(ctx context.Context, evidenceID id.EvidenceID) (*evidence.Item, error) {
	return s.get(ctx, evidenceID, " FOR UPDATE")
}

func (s *EvidenceStore) get(ctx context.Context, evidenceID id.EvidenceID, lock string) (*evidence.Item, error) {
	query := `SELECT ` + evidenceColumns + ` FROM evidence_items WHERE id = $1` + lock
	item, err := scanEvidence(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, evidenceID.String()))
	if err != nil {
		return nil, fmt.Errorf("get evidence %s: %w", evidenceID, classify(err))
	}
	return item, nil
}

func (s *EvidenceStore) Update(ctx context.Context, item *evidence.Item) error {
	args, err := evidenceArgs(item)
	if err != nil {
		return err
	}
	query := `
		UPDATE evidence_items SET
			evidence_number = $2, case_id = $3, evidence_type = $4, description = $5,
			custodian = $6, collection_method = $7, source = $8, current_holder = $9,
			location = $10, preservation_status = $11, relevance = $12,
			confidentiality_level = $13, tags = $14::text[], hold_ids = $15::text[],
			on_legal_hold = $16, produced_in_set = $17, bates_number = $18, status = $19,
			content = $20, processing_type = $21, collected_by = $22, collected_at = $23,
			processed_at = $24, updated_at = $25
		WHERE id = $1
	`
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update evidence: %w", classify(err))
	}
	return requireRow(res, "evidence", item.ID.String())
}

func (s *EvidenceStore) ListByCase(ctx context.Context, caseID id.CaseID) ([]*evidence.Item, error) {
	query := `SELECT ` + evidenceColumns + ` FROM evidence_items WHERE case_id = $1 ORDER BY evidence_number`
	return s.list(ctx, query, caseID.String())
}

// evidenceByHoldQuery uses containment so the GIN index on hold_ids serves it.
const evidenceByHoldQuery = `SELECT ` + evidenceColumns + ` FROM evidence_items WHERE hold_ids @> ARRAY[$1]::text[] ORDER BY evidence_number`

func (s *EvidenceStore) ListByHold(ctx context.Context, holdID id.HoldID) ([]*evidence.Item, error) {
	return s.list(ctx, evidenceByHoldQuery, holdID.String())
}

func (s *EvidenceStore) list(ctx context.Context, query string, arg any) ([]*evidence.Item, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list evidence: %w", classify(err))
	}
	defer rows.Close()

	items := make([]*evidence.Item, 0)
	for rows.Next() {
		item, err := scanEvidence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evidence: %w", err)
	}
	return items, nil
}

func evidenceArgs(item *evidence.Item) ([]any, error) {
	content, err := marshalJSON(item.Content)
	if err != nil {
		return nil, err
	}
	holdIDs := make([]string, len(item.HoldIDs))
	for i, h := range item.HoldIDs {
		holdIDs[i] = h.String()
	}
	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}
	var producedIn any
	if item.ProducedInSet != nil {
		u := uuid.UUID(*item.ProducedInSet)
		producedIn = nullUUID(&u)
	}
	return []any{
		item.ID.String(), item.EvidenceNumber, item.CaseID.String(), string(item.EvidenceType),
		item.Description, item.Custodian, string(item.CollectionMethod), item.Source,
		item.CurrentHolder, item.Location, string(item.PreservationStatus), string(item.Relevance),
		string(item.ConfidentialityLevel), pq.Array(tags), pq.Array(holdIDs), item.OnLegalHold,
		producedIn, item.BatesNumber, string(item.Status), content, item.ProcessingType,
		item.CollectedBy, item.CollectedAt.UTC(), nullTime(item.ProcessedAt), item.UpdatedAt.UTC(),
	}, nil
}

func scanEvidence(row scanner) (*evidence.Item, error) {
	var (
		item        evidence.Item
		itemID      uuid.UUID
		caseID      uuid.UUID
		evidenceTyp string
		method      string
		preserve    string
		relevance   string
		conf        string
		status      string
		tags        []string
		holdIDs     []string
		producedIn  uuid.NullUUID
		content     []byte
		processedAt sql.NullTime
	)
	err := row.Scan(
		&itemID, &item.EvidenceNumber, &caseID, &evidenceTyp, &item.Description, &item.Custodian,
		&method, &item.Source, &item.CurrentHolder, &item.Location, &preserve, &relevance, &conf,
		pq.Array(&tags), pq.Array(&holdIDs), &item.OnLegalHold, &producedIn, &item.BatesNumber,
		&status, &content, &item.ProcessingType, &item.CollectedBy, &item.CollectedAt,
		&processedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.ID = id.EvidenceID(itemID)
	item.CaseID = id.CaseID(caseID)
	item.EvidenceType = evidence.EvidenceType(evidenceTyp)
	item.CollectionMethod = evidence.CollectionMethod(method)
	item.PreservationStatus = evidence.PreservationStatus(preserve)
	item.Relevance = evidence.Relevance(relevance)
	item.ConfidentialityLevel = evidence.ConfidentialityLevel(conf)
	item.Status = evidence.Status(status)
	item.Tags = tags
	if item.Tags == nil {
		item.Tags = []string{}
	}
	item.HoldIDs = make([]id.HoldID, 0, len(holdIDs))
	for _, raw := range holdIDs {
		u, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse hold id %q: %w", raw, err)
		}
		item.HoldIDs = append(item.HoldIDs, id.HoldID(u))
	}
	if producedIn.Valid {
		p := id.ProductionID(producedIn.UUID)
		item.ProducedInSet = &p
	}
	if err := unmarshalJSON(content, &item.Content); err != nil {
		return nil, err
	}
	item.ProcessedAt = timePtr(processedAt)
	item.CollectedAt = item.CollectedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	return &item, nil
}
