package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	production "evidex/internal/production/models"
	id "evidex/pkg/domain"
	txcontext "evidex/pkg/platform/tx"
)

// ProductionStore keeps the production header in productions and its
// numbered documents in production_documents. The unique
// (case_id, bates_prefix, bates_numeric) key is the last line of defence
// against a reused Bates number.
type ProductionStore struct {
	db *sql.DB
}

const productionColumns = `
	id, production_number, case_id, name, recipient, bates_prefix, bates_start_number,
	bates_end_number, pad_width, total_documents, total_pages, status, transitions,
	created_by, created_at, updated_at`

func (s *ProductionStore) Create(ctx context.Context, p *production.Production) error {
	args, err := productionArgs(p)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO productions (` + productionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	if _, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert production: %w", classify(err))
	}
	return s.saveDocuments(ctx, p)
}

func (s *ProductionStore) Get(ctx context.Context, productionID id.ProductionID) (*production.Production, error) {
	return s.get(ctx, productionID, "")
}

func (s *ProductionStore) GetForUpdate(ctx context.Context, productionID id.ProductionID) (*production.Production, error) {
	return s.get(ctx, productionID, " FOR UPDATE")
}

func (s *ProductionStore) get(ctx context.Context, productionID id.ProductionID, lock string) (*production.Production, error) {
	query := `SELECT ` + productionColumns + ` FROM productions WHERE id = $1` + lock
	p, err := scanProduction(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, productionID.String()))
	if err != nil {
		return nil, fmt.Errorf("get production %s: %w", productionID, classify(err))
	}
	if err := s.loadDocuments(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProductionStore) Update(ctx context.Context, p *production.Production) error {
	args, err := productionArgs(p)
	if err != nil {
		return err
	}
	query := `
		UPDATE productions SET
			production_number = $2, case_id = $3, name = $4, recipient = $5, bates_prefix = $6,
			bates_start_number = $7, bates_end_number = $8, pad_width = $9, total_documents = $10,
			total_pages = $11, status = $12, transitions = $13, created_by = $14,
			created_at = $15, updated_at = $16
		WHERE id = $1
	`
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update production: %w", classify(err))
	}
	if err := requireRow(res, "production", p.ID.String()); err != nil {
		return err
	}
	return s.saveDocuments(ctx, p)
}

func (s *ProductionStore) ListByCase(ctx context.Context, caseID id.CaseID) ([]*production.Production, error) {
	query := `SELECT ` + productionColumns + ` FROM productions WHERE case_id = $1 ORDER BY production_number`
	return s.list(ctx, query, caseID.String())
}

func (s *ProductionStore) ListByEvidence(ctx context.Context, evidenceID id.EvidenceID) ([]*production.Production, error) {
	query := `
		SELECT ` + productionColumns + ` FROM productions
		WHERE id IN (SELECT production_id FROM production_documents WHERE evidence_id = $1)
		ORDER BY production_number
	`
	return s.list(ctx, query, evidenceID.String())
}

func (s *ProductionStore) LastIssued(ctx context.Context, caseID id.CaseID, prefix string) (int64, error) {
	query := `
		SELECT COALESCE(MAX(bates_end_number), 0)
		FROM productions
		WHERE case_id = $1 AND bates_prefix = $2 AND total_documents > 0
	`
	var last int64
	if err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, caseID.String(), prefix).Scan(&last); err != nil {
		return 0, fmt.Errorf("last issued bates number: %w", classify(err))
	}
	return last, nil
}

// LockSeries takes a transaction-scoped advisory lock on (case, prefix).
func (s *ProductionStore) LockSeries(ctx context.Context, caseID id.CaseID, prefix string) error {
	key := caseID.String() + "/" + prefix
	if _, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		return fmt.Errorf("lock bates series: %w", classify(err))
	}
	return nil
}

func (s *ProductionStore) list(ctx context.Context, query string, arg any) ([]*production.Production, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list productions: %w", classify(err))
	}
	productions := make([]*production.Production, 0)
	for rows.Next() {
		p, err := scanProduction(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan production: %w", err)
		}
		productions = append(productions, p)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate productions: %w", err)
	}
	// Close before issuing the per-production document queries on the same tx.
	_ = rows.Close()

	for _, p := range productions {
		if err := s.loadDocuments(ctx, p); err != nil {
			return nil, err
		}
	}
	return productions, nil
}

func (s *ProductionStore) loadDocuments(ctx context.Context, p *production.Production) error {
	query := `
		SELECT evidence_id, evidence_number, bates_number, bates_numeric, page_count,
			redacted, withdrawn, added_by, added_at
		FROM production_documents
		WHERE production_id = $1
		ORDER BY position
	`
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, p.ID.String())
	if err != nil {
		return fmt.Errorf("load production documents: %w", classify(err))
	}
	defer rows.Close()

	p.Documents = make([]production.Document, 0, p.TotalDocuments)
	for rows.Next() {
		var (
			doc        production.Document
			evidenceID uuid.UUID
		)
		if err := rows.Scan(
			&evidenceID, &doc.EvidenceNumber, &doc.BatesNumber, &doc.BatesNumeric, &doc.PageCount,
			&doc.Redacted, &doc.Withdrawn, &doc.AddedBy, &doc.AddedAt,
		); err != nil {
			return fmt.Errorf("scan production document: %w", err)
		}
		doc.EvidenceID = id.EvidenceID(evidenceID)
		doc.AddedAt = doc.AddedAt.UTC()
		p.Documents = append(p.Documents, doc)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate production documents: %w", err)
	}
	return nil
}

// saveDocuments inserts new positions; existing ones may only flip withdrawn.
func (s *ProductionStore) saveDocuments(ctx context.Context, p *production.Production) error {
	query := `
		INSERT INTO production_documents (
			production_id, position, case_id, bates_prefix, evidence_id, evidence_number,
			bates_number, bates_numeric, page_count, redacted, withdrawn, added_by, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (production_id, position) DO UPDATE SET
			withdrawn = EXCLUDED.withdrawn
	`
	exec := txcontext.Executor(ctx, s.db)
	for i, doc := range p.Documents {
		_, err := exec.ExecContext(ctx, query,
			p.ID.String(), i, p.CaseID.String(), p.BatesPrefix, doc.EvidenceID.String(),
			doc.EvidenceNumber, doc.BatesNumber, doc.BatesNumeric, doc.PageCount, doc.Redacted,
			doc.Withdrawn, doc.AddedBy, doc.AddedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("save production document %s: %w", doc.BatesNumber, classify(err))
		}
	}
	return nil
}

func productionArgs(p *production.Production) ([]any, error) {
	transitions, err := marshalJSON(p.Transitions)
	if err != nil {
		return nil, err
	}
	return []any{
		p.ID.String(), p.ProductionNumber, p.CaseID.String(), p.Name, p.Recipient, p.BatesPrefix,
		p.BatesStartNumber, p.BatesEndNumber, p.PadWidth, p.TotalDocuments, p.TotalPages,
		string(p.Status), transitions, p.CreatedBy, p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	}, nil
}

func scanProduction(row scanner) (*production.Production, error) {
	var (
		p            production.Production
		productionID uuid.UUID
		caseID       uuid.UUID
		status       string
		transitions  []byte
	)
	err := row.Scan(
		&productionID, &p.ProductionNumber, &caseID, &p.Name, &p.Recipient, &p.BatesPrefix,
		&p.BatesStartNumber, &p.BatesEndNumber, &p.PadWidth, &p.TotalDocuments, &p.TotalPages,
		&status, &transitions, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.ID = id.ProductionID(productionID)
	p.CaseID = id.CaseID(caseID)
	p.Status = production.Status(status)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	if err := unmarshalJSON(transitions, &p.Transitions); err != nil {
		return nil, err
	}
	if p.Transitions == nil {
		p.Transitions = []production.Transition{}
	}
	return &p, nil
}
