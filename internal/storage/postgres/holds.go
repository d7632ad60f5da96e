package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	hold "evidex/internal/hold/models"
	id "evidex/pkg/domain"
	txcontext "evidex/pkg/platform/tx"
)

type HoldStore struct {
	db *sql.DB
}

const holdColumns = `
	id, hold_number, case_id, title, scope, custodians, status, compliance_rate,
	issued_by, issued_at, released_by, released_at, release_reason, updated_at`

func (s *HoldStore) Create(ctx context.Context, h *hold.Hold) error {
	args, err := holdArgs(h)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO legal_holds (` + holdColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	if _, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert hold: %w", classify(err))
	}
	return nil
}

func (s *HoldStore) Get(ctx context.Context, holdID id.HoldID) (*hold.Hold, error) {
	return s.get(ctx, holdID, "")
}

func (s *HoldStore) GetForUpdate(ctx context.Context, holdID id.HoldID) (*hold.Hold, error) {
	return s.get(ctx, holdID, " FOR UPDATE")
}

func (s *HoldStore) get(ctx context.Context, holdID id.HoldID, lock string) (*hold.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM legal_holds WHERE id = $1` + lock
	h, err := scanHold(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, holdID.String()))
	if err != nil {
		return nil, fmt.Errorf("get hold %s: %w", holdID, classify(err))
	}
	return h, nil
}

func (s *HoldStore) Update(ctx context.Context, h *hold.Hold) error {
	args, err := holdArgs(h)
	if err != nil {
		return err
	}
	query := `
		UPDATE legal_holds SET
			hold_number = $2, case_id = $3, title = $4, scope = $5, custodians = $6,
			status = $7, compliance_rate = $8, issued_by = $9, issued_at = $10,
			released_by = $11, released_at = $12, release_reason = $13, updated_at = $14
		WHERE id = $1
	`
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update hold: %w", classify(err))
	}
	return requireRow(res, "hold", h.ID.String())
}

func (s *HoldStore) ListByCase(ctx context.Context, caseID id.CaseID) ([]*hold.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM legal_holds WHERE case_id = $1 ORDER BY hold_number`
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, caseID.String())
	if err != nil {
		return nil, fmt.Errorf("list holds: %w", classify(err))
	}
	defer rows.Close()

	holds := make([]*hold.Hold, 0)
	for rows.Next() {
		h, err := scanHold(rows)
		if err != nil {
			return nil, fmt.Errorf("scan hold: %w", err)
		}
		holds = append(holds, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holds: %w", err)
	}
	return holds, nil
}

func holdArgs(h *hold.Hold) ([]any, error) {
	custodians, err := marshalJSON(h.Custodians)
	if err != nil {
		return nil, err
	}
	return []any{
		h.ID.String(), h.HoldNumber, h.CaseID.String(), h.Title, h.Scope, custodians,
		string(h.Status), h.ComplianceRate, h.IssuedBy, h.IssuedAt.UTC(), h.ReleasedBy,
		nullTime(h.ReleasedAt), h.ReleaseReason, h.UpdatedAt.UTC(),
	}, nil
}

func scanHold(row scanner) (*hold.Hold, error) {
	var (
		h          hold.Hold
		holdID     uuid.UUID
		caseID     uuid.UUID
		custodians []byte
		status     string
		releasedAt sql.NullTime
	)
	err := row.Scan(
		&holdID, &h.HoldNumber, &caseID, &h.Title, &h.Scope, &custodians, &status,
		&h.ComplianceRate, &h.IssuedBy, &h.IssuedAt, &h.ReleasedBy, &releasedAt,
		&h.ReleaseReason, &h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	h.ID = id.HoldID(holdID)
	h.CaseID = id.CaseID(caseID)
	h.Status = hold.Status(status)
	h.ReleasedAt = timePtr(releasedAt)
	h.IssuedAt = h.IssuedAt.UTC()
	h.UpdatedAt = h.UpdatedAt.UTC()
	if err := unmarshalJSON(custodians, &h.Custodians); err != nil {
		return nil, err
	}
	return &h, nil
}
