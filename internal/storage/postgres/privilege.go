package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	privilege "evidex/internal/privilege/models"
	id "evidex/pkg/domain"
	txcontext "evidex/pkg/platform/tx"
)

type PrivilegeStore struct {
	db *sql.DB
}

const privilegeColumns = `
	id, entry_number, case_id, evidence_id, evidence_number, privilege_type, basis, author,
	recipients, document_date, description, withheld, waived, clawback_status, notes,
	logged_by, created_at, updated_at`

func (s *PrivilegeStore) Create(ctx context.Context, e *privilege.Entry) error {
	args, err := privilegeArgs(e)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO privilege_entries (` + privilegeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::text[], $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	if _, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert privilege entry: %w", classify(err))
	}
	return nil
}

func (s *PrivilegeStore) Get(ctx context.Context, entryID id.PrivilegeEntryID) (*privilege.Entry, error) {
	return s.get(ctx, entryID, "")
}

func (s *PrivilegeStore) GetForUpdate(ctx context.Context, entryID id.PrivilegeEntryID) (*privilege.Entry, error) {
	return s.get(ctx, entryID, " FOR UPDATE")
}

func (s *PrivilegeStore) get(ctx context.Context, entryID id.PrivilegeEntryID, lock string) (*privilege.Entry, error) {
	query := `SELECT ` + privilegeColumns + ` FROM privilege_entries WHERE id = $1` + lock
	e, err := scanPrivilege(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, entryID.String()))
	if err != nil {
		return nil, fmt.Errorf("get privilege entry %s: %w", entryID, classify(err))
	}
	return e, nil
}

func (s *PrivilegeStore) Update(ctx context.Context, e *privilege.Entry) error {
	args, err := privilegeArgs(e)
	if err != nil {
		return err
	}
	query := `
		UPDATE privilege_entries SET
			entry_number = $2, case_id = $3, evidence_id = $4, evidence_number = $5,
			privilege_type = $6, basis = $7, author = $8, recipients = $9::text[],
			document_date = $10, description = $11, withheld = $12, waived = $13,
			clawback_status = $14, notes = $15, logged_by = $16, created_at = $17, updated_at = $18
		WHERE id = $1
	`
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update privilege entry: %w", classify(err))
	}
	return requireRow(res, "privilege entry", e.ID.String())
}

func (s *PrivilegeStore) ListByCase(ctx context.Context, caseID id.CaseID) ([]*privilege.Entry, error) {
	query := `SELECT ` + privilegeColumns + ` FROM privilege_entries WHERE case_id = $1 ORDER BY entry_number`
	return s.list(ctx, query, caseID.String())
}

func (s *PrivilegeStore) ListByEvidence(ctx context.Context, evidenceID id.EvidenceID) ([]*privilege.Entry, error) {
	query := `SELECT ` + privilegeColumns + ` FROM privilege_entries WHERE evidence_id = $1 ORDER BY entry_number`
	return s.list(ctx, query, evidenceID.String())
}

func (s *PrivilegeStore) list(ctx context.Context, query string, arg any) ([]*privilege.Entry, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list privilege entries: %w", classify(err))
	}
	defer rows.Close()

	entries := make([]*privilege.Entry, 0)
	for rows.Next() {
		e, err := scanPrivilege(rows)
		if err != nil {
			return nil, fmt.Errorf("scan privilege entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate privilege entries: %w", err)
	}
	return entries, nil
}

func privilegeArgs(e *privilege.Entry) ([]any, error) {
	notes, err := marshalJSON(e.Notes)
	if err != nil {
		return nil, err
	}
	recipients := e.Recipients
	if recipients == nil {
		recipients = []string{}
	}
	return []any{
		e.ID.String(), e.EntryNumber, e.CaseID.String(), e.EvidenceID.String(), e.EvidenceNumber,
		string(e.PrivilegeType), e.Basis, e.Author, pq.Array(recipients), nullTime(e.DocumentDate),
		e.Description, e.Withheld, e.Waived, string(e.ClawbackStatus), notes, e.LoggedBy,
		e.CreatedAt.UTC(), e.UpdatedAt.UTC(),
	}, nil
}

func scanPrivilege(row scanner) (*privilege.Entry, error) {
	var (
		e            privilege.Entry
		entryID      uuid.UUID
		caseID       uuid.UUID
		evidenceID   uuid.UUID
		privType     string
		clawback     string
		recipients   []string
		documentDate sql.NullTime
		notes        []byte
	)
	err := row.Scan(
		&entryID, &e.EntryNumber, &caseID, &evidenceID, &e.EvidenceNumber, &privType, &e.Basis,
		&e.Author, pq.Array(&recipients), &documentDate, &e.Description, &e.Withheld, &e.Waived,
		&clawback, &notes, &e.LoggedBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.ID = id.PrivilegeEntryID(entryID)
	e.CaseID = id.CaseID(caseID)
	e.EvidenceID = id.EvidenceID(evidenceID)
	e.PrivilegeType = privilege.Type(privType)
	e.ClawbackStatus = privilege.ClawbackStatus(clawback)
	e.Recipients = recipients
	if e.Recipients == nil {
		e.Recipients = []string{}
	}
	e.DocumentDate = timePtr(documentDate)
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	if err := unmarshalJSON(notes, &e.Notes); err != nil {
		return nil, err
	}
	return &e, nil
}
