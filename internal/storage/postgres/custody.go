package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	custody "evidex/internal/custody/models"
	id "evidex/pkg/domain"
	txcontext "evidex/pkg/platform/tx"
)

// CustodyStore is insert-only; the (evidence_id, sequence) key rejects a
// second writer for the same slot.
type CustodyStore struct {
	db *sql.DB
}

const custodyColumns = `
	evidence_id, sequence, action, performed_by, performed_at, location, notes,
	device, client_ip, detail, prev_hash, hash`

func (s *CustodyStore) Append(ctx context.Context, entry *custody.Entry) error {
	detail, err := marshalJSON(entry.Detail)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO custody_entries (` + custodyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		entry.EvidenceID.String(), entry.Sequence, string(entry.Action), entry.PerformedBy,
		entry.PerformedAt.UTC(), entry.Location, entry.Notes, entry.Device, entry.ClientIP,
		detail, entry.PrevHash, entry.Hash,
	)
	if err != nil {
		return fmt.Errorf("append custody entry: %w", classify(err))
	}
	return nil
}

func (s *CustodyStore) Last(ctx context.Context, evidenceID id.EvidenceID) (*custody.Entry, error) {
	query := `SELECT ` + custodyColumns + ` FROM custody_entries WHERE evidence_id = $1 ORDER BY sequence DESC LIMIT 1`
	entry, err := scanCustody(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, evidenceID.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last custody entry: %w", err)
	}
	return entry, nil
}

func (s *CustodyStore) List(ctx context.Context, evidenceID id.EvidenceID) ([]*custody.Entry, error) {
	query := `SELECT ` + custodyColumns + ` FROM custody_entries WHERE evidence_id = $1 ORDER BY sequence`
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, evidenceID.String())
	if err != nil {
		return nil, fmt.Errorf("list custody: %w", classify(err))
	}
	defer rows.Close()

	entries := make([]*custody.Entry, 0)
	for rows.Next() {
		entry, err := scanCustody(rows)
		if err != nil {
			return nil, fmt.Errorf("scan custody entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate custody: %w", err)
	}
	return entries, nil
}

func scanCustody(row scanner) (*custody.Entry, error) {
	var (
		entry      custody.Entry
		evidenceID uuid.UUID
		action     string
		detail     []byte
	)
	err := row.Scan(
		&evidenceID, &entry.Sequence, &action, &entry.PerformedBy, &entry.PerformedAt,
		&entry.Location, &entry.Notes, &entry.Device, &entry.ClientIP, &detail,
		&entry.PrevHash, &entry.Hash,
	)
	if err != nil {
		return nil, err
	}
	entry.EvidenceID = id.EvidenceID(evidenceID)
	entry.Action = custody.Action(action)
	entry.PerformedAt = entry.PerformedAt.UTC()
	if err := unmarshalJSON(detail, &entry.Detail); err != nil {
		return nil, err
	}
	return &entry, nil
}
