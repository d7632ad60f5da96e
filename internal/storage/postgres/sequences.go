package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"evidex/internal/sequence"
	txcontext "evidex/pkg/platform/tx"
)

// SequenceStore increments per-(kind, year) counters. The upsert row lock
// serializes concurrent allocators until their transactions end.
type SequenceStore struct {
	db *sql.DB
}

func (s *SequenceStore) Next(ctx context.Context, kind sequence.Kind, year int) (int64, error) {
	query := `
		INSERT INTO number_sequences (kind, year, value)
		VALUES ($1, $2, 1)
		ON CONFLICT (kind, year) DO UPDATE SET
			value = number_sequences.value + 1
		RETURNING value
	`
	var value int64
	if err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, string(kind), year).Scan(&value); err != nil {
		return 0, fmt.Errorf("next %s sequence: %w", kind, classify(err))
	}
	return value, nil
}
