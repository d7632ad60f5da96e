package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "evidex/pkg/domain"
	dErrors "evidex/pkg/domain-errors"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func chain(t *testing.T, evidenceID id.EvidenceID, drafts ...Draft) []*Entry {
	t.Helper()
	var out []*Entry
	var prev *Entry
	for i, d := range drafts {
		e, err := NewEntry(evidenceID, prev, d, "curl 8.0", "10.0.0.1", t0.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		out = append(out, e)
		prev = e
	}
	return out
}

func TestNewEntryLinksChain(t *testing.T) {
	evID := id.NewEvidenceID()
	entries := chain(t, evID,
		Draft{Action: ActionCollected, PerformedBy: "collector"},
		Draft{Action: ActionPreserved, PerformedBy: "tech"},
	)

	assert.Equal(t, 1, entries[0].Sequence)
	assert.Equal(t, GenesisHash, entries[0].PrevHash)
	assert.Equal(t, 2, entries[1].Sequence)
	assert.Equal(t, entries[0].Hash, entries[1].PrevHash)
	assert.NotEqual(t, entries[0].Hash, entries[1].Hash)
}

func TestDraftValidation(t *testing.T) {
	holdID := id.NewHoldID()
	tests := []struct {
		name  string
		draft Draft
		code  dErrors.Code
	}{
		{name: "unknown action", draft: Draft{Action: "Shredded", PerformedBy: "x"}, code: dErrors.CodeValidation},
		{name: "missing performer", draft: Draft{Action: ActionCollected}, code: dErrors.CodeValidation},
		{name: "hold action without hold", draft: Draft{Action: ActionLegalHoldApplied, PerformedBy: "x"}, code: dErrors.CodeInvariantViolation},
		{name: "collected with stray detail", draft: Draft{Action: ActionCollected, PerformedBy: "x", Detail: Detail{Hold: &HoldDetail{HoldID: holdID}}}, code: dErrors.CodeInvariantViolation},
		{name: "two variants", draft: Draft{Action: ActionLegalHoldApplied, PerformedBy: "x", Detail: Detail{
			Hold:       &HoldDetail{HoldID: holdID},
			Processing: &ProcessingDetail{ProcessingType: "ocr"},
		}}, code: dErrors.CodeInvariantViolation},
		{name: "produced without bates", draft: Draft{Action: ActionProduced, PerformedBy: "x", Detail: Detail{
			Production: &ProductionDetail{ProductionID: id.NewProductionID()},
		}}, code: dErrors.CodeInvariantViolation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.draft.Validate()
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, tt.code), "got %v", err)
		})
	}

	t.Run("verified without detail is allowed", func(t *testing.T) {
		assert.NoError(t, Draft{Action: ActionVerified, PerformedBy: "x"}.Validate())
	})
}

func TestVerifyChain(t *testing.T) {
	evID := id.NewEvidenceID()
	build := func() []*Entry {
		return chain(t, evID,
			Draft{Action: ActionCollected, PerformedBy: "collector"},
			Draft{Action: ActionProcessed, PerformedBy: "tech", Detail: Detail{Processing: &ProcessingDetail{ProcessingType: "ocr"}}},
			Draft{Action: ActionArchived, PerformedBy: "records"},
		)
	}

	t.Run("intact chain", func(t *testing.T) {
		v := VerifyChain(evID, build())
		assert.True(t, v.Valid)
		assert.Equal(t, 3, v.Entries)
		assert.NotEmpty(t, v.HeadHash)
	})

	t.Run("empty chain is valid", func(t *testing.T) {
		v := VerifyChain(evID, nil)
		assert.True(t, v.Valid)
		assert.Empty(t, v.HeadHash)
	})

	t.Run("tampered notes break the entry", func(t *testing.T) {
		entries := build()
		entries[1].Notes = "edited after the fact"
		v := VerifyChain(evID, entries)
		assert.False(t, v.Valid)
		assert.Equal(t, 2, v.BrokenAt)
		assert.Equal(t, "entry hash mismatch", v.Reason)
	})

	t.Run("removed entry breaks the sequence", func(t *testing.T) {
		entries := build()
		entries = append(entries[:1], entries[2:]...)
		v := VerifyChain(evID, entries)
		assert.False(t, v.Valid)
		assert.Equal(t, 2, v.BrokenAt)
	})

	t.Run("rehashed entry breaks the next link", func(t *testing.T) {
		entries := build()
		entries[0].Notes = "rewritten"
		entries[0].Hash = entries[0].ComputeHash()
		v := VerifyChain(evID, entries)
		assert.False(t, v.Valid)
		assert.Equal(t, 2, v.BrokenAt)
		assert.Equal(t, "previous hash mismatch", v.Reason)
	})
}

func TestCloneIsDeep(t *testing.T) {
	e := chain(t, id.NewEvidenceID(), Draft{
		Action:      ActionTransferred,
		PerformedBy: "courier",
		Detail:      Detail{Transfer: &TransferDetail{ToHolder: "vault"}},
	})[0]
	c := e.Clone()
	c.Detail.Transfer.ToHolder = "elsewhere"
	assert.Equal(t, "vault", e.Detail.Transfer.ToHolder)
}
