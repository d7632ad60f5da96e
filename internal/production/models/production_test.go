package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "evidex/pkg/domain"
	dErrors "evidex/pkg/domain-errors"
)

var now = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

func newProduction(start int64) *Production {
	return &Production{
		ID:               id.NewProductionID(),
		CaseID:           id.NewCaseID(),
		BatesPrefix:      "ABC",
		BatesStartNumber: start,
		PadWidth:         DefaultPadWidth,
		Status:           StatusDraft,
	}
}

func TestFormatBates(t *testing.T) {
	assert.Equal(t, "ABC0000004", FormatBates("ABC", 4, 7))
	assert.Equal(t, "X-12", FormatBates("X-", 12, 1))
	assert.Equal(t, "P123456789", FormatBates("P", 123456789, 3))
}

func TestNormalizePrefix(t *testing.T) {
	p, err := NormalizePrefix(" abc_ ")
	require.NoError(t, err)
	assert.Equal(t, "ABC_", p)

	for _, bad := range []string{"", "-ABC", "AB C", "ÄBC", "ABCDEFGHIJKLMNOPQRSTU"} {
		_, err := NormalizePrefix(bad)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), bad)
	}
}

func TestApplyDocumentIsContiguous(t *testing.T) {
	p := newProduction(1)
	for i := 0; i < 3; i++ {
		p.ApplyDocument(id.NewEvidenceID(), "", 2, false, "paralegal", now)
	}

	assert.Equal(t, 3, p.TotalDocuments)
	assert.Equal(t, 6, p.TotalPages)
	assert.Equal(t, int64(3), p.BatesEndNumber)
	assert.Equal(t, int64(4), p.NextNumber())
	for i, d := range p.Documents {
		assert.Equal(t, int64(i+1), d.BatesNumeric)
	}
	assert.Equal(t, "ABC0000003", p.Documents[2].BatesNumber)
}

func TestRebase(t *testing.T) {
	p := newProduction(4)
	require.NoError(t, p.Rebase(9))
	assert.Equal(t, int64(9), p.BatesStartNumber)

	p.ApplyDocument(id.NewEvidenceID(), "", 1, false, "x", now)
	assert.True(t, dErrors.HasCode(p.Rebase(20), dErrors.CodeInvariantViolation))
}

func TestLifecycleOneStepAtATime(t *testing.T) {
	p := newProduction(1)

	assert.True(t, dErrors.HasCode(p.CanTransitionTo(StatusApproved), dErrors.CodeInvalidTransition))
	require.NoError(t, p.CanTransitionTo(StatusInProgress))
	p.ApplyTransition(StatusInProgress, "lead", now)
	require.NoError(t, p.CanAddDocument())

	assert.True(t, dErrors.HasCode(p.CanTransitionTo(StatusReadyForReview), dErrors.CodeInvalidTransition), "empty productions cannot go to review")
	p.ApplyDocument(id.NewEvidenceID(), "", 1, false, "x", now)

	for _, to := range []Status{StatusReadyForReview, StatusApproved, StatusDelivered, StatusCompleted} {
		require.NoError(t, p.CanTransitionTo(to), to)
		p.ApplyTransition(to, "lead", now)
	}
	assert.Len(t, p.Transitions, 5)
	assert.True(t, dErrors.HasCode(p.CanAddDocument(), dErrors.CodeInvalidTransition))
	assert.True(t, dErrors.HasCode(p.CanTransitionTo(StatusDraft), dErrors.CodeInvalidTransition))
}

func TestWithdrawEvidenceKeepsNumbers(t *testing.T) {
	p := newProduction(1)
	target := id.NewEvidenceID()
	p.ApplyDocument(id.NewEvidenceID(), "", 1, false, "x", now)
	p.ApplyDocument(target, "", 1, true, "x", now)

	assert.Equal(t, 1, p.WithdrawEvidence(target, now))
	assert.Equal(t, 0, p.WithdrawEvidence(target, now))
	assert.True(t, p.Documents[1].Withdrawn)
	assert.Equal(t, "ABC0000002", p.Documents[1].BatesNumber)
	assert.Equal(t, 2, p.TotalDocuments)
}
