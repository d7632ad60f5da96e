package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "evidex/pkg/domain"
	dErrors "evidex/pkg/domain-errors"
)

var now = time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

func newHold(t *testing.T, emails ...string) *Hold {
	t.Helper()
	custodians := make([]Custodian, len(emails))
	for i, e := range emails {
		custodians[i] = Custodian{Email: e}
	}
	h, err := NewHold(id.NewHoldID(), "HOLD-2024-001", id.NewCaseID(), "", "All email 2019-2023", custodians, "counsel", now)
	require.NoError(t, err)
	return h
}

func TestNewHold(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		h := newHold(t, "Jane.Doe@X.com")
		assert.Equal(t, StatusActive, h.Status)
		assert.Zero(t, h.ComplianceRate)
		assert.Equal(t, "jane.doe@x.com", h.Custodians[0].Email)
		assert.Equal(t, "Jane Doe", h.Custodians[0].Name)
		assert.Equal(t, "HOLD-2024-001", h.Title)
	})

	t.Run("duplicate emails rejected case-insensitively", func(t *testing.T) {
		_, err := NewHold(id.NewHoldID(), "H", id.NewCaseID(), "t", "scope",
			[]Custodian{{Email: "a@x.com"}, {Email: "A@X.COM"}}, "c", now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("empty email rejected", func(t *testing.T) {
		_, err := NewHold(id.NewHoldID(), "H", id.NewCaseID(), "t", "scope",
			[]Custodian{{Name: "No Mail"}}, "c", now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("no custodians rejected", func(t *testing.T) {
		_, err := NewHold(id.NewHoldID(), "H", id.NewCaseID(), "t", "scope", nil, "c", now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestAcknowledgeComplianceScenario(t *testing.T) {
	h := newHold(t, "a@x.com", "b@x.com")

	changed, err := h.Acknowledge("a@x.com", AckEmail, now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 0.5, h.ComplianceRate)

	changed, err = h.Acknowledge("A@x.com", AckPortal, now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 0.5, h.ComplianceRate)
	assert.Equal(t, AckEmail, h.Custodians[0].AcknowledgementMethod, "first acknowledgement wins")
	assert.Len(t, h.Custodians, 2)

	_, err = h.Acknowledge("b@x.com", AckSignedForm, now)
	require.NoError(t, err)
	assert.Equal(t, 1.0, h.ComplianceRate)
}

func TestAcknowledgeErrors(t *testing.T) {
	h := newHold(t, "a@x.com")

	_, err := h.Acknowledge("z@x.com", AckEmail, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = h.Acknowledge("a@x.com", "Telepathy", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	require.NoError(t, h.CanRelease())
	h.ApplyRelease("counsel", "settled", now)
	_, err = h.Acknowledge("a@x.com", AckEmail, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func TestReleaseIsTerminal(t *testing.T) {
	h := newHold(t, "a@x.com")
	require.NoError(t, h.CanRelease())
	h.ApplyRelease("counsel", " matter closed ", now)

	assert.Equal(t, StatusReleased, h.Status)
	assert.Equal(t, "matter closed", h.ReleaseReason)
	assert.True(t, dErrors.HasCode(h.CanRelease(), dErrors.CodeInvalidTransition))
}

func TestCloneIsDeep(t *testing.T) {
	h := newHold(t, "a@x.com")
	_, err := h.Acknowledge("a@x.com", AckEmail, now)
	require.NoError(t, err)

	c := h.Clone()
	*c.Custodians[0].AcknowledgedAt = now.Add(48 * time.Hour)
	assert.Equal(t, now, *h.Custodians[0].AcknowledgedAt)
}
