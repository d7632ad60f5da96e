package casedir

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evidex/internal/platform/config"
	id "evidex/pkg/domain"
)

func TestFromConfig(t *testing.T) {
	raw := uuid.NewString()
	dir, err := FromConfig([]config.CaseEntry{{ID: raw, Title: "Acme v. Globex", Client: "Acme"}})
	require.NoError(t, err)

	caseID, err := id.ParseCaseID(raw)
	require.NoError(t, err)
	c, ok := dir.Lookup(caseID)
	require.True(t, ok)
	assert.Equal(t, "Acme v. Globex", c.Title)
	assert.Equal(t, "Acme v. Globex", Title(dir, caseID))
	assert.Empty(t, Title(dir, id.NewCaseID()))
	assert.Empty(t, Title(nil, caseID))
}

func TestFromConfigRejectsBadEntries(t *testing.T) {
	_, err := FromConfig([]config.CaseEntry{{ID: "not-a-uuid"}})
	assert.Error(t, err)

	raw := uuid.NewString()
	_, err = FromConfig([]config.CaseEntry{{ID: raw}, {ID: raw}})
	assert.Error(t, err)
}
