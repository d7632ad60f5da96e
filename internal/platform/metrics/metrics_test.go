package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.EvidenceCollected.Inc()
	m.IncCustodyEntry("Collected")
	m.IncCustodyEntry("Collected")
	m.IncProcessing("failed")
	m.ObserveRequest("GET", "/evidence/{evidenceID}", "200", time.Now())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.EvidenceCollected))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CustodyEntries.WithLabelValues("Collected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProcessingOutcomes.WithLabelValues("failed")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNewTwiceOnSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
