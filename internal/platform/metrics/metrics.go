package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	EvidenceCollected     prometheus.Counter
	ProcessingOutcomes    *prometheus.CounterVec
	CustodyEntries        *prometheus.CounterVec
	HoldsIssued           prometheus.Counter
	HoldsReleased         prometheus.Counter
	HoldAcknowledgements  prometheus.Counter
	BatesNumbersIssued    prometheus.Counter
	PrivilegedRejections  prometheus.Counter
	ClawbacksGranted      prometheus.Counter
	CustodyPublishFailure prometheus.Counter
	CustodyPublished      prometheus.Counter
	CustodyDropped        prometheus.Counter
	BreakerState          *prometheus.GaugeVec
	ContentCallDuration   *prometheus.HistogramVec
	RequestLatency        *prometheus.HistogramVec
}

// New registers all metrics with reg. Tests pass a fresh prometheus.NewRegistry()
// so repeated construction does not collide on the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EvidenceCollected: f.NewCounter(prometheus.CounterOpts{
			Name: "evidex_evidence_collected_total",
			Help: "Total number of evidence items collected",
		}),
		ProcessingOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "evidex_processing_items_total",
			Help: "Evidence items run through the processing pipeline, by outcome",
		}, []string{"outcome"}),
		CustodyEntries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "evidex_custody_entries_total",
			Help: "Custody ledger entries appended, by action",
		}, []string{"action"}),
		HoldsIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "evidex_legal_holds_issued_total",
			Help: "Total number of legal holds issued",
		}),
		HoldsReleased: f.NewCounter(prometheus.CounterOpts{
			Name: "evidex_legal_holds_released_total",
			Help: "Total number of legal holds released",
		}),
		HoldAcknowledgements: f.NewCounter(prometheus.CounterOpts{
			Name: "evidex_legal_hold_acknowledgements_total",
			Help: "Custodian acknowledgements that changed hold compliance",
		}),
		BatesNumbersIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "evidex_bates_numbers_issued_total",
			Help: "Total number of Bates numbers assigned to production documents",
		}),
		PrivilegedRejections: f.NewCounter(prometheus.CounterOpts{
			Name: "evidex_privileged_rejections_total",
			Help: "Production additions rejected because the evidence is withheld",
		}),
		ClawbacksGranted: f.NewCounter(prometheus.CounterOpts{
			Name: "evidex_clawbacks_granted_total",
			Help: "Clawback requests granted",
		}),
		CustodyPublishFailure: f.NewCounter(prometheus.CounterOpts{
			Name: "evidex_custody_publish_failures_total",
			Help: "Custody entries that could not be published to the event stream",
		}),
		CustodyPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "evidex_custody_published_total",
			Help: "Custody entries published to the event stream",
		}),
		CustodyDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "evidex_custody_dropped_total",
			Help: "Custody events dropped because the stream breaker was open or the queue was full",
		}),
		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "evidex_circuit_breaker_state",
			Help: "Circuit breaker state per dependency (0=closed, 1=open)",
		}, []string{"dependency"}),
		ContentCallDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "evidex_content_store_call_duration_seconds",
			Help:    "Content store call latency by operation and outcome",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "outcome"}),
		RequestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "evidex_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route", "status"}),
	}
}

// ObserveRequest records one request's latency.
func (m *Metrics) ObserveRequest(method, route, status string, start time.Time) {
	m.RequestLatency.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
}

// IncCustodyEntry counts one appended ledger entry.
func (m *Metrics) IncCustodyEntry(action string) {
	m.CustodyEntries.WithLabelValues(action).Inc()
}

// IncProcessing counts one pipeline item outcome ("processed" or "failed").
func (m *Metrics) IncProcessing(outcome string) {
	m.ProcessingOutcomes.WithLabelValues(outcome).Inc()
}

// SetBreakerState records whether the named dependency's breaker is open.
func (m *Metrics) SetBreakerState(dependency string, open bool) {
	v := 0.0
	if open {
		v = 1
	}
	m.BreakerState.WithLabelValues(dependency).Set(v)
}

// ObserveContentCall records one content store call.
func (m *Metrics) ObserveContentCall(operation string, err error, start time.Time) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ContentCallDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}
