package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	custody "evidex/internal/custody/models"
	"evidex/internal/platform/metrics"
	id "evidex/pkg/domain"
	"evidex/pkg/platform/circuit"
)

type fakeProducer struct {
	err     error
	records []*kgo.Record
	calls   int
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	f.calls++
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		if f.err == nil {
			f.records = append(f.records, r)
		}
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

func sampleEvent(t *testing.T) Event {
	t.Helper()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	entry, err := custody.NewEntry(id.NewEvidenceID(), nil, custody.Draft{
		Action:      custody.ActionCollected,
		PerformedBy: "collector",
	}, "", "", now)
	require.NoError(t, err)
	return NewCustodyEvent(id.NewCaseID(), "EVD-2024-00001", "req-1", entry, now)
}

func TestKafkaPublishesKeyedRecords(t *testing.T) {
	p := &fakeProducer{}
	m := metrics.New(prometheus.NewRegistry())
	k := NewKafka(p, "evidex.custody", WithMetrics(m))
	event := sampleEvent(t)

	require.NoError(t, k.Publish(context.Background(), event))
	require.Len(t, p.records, 1)
	rec := p.records[0]
	assert.Equal(t, "evidex.custody", rec.Topic)
	assert.Equal(t, event.Entry.EvidenceID.String(), string(rec.Key))

	var decoded Event
	require.NoError(t, json.Unmarshal(rec.Value, &decoded))
	assert.Equal(t, EventCustodyAppended, decoded.Type)
	assert.Equal(t, event.Entry.Hash, decoded.Entry.Hash)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CustodyPublished))
}

func TestKafkaBreakerDropsWhileOpen(t *testing.T) {
	p := &fakeProducer{err: errors.New("broker down")}
	m := metrics.New(prometheus.NewRegistry())
	breaker := circuit.New("custody-stream", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
	k := NewKafka(p, "evidex.custody", WithMetrics(m), WithBreaker(breaker))
	event := sampleEvent(t)

	assert.Error(t, k.Publish(context.Background(), event))
	assert.Error(t, k.Publish(context.Background(), event))
	assert.True(t, breaker.IsOpen())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BreakerState.WithLabelValues("custody-stream")))

	err := k.Publish(context.Background(), event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "breaker open")
	assert.Equal(t, 2, p.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CustodyDropped))
}

func TestAsyncDropsWhenFull(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	a := NewAsync(1, m)
	event := sampleEvent(t)

	require.NoError(t, a.Publish(context.Background(), event, event))
	assert.Len(t, a.Inbox(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CustodyDropped))
}

type failingSink struct{}

func (failingSink) Publish(context.Context, ...Event) error { return errors.New("nope") }

func TestWorkerDrainsAndSurvivesFailures(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	a := NewAsync(4, m)
	event := sampleEvent(t)
	require.NoError(t, a.Publish(context.Background(), event, event))

	sink := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewWorker(sink, a.Inbox(), nil, m).Run(ctx) }()

	assert.Eventually(t, func() bool { return len(sink.Events()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	w := NewWorker(failingSink{}, nil, nil, m)
	w.publish(context.Background(), event)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CustodyPublishFailure))
}
