package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"evidex/internal/platform/metrics"
	"evidex/pkg/platform/circuit"
)

// producer is the slice of *kgo.Client the publisher needs.
type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Kafka publishes events as JSON records keyed by evidence id. While the
// breaker is open, events are dropped and counted instead of blocking
// request handling on a dead broker.
type Kafka struct {
	producer producer
	topic    string
	breaker  *circuit.Breaker
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type KafkaOption func(*Kafka)

func WithLogger(logger *slog.Logger) KafkaOption {
	return func(k *Kafka) { k.logger = logger }
}

func WithMetrics(m *metrics.Metrics) KafkaOption {
	return func(k *Kafka) { k.metrics = m }
}

func WithBreaker(b *circuit.Breaker) KafkaOption {
	return func(k *Kafka) { k.breaker = b }
}

func NewKafka(p producer, topic string, opts ...KafkaOption) *Kafka {
	k := &Kafka{
		producer: p,
		topic:    topic,
		breaker:  circuit.New("custody-stream", circuit.WithFailureThreshold(3), circuit.WithSuccessThreshold(1)),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

func (k *Kafka) Publish(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}
	if !k.breaker.Allow() {
		if k.metrics != nil {
			k.metrics.CustodyDropped.Add(float64(len(events)))
		}
		return fmt.Errorf("custody stream breaker open: dropped %d events", len(events))
	}

	records := make([]*kgo.Record, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode custody event: %w", err)
		}
		records = append(records, &kgo.Record{
			Topic: k.topic,
			Key:   []byte(e.Key()),
			Value: value,
			Headers: []kgo.RecordHeader{
				{Key: "type", Value: []byte(e.Type)},
			},
		})
	}

	if err := k.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		_, change := k.breaker.RecordFailure()
		if change.Opened {
			k.breakerChanged(ctx, true)
		}
		return fmt.Errorf("produce custody events: %w", err)
	}
	_, change := k.breaker.RecordSuccess()
	if change.Closed {
		k.breakerChanged(ctx, false)
	}
	if k.metrics != nil {
		k.metrics.CustodyPublished.Add(float64(len(records)))
	}
	return nil
}

func (k *Kafka) breakerChanged(ctx context.Context, open bool) {
	if k.metrics != nil {
		k.metrics.SetBreakerState(k.breaker.Name(), open)
	}
	if k.logger == nil {
		return
	}
	if open {
		k.logger.WarnContext(ctx, "custody stream circuit opened", "topic", k.topic)
		return
	}
	k.logger.InfoContext(ctx, "custody stream circuit closed", "topic", k.topic)
}
