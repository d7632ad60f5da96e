// Package kafka builds the franz-go client used to stream custody entries.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"evidex/internal/platform/config"
)

const defaultClientID = "evidex"

// Client owns the producer connection and the topic it writes to.
type Client struct {
	*kgo.Client
	Topic string
}

// New connects to cfg.Brokers. Returns nil, nil when publishing is disabled.
func New(ctx context.Context, cfg config.KafkaConfig) (*Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required when brokers are set")
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = defaultClientID
	}

	cl, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(clientID),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5*time.Millisecond),
		kgo.RecordDeliveryTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := cl.Ping(pingCtx); err != nil {
		cl.Close()
		return nil, fmt.Errorf("kafka ping failed: %w", err)
	}
	return &Client{Client: cl, Topic: cfg.Topic}, nil
}

// EnsureTopic creates the topic if it does not exist yet.
func (c *Client) EnsureTopic(ctx context.Context, partitions int32, replication int16) error {
	adm := kadm.NewClient(c.Client)
	resp, err := adm.CreateTopics(ctx, partitions, replication, nil, c.Topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", c.Topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

// Health pings the brokers.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx)
}
