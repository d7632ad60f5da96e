package main

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"evidex/internal/audit"
	"evidex/internal/contentstore"
	"evidex/internal/platform/config"
	"evidex/internal/platform/kafka"
	"evidex/internal/platform/metrics"
	"evidex/internal/platform/postgres"
	"evidex/internal/platform/redis"
	"evidex/internal/production/lock"
	"evidex/internal/storage"
	"evidex/internal/storage/memory"
	pgstore "evidex/internal/storage/postgres"
	httptransport "evidex/internal/transport/http"
)

const (
	custodyQueueSize   = 4096
	custodyPartitions  = 6
	custodyReplication = 1
)

// openStore picks Postgres when a database URL is configured, memory otherwise.
func openStore(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger, checks map[string]httptransport.HealthCheck) (storage.Runner, func(), error) {
	if cfg.URL == "" {
		log.Warn("no database configured, using in-memory store")
		return memory.New(memory.WithTimeout(cfg.TxTimeout)), func() {}, nil
	}
	db, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	checks["database"] = db.PingContext
	log.Info("connected to postgres")
	return pgstore.New(db, cfg.TxTimeout), func() { _ = db.Close() }, nil
}

// openLocker returns the Redis lease when Redis is configured. A single
// instance gets by with the in-process lock.
func openLocker(ctx context.Context, cfg config.RedisConfig, log *slog.Logger, checks map[string]httptransport.HealthCheck) (lock.Locker, error) {
	client, err := redis.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if client == nil {
		log.Info("no redis configured, bates series locks are process-local")
		return lock.NewLocal(), nil
	}
	checks["redis"] = client.Health
	return lock.NewRedis(client.Client, lock.WithLeaseTTL(cfg.LeaseTTL)), nil
}

func openContentStore(ctx context.Context, cfg config.ContentConfig, log *slog.Logger) (contentstore.Store, error) {
	switch cfg.Mode {
	case config.ContentStoreGCS:
		g, err := contentstore.NewGCS(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Info("evidence content in gcs", "bucket", cfg.Bucket, "ocr", cfg.Processor != "")
		return g, nil
	case config.ContentStoreMemory:
		return contentstore.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown content store mode %q", cfg.Mode)
	}
}

// openPublisher streams custody entries to Kafka through an async queue
// drained by a worker in g. Without brokers nothing is published.
func openPublisher(ctx context.Context, cfg config.KafkaConfig, log *slog.Logger, m *metrics.Metrics, checks map[string]httptransport.HealthCheck, g *errgroup.Group, gctx context.Context) (audit.Publisher, error) {
	client, err := kafka.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return audit.Nop{}, nil
	}
	if err := client.EnsureTopic(ctx, custodyPartitions, custodyReplication); err != nil {
		client.Close()
		return nil, err
	}
	checks["kafka"] = client.Health

	sink := audit.NewKafka(client.Client, client.Topic,
		audit.WithLogger(log),
		audit.WithMetrics(m),
	)
	async := audit.NewAsync(custodyQueueSize, m)
	worker := audit.NewWorker(sink, async.Inbox(), log, m)
	g.Go(func() error {
		defer client.Close()
		return worker.Run(gctx)
	})
	log.Info("streaming custody entries", "topic", client.Topic)
	return async, nil
}
