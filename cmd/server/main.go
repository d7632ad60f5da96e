package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"evidex/internal/casedir"
	"evidex/internal/contentstore"
	"evidex/internal/custody/ledger"
	evidenceHandler "evidex/internal/evidence/handler"
	"evidex/internal/evidence/processing"
	evidenceSvc "evidex/internal/evidence/service"
	holdHandler "evidex/internal/hold/handler"
	holdSvc "evidex/internal/hold/service"
	"evidex/internal/platform/config"
	"evidex/internal/platform/httpserver"
	"evidex/internal/platform/logger"
	"evidex/internal/platform/metrics"
	privilegeHandler "evidex/internal/privilege/handler"
	privilegeSvc "evidex/internal/privilege/service"
	productionHandler "evidex/internal/production/handler"
	productionSvc "evidex/internal/production/service"
	httptransport "evidex/internal/transport/http"
)

// main wires configuration, backing stores and the four eDiscovery modules,
// then serves until SIGINT or SIGTERM.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.LogLevel, cfg.Server.LogFormat)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("evidex stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	checks := map[string]httptransport.HealthCheck{}

	directory, err := casedir.FromConfig(cfg.Cases)
	if err != nil {
		return err
	}

	runner, closeStore, err := openStore(ctx, cfg.Database, log, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	locker, err := openLocker(ctx, cfg.Redis, log, checks)
	if err != nil {
		return err
	}

	content, err := openContentStore(ctx, cfg.Content, log)
	if err != nil {
		return err
	}
	if closer, ok := content.(interface{ Close() error }); ok {
		defer func() { _ = closer.Close() }()
	}

	g, gctx := errgroup.WithContext(ctx)

	publisher, err := openPublisher(ctx, cfg.Kafka, log, m, checks, g, gctx)
	if err != nil {
		return err
	}

	l := ledger.New(runner,
		ledger.WithLogger(log),
		ledger.WithMetrics(m),
		ledger.WithPublisher(publisher),
	)

	evidence := evidenceSvc.New(runner, l, contentstore.NewInstrumented(content, m),
		evidenceSvc.WithLogger(log),
		evidenceSvc.WithMetrics(m),
		evidenceSvc.WithPipelineOptions(
			processing.WithConcurrency(cfg.Pipeline.Concurrency),
			processing.WithItemTimeout(cfg.Pipeline.ItemTimeout),
		),
	)
	holds := holdSvc.New(runner, evidence, l,
		holdSvc.WithLogger(log),
		holdSvc.WithMetrics(m),
	)
	privilege := privilegeSvc.New(runner,
		privilegeSvc.WithLogger(log),
		privilegeSvc.WithMetrics(m),
	)
	productions := productionSvc.New(runner, l,
		productionSvc.WithLogger(log),
		productionSvc.WithMetrics(m),
		productionSvc.WithLocker(locker),
		productionSvc.WithDefaultPadWidth(cfg.Production.DefaultPadWidth),
	)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:         log,
		Metrics:        m,
		Gatherer:       reg,
		RequestTimeout: cfg.Server.RequestTimeout,
		Checks:         checks,
	},
		evidenceHandler.New(evidence, directory, log),
		holdHandler.New(holds, directory, log),
		privilegeHandler.New(privilege, directory, log),
		productionHandler.New(productions, directory, log),
	)
	srv := httpserver.New(cfg.Server, router)

	g.Go(func() error {
		log.Info("starting evidex", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
