// Package httptransport assembles the public HTTP surface: shared middleware,
// health and metrics endpoints, and the per-module handlers.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"evidex/internal/platform/metrics"
	"evidex/pkg/platform/httputil"
	"evidex/pkg/platform/middleware/actor"
	"evidex/pkg/platform/middleware/metadata"
	"evidex/pkg/platform/middleware/request"
	"evidex/pkg/platform/middleware/requesttime"
)

// Registrar is implemented by every module handler.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether one backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// RouterConfig carries the cross-cutting pieces the router needs.
type RouterConfig struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	RequestTimeout time.Duration
	Checks         map[string]HealthCheck
}

const healthCheckTimeout = 2 * time.Second

// NewRouter mounts the handlers behind the shared middleware chain.
// /healthz and /metrics sit outside the actor requirement.
func NewRouter(cfg RouterConfig, handlers ...Registrar) chi.Router {
	r := chi.NewRouter()
	r.Use(request.Recovery(cfg.Logger))
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", healthz(cfg.Checks))
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(actor.RequireActor(cfg.Logger))
		r.Use(request.Logger(cfg.Logger))
		if cfg.RequestTimeout > 0 {
			r.Use(request.Timeout(cfg.RequestTimeout))
		}
		r.Use(request.LatencyMiddleware(cfg.Metrics))
		for _, h := range handlers {
			h.Register(r)
		}
	})
	return r
}

func healthz(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		httputil.WriteJSON(w, status, map[string]any{"checks": results})
	}
}
