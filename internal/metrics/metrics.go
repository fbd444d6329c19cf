// Package metrics exposes run progress as Prometheus gauges, following
// the same prometheus/client_golang + promhttp pairing the teacher uses
// for its own webserver metrics.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bcye/structured-wikivoyage-exports/internal/sink"
)

// Server exposes a /metrics endpoint reporting per-sink entry counts.
// It never fails a run on its own: a bind error is logged by the
// caller, not propagated into the pipeline's success/failure path.
type Server struct {
	registry *prometheus.Registry
	srv      *http.Server
}

// New registers one success and one failure gauge per sink name, each
// backed by calling snapshot(name), and prepares an HTTP server to
// serve them.
func New(addr string, sinkNames []string, snapshot func(name string) sink.Counts) (*Server, error) {
	registry := prometheus.NewRegistry()

	for _, name := range sinkNames {
		name := name
		if err := registry.Register(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace:   "wikivoyage_export",
				Name:        "sink_entries_total",
				Help:        "Number of entries written to this sink, by outcome.",
				ConstLabels: prometheus.Labels{"sink": name, "outcome": "success"},
			},
			func() float64 { return float64(snapshot(name).Success) },
		)); err != nil {
			return nil, fmt.Errorf("metrics: registering success gauge for %q: %w", name, err)
		}
		if err := registry.Register(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace:   "wikivoyage_export",
				Name:        "sink_entries_total",
				Help:        "Number of entries written to this sink, by outcome.",
				ConstLabels: prometheus.Labels{"sink": name, "outcome": "failure"},
			},
			func() float64 { return float64(snapshot(name).Failure) },
		)); err != nil {
			return nil, fmt.Errorf("metrics: registering failure gauge for %q: %w", name, err)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &Server{
		registry: registry,
		srv:      &http.Server{Addr: addr, Handler: mux},
	}, nil
}

// Serve starts serving /metrics and blocks until the listener fails or
// is shut down. http.ErrServerClosed is not treated as an error.
func (s *Server) Serve() error {
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the metrics HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
