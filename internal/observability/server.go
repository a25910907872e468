// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Starfall Contributors

// Package observability provides HTTP endpoints for metrics and health checks.
package observability

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"
)

// ReadinessChecker returns whether the tier is ready to accept connections.
type ReadinessChecker func() bool

// sendFailures is a package-level counter for client send failures. Handlers
// increment it without needing access to the Server instance.
var sendFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "starfall_send_failures_total",
		Help: "Total number of failed client message sends by message type",
	},
	[]string{"message"},
)

// RecordSendFailure increments the send failure counter.
func RecordSendFailure(message string) {
	sendFailures.WithLabelValues(message).Inc()
}

// Metrics contains custom Prometheus metrics for Starfall tiers.
type Metrics struct {
	AuthResultsTotal       *prometheus.CounterVec
	ConnectionsTotal       *prometheus.CounterVec
	KicksProcessedTotal    prometheus.Counter
	KicksStaleSkippedTotal prometheus.Counter
	KickPollFailuresTotal  prometheus.Counter
}

// NewMetrics creates and registers custom Starfall metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthResultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "starfall_auth_results_total",
				Help: "Total number of authentication attempts by result code",
			},
			[]string{"code"},
		),
		ConnectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "starfall_connections_total",
				Help: "Total number of client connections by state",
			},
			[]string{"state"},
		),
		KicksProcessedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "starfall_kicks_processed_total",
				Help: "Total number of kick requests processed by the poller",
			},
		),
		KicksStaleSkippedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "starfall_kicks_stale_skipped_total",
				Help: "Total number of kick requests skipped because a newer login superseded them",
			},
		),
		KickPollFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "starfall_kick_poll_failures_total",
				Help: "Total number of failed kick poll cycles",
			},
		),
	}

	reg.MustRegister(m.AuthResultsTotal)
	reg.MustRegister(m.ConnectionsTotal)
	reg.MustRegister(m.KicksProcessedTotal)
	reg.MustRegister(m.KicksStaleSkippedTotal)
	reg.MustRegister(m.KickPollFailuresTotal)
	reg.MustRegister(sendFailures)

	return m
}

// Server provides HTTP endpoints for observability (metrics and health probes).
type Server struct {
	addr       string
	listener   net.Listener
	httpServer *http.Server
	registry   *prometheus.Registry
	metrics    *Metrics
	isReady    ReadinessChecker
	running    atomic.Bool
}

// NewServer creates a new observability server.
// addr: listen address in "host:port" format (e.g., "127.0.0.1:9100", ":9100" for all interfaces).
func NewServer(addr string, readinessChecker ReadinessChecker) *Server {
	// Separate registry to avoid polluting the global one.
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics := NewMetrics(registry)

	return &Server{
		addr:     addr,
		registry: registry,
		metrics:  metrics,
		isReady:  readinessChecker,
	}
}

// Metrics returns the custom metrics for recording application events.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start begins serving observability endpoints.
// It returns an error channel that will receive any errors from the HTTP server
// after it starts. The channel is closed when the server stops gracefully.
// Callers should monitor this channel to detect server failures.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("observability server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	// Kubernetes-style health probes
	mux.HandleFunc("/healthz/liveness", s.handleLiveness)
	mux.HandleFunc("/healthz/readiness", s.handleReadiness)

	httpSrv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		// Use local httpSrv to avoid race with subsequent Start() calls
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("observability server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	slog.Info("observability server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the observability server.
func (s *Server) Stop(ctx context.Context) error {
	// CompareAndSwap prevents a race with a concurrent Start().
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			// Restore running state on failure so the server can be stopped again
			s.running.Store(true)
			return oops.With("operation", "shutdown_observability_server").Wrap(err)
		}
	}

	slog.Info("observability server stopped")
	return nil
}

// Addr returns the address the server is listening on.
// Returns empty string if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// handleLiveness returns 200 if the process is running.
func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // health check write error is acceptable, client may disconnect
	w.Write([]byte("ok\n"))
}

// handleReadiness returns 200 if the tier is ready to accept connections,
// or 503 if not ready.
func (s *Server) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if s.isReady == nil || s.isReady() {
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck // health check write error is acceptable, client may disconnect
		w.Write([]byte("ok\n"))
		return
	}

	w.WriteHeader(http.StatusServiceUnavailable)
	//nolint:errcheck // health check write error is acceptable, client may disconnect
	w.Write([]byte("not ready\n"))
}
