// Package telemetry exposes sweep outcomes as Prometheus metrics and pushes
// per-sweep summaries to CloudWatch.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"costguard/internal/sweep"
	logx "costguard/pkg/logx"
)

// Metrics holds the process-wide Prometheus instruments.
type Metrics struct {
	registry *prometheus.Registry

	sweepsTotal   prometheus.Counter
	actionsTotal  *prometheus.CounterVec
	errorsTotal   prometheus.Counter
	sweepDuration prometheus.Histogram
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		sweepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "costguard_sweeps_total",
			Help: "Completed sweeps.",
		}),
		actionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "costguard_actions_total",
			Help: "Start/stop actions taken, by resource kind.",
		}, []string{"kind", "action"}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "costguard_sweep_errors_total",
			Help: "Per-resource errors recorded during sweeps.",
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "costguard_sweep_duration_seconds",
			Help:    "Wall time of one sweep.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		m.sweepsTotal, m.actionsTotal, m.errorsTotal, m.sweepDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveSweep records one summary.
func (m *Metrics) ObserveSweep(sum sweep.Summary) {
	m.sweepsTotal.Inc()
	m.errorsTotal.Add(float64(len(sum.Errors)))
	m.sweepDuration.Observe(sum.Duration.Seconds())
	for kind, c := range sum.Kinds {
		if c.Started > 0 {
			m.actionsTotal.WithLabelValues(kind, "start").Add(float64(c.Started))
		}
		if c.Stopped > 0 {
			m.actionsTotal.WithLabelValues(kind, "stop").Add(float64(c.Stopped))
		}
	}
}

// Handler serves the registry, for mounting at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Server is the optional metrics HTTP endpoint.
type Server struct {
	srv *http.Server
	log logx.Logger
}

func NewServer(addr string, metrics *Metrics, log logx.Logger) *Server {
	if addr == "" {
		addr = "127.0.0.1:9090"
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log: log,
	}
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("metrics server listening", logx.String("addr", s.srv.Addr))
		errCh <- s.srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
