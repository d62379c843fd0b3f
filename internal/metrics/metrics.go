// Package metrics exposes Prometheus instrumentation for audit runs and
// their external backend calls.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	AuditsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geopulse_audits_total",
			Help: "Total number of audits run",
		},
		[]string{"target_provider", "outcome"},
	)

	StageErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geopulse_stage_errors_total",
			Help: "Stage-local errors recorded during audits",
		},
		[]string{"stage"},
	)

	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geopulse_search_requests_total",
			Help: "Web search calls by backend and status",
		},
		[]string{"backend", "status"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geopulse_search_duration_seconds",
			Help:    "Duration of web search calls in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"backend"},
	)

	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geopulse_llm_requests_total",
			Help: "LLM calls by stage and status",
		},
		[]string{"stage", "status"},
	)

	LLMDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geopulse_llm_duration_seconds",
			Help:    "Duration of LLM calls in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)
)

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordAudit updates the audit counter for a finished run.
func RecordAudit(targetProvider string, failed bool) {
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	AuditsTotal.WithLabelValues(targetProvider, outcome).Inc()
}

// RecordStageError counts one stage-local error.
func RecordStageError(stage string) {
	StageErrorsTotal.WithLabelValues(stage).Inc()
}

// RecordSearch updates search call metrics.
func RecordSearch(backend string, d time.Duration, err error) {
	SearchRequestsTotal.WithLabelValues(backend, statusLabel(err)).Inc()
	SearchDuration.WithLabelValues(backend).Observe(d.Seconds())
}

// RecordLLMCall updates LLM call metrics for one pipeline stage.
func RecordLLMCall(stage string, d time.Duration, err error) {
	LLMRequestsTotal.WithLabelValues(stage, statusLabel(err)).Inc()
	LLMDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
