// Package metrics exposes Prometheus counters for calls, turns, backend
// attempts, and the artifact cache.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mvp-scale/talkline/pkg/orchestrator"
)

// Metrics holds all Prometheus metrics for the call orchestrator.
type Metrics struct {
	registry *prometheus.Registry

	// Call metrics
	CallsActive  prometheus.Gauge
	CallsTotal   prometheus.Counter
	CallDuration prometheus.Histogram
	CallTurns    prometheus.Histogram

	// Turn metrics
	TurnsTotal prometheus.Counter

	// Backend attempt metrics
	BackendAttemptsTotal  *prometheus.CounterVec
	BackendAttemptSeconds *prometheus.HistogramVec

	// Artifact cache metrics
	ArtifactsStored prometheus.Gauge
	ArtifactsSwept  prometheus.Counter
}

// New creates a Metrics instance with all metrics registered on a fresh
// registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "talkline"
	}

	registry := prometheus.NewRegistry()

	callsActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "calls_active",
		Help:      "Number of live call sessions",
	})
	callsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "calls_total",
		Help:      "Total number of calls handled",
	})
	callDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "call_duration_seconds",
		Help:      "Call duration in seconds",
		Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1800},
	})
	callTurns := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "call_turns",
		Help:      "Conversation turns per call",
		Buckets:   []float64{1, 2, 5, 10, 20, 50},
	})
	turnsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "turns_total",
		Help:      "Total number of completed conversation turns",
	})
	backendAttemptsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_attempts_total",
			Help:      "Backend provider attempts by outcome",
		},
		[]string{"capability", "provider", "outcome"},
	)
	backendAttemptSeconds := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_attempt_duration_seconds",
			Help:      "Backend provider attempt duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"capability", "provider"},
	)
	artifactsStored := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "artifacts_stored",
		Help:      "Audio artifacts currently cached",
	})
	artifactsSwept := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "artifacts_swept_total",
		Help:      "Audio artifacts removed by the age sweep",
	})

	registry.MustRegister(
		callsActive,
		callsTotal,
		callDuration,
		callTurns,
		turnsTotal,
		backendAttemptsTotal,
		backendAttemptSeconds,
		artifactsStored,
		artifactsSwept,
	)

	return &Metrics{
		registry:              registry,
		CallsActive:           callsActive,
		CallsTotal:            callsTotal,
		CallDuration:          callDuration,
		CallTurns:             callTurns,
		TurnsTotal:            turnsTotal,
		BackendAttemptsTotal:  backendAttemptsTotal,
		BackendAttemptSeconds: backendAttemptSeconds,
		ArtifactsStored:       artifactsStored,
		ArtifactsSwept:        artifactsSwept,
	}
}

// Handler returns the metrics endpoint handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveAttempt records one backend provider attempt. It satisfies the
// backend attempt observer signature.
func (m *Metrics) ObserveAttempt(capability, provider, outcome string, elapsed time.Duration) {
	m.BackendAttemptsTotal.WithLabelValues(capability, provider, outcome).Inc()
	m.BackendAttemptSeconds.WithLabelValues(capability, provider).Observe(elapsed.Seconds())
}

// Observer wires call lifecycle counters into the orchestrator.
func (m *Metrics) Observer() orchestrator.Observer {
	return orchestrator.Observer{
		CallStarted: func() {
			m.CallsActive.Inc()
			m.CallsTotal.Inc()
		},
		CallEnded: func(turns int, duration time.Duration) {
			m.CallsActive.Dec()
			m.CallDuration.Observe(duration.Seconds())
			m.CallTurns.Observe(float64(turns))
		},
		TurnCompleted: func() {
			m.TurnsTotal.Inc()
		},
	}
}
