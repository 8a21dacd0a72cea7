// Package metrics exposes Prometheus counters for coaching sessions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Frame error kinds.
const (
	FrameErrorDecode         = "decode"
	FrameErrorPerception     = "perception"
	FrameErrorRateLimited    = "rate_limited"
	FrameErrorNotInitialized = "not_initialized"
)

// Metrics holds the coach's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	SessionsActive   prometheus.Gauge
	SessionsTotal    prometheus.Counter
	SessionDuration  prometheus.Histogram
	FramesTotal      *prometheus.CounterVec
	FeedbackSpoken   *prometheus.CounterVec
	FrameErrorsTotal *prometheus.CounterVec
	PerceptionTime   *prometheus.HistogramVec
}

func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "asana_coach"
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of connected coaching sessions",
		}),
		SessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of coaching sessions accepted",
		}),
		SessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Coaching session duration in seconds",
			Buckets:   []float64{10, 30, 60, 120, 300, 600, 1800, 3600},
		}),
		FramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frames evaluated, by feedback outcome",
		}, []string{"outcome"}),
		FeedbackSpoken: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_spoken_total",
			Help:      "Feedback phrases emitted past the cooldown, by outcome",
		}, []string{"outcome"}),
		FrameErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_errors_total",
			Help:      "Frames answered with an error, by kind",
		}, []string{"kind"}),
		PerceptionTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "perception_duration_seconds",
			Help:      "Pose sidecar latency in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"stage"}),
	}

	registry.MustRegister(
		m.SessionsActive,
		m.SessionsTotal,
		m.SessionDuration,
		m.FramesTotal,
		m.FeedbackSpoken,
		m.FrameErrorsTotal,
		m.PerceptionTime,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.SessionsActive.Inc()
	m.SessionsTotal.Inc()
}

func (m *Metrics) SessionEnded(d time.Duration) {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
	m.SessionDuration.Observe(d.Seconds())
}

// RecordFrame counts one evaluated frame and, when emitted, its spoken reply.
func (m *Metrics) RecordFrame(outcome string, emitted bool) {
	if m == nil {
		return
	}
	m.FramesTotal.WithLabelValues(outcome).Inc()
	if emitted {
		m.FeedbackSpoken.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) RecordFrameError(kind string) {
	if m == nil {
		return
	}
	m.FrameErrorsTotal.WithLabelValues(kind).Inc()
}

// ObservePerception records sidecar latency for stage ("detect" or "compare").
func (m *Metrics) ObservePerception(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.PerceptionTime.WithLabelValues(stage).Observe(d.Seconds())
}
