package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DispatchMetrics records delivery attempts per channel.
type DispatchMetrics struct {
	attempts *prometheus.CounterVec
	outcomes *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewDispatchMetrics registers the dispatch metrics on the provided registerer.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return &DispatchMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_delivery_attempts",
		Help: "Delivery attempts per channel.",
	}, []string{"channel"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_delivery_outcomes",
		Help: "Terminal delivery outcomes per channel.",
	}, []string{"channel", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notification_delivery_seconds",
		Help:    "Time spent sending a notification to a channel.",
		Buckets: prometheus.DefBuckets,
	}, []string{"channel"})
	reg.MustRegister(attempts, outcomes, latency)
	return &DispatchMetrics{
		attempts: attempts,
		outcomes: outcomes,
		latency:  latency,
	}
}

// IncAttempt increments the attempt counter for a channel.
func (d *DispatchMetrics) IncAttempt(channel string) {
	if d == nil || d.attempts == nil {
		return
	}
	d.attempts.WithLabelValues(normalizeLabel(channel)).Inc()
}

// IncOutcome increments the terminal outcome counter for a channel.
func (d *DispatchMetrics) IncOutcome(channel, outcome string) {
	if d == nil || d.outcomes == nil {
		return
	}
	d.outcomes.WithLabelValues(normalizeLabel(channel), normalizeLabel(outcome)).Inc()
}

// ObserveLatency records how long a channel send took.
func (d *DispatchMetrics) ObserveLatency(channel string, duration time.Duration) {
	if d == nil || d.latency == nil {
		return
	}
	d.latency.WithLabelValues(normalizeLabel(channel)).Observe(duration.Seconds())
}
