// Package metrics provides internal Prometheus instrumentation for the
// simulation. This package is internal and should not be imported by
// external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector bundles the simulation's Prometheus metrics. A nil *Collector is
// valid and records nothing, so callers never need nil checks at call sites.
type Collector struct {
	turnsTotal          *prometheus.CounterVec
	generationFailures  *prometheus.CounterVec
	ackTimeouts         *prometheus.CounterVec
	generationDuration  *prometheus.HistogramVec
	activeRooms         prometheus.Gauge
	sessionsStarted     prometheus.Counter
	persistenceFailures prometheus.Counter
}

// NewCollector registers the simulation metrics with the given registerer.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		turnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total number of generated conversation turns",
		}, []string{"room", "role"}),
		generationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_failures_total",
			Help:      "Total number of failed turn generations",
		}, []string{"room"}),
		ackTimeouts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ack_timeouts_total",
			Help:      "Total number of playback acknowledgments that timed out",
		}, []string{"room"}),
		generationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Latency of turn generation calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"role"}),
		activeRooms: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of rooms with a running conversation",
		}),
		sessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Total number of sessions started",
		}),
		persistenceFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Total number of failed session store writes",
		}),
	}
}

// TurnGenerated records a successful turn and its generation latency.
func (c *Collector) TurnGenerated(room string, role string, dur time.Duration) {
	if c == nil {
		return
	}
	c.turnsTotal.WithLabelValues(room, role).Inc()
	c.generationDuration.WithLabelValues(role).Observe(dur.Seconds())
}

// GenerationFailed records a failed generation call.
func (c *Collector) GenerationFailed(room string) {
	if c == nil {
		return
	}
	c.generationFailures.WithLabelValues(room).Inc()
}

// AckTimedOut records a playback acknowledgment that hit the fallback timeout.
func (c *Collector) AckTimedOut(room string) {
	if c == nil {
		return
	}
	c.ackTimeouts.WithLabelValues(room).Inc()
}

// SessionStarted records a session start and bumps the active room gauge.
func (c *Collector) SessionStarted() {
	if c == nil {
		return
	}
	c.sessionsStarted.Inc()
	c.activeRooms.Inc()
}

// SessionEnded lowers the active room gauge.
func (c *Collector) SessionEnded() {
	if c == nil {
		return
	}
	c.activeRooms.Dec()
}

// PersistenceFailed records a failed session store write.
func (c *Collector) PersistenceFailed() {
	if c == nil {
		return
	}
	c.persistenceFailures.Inc()
}
