// Package metrics exposes Prometheus instrumentation for the scheduling bot.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics counts scheduling-conversation activity.
type ConversationMetrics struct {
	turnsTotal          *prometheus.CounterVec
	bookingsCommitted   prometheus.Counter
	cancellationsTotal  prometheus.Counter
	classifierFallbacks *prometheus.CounterVec
	versionConflicts    prometheus.Counter
	gatewayLatency      *prometheus.HistogramVec
}

// NewConversationMetrics registers the conversation metric set. A nil
// registerer falls back to the default registry.
func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "citabot",
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Processed conversation turns by resulting step",
		}, []string{"step", "channel"}),
		bookingsCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "citabot",
			Subsystem: "conversation",
			Name:      "bookings_committed_total",
			Help:      "Bookings committed through the conversation flow",
		}),
		cancellationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "citabot",
			Subsystem: "conversation",
			Name:      "cancellations_total",
			Help:      "Sessions ended by user cancellation",
		}),
		classifierFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "citabot",
			Subsystem: "conversation",
			Name:      "classifier_fallbacks_total",
			Help:      "Turns routed to the AI fallback classifier",
		}, []string{"expected_type"}),
		versionConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "citabot",
			Subsystem: "conversation",
			Name:      "session_version_conflicts_total",
			Help:      "Optimistic-concurrency conflicts on session saves",
		}),
		gatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "citabot",
			Subsystem: "gateway",
			Name:      "request_seconds",
			Help:      "Latency of calendar and appointment gateway calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"gateway", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.turnsTotal, m.bookingsCommitted, m.cancellationsTotal,
		m.classifierFallbacks, m.versionConflicts, m.gatewayLatency,
	)
	return m
}

// ObserveTurn records a processed turn. Nil-safe so wiring stays optional.
func (m *ConversationMetrics) ObserveTurn(step, channel string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(step, channel).Inc()
}

func (m *ConversationMetrics) ObserveBookingCommitted() {
	if m == nil {
		return
	}
	m.bookingsCommitted.Inc()
}

func (m *ConversationMetrics) ObserveCancellation() {
	if m == nil {
		return
	}
	m.cancellationsTotal.Inc()
}

func (m *ConversationMetrics) ObserveClassifierFallback(expectedType string) {
	if m == nil {
		return
	}
	m.classifierFallbacks.WithLabelValues(expectedType).Inc()
}

func (m *ConversationMetrics) ObserveVersionConflict() {
	if m == nil {
		return
	}
	m.versionConflicts.Inc()
}

func (m *ConversationMetrics) ObserveGatewayLatency(gateway, status string, seconds float64) {
	if m == nil {
		return
	}
	m.gatewayLatency.WithLabelValues(gateway, status).Observe(seconds)
}
