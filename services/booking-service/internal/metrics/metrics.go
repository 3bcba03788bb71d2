// Package metrics exposes Prometheus collectors for availability and the appointment
// lifecycle. A nil *Metrics is a valid no-op.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/appointments"
)

const (
	OutcomeOK             = "ok"
	OutcomeNoAvailability = "no_availability"
	OutcomeNotConfigured  = "not_configured"
	OutcomeSuperseded     = "superseded"
	OutcomeError          = "error"
)

type Metrics struct {
	availabilityTotal   *prometheus.CounterVec
	weeksScanned        prometheus.Histogram
	availabilityLatency prometheus.Histogram
	appointmentsTotal   *prometheus.CounterVec
	cancelRejected      *prometheus.CounterVec
	outboxPublished     *prometheus.CounterVec
}

var _ appointments.Recorder = (*Metrics)(nil)

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		availabilityTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "availability",
			Name:      "requests_total",
			Help:      "Week availability computations by outcome",
		}, []string{"outcome"}),
		weeksScanned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "booking",
			Subsystem: "availability",
			Name:      "weeks_scanned",
			Help:      "Weeks examined before a week with slots was found or the lookahead ran out",
			Buckets:   prometheus.LinearBuckets(1, 1, 8),
		}),
		availabilityLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "booking",
			Subsystem: "availability",
			Name:      "compute_seconds",
			Help:      "Latency of snapshot load plus week computation",
			Buckets:   prometheus.DefBuckets,
		}),
		appointmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "appointments",
			Name:      "total",
			Help:      "Appointment lifecycle transitions",
		}, []string{"event"}),
		cancelRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "appointments",
			Name:      "cancel_rejected_total",
			Help:      "Cancellations refused, by reason",
		}, []string{"reason"}),
		outboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "outbox",
			Name:      "published_total",
			Help:      "Outbox events relayed to Kafka",
		}, []string{"event_type"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.availabilityTotal, m.weeksScanned, m.availabilityLatency,
		m.appointmentsTotal, m.cancelRejected, m.outboxPublished)
	return m
}

// ObserveAvailability records one week computation. weeks is ignored when zero.
func (m *Metrics) ObserveAvailability(outcome string, weeks int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.availabilityTotal.WithLabelValues(outcome).Inc()
	if weeks > 0 {
		m.weeksScanned.Observe(float64(weeks))
	}
	m.availabilityLatency.Observe(elapsed.Seconds())
}

func (m *Metrics) AppointmentCreated(string) {
	if m == nil {
		return
	}
	m.appointmentsTotal.WithLabelValues("created").Inc()
}

func (m *Metrics) AppointmentCancelled(string) {
	if m == nil {
		return
	}
	m.appointmentsTotal.WithLabelValues("cancelled").Inc()
}

func (m *Metrics) CancelRejected(reason string) {
	if m == nil {
		return
	}
	m.cancelRejected.WithLabelValues(reason).Inc()
}

// OutboxPublished matches outbox.Published.
func (m *Metrics) OutboxPublished(eventType string) {
	if m == nil {
		return
	}
	m.outboxPublished.WithLabelValues(eventType).Inc()
}
