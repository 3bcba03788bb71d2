package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCount(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveAvailability(OutcomeOK, 2, 15*time.Millisecond)
	m.ObserveAvailability(OutcomeNoAvailability, 8, time.Millisecond)
	m.ObserveAvailability(OutcomeSuperseded, 0, time.Millisecond)
	m.AppointmentCreated("biz-1")
	m.AppointmentCreated("biz-1")
	m.AppointmentCancelled("biz-1")
	m.CancelRejected("past")
	m.OutboxPublished("booking.appointment.booked.v1")

	if got := testutil.ToFloat64(m.availabilityTotal.WithLabelValues(OutcomeOK)); got != 1 {
		t.Fatalf("ok outcomes = %v", got)
	}
	if got := testutil.ToFloat64(m.appointmentsTotal.WithLabelValues("created")); got != 2 {
		t.Fatalf("created = %v", got)
	}
	if got := testutil.ToFloat64(m.cancelRejected.WithLabelValues("past")); got != 1 {
		t.Fatalf("rejected = %v", got)
	}
	if got := testutil.CollectAndCount(m.weeksScanned); got != 1 {
		t.Fatalf("weeks histogram series = %d", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAvailability(OutcomeError, 1, time.Second)
	m.AppointmentCreated("biz-1")
	m.AppointmentCancelled("biz-1")
	m.CancelRejected("cancelled")
	m.OutboxPublished("x")
}
