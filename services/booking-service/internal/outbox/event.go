package outbox

import (
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/model"
)

// Event is the domain event envelope written to the outbox table. The Kafka topic
// name equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	BusinessID    string
	EventType     string
	Payload       []byte
}

const (
	AggregateAppointment = "appointment"
	AggregateCatalog     = "catalog"

	TopicAppointmentBooked    = "booking.appointment.booked.v1"
	TopicAppointmentCancelled = "booking.appointment.cancelled.v1"
	TopicCatalogChanged       = "booking.catalog.changed.v1"
)

// AppointmentPayload is the JSON body of both appointment topics. Consumers that send
// confirmations read the client and display fields from it.
type AppointmentPayload struct {
	AppointmentID string     `json:"appointment_id"`
	BusinessID    string     `json:"business_id"`
	ServiceID     string     `json:"service_id"`
	StaffID       string     `json:"staff_id"`
	ClientName    string     `json:"client_name"`
	ClientEmail   string     `json:"client_email"`
	ClientPhone   string     `json:"client_phone"`
	ServiceTitle  string     `json:"service_title"`
	StaffName     string     `json:"staff_name"`
	Start         time.Time  `json:"start"`
	End           time.Time  `json:"end"`
	Status        string     `json:"status"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

func AppointmentBooked(appt model.Appointment) (Event, error) {
	return appointmentEvent(TopicAppointmentBooked, appt, appt.CreatedAt)
}

func AppointmentCancelled(appt model.Appointment) (Event, error) {
	at := time.Now().UTC()
	if appt.CancelledAt != nil {
		at = *appt.CancelledAt
	}
	return appointmentEvent(TopicAppointmentCancelled, appt, at)
}

func appointmentEvent(topic string, appt model.Appointment, occurredAt time.Time) (Event, error) {
	payload, err := json.Marshal(AppointmentPayload{
		AppointmentID: appt.ID,
		BusinessID:    appt.BusinessID,
		ServiceID:     appt.ServiceID,
		StaffID:       appt.StaffID,
		ClientName:    appt.ClientName,
		ClientEmail:   appt.ClientEmail,
		ClientPhone:   appt.ClientPhone,
		ServiceTitle:  appt.ServiceTitle,
		StaffName:     model.StaffMember{FirstName: appt.StaffFirstName, LastName: appt.StaffLastName}.FullName(),
		Start:         appt.Start.UTC(),
		End:           appt.End.UTC(),
		Status:        string(appt.Status),
		CancelledAt:   appt.CancelledAt,
		OccurredAt:    occurredAt.UTC(),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: AggregateAppointment,
		AggregateID:   appt.ID,
		BusinessID:    appt.BusinessID,
		EventType:     topic,
		Payload:       payload,
	}, nil
}

// CatalogPayload names the catalog documents a write touched. Readers drop their cached
// copies of exactly these.
type CatalogPayload struct {
	BusinessID string    `json:"business_id"`
	StaffIDs   []string  `json:"staff_ids,omitempty"`
	ServiceIDs []string  `json:"service_ids,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func CatalogChanged(p CatalogPayload) (Event, error) {
	if p.OccurredAt.IsZero() {
		p.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: AggregateCatalog,
		AggregateID:   p.BusinessID,
		BusinessID:    p.BusinessID,
		EventType:     TopicCatalogChanged,
		Payload:       payload,
	}, nil
}
