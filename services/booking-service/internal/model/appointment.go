package model

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when the requested document does not exist.
var ErrNotFound = errors.New("not found")

type AppointmentStatus string

const (
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Appointment is created once at booking time and only ever moves from confirmed to
// cancelled. End is fixed at creation. The service and staff display values are copied
// in so confirmation pages survive catalog edits.
type Appointment struct {
	ID             string            `json:"id"`
	BusinessID     string            `json:"business_id"`
	ServiceID      string            `json:"service_id"`
	StaffID        string            `json:"staff_id"`
	ClientName     string            `json:"client_name"`
	ClientEmail    string            `json:"client_email"`
	ClientPhone    string            `json:"client_phone"`
	Start          time.Time         `json:"start"`
	End            time.Time         `json:"end"`
	Status         AppointmentStatus `json:"status"`
	ServiceTitle   string            `json:"service_title"`
	ServicePrice   float64           `json:"service_price"`
	StaffFirstName string            `json:"staff_first_name"`
	StaffLastName  string            `json:"staff_last_name"`
	CreatedAt      time.Time         `json:"created_at"`
	CancelledAt    *time.Time        `json:"cancelled_at,omitempty"`
}

// Blocks reports whether the appointment still occupies its staff member's time.
func (a Appointment) Blocks() bool {
	return a.Status != StatusCancelled
}

var (
	// ErrStatusChanged is returned by a conditional status update whose row no longer
	// has the expected status.
	ErrStatusChanged = errors.New("appointment status changed concurrently")
	// ErrOverlap is returned when a store refuses an appointment overlapping a confirmed one.
	ErrOverlap = errors.New("appointment overlaps an existing booking")
)
