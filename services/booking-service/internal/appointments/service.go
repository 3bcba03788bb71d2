// Package appointments implements the appointment lifecycle: create, cancel, details and
// client history.
package appointments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/model"
)

const UnknownServiceTitle = "Service inconnu"

var (
	// ErrNotCancellable is returned for appointments that are not confirmed or not in
	// the future. The stored appointment is left unchanged.
	ErrNotCancellable = errors.New("appointments: appointment cannot be cancelled")
	// ErrSlotTaken is returned when overlap rejection is on and the staff member was
	// booked concurrently.
	ErrSlotTaken = errors.New("appointments: slot already taken")
	// ErrInvalidDraft is returned for drafts missing required fields.
	ErrInvalidDraft = errors.New("appointments: invalid draft")
)

// Store persists appointments. Get returns model.ErrNotFound for unknown ids.
type Store interface {
	CreateAppointment(ctx context.Context, appt model.Appointment, opts CreateOptions) error
	GetAppointment(ctx context.Context, id string) (model.Appointment, error)
	// UpdateAppointmentStatus moves id from `from` to `to` and returns the updated row,
	// or model.ErrStatusChanged when the row is no longer in `from`.
	UpdateAppointmentStatus(ctx context.Context, id string, from, to model.AppointmentStatus, at time.Time) (model.Appointment, error)
	ListAppointmentsByClientEmail(ctx context.Context, email string) ([]model.Appointment, error)
}

type CreateOptions struct {
	// RejectOverlaps makes the store refuse an appointment overlapping a confirmed one
	// of the same staff member, checked inside the insert transaction.
	RejectOverlaps bool
	// Receipt, when set, is finalized in the insert transaction.
	Receipt *Receipt
}

// Receipt is the replayable outcome of a booking made under an Idempotency-Key. The
// store records it with the appointment, so a committed booking never leaves its key
// reserved but unanswered.
type Receipt struct {
	Key        string
	StatusCode int
	Body       func(model.Appointment) ([]byte, error)
}

// Lookup resolves display values for services and staff.
type Lookup interface {
	GetService(ctx context.Context, serviceID string) (model.Service, error)
	GetStaff(ctx context.Context, staffID string) (model.StaffMember, error)
}

// Recorder receives lifecycle outcomes. Nil methods are fine.
type Recorder interface {
	AppointmentCreated(businessID string)
	AppointmentCancelled(businessID string)
	CancelRejected(reason string)
}

type Draft struct {
	BusinessID string
	ServiceID  string
	StaffID    string
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Start      time.Time
	Duration   model.ServiceDuration
	Receipt    *Receipt
}

type Service struct {
	store    Store
	lookup   Lookup
	recorder Recorder
	logger   *slog.Logger
	opts     CreateOptions
	now      func() time.Time
	newID    func() string
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func WithRejectOverlaps(reject bool) Option {
	return func(s *Service) { s.opts.RejectOverlaps = reject }
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

func NewService(store Store, lookup Lookup, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:  store,
		lookup: lookup,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create persists a confirmed appointment ending Duration after Start. Availability is
// not re-checked unless overlap rejection is enabled.
func (s *Service) Create(ctx context.Context, d Draft) (model.Appointment, error) {
	if err := validateDraft(d); err != nil {
		return model.Appointment{}, err
	}

	appt := model.Appointment{
		ID:          s.newID(),
		BusinessID:  d.BusinessID,
		ServiceID:   d.ServiceID,
		StaffID:     d.StaffID,
		ClientName:  strings.TrimSpace(d.FirstName + " " + d.LastName),
		ClientEmail: strings.TrimSpace(d.Email),
		ClientPhone: strings.TrimSpace(d.Phone),
		Start:       d.Start,
		End:         d.Start.Add(d.Duration.Duration()),
		Status:      model.StatusConfirmed,
		CreatedAt:   s.now(),
	}
	svc, staff := s.resolve(ctx, appt)
	appt.ServiceTitle, appt.ServicePrice = svc.Title, svc.Price
	appt.StaffFirstName, appt.StaffLastName = staff.FirstName, staff.LastName

	opts := s.opts
	opts.Receipt = d.Receipt
	if err := s.store.CreateAppointment(ctx, appt, opts); err != nil {
		if errors.Is(err, model.ErrOverlap) {
			return model.Appointment{}, fmt.Errorf("%w: %w", ErrSlotTaken, err)
		}
		return model.Appointment{}, fmt.Errorf("appointments: create: %w", err)
	}
	if s.recorder != nil {
		s.recorder.AppointmentCreated(appt.BusinessID)
	}
	s.logger.Info("appointment created",
		"appointment_id", appt.ID,
		"business_id", appt.BusinessID,
		"staff_id", appt.StaffID,
		"start", appt.Start,
	)
	return appt, nil
}

func validateDraft(d Draft) error {
	var missing []string
	for name, v := range map[string]string{
		"business_id": d.BusinessID,
		"service_id":  d.ServiceID,
		"staff_id":    d.StaffID,
		"email":       d.Email,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: missing %s", ErrInvalidDraft, strings.Join(missing, ", "))
	}
	if d.Start.IsZero() {
		return fmt.Errorf("%w: missing start", ErrInvalidDraft)
	}
	if !d.Duration.Valid() {
		return fmt.Errorf("%w: duration %dh%02dm", ErrInvalidDraft, d.Duration.Hours, d.Duration.Minutes)
	}
	return nil
}

// Cancellable reports whether appt may still be cancelled at now.
func Cancellable(appt model.Appointment, now time.Time) bool {
	return appt.Status == model.StatusConfirmed && appt.Start.After(now)
}

// Cancel moves a confirmed, future appointment to cancelled. Cancelling twice fails with
// ErrNotCancellable.
func (s *Service) Cancel(ctx context.Context, id string) (model.Appointment, error) {
	appt, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("appointments: get %s: %w", id, err)
	}
	now := s.now()
	if !Cancellable(appt, now) {
		reason := "past"
		if appt.Status != model.StatusConfirmed {
			reason = string(appt.Status)
		}
		s.rejected(reason)
		return appt, fmt.Errorf("%w: %s", ErrNotCancellable, reason)
	}

	updated, err := s.store.UpdateAppointmentStatus(ctx, id, model.StatusConfirmed, model.StatusCancelled, now)
	if errors.Is(err, model.ErrStatusChanged) {
		s.rejected("concurrent")
		return appt, fmt.Errorf("%w: %w", ErrNotCancellable, err)
	}
	if err != nil {
		return model.Appointment{}, fmt.Errorf("appointments: cancel %s: %w", id, err)
	}
	if s.recorder != nil {
		s.recorder.AppointmentCancelled(updated.BusinessID)
	}
	s.logger.Info("appointment cancelled", "appointment_id", id, "business_id", updated.BusinessID)
	return updated, nil
}

func (s *Service) rejected(reason string) {
	if s.recorder != nil {
		s.recorder.CancelRejected(reason)
	}
}
