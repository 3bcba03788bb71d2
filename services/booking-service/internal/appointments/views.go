package appointments

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/model"
)

// View is an appointment whose service and staff display fields are filled in, plus
// whether it can still be cancelled.
type View struct {
	model.Appointment
	Cancellable bool `json:"cancellable"`
}

// Details returns the appointment with display values. Values copied at booking time
// win over the live catalog so edits after booking do not rewrite a confirmation.
func (s *Service) Details(ctx context.Context, id string) (View, error) {
	appt, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return View{}, fmt.Errorf("appointments: get %s: %w", id, err)
	}
	v := View{Appointment: appt, Cancellable: Cancellable(appt, s.now())}
	if appt.ServiceTitle != "" {
		return v, nil
	}
	svc, staff := s.resolve(ctx, appt)
	v.ServiceTitle, v.ServicePrice = svc.Title, svc.Price
	v.StaffFirstName, v.StaffLastName = staff.FirstName, staff.LastName
	return v, nil
}

// History lists the client's other confirmed or cancelled appointments, newest first.
// Service and staff values come from the live catalog with placeholders for deleted
// documents.
func (s *Service) History(ctx context.Context, email, excludeID string) ([]View, error) {
	appts, err := s.store.ListAppointmentsByClientEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("appointments: history: %w", err)
	}

	now := s.now()
	views := make([]View, 0, len(appts))
	for _, a := range appts {
		if a.ID == excludeID {
			continue
		}
		if a.Status != model.StatusConfirmed && a.Status != model.StatusCancelled {
			continue
		}
		svc, staff := s.resolve(ctx, a)
		a.ServiceTitle, a.ServicePrice = svc.Title, svc.Price
		a.StaffFirstName, a.StaffLastName = staff.FirstName, staff.LastName
		views = append(views, View{Appointment: a, Cancellable: Cancellable(a, now)})
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].Start.After(views[j].Start)
	})
	return views, nil
}

// HistoryFor is History for the client of appointment id, excluding that appointment.
func (s *Service) HistoryFor(ctx context.Context, id string) ([]View, error) {
	appt, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("appointments: get %s: %w", id, err)
	}
	return s.History(ctx, appt.ClientEmail, appt.ID)
}

// resolve looks up the service and staff of appt. Any lookup failure degrades to
// placeholder values.
func (s *Service) resolve(ctx context.Context, appt model.Appointment) (model.Service, model.StaffMember) {
	svc := model.Service{ID: appt.ServiceID, Title: UnknownServiceTitle}
	staff := model.StaffMember{ID: appt.StaffID}
	if s.lookup == nil {
		return svc, staff
	}

	if found, err := s.lookup.GetService(ctx, appt.ServiceID); err == nil {
		svc = found
		if svc.Title == "" {
			svc.Title = UnknownServiceTitle
		}
	} else if !errors.Is(err, model.ErrNotFound) {
		s.logger.Warn("service lookup failed", "service_id", appt.ServiceID, "err", err)
	}
	if found, err := s.lookup.GetStaff(ctx, appt.StaffID); err == nil {
		staff = found
	} else if !errors.Is(err, model.ErrNotFound) {
		s.logger.Warn("staff lookup failed", "staff_id", appt.StaffID, "err", err)
	}
	return svc, staff
}

