// Package source assembles availability snapshots from the catalog (staff, hours,
// services) and the appointment store.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/model"
)

// Catalog is the business-owned configuration. Get* methods return model.ErrNotFound
// for absent documents.
type Catalog interface {
	ListStaff(ctx context.Context, businessID string) ([]model.StaffMember, error)
	GetStaff(ctx context.Context, staffID string) (model.StaffMember, error)
	GetBusinessHours(ctx context.Context, businessID string) (model.WeeklyHours, error)
	GetStaffHours(ctx context.Context, staffID string) (model.WeeklyHours, error)
	ListServices(ctx context.Context, businessID string) ([]model.Service, error)
	GetService(ctx context.Context, serviceID string) (model.Service, error)
}

// AppointmentReader lists a business's appointments of every status starting in
// [from, to).
type AppointmentReader interface {
	ListAppointments(ctx context.Context, businessID string, from, to time.Time) ([]model.Appointment, error)
}

// staffHoursConcurrency caps the per-staff hours fan-out.
const staffHoursConcurrency = 8

type Loader struct {
	catalog      Catalog
	appointments AppointmentReader
	loc          *time.Location
}

// NewLoader returns a Loader that converts appointment instants to loc, the business
// wall clock.
func NewLoader(catalog Catalog, appointments AppointmentReader, loc *time.Location) *Loader {
	if loc == nil {
		loc = time.UTC
	}
	return &Loader{catalog: catalog, appointments: appointments, loc: loc}
}

func (l *Loader) Location() *time.Location {
	return l.loc
}

// Load reads staff, business hours and appointments concurrently, then each staff
// member's hours. Absent hours are left out of the snapshot; the engine decides whether
// that is a configuration error.
func (l *Loader) Load(ctx context.Context, businessID string, from, to time.Time) (*availability.Snapshot, error) {
	ctx, span := otel.Tracer("booking-service/source").Start(ctx, "source.Load")
	defer span.End()
	span.SetAttributes(attribute.String("business.id", businessID))

	snap := &availability.Snapshot{StaffHours: map[string]model.WeeklyHours{}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		staff, err := l.catalog.ListStaff(gctx, businessID)
		if err != nil {
			return fmt.Errorf("source: list staff: %w", err)
		}
		snap.Staff = staff
		return nil
	})
	g.Go(func() error {
		hours, err := l.catalog.GetBusinessHours(gctx, businessID)
		if errors.Is(err, model.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("source: business hours: %w", err)
		}
		snap.BusinessHours = hours
		return nil
	})
	g.Go(func() error {
		appts, err := l.appointments.ListAppointments(gctx, businessID, from, to)
		if err != nil {
			return fmt.Errorf("source: list appointments: %w", err)
		}
		for i := range appts {
			appts[i].Start = appts[i].Start.In(l.loc)
			appts[i].End = appts[i].End.In(l.loc)
		}
		snap.Appointments = appts
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	hours := make([]model.WeeklyHours, len(snap.Staff))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(staffHoursConcurrency)
	for i, m := range snap.Staff {
		g.Go(func() error {
			h, err := l.catalog.GetStaffHours(gctx, m.ID)
			if errors.Is(err, model.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("source: staff hours %s: %w", m.ID, err)
			}
			hours[i] = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	for i, m := range snap.Staff {
		if hours[i] != nil {
			snap.StaffHours[m.ID] = hours[i]
		}
	}

	span.SetAttributes(
		attribute.Int("snapshot.staff", len(snap.Staff)),
		attribute.Int("snapshot.appointments", len(snap.Appointments)),
	)
	return snap, nil
}
