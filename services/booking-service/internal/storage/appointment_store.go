package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/bookingwidget/libs/db"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/appointments"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/source"
)

// AppointmentStore keeps appointments in Postgres. Every state change writes its
// domain event to the outbox in the same transaction.
type AppointmentStore struct {
	db     db.DBTX
	outbox *outbox.Repository
}

var (
	_ appointments.Store       = (*AppointmentStore)(nil)
	_ source.AppointmentReader = (*AppointmentStore)(nil)
)

func NewAppointmentStore(pool db.DBTX, events *outbox.Repository) *AppointmentStore {
	return &AppointmentStore{db: pool, outbox: events}
}

const appointmentColumns = `id::text, business_id, service_id, staff_id, client_name, client_email, client_phone,
	start_time, end_time, status, service_title, service_price, staff_first_name, staff_last_name,
	created_at, cancelled_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var (
		appt   model.Appointment
		status string
	)
	err := row.Scan(
		&appt.ID,
		&appt.BusinessID,
		&appt.ServiceID,
		&appt.StaffID,
		&appt.ClientName,
		&appt.ClientEmail,
		&appt.ClientPhone,
		&appt.Start,
		&appt.End,
		&status,
		&appt.ServiceTitle,
		&appt.ServicePrice,
		&appt.StaffFirstName,
		&appt.StaffLastName,
		&appt.CreatedAt,
		&appt.CancelledAt,
	)
	appt.Status = model.AppointmentStatus(status)
	return appt, err
}

func collectAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (s *AppointmentStore) CreateAppointment(ctx context.Context, appt model.Appointment, opts appointments.CreateOptions) error {
	evt, err := outbox.AppointmentBooked(appt)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if opts.RejectOverlaps {
		// Serializes bookings per staff member until commit.
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, appt.StaffID); err != nil {
			return err
		}
		var taken bool
		err := tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM appointments
				WHERE staff_id = $1
					AND status = 'confirmed'
					AND start_time < $3
					AND end_time > $2
			)
		`, appt.StaffID, appt.Start, appt.End).Scan(&taken)
		if err != nil {
			return err
		}
		if taken {
			return model.ErrOverlap
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO appointments
			(id, business_id, service_id, staff_id, client_name, client_email, client_phone,
			 start_time, end_time, status, service_title, service_price, staff_first_name, staff_last_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, appt.ID, appt.BusinessID, appt.ServiceID, appt.StaffID, appt.ClientName, appt.ClientEmail, appt.ClientPhone,
		appt.Start, appt.End, string(appt.Status), appt.ServiceTitle, appt.ServicePrice, appt.StaffFirstName, appt.StaffLastName,
		appt.CreatedAt)
	if err != nil {
		return err
	}
	if err := s.outbox.Insert(ctx, tx, evt); err != nil {
		return err
	}
	if r := opts.Receipt; r != nil {
		body, err := r.Body(appt)
		if err != nil {
			return err
		}
		if err := completeReservation(ctx, tx, appt.BusinessID, r.Key, appt.ID, r.StatusCode, body); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *AppointmentStore) GetAppointment(ctx context.Context, id string) (model.Appointment, error) {
	appt, err := scanAppointment(s.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id))
	if db.IsNoRows(err) {
		return model.Appointment{}, model.ErrNotFound
	}
	return appt, err
}

// UpdateAppointmentStatus only touches a row still in `from`; a lost race surfaces as
// model.ErrStatusChanged.
func (s *AppointmentStore) UpdateAppointmentStatus(ctx context.Context, id string, from, to model.AppointmentStatus, at time.Time) (model.Appointment, error) {
	var cancelledAt *time.Time
	if to == model.StatusCancelled {
		cancelledAt = &at
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $3,
			cancelled_at = COALESCE($4, cancelled_at)
		WHERE id = $1 AND status = $2
		RETURNING `+appointmentColumns+`
	`, id, string(from), string(to), cancelledAt))
	if db.IsNoRows(err) {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1)`, id).Scan(&exists); err != nil {
			return model.Appointment{}, err
		}
		if !exists {
			return model.Appointment{}, model.ErrNotFound
		}
		return model.Appointment{}, model.ErrStatusChanged
	}
	if err != nil {
		return model.Appointment{}, err
	}

	if to == model.StatusCancelled {
		evt, err := outbox.AppointmentCancelled(appt)
		if err != nil {
			return model.Appointment{}, err
		}
		if err := s.outbox.Insert(ctx, tx, evt); err != nil {
			return model.Appointment{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

func (s *AppointmentStore) ListAppointmentsByClientEmail(ctx context.Context, email string) ([]model.Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE lower(client_email) = lower($1)
		ORDER BY start_time DESC
	`, email)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// ListAppointments returns appointments of every status starting in [from, to).
func (s *AppointmentStore) ListAppointments(ctx context.Context, businessID string, from, to time.Time) ([]model.Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE business_id = $1
			AND start_time >= $2
			AND start_time < $3
		ORDER BY start_time ASC
	`, businessID, from, to)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}
