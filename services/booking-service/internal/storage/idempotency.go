package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/md-rashed-zaman/bookingwidget/libs/db"
)

// DefaultIdempotencyLease is how long a reservation without an outcome blocks retries
// before another request may reclaim it.
const DefaultIdempotencyLease = 2 * time.Minute

// ErrReservationLost is returned when a booking tries to record its outcome on a key
// that is no longer reserved for it.
var ErrReservationLost = errors.New("storage: idempotency reservation lost")

// IdempotencyRecord is a stored outcome of a booking request keyed by the client's
// Idempotency-Key. StatusCode is zero while the first request is still running.
type IdempotencyRecord struct {
	BusinessID      string
	IdempotencyKey  string
	AppointmentID   string
	StatusCode      int
	ResponsePayload []byte
}

func (r IdempotencyRecord) Completed() bool {
	return r.StatusCode > 0
}

type IdempotencyStore struct {
	db    db.DBTX
	lease time.Duration
}

func NewIdempotencyStore(pool db.DBTX, lease time.Duration) *IdempotencyStore {
	if lease <= 0 {
		lease = DefaultIdempotencyLease
	}
	return &IdempotencyStore{db: pool, lease: lease}
}

// Reserve claims key for businessID. fresh is false when the key was already claimed,
// in which case the existing record is returned. A reservation older than the lease that
// never recorded an outcome is taken over.
func (s *IdempotencyStore) Reserve(ctx context.Context, businessID, key string) (rec IdempotencyRecord, fresh bool, err error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (business_id, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (business_id, idempotency_key) DO UPDATE
		SET updated_at = now()
		WHERE booking_idempotency_keys.status_code IS NULL
			AND booking_idempotency_keys.updated_at < now() - make_interval(secs => $3)
	`, businessID, key, s.lease.Seconds())
	if err != nil {
		return IdempotencyRecord{}, false, err
	}
	if tag.RowsAffected() == 1 {
		return IdempotencyRecord{BusinessID: businessID, IdempotencyKey: key}, true, nil
	}

	rec = IdempotencyRecord{BusinessID: businessID, IdempotencyKey: key}
	err = s.db.QueryRow(ctx, `
		SELECT COALESCE(appointment_id, ''), COALESCE(status_code, 0), COALESCE(response_payload, ''::bytea)
		FROM booking_idempotency_keys
		WHERE business_id = $1 AND idempotency_key = $2
	`, businessID, key).Scan(&rec.AppointmentID, &rec.StatusCode, &rec.ResponsePayload)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}
	return rec, false, nil
}

// Release frees a key whose request failed before producing an outcome, so the client
// can retry with it.
func (s *IdempotencyStore) Release(ctx context.Context, businessID, key string) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM booking_idempotency_keys
		WHERE business_id = $1 AND idempotency_key = $2 AND status_code IS NULL
	`, businessID, key)
	return err
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// completeReservation records the outcome of a reserved key. It runs inside the booking
// transaction, so the outcome commits or rolls back with the appointment.
func completeReservation(ctx context.Context, q execer, businessID, key, appointmentID string, statusCode int, response []byte) error {
	tag, err := q.Exec(ctx, `
		UPDATE booking_idempotency_keys
		SET appointment_id = $3,
			status_code = $4,
			response_payload = $5,
			updated_at = now()
		WHERE business_id = $1 AND idempotency_key = $2 AND status_code IS NULL
	`, businessID, key, appointmentID, statusCode, response)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrReservationLost
	}
	return nil
}
