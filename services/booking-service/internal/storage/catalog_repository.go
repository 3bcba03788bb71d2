package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/bookingwidget/libs/db"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/source"
)

// CatalogRepository serves staff, weekly hours and services from Postgres. Hours are
// stored as JSONB documents keyed by day name.
type CatalogRepository struct {
	db     db.DBTX
	outbox *outbox.Repository
}

var (
	_ source.Catalog       = (*CatalogRepository)(nil)
	_ source.CatalogWriter = (*CatalogRepository)(nil)
)

func NewCatalogRepository(pool db.DBTX, events *outbox.Repository) *CatalogRepository {
	return &CatalogRepository{db: pool, outbox: events}
}

func (r *CatalogRepository) ListStaff(ctx context.Context, businessID string) ([]model.StaffMember, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, first_name, last_name, business_id
		FROM staff
		WHERE business_id = $1
		ORDER BY created_at ASC, id ASC
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.StaffMember
	for rows.Next() {
		var s model.StaffMember
		if err := rows.Scan(&s.ID, &s.FirstName, &s.LastName, &s.BusinessID); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *CatalogRepository) GetStaff(ctx context.Context, staffID string) (model.StaffMember, error) {
	var s model.StaffMember
	err := r.db.QueryRow(ctx, `
		SELECT id, first_name, last_name, business_id
		FROM staff
		WHERE id = $1
	`, staffID).Scan(&s.ID, &s.FirstName, &s.LastName, &s.BusinessID)
	if db.IsNoRows(err) {
		return model.StaffMember{}, model.ErrNotFound
	}
	return s, err
}

func (r *CatalogRepository) GetBusinessHours(ctx context.Context, businessID string) (model.WeeklyHours, error) {
	return r.hours(ctx, `SELECT hours FROM business_hours WHERE business_id = $1`, businessID)
}

func (r *CatalogRepository) GetStaffHours(ctx context.Context, staffID string) (model.WeeklyHours, error) {
	return r.hours(ctx, `SELECT hours FROM staff_hours WHERE staff_id = $1`, staffID)
}

func (r *CatalogRepository) hours(ctx context.Context, query, id string) (model.WeeklyHours, error) {
	var raw []byte
	err := r.db.QueryRow(ctx, query, id).Scan(&raw)
	if db.IsNoRows(err) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var hours model.WeeklyHours
	if err := json.Unmarshal(raw, &hours); err != nil {
		return nil, fmt.Errorf("decode hours %s: %w", id, err)
	}
	return hours, nil
}

const serviceColumns = `id, business_id, title, description, price, duration_hours, duration_minutes, COALESCE(category_id, '')`

func scanService(row pgx.Row) (model.Service, error) {
	var s model.Service
	err := row.Scan(&s.ID, &s.BusinessID, &s.Title, &s.Description, &s.Price,
		&s.Duration.Hours, &s.Duration.Minutes, &s.CategoryID)
	return s, err
}

func (r *CatalogRepository) ListServices(ctx context.Context, businessID string) ([]model.Service, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE business_id = $1
		ORDER BY title ASC
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *CatalogRepository) GetService(ctx context.Context, serviceID string) (model.Service, error) {
	s, err := scanService(r.db.QueryRow(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE id = $1
	`, serviceID))
	if db.IsNoRows(err) {
		return model.Service{}, model.ErrNotFound
	}
	return s, err
}

// Apply upserts the batch and records a catalog-changed event in the same transaction,
// which is what evicts stale cache entries in every replica.
func (r *CatalogRepository) Apply(ctx context.Context, w source.CatalogWrite) error {
	if err := w.Validate(); err != nil {
		return err
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if w.BusinessHours != nil {
		raw, err := json.Marshal(w.BusinessHours)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO business_hours (business_id, hours)
			VALUES ($1, $2)
			ON CONFLICT (business_id) DO UPDATE
			SET hours = EXCLUDED.hours,
				updated_at = now()
		`, w.BusinessID, raw); err != nil {
			return err
		}
	}
	for _, s := range w.Staff {
		if _, err := tx.Exec(ctx, `
			INSERT INTO staff (id, business_id, first_name, last_name)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE
			SET first_name = EXCLUDED.first_name,
				last_name = EXCLUDED.last_name,
				updated_at = now()
		`, s.ID, w.BusinessID, s.FirstName, s.LastName); err != nil {
			return err
		}
	}
	for _, staffID := range sortedKeys(w.StaffHours) {
		raw, err := json.Marshal(w.StaffHours[staffID])
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO staff_hours (staff_id, hours)
			VALUES ($1, $2)
			ON CONFLICT (staff_id) DO UPDATE
			SET hours = EXCLUDED.hours,
				updated_at = now()
		`, staffID, raw); err != nil {
			return err
		}
	}
	for _, svc := range w.Services {
		if _, err := tx.Exec(ctx, `
			INSERT INTO services (id, business_id, title, description, price, duration_hours, duration_minutes, category_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
			ON CONFLICT (id) DO UPDATE
			SET title = EXCLUDED.title,
				description = EXCLUDED.description,
				price = EXCLUDED.price,
				duration_hours = EXCLUDED.duration_hours,
				duration_minutes = EXCLUDED.duration_minutes,
				category_id = EXCLUDED.category_id,
				updated_at = now()
		`, svc.ID, w.BusinessID, svc.Title, svc.Description, svc.Price, svc.Duration.Hours, svc.Duration.Minutes, svc.CategoryID); err != nil {
			return err
		}
	}

	evt, err := outbox.CatalogChanged(outbox.CatalogPayload{
		BusinessID: w.BusinessID,
		StaffIDs:   w.StaffIDs(),
		ServiceIDs: w.ServiceIDs(),
	})
	if err != nil {
		return err
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
