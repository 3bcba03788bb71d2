package source

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/model"
)

// CatalogWrite is one batch of catalog documents for a single business. Nil fields are
// left untouched.
type CatalogWrite struct {
	BusinessID    string                       `json:"business_id"`
	BusinessHours model.WeeklyHours            `json:"business_hours,omitempty"`
	Staff         []model.StaffMember          `json:"staff,omitempty"`
	StaffHours    map[string]model.WeeklyHours `json:"staff_hours,omitempty"`
	Services      []model.Service              `json:"services,omitempty"`
}

// CatalogWriter is implemented by catalog backends that accept writes.
type CatalogWriter interface {
	Apply(ctx context.Context, w CatalogWrite) error
}

var ErrReadOnlyCatalog = errors.New("source: catalog backend is read-only")

// StaffIDs lists every staff member the batch touches, profile or hours, sorted.
func (w CatalogWrite) StaffIDs() []string {
	seen := map[string]struct{}{}
	for _, s := range w.Staff {
		seen[s.ID] = struct{}{}
	}
	for id := range w.StaffHours {
		seen[id] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (w CatalogWrite) ServiceIDs() []string {
	ids := make([]string, 0, len(w.Services))
	for _, s := range w.Services {
		ids = append(ids, s.ID)
	}
	return ids
}

// Validate rejects batches the engine could not use: unknown day names, malformed
// clock values on open days, and services with unusable durations.
func (w CatalogWrite) Validate() error {
	if w.BusinessID == "" {
		return errors.New("source: catalog write without business id")
	}
	if err := validateHours("business hours", w.BusinessHours); err != nil {
		return err
	}
	for id, h := range w.StaffHours {
		if err := validateHours("staff "+id+" hours", h); err != nil {
			return err
		}
	}
	for _, s := range w.Staff {
		if s.ID == "" {
			return errors.New("source: staff member without id")
		}
	}
	for _, s := range w.Services {
		if s.ID == "" || !s.Duration.Valid() {
			return fmt.Errorf("source: service %q has no id or an invalid duration", s.ID)
		}
	}
	return nil
}

func validateHours(what string, hours model.WeeklyHours) error {
	for day, h := range hours {
		if !model.IsValidDayName(day) {
			return fmt.Errorf("source: %s: unknown day %q", what, day)
		}
		if !h.IsOpen {
			continue
		}
		open, err := clock.At(time.Time{}, h.OpenTime)
		if err != nil {
			return fmt.Errorf("source: %s: %s: %w", what, day, err)
		}
		closing, err := clock.At(time.Time{}, h.CloseTime)
		if err != nil {
			return fmt.Errorf("source: %s: %s: %w", what, day, err)
		}
		if !closing.After(open) {
			return fmt.Errorf("source: %s: %s closes before it opens", what, day)
		}
	}
	return nil
}
