package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/bookingwidget/libs/httpx"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/model"
)

type availabilityResponse struct {
	BusinessID   string                      `json:"business_id"`
	ServiceID    string                      `json:"service_id"`
	StaffID      string                      `json:"staff_id,omitempty"`
	WeekStart    string                      `json:"week_start"`
	WeeksScanned int                         `json:"weeks_scanned"`
	Days         map[string][]model.TimeSlot `json:"days"`
}

// Availability answers the widget's week view. A newer request from the same widget
// session cancels this one, which then answers 409.
func (h *WidgetHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	businessID := queryParam(r, "business_id")
	serviceID := queryParam(r, "service_id")
	staffID := queryParam(r, "staff_id")
	if businessID == "" || serviceID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "business_id and service_id required")
		return
	}

	loc := h.location()
	now := h.now().In(loc)
	weekStart := clock.StartOfWeek(now)
	if raw := queryParam(r, "week_start"); raw != "" {
		d, err := clock.ParseDate(raw, loc)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "week_start must be YYYY-MM-DD")
			return
		}
		weekStart = d
	}

	started := time.Now()
	ctx, ticket := h.sessions.Begin(r.Context(), httpx.WidgetSessionFromContext(r.Context()))
	defer ticket.Release()

	week, err := h.computeWeek(ctx, businessID, serviceID, staffID, weekStart, now)
	outcome := metrics.OutcomeOK
	// Errors are committed like results, so a superseded request answers 409 either way.
	published := ticket.Commit(func() {
		if err != nil {
			outcome = outcomeFor(err)
			h.writeErr(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, availabilityResponse{
			BusinessID:   businessID,
			ServiceID:    serviceID,
			StaffID:      staffID,
			WeekStart:    clock.DateKey(week.Start),
			WeeksScanned: week.WeeksScanned,
			Days:         week.ByDate(),
		})
	})
	if !published {
		outcome = metrics.OutcomeSuperseded
		h.logger.Debug("availability superseded",
			"session", httpx.WidgetSessionFromContext(r.Context()),
			"generation", ticket.Generation(),
			"err", err,
		)
		h.writeErr(w, r, availability.ErrSuperseded)
	}
	h.metrics.ObserveAvailability(outcome, week.WeeksScanned, time.Since(started))
}

func (h *WidgetHandler) computeWeek(ctx context.Context, businessID, serviceID, staffID string, weekStart, now time.Time) (availability.Week, error) {
	svc, err := h.catalog.GetService(ctx, serviceID)
	if err != nil {
		return availability.Week{}, err
	}
	if svc.BusinessID != "" && svc.BusinessID != businessID {
		return availability.Week{}, model.ErrNotFound
	}

	from := clock.StartOfDay(weekStart)
	to := from.AddDate(0, 0, 7*availability.Lookahead)
	snap, err := h.loader.Load(ctx, businessID, from, to)
	if err != nil {
		return availability.Week{}, err
	}
	if staffID != "" {
		if _, ok := snap.FindStaff(staffID); !ok {
			return availability.Week{}, model.ErrNotFound
		}
	}
	return h.engine.ComputeWeek(ctx, snap, availability.WeekQuery{
		WeekStart:   from,
		Duration:    svc.Duration,
		StaffFilter: staffID,
		Now:         now,
	})
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, availability.ErrNoAvailability):
		return metrics.OutcomeNoAvailability
	case errors.Is(err, availability.ErrConfigurationMissing):
		return metrics.OutcomeNotConfigured
	case errors.Is(err, availability.ErrSuperseded), errors.Is(err, context.Canceled):
		return metrics.OutcomeSuperseded
	default:
		return metrics.OutcomeError
	}
}
