package availability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/model"
)

// Day is one calendar day of a week result.
type Day struct {
	Date  time.Time
	Slots []model.TimeSlot
}

// Week is an accepted week: Start is the resolved week start, which may be later than
// the requested one.
type Week struct {
	Start        time.Time
	Days         []Day
	WeeksScanned int
}

// ByDate keys the days by "YYYY-MM-DD". Days without slots map to an empty list.
func (w Week) ByDate() map[string][]model.TimeSlot {
	out := make(map[string][]model.TimeSlot, len(w.Days))
	for _, d := range w.Days {
		slots := d.Slots
		if slots == nil {
			slots = []model.TimeSlot{}
		}
		out[clock.DateKey(d.Date)] = slots
	}
	return out
}

// Slots returns the slots computed for date, if it belongs to the week.
func (w Week) Slots(date time.Time) []model.TimeSlot {
	for _, d := range w.Days {
		if clock.SameDay(d.Date, date) {
			return d.Slots
		}
	}
	return nil
}

// WeekQuery is the input of ComputeWeek. WeekStart's location is the wall clock.
type WeekQuery struct {
	WeekStart   time.Time
	Duration    model.ServiceDuration
	StaffFilter string
	Now         time.Time
}

// ComputeWeek walks forward a week at a time from q.WeekStart until a week has a slot on
// a day not before today, scanning at most Lookahead weeks. It returns
// ErrConfigurationMissing before scanning when the snapshot cannot produce slots at all
// and ErrNoAvailability when the bound is exhausted. ctx is checked between weeks.
func (e *Engine) ComputeWeek(ctx context.Context, snap *Snapshot, q WeekQuery) (Week, error) {
	ctx, span := otel.Tracer("booking-service/availability").Start(ctx, "availability.ComputeWeek")
	defer span.End()

	if err := snap.Check(); err != nil {
		return Week{}, err
	}
	if missing := snap.StaffWithoutHours(); len(missing) > 0 {
		e.logger.Warn("staff without hours excluded from availability", "staff_ids", missing)
	}

	loc := q.WeekStart.Location()
	today := clock.StartOfDay(q.Now.In(loc))
	start := clock.StartOfDay(q.WeekStart)

	for scanned := 1; scanned <= Lookahead; scanned++ {
		if err := ctx.Err(); err != nil {
			return Week{}, fmt.Errorf("%w: %w", ErrSuperseded, err)
		}

		week := Week{Start: start, Days: make([]Day, 0, 7), WeeksScanned: scanned}
		found := false
		for i := 0; i < 7; i++ {
			date := start.AddDate(0, 0, i)
			slots := e.DaySlots(date, snap, q.Duration, q.StaffFilter, q.Now)
			week.Days = append(week.Days, Day{Date: date, Slots: slots})
			if len(slots) > 0 && !date.Before(today) {
				found = true
			}
		}
		if found {
			span.SetAttributes(
				attribute.Int("availability.weeks_scanned", scanned),
				attribute.String("availability.week_start", clock.DateKey(start)),
			)
			return week, nil
		}
		start = start.AddDate(0, 0, 7)
	}

	span.SetAttributes(attribute.Int("availability.weeks_scanned", Lookahead))
	return Week{WeeksScanned: Lookahead}, ErrNoAvailability
}
