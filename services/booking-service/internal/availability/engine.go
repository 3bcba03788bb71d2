package availability

import (
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/model"
)

const (
	// SlotStep is the fixed distance between candidate start times.
	SlotStep = 30 * time.Minute
	// Lookahead is the number of weeks ComputeWeek scans before giving up.
	Lookahead = 8
)

// Engine computes bookable slots from a Snapshot. It holds no per-request state, so one
// Engine serves every request.
type Engine struct {
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// candidate is one start time inside business hours.
type candidate struct {
	start time.Time
	end   time.Time
}

// staffDay is a staff member's resolved hours and bookings for one day.
type staffDay struct {
	member model.StaffMember
	hours  Interval
	busy   []Interval
}

// staffPredicate is one stage of the qualification pipeline. Business hours are enforced
// by the candidate walk itself, before any staff stage runs.
type staffPredicate func(c candidate, sd staffDay) bool

var staffPipeline = []staffPredicate{
	withinStaffHours,
	freeOfAppointments,
}

func withinStaffHours(c candidate, sd staffDay) bool {
	return sd.hours.Contains(c.start, c.end)
}

func freeOfAppointments(c candidate, sd staffDay) bool {
	return !overlapsAny(c.start, c.end, sd.busy)
}

func qualifies(c candidate, sd staffDay) bool {
	for _, p := range staffPipeline {
		if !p(c, sd) {
			return false
		}
	}
	return true
}

// DaySlots returns the ordered slots of date. date's location is the wall clock used
// for all hours. An empty staffFilter means any staff member; a filter naming an unknown
// member yields no slots.
func (e *Engine) DaySlots(date time.Time, snap *Snapshot, duration model.ServiceDuration, staffFilter string, now time.Time) []model.TimeSlot {
	day, ok := snap.BusinessHours.For(date)
	if !ok || !day.IsOpen {
		return nil
	}
	length := duration.Duration()
	if length <= 0 {
		return nil
	}
	open, err := clock.At(date, day.OpenTime)
	if err != nil {
		e.logger.Warn("business hours malformed, treating day as closed", "date", clock.DateKey(date), "err", err)
		return nil
	}
	closing, err := clock.At(date, day.CloseTime)
	if err != nil {
		e.logger.Warn("business hours malformed, treating day as closed", "date", clock.DateKey(date), "err", err)
		return nil
	}

	pool := e.staffPool(date, snap, staffFilter)
	if len(pool) == 0 {
		return nil
	}

	var slots []model.TimeSlot
	for start := open; ; start = start.Add(SlotStep) {
		end := start.Add(length)
		if end.After(closing) {
			break
		}
		if clock.Passed(start, now) {
			continue
		}
		c := candidate{start: start, end: end}
		var free []model.StaffMember
		for _, sd := range pool {
			if qualifies(c, sd) {
				free = append(free, sd.member)
			}
		}
		if len(free) > 0 {
			slots = append(slots, model.TimeSlot{Time: clock.FormatClock(start), AvailableStaff: free})
		}
	}
	return slots
}

// staffPool resolves the day's hours of every staff member that could work on date.
// Closed, unconfigured or malformed days drop the member.
func (e *Engine) staffPool(date time.Time, snap *Snapshot, staffFilter string) []staffDay {
	members := snap.Staff
	if staffFilter != "" {
		m, ok := snap.FindStaff(staffFilter)
		if !ok {
			return nil
		}
		members = []model.StaffMember{m}
	}

	pool := make([]staffDay, 0, len(members))
	for _, m := range members {
		hours, ok := snap.StaffHours[m.ID].For(date)
		if !ok || !hours.IsOpen {
			continue
		}
		open, err := clock.At(date, hours.OpenTime)
		if err == nil {
			var closing time.Time
			closing, err = clock.At(date, hours.CloseTime)
			if err == nil {
				pool = append(pool, staffDay{
					member: m,
					hours:  Interval{Start: open, End: closing},
					busy:   snap.busyOn(m.ID, date),
				})
				continue
			}
		}
		e.logger.Warn("staff hours malformed, staff skipped for day",
			"staff_id", m.ID,
			"date", clock.DateKey(date),
			"err", err,
		)
	}
	return pool
}
