package availability

import (
	"fmt"
	"sync"
	"time"

	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/model"
)

// Snapshot is the read set of one computation. It must not be mutated after it is
// handed to the engine.
type Snapshot struct {
	Staff         []model.StaffMember
	BusinessHours model.WeeklyHours
	StaffHours    map[string]model.WeeklyHours
	Appointments  []model.Appointment

	once sync.Once
	busy map[string][]Interval
}

// Check returns ErrConfigurationMissing when nothing could ever be offered: no business
// hours, no staff, or no staff member with hours.
func (s *Snapshot) Check() error {
	if s.BusinessHours == nil {
		return fmt.Errorf("%w: business hours missing", ErrConfigurationMissing)
	}
	if len(s.Staff) == 0 {
		return fmt.Errorf("%w: no staff", ErrConfigurationMissing)
	}
	for _, m := range s.Staff {
		if s.StaffHours[m.ID] != nil {
			return nil
		}
	}
	return fmt.Errorf("%w: no staff hours", ErrConfigurationMissing)
}

// StaffWithoutHours lists staff members that will never qualify.
func (s *Snapshot) StaffWithoutHours() []string {
	var ids []string
	for _, m := range s.Staff {
		if s.StaffHours[m.ID] == nil {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// FindStaff returns the staff member with id.
func (s *Snapshot) FindStaff(id string) (model.StaffMember, bool) {
	for _, m := range s.Staff {
		if m.ID == id {
			return m, true
		}
	}
	return model.StaffMember{}, false
}

// busyOn returns the blocking appointments of staffID that start on date's calendar day,
// compared in date's location.
func (s *Snapshot) busyOn(staffID string, date time.Time) []Interval {
	var out []Interval
	for _, iv := range s.index()[staffID] {
		if clock.SameDay(date, iv.Start) {
			out = append(out, iv)
		}
	}
	return out
}

func (s *Snapshot) index() map[string][]Interval {
	s.once.Do(func() {
		s.busy = map[string][]Interval{}
		for _, a := range s.Appointments {
			if !a.Blocks() {
				continue
			}
			s.busy[a.StaffID] = append(s.busy[a.StaffID], Interval{Start: a.Start, End: a.End})
		}
	})
	return s.busy
}
