// Package selection turns a picked day and slot into the appointment's start instant and
// staff member.
package selection

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/model"
)

var (
	// ErrEmptySlot is returned for a slot with no available staff.
	ErrEmptySlot = errors.New("selection: slot has no available staff")
	// ErrStaffNotInSlot is returned when the preferred staff member is not free for the slot.
	ErrStaffNotInSlot = errors.New("selection: preferred staff not available for slot")
)

// Chooser picks an index in [0, n). Tests substitute a deterministic one.
type Chooser func(n int) int

// RandomChooser spreads bookings uniformly across free staff.
func RandomChooser(n int) int {
	return rand.IntN(n)
}

type Booking struct {
	Start   time.Time
	StaffID string
}

// Resolve composes date with slot.Time and binds the staff member: staffFilter when set,
// otherwise one of slot.AvailableStaff chosen by choose (RandomChooser when nil).
func Resolve(date time.Time, slot model.TimeSlot, staffFilter string, choose Chooser) (Booking, error) {
	if len(slot.AvailableStaff) == 0 {
		return Booking{}, ErrEmptySlot
	}
	start, err := clock.At(date, slot.Time)
	if err != nil {
		return Booking{}, fmt.Errorf("selection: %w", err)
	}

	if staffFilter != "" {
		if !slot.HasStaff(staffFilter) {
			return Booking{}, ErrStaffNotInSlot
		}
		return Booking{Start: start, StaffID: staffFilter}, nil
	}

	if choose == nil {
		choose = RandomChooser
	}
	i := choose(len(slot.AvailableStaff))
	if i < 0 || i >= len(slot.AvailableStaff) {
		return Booking{}, fmt.Errorf("selection: chooser returned %d for %d staff", i, len(slot.AvailableStaff))
	}
	return Booking{Start: start, StaffID: slot.AvailableStaff[i].ID}, nil
}

// FindSlot returns the slot with the given "HH:mm" time.
func FindSlot(slots []model.TimeSlot, hhmm string) (model.TimeSlot, bool) {
	for _, s := range slots {
		if s.Time == hhmm {
			return s, true
		}
	}
	return model.TimeSlot{}, false
}
