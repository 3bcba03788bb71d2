package model

import (
	"strings"
	"time"
)

// DayHours is one weekday of a schedule. OpenTime and CloseTime are "HH:mm" wall-clock
// strings and are only meaningful when IsOpen is set.
type DayHours struct {
	IsOpen    bool   `json:"isOpen" dynamodbav:"isOpen"`
	OpenTime  string `json:"openTime" dynamodbav:"openTime"`
	CloseTime string `json:"closeTime" dynamodbav:"closeTime"`
}

// WeeklyHours maps lowercase English day names ("sunday".."saturday") to hours. A nil
// map means the schedule was never configured.
type WeeklyHours map[string]DayHours

var dayNames = [...]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// DayName returns the schedule key for a weekday.
func DayName(d time.Weekday) string {
	return dayNames[d]
}

// For looks up the hours of the weekday date falls on. Keys are matched case-insensitively.
func (w WeeklyHours) For(date time.Time) (DayHours, bool) {
	if w == nil {
		return DayHours{}, false
	}
	name := DayName(date.Weekday())
	if h, ok := w[name]; ok {
		return h, true
	}
	for k, h := range w {
		if strings.EqualFold(k, name) {
			return h, true
		}
	}
	return DayHours{}, false
}

// IsValidDayName reports whether name is one of the seven schedule keys.
func IsValidDayName(name string) bool {
	for _, d := range dayNames {
		if d == name {
			return true
		}
	}
	return false
}
