package model

import (
	"strings"
	"time"
)

type StaffMember struct {
	ID         string `json:"id" dynamodbav:"id"`
	FirstName  string `json:"first_name" dynamodbav:"firstName"`
	LastName   string `json:"last_name" dynamodbav:"lastName"`
	BusinessID string `json:"business_id" dynamodbav:"businessId"`
}

func (s StaffMember) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// ServiceDuration is the length of a bookable service.
type ServiceDuration struct {
	Hours   int `json:"hours" dynamodbav:"hours"`
	Minutes int `json:"minutes" dynamodbav:"minutes"`
}

func (d ServiceDuration) TotalMinutes() int {
	return d.Hours*60 + d.Minutes
}

func (d ServiceDuration) Duration() time.Duration {
	return time.Duration(d.TotalMinutes()) * time.Minute
}

// Valid reports hours >= 0, minutes in 0..59 and a positive total.
func (d ServiceDuration) Valid() bool {
	return d.Hours >= 0 && d.Minutes >= 0 && d.Minutes <= 59 && d.TotalMinutes() > 0
}

type Service struct {
	ID          string          `json:"id" dynamodbav:"id"`
	BusinessID  string          `json:"business_id" dynamodbav:"businessId"`
	Title       string          `json:"title" dynamodbav:"title"`
	Description string          `json:"description" dynamodbav:"description"`
	Price       float64         `json:"price" dynamodbav:"price"`
	Duration    ServiceDuration `json:"duration" dynamodbav:"duration"`
	CategoryID  string          `json:"category_id,omitempty" dynamodbav:"categoryId,omitempty"`
}

// TimeSlot is a bookable start time with the staff free for the whole service. It only
// exists while AvailableStaff is non-empty.
type TimeSlot struct {
	Time           string        `json:"time"`
	AvailableStaff []StaffMember `json:"available_staff"`
}

// HasStaff reports whether id is among the slot's available staff.
func (s TimeSlot) HasStaff(id string) bool {
	for _, m := range s.AvailableStaff {
		if m.ID == id {
			return true
		}
	}
	return false
}
