package availability

import "errors"

var (
	// ErrConfigurationMissing means the business or its staff have no weekly hours, or
	// the business has no staff. The widget shows "hours not configured" and stops.
	ErrConfigurationMissing = errors.New("availability: hours not configured")
	// ErrNoAvailability means every week within the lookahead bound was empty.
	ErrNoAvailability = errors.New("availability: no availability found")
	// ErrSuperseded is returned when a newer computation replaced this one.
	ErrSuperseded = errors.New("availability: computation superseded")
)
