package model

import (
	"encoding/json"
	"math"
	"time"

	apperrors "mileagecal/internal/errors"
)

// isoMillis matches the UTC ISO-8601 form used for the report's date range.
const isoMillis = "2006-01-02T15:04:05.000Z"

// TimeRange is an immutable [start, end] window with start <= end.
type TimeRange struct {
	start time.Time
	end   time.Time
}

// NewTimeRange validates and builds a TimeRange.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if start.IsZero() || end.IsZero() {
		return TimeRange{}, apperrors.NewValidation("date range requires both start and end")
	}
	if end.Before(start) {
		return TimeRange{}, apperrors.NewValidation("date range end is before start")
	}
	return TimeRange{start: start, end: end}, nil
}

func (r TimeRange) Start() time.Time { return r.start }
func (r TimeRange) End() time.Time   { return r.end }

func (r TimeRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}{
		Start: r.start.UTC().Format(isoMillis),
		End:   r.end.UTC().Format(isoMillis),
	})
}

// DateRangeInput is what the prompt layer hands to the pipeline.
type DateRangeInput struct {
	Start          time.Time
	End            time.Time
	MaxOneWayMiles float64
}

// Validate rejects an inverted range or a non-positive threshold.
func (in DateRangeInput) Validate() (TimeRange, error) {
	if math.IsNaN(in.MaxOneWayMiles) || math.IsInf(in.MaxOneWayMiles, 0) || in.MaxOneWayMiles <= 0 {
		return TimeRange{}, apperrors.NewValidation("maximum one-way distance must be a positive number")
	}
	return NewTimeRange(in.Start, in.End)
}

// DistanceResult is a resolved trip between home and an event location.
// RoundTripMiles is always OneWayMiles doubled, to one decimal place.
type DistanceResult struct {
	RoundTripMiles Miles  `json:"roundTripMiles"`
	OneWayMiles    Miles  `json:"oneWayMiles"`
	Duration       string `json:"duration"`
}

// NewDistanceResult derives the round trip from the one-way distance.
func NewDistanceResult(oneWay Miles, duration string) DistanceResult {
	return DistanceResult{
		RoundTripMiles: oneWay.Double(),
		OneWayMiles:    oneWay,
		Duration:       duration,
	}
}

// PersonName is present on an Attendee only when the calendar supplied a
// display name. LastName may be empty for single-word names.
type PersonName struct {
	FullName  string `json:"fullName"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Attendee is a normalized event participant. Company is empty when the
// email is missing or malformed.
type Attendee struct {
	*PersonName
	Email   string `json:"email,omitempty"`
	Company string `json:"company,omitempty"`
}

// Label is the display name, falling back to the email.
func (a Attendee) Label() string {
	if a.PersonName != nil && a.FullName != "" {
		return a.FullName
	}
	return a.Email
}

type Organizer struct {
	Email   string `json:"email,omitempty"`
	Company string `json:"company,omitempty"`
}

// Classification outcomes that are reported rather than raised.
const (
	ReasonNoLocation          = "no location provided"
	ReasonDistanceUnavailable = "distance unavailable"
	ReasonLookupFailed        = "lookup failed"
)

// ClassifiedEvent is the canonical record for one calendar event.
//
// IncludeInTotal is true iff Distance is set and its one-way miles are within
// the run's threshold. Location nil means the event had none; Distance nil
// means no distance was resolved, and ErrorReason then says why.
type ClassifiedEvent struct {
	Summary        string          `json:"summary"`
	Location       *string         `json:"location"`
	Start          time.Time       `json:"start"`
	AllDay         bool            `json:"allDay,omitempty"`
	Distance       *DistanceResult `json:"distance"`
	IncludeInTotal bool            `json:"includeInTotal"`
	ErrorReason    string          `json:"error,omitempty"`
	Attendees      []Attendee      `json:"attendees"`
	Organizer      Organizer       `json:"organizer"`
}

// Summary holds the run totals.
type Summary struct {
	TotalMiles     Miles     `json:"totalMiles"`
	ExcludedMiles  Miles     `json:"excludedMiles"`
	MaxOneWayMiles float64   `json:"maxOneWayMiles"`
	ErrorCount     int       `json:"errorCount"`
	DateRange      TimeRange `json:"dateRange"`
}

// MileageReport is built once by the aggregator and only read afterwards.
type MileageReport struct {
	Summary Summary           `json:"summary"`
	Events  []ClassifiedEvent `json:"events"`
}

// DriveEvents returns the events that carry a DistanceResult, in order.
func (r MileageReport) DriveEvents() []ClassifiedEvent {
	out := make([]ClassifiedEvent, 0, len(r.Events))
	for _, ev := range r.Events {
		if ev.Distance != nil {
			out = append(out, ev)
		}
	}
	return out
}
