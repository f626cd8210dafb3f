// Package report renders a MileageReport into its output artifacts.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"mileagecal/internal/model"
)

const (
	// DefaultIndent is the JSON indentation width.
	DefaultIndent = 2

	timeLayout      = "2006-01-02 15:04"
	virtualLocation = "Virtual Meeting"
)

// Emitter renders reports. Every method is a pure function of the report,
// so re-emitting the same report yields byte-identical output.
type Emitter struct {
	// Location is the zone event times are rendered in. Nil means time.Local.
	Location *time.Location
	// Indent is the JSON indentation width; values <= 0 mean DefaultIndent.
	Indent int
}

// Artifacts holds the three report files.
type Artifacts struct {
	JSON        []byte
	MileageCSV  []byte
	MeetingsCSV []byte
}

// Emit renders all three artifacts.
func (e Emitter) Emit(r model.MileageReport) (Artifacts, error) {
	js, err := e.JSON(r)
	if err != nil {
		return Artifacts{}, err
	}
	return Artifacts{
		JSON:        js,
		MileageCSV:  e.MileageCSV(r),
		MeetingsCSV: e.MeetingsCSV(r),
	}, nil
}

// JSON serializes the report in struct field order.
func (e Emitter) JSON(r model.MileageReport) ([]byte, error) {
	indent := e.Indent
	if indent <= 0 {
		indent = DefaultIndent
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", strings.Repeat(" ", indent))
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("report: encode json: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// MileageCSV lists the events that have a distance, after a summary block.
func (e Emitter) MileageCSV(r model.MileageReport) []byte {
	drive := r.DriveEvents()

	lines := []string{
		"MILEAGE SUMMARY",
		"Total Included Mileage: " + r.Summary.TotalMiles.String() + " miles",
		"Excluded Mileage: " + r.Summary.ExcludedMiles.String() + " miles",
		"Maximum One-Way Distance: " + FormatThreshold(r.Summary.MaxOneWayMiles) + " miles",
		"Total Drive Events: " + strconv.Itoa(len(drive)),
		"",
		"DETAILED MILEAGE LIST",
		"",
		"Time,Meeting Title,Location,Round Trip Miles,One-Way Miles,Included In Total",
	}

	for _, ev := range drive {
		included := "No"
		if ev.IncludeInTotal {
			included = "Yes"
		}
		lines = append(lines, strings.Join([]string{
			e.FormatTime(ev.Start),
			quoted(ev.Summary),
			quoted(deref(ev.Location)),
			ev.Distance.RoundTripMiles.String(),
			ev.Distance.OneWayMiles.String(),
			included,
		}, ","))
	}

	return []byte(strings.Join(lines, "\n"))
}

// MeetingsCSV lists every event with one column per attendee. The attendee
// columns are as wide as the largest attendee list; shorter rows are padded.
func (e Emitter) MeetingsCSV(r model.MileageReport) []byte {
	maxAttendees := 0
	for _, ev := range r.Events {
		maxAttendees = max(maxAttendees, len(ev.Attendees))
	}

	header := []string{"Time", "Meeting Title", "Location"}
	for i := 1; i <= maxAttendees; i++ {
		header = append(header, "Attendee "+strconv.Itoa(i))
	}

	lines := []string{
		"MEETING SUMMARY",
		"Total Meetings: " + strconv.Itoa(len(r.Events)),
		"",
		"DETAILED MEETING LIST",
		"",
		strings.Join(header, ","),
	}

	for _, ev := range r.Events {
		location := virtualLocation
		if ev.Location != nil && *ev.Location != "" {
			location = *ev.Location
		}

		row := make([]string, 0, 3+maxAttendees)
		row = append(row, e.FormatTime(ev.Start), quoted(ev.Summary), quoted(location))
		for i := range maxAttendees {
			if i < len(ev.Attendees) {
				row = append(row, quoted(ev.Attendees[i].Label()))
			} else {
				row = append(row, "")
			}
		}
		lines = append(lines, strings.Join(row, ","))
	}

	return []byte(strings.Join(lines, "\n"))
}

// FormatTime renders t as "YYYY-MM-DD HH:mm" in the emitter's zone.
func (e Emitter) FormatTime(t time.Time) string {
	loc := e.Location
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(timeLayout)
}

// FormatThreshold renders a threshold without trailing zeros: 20, 12.5.
func FormatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
