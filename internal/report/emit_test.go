package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mileagecal/internal/model"
)

func ptr(s string) *string { return &s }

func scenarioReport(t *testing.T) model.MileageReport {
	t.Helper()
	r, err := model.NewTimeRange(
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 31, 23, 59, 59, 999_000_000, time.UTC),
	)
	require.NoError(t, err)

	near := model.NewDistanceResult(model.MilesFromFloat(15), "20 mins")
	far := model.NewDistanceResult(model.MilesFromFloat(25), "35 mins")

	return model.MileageReport{
		Summary: model.Summary{
			TotalMiles:     near.RoundTripMiles,
			ExcludedMiles:  far.RoundTripMiles,
			MaxOneWayMiles: 20,
			ErrorCount:     1,
			DateRange:      r,
		},
		Events: []model.ClassifiedEvent{
			{
				Summary:        "Client kickoff, phase 1",
				Location:       ptr("100 Main St, Springfield"),
				Start:          time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC),
				Distance:       &near,
				IncludeInTotal: true,
				Attendees: []model.Attendee{
					{PersonName: &model.PersonName{FullName: "Jane Doe", FirstName: "Jane", LastName: "Doe"}, Email: "jane@client.com", Company: "client"},
					{Email: "bob@client.com", Company: "client"},
				},
				Organizer: model.Organizer{Email: "me@mine.org", Company: "mine"},
			},
			{
				Summary:   "Site visit 🚗",
				Location:  ptr("Far Away Plant"),
				Start:     time.Date(2024, 3, 12, 14, 0, 0, 0, time.UTC),
				Distance:  &far,
				Attendees: []model.Attendee{},
			},
			{
				Summary:     "Standup",
				Start:       time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC),
				ErrorReason: model.ReasonNoLocation,
				Attendees: []model.Attendee{
					{Email: "a@x.io", Company: "x"},
					{Email: "b@x.io", Company: "x"},
					{PersonName: &model.PersonName{FullName: "Cee", FirstName: "Cee"}, Email: "c@x.io", Company: "x"},
				},
			},
		},
	}
}

func TestMileageCSV(t *testing.T) {
	out := Emitter{Location: time.UTC}.MileageCSV(scenarioReport(t))

	want := strings.Join([]string{
		"MILEAGE SUMMARY",
		"Total Included Mileage: 30.0 miles",
		"Excluded Mileage: 50.0 miles",
		"Maximum One-Way Distance: 20 miles",
		"Total Drive Events: 2",
		"",
		"DETAILED MILEAGE LIST",
		"",
		"Time,Meeting Title,Location,Round Trip Miles,One-Way Miles,Included In Total",
		`2024-03-05 09:30,"Client kickoff; phase 1","100 Main St; Springfield",30.0,15.0,Yes`,
		`2024-03-12 14:00,"Site visit","Far Away Plant",50.0,25.0,No`,
	}, "\n")
	assert.Equal(t, want, string(out))
}

func TestMeetingsCSV(t *testing.T) {
	report := scenarioReport(t)
	out := Emitter{Location: time.UTC}.MeetingsCSV(report)

	want := strings.Join([]string{
		"MEETING SUMMARY",
		"Total Meetings: 3",
		"",
		"DETAILED MEETING LIST",
		"",
		"Time,Meeting Title,Location,Attendee 1,Attendee 2,Attendee 3",
		`2024-03-05 09:30,"Client kickoff; phase 1","100 Main St; Springfield","Jane Doe","bob@client.com",`,
		`2024-03-12 14:00,"Site visit","Far Away Plant",,,`,
		`2024-03-13 10:00,"Standup","Virtual Meeting","a@x.io","b@x.io","Cee"`,
	}, "\n")
	assert.Equal(t, want, string(out))

	lines := strings.Split(string(out), "\n")
	rows := lines[6:]
	assert.Len(t, rows, len(report.Events))
	for _, row := range rows {
		assert.Len(t, strings.Split(row, ","), 3+3, row)
	}
}

func TestMeetingsCSVNoAttendees(t *testing.T) {
	report := scenarioReport(t)
	for i := range report.Events {
		report.Events[i].Attendees = nil
	}
	out := string(Emitter{Location: time.UTC}.MeetingsCSV(report))

	lines := strings.Split(out, "\n")
	assert.Equal(t, "Time,Meeting Title,Location", lines[5])
	for _, row := range lines[6:] {
		assert.Len(t, strings.Split(row, ","), 3)
	}
}

func TestJSON(t *testing.T) {
	report := scenarioReport(t)
	report.Events = report.Events[2:]

	out, err := Emitter{}.JSON(report)
	require.NoError(t, err)

	want := `{
  "summary": {
    "totalMiles": 30.0,
    "excludedMiles": 50.0,
    "maxOneWayMiles": 20,
    "errorCount": 1,
    "dateRange": {
      "start": "2024-03-01T00:00:00.000Z",
      "end": "2024-03-31T23:59:59.999Z"
    }
  },
  "events": [
    {
      "summary": "Standup",
      "location": null,
      "start": "2024-03-13T10:00:00Z",
      "distance": null,
      "includeInTotal": false,
      "error": "no location provided",
      "attendees": [
        {
          "email": "a@x.io",
          "company": "x"
        },
        {
          "email": "b@x.io",
          "company": "x"
        },
        {
          "fullName": "Cee",
          "firstName": "Cee",
          "lastName": "",
          "email": "c@x.io",
          "company": "x"
        }
      ],
      "organizer": {}
    }
  ]
}`
	assert.Equal(t, want, string(out))

	four, err := Emitter{Indent: 4}.JSON(report)
	require.NoError(t, err)
	assert.Contains(t, string(four), "\n    \"summary\": {")
}

func TestEmitIsIdempotent(t *testing.T) {
	report := scenarioReport(t)
	e := Emitter{Location: time.FixedZone("CET", 3600)}

	first, err := e.Emit(report)
	require.NoError(t, err)
	second, err := e.Emit(report)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestFormatTimeUsesEmitterZone(t *testing.T) {
	instant := time.Date(2024, 3, 5, 23, 30, 45, 0, time.UTC)
	assert.Equal(t, "2024-03-05 23:30", Emitter{Location: time.UTC}.FormatTime(instant))
	assert.Equal(t, "2024-03-06 00:30", Emitter{Location: time.FixedZone("CET", 3600)}.FormatTime(instant))
	assert.Equal(t, "2024-03-05 18:30", Emitter{Location: time.FixedZone("EST", -5*3600)}.FormatTime(instant))
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  plain  ", "plain"},
		{"Lunch, then review", "Lunch; then review"},
		{"Party 🎉🎂 time", "Party  time"},
		{"☕ coffee ✈", "coffee"},
		{"tab\there\nnewline\x7f", "tabherenewline"},
		{"👩‍💻 pairing", "pairing"},
		{`say "hi"`, `say ""hi""`},
		{"Café Zürich", "Café Zürich"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Sanitize(tc.in), tc.in)
	}
}

func TestBaseNameAndWrite(t *testing.T) {
	report := scenarioReport(t)
	report.Summary.MaxOneWayMiles = 12.5
	base := BaseName(report.Summary)
	assert.Equal(t, "driving-deduction-2024-03-01-2024-03-31-12.5mi", base)

	arts, err := Emitter{Location: time.UTC}.Emit(report)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "output", "nested")
	paths, err := Write(dir, base, arts)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, base+".json"), paths.JSON)
	assert.Equal(t, filepath.Join(dir, base+"-meetings.csv"), paths.Meetings)
	assert.Equal(t, filepath.Join(dir, base+"-mileage.csv"), paths.Mileage)

	got, err := os.ReadFile(paths.Mileage)
	require.NoError(t, err)
	assert.Equal(t, arts.MileageCSV, got)

	// Writing again into the existing directory succeeds.
	_, err = Write(dir, base, arts)
	require.NoError(t, err)
}

func TestHTML(t *testing.T) {
	out, err := Emitter{Location: time.UTC}.HTML(scenarioReport(t))
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, "Total Included Mileage: 30.0 miles")
	assert.Contains(t, html, "Total Drive Events: 2")
	assert.Contains(t, html, "<td>Client kickoff, phase 1</td>")
	assert.Contains(t, html, `<tr class="excluded">`)
	assert.NotContains(t, html, "Standup")
}
