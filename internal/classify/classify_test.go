package classify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "mileagecal/internal/errors"
	"mileagecal/internal/model"
)

const home = "1 Home St, Springfield"

// stubResolver answers from a map of destination -> one-way miles. Missing
// destinations are "no route"; destinations in fail return a lookup error.
type stubResolver struct {
	miles map[string]float64
	fail  map[string]bool
	calls []string
}

func (s *stubResolver) Resolve(_ context.Context, origin, dest string) (model.DistanceResult, bool, error) {
	s.calls = append(s.calls, origin+"->"+dest)
	if s.fail[dest] {
		return model.DistanceResult{}, false, apperrors.NewExternalService("distance matrix request failed")
	}
	m, ok := s.miles[dest]
	if !ok {
		return model.DistanceResult{}, false, nil
	}
	return model.NewDistanceResult(model.MilesFromFloat(m), "10 mins"), true, nil
}

func rawAt(summary, location string) model.RawEvent {
	return model.RawEvent{
		Summary:  summary,
		Location: location,
		Start:    model.EventTime{DateTime: "2024-03-05T09:30:00-05:00"},
		Attendees: []model.RawAttendee{
			{DisplayName: "Jane Doe", Email: "jane@client.com"},
			{Email: "room@resource.calendar.google.com"},
		},
		Organizer: &model.RawAttendee{Email: "me@mine.org"},
	}
}

func TestClassifyIncludedAndExcluded(t *testing.T) {
	res := &stubResolver{miles: map[string]float64{"Near": 15, "Far": 25, "Edge": 20}}
	c := New(res, home)
	threshold := model.MilesFromFloat(20)

	near, err := c.Classify(context.Background(), rawAt("near", "Near"), threshold)
	require.NoError(t, err)
	require.NotNil(t, near.Distance)
	assert.True(t, near.IncludeInTotal)
	assert.Equal(t, "30.0", near.Distance.RoundTripMiles.String())
	assert.Empty(t, near.ErrorReason)

	far, err := c.Classify(context.Background(), rawAt("far", "Far"), threshold)
	require.NoError(t, err)
	require.NotNil(t, far.Distance)
	assert.False(t, far.IncludeInTotal)
	assert.Equal(t, "50.0", far.Distance.RoundTripMiles.String())

	edge, err := c.Classify(context.Background(), rawAt("edge", "Edge"), threshold)
	require.NoError(t, err)
	assert.True(t, edge.IncludeInTotal, "threshold is inclusive")

	assert.Equal(t, []string{home + "->Near", home + "->Far", home + "->Edge"}, res.calls)
}

func TestClassifyNoLocation(t *testing.T) {
	res := &stubResolver{}
	ev, err := New(res, home).Classify(context.Background(), rawAt("standup", ""), model.MilesFromFloat(20))
	require.NoError(t, err)

	assert.Nil(t, ev.Location)
	assert.Nil(t, ev.Distance)
	assert.False(t, ev.IncludeInTotal)
	assert.Equal(t, model.ReasonNoLocation, ev.ErrorReason)
	assert.Empty(t, res.calls, "no lookup without a location")

	require.Len(t, ev.Attendees, 2)
	assert.Equal(t, "Jane", ev.Attendees[0].FirstName)
	assert.Equal(t, "resource", ev.Attendees[1].Company)
	assert.Equal(t, "mine", ev.Organizer.Company)
}

func TestClassifyUnavailable(t *testing.T) {
	ev, err := New(&stubResolver{}, home).Classify(context.Background(), rawAt("lost", "Nowhere"), model.MilesFromFloat(20))
	require.NoError(t, err)
	require.NotNil(t, ev.Location)
	assert.Equal(t, "Nowhere", *ev.Location)
	assert.Nil(t, ev.Distance)
	assert.False(t, ev.IncludeInTotal)
	assert.Equal(t, model.ReasonDistanceUnavailable, ev.ErrorReason)
}

func TestClassifyLookupFailure(t *testing.T) {
	res := &stubResolver{fail: map[string]bool{"Flaky": true}}

	t.Run("dropped by default", func(t *testing.T) {
		_, err := New(res, home).Classify(context.Background(), rawAt("flaky", "Flaky"), model.MilesFromFloat(20))
		require.Error(t, err)
		assert.True(t, apperrors.IsExternalService(err))
	})

	t.Run("recorded when enabled", func(t *testing.T) {
		c := New(res, home)
		c.RecordLookupFailures = true
		ev, err := c.Classify(context.Background(), rawAt("flaky", "Flaky"), model.MilesFromFloat(20))
		require.NoError(t, err)
		assert.Equal(t, model.ReasonLookupFailed, ev.ErrorReason)
		assert.Nil(t, ev.Distance)
	})
}

func TestStartInstant(t *testing.T) {
	loc := time.FixedZone("PST", -8*3600)
	c := New(&stubResolver{}, home)
	c.Location = loc

	timed, err := c.Classify(context.Background(), model.RawEvent{Start: model.EventTime{DateTime: "2024-03-05T09:30:00Z", Date: "2024-01-01"}}, model.MilesFromFloat(1))
	require.NoError(t, err)
	assert.True(t, timed.Start.Equal(time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)))
	assert.False(t, timed.AllDay)

	allDay, err := c.Classify(context.Background(), model.RawEvent{Start: model.EventTime{Date: "2024-03-05"}}, model.MilesFromFloat(1))
	require.NoError(t, err)
	assert.True(t, allDay.Start.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, loc)))
	assert.True(t, allDay.AllDay)
}
