package distance

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"

	apperrors "mileagecal/internal/errors"
)

const testKey = "AIzaTestKeyForUnitTests"

func elementJSON(status, text string, meters, seconds int) string {
	return fmt.Sprintf(`{
		"status": "OK",
		"origin_addresses": ["1 Home St"],
		"destination_addresses": ["2 Client Ave"],
		"rows": [{"elements": [{
			"status": %q,
			"distance": {"text": %q, "value": %d},
			"duration": {"text": "ignored", "value": %d}
		}]}]
	}`, status, text, meters, seconds)
}

func newTestResolver(t *testing.T, handler http.HandlerFunc) *GoogleResolver {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	r, err := NewGoogleResolver(Config{APIKey: testKey, BaseURL: srv.URL, HTTPClient: srv.Client()})
	require.NoError(t, err)
	return r
}

func TestResolveOK(t *testing.T) {
	var gotQuery map[string][]string
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		gotQuery = req.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, elementJSON("OK", "15.3 mi", 24623, 1500))
	})

	res, ok, err := r.Resolve(context.Background(), "1 Home St", "2 Client Ave")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "15.3", res.OneWayMiles.String())
	assert.Equal(t, "30.6", res.RoundTripMiles.String())
	assert.Equal(t, "25 mins", res.Duration)
	assert.Equal(t, []string{"1 Home St"}, gotQuery["origins"])
	assert.Equal(t, []string{"2 Client Ave"}, gotQuery["destinations"])
	assert.Equal(t, []string{"imperial"}, gotQuery["units"])
}

func TestResolveNoRoute(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, elementJSON("ZERO_RESULTS", "", 0, 0))
	})

	_, ok, err := r.Resolve(context.Background(), "1 Home St", "Atlantis")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveTransportFailure(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid.","rows":[]}`)
	})

	_, ok, err := r.Resolve(context.Background(), "1 Home St", "2 Client Ave")
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, apperrors.IsExternalService(err))
}

func TestNewGoogleResolverRequiresKey(t *testing.T) {
	_, err := NewGoogleResolver(Config{})
	assert.Error(t, err)
}

func TestOneWayMiles(t *testing.T) {
	assert.Equal(t, "1204.0", OneWayMiles(maps.Distance{HumanReadable: "1,204 mi", Meters: 1937651}).String())
	assert.Equal(t, "0.1", OneWayMiles(maps.Distance{HumanReadable: "528 ft", Meters: 161}).String())
	assert.Equal(t, "6.2", OneWayMiles(maps.Distance{HumanReadable: "10.0 km", Meters: 10000}).String())
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{20 * time.Second, "1 min"},
		{25 * time.Minute, "25 mins"},
		{time.Hour, "1 hour"},
		{65 * time.Minute, "1 hour 5 mins"},
		{2*time.Hour + time.Minute, "2 hours 1 min"},
		{27 * time.Hour, "1 day 3 hours"},
		{48 * time.Hour, "2 days"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, FormatDuration(tc.in), tc.in.String())
	}
}
