package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "mileagecal/internal/errors"
	"mileagecal/internal/model"
)

const firstPage = `{
  "items": [
    {
      "id": "evt-1",
      "summary": "Client kickoff",
      "location": "100 Main St, Springfield",
      "start": {"dateTime": "2024-03-05T09:30:00-05:00"},
      "attendees": [
        {"displayName": "Jane Doe", "email": "jane@client.com"},
        {"email": "bob@client.com"}
      ],
      "organizer": {"email": "me@mine.org"}
    },
    {
      "id": "evt-2",
      "summary": "Offsite",
      "start": {"date": "2024-03-06"}
    }
  ],
  "nextPageToken": "page-2"
}`

func newTestLister(t *testing.T, h http.HandlerFunc) *Lister {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	l, err := NewLister(context.Background(), Config{
		CalendarID: "work@example.com",
		HTTPClient: srv.Client(),
		Endpoint:   srv.URL + "/",
	})
	require.NoError(t, err)
	return l
}

func march(t *testing.T) model.TimeRange {
	t.Helper()
	r, err := model.NewTimeRange(
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC),
	)
	require.NoError(t, err)
	return r
}

func TestListEvents(t *testing.T) {
	var query map[string]string
	l := newTestLister(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/calendars/work@example.com/events"), r.URL.Path)
		query = map[string]string{}
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(firstPage))
	})

	page, err := l.ListEvents(context.Background(), march(t), "", 100)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-01T00:00:00Z", query["timeMin"])
	assert.Equal(t, "2024-03-31T23:59:59Z", query["timeMax"])
	assert.Equal(t, "true", query["singleEvents"])
	assert.Equal(t, "startTime", query["orderBy"])
	assert.Equal(t, "100", query["maxResults"])
	assert.NotContains(t, query, "pageToken")

	assert.Equal(t, "page-2", page.NextPageToken)
	require.Len(t, page.Items, 2)

	first := page.Items[0]
	assert.Equal(t, "evt-1", first.ID)
	assert.Equal(t, "100 Main St, Springfield", first.Location)
	assert.Equal(t, "2024-03-05T09:30:00-05:00", first.Start.DateTime)
	assert.Equal(t, []model.RawAttendee{
		{DisplayName: "Jane Doe", Email: "jane@client.com"},
		{Email: "bob@client.com"},
	}, first.Attendees)
	require.NotNil(t, first.Organizer)
	assert.Equal(t, "me@mine.org", first.Organizer.Email)

	second := page.Items[1]
	assert.Empty(t, second.Location)
	assert.Equal(t, "2024-03-06", second.Start.Date)
	assert.Nil(t, second.Organizer)
}

func TestListEventsSendsPageToken(t *testing.T) {
	var token string
	l := newTestLister(t, func(w http.ResponseWriter, r *http.Request) {
		token = r.URL.Query().Get("pageToken")
		_, _ = w.Write([]byte(`{"items": []}`))
	})

	page, err := l.ListEvents(context.Background(), march(t), "page-2", 50)
	require.NoError(t, err)
	assert.Equal(t, "page-2", token)
	assert.Empty(t, page.Items)
	assert.Empty(t, page.NextPageToken)
}

func TestListEventsErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"rate limited", http.StatusTooManyRequests, apperrors.IsRateLimit},
		{"server error", http.StatusInternalServerError, apperrors.IsExternalService},
		{"unauthorized", http.StatusUnauthorized, IsUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l := newTestLister(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"error": {"code": ` + strconv.Itoa(tc.status) + `, "message": "nope"}}`))
			})

			_, err := l.ListEvents(context.Background(), march(t), "", 100)
			require.Error(t, err)
			assert.True(t, tc.check(err), err.Error())
		})
	}
}

func TestVerify(t *testing.T) {
	var denied atomic.Bool
	l := newTestLister(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/users/me/calendarList"), r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("maxResults"))
		if denied.Load() {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"items": [{"id": "primary"}]}`))
	})

	require.NoError(t, l.Verify(context.Background()))

	denied.Store(true)
	err := l.Verify(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
}

func TestNewListerRequiresClient(t *testing.T) {
	_, err := NewLister(context.Background(), Config{})
	assert.Error(t, err)
}
