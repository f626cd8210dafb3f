// Package calendar lists events from the Google Calendar API.
package calendar

import (
	"context"
	"errors"
	"net/http"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	apperrors "mileagecal/internal/errors"
	"mileagecal/internal/model"
)

// Lister pages through single-instance events of one calendar, ordered by
// start time.
type Lister struct {
	svc        *gcal.Service
	calendarID string
}

// Config selects the calendar and transport. HTTPClient must carry the
// OAuth credentials; Endpoint overrides the API base URL (tests).
type Config struct {
	CalendarID string
	HTTPClient *http.Client
	Endpoint   string
}

// NewLister builds the calendar service.
func NewLister(ctx context.Context, cfg Config) (*Lister, error) {
	if cfg.HTTPClient == nil {
		return nil, errors.New("calendar: http client is required")
	}
	if cfg.CalendarID == "" {
		cfg.CalendarID = "primary"
	}

	opts := []option.ClientOption{option.WithHTTPClient(cfg.HTTPClient)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, apperrors.NewUnexpected("create calendar service", err)
	}
	return &Lister{svc: svc, calendarID: cfg.CalendarID}, nil
}

// ListEvents fetches one page of events in r.
func (l *Lister) ListEvents(ctx context.Context, r model.TimeRange, pageToken string, pageSize int) (model.Page, error) {
	call := l.svc.Events.List(l.calendarID).
		TimeMin(r.Start().Format(time.RFC3339Nano)).
		TimeMax(r.End().Format(time.RFC3339Nano)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(int64(pageSize)).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Do()
	if err != nil {
		return model.Page{}, mapError("list calendar events", err)
	}

	page := model.Page{
		Items:         make([]model.RawEvent, 0, len(resp.Items)),
		NextPageToken: resp.NextPageToken,
	}
	for _, item := range resp.Items {
		page.Items = append(page.Items, toRawEvent(item))
	}
	return page, nil
}

// Verify checks that the session can read the calendar list.
func (l *Lister) Verify(ctx context.Context) error {
	if _, err := l.svc.CalendarList.List().MaxResults(1).Context(ctx).Do(); err != nil {
		return mapError("verify calendar access", err)
	}
	return nil
}

func mapError(msg string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		return apperrors.NewRateLimit("calendar API rate limit exceeded", err)
	}
	return apperrors.NewExternalService(msg, err)
}

// IsUnauthorized reports a 401/403 from the API, i.e. a token that must be
// replaced.
func IsUnauthorized(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	return gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden
}

func toRawEvent(e *gcal.Event) model.RawEvent {
	ev := model.RawEvent{
		ID:       e.Id,
		Summary:  e.Summary,
		Location: e.Location,
	}
	if e.Start != nil {
		ev.Start = model.EventTime{DateTime: e.Start.DateTime, Date: e.Start.Date}
	}
	for _, a := range e.Attendees {
		if a == nil {
			continue
		}
		ev.Attendees = append(ev.Attendees, model.RawAttendee{DisplayName: a.DisplayName, Email: a.Email})
	}
	if e.Organizer != nil {
		ev.Organizer = &model.RawAttendee{DisplayName: e.Organizer.DisplayName, Email: e.Organizer.Email}
	}
	return ev
}
