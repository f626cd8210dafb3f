// Package ics serves events from an ICS feed or file through the same paged
// listing contract as the Google Calendar adapter.
package ics

import (
	"context"
	"strconv"
	"sync"
	"time"

	apperrors "mileagecal/internal/errors"
	appLog "mileagecal/internal/log"
	"mileagecal/internal/model"
)

// Lister expands the feed once per range and hands out pages of it. Page
// tokens are decimal offsets into the sorted occurrence list.
type Lister struct {
	fetcher  *Fetcher
	source   Source
	location *time.Location

	// Log receives expansion lines. Defaults to the package logger.
	Log *appLog.Logger

	mu     sync.Mutex
	cached model.TimeRange
	events []model.RawEvent
}

// NewLister reads src with fetcher. loc places floating times and all-day
// dates; nil means time.Local.
func NewLister(fetcher *Fetcher, src Source, loc *time.Location) *Lister {
	if loc == nil {
		loc = time.Local
	}
	return &Lister{fetcher: fetcher, source: src, location: loc}
}

// ListEvents returns the page starting at pageToken. The feed is fetched
// again whenever a listing starts from the first page.
func (l *Lister) ListEvents(ctx context.Context, r model.TimeRange, pageToken string, pageSize int) (model.Page, error) {
	if pageSize <= 0 {
		return model.Page{}, apperrors.NewValidation("page size must be positive")
	}

	offset := 0
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil || n < 0 {
			return model.Page{}, apperrors.NewValidation("invalid page token " + strconv.Quote(pageToken))
		}
		offset = n
	}

	events, err := l.load(ctx, r, pageToken == "")
	if err != nil {
		return model.Page{}, err
	}

	if offset > len(events) {
		offset = len(events)
	}
	end := min(offset+pageSize, len(events))

	page := model.Page{Items: events[offset:end]}
	if end < len(events) {
		page.NextPageToken = strconv.Itoa(end)
	}
	return page, nil
}

func (l *Lister) load(ctx context.Context, r model.TimeRange, refresh bool) ([]model.RawEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !refresh && l.events != nil && l.cached == r {
		return l.events, nil
	}

	body, err := l.fetcher.Fetch(ctx, l.source)
	if err != nil {
		return nil, err
	}
	parsed, err := Parse(body, l.location)
	if err != nil {
		return nil, err
	}
	occ, err := Expand(parsed, ExpandConfig{RangeStart: r.Start(), RangeEnd: r.End()})
	if err != nil {
		return nil, apperrors.NewValidation("expand ics events", err)
	}

	events := make([]model.RawEvent, 0, len(occ))
	for _, o := range occ {
		events = append(events, toRawEvent(o, l.location))
	}

	logger := l.Log
	if logger == nil {
		logger = appLog.With()
	}
	logger.Info("ics events expanded", "source", l.source.String(), "vevents", len(parsed), "occurrences", len(events))

	l.cached = r
	l.events = events
	return events, nil
}

func toRawEvent(o Occurrence, loc *time.Location) model.RawEvent {
	ev := model.RawEvent{
		ID:        o.Event.UID + "_" + o.Start.UTC().Format("20060102T150405Z"),
		Summary:   o.Event.Summary,
		Location:  o.Event.Location,
		Attendees: o.Event.Attendees,
		Organizer: o.Event.Organizer,
	}
	if o.Event.AllDay {
		ev.Start.Date = o.Start.In(loc).Format(time.DateOnly)
	} else {
		ev.Start.DateTime = o.Start.Format(time.RFC3339)
	}
	return ev
}
