// Package classify turns one raw calendar event into a ClassifiedEvent.
package classify

import (
	"context"
	"time"

	"mileagecal/internal/attendee"
	appLog "mileagecal/internal/log"
	"mileagecal/internal/metrics"
	"mileagecal/internal/model"
)

// Resolver resolves a driving distance. ok=false means no route was found;
// a non-nil error means the lookup itself failed.
type Resolver interface {
	Resolve(ctx context.Context, origin, destination string) (res model.DistanceResult, ok bool, err error)
}

// Classifier classifies events against a home address.
type Classifier struct {
	resolver    Resolver
	homeAddress string

	// Location is used for all-day dates. Nil means time.Local.
	Location *time.Location

	// RecordLookupFailures keeps events whose distance lookup failed, with
	// ReasonLookupFailed, instead of returning the error to the caller.
	RecordLookupFailures bool

	// Log receives per-event lines. Defaults to the package logger.
	Log *appLog.Logger
}

func New(resolver Resolver, homeAddress string) *Classifier {
	return &Classifier{resolver: resolver, homeAddress: homeAddress}
}

// Classify builds the ClassifiedEvent for raw. It returns an error only when
// the distance lookup failed and RecordLookupFailures is off, or ctx is done;
// the caller is expected to drop the event in the first case.
func (c *Classifier) Classify(ctx context.Context, raw model.RawEvent, threshold model.Miles) (model.ClassifiedEvent, error) {
	start, allDay := c.startInstant(raw)

	ev := model.ClassifiedEvent{
		Summary:   raw.Summary,
		Start:     start,
		AllDay:    allDay,
		Attendees: attendee.NormalizeAll(raw.Attendees),
		Organizer: attendee.NormalizeOrganizer(raw.Organizer),
	}

	if raw.Location == "" {
		c.log().Info("skipping event (no location)", "summary", raw.Summary, "start", start.Format(time.RFC3339))
		ev.ErrorReason = model.ReasonNoLocation
		metrics.EventsClassified.WithLabelValues(metrics.OutcomeNoLocation).Inc()
		return ev, nil
	}

	location := raw.Location
	ev.Location = &location

	dist, ok, err := c.resolver.Resolve(ctx, c.homeAddress, raw.Location)
	if err != nil {
		if ctx.Err() != nil || !c.RecordLookupFailures {
			return model.ClassifiedEvent{}, err
		}
		c.log().Warn("distance lookup failed; recording event", "summary", raw.Summary, "err", err)
		ev.ErrorReason = model.ReasonLookupFailed
		metrics.EventsClassified.WithLabelValues(metrics.OutcomeLookupFailed).Inc()
		return ev, nil
	}
	if !ok {
		ev.ErrorReason = model.ReasonDistanceUnavailable
		metrics.EventsClassified.WithLabelValues(metrics.OutcomeUnavailable).Inc()
		return ev, nil
	}

	ev.Distance = &dist
	ev.IncludeInTotal = dist.OneWayMiles.AtMost(threshold)
	if ev.IncludeInTotal {
		metrics.EventsClassified.WithLabelValues(metrics.OutcomeIncluded).Inc()
	} else {
		metrics.EventsClassified.WithLabelValues(metrics.OutcomeExcluded).Inc()
	}
	return ev, nil
}

func (c *Classifier) log() *appLog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return appLog.With()
}

// startInstant prefers the event's date-time and falls back to its all-day
// date, read as local midnight.
func (c *Classifier) startInstant(raw model.RawEvent) (time.Time, bool) {
	if raw.Start.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, raw.Start.DateTime); err == nil {
			return t, false
		}
		c.log().Warn("unparseable event start", "summary", raw.Summary, "date_time", raw.Start.DateTime)
	}
	if raw.Start.Date != "" {
		loc := c.Location
		if loc == nil {
			loc = time.Local
		}
		if t, err := time.ParseInLocation(time.DateOnly, raw.Start.Date, loc); err == nil {
			return t, true
		}
		c.log().Warn("unparseable event date", "summary", raw.Summary, "date", raw.Start.Date)
	}
	return time.Time{}, false
}
