// Package mileage runs the event-to-mileage pipeline over a paged event
// listing and builds the MileageReport.
package mileage

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	apperrors "mileagecal/internal/errors"
	appLog "mileagecal/internal/log"
	"mileagecal/internal/metrics"
	"mileagecal/internal/model"
)

const (
	// MaxPageSize is the largest page requested from an event source.
	MaxPageSize = 100

	// DefaultPageInterval is the minimum gap between two page requests.
	DefaultPageInterval = 100 * time.Millisecond
)

// Lister lists single-instance events in a range, ordered by start time.
type Lister interface {
	ListEvents(ctx context.Context, r model.TimeRange, pageToken string, pageSize int) (model.Page, error)
}

// EventClassifier classifies one event; an error means the event is dropped.
type EventClassifier interface {
	Classify(ctx context.Context, raw model.RawEvent, threshold model.Miles) (model.ClassifiedEvent, error)
}

// Pacer blocks until the next page request may be issued.
type Pacer interface {
	Wait(ctx context.Context) error
}

// NewPacer allows one request immediately and then at most one per interval.
func NewPacer(interval time.Duration) Pacer {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

type state int

const (
	awaitingPage state = iota
	processingPage
	done
)

// Aggregator drives a Lister page by page and classifies every event.
type Aggregator struct {
	lister     Lister
	classifier EventClassifier

	// PageSize is clamped to (0, MaxPageSize].
	PageSize int
	// PageInterval is the pacing interval handed to NewPacer.
	PageInterval time.Duration
	// NewPacer builds the pacer for one run. Defaults to the package NewPacer.
	NewPacer func(time.Duration) Pacer
	// Log receives progress lines. Defaults to the package logger.
	Log *appLog.Logger
}

func NewAggregator(lister Lister, classifier EventClassifier) *Aggregator {
	return &Aggregator{
		lister:       lister,
		classifier:   classifier,
		PageSize:     MaxPageSize,
		PageInterval: DefaultPageInterval,
	}
}

// Aggregate validates the input, consumes every page and returns the report.
// Any listing failure, including a RateLimit error, aborts the whole run and
// no partial report is returned. A cancelled ctx aborts the run as well,
// never as per-event drops.
func (a *Aggregator) Aggregate(ctx context.Context, in model.DateRangeInput) (model.MileageReport, error) {
	r, err := in.Validate()
	if err != nil {
		return model.MileageReport{}, err
	}
	threshold := model.MilesFromFloat(in.MaxOneWayMiles)

	logger := a.Log
	if logger == nil {
		logger = appLog.With()
	}
	newPacer := a.NewPacer
	if newPacer == nil {
		newPacer = NewPacer
	}
	pacer := newPacer(a.PageInterval)

	pageSize := a.PageSize
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	var (
		st       = awaitingPage
		page     model.Page
		token    string
		pages    int
		seen     int
		skipped  int
		events   = make([]model.ClassifiedEvent, 0)
		included model.Miles
		excluded model.Miles
		errCount int
	)

	for st != done {
		switch st {
		case awaitingPage:
			if err := pacer.Wait(ctx); err != nil {
				return model.MileageReport{}, err
			}
			page, err = a.lister.ListEvents(ctx, r, token, pageSize)
			if err != nil {
				if apperrors.IsRateLimit(err) {
					logger.Error("hit event listing rate limit; try again later", err, "page", pages+1)
				} else {
					logger.Error("error fetching events", err, "page", pages+1)
				}
				return model.MileageReport{}, listError(pages+1, err)
			}
			pages++
			seen += len(page.Items)
			metrics.PagesFetched.Inc()
			logger.Info("processing events", "page", pages, "events_so_far", seen)
			st = processingPage

		case processingPage:
			for _, raw := range page.Items {
				ev, err := a.classifier.Classify(ctx, raw, threshold)
				if err != nil {
					if ctxErr := ctx.Err(); ctxErr != nil {
						logger.Error("run cancelled while processing events", ctxErr, "page", pages)
						return model.MileageReport{}, ctxErr
					}
					skipped++
					metrics.EventsSkipped.Inc()
					logger.Warn("error processing event; dropped", "summary", raw.Summary, "err", err)
					continue
				}

				switch {
				case ev.Distance != nil && ev.IncludeInTotal:
					included = included.Add(ev.Distance.RoundTripMiles)
				case ev.Distance != nil:
					excluded = excluded.Add(ev.Distance.RoundTripMiles)
				case ev.ErrorReason != "":
					errCount++
				}
				events = append(events, ev)
			}

			token = page.NextPageToken
			if token == "" {
				st = done
			} else {
				st = awaitingPage
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return model.MileageReport{}, err
	}

	logger.Info("processed events",
		"pages", pages,
		"total_events", seen,
		"reported", len(events),
		"skipped", skipped,
		"error_count", errCount,
	)

	return model.MileageReport{
		Summary: model.Summary{
			TotalMiles:     included,
			ExcludedMiles:  excluded,
			MaxOneWayMiles: in.MaxOneWayMiles,
			ErrorCount:     errCount,
			DateRange:      r,
		},
		Events: events,
	}, nil
}

func listError(page int, err error) error {
	if apperrors.IsRateLimit(err) || apperrors.IsExternalService(err) {
		return fmt.Errorf("list events page %d: %w", page, err)
	}
	return apperrors.NewExternalService(fmt.Sprintf("list events page %d", page), err)
}
