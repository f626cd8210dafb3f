package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Event outcome label values for EventsClassified.
const (
	OutcomeIncluded     = "included"
	OutcomeExcluded     = "excluded"
	OutcomeNoLocation   = "no_location"
	OutcomeUnavailable  = "unavailable"
	OutcomeLookupFailed = "lookup_failed"
)

var (
	PagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mileagecal_pages_fetched_total",
		Help: "Total number of event pages fetched from the event source.",
	})

	EventsClassified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mileagecal_events_classified_total",
		Help: "Total number of events placed in a report, labelled by outcome.",
	}, []string{"outcome"})

	EventsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mileagecal_events_skipped_total",
		Help: "Total number of events dropped because the distance lookup failed.",
	})

	DistanceLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mileagecal_distance_lookups_total",
		Help: "Total number of distance lookups, labelled by status.",
	}, []string{"status"})

	Runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mileagecal_runs_total",
		Help: "Total number of report runs, labelled by result.",
	}, []string{"result"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mileagecal_run_duration_seconds",
		Help:    "End-to-end report run latency in seconds.",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	IncludedMiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mileagecal_included_miles",
		Help: "Included round-trip miles of the most recent successful run.",
	})
)
