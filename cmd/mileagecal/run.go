package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"mileagecal/internal/auth"
	"mileagecal/internal/calendar"
	"mileagecal/internal/capture"
	"mileagecal/internal/classify"
	"mileagecal/internal/config"
	"mileagecal/internal/distance"
	apperrors "mileagecal/internal/errors"
	"mileagecal/internal/ics"
	appLog "mileagecal/internal/log"
	"mileagecal/internal/metrics"
	"mileagecal/internal/mileage"
	"mileagecal/internal/model"
	"mileagecal/internal/report"
	"mileagecal/internal/web"
)

type app struct {
	loader *config.Loader
	flags  flagConfig
	server *web.Server
	out    io.Writer

	newLister   func(ctx context.Context, conf *config.Config, logger *appLog.Logger) (mileage.Lister, error)
	newResolver func(conf *config.Config) (classify.Resolver, error)
	printPDF    func(ctx context.Context, opts capture.PDFOptions) error
}

func newApp(loader *config.Loader, flags flagConfig, server *web.Server) *app {
	a := &app{
		loader:   loader,
		flags:    flags,
		server:   server,
		out:      os.Stdout,
		printPDF: capture.PrintPDF,
	}
	a.newLister = a.defaultLister
	a.newResolver = defaultResolver
	return a
}

// runOnce reads the range from flags or the prompt, writes the report and
// prints the summary.
func (a *app) runOnce(ctx context.Context, in io.Reader) error {
	conf := a.loader.Config()
	loc, err := conf.Location()
	if err != nil {
		return apperrors.NewValidation("invalid timezone "+conf.Timezone, err)
	}

	input, err := readInput(a.flags, conf, loc, in, a.out)
	if err != nil {
		return err
	}

	_, err = a.runReport(ctx, conf, input, conf.PDF || a.flags.pdf)
	return err
}

// runReport is one full pipeline run: list, classify, aggregate, emit.
func (a *app) runReport(ctx context.Context, conf *config.Config, in model.DateRangeInput, render bool) (report.Paths, error) {
	started := time.Now()
	logger := appLog.With("run_id", uuid.NewString())

	paths, err := a.generate(ctx, conf, in, render, logger)

	metrics.RunDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.Runs.WithLabelValues("error").Inc()
		logger.Error("report run failed", err)
		return report.Paths{}, err
	}
	metrics.Runs.WithLabelValues("ok").Inc()
	return paths, nil
}

func (a *app) generate(ctx context.Context, conf *config.Config, in model.DateRangeInput, render bool, logger *appLog.Logger) (report.Paths, error) {
	if conf.HomeAddress == "" {
		return report.Paths{}, apperrors.NewValidation("home address is not configured (home_address or HOME_ADDRESS)")
	}
	loc, err := conf.Location()
	if err != nil {
		return report.Paths{}, apperrors.NewValidation("invalid timezone "+conf.Timezone, err)
	}
	if _, err := in.Validate(); err != nil {
		return report.Paths{}, err
	}

	resolver, err := a.newResolver(conf)
	if err != nil {
		return report.Paths{}, err
	}
	lister, err := a.newLister(ctx, conf, logger)
	if err != nil {
		return report.Paths{}, err
	}

	classifier := classify.New(resolver, conf.HomeAddress)
	classifier.Location = loc
	classifier.RecordLookupFailures = conf.RecordLookupFailures
	classifier.Log = logger

	agg := mileage.NewAggregator(lister, classifier)
	agg.PageSize = conf.PageSize
	agg.PageInterval = conf.PageInterval()
	agg.Log = logger

	logger.Info("fetching calendar events",
		"start", in.Start.Format(time.RFC3339),
		"end", in.End.Format(time.RFC3339),
		"max_one_way_miles", in.MaxOneWayMiles,
	)

	rep, err := agg.Aggregate(ctx, in)
	if err != nil {
		return report.Paths{}, err
	}
	if err := ctx.Err(); err != nil {
		return report.Paths{}, err
	}

	emitter := report.Emitter{Location: loc, Indent: conf.JSONIndent}
	arts, err := emitter.Emit(rep)
	if err != nil {
		return report.Paths{}, err
	}
	base := report.BaseName(rep.Summary)
	paths, err := report.Write(conf.OutputDir, base, arts)
	if err != nil {
		return report.Paths{}, err
	}
	metrics.IncludedMiles.Set(rep.Summary.TotalMiles.InexactFloat64())

	if render {
		a.render(ctx, conf, emitter, rep, base, logger)
	}

	printSummary(a.out, rep, base)
	return paths, nil
}

// render writes the HTML report and, when enabled, its PDF print. Failures
// are logged; the core artifacts are already on disk.
func (a *app) render(ctx context.Context, conf *config.Config, emitter report.Emitter, rep model.MileageReport, base string, logger *appLog.Logger) {
	html, err := emitter.HTML(rep)
	if err != nil {
		logger.Error("render html report failed", err)
		return
	}
	htmlPath := filepath.Join(conf.OutputDir, base+".html")
	if err := os.WriteFile(htmlPath, html, 0o644); err != nil {
		logger.Error("write html report failed", err, "path", htmlPath)
		return
	}
	if a.server != nil {
		a.server.SetLatestReport(htmlPath)
	}

	if !conf.PDF && !a.flags.pdf {
		return
	}
	pdfPath := filepath.Join(conf.OutputDir, base+".pdf")
	if err := a.printPDF(ctx, capture.PDFOptions{HTMLPath: htmlPath, OutputPath: pdfPath, Landscape: true}); err != nil {
		logger.Error("print pdf report failed", err, "path", pdfPath)
		return
	}
	logger.Info("pdf report written", "path", pdfPath)
}

func printSummary(w io.Writer, rep model.MileageReport, base string) {
	s := rep.Summary
	fmt.Fprintln(w, "\nSummary:")
	fmt.Fprintf(w, "Total included mileage: %s miles\n", s.TotalMiles)
	fmt.Fprintf(w, "Excluded mileage (over %s miles one-way): %s miles\n", report.FormatThreshold(s.MaxOneWayMiles), s.ExcludedMiles)
	if s.ErrorCount > 0 {
		fmt.Fprintf(w, "%d event(s) had errors calculating distance\n", s.ErrorCount)
	}
	fmt.Fprintln(w, "\nFiles written to output directory:")
	fmt.Fprintf(w, "- %s.json\n", base)
	fmt.Fprintf(w, "- %s-meetings.csv\n", base)
	fmt.Fprintf(w, "- %s-mileage.csv\n", base)
}

func defaultResolver(conf *config.Config) (classify.Resolver, error) {
	return distance.NewGoogleResolver(distance.Config{APIKey: conf.Google.MapsAPIKey})
}

func (a *app) defaultLister(ctx context.Context, conf *config.Config, logger *appLog.Logger) (mileage.Lister, error) {
	if conf.ICS.Enabled() {
		loc, err := conf.Location()
		if err != nil {
			return nil, apperrors.NewValidation("invalid timezone "+conf.Timezone, err)
		}
		cacheDir := filepath.Join(conf.OutputDir, ".ics-cache")
		fetcher := ics.NewFetcher(nil, cacheDir)
		l := ics.NewLister(fetcher, ics.Source{URL: conf.ICS.URL, Path: conf.ICS.Path}, loc)
		l.Log = logger
		return l, nil
	}

	flow, err := auth.NewFlow(auth.Config{
		ClientID:     conf.Google.ClientID,
		ClientSecret: conf.Google.ClientSecret,
		RedirectURL:  conf.Google.RedirectURI,
	}, auth.NewTokenStore(conf.TokenFile))
	if err != nil {
		return nil, err
	}
	flow.Out = a.out

	verify := func(ctx context.Context, client *http.Client) error {
		l, err := calendar.NewLister(ctx, calendar.Config{CalendarID: conf.CalendarID, HTTPClient: client})
		if err != nil {
			return err
		}
		return l.Verify(ctx)
	}
	client, err := flow.Authorize(ctx, verify, a.server)
	if err != nil {
		return nil, err
	}
	return calendar.NewLister(ctx, calendar.Config{CalendarID: conf.CalendarID, HTTPClient: client})
}
