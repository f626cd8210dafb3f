package main

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"mileagecal/internal/config"
	apperrors "mileagecal/internal/errors"
	appLog "mileagecal/internal/log"
	"mileagecal/internal/model"
)

// runScheduled reports the previous calendar month every time spec fires,
// until ctx is cancelled. Config edits are picked up by the next run.
func (a *app) runScheduled(ctx context.Context, spec string) error {
	conf := a.loader.Config()
	loc, err := conf.Location()
	if err != nil {
		return apperrors.NewValidation("invalid timezone "+conf.Timezone, err)
	}
	if conf.MaxOneWayMiles <= 0 && a.flags.maxMiles <= 0 {
		return apperrors.NewValidation("scheduled mode requires max_one_way_miles in the config or -max-miles")
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(spec, func() { a.scheduledRun(ctx) }); err != nil {
		return apperrors.NewValidation("invalid schedule "+spec, err)
	}

	stopWatch, err := a.loader.Watch()
	if err != nil {
		appLog.Warn("config hot reload disabled", "err", err)
	} else {
		defer stopWatch()
	}
	a.loader.OnChange(func(updated *config.Config) {
		appLog.Info("config changed; applies from the next run", "max_one_way_miles", updated.MaxOneWayMiles)
	})

	c.Start()
	appLog.Info("scheduler started", "schedule", spec, "timezone", loc.String())

	<-ctx.Done()
	<-c.Stop().Done()
	appLog.Info("scheduler stopped")
	return nil
}

func (a *app) scheduledRun(ctx context.Context) {
	conf := a.loader.Config()
	loc, err := conf.Location()
	if err != nil {
		appLog.Error("scheduled run skipped: invalid timezone", err, "timezone", conf.Timezone)
		return
	}

	start, end := previousMonth(time.Now(), loc)
	miles := conf.MaxOneWayMiles
	if a.flags.maxMiles > 0 {
		miles = a.flags.maxMiles
	}
	in := model.DateRangeInput{Start: start, End: end, MaxOneWayMiles: miles}
	if _, err := a.runReport(ctx, conf, in, true); err != nil {
		appLog.Error("scheduled run failed", err)
	}
}

// previousMonth is the full calendar month before now's month, in loc.
func previousMonth(now time.Time, loc *time.Location) (time.Time, time.Time) {
	now = now.In(loc)
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	start := thisMonth.AddDate(0, -1, 0)
	return start, endOfDay(thisMonth.AddDate(0, 0, -1))
}
