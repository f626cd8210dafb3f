package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"mileagecal/internal/config"
	appLog "mileagecal/internal/log"
	"mileagecal/internal/web"
)

// flagConfig holds CLI flag values. Empty values fall back to the config
// file or the interactive prompt.
type flagConfig struct {
	configPath string
	envFile    string
	start      string
	end        string
	maxMiles   float64
	schedule   string
	pdf        bool
}

func main() {
	flags := parseFlags()

	if err := config.LoadDotEnv(flags.envFile); err != nil {
		appLog.Warn("failed to load env file", "path", flags.envFile, "err", err)
	}

	loader, err := config.NewLoader(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	conf := loader.Config()
	appLog.Configure(os.Stderr, conf.LogFormat, conf.LogLevel)

	schedule := conf.Schedule
	if flags.schedule != "" {
		schedule = flags.schedule
	}

	appLog.Info("effective config",
		"config_path", flags.configPath,
		"calendar_id", conf.CalendarID,
		"ics", conf.ICS.Enabled(),
		"output_dir", conf.OutputDir,
		"timezone", conf.Timezone,
		"listen", conf.Listen,
		"schedule", schedule,
		"pdf", conf.PDF || flags.pdf,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	a := newApp(loader, flags, web.NewServer(conf.Listen))

	// The server carries the OAuth callback and /metrics; it stops when the
	// run finishes.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.server.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		if schedule != "" {
			return a.runScheduled(gctx, schedule)
		}
		return a.runOnce(gctx, os.Stdin)
	})

	if err := g.Wait(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", config.DefaultPath, "Path to config file")
	flag.StringVar(&cfg.envFile, "env", ".env", "Path to .env file with credentials")
	flag.StringVar(&cfg.start, "start", "", "Start date (YYYY-MM-DD); prompted if empty")
	flag.StringVar(&cfg.end, "end", "", "End date (YYYY-MM-DD); prompted if empty")
	flag.Float64Var(&cfg.maxMiles, "max-miles", 0, "Maximum one-way distance to include, in miles")
	flag.StringVar(&cfg.schedule, "schedule", "", "Cron spec; report the previous month each time it fires")
	flag.BoolVar(&cfg.pdf, "pdf", false, "Also print the mileage report to PDF")

	flag.Parse()

	return cfg
}
