package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"weekcal/internal/capture"
	"weekcal/internal/config"
	"weekcal/internal/engine"
	"weekcal/internal/ics"
	appLog "weekcal/internal/log"
	"weekcal/internal/model"
	"weekcal/internal/scheduler"
	"weekcal/internal/textview"
	"weekcal/internal/web"
)

const version = "0.1.0"

func main() {
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

	if err := newApp().Run(ctx, os.Args); err != nil {
		appLog.Error("weekcal failed", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "weekcal",
		Usage:   "calendar day/week layout service",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "./weekcal.yaml",
				Usage:   "path to the YAML config; created with defaults if missing",
				Sources: cli.EnvVars("WEEKCAL_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error (overrides log_level)",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			layoutCommand(),
			windowCommand(),
			captureCommand(),
		},
	}
}

// viewFlags override the view section of the config for one-shot commands.
func viewFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "date", Usage: "anchor date (YYYY-MM-DD), default today"},
		&cli.StringFlag{Name: "mode", Usage: "day, week or workweek"},
		&cli.IntFlag{Name: "days", Usage: "visible days in day mode (1-10)"},
		&cli.StringFlag{Name: "position", Usage: "anchor position in day mode: left, center or right"},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the HTTP API and refresh feeds on the cron schedule",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "HTTP listen address (overrides config)"},
			&cli.BoolFlag{Name: "capture", Usage: "capture preview.png after every refresh"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			conf, err := loadConfig(cmd, func(c *config.Config) {
				if v := cmd.String("listen"); v != "" {
					c.Listen = v
				}
			})
			if err != nil {
				return err
			}
			return serve(ctx, conf, cmd.Bool("capture"))
		},
	}
}

func serve(ctx context.Context, conf *config.Config, withCapture bool) error {
	loc, err := conf.Location()
	if err != nil {
		return err
	}

	eng := engine.New(engine.Options{AssignLanes: conf.Layout.AssignLanes})
	opts := scheduler.Options{}
	if withCapture {
		capOpts := capture.OptionsFrom(conf.Capture)
		opts.AfterRefresh = func(ctx context.Context, _ engine.Snapshot) {
			if err := capture.CalendarPNG(ctx, capOpts); err != nil {
				appLog.Error("capture after refresh failed", err, "url", capOpts.URL)
			}
		}
	}
	refresher, err := scheduler.NewRefresher(conf, ics.NewFetcher(conf.CacheDir, nil), eng, opts)
	if err != nil {
		return err
	}

	srv, err := web.NewServer(conf, eng, refresher)
	if err != nil {
		return err
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()

	if _, err := refresher.Refresh(ctx); err != nil {
		// Keep serving; the next scheduled run may succeed.
		appLog.Warn("initial refresh failed", "err", err.Error())
	}

	sched, err := scheduler.New(ctx, conf.RefreshCron, loc, refresher)
	if err != nil {
		return err
	}
	sched.Start()
	appLog.Info("refresh scheduled", "spec", conf.RefreshCron, "next", sched.Next().Format(time.RFC3339))

	err = <-errCh

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sched.Stop(stopCtx)
	appLog.Info("weekcal exiting")
	return err
}

func layoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "layout",
		Usage: "fetch the feeds once and print the laid out view",
		Flags: append(viewFlags(),
			&cli.BoolFlag{Name: "json", Usage: "print the snapshot as JSON"},
			&cli.IntFlag{Name: "width", Value: 120, Usage: "terminal width"},
			&cli.IntFlag{Name: "lines", Value: 30, Usage: "lines for the configured day hours"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			conf, err := loadConfig(cmd, applyViewFlags(cmd))
			if err != nil {
				return err
			}
			anchor, err := anchorDate(cmd, conf)
			if err != nil {
				return err
			}

			eng := engine.New(engine.Options{AssignLanes: conf.Layout.AssignLanes})
			refresher, err := scheduler.NewRefresher(conf, ics.NewFetcher(conf.CacheDir, nil), eng, scheduler.Options{
				Now: func() time.Time { return anchor },
			})
			if err != nil {
				return err
			}
			snap, err := refresher.Refresh(ctx)
			if err != nil {
				return err
			}

			if cmd.Bool("json") {
				enc := json.NewEncoder(cmd.Root().Writer)
				enc.SetIndent("", "  ")
				return enc.Encode(snap.Days)
			}
			begin, end, err := conf.DayBounds()
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.Root().Writer, textview.Render(snap, textview.Options{
				Width: int(cmd.Int("width")),
				Lines: int(cmd.Int("lines")),
				Begin: begin,
				End:   end,
			}))
			return err
		},
	}
}

func windowCommand() *cli.Command {
	return &cli.Command{
		Name:  "window",
		Usage: "print the visible dates for the configured view",
		Flags: viewFlags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			conf, err := loadConfig(cmd, applyViewFlags(cmd))
			if err != nil {
				return err
			}
			anchor, err := anchorDate(cmd, conf)
			if err != nil {
				return err
			}
			w, err := conf.Window(anchor)
			if err != nil {
				return err
			}
			dates, err := w.VisibleDates()
			if err != nil {
				return err
			}
			out := cmd.Root().Writer
			fmt.Fprintf(out, "%s view, %d day(s), moves by %d\n", w.Mode, w.DaysToShow(), w.DaysToMove())
			for _, d := range dates {
				marker := " "
				if d.Equal(model.DateOf(anchor)) {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s\n", marker, d.Format("Mon 2006-01-02"))
			}
			return nil
		},
	}
}

func captureCommand() *cli.Command {
	return &cli.Command{
		Name:  "capture",
		Usage: "screenshot a running /calendar page to PNG",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "page to capture (overrides capture.url)"},
			&cli.StringFlag{Name: "output", Usage: "PNG path (overrides capture.output)"},
			&cli.DurationFlag{Name: "timeout", Value: capture.DefaultTimeout},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			conf, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			opts := capture.OptionsFrom(conf.Capture)
			if v := cmd.String("url"); v != "" {
				opts.URL = v
			}
			if v := cmd.String("output"); v != "" {
				opts.Output = v
			}
			opts.Timeout = cmd.Duration("timeout")
			return capture.CalendarPNG(ctx, opts)
		},
	}
}

// loadConfig loads, overrides, validates and logs the effective config.
func loadConfig(cmd *cli.Command, override func(*config.Config)) (*config.Config, error) {
	path := cmd.String("config")
	conf, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if v := cmd.String("log-level"); v != "" {
		conf.LogLevel = v
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	if override != nil {
		override(conf)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	appLog.Info("effective config",
		"config_path", path,
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"refresh", conf.RefreshCron,
		"view_mode", conf.View.Mode,
		"view_days", conf.View.Days,
		"ics_count", len(conf.ICS),
	)
	return conf, nil
}

func applyViewFlags(cmd *cli.Command) func(*config.Config) {
	return func(c *config.Config) {
		if v := cmd.String("mode"); v != "" {
			c.View.Mode = v
		}
		if cmd.IsSet("days") {
			c.View.Days = int(cmd.Int("days"))
		}
		if v := cmd.String("position"); v != "" {
			c.View.Position = v
		}
	}
}

// anchorDate is --date in the configured timezone, or today.
func anchorDate(cmd *cli.Command, conf *config.Config) (time.Time, error) {
	loc, err := conf.Location()
	if err != nil {
		return time.Time{}, err
	}
	v := cmd.String("date")
	if v == "" {
		return model.DateOf(time.Now().In(loc)), nil
	}
	d, err := time.ParseInLocation("2006-01-02", v, loc)
	if err != nil {
		return time.Time{}, errors.New("--date must be YYYY-MM-DD")
	}
	return d, nil
}
