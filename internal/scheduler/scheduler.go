// Package scheduler refreshes the engine's appointments from the configured
// ICS feeds on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"weekcal/internal/config"
	"weekcal/internal/engine"
	"weekcal/internal/ics"
	appLog "weekcal/internal/log"
	"weekcal/internal/model"
	"weekcal/internal/window"
)

// Fetcher is the part of ics.Fetcher the refresher needs.
type Fetcher interface {
	FetchAll(ctx context.Context, sources []ics.Source) ([]ics.FetchResult, []error)
}

// Options tunes how far around the visible window appointments are expanded.
type Options struct {
	Past   time.Duration
	Future time.Duration
	// AfterRefresh runs after every successful refresh, e.g. a page capture.
	AfterRefresh func(ctx context.Context, snap engine.Snapshot)
	// Now is used for the initial anchor. Defaults to time.Now.
	Now func() time.Time
}

// Refresher runs fetch, parse, expand and engine update as one job.
type Refresher struct {
	cfg     *config.Config
	loc     *time.Location
	fetcher Fetcher
	engine  *engine.Engine
	opts    Options

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
	// [from, to) of the last successful expansion
	from, to time.Time
}

func NewRefresher(cfg *config.Config, fetcher Fetcher, eng *engine.Engine, opts Options) (*Refresher, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("scheduler: timezone: %w", err)
	}
	if opts.Past <= 0 {
		opts.Past = 14 * 24 * time.Hour
	}
	if opts.Future <= 0 {
		opts.Future = 60 * 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Refresher{cfg: cfg, loc: loc, fetcher: fetcher, engine: eng, opts: opts}, nil
}

// Status reports when the last refresh finished and how it went.
func (r *Refresher) Status() (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRun, r.lastErr
}

// Covers reports whether the appointments of the last successful refresh span
// every visible date of w. A window outside that span needs a refresh to show
// its appointments.
func (r *Refresher) Covers(w window.Window) bool {
	first, last, err := w.Range()
	if err != nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.from.IsZero() {
		return false
	}
	return !first.Before(r.from) && !last.After(r.to)
}

// Refresh performs one refresh. Sources that fail are skipped; the refresh
// fails only when every source failed or the engine rejected the input.
func (r *Refresher) Refresh(ctx context.Context) (engine.Snapshot, error) {
	snap, err := r.refresh(ctx)

	r.mu.Lock()
	r.lastRun = r.opts.Now()
	r.lastErr = err
	r.mu.Unlock()

	if err != nil {
		appLog.Error("refresh failed", err)
		return snap, err
	}
	if r.opts.AfterRefresh != nil {
		r.opts.AfterRefresh(ctx, snap)
	}
	return snap, nil
}

func (r *Refresher) refresh(ctx context.Context) (engine.Snapshot, error) {
	w, err := r.currentWindow()
	if err != nil {
		return engine.Snapshot{}, err
	}
	first, last, err := w.Range()
	if err != nil {
		return engine.Snapshot{}, err
	}

	sources := ics.SourcesFrom(r.cfg.ICS)
	results, errs := r.fetcher.FetchAll(ctx, sources)
	if len(sources) > 0 && len(results) == 0 {
		return engine.Snapshot{}, fmt.Errorf("scheduler: all %d sources failed: %w", len(sources), errors.Join(errs...))
	}

	var events []ics.Event
	for _, res := range results {
		evs, err := ics.Parse(res.Source, res.Body)
		if err != nil {
			appLog.Error("ics parse failed", err, "id", res.Source.ID)
			continue
		}
		events = append(events, evs...)
	}

	from, to := first.Add(-r.opts.Past), last.Add(r.opts.Future)
	expanded, err := ics.Expand(events, ics.ExpandOptions{
		Location: r.loc,
		From:     from,
		To:       to,
	})
	if err != nil {
		return engine.Snapshot{}, err
	}

	snap, err := r.engine.Update(ctx, func(in engine.Input) engine.Input {
		if in.Window.Anchor.IsZero() {
			in.Window = w
		}
		in.Items = expanded.Appointments
		return in
	})
	if err != nil {
		return snap, err
	}

	r.mu.Lock()
	r.from, r.to = from, to
	r.mu.Unlock()

	appLog.Info("refresh done",
		"sources", len(results),
		"failed", len(errs),
		"appointments", len(expanded.Appointments),
		"skipped", expanded.Skipped,
		"generation", snap.Generation,
	)
	return snap, nil
}

// currentWindow is the published window, or the configured one anchored
// today before anything was published.
func (r *Refresher) currentWindow() (window.Window, error) {
	if snap, ok := r.engine.Snapshot(); ok && !snap.Input.Window.Anchor.IsZero() {
		return snap.Input.Window, nil
	}
	return r.cfg.Window(model.DateOf(r.opts.Now().In(r.loc)))
}

// Scheduler runs a Refresher on the configured cron spec.
type Scheduler struct {
	cron *cron.Cron
}

// New registers r under spec; each run uses ctx. Overlapping runs are skipped
// rather than queued.
func New(ctx context.Context, spec string, loc *time.Location, r *Refresher) (*Scheduler, error) {
	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(spec, func() { _, _ = r.Refresh(ctx) }); err != nil {
		return nil, fmt.Errorf("scheduler: spec %q: %w", spec, err)
	}
	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop stops scheduling and waits for a running refresh, or ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Next reports the next scheduled run.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// cronLogger routes cron's own messages into the app log.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
