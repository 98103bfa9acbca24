// Package engine builds complete calendar snapshots (window + per-day layout)
// and publishes them so that readers only ever see a whole snapshot from the
// most recent request.
package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"weekcal/internal/layout"
	appLog "weekcal/internal/log"
	"weekcal/internal/model"
	"weekcal/internal/window"
)

// ErrSuperseded is returned by Recompute when a newer request has already
// published its snapshot; the stale result is discarded.
var ErrSuperseded = errors.New("engine: superseded by a newer recompute")

// Options controls a layout pass.
type Options struct {
	// AssignLanes runs greedy lane assignment on each day before layout.
	// When false the incoming Lane values are used as is.
	AssignLanes bool
}

// Input is everything a snapshot is derived from.
type Input struct {
	Items  []model.Appointment
	Window window.Window
}

// Snapshot is an immutable, fully computed view.
type Snapshot struct {
	Generation uint64
	Input      Input
	Dates      []time.Time
	Days       []layout.Day
	BuiltAt    time.Time
}

// Build computes the snapshot for in. Items outside the visible dates are
// ignored; the rest are bucketed by the date they begin on.
func Build(in Input, opts Options) (Snapshot, error) {
	if err := in.Window.Validate(); err != nil {
		return Snapshot{}, err
	}
	dates, err := in.Window.VisibleDates()
	if err != nil {
		return Snapshot{}, err
	}

	buckets := make([][]model.Appointment, len(dates))
	if len(dates) > 0 {
		for _, a := range in.Items {
			idx := model.DaysBetween(dates[0], a.Begin)
			if idx < 0 || idx >= len(dates) {
				continue
			}
			buckets[idx] = append(buckets[idx], a)
		}
	}

	days := make([]layout.Day, len(dates))
	for i, d := range dates {
		items := buckets[i]
		if opts.AssignLanes {
			items = layout.AssignLanes(items)
		}
		days[i] = layout.LayoutDay(d, items)
	}

	return Snapshot{
		Input:   in,
		Dates:   dates,
		Days:    days,
		BuiltAt: time.Now(),
	}, nil
}

// Engine owns the published snapshot.
type Engine struct {
	opts Options

	issued  atomic.Uint64
	current atomic.Pointer[Snapshot]
	// publishMu makes the generation check and the store one step.
	publishMu sync.Mutex
}

func New(opts Options) *Engine {
	return &Engine{opts: opts}
}

// Snapshot returns the latest published snapshot and whether one exists.
func (e *Engine) Snapshot() (Snapshot, bool) {
	s := e.current.Load()
	if s == nil {
		return Snapshot{}, false
	}
	return *s, true
}

// Recompute builds a snapshot for in and publishes it unless a request issued
// later has published first, in which case ErrSuperseded is returned along
// with the unpublished snapshot. Concurrent calls are safe.
func (e *Engine) Recompute(ctx context.Context, in Input) (Snapshot, error) {
	gen := e.issued.Add(1)
	snap, err := e.build(ctx, in, gen)
	if err != nil {
		return Snapshot{}, err
	}

	e.publishMu.Lock()
	defer e.publishMu.Unlock()
	if cur := e.current.Load(); cur != nil && cur.Generation > gen {
		appLog.Debug("engine: dropping stale snapshot", "generation", gen, "current", cur.Generation)
		return snap, ErrSuperseded
	}
	e.publish(&snap)
	return snap, nil
}

// Preview builds a snapshot with the engine's options without publishing it.
func (e *Engine) Preview(in Input) (Snapshot, error) {
	return Build(in, e.opts)
}

// Update recomputes from the latest published input after applying fn to it.
// Without a published snapshot fn receives the zero Input. If another snapshot
// is published while the new one is being built, fn is applied again to that
// one's input, so fn must not have side effects.
func (e *Engine) Update(ctx context.Context, fn func(Input) Input) (Snapshot, error) {
	for {
		base := e.current.Load()
		var in Input
		if base != nil {
			in = base.Input
		}

		gen := e.issued.Add(1)
		snap, err := e.build(ctx, fn(in), gen)
		if err != nil {
			return Snapshot{}, err
		}

		e.publishMu.Lock()
		if e.current.Load() != base {
			e.publishMu.Unlock()
			appLog.Debug("engine: input changed during update, retrying", "generation", gen)
			continue
		}
		e.publish(&snap)
		e.publishMu.Unlock()
		return snap, nil
	}
}

func (e *Engine) build(ctx context.Context, in Input, gen uint64) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	snap, err := Build(in, e.opts)
	if err != nil {
		appLog.Error("engine: build failed", err, "generation", gen)
		return Snapshot{}, err
	}
	snap.Generation = gen
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// publish must be called with publishMu held.
func (e *Engine) publish(snap *Snapshot) {
	e.current.Store(snap)
	appLog.Debug("engine: snapshot published",
		"generation", snap.Generation,
		"days", len(snap.Days),
		"items", len(snap.Input.Items),
	)
}
