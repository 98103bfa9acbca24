package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"weekcal/internal/config"
	"weekcal/internal/engine"
	"weekcal/internal/ics"
)

const feed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//weekcal//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:a\r\n" +
	"DTSTART:20250107T090000Z\r\n" +
	"DTEND:20250107T110000Z\r\n" +
	"SUMMARY:Planning\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:b\r\n" +
	"DTSTART:20250107T100000Z\r\n" +
	"DTEND:20250107T120000Z\r\n" +
	"SUMMARY:Interview\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

type fakeFetcher struct {
	body []byte
	err  error
}

func (f fakeFetcher) FetchAll(_ context.Context, sources []ics.Source) ([]ics.FetchResult, []error) {
	if f.err != nil {
		return nil, []error{f.err}
	}
	var out []ics.FetchResult
	for _, s := range sources {
		out = append(out, ics.FetchResult{Source: s, Body: f.body})
	}
	return out, nil
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.ICS = []config.ICSConfig{{ID: "work", URL: "https://example.com/work.ics"}}
	return cfg
}

func fixedNow() time.Time { return time.Date(2025, 1, 8, 15, 0, 0, 0, time.UTC) }

func TestRefreshPublishesSnapshot(t *testing.T) {
	eng := engine.New(engine.Options{AssignLanes: true})
	var after int
	r, err := NewRefresher(testConfig(), fakeFetcher{body: []byte(feed)}, eng, Options{
		Now:          fixedNow,
		AfterRefresh: func(context.Context, engine.Snapshot) { after++ },
	})
	require.NoError(t, err)

	snap, err := r.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, after)
	require.Len(t, snap.Dates, 7)
	require.Equal(t, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), snap.Dates[0])

	tue := snap.Days[1]
	require.Len(t, tue.Items, 2)
	require.Equal(t, 1, tue.Items[1].Lane)

	last, lastErr := r.Status()
	require.NoError(t, lastErr)
	require.Equal(t, fixedNow(), last)

	// A second refresh keeps the navigated window.
	_, err = eng.Update(context.Background(), func(in engine.Input) engine.Input {
		in.Window = in.Window.Next()
		return in
	})
	require.NoError(t, err)
	snap, err = r.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC), snap.Dates[0])
	require.Len(t, snap.Input.Items, 2)
}

func TestCoversExpandedRange(t *testing.T) {
	eng := engine.New(engine.Options{AssignLanes: true})
	r, err := NewRefresher(testConfig(), fakeFetcher{body: []byte(feed)}, eng, Options{Now: fixedNow})
	require.NoError(t, err)

	w, err := testConfig().Window(time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.False(t, r.Covers(w))

	_, err = r.Refresh(context.Background())
	require.NoError(t, err)
	require.True(t, r.Covers(w))
	// 14 days back and 60 days past the week of Jan 6 are expanded.
	require.True(t, r.Covers(w.WithAnchor(time.Date(2024, 12, 23, 0, 0, 0, 0, time.UTC))))
	require.True(t, r.Covers(w.WithAnchor(time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC))))
	require.False(t, r.Covers(w.WithAnchor(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))))
	require.False(t, r.Covers(w.WithAnchor(time.Date(2024, 12, 16, 0, 0, 0, 0, time.UTC))))
}

func TestRefreshFailsWhenEverySourceFails(t *testing.T) {
	eng := engine.New(engine.Options{})
	boom := errors.New("boom")
	r, err := NewRefresher(testConfig(), fakeFetcher{err: boom}, eng, Options{Now: fixedNow})
	require.NoError(t, err)

	_, err = r.Refresh(context.Background())
	require.ErrorIs(t, err, boom)
	_, lastErr := r.Status()
	require.ErrorIs(t, lastErr, boom)

	_, ok := eng.Snapshot()
	require.False(t, ok)
}

func TestRefreshRejectsBadView(t *testing.T) {
	cfg := testConfig()
	cfg.View.Mode = "day"
	cfg.View.Days = 12
	r, err := NewRefresher(cfg, fakeFetcher{body: []byte(feed)}, engine.New(engine.Options{}), Options{Now: fixedNow})
	require.NoError(t, err)
	_, err = r.Refresh(context.Background())
	require.Error(t, err)
}

func TestSchedulerSpec(t *testing.T) {
	r, err := NewRefresher(testConfig(), fakeFetcher{}, engine.New(engine.Options{}), Options{})
	require.NoError(t, err)

	_, err = New(context.Background(), "not a spec", time.UTC, r)
	require.Error(t, err)

	s, err := New(context.Background(), "*/15 * * * *", time.UTC, r)
	require.NoError(t, err)
	s.Start()
	require.False(t, s.Next().IsZero())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
