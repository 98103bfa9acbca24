package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"weekcal/internal/config"
)

const sample = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//weekcal//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:standup\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART:20250106T090000Z\r\n" +
	"DTEND:20250106T091500Z\r\n" +
	"RRULE:FREQ=DAILY;COUNT=5\r\n" +
	"EXDATE:20250108T090000Z\r\n" +
	"SUMMARY:Standup\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:standup\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"RECURRENCE-ID:20250109T090000Z\r\n" +
	"DTSTART:20250109T100000Z\r\n" +
	"DTEND:20250109T103000Z\r\n" +
	"SUMMARY:Standup (moved)\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:review\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART:20250107T140000Z\r\n" +
	"DTEND:20250107T160000Z\r\n" +
	"SUMMARY:Review\r\n" +
	"LOCATION:Room 2\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:holiday\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20250110\r\n" +
	"DTEND;VALUE=DATE:20250111\r\n" +
	"SUMMARY:Holiday\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:overnight\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART:20250107T220000Z\r\n" +
	"DTEND:20250108T020000Z\r\n" +
	"SUMMARY:Deploy\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART:20250107T080000Z\r\n" +
	"SUMMARY:No UID\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

var src = Source{ID: "work", URL: "https://example.com/cal.ics"}

func TestParse(t *testing.T) {
	events, err := Parse(src, []byte(sample))
	require.NoError(t, err)
	require.Len(t, events, 5)

	byUID := map[string][]Event{}
	for _, ev := range events {
		byUID[ev.UID] = append(byUID[ev.UID], ev)
	}
	require.Len(t, byUID["standup"], 2)
	require.Equal(t, "FREQ=DAILY;COUNT=5", byUID["standup"][0].RRule)
	require.Len(t, byUID["standup"][0].ExDates, 1)
	require.NotNil(t, byUID["standup"][1].RecurrenceID)
	require.True(t, byUID["holiday"][0].AllDay)
	require.Equal(t, "Room 2", byUID["review"][0].Location)

	_, err = Parse(src, []byte("  "))
	require.Error(t, err)
}

func TestExpand(t *testing.T) {
	events, err := Parse(src, []byte(sample))
	require.NoError(t, err)

	res, err := Expand(events, ExpandOptions{
		Location: time.UTC,
		From:     time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		To:       time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	var got []string
	for _, a := range res.Appointments {
		got = append(got, a.Begin.Format("02 15:04")+" "+a.Summary)
		require.Equal(t, "work", a.SourceID)
		require.NotEmpty(t, a.ID)
	}
	require.Equal(t, []string{
		"06 09:00 Standup",
		"07 09:00 Standup",
		"07 14:00 Review",
		"09 10:00 Standup (moved)",
		"10 09:00 Standup",
	}, got)
	// holiday and overnight
	require.Equal(t, 2, res.Skipped)

	again, err := Expand(events, ExpandOptions{
		Location: time.UTC,
		From:     time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		To:       time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, res.Appointments[0].ID, again.Appointments[0].ID)
}

func TestExpandRange(t *testing.T) {
	events, err := Parse(src, []byte(sample))
	require.NoError(t, err)

	res, err := Expand(events, ExpandOptions{
		Location:       time.UTC,
		From:           time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC),
		To:             time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC),
		MaxOccurrences: 1,
	})
	require.NoError(t, err)
	require.Len(t, res.Appointments, 2)

	_, err = Expand(events, ExpandOptions{
		From: time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
}

func TestAppointmentIDIsStable(t *testing.T) {
	at := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	require.Equal(t, AppointmentID("a", "u", at), AppointmentID("a", "u", at.In(time.FixedZone("x", 3600))))
	require.NotEqual(t, AppointmentID("a", "u", at), AppointmentID("b", "u", at))
}

func TestFetchCachesAndFallsBack(t *testing.T) {
	var hits atomic.Int32
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if fail.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(sample))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	s := Source{ID: "work", URL: srv.URL + "/private/token.ics"}

	res, err := f.FetchOne(context.Background(), s)
	require.NoError(t, err)
	require.False(t, res.FromCache)
	require.Equal(t, sample, string(res.Body))

	res, err = f.FetchOne(context.Background(), s)
	require.NoError(t, err)
	require.True(t, res.FromCache)
	require.Equal(t, sample, string(res.Body))

	fail.Store(true)
	res, err = f.FetchOne(context.Background(), s)
	require.NoError(t, err)
	require.True(t, res.FromCache)
	require.Equal(t, int32(3), hits.Load())

	_, errs := f.FetchAll(context.Background(), []Source{{ID: "other", URL: srv.URL + "/other.ics"}})
	require.Len(t, errs, 1)
}

func TestSourcesFromAndRedact(t *testing.T) {
	got := SourcesFrom([]config.ICSConfig{{URL: "https://a/x.ics", Name: "A"}, {URL: "https://b/y.ics", ID: "b"}})
	require.Equal(t, []Source{{ID: "A", URL: "https://a/x.ics"}, {ID: "b", URL: "https://b/y.ics"}}, got)

	red := redactURL("https://example.com/path/secret.ics?token=abc")
	require.Equal(t, "https://example.com/...(redacted)", red)
	require.False(t, strings.Contains(redactURL("not a url"), "not"))
}
