package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"weekcal/internal/window"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "week", cfg.View.Mode)
	require.True(t, cfg.Layout.AssignLanes)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, again)
}

func TestLoadNormalizesPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
listen: ":9090"
week_start: sunday
view:
  mode: day
  days: 3
  position: center
ics:
  - url: https://example.com/a.ics
    name: work
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.Listen)
	require.Equal(t, "*/15 * * * *", cfg.RefreshCron)
	require.Equal(t, "08:00", cfg.View.DayBegin)
	require.Equal(t, "http://:9090/calendar", cfg.Capture.URL)
	require.Equal(t, "work", cfg.ICS[0].SourceID())
	require.True(t, cfg.Layout.AssignLanes)
	require.NoError(t, cfg.Validate())

	w, err := cfg.Window(time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, window.Day, w.Mode)
	require.Equal(t, window.Center, w.Position)
	require.Equal(t, time.Sunday, w.FirstDayOfWeek)

	first, err := w.FirstVisibleDate()
	require.NoError(t, err)
	// Center truncates toward the anchor for odd counts.
	require.Equal(t, 8, first.Day())
}

func TestLoadKeepsExplicitFalse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timezone: UTC\nlayout:\n  assign_lanes: false\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.False(t, cfg.Layout.AssignLanes)
	require.Equal(t, "UTC", cfg.Timezone)
	require.Equal(t, "week", cfg.View.Mode)
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("view: [1, 2"), 0o600))
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
		is   error
	}{
		{"too many days", func(c *Config) { c.View.Mode = "day"; c.View.Days = 11 }, window.ErrDaysOutOfRange},
		{"no days", func(c *Config) { c.View.Mode = "day"; c.View.Days = -1 }, window.ErrDaysOutOfRange},
		{"mode", func(c *Config) { c.View.Mode = "month" }, window.ErrInvalidMode},
		{"position", func(c *Config) { c.View.Position = "top" }, window.ErrInvalidPosition},
		{"weekday", func(c *Config) { c.WeekStart = "someday" }, window.ErrInvalidWeekday},
		{"cron", func(c *Config) { c.RefreshCron = "every minute" }, nil},
		{"timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, nil},
		{"day bounds", func(c *Config) { c.View.DayEnd = "25:00" }, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mut(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			if tc.is != nil {
				require.ErrorIs(t, err, tc.is)
			}
		})
	}

	require.NoError(t, DefaultConfig().Validate())
}

func TestDayBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.View.DayBegin = "07:30"
	begin, end, err := cfg.DayBounds()
	require.NoError(t, err)
	require.Equal(t, 7*time.Hour+30*time.Minute, begin)
	require.Equal(t, 18*time.Hour, end)
}
