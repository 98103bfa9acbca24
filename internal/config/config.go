package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"weekcal/internal/window"
)

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label shown in the UI.
	Name string `yaml:"name" json:"name"`
}

// SourceID returns ID, falling back to Name and then URL.
func (c ICSConfig) SourceID() string {
	switch {
	case c.ID != "":
		return c.ID
	case c.Name != "":
		return c.Name
	default:
		return c.URL
	}
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// ViewConfig selects the visible date range and the hours shown without
// scrolling.
type ViewConfig struct {
	// Mode is "day", "week" or "workweek".
	Mode string `yaml:"mode" json:"mode"`
	// Days is the column count in day mode (1..10).
	Days int `yaml:"days" json:"days"`
	// Position of the selected date in day mode: "left", "center", "right".
	Position string `yaml:"position" json:"position"`
	// DayBegin / DayEnd ("HH:MM") bound the hours fitted into the viewport.
	DayBegin string `yaml:"day_begin" json:"day_begin"`
	DayEnd   string `yaml:"day_end" json:"day_end"`
}

// LayoutConfig controls the layout pass.
type LayoutConfig struct {
	// AssignLanes computes overlap lanes before layout. Disable it when the
	// source already provides lanes.
	AssignLanes bool `yaml:"assign_lanes" json:"assign_lanes"`
}

// CaptureConfig drives the headless screenshot of the /calendar page.
type CaptureConfig struct {
	URL    string `yaml:"url" json:"url"`
	Output string `yaml:"output" json:"output"`
	Width  int    `yaml:"width" json:"width"`
	Height int    `yaml:"height" json:"height"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used as canonical display zone (e.g. "Europe/Amsterdam").
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is the first day of the week ("monday", "sunday", ...).
	WeekStart string `yaml:"week_start" json:"week_start"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// used for periodic ICS refresh.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// CacheDir holds the ICS HTTP cache and the capture output.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	View    ViewConfig    `yaml:"view" json:"view"`
	Layout  LayoutConfig  `yaml:"layout" json:"layout"`
	Capture CaptureConfig `yaml:"capture" json:"capture"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		Timezone:    "Local",
		WeekStart:   "monday",
		RefreshCron: "*/15 * * * *",
		LogLevel:    "info",
		CacheDir:    "./var/weekcal",
		View: ViewConfig{
			Mode:     "week",
			Days:     1,
			Position: "left",
			DayBegin: "08:00",
			DayEnd:   "18:00",
		},
		Layout: LayoutConfig{AssignLanes: true},
		Capture: CaptureConfig{
			Width:  1304,
			Height: 984,
		},
		ICS: []ICSConfig{},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly. It never fixes values that
// are present but wrong; Validate reports those.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.WeekStart == "" {
		c.WeekStart = def.WeekStart
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
	if c.View.Mode == "" {
		c.View.Mode = def.View.Mode
	}
	if c.View.Days == 0 {
		c.View.Days = def.View.Days
	}
	if c.View.Position == "" {
		c.View.Position = def.View.Position
	}
	if c.View.DayBegin == "" {
		c.View.DayBegin = def.View.DayBegin
	}
	if c.View.DayEnd == "" {
		c.View.DayEnd = def.View.DayEnd
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = def.Capture.Width
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = def.Capture.Height
	}
	if c.Capture.URL == "" {
		c.Capture.URL = "http://" + c.Listen + "/calendar"
	}
	if c.Capture.Output == "" {
		c.Capture.Output = filepath.Join(c.CacheDir, "preview.png")
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
}

// Validate fails fast on configuration mistakes instead of clamping them.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Window(time.Now()); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("config: timezone %q: %w", c.Timezone, err))
	}
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		errs = append(errs, fmt.Errorf("config: refresh %q: %w", c.RefreshCron, err))
	}
	if _, _, err := c.DayBounds(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Window builds the view window anchored at anchor from the view settings.
func (c *Config) Window(anchor time.Time) (window.Window, error) {
	mode, err := window.ParseMode(c.View.Mode)
	if err != nil {
		return window.Window{}, err
	}
	pos, err := window.ParsePosition(c.View.Position)
	if err != nil {
		return window.Window{}, err
	}
	wd, err := window.ParseWeekday(c.WeekStart)
	if err != nil {
		return window.Window{}, err
	}
	w := window.Window{
		Mode:           mode,
		Days:           c.View.Days,
		Anchor:         anchor,
		Position:       pos,
		FirstDayOfWeek: wd,
	}
	if err := w.Validate(); err != nil {
		return window.Window{}, err
	}
	if mode == window.Day && w.Days < 1 {
		return window.Window{}, &window.ConfigError{Field: "days", Value: w.Days, Err: window.ErrDaysOutOfRange}
	}
	return w, nil
}

// Location resolves Timezone; "Local" maps to time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// DayBounds parses View.DayBegin and View.DayEnd as offsets from midnight.
func (c *Config) DayBounds() (begin, end time.Duration, err error) {
	begin, err = parseClock(c.View.DayBegin)
	if err != nil {
		return 0, 0, fmt.Errorf("config: view.day_begin: %w", err)
	}
	end, err = parseClock(c.View.DayEnd)
	if err != nil {
		return 0, 0, fmt.Errorf("config: view.day_end: %w", err)
	}
	return begin, end, nil
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - unmarshal the YAML over DefaultConfig
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	// Keys missing from the file keep their defaults.
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes the given configuration to the specified path atomically
// (temp file in the same directory + rename) with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".weekcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
