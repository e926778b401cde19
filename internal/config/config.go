package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata" // venue zones on hosts without zoneinfo

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces environment overrides, e.g. FESTGRID_LISTEN.
const EnvPrefix = "FESTGRID"

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// SlotConfig is the grid's time window and cadence.
type SlotConfig struct {
	Start       string `yaml:"start" json:"start"` // "HH:MM"
	End         string `yaml:"end" json:"end"`     // inclusive
	StepMinutes int    `yaml:"step_minutes" json:"step_minutes"`
}

// LayoutConfig holds pixel sizes of the grid.
type LayoutConfig struct {
	RowHeight       float64 `yaml:"row_height" json:"row_height"`
	MobileRowHeight float64 `yaml:"mobile_row_height" json:"mobile_row_height"`
	MinCardHeight   float64 `yaml:"min_card_height" json:"min_card_height"`
}

// FestivalConfig describes the event itself.
type FestivalConfig struct {
	// Opening is the first festival day, "YYYY-MM-DD".
	Opening string `yaml:"opening" json:"opening"`
	Days    int    `yaml:"days" json:"days"`
}

// ExportConfig is the text and fonts of shared schedule images.
type ExportConfig struct {
	Title      string `yaml:"title" json:"title"`
	RangeLabel string `yaml:"range_label" json:"range_label"`
	Watermark  string `yaml:"watermark" json:"watermark"`
	// FontPath and BoldFontPath point at TTF/OTF files. Empty paths use the
	// bundled Go fonts, which lack CJK glyphs.
	FontPath     string `yaml:"font_path" json:"font_path"`
	BoldFontPath string `yaml:"bold_font_path" json:"bold_font_path"`
	Scale        int    `yaml:"scale" json:"scale"`
}

// CaptureConfig controls headless screenshots of the grid page.
type CaptureConfig struct {
	ChromiumPath string `yaml:"chromium_path" json:"chromium_path"`
	Width        int    `yaml:"width" json:"width"`
	Height       int    `yaml:"height" json:"height"`
	TimeoutSec   int    `yaml:"timeout_sec" json:"timeout_sec"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the venue's IANA zone. Performance times are wall-clock
	// times there.
	Timezone string `yaml:"timezone" json:"timezone"`

	DBPath   string `yaml:"db_path" json:"db_path"`
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Debug pins the now indicator to DebugHour on the selected date. Zero
	// means noon; midnight is outside any festival grid.
	Debug     bool `yaml:"debug" json:"debug"`
	DebugHour int  `yaml:"debug_hour" json:"debug_hour"`

	// NowRefresh is a cron schedule for re-sampling the clock.
	NowRefresh string `yaml:"now_refresh" json:"now_refresh"`

	Festival FestivalConfig `yaml:"festival" json:"festival"`
	Slots    SlotConfig     `yaml:"slots" json:"slots"`
	Layout   LayoutConfig   `yaml:"layout" json:"layout"`
	Export   ExportConfig   `yaml:"export" json:"export"`
	Capture  CaptureConfig  `yaml:"capture" json:"capture"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// Env lists the supported environment overrides. Unset variables leave the
// file value alone.
type Env struct {
	Listen   *string `envconfig:"LISTEN"`
	DBPath   *string `envconfig:"DB_PATH"`
	Debug    *bool   `envconfig:"DEBUG"`
	LogLevel *string `envconfig:"LOG_LEVEL"`
	Timezone *string `envconfig:"TIMEZONE"`
	FontPath *string `envconfig:"FONT_PATH"`
}

// defaultDebugHour pins the debug clock to noon.
const defaultDebugHour = 12

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{DebugHour: defaultDebugHour}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values so partially-filled files still
// behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "Asia/Taipei"
	}
	if c.DBPath == "" {
		c.DBPath = "./var/festgrid.db"
	}
	if c.CacheDir == "" {
		c.CacheDir = "./var/fetch-cache"
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = "info"
	}
	if c.DebugHour < 0 || c.DebugHour > 23 {
		c.DebugHour = defaultDebugHour
	}
	if c.NowRefresh == "" {
		c.NowRefresh = "@every 1m"
	}

	if c.Festival.Opening == "" {
		c.Festival.Opening = "2025-03-29"
	}
	if c.Festival.Days <= 0 {
		c.Festival.Days = 2
	}

	if c.Slots.Start == "" {
		c.Slots.Start = "11:00"
	}
	if c.Slots.End == "" {
		c.Slots.End = "23:50"
	}
	if c.Slots.StepMinutes <= 0 {
		c.Slots.StepMinutes = 10
	}

	if c.Layout.RowHeight <= 0 {
		c.Layout.RowHeight = 30
	}
	if c.Layout.MobileRowHeight <= 0 {
		c.Layout.MobileRowHeight = 20
	}
	if c.Layout.MinCardHeight <= 0 {
		c.Layout.MinCardHeight = 50
	}

	if c.Export.Title == "" {
		c.Export.Title = "我的大港聽團行程"
	}
	if c.Export.RangeLabel == "" {
		c.Export.RangeLabel = "3/29 (六) - 3/30 (日)"
	}
	if c.Export.Watermark == "" {
		c.Export.Watermark = "Festva 用心製作"
	}
	if c.Export.Scale <= 0 {
		c.Export.Scale = 2
	}

	if c.Capture.Width <= 0 {
		c.Capture.Width = 1280
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = 900
	}
	if c.Capture.TimeoutSec <= 0 {
		c.Capture.TimeoutSec = 30
	}
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ApplyEnv overlays FESTGRID_* variables onto c.
func (c *Config) ApplyEnv() error {
	var env Env
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("config: env: %w", err)
	}
	if env.Listen != nil {
		c.Listen = *env.Listen
	}
	if env.DBPath != nil {
		c.DBPath = *env.DBPath
	}
	if env.Debug != nil {
		c.Debug = *env.Debug
	}
	if env.LogLevel != nil {
		c.LogLevel = *env.LogLevel
	}
	if env.Timezone != nil {
		c.Timezone = *env.Timezone
	}
	if env.FontPath != nil {
		c.Export.FontPath = *env.FontPath
	}
	c.Normalize()
	return nil
}

// Load loads configuration from the given YAML path and applies environment
// overrides.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (creating the parent directory) and returned.
//   - Otherwise the YAML is read and missing values normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, cfg.ApplyEnv()
		}
		return nil, err
	}

	// Keys missing from the file keep their defaults.
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms.
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

	tmp, err := os.CreateTemp(dir, ".festgrid-config-*.tmp")
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

func (c *Config) Save(path string) error {
	return Save(path, c)
}
