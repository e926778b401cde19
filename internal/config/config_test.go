package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	c := DefaultConfig()
	if c.Slots.Start != "11:00" || c.Slots.End != "23:50" || c.Slots.StepMinutes != 10 {
		t.Errorf("slots = %+v", c.Slots)
	}
	if c.Layout.RowHeight != 30 || c.Layout.MobileRowHeight != 20 || c.Layout.MinCardHeight != 50 {
		t.Errorf("layout = %+v", c.Layout)
	}
	if c.NowRefresh != "@every 1m" || c.DebugHour != 12 {
		t.Errorf("now = %q hour %d", c.NowRefresh, c.DebugHour)
	}
	if c.BasicAuth != nil {
		t.Error("basic auth enabled by default")
	}
}

func TestNormalizeFixesBadValues(t *testing.T) {
	c := &Config{LogLevel: "verbose", DebugHour: 30, Slots: SlotConfig{StepMinutes: -5}}
	c.Normalize()
	if c.LogLevel != "info" {
		t.Errorf("log level = %q", c.LogLevel)
	}
	if c.DebugHour != 12 {
		t.Errorf("debug hour = %d", c.DebugHour)
	}
	if c.Slots.StepMinutes != 10 {
		t.Errorf("step = %d", c.Slots.StepMinutes)
	}
}

func TestLoadWritesDefaultsOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Listen != "127.0.0.1:8080" {
		t.Errorf("listen = %q", c.Listen)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("listen: \":9090\"\nslots:\n  step_minutes: 15\nbasic_auth:\n  username: a\n  password: b\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Listen != ":9090" || c.Slots.StepMinutes != 15 || c.Slots.Start != "11:00" {
		t.Errorf("config = %+v", c)
	}
	if c.BasicAuth == nil || c.BasicAuth.Username != "a" {
		t.Errorf("basic auth = %+v", c.BasicAuth)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FESTGRID_LISTEN", ":7070")
	t.Setenv("FESTGRID_DEBUG", "true")
	t.Setenv("FESTGRID_DB_PATH", "/tmp/x.db")
	t.Setenv("FESTGRID_LOG_LEVEL", "debug")

	c := DefaultConfig()
	c.Timezone = "Europe/Berlin"
	if err := c.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if c.Listen != ":7070" || !c.Debug || c.DBPath != "/tmp/x.db" || c.LogLevel != "debug" {
		t.Errorf("config = %+v", c)
	}
	if c.Timezone != "Europe/Berlin" {
		t.Errorf("unset variable changed timezone to %q", c.Timezone)
	}
}

func TestEnvRejectsBadBool(t *testing.T) {
	t.Setenv("FESTGRID_DEBUG", "maybe")
	if err := DefaultConfig().ApplyEnv(); err == nil {
		t.Error("expected error for FESTGRID_DEBUG=maybe")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	c := DefaultConfig()
	c.Export.Title = "Mine"
	if err := c.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Export.Title != "Mine" {
		t.Errorf("title = %q", got.Export.Title)
	}
}

func TestDebugHourMidnight(t *testing.T) {
	c := &Config{DebugHour: 0}
	c.Normalize()
	if c.DebugHour != 0 {
		t.Errorf("debug hour = %d, want 0 kept", c.DebugHour)
	}

	c = &Config{DebugHour: -3}
	c.Normalize()
	if c.DebugHour != 12 {
		t.Errorf("debug hour = %d, want 12", c.DebugHour)
	}
}

func TestLoadDebugHour(t *testing.T) {
	dir := t.TempDir()
	unset := filepath.Join(dir, "unset.yaml")
	if err := os.WriteFile(unset, []byte("debug: true\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := Load(unset)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.DebugHour != 12 {
		t.Errorf("missing debug_hour = %d, want 12", c.DebugHour)
	}

	midnight := filepath.Join(dir, "midnight.yaml")
	if err := os.WriteFile(midnight, []byte("debug: true\ndebug_hour: 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err = Load(midnight)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.DebugHour != 0 {
		t.Errorf("debug_hour 0 loaded as %d", c.DebugHour)
	}
}
