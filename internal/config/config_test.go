package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "athan.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Location.Fixed() {
		t.Error("no coordinate configured, Fixed() should be false")
	}
	if !cfg.Location.AutoDetect {
		t.Error("auto_detect should default to true")
	}
	if cfg.Engine.UrgentThreshold != 30*time.Minute {
		t.Errorf("urgent_threshold = %v, want 30m", cfg.Engine.UrgentThreshold)
	}
	if cfg.Tick.Interval != 30*time.Second || cfg.Tick.UrgentInterval != time.Second {
		t.Errorf("tick = %v/%v, want 30s/1s", cfg.Tick.Interval, cfg.Tick.UrgentInterval)
	}
	if cfg.MQTT.Enabled {
		t.Error("mqtt should default to disabled")
	}
	if got := cfg.Display.GoTimeFormat(); got != "15:04" {
		t.Errorf("GoTimeFormat = %q, want 15:04", got)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
location:
  latitude: 40.0
  longitude: -75.0
  timezone: America/New_York
engine:
  high_latitude_rule: middle-of-night
  day_boundary: fajr
  urgent_threshold: 15m
display:
  time_format: 12h
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if !cfg.Location.Fixed() {
		t.Error("Fixed() should be true with a configured coordinate")
	}
	if cfg.Location.Latitude != 40.0 || cfg.Location.Longitude != -75.0 {
		t.Errorf("coordinate = (%v, %v)", cfg.Location.Latitude, cfg.Location.Longitude)
	}
	rule, err := cfg.Engine.Rule()
	if err != nil {
		t.Fatal(err)
	}
	if string(rule) != "middle-of-night" {
		t.Errorf("rule = %s", rule)
	}
	boundary, err := cfg.Engine.Boundary()
	if err != nil {
		t.Fatal(err)
	}
	if string(boundary) != "fajr" {
		t.Errorf("boundary = %s", boundary)
	}
	if cfg.Engine.UrgentThreshold != 15*time.Minute {
		t.Errorf("urgent_threshold = %v, want 15m", cfg.Engine.UrgentThreshold)
	}
	if got := cfg.Display.GoTimeFormat(); got != "3:04 PM" {
		t.Errorf("GoTimeFormat = %q, want 12h layout", got)
	}
}

func TestLoad_InvalidEnum(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad rule", "engine:\n  high_latitude_rule: guesswork\n"},
		{"bad boundary", "engine:\n  day_boundary: noonish\n"},
		{"bad time format", "display:\n  time_format: 13h\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("an explicitly named missing config file should be an error")
	}
}
