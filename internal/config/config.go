// Package config loads application configuration from athan.yaml via viper.
//
// The merge priority is: CLI flags > config file > defaults. This file covers
// the engine and daemon knobs; the user's adjustments, method selection, and
// notification preferences live in the adjust store, which keeps them
// human-inspectable and versioned independently of this file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/mzahid/athan/internal/period"
	"github.com/mzahid/athan/internal/times"
)

type Config struct {
	Location LocationConfig `mapstructure:"location"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Tick     TickConfig     `mapstructure:"tick"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Database DatabaseConfig `mapstructure:"database"`
	Display  DisplayConfig  `mapstructure:"display"`
}

// LocationConfig fixes the coordinate, or enables IP auto-detection when no
// explicit coordinate is set and AutoDetect is true.
type LocationConfig struct {
	Latitude   float64 `mapstructure:"latitude"`
	Longitude  float64 `mapstructure:"longitude"`
	Timezone   string  `mapstructure:"timezone"`
	AutoDetect bool    `mapstructure:"auto_detect"`
}

// Fixed reports whether an explicit coordinate is configured.
func (l LocationConfig) Fixed() bool {
	return l.Latitude != 0 || l.Longitude != 0
}

type EngineConfig struct {
	HighLatitudeRule string        `mapstructure:"high_latitude_rule"`
	DayBoundary      string        `mapstructure:"day_boundary"`
	UrgentThreshold  time.Duration `mapstructure:"urgent_threshold"`
}

// Rule parses the configured high-latitude rule.
func (e EngineConfig) Rule() (times.HighLatitudeRule, error) {
	return times.ParseHighLatitudeRule(e.HighLatitudeRule)
}

// Boundary parses the configured day boundary.
func (e EngineConfig) Boundary() (period.DayBoundary, error) {
	switch period.DayBoundary(e.DayBoundary) {
	case "", period.EndAtMidnight:
		return period.EndAtMidnight, nil
	case period.EndAtNextFajr:
		return period.EndAtNextFajr, nil
	default:
		return period.EndAtMidnight, fmt.Errorf("unknown day boundary %q: must be midnight or fajr", e.DayBoundary)
	}
}

// TickConfig controls the daemon's advance cadence. The interval tightens to
// UrgentInterval while a window is in its urgent trailing threshold.
type TickConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	UrgentInterval time.Duration `mapstructure:"urgent_interval"`
}

type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type DisplayConfig struct {
	TimeFormat string `mapstructure:"time_format"` // "12h" or "24h"
}

// GoTimeFormat maps the configured format to a Go layout string.
func (d DisplayConfig) GoTimeFormat() string {
	if d.TimeFormat == "12h" {
		return "3:04 PM"
	}
	return "15:04"
}

// Load reads the config from configPath, or from the default search path
// (./athan.yaml, then $XDG_CONFIG_HOME/athan/). A missing file is not an
// error; defaults apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("athan")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir := defaultConfigDir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}

	v.SetDefault("location.latitude", 0.0)
	v.SetDefault("location.longitude", 0.0)
	v.SetDefault("location.timezone", "")
	v.SetDefault("location.auto_detect", true)
	v.SetDefault("engine.high_latitude_rule", string(times.RuleNone))
	v.SetDefault("engine.day_boundary", string(period.EndAtMidnight))
	v.SetDefault("engine.urgent_threshold", "30m")
	v.SetDefault("tick.interval", "30s")
	v.SetDefault("tick.urgent_interval", "1s")
	v.SetDefault("http.enabled", true)
	v.SetDefault("http.port", 8742)
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "athan")
	v.SetDefault("mqtt.topic_prefix", "athan")
	v.SetDefault("database.path", defaultDatabasePath())
	v.SetDefault("display.time_format", "24h")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Validate the enums up front so the daemon fails fast.
	if _, err := cfg.Engine.Rule(); err != nil {
		return nil, err
	}
	if _, err := cfg.Engine.Boundary(); err != nil {
		return nil, err
	}
	if cfg.Display.TimeFormat != "12h" && cfg.Display.TimeFormat != "24h" {
		return nil, fmt.Errorf("invalid display.time_format %q: must be \"12h\" or \"24h\"", cfg.Display.TimeFormat)
	}

	return &cfg, nil
}

// TimezoneLocation resolves the configured zone, falling back to the system
// local zone when unset.
func (c *Config) TimezoneLocation() (*time.Location, error) {
	if c.Location.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Location.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Location.Timezone, err)
	}
	return loc, nil
}

func defaultConfigDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "athan")
}

func defaultDatabasePath() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "./athan.db"
		}
		dir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(dir, "athan", "athan.db")
}
