// Package cli wires the athan commands. One-shot commands (today, next,
// qibla) compute locally and exit; serve runs the daemon with the HTTP API,
// notification dispatch, and optional MQTT publishing.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mzahid/athan/internal/adjust"
	"github.com/mzahid/athan/internal/astro"
	"github.com/mzahid/athan/internal/config"
	"github.com/mzahid/athan/internal/geo"
	"github.com/mzahid/athan/internal/method"
	"github.com/mzahid/athan/internal/period"
	"github.com/mzahid/athan/internal/times"
)

// Global flags shared across all subcommands.
var (
	FlagConfig     string
	FlagLatitude   float64
	FlagLongitude  float64
	FlagTimezone   string
	FlagMethod     string
	FlagMadhab     string
	FlagRule       string
	FlagJSON       bool
	FlagTimeFormat string
)

// loadedConfig and settingsStore are populated in PersistentPreRunE and
// available to all subcommand handlers.
var (
	loadedConfig  *config.Config
	settingsStore *adjust.Store
)

// NewRootCmd creates the root command for the athan CLI.
// The version parameter is set by the calling binary via ldflags.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "athan",
		Short:   "Islamic prayer times, computed locally",
		Long:    "Compute Islamic prayer times from solar astronomy, track the current prayer period, and schedule notifications. No network required for the calculation itself.",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(FlagConfig)
			if err != nil {
				return err
			}
			loadedConfig = cfg

			store, err := adjust.Open()
			if err != nil {
				return fmt.Errorf("failed to open settings store: %w", err)
			}
			settingsStore = store
			return nil
		},
		// Default action: show today's prayer schedule.
		RunE:          runToday,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&FlagConfig, "config", "", "Config file path (default: ./athan.yaml, then $XDG_CONFIG_HOME/athan/)")
	pf.Float64Var(&FlagLatitude, "latitude", 0, "Override latitude")
	pf.Float64Var(&FlagLongitude, "longitude", 0, "Override longitude")
	pf.StringVar(&FlagTimezone, "timezone", "", "Override IANA timezone (default: system local)")
	pf.StringVar(&FlagMethod, "method", "", "Override calculation method (see 'athan methods')")
	pf.StringVar(&FlagMadhab, "madhab", "", "Override madhab: shafi or hanafi")
	pf.StringVar(&FlagRule, "high-latitude-rule", "", "Fallback for undefined twilight: none, middle-of-night, seventh-of-night")
	pf.BoolVar(&FlagJSON, "json", false, "Output as JSON (where supported)")
	pf.StringVar(&FlagTimeFormat, "time-format", "", "Time format: 12h or 24h (overrides config)")

	rootCmd.AddCommand(newTodayCmd())
	rootCmd.AddCommand(newNextCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newMethodsCmd())
	rootCmd.AddCommand(newQiblaCmd())
	rootCmd.AddCommand(newAdjustCmd())
	rootCmd.AddCommand(newPrefsCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newServeCmd())

	return rootCmd
}

// flagWasSet checks if a flag was explicitly set on either the local or
// persistent flag set.
func flagWasSet(local, persistent *pflag.FlagSet, name string) bool {
	if f := local.Lookup(name); f != nil && f.Changed {
		return true
	}
	if f := persistent.Lookup(name); f != nil && f.Changed {
		return true
	}
	return false
}

// effectiveMethod merges the method selection: CLI flag > settings store >
// catalog default.
func effectiveMethod(cmd *cobra.Command) (method.Method, error) {
	if flagWasSet(cmd.Flags(), cmd.Root().PersistentFlags(), "method") {
		return method.Lookup(FlagMethod)
	}
	return settingsStore.Method(), nil
}

// effectiveMadhab merges the madhab selection the same way.
func effectiveMadhab(cmd *cobra.Command) (method.Madhab, error) {
	if flagWasSet(cmd.Flags(), cmd.Root().PersistentFlags(), "madhab") {
		return method.ParseMadhab(FlagMadhab)
	}
	return settingsStore.Madhab(), nil
}

// effectiveOptions merges the high-latitude rule: CLI flag > config file.
func effectiveOptions(cmd *cobra.Command) (times.Options, error) {
	ruleStr := loadedConfig.Engine.HighLatitudeRule
	if flagWasSet(cmd.Flags(), cmd.Root().PersistentFlags(), "high-latitude-rule") {
		ruleStr = FlagRule
	}
	rule, err := times.ParseHighLatitudeRule(ruleStr)
	if err != nil {
		return times.Options{}, err
	}
	return times.Options{HighLatitudeRule: rule}, nil
}

// effectiveEngine builds the period engine from config.
func effectiveEngine() (period.Engine, error) {
	boundary, err := loadedConfig.Engine.Boundary()
	if err != nil {
		return period.Engine{}, err
	}
	return period.Engine{
		Boundary:        boundary,
		UrgentThreshold: loadedConfig.Engine.UrgentThreshold,
	}, nil
}

// goTimeFormat merges the display format: CLI flag > config file.
func goTimeFormat(cmd *cobra.Command) string {
	if flagWasSet(cmd.Flags(), cmd.Root().PersistentFlags(), "time-format") {
		if FlagTimeFormat == "12h" {
			return "3:04 PM"
		}
		return "15:04"
	}
	return loadedConfig.Display.GoTimeFormat()
}

// effectiveZone merges the timezone: CLI flag > config file > system local.
func effectiveZone() (*time.Location, error) {
	tz := loadedConfig.Location.Timezone
	if FlagTimezone != "" {
		tz = FlagTimezone
	}
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return loc, nil
}

// resolveCoordinate merges the location: CLI flags > config file > IP
// auto-detection. The returned place string is set only for detection.
func resolveCoordinate(ctx context.Context) (astro.Coordinate, string, error) {
	if FlagLatitude != 0 || FlagLongitude != 0 {
		return astro.Coordinate{Latitude: FlagLatitude, Longitude: FlagLongitude}, "", nil
	}
	if loadedConfig.Location.Fixed() {
		return astro.Coordinate{
			Latitude:  loadedConfig.Location.Latitude,
			Longitude: loadedConfig.Location.Longitude,
		}, "", nil
	}
	if !loadedConfig.Location.AutoDetect {
		return astro.Coordinate{}, "", fmt.Errorf("%w: no coordinate configured and auto_detect is off", geo.ErrUnavailable)
	}

	detected, err := geo.DetectCached(ctx)
	if err != nil {
		return astro.Coordinate{}, "", fmt.Errorf("no location configured and auto-detection failed: %w", err)
	}
	place := detected.City
	if detected.Country != "" {
		place = fmt.Sprintf("%s, %s", detected.City, detected.Country)
	}
	return detected.Coord, place, nil
}

// buildDay computes the effective day for the given date using the merged
// settings.
func buildDay(cmd *cobra.Command, date time.Time, coord astro.Coordinate) (*times.Day, error) {
	m, err := effectiveMethod(cmd)
	if err != nil {
		return nil, err
	}
	madhab, err := effectiveMadhab(cmd)
	if err != nil {
		return nil, err
	}
	opts, err := effectiveOptions(cmd)
	if err != nil {
		return nil, err
	}
	return times.Build(date, coord, m, madhab, settingsStore.Adjustments(), opts)
}
