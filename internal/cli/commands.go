package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mzahid/athan/internal/astro"
	"github.com/mzahid/athan/internal/display"
	"github.com/mzahid/athan/internal/method"
)

func newMethodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "methods",
		Short: "List the calculation methods",
		Long:  "Print the catalog of supported calculation methods with their twilight parameters. The selected method is marked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			selected := settingsStore.Method().ID

			tbl := display.NewTable([]string{"ID", "Name", "Fajr", "Isha", ""})
			for i, m := range method.All() {
				isha := fmt.Sprintf("%.4g°", m.IshaAngle)
				if m.UsesIshaInterval() {
					isha = fmt.Sprintf("%dm after Maghrib", m.IshaIntervalMin)
					if m.IshaIntervalRamadanMin > 0 {
						isha += fmt.Sprintf(" (%dm in Ramadan)", m.IshaIntervalRamadanMin)
					}
				}
				mark := ""
				if m.ID == selected {
					mark = "selected"
					tbl.SetHighlightRow(i)
				}
				tbl.AddRow([]string{m.ID, m.Name, fmt.Sprintf("%.4g°", m.FajrAngle), isha, mark})
			}

			fmt.Println()
			fmt.Print(tbl.Render())
			fmt.Println()
			fmt.Println("  Select with 'athan config set method <id>' or the --method flag.")
			return nil
		},
	}
}

func newQiblaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "qibla",
		Short: "Show the qibla bearing from your location",
		Long:  "Print the great-circle bearing from your location to the Kaaba, in degrees clockwise from true north.",
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, place, err := resolveCoordinate(cmd.Context())
			if err != nil {
				return err
			}

			bearing := astro.QiblaBearing(coord)
			if FlagJSON {
				fmt.Printf("{\"bearing_deg\": %.2f}\n", bearing)
				return nil
			}

			if place != "" {
				fmt.Printf("  %s\n", place)
			}
			fmt.Printf("  Qibla: %s from true north\n", display.Bold(fmt.Sprintf("%.1f°", bearing)))
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or modify the persisted settings",
		Long:  "Display the effective settings, or use subcommands to modify the persisted method and madhab selection. Engine and daemon knobs live in athan.yaml.",
		RunE:  runConfigShow,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a persisted setting",
		Long:  "Set a persisted setting. Valid keys: method, madhab\n\nExamples:\n  athan config set method umm-al-qura\n  athan config set madhab hanafi",
		Args:  cobra.ExactArgs(2),
		RunE:  runConfigSet,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the settings file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(settingsStore.Path())
			return nil
		},
	})

	return cmd
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	m := settingsStore.Method()

	fmt.Printf("  Settings (%s)\n\n", settingsStore.Path())
	fmt.Printf("  %-14s %s (%s)\n", "method", m.ID, m.Name)
	fmt.Printf("  %-14s %s\n", "madhab", settingsStore.Madhab())

	adj := settingsStore.Adjustments()
	if adj.IsAdjusted() {
		fmt.Printf("  %-14s", "adjustments")
		for _, e := range adjustedEntries(adj) {
			fmt.Printf(" %s%+dm", e.name, e.minutes)
		}
		fmt.Println()
	}

	rule := loadedConfig.Engine.HighLatitudeRule
	fmt.Printf("\n  %-14s %s\n", "hl-rule", rule)
	fmt.Printf("  %-14s %s\n", "boundary", loadedConfig.Engine.DayBoundary)
	fmt.Printf("  %-14s %s\n", "threshold", loadedConfig.Engine.UrgentThreshold.Round(time.Minute))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	switch key {
	case "method":
		if err := settingsStore.SetMethod(value); err != nil {
			return err
		}
	case "madhab":
		if err := settingsStore.SetMadhab(value); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown key %q: valid keys are method, madhab", key)
	}

	fmt.Printf("Set %s = %s\n", key, value)
	return nil
}
