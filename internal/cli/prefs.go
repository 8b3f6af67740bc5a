package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mzahid/athan/internal/display"
	"github.com/mzahid/athan/internal/notify"
	"github.com/mzahid/athan/internal/times"
)

var (
	flagPrefEnabled  bool
	flagPrefUrgent   bool
	flagPrefReminder int
)

func newPrefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or set notification preferences",
		Long:  "Per-prayer notification preferences: enabled, urgent end-of-window alert, and a reminder a fixed number of minutes before the window opens.",
		RunE:  runPrefsShow,
	}

	set := &cobra.Command{
		Use:   "set <prayer>",
		Short: "Set a prayer's notification preferences",
		Long: fmt.Sprintf("Set notification preferences for one prayer. Reminder minutes must be one of %v.\n\nExamples:\n  athan prefs set asr --urgent\n  athan prefs set fajr --reminder 20\n  athan prefs set dhuhr --enabled=false",
			notify.ReminderChoices),
		Args: cobra.ExactArgs(1),
		RunE: runPrefsSet,
	}
	set.Flags().BoolVar(&flagPrefEnabled, "enabled", true, "Enable notifications for this prayer")
	set.Flags().BoolVar(&flagPrefUrgent, "urgent", false, "Alert when the window enters its closing threshold")
	set.Flags().IntVar(&flagPrefReminder, "reminder", 0, "Minutes before the window opens (0 = no reminder)")
	cmd.AddCommand(set)

	return cmd
}

func runPrefsShow(cmd *cobra.Command, args []string) error {
	tbl := display.NewTable([]string{"Prayer", "Enabled", "Urgent", "Reminder"})
	for _, p := range times.AllPrayers {
		if !p.Obligatory() {
			continue
		}
		pref := settingsStore.Pref(p)
		reminder := "-"
		if pref.ReminderMinutes > 0 {
			reminder = strconv.Itoa(pref.ReminderMinutes) + "m before"
		}
		tbl.AddRow([]string{
			p.String(),
			strconv.FormatBool(pref.Enabled),
			strconv.FormatBool(pref.Urgent),
			reminder,
		})
	}

	fmt.Println()
	fmt.Print(tbl.Render())
	fmt.Println()
	return nil
}

func runPrefsSet(cmd *cobra.Command, args []string) error {
	p, err := times.ParsePrayer(args[0])
	if err != nil {
		return err
	}

	// Start from the stored triple so an unset flag keeps its value.
	pref := settingsStore.Pref(p)
	if cmd.Flags().Changed("enabled") {
		pref.Enabled = flagPrefEnabled
	}
	if cmd.Flags().Changed("urgent") {
		pref.Urgent = flagPrefUrgent
	}
	if cmd.Flags().Changed("reminder") {
		pref.ReminderMinutes = flagPrefReminder
	}

	if err := settingsStore.SetPref(p, pref); err != nil {
		return err
	}
	fmt.Printf("Updated %s notification preferences\n", p)
	return nil
}
