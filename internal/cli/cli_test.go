package cli

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mzahid/athan/internal/adjust"
	"github.com/mzahid/athan/internal/astro"
	"github.com/mzahid/athan/internal/config"
	"github.com/mzahid/athan/internal/times"
)

// runCommand executes the root command with args, capturing stdout. Flags are
// package globals, so each run starts from a fresh command tree.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	resetFlags()

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w

	cmd := NewRootCmd("test")
	cmd.SetArgs(args)
	execErr := cmd.Execute()

	w.Close()
	os.Stdout = old
	out, _ := io.ReadAll(r)
	return string(out), execErr
}

func resetFlags() {
	FlagConfig = ""
	FlagLatitude = 0
	FlagLongitude = 0
	FlagTimezone = ""
	FlagMethod = ""
	FlagMadhab = ""
	FlagRule = ""
	FlagJSON = false
	FlagTimeFormat = ""
	flagFormat = ""
}

func TestRootCommandTree(t *testing.T) {
	cmd := NewRootCmd("test")

	want := []string{"today", "next", "watch", "methods", "qibla", "adjust", "prefs", "config", "serve"}
	for _, name := range want {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestToday_JSON(t *testing.T) {
	out, err := runCommand(t, "today", "2024-06-21", "--json",
		"--latitude", "40", "--longitude", "-75")
	if err != nil {
		t.Fatal(err)
	}

	var resp struct {
		Date   string            `json:"date"`
		Method string            `json:"method"`
		Hijri  string            `json:"hijri"`
		Times  map[string]string `json:"times"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if resp.Date != "2024-06-21" {
		t.Errorf("date = %q", resp.Date)
	}
	if resp.Method != "isna" {
		t.Errorf("method = %q, want default isna", resp.Method)
	}
	if !strings.Contains(resp.Hijri, "AH") {
		t.Errorf("hijri = %q", resp.Hijri)
	}
	for _, name := range []string{"Fajr", "Sunrise", "Dhuhr", "Asr", "Maghrib", "Isha"} {
		if resp.Times[name] == "" {
			t.Errorf("missing %s", name)
		}
	}
}

func TestToday_MethodFlagOverride(t *testing.T) {
	out, err := runCommand(t, "today", "2024-06-21", "--json",
		"--latitude", "40", "--longitude", "-75", "--method", "karachi")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"method": "karachi"`) {
		t.Errorf("method flag not applied:\n%s", out)
	}
}

func TestToday_BadDate(t *testing.T) {
	_, err := runCommand(t, "today", "someday", "--latitude", "40", "--longitude", "-75")
	if err == nil {
		t.Fatal("expected an error for a malformed date")
	}
}

func TestActiveWindow_FajrBoundarySpansSolarMidnight(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	resetFlags()

	store, err := adjust.Open()
	if err != nil {
		t.Fatal(err)
	}
	settingsStore = store
	loadedConfig = &config.Config{
		Engine: config.EngineConfig{HighLatitudeRule: "none", DayBoundary: "fajr"},
	}

	cmd := NewRootCmd("test")
	// Near the antimeridian in a UTC+10 zone solar midnight lands around
	// 22:05 civil time, so 23:00 sits between it and the next Fajr.
	zone := time.FixedZone("UTC+10", 10*60*60)
	coord := astro.Coordinate{Latitude: 40.0, Longitude: 179.0}
	day, err := buildDay(cmd, time.Date(2024, 6, 21, 0, 0, 0, 0, zone), coord)
	if err != nil {
		t.Fatal(err)
	}

	now := time.Date(2024, 6, 21, 23, 0, 0, 0, zone)
	current, _ := activeWindow(cmd, day, now)
	if current != times.Isha {
		t.Errorf("current = %v, want Isha (window runs to the next Fajr)", current)
	}
}

func TestNext_TimeRemaining(t *testing.T) {
	out, err := runCommand(t, "next", "--format", "time-remaining",
		"--latitude", "40", "--longitude", "-75")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "m") {
		t.Errorf("time-remaining output = %q", out)
	}
}

func TestMethods_ListsCatalog(t *testing.T) {
	out, err := runCommand(t, "methods")
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"mwl", "isna", "umm-al-qura", "moonsighting"} {
		if !strings.Contains(out, id) {
			t.Errorf("methods output missing %q", id)
		}
	}
	if !strings.Contains(out, "selected") {
		t.Error("the selected method should be marked")
	}
}

func TestQibla_JSON(t *testing.T) {
	out, err := runCommand(t, "qibla", "--json", "--latitude", "40", "--longitude", "-75")
	if err != nil {
		t.Fatal(err)
	}
	var resp struct {
		Bearing float64 `json:"bearing_deg"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if resp.Bearing < 55 || resp.Bearing > 62 {
		t.Errorf("bearing = %.2f, want ~58.5", resp.Bearing)
	}
}

func TestAdjust_SetAndShow(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	resetFlags()
	cmd := NewRootCmd("test")
	cmd.SetArgs([]string{"adjust", "set", "fajr", "7", "--latitude", "40", "--longitude", "-75"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}

	// Same XDG dir, so the stored adjustment is visible to the next run.
	resetFlags()
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	cmd = NewRootCmd("test")
	cmd.SetArgs([]string{"adjust"})
	err := cmd.Execute()
	w.Close()
	os.Stdout = old
	out, _ := io.ReadAll(r)

	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "Fajr") || !strings.Contains(string(out), "+7m") {
		t.Errorf("adjust show output = %q", string(out))
	}
}

func TestAdjust_OutOfRange(t *testing.T) {
	_, err := runCommand(t, "adjust", "set", "fajr", "45",
		"--latitude", "40", "--longitude", "-75")
	if err == nil {
		t.Fatal("expected range error for 45 minutes")
	}
}

func TestConfig_SetMethod(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	resetFlags()
	cmd := NewRootCmd("test")
	cmd.SetArgs([]string{"config", "set", "method", "umm-al-qura"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}

	resetFlags()
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	cmd = NewRootCmd("test")
	cmd.SetArgs([]string{"config"})
	err := cmd.Execute()
	w.Close()
	os.Stdout = old
	out, _ := io.ReadAll(r)

	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "umm-al-qura") {
		t.Errorf("config show output = %q", string(out))
	}
}

func TestConfig_UnknownKey(t *testing.T) {
	_, err := runCommand(t, "config", "set", "favorite_color", "green")
	if err == nil {
		t.Fatal("expected an error for an unknown key")
	}
}

func TestPrefs_SetReminder(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	resetFlags()
	cmd := NewRootCmd("test")
	cmd.SetArgs([]string{"prefs", "set", "asr", "--reminder", "15", "--urgent"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}

	resetFlags()
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	cmd = NewRootCmd("test")
	cmd.SetArgs([]string{"prefs"})
	err := cmd.Execute()
	w.Close()
	os.Stdout = old
	out, _ := io.ReadAll(r)

	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "15m before") {
		t.Errorf("prefs output = %q", string(out))
	}
}

func TestPrefs_RejectsOffMenuReminder(t *testing.T) {
	_, err := runCommand(t, "prefs", "set", "asr", "--reminder", "13")
	if err == nil {
		t.Fatal("expected an error for an off-menu reminder offset")
	}
}
