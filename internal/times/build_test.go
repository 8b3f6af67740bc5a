package times

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/mzahid/athan/internal/astro"
	"github.com/mzahid/athan/internal/method"
)

var edt = time.FixedZone("EDT", -4*3600)

func mustMethod(t *testing.T, id string) method.Method {
	t.Helper()
	m, err := method.Lookup(id)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

// buildSummerDay builds the canonical test day: ISNA, Shafi, (40, -75),
// 2024-06-21.
func buildSummerDay(t *testing.T, adj Adjustments, opts Options) (*Day, error) {
	t.Helper()
	return Build(
		time.Date(2024, 6, 21, 0, 0, 0, 0, edt),
		astro.Coordinate{Latitude: 40.0, Longitude: -75.0},
		mustMethod(t, "isna"), method.Shafi, adj, opts,
	)
}

// ---------------------------------------------------------------------------
// Build
// ---------------------------------------------------------------------------

func TestBuild_OrderingHolds(t *testing.T) {
	day, err := buildSummerDay(t, Adjustments{}, Options{})
	if err != nil {
		t.Fatal(err)
	}

	entries := day.Ordered()
	if len(entries) != int(NumPrayers) {
		t.Fatalf("expected all %d boundaries defined, got %d", NumPrayers, len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if !entries[i].Time.After(entries[i-1].Time) {
			t.Errorf("%s not after %s", entries[i].Prayer, entries[i-1].Prayer)
		}
	}

	isha, _ := day.At(Isha)
	if !isha.Before(day.Midnight) {
		t.Errorf("Isha %v not before solar midnight %v", isha, day.Midnight)
	}
	if !day.Midnight.Before(day.LastThird) {
		t.Errorf("midnight %v not before last third %v", day.Midnight, day.LastThird)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	a, err := buildSummerDay(t, Adjustments{}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := buildSummerDay(t, Adjustments{}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("two builds with identical inputs differ")
	}
}

func TestBuild_DhuhrFollowsSolarNoon(t *testing.T) {
	day, err := buildSummerDay(t, Adjustments{}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	dhuhr, _ := day.At(Dhuhr)
	// Solar noon at (40, -75) on the solstice is 13:02 local; ISNA adds one
	// minute.
	want := time.Date(2024, 6, 21, 13, 3, 0, 0, edt)
	diff := dhuhr.Sub(want)
	if diff < -5*time.Minute || diff > 5*time.Minute {
		t.Errorf("Dhuhr = %v, want about %v", dhuhr.Format("15:04"), want.Format("15:04"))
	}
}

func TestBuild_AdjustmentsAppliedLast(t *testing.T) {
	base, err := buildSummerDay(t, Adjustments{}, Options{})
	if err != nil {
		t.Fatal(err)
	}

	var adj Adjustments
	adj[Fajr] = -10
	adj[Isha] = 10
	shifted, err := buildSummerDay(t, adj, Options{})
	if err != nil {
		t.Fatal(err)
	}

	baseFajr, _ := base.At(Fajr)
	gotFajr, _ := shifted.At(Fajr)
	if want := baseFajr.Add(-10 * time.Minute); !gotFajr.Equal(want) {
		t.Errorf("adjusted Fajr = %v, want %v", gotFajr, want)
	}

	baseIsha, _ := base.At(Isha)
	gotIsha, _ := shifted.At(Isha)
	if want := baseIsha.Add(10 * time.Minute); !gotIsha.Equal(want) {
		t.Errorf("adjusted Isha = %v, want %v", gotIsha, want)
	}

	// Untouched prayers must be bit-identical.
	baseAsr, _ := base.At(Asr)
	gotAsr, _ := shifted.At(Asr)
	if !gotAsr.Equal(baseAsr) {
		t.Errorf("Asr moved without an adjustment: %v vs %v", gotAsr, baseAsr)
	}
}

func TestBuild_AdjustmentOutOfRange(t *testing.T) {
	var adj Adjustments
	adj[Dhuhr] = AdjustmentLimitMin + 1
	if _, err := buildSummerDay(t, adj, Options{}); err == nil {
		t.Fatal("expected error for adjustment beyond the limit")
	}
}

func TestBuild_RejectsReorderingAdjustment(t *testing.T) {
	// At the equator on an equinox the Maghrib -> Isha twilight gap is about
	// 57 minutes, so +30/-30 adjustments cross the boundaries.
	var adj Adjustments
	adj[Maghrib] = 30
	adj[Isha] = -30

	_, err := Build(
		time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
		astro.Coordinate{Latitude: 0, Longitude: 0},
		mustMethod(t, "isna"), method.Shafi, adj, Options{},
	)
	if !errors.Is(err, ErrUnordered) {
		t.Fatalf("expected ErrUnordered, got %v", err)
	}
}

func TestBuild_MethodChangeShiftsOnlyAngleTimes(t *testing.T) {
	date := time.Date(2024, 6, 21, 0, 0, 0, 0, edt)
	coord := astro.Coordinate{Latitude: 40.0, Longitude: -75.0}

	isna, err := Build(date, coord, mustMethod(t, "isna"), method.Shafi, Adjustments{}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	uaq, err := Build(date, coord, mustMethod(t, "umm-al-qura"), method.Shafi, Adjustments{}, Options{})
	if err != nil {
		t.Fatal(err)
	}

	// Non-angle prayers come from the same solar noon/sunset inputs.
	for _, p := range []Prayer{Sunrise, Dhuhr, Asr, Maghrib} {
		a, _ := isna.At(p)
		b, _ := uaq.At(p)
		if !a.Equal(b) {
			t.Errorf("%s moved on method change: %v vs %v", p, a, b)
		}
	}

	// Fajr and Isha must differ (18.5° vs 15°, interval vs angle).
	fa, _ := isna.At(Fajr)
	fb, _ := uaq.At(Fajr)
	if fa.Equal(fb) {
		t.Error("Fajr unchanged despite different depression angles")
	}
	ia, _ := isna.At(Isha)
	ib, _ := uaq.At(Isha)
	if ia.Equal(ib) {
		t.Error("Isha unchanged despite interval-mode method")
	}
}

func TestBuild_IshaIntervalMode(t *testing.T) {
	date := time.Date(2024, 6, 21, 0, 0, 0, 0, edt)
	coord := astro.Coordinate{Latitude: 40.0, Longitude: -75.0}

	day, err := Build(date, coord, mustMethod(t, "umm-al-qura"), method.Shafi, Adjustments{}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	maghrib, _ := day.At(Maghrib)
	isha, _ := day.At(Isha)
	if got := isha.Sub(maghrib); got != 90*time.Minute {
		t.Errorf("interval Isha = Maghrib + %v, want 90m", got)
	}
}

func TestBuild_InvalidCoordinate(t *testing.T) {
	_, err := Build(
		time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC),
		astro.Coordinate{Latitude: 91, Longitude: 0},
		mustMethod(t, "isna"), method.Shafi, Adjustments{}, Options{},
	)
	if err == nil {
		t.Fatal("expected error for invalid latitude")
	}
}

// ---------------------------------------------------------------------------
// High latitude
// ---------------------------------------------------------------------------

// buildMoscowSolstice builds Moscow on the June solstice with an 18° method,
// where the angle crossings never happen.
func buildMoscowSolstice(t *testing.T, adj Adjustments, opts Options) (*Day, error) {
	t.Helper()
	msk := time.FixedZone("MSK", 3*3600)
	return Build(
		time.Date(2024, 6, 21, 0, 0, 0, 0, msk),
		astro.Coordinate{Latitude: 55.75, Longitude: 37.62},
		mustMethod(t, "karachi"), method.Shafi, adj, opts,
	)
}

func TestBuild_HighLatitudeRuleNone(t *testing.T) {
	day, err := buildMoscowSolstice(t, Adjustments{}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := day.At(Fajr); ok {
		t.Error("Fajr should stay undefined under the default rule")
	}
	if _, ok := day.At(Isha); ok {
		t.Error("Isha should stay undefined under the default rule")
	}
	if _, ok := day.At(Dhuhr); !ok {
		t.Error("Dhuhr must remain defined")
	}
}

func TestBuild_HighLatitudeMiddleOfNight(t *testing.T) {
	day, err := buildMoscowSolstice(t, Adjustments{}, Options{HighLatitudeRule: RuleMiddleOfNight})
	if err != nil {
		t.Fatal(err)
	}
	fajr, ok := day.At(Fajr)
	if !ok {
		t.Fatal("Fajr should be substituted under middle-of-night")
	}
	sunrise, _ := day.At(Sunrise)
	if !fajr.Before(sunrise) {
		t.Errorf("substituted Fajr %v not before sunrise %v", fajr, sunrise)
	}

	isha, ok := day.At(Isha)
	if !ok {
		t.Fatal("Isha should be substituted under middle-of-night")
	}
	if !isha.Before(day.Midnight) {
		t.Errorf("substituted Isha %v not before solar midnight %v", isha, day.Midnight)
	}
}

func TestBuild_SubstitutedIshaAdjustmentPastMidnightRejected(t *testing.T) {
	// The substituted Isha sits one minute before solar midnight; a +10
	// adjustment would cross it and must be rejected, not clamped.
	var adj Adjustments
	adj[Isha] = 10
	_, err := buildMoscowSolstice(t, adj, Options{HighLatitudeRule: RuleMiddleOfNight})
	if !errors.Is(err, ErrUnordered) {
		t.Fatalf("expected ErrUnordered, got %v", err)
	}

	adj[Isha] = -10
	if _, err := buildMoscowSolstice(t, adj, Options{HighLatitudeRule: RuleMiddleOfNight}); err != nil {
		t.Fatalf("earlier Isha should be accepted: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Ramadan markers
// ---------------------------------------------------------------------------

func TestBuild_RamadanMarkers(t *testing.T) {
	// 2000-01-01 fell in Ramadan 1420.
	ast := time.FixedZone("AST", 3*3600)
	day, err := Build(
		time.Date(2000, 1, 1, 0, 0, 0, 0, ast),
		astro.Coordinate{Latitude: 21.4225, Longitude: 39.8262},
		mustMethod(t, "umm-al-qura"), method.Shafi, Adjustments{}, Options{},
	)
	if err != nil {
		t.Fatal(err)
	}

	fajr, _ := day.At(Fajr)
	maghrib, _ := day.At(Maghrib)
	isha, _ := day.At(Isha)

	if !day.Suhoor.Equal(fajr) {
		t.Errorf("Suhoor = %v, want Fajr %v", day.Suhoor, fajr)
	}
	if !day.Iftar.Equal(maghrib) {
		t.Errorf("Iftar = %v, want Maghrib %v", day.Iftar, maghrib)
	}
	// Umm al-Qura extends the Isha interval to 120 minutes in Ramadan.
	if got := isha.Sub(maghrib); got != 120*time.Minute {
		t.Errorf("Ramadan interval Isha = Maghrib + %v, want 120m", got)
	}
}

func TestBuild_NoRamadanMarkersOffSeason(t *testing.T) {
	day, err := buildSummerDay(t, Adjustments{}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !day.Suhoor.IsZero() || !day.Iftar.IsZero() {
		t.Error("Suhoor/Iftar must be unset outside Ramadan")
	}
}

// ---------------------------------------------------------------------------
// Prayer enum
// ---------------------------------------------------------------------------

func TestParsePrayer(t *testing.T) {
	tests := []struct {
		in      string
		want    Prayer
		wantErr bool
	}{
		{"Fajr", Fajr, false},
		{"isha", Isha, false},
		{" MAGHRIB ", Maghrib, false},
		{"sunset", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePrayer(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParsePrayer(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePrayer(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePrayer(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPrayerObligatory(t *testing.T) {
	if Sunrise.Obligatory() {
		t.Error("Sunrise is a marker, not an obligatory prayer")
	}
	for _, p := range []Prayer{Fajr, Dhuhr, Asr, Maghrib, Isha} {
		if !p.Obligatory() {
			t.Errorf("%s should be obligatory", p)
		}
	}
}

func TestNextAfter(t *testing.T) {
	day, err := buildSummerDay(t, Adjustments{}, Options{})
	if err != nil {
		t.Fatal(err)
	}

	fajr, _ := day.At(Fajr)
	if next := day.NextAfter(fajr.Add(-time.Hour)); next == nil || next.Prayer != Fajr {
		t.Errorf("NextAfter before Fajr = %+v, want Fajr", next)
	}

	isha, _ := day.At(Isha)
	if next := day.NextAfter(isha); next != nil {
		t.Errorf("NextAfter past Isha = %+v, want nil", next)
	}
}
