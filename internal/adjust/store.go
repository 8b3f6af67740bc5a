// Package adjust persists the user's prayer-time adjustments, calculation
// method/madhab selection, and per-prayer notification preferences.
//
// State is stored as JSON at ~/.config/athan/settings.json (XDG-compliant),
// keyed by stable prayer-name strings so the file stays human-inspectable
// and versionable. The store is single-writer-many-reader: writes are
// serialized behind a mutex and committed to disk before listeners are told
// to recompute derived state.
package adjust

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mzahid/athan/internal/method"
	"github.com/mzahid/athan/internal/notify"
	"github.com/mzahid/athan/internal/times"
)

const (
	storeDirName  = "athan"
	storeFileName = "settings.json"

	// storeVersion is bumped when the on-disk layout changes.
	storeVersion = 1
)

// ErrOutOfRange is returned when an adjustment magnitude exceeds the allowed
// symmetric range.
var ErrOutOfRange = fmt.Errorf("adjustment outside ±%d minutes", times.AdjustmentLimitMin)

// fileData is the on-disk layout.
type fileData struct {
	Version     int                     `json:"version"`
	Method      string                  `json:"method,omitempty"`
	Madhab      string                  `json:"madhab,omitempty"`
	Adjustments map[string]int          `json:"adjustments,omitempty"`
	Preferences map[string]notify.Prefs `json:"preferences,omitempty"`
}

// Store is the process-wide settings store.
type Store struct {
	path string

	mu        sync.Mutex
	data      fileData
	listeners []func()
}

// DefaultPath returns the settings file path, honoring $XDG_CONFIG_HOME.
func DefaultPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, storeDirName, storeFileName), nil
}

// Open loads the store at the default path, creating empty state if the file
// does not exist yet.
func Open() (*Store, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return OpenAt(path)
}

// OpenAt loads the store from a specific file path.
func OpenAt(path string) (*Store, error) {
	s := &Store{path: path}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.data = emptyData()
			return s, nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var data fileData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("invalid settings file %s: %w", path, err)
	}
	if data.Adjustments == nil {
		data.Adjustments = map[string]int{}
	}
	if data.Preferences == nil {
		data.Preferences = map[string]notify.Prefs{}
	}
	data.Version = storeVersion
	s.data = data

	// Discard any persisted values that are no longer valid (edited by
	// hand, or written by a different version).
	for name, min := range s.data.Adjustments {
		if _, err := times.ParsePrayer(name); err != nil {
			delete(s.data.Adjustments, name)
			continue
		}
		if min < -times.AdjustmentLimitMin || min > times.AdjustmentLimitMin {
			delete(s.data.Adjustments, name)
		}
	}

	return s, nil
}

func emptyData() fileData {
	return fileData{
		Version:     storeVersion,
		Adjustments: map[string]int{},
		Preferences: map[string]notify.Prefs{},
	}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Subscribe registers a callback invoked after every committed write. Used by
// the coordinator to rebuild derived state; never patch it incrementally.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// save writes the current state to disk. Caller holds s.mu.
func (s *Store) save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create settings directory %s: %w", dir, err)
	}

	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	raw = append(raw, '\n')

	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

// commit saves and snapshots the listener list under the lock; the callbacks
// run after it is released so they can read the store.
func (s *Store) commit() ([]func(), error) {
	if err := s.save(); err != nil {
		return nil, err
	}
	return append([]func(){}, s.listeners...), nil
}

func runAll(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}

// ---------------------------------------------------------------------------
// Adjustments
// ---------------------------------------------------------------------------

// Adjustment returns the stored offset for a prayer, in minutes.
func (s *Store) Adjustment(p times.Prayer) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Adjustments[p.String()]
}

// Adjustments returns the full offset set in builder form.
func (s *Store) Adjustments() times.Adjustments {
	s.mu.Lock()
	defer s.mu.Unlock()
	var adj times.Adjustments
	for _, p := range times.AllPrayers {
		adj[p] = s.data.Adjustments[p.String()]
	}
	return adj
}

// SetAdjustment validates and persists an offset. Zero clears the entry so
// the file records only deliberate adjustments. Range violations are rejected
// with ErrOutOfRange; ordering validation against the day's times is the
// coordinator's job, before it calls here.
func (s *Store) SetAdjustment(p times.Prayer, minutes int) error {
	if minutes < -times.AdjustmentLimitMin || minutes > times.AdjustmentLimitMin {
		return fmt.Errorf("%s: %+d: %w", p, minutes, ErrOutOfRange)
	}

	s.mu.Lock()
	if minutes == 0 {
		delete(s.data.Adjustments, p.String())
	} else {
		s.data.Adjustments[p.String()] = minutes
	}
	fns, err := s.commit()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	runAll(fns)
	return nil
}

// ClearAdjustments removes every offset.
func (s *Store) ClearAdjustments() error {
	s.mu.Lock()
	s.data.Adjustments = map[string]int{}
	fns, err := s.commit()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	runAll(fns)
	return nil
}

// IsAdjusted reports whether the prayer carries a non-zero offset.
func (s *Store) IsAdjusted(p times.Prayer) bool {
	return s.Adjustment(p) != 0
}

// ---------------------------------------------------------------------------
// Method / madhab selection
// ---------------------------------------------------------------------------

// Method returns the selected calculation method, falling back to the
// catalog default.
func (s *Store) Method() method.Method {
	s.mu.Lock()
	id := s.data.Method
	s.mu.Unlock()

	if id == "" {
		return method.Default
	}
	m, err := method.Lookup(id)
	if err != nil {
		return method.Default
	}
	return m
}

// SetMethod validates and persists a method selection.
func (s *Store) SetMethod(id string) error {
	m, err := method.Lookup(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.data.Method = m.ID
	fns, err := s.commit()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	runAll(fns)
	return nil
}

// Madhab returns the selected madhab (Shafi when unset).
func (s *Store) Madhab() method.Madhab {
	s.mu.Lock()
	id := s.data.Madhab
	s.mu.Unlock()

	m, err := method.ParseMadhab(id)
	if err != nil {
		return method.Shafi
	}
	return m
}

// SetMadhab validates and persists a madhab selection.
func (s *Store) SetMadhab(id string) error {
	m, err := method.ParseMadhab(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.data.Madhab = m.String()
	fns, err := s.commit()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	runAll(fns)
	return nil
}

// ---------------------------------------------------------------------------
// Notification preferences
// ---------------------------------------------------------------------------

// Pref returns the notification preferences for a prayer; obligatory prayers
// default to enabled on-time notifications.
func (s *Store) Pref(p times.Prayer) notify.Prefs {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pref, ok := s.data.Preferences[p.String()]; ok {
		return pref
	}
	return notify.DefaultPrefs()[p]
}

// PrefSet returns the full preference set in scheduler form.
func (s *Store) PrefSet() notify.PrefSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps := notify.DefaultPrefs()
	for _, p := range times.AllPrayers {
		if pref, ok := s.data.Preferences[p.String()]; ok {
			ps[p] = pref
		}
	}
	return ps
}

// SetPref validates and persists a prayer's notification preferences.
func (s *Store) SetPref(p times.Prayer, pref notify.Prefs) error {
	if !p.Obligatory() {
		return fmt.Errorf("%s has no notification window", p)
	}
	if !notify.ValidReminderMinutes(pref.ReminderMinutes) {
		return fmt.Errorf("invalid reminder offset %d: must be one of %v",
			pref.ReminderMinutes, notify.ReminderChoices)
	}

	s.mu.Lock()
	s.data.Preferences[p.String()] = pref
	fns, err := s.commit()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	runAll(fns)
	return nil
}
