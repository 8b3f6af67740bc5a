package geo

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// cacheTTL bounds how long a detected location is reused before asking the
// API again. IP-derived locations drift only when the user moves networks.
const cacheTTL = 24 * time.Hour

// cacheEntry is the on-disk layout under the XDG cache dir.
type cacheEntry struct {
	Location   Location  `json:"location"`
	DetectedAt time.Time `json:"detected_at"`
}

// cachePath returns the geolocation cache file path, honoring $XDG_CACHE_HOME.
func cachePath() (string, error) {
	dir := os.Getenv("XDG_CACHE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".cache")
	}
	return filepath.Join(dir, "athan", "geo.json"), nil
}

// loadCached returns the cached location if it is still fresh, nil otherwise.
func loadCached(now time.Time) *Location {
	path, err := cachePath()
	if err != nil {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil
	}
	if now.Sub(entry.DetectedAt) > cacheTTL || !entry.Location.Coord.Valid() {
		return nil
	}
	loc := entry.Location
	return &loc
}

// saveCached writes the detection result, best-effort.
func saveCached(loc *Location, now time.Time) {
	path, err := cachePath()
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}

	raw, err := json.MarshalIndent(cacheEntry{Location: *loc, DetectedAt: now}, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(path, append(raw, '\n'), 0o644)
}
