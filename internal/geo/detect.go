// Package geo resolves the device's location when no fixed coordinate is
// configured. Resolution can fail or be slow; callers treat that as the
// explicit "location unavailable" input state and defer building prayer
// times, never block on it.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mzahid/athan/internal/astro"
)

// ErrUnavailable wraps every resolution failure so callers can branch on the
// unavailable state without inspecting causes.
var ErrUnavailable = errors.New("location unavailable")

// Location holds geographic coordinates detected from the user's IP.
type Location struct {
	Coord    astro.Coordinate `json:"coord"`
	City     string           `json:"city"`
	Country  string           `json:"country"`
	Timezone string           `json:"timezone"`
}

// ipAPIResponse maps the response from ip-api.com.
type ipAPIResponse struct {
	Status   string  `json:"status"`
	Message  string  `json:"message"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	City     string  `json:"city"`
	Country  string  `json:"country"`
	Timezone string  `json:"timezone"`
}

// geoAPIURL is the geolocation API endpoint. It is a variable (not a constant)
// so that tests can override it with an httptest server URL.
var geoAPIURL = "http://ip-api.com/json/?fields=status,message,lat,lon,city,country,timezone"

// Detect uses ip-api.com to determine the user's location from their public
// IP address. This is a free service that requires no API key. Every failure
// path wraps ErrUnavailable.
func Detect(ctx context.Context) (*Location, error) {
	client := &http.Client{Timeout: 5 * time.Second}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, geoAPIURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: geolocation API returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var result ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrUnavailable, err)
	}

	if result.Status != "success" {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, result.Message)
	}

	loc := &Location{
		Coord:    astro.Coordinate{Latitude: result.Lat, Longitude: result.Lon},
		City:     result.City,
		Country:  result.Country,
		Timezone: result.Timezone,
	}
	if !loc.Coord.Valid() {
		return nil, fmt.Errorf("%w: implausible coordinate %+v", ErrUnavailable, loc.Coord)
	}
	return loc, nil
}

// DetectCached returns a fresh cached detection when one exists, falling back
// to the API and caching the result best-effort. The cache keeps one-shot
// commands from hitting the geolocation API on every invocation.
func DetectCached(ctx context.Context) (*Location, error) {
	now := time.Now()
	if loc := loadCached(now); loc != nil {
		return loc, nil
	}

	loc, err := Detect(ctx)
	if err != nil {
		return nil, err
	}
	saveCached(loc, now)
	return loc, nil
}
