// Package storage persists computed days and dispatched notification
// triggers in a local SQLite database. The history makes trigger dispatch
// restart-safe: a trigger already marked dispatched is never fired twice,
// even across daemon restarts.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mzahid/athan/internal/times"
)

// Database wraps the sqlite handle.
type Database struct {
	db *gorm.DB
}

// ComputedDay records one built prayer-time set. InputsKey hashes the inputs
// (date, coordinate, method, madhab, adjustments) so a change in any of them
// produces a fresh row rather than silently overwriting history.
type ComputedDay struct {
	ID        uint   `gorm:"primaryKey"`
	Date      string `gorm:"index"` // YYYY-MM-DD in the day's zone
	InputsKey string `gorm:"uniqueIndex"`
	Payload   string // JSON dayRecord
	CreatedAt time.Time
}

// DispatchedTrigger records a fired notification trigger by its stable key.
type DispatchedTrigger struct {
	ID      uint   `gorm:"primaryKey"`
	Key     string `gorm:"uniqueIndex"`
	Prayer  string
	Kind    string
	FiredAt time.Time
}

// dayRecord is the JSON payload stored for a computed day.
type dayRecord struct {
	Date        string            `json:"date"`
	MethodID    string            `json:"method"`
	Madhab      string            `json:"madhab"`
	Times       map[string]string `json:"times"`
	Midnight    string            `json:"midnight,omitempty"`
	LastThird   string            `json:"last_third,omitempty"`
	Adjustments map[string]int    `json:"adjustments,omitempty"`
}

// Open opens (creating if needed) the database at path and migrates the
// schema.
func Open(path string) (*Database, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&ComputedDay{}, &DispatchedTrigger{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Database{db: db}, nil
}

// SaveDay upserts the record for a computed day under its inputs key.
func (d *Database) SaveDay(day *times.Day, inputsKey string) error {
	rec := dayRecord{
		Date:        day.Date.Format("2006-01-02"),
		MethodID:    day.MethodID,
		Madhab:      day.Madhab.String(),
		Times:       map[string]string{},
		Adjustments: map[string]int{},
	}
	for _, e := range day.Ordered() {
		rec.Times[e.Prayer.String()] = e.Time.Format(time.RFC3339)
	}
	if !day.Midnight.IsZero() {
		rec.Midnight = day.Midnight.Format(time.RFC3339)
	}
	if !day.LastThird.IsZero() {
		rec.LastThird = day.LastThird.Format(time.RFC3339)
	}
	for _, p := range times.AllPrayers {
		if m := day.Adjustments[p]; m != 0 {
			rec.Adjustments[p.String()] = m
		}
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal day record: %w", err)
	}

	row := ComputedDay{
		Date:      rec.Date,
		InputsKey: inputsKey,
		Payload:   string(payload),
	}

	// Same inputs, same result: keep the existing row.
	err = d.db.Where("inputs_key = ?", inputsKey).First(&ComputedDay{}).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return d.db.Create(&row).Error
}

// DaysFor returns the computed-day history for a civil date, newest first.
func (d *Database) DaysFor(date string) ([]ComputedDay, error) {
	var rows []ComputedDay
	err := d.db.Where("date = ?", date).Order("created_at desc").Find(&rows).Error
	return rows, err
}

// WasDispatched reports whether a trigger key has already been fired.
func (d *Database) WasDispatched(key string) (bool, error) {
	var row DispatchedTrigger
	err := d.db.Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkDispatched records a fired trigger. Marking the same key twice is not
// an error; the first record wins.
func (d *Database) MarkDispatched(key, prayer, kind string, firedAt time.Time) error {
	row := DispatchedTrigger{Key: key, Prayer: prayer, Kind: kind, FiredAt: firedAt}
	err := d.db.Create(&row).Error
	if err != nil {
		if done, checkErr := d.WasDispatched(key); checkErr == nil && done {
			return nil
		}
		return err
	}
	return nil
}

// PruneDispatched removes dispatch records older than the cutoff.
func (d *Database) PruneDispatched(before time.Time) error {
	return d.db.Where("fired_at < ?", before).Delete(&DispatchedTrigger{}).Error
}

// Close releases the underlying connection pool.
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
