// Package coordinator owns the daemon's derived state: the immutable daily
// time sets, the current period, and the trigger dispatch loop. All consumers
// read one atomic snapshot; every input change (settings write, day rollover,
// location fix) rebuilds the snapshot from scratch instead of patching it.
package coordinator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mzahid/athan/internal/adjust"
	"github.com/mzahid/athan/internal/astro"
	"github.com/mzahid/athan/internal/geo"
	"github.com/mzahid/athan/internal/mqtt"
	"github.com/mzahid/athan/internal/notify"
	"github.com/mzahid/athan/internal/period"
	"github.com/mzahid/athan/internal/storage"
	"github.com/mzahid/athan/internal/times"
)

// Snapshot is the immutable read model consumers get. Today/Tomorrow are nil
// while the location is unavailable.
type Snapshot struct {
	Today    *times.Day
	Tomorrow *times.Day
	Coord    astro.Coordinate
	Place    string
	BuiltAt  time.Time
}

// Config wires the coordinator's collaborators. Store is required; the rest
// are optional.
type Config struct {
	Store *adjust.Store

	// Coord fixes the location. When invalid and Locate is set, the
	// coordinator resolves the location at rebuild time.
	Coord  astro.Coordinate
	Locate func(ctx context.Context) (*geo.Location, error)

	Zone *time.Location

	Engine  period.Engine
	Options times.Options

	DB        *storage.Database
	Publisher *mqtt.Publisher

	// OnTrigger receives each dispatched trigger (desktop notification hook).
	OnTrigger func(notify.Trigger)

	TickInterval   time.Duration
	UrgentInterval time.Duration

	// Now overrides the clock in tests.
	Now func() time.Time
}

type Coordinator struct {
	cfg Config

	snap atomic.Pointer[Snapshot]
	// gen orders rebuilds so a slow one cannot overwrite a newer result.
	gen atomic.Uint64
}

func New(cfg Config) (*Coordinator, error) {
	if cfg.Store == nil {
		return nil, errors.New("coordinator requires a settings store")
	}
	if cfg.Zone == nil {
		cfg.Zone = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 30 * time.Second
	}
	if cfg.UrgentInterval <= 0 {
		cfg.UrgentInterval = time.Second
	}

	c := &Coordinator{cfg: cfg}

	// Any committed settings write invalidates the whole derived state.
	cfg.Store.Subscribe(func() {
		if err := c.Rebuild(context.Background()); err != nil {
			log.Warn().Err(err).Msg("rebuild after settings change failed")
		}
	})

	return c, nil
}

// Snapshot returns the current read model, or nil before the first successful
// rebuild.
func (c *Coordinator) Snapshot() *Snapshot {
	return c.snap.Load()
}

// resolveLocation picks the fixed coordinate or asks the resolver.
func (c *Coordinator) resolveLocation(ctx context.Context) (astro.Coordinate, string, error) {
	if c.cfg.Coord.Valid() {
		return c.cfg.Coord, "", nil
	}
	if c.cfg.Locate == nil {
		return astro.Coordinate{}, "", fmt.Errorf("%w: no coordinate configured and no resolver", geo.ErrUnavailable)
	}
	loc, err := c.cfg.Locate(ctx)
	if err != nil {
		return astro.Coordinate{}, "", err
	}
	place := loc.City
	if loc.Country != "" {
		place = fmt.Sprintf("%s, %s", loc.City, loc.Country)
	}
	return loc.Coord, place, nil
}

// Rebuild recomputes today's and tomorrow's time sets from the current
// inputs and atomically installs the result. A rebuild that finishes after a
// newer one started discards its result.
func (c *Coordinator) Rebuild(ctx context.Context) error {
	g := c.gen.Add(1)

	coord, place, err := c.resolveLocation(ctx)
	if err != nil {
		return fmt.Errorf("cannot rebuild prayer times: %w", err)
	}

	now := c.cfg.Now().In(c.cfg.Zone)
	today, err := c.buildDay(now, coord)
	if err != nil {
		return err
	}
	tomorrow, err := c.buildDay(now.AddDate(0, 0, 1), coord)
	if err != nil {
		return err
	}

	// Isha can close at solar midnight, which near a zone's eastern edge
	// falls before civil midnight. The civil-date build is then already
	// exhausted at now; roll one date forward so Advance lands in a live
	// window instead of demanding another rebuild of the same day.
	if c.cfg.Engine.Advance(today, tomorrow, now).NeedsRebuild {
		dayAfter, err := c.buildDay(now.AddDate(0, 0, 2), coord)
		if err != nil {
			return err
		}
		today, tomorrow = tomorrow, dayAfter
	}

	if c.gen.Load() != g {
		log.Debug().Msg("discarding stale rebuild result")
		return nil
	}

	snap := &Snapshot{
		Today:    today,
		Tomorrow: tomorrow,
		Coord:    coord,
		Place:    place,
		BuiltAt:  now,
	}
	c.snap.Store(snap)

	if c.cfg.DB != nil {
		if err := c.cfg.DB.SaveDay(today, c.inputsKey(today)); err != nil {
			log.Warn().Err(err).Msg("failed to record computed day")
		}
	}
	if c.cfg.Publisher != nil {
		if err := c.cfg.Publisher.PublishTimes(today); err != nil {
			log.Warn().Err(err).Msg("failed to publish prayer times")
		}
	}

	log.Info().
		Str("date", today.Date.Format("2006-01-02")).
		Str("method", today.MethodID).
		Msg("prayer times rebuilt")
	return nil
}

func (c *Coordinator) buildDay(date time.Time, coord astro.Coordinate) (*times.Day, error) {
	return times.Build(date, coord, c.cfg.Store.Method(), c.cfg.Store.Madhab(),
		c.cfg.Store.Adjustments(), c.cfg.Options)
}

// inputsKey fingerprints everything a day build depends on.
func (c *Coordinator) inputsKey(day *times.Day) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%.4f|%.4f|%s|%s|%v|%s",
		day.Date.Format("2006-01-02"),
		day.Coord.Latitude, day.Coord.Longitude,
		day.MethodID, day.Madhab, day.Adjustments,
		c.cfg.Options.HighLatitudeRule)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Period computes the current period from the snapshot. ok is false while no
// snapshot exists yet.
func (c *Coordinator) Period(t time.Time) (period.Period, bool) {
	snap := c.snap.Load()
	if snap == nil || snap.Today == nil {
		return period.Period{}, false
	}
	return c.cfg.Engine.Advance(snap.Today, snap.Tomorrow, t), true
}

// ApplyAdjustment validates an offset against the current day before
// persisting it: an adjustment that would reorder the prayer times is
// rejected and nothing is written.
func (c *Coordinator) ApplyAdjustment(p times.Prayer, minutes int) error {
	if minutes < -times.AdjustmentLimitMin || minutes > times.AdjustmentLimitMin {
		return fmt.Errorf("%s: %+d: %w", p, minutes, adjust.ErrOutOfRange)
	}

	snap := c.snap.Load()
	if snap != nil && snap.Today != nil {
		candidate := c.cfg.Store.Adjustments()
		candidate[p] = minutes
		_, err := times.Build(snap.Today.Date, snap.Today.Coord,
			c.cfg.Store.Method(), c.cfg.Store.Madhab(), candidate, c.cfg.Options)
		if err != nil {
			return fmt.Errorf("adjustment rejected: %w", err)
		}
	}

	// The store's commit listener triggers the rebuild.
	return c.cfg.Store.SetAdjustment(p, minutes)
}

// Triggers returns the pending notification schedule from the snapshot.
func (c *Coordinator) Triggers(now time.Time) []notify.Trigger {
	snap := c.snap.Load()
	if snap == nil {
		return nil
	}
	return notify.Schedule(snap.Today, snap.Tomorrow, c.cfg.Store.PrefSet(), now, notify.Options{
		Boundary:        c.cfg.Engine.Boundary,
		UrgentThreshold: c.cfg.Engine.UrgentThreshold,
	})
}

// Run drives the tick loop until the context is cancelled. Each tick advances
// the period, dispatches due triggers, and re-arms the timer; the interval
// tightens while the period is urgent so the countdown stays live.
func (c *Coordinator) Run(ctx context.Context) error {
	if c.snap.Load() == nil {
		if err := c.Rebuild(ctx); err != nil {
			// Location may come up later; keep ticking and retry.
			log.Warn().Err(err).Msg("initial rebuild failed, will retry")
		}
	}

	last := c.cfg.Now()
	timer := time.NewTimer(c.cfg.TickInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		now := c.cfg.Now()
		interval := c.cfg.TickInterval

		snap := c.snap.Load()
		if snap == nil {
			if err := c.Rebuild(ctx); err != nil {
				log.Warn().Err(err).Msg("rebuild failed, will retry")
			}
			timer.Reset(interval)
			last = now
			continue
		}

		p := c.cfg.Engine.Advance(snap.Today, snap.Tomorrow, now)
		if p.NeedsRebuild {
			if err := c.Rebuild(ctx); err != nil {
				log.Warn().Err(err).Msg("day rollover rebuild failed")
			} else if snap = c.snap.Load(); snap != nil {
				p = c.cfg.Engine.Advance(snap.Today, snap.Tomorrow, now)
			}
		}
		if p.Urgent {
			interval = c.cfg.UrgentInterval
		}

		c.dispatchDue(last, now)

		if c.cfg.Publisher != nil {
			if err := c.cfg.Publisher.PublishStatus(p); err != nil {
				log.Warn().Err(err).Msg("failed to publish status")
			}
		}

		last = now
		timer.Reset(interval)
	}
}

// dispatchDue fires every trigger that came due in (last, now], skipping any
// the database has already recorded. The schedule is recomputed from the
// snapshot each time, so a settings change between ticks is already folded in.
func (c *Coordinator) dispatchDue(last, now time.Time) {
	for _, tr := range c.Triggers(last) {
		if tr.At.After(now) {
			break
		}

		if c.cfg.DB != nil {
			done, err := c.cfg.DB.WasDispatched(tr.Key())
			if err != nil {
				log.Warn().Err(err).Msg("dispatch lookup failed")
			} else if done {
				continue
			}
		}

		log.Info().
			Str("prayer", tr.Prayer.String()).
			Str("kind", string(tr.Kind)).
			Time("at", tr.At).
			Msg("notification trigger")

		if c.cfg.OnTrigger != nil {
			c.cfg.OnTrigger(tr)
		}
		if c.cfg.Publisher != nil {
			if err := c.cfg.Publisher.PublishTrigger(tr); err != nil {
				log.Warn().Err(err).Msg("failed to publish trigger")
			}
		}
		if c.cfg.DB != nil {
			if err := c.cfg.DB.MarkDispatched(tr.Key(), tr.Prayer.String(), string(tr.Kind), now); err != nil {
				log.Warn().Err(err).Msg("failed to record dispatch")
			}
		}
	}
}
