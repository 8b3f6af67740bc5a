// Package server exposes the daemon's state over HTTP for status bars,
// dashboards, and home-automation pollers. Reads come from the coordinator's
// snapshot; writes go through the coordinator so validation happens before
// anything is persisted.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mzahid/athan/internal/adjust"
	"github.com/mzahid/athan/internal/astro"
	"github.com/mzahid/athan/internal/coordinator"
	"github.com/mzahid/athan/internal/method"
	"github.com/mzahid/athan/internal/notify"
	"github.com/mzahid/athan/internal/period"
	"github.com/mzahid/athan/internal/storage"
	"github.com/mzahid/athan/internal/times"
)

type Server struct {
	router  *gin.Engine
	server  *http.Server
	coord   *coordinator.Coordinator
	store   *adjust.Store
	db      *storage.Database
	options times.Options
	port    int
}

type ServerConfig struct {
	Port        int
	Coordinator *coordinator.Coordinator
	Store       *adjust.Store
	Database    *storage.Database
	// Options must match what the coordinator builds with, so an explicit
	// date request resolves undefined twilight the same way today does.
	Options times.Options
}

func NewServer(cfg ServerConfig) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router:  router,
		coord:   cfg.Coordinator,
		store:   cfg.Store,
		db:      cfg.Database,
		options: cfg.Options,
		port:    cfg.Port,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.healthHandler)

	api := s.router.Group("/api/v1")
	{
		api.GET("/times/today", s.todayHandler)
		api.GET("/times/:date", s.dateHandler)
		api.GET("/period", s.periodHandler)
		api.GET("/triggers", s.triggersHandler)
		api.GET("/history/:date", s.historyHandler)
		api.GET("/methods", s.methodsHandler)
		api.GET("/qibla", s.qiblaHandler)
		api.GET("/hijri", s.hijriHandler)

		api.GET("/settings", s.getSettingsHandler)
		api.PUT("/settings", s.updateSettingsHandler)
		api.GET("/adjustments", s.getAdjustmentsHandler)
		api.PUT("/adjustments", s.updateAdjustmentsHandler)
		api.GET("/preferences", s.getPreferencesHandler)
		api.PUT("/preferences", s.updatePreferencesHandler)
	}
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.router,
	}

	log.Info().Int("port", s.port).Msg("API server starting")
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) healthHandler(c *gin.Context) {
	snap := s.coord.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"ready":     snap != nil,
		"timestamp": time.Now(),
	})
}

// dayResponse is the JSON shape for one computed day.
type dayResponse struct {
	Date        string            `json:"date"`
	Method      string            `json:"method"`
	Madhab      string            `json:"madhab"`
	Times       map[string]string `json:"times"`
	Midnight    string            `json:"midnight,omitempty"`
	LastThird   string            `json:"last_third,omitempty"`
	Suhoor      string            `json:"suhoor,omitempty"`
	Iftar       string            `json:"iftar,omitempty"`
	Adjustments map[string]int    `json:"adjustments,omitempty"`
}

func toDayResponse(day *times.Day) dayResponse {
	resp := dayResponse{
		Date:   day.Date.Format("2006-01-02"),
		Method: day.MethodID,
		Madhab: day.Madhab.String(),
		Times:  map[string]string{},
	}
	for _, e := range day.Ordered() {
		resp.Times[e.Prayer.String()] = e.Time.Format(time.RFC3339)
	}
	if !day.Midnight.IsZero() {
		resp.Midnight = day.Midnight.Format(time.RFC3339)
	}
	if !day.LastThird.IsZero() {
		resp.LastThird = day.LastThird.Format(time.RFC3339)
	}
	if !day.Suhoor.IsZero() {
		resp.Suhoor = day.Suhoor.Format(time.RFC3339)
		resp.Iftar = day.Iftar.Format(time.RFC3339)
	}
	if day.Adjustments.IsAdjusted() {
		resp.Adjustments = map[string]int{}
		for _, p := range times.AllPrayers {
			if m := day.Adjustments[p]; m != 0 {
				resp.Adjustments[p.String()] = m
			}
		}
	}
	return resp
}

func (s *Server) snapshotOr503(c *gin.Context) *coordinator.Snapshot {
	snap := s.coord.Snapshot()
	if snap == nil || snap.Today == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "prayer times not available yet (location unresolved)",
		})
		return nil
	}
	return snap
}

func (s *Server) todayHandler(c *gin.Context) {
	snap := s.snapshotOr503(c)
	if snap == nil {
		return
	}
	c.JSON(http.StatusOK, toDayResponse(snap.Today))
}

func (s *Server) dateHandler(c *gin.Context) {
	snap := s.snapshotOr503(c)
	if snap == nil {
		return
	}

	date, err := time.ParseInLocation("2006-01-02", c.Param("date"), snap.Today.Date.Location())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, want YYYY-MM-DD"})
		return
	}

	day, err := times.Build(date, snap.Coord, s.store.Method(), s.store.Madhab(),
		s.store.Adjustments(), s.options)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toDayResponse(day))
}

func (s *Server) historyHandler(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history storage disabled"})
		return
	}
	if _, err := time.Parse("2006-01-02", c.Param("date")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, want YYYY-MM-DD"})
		return
	}

	rows, err := s.db.DaysFor(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"computed_at": row.CreatedAt,
			"inputs_key":  row.InputsKey,
			"day":         json.RawMessage(row.Payload),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) periodHandler(c *gin.Context) {
	p, ok := s.coord.Period(time.Now())
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no snapshot yet"})
		return
	}

	resp := gin.H{
		"state":     p.State.String(),
		"countdown": p.Countdown,
		"progress":  p.Progress,
		"urgent":    p.Urgent,
	}
	switch {
	case p.State == period.InWindow:
		resp["current"] = p.Current.String()
		resp["end"] = p.End.Format(time.RFC3339)
	case !p.End.IsZero():
		resp["next"] = p.Next.String()
		resp["next_at"] = p.End.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) triggersHandler(c *gin.Context) {
	trs := s.coord.Triggers(time.Now())
	out := make([]gin.H, 0, len(trs))
	for _, tr := range trs {
		out = append(out, gin.H{
			"at":     tr.At.Format(time.RFC3339),
			"prayer": tr.Prayer.String(),
			"kind":   string(tr.Kind),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) methodsHandler(c *gin.Context) {
	out := make([]gin.H, 0, len(method.All()))
	for _, m := range method.All() {
		entry := gin.H{
			"id":         m.ID,
			"name":       m.Name,
			"fajr_angle": m.FajrAngle,
		}
		if m.UsesIshaInterval() {
			entry["isha_interval_min"] = m.IshaIntervalMin
		} else {
			entry["isha_angle"] = m.IshaAngle
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) qiblaHandler(c *gin.Context) {
	snap := s.snapshotOr503(c)
	if snap == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"bearing_deg": astro.QiblaBearing(snap.Coord),
		"from":        snap.Coord,
	})
}

func (s *Server) hijriHandler(c *gin.Context) {
	h := astro.HijriFromTime(time.Now())
	c.JSON(http.StatusOK, gin.H{
		"year":    h.Year,
		"month":   h.Month,
		"day":     h.Day,
		"ramadan": h.Month == astro.Ramadan,
	})
}

type settingsRequest struct {
	Method string `json:"method"`
	Madhab string `json:"madhab"`
}

func (s *Server) getSettingsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"method": s.store.Method().ID,
		"madhab": s.store.Madhab().String(),
	})
}

func (s *Server) updateSettingsHandler(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Method != "" {
		if err := s.store.SetMethod(req.Method); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
	}
	if req.Madhab != "" {
		if err := s.store.SetMadhab(req.Madhab); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
	}
	s.getSettingsHandler(c)
}

func (s *Server) getAdjustmentsHandler(c *gin.Context) {
	out := gin.H{}
	for _, p := range times.AllPrayers {
		out[p.String()] = s.store.Adjustment(p)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) updateAdjustmentsHandler(c *gin.Context) {
	var req map[string]int
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	for name, minutes := range req {
		p, err := times.ParsePrayer(name)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := s.coord.ApplyAdjustment(p, minutes); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
	}
	s.getAdjustmentsHandler(c)
}

func (s *Server) getPreferencesHandler(c *gin.Context) {
	out := gin.H{}
	for _, p := range times.AllPrayers {
		if p.Obligatory() {
			out[p.String()] = s.store.Pref(p)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) updatePreferencesHandler(c *gin.Context) {
	var req map[string]notify.Prefs
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	for name, pref := range req {
		p, err := times.ParsePrayer(name)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := s.store.SetPref(p, pref); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
	}
	s.getPreferencesHandler(c)
}
