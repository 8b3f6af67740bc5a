package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mzahid/athan/internal/astro"
	"github.com/mzahid/athan/internal/coordinator"
	"github.com/mzahid/athan/internal/geo"
	"github.com/mzahid/athan/internal/mqtt"
	"github.com/mzahid/athan/internal/server"
	"github.com/mzahid/athan/internal/storage"
)

var flagDebug bool

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the athan daemon",
		Long:  "Run the background daemon: keeps prayer times current across day rollovers, dispatches notification triggers (restart-safe), and serves the HTTP API. MQTT publishing is enabled via athan.yaml.",
		RunE:  runServe,
	}

	cmd.Flags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if flagDebug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg := loadedConfig

	zone, err := cfg.TimezoneLocation()
	if err != nil {
		return err
	}

	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	log.Info().Str("path", cfg.Database.Path).Msg("database opened")

	publisher, err := mqtt.NewPublisher(mqtt.PublisherConfig{
		Broker:      cfg.MQTT.Broker,
		ClientID:    cfg.MQTT.ClientID,
		Username:    cfg.MQTT.Username,
		Password:    cfg.MQTT.Password,
		TopicPrefix: cfg.MQTT.TopicPrefix,
		Enabled:     cfg.MQTT.Enabled,
	})
	if err != nil {
		return fmt.Errorf("failed to set up MQTT: %w", err)
	}
	defer publisher.Close()

	engine, err := effectiveEngine()
	if err != nil {
		return err
	}
	opts, err := effectiveOptions(cmd)
	if err != nil {
		return err
	}

	var coord astro.Coordinate
	if FlagLatitude != 0 || FlagLongitude != 0 {
		coord = astro.Coordinate{Latitude: FlagLatitude, Longitude: FlagLongitude}
	} else if cfg.Location.Fixed() {
		coord = astro.Coordinate{Latitude: cfg.Location.Latitude, Longitude: cfg.Location.Longitude}
	}

	coordCfg := coordinator.Config{
		Store:          settingsStore,
		Coord:          coord,
		Zone:           zone,
		Engine:         engine,
		Options:        opts,
		DB:             db,
		Publisher:      publisher,
		TickInterval:   cfg.Tick.Interval,
		UrgentInterval: cfg.Tick.UrgentInterval,
	}
	if !coord.Valid() && cfg.Location.AutoDetect {
		coordCfg.Locate = geo.DetectCached
	}

	coordr, err := coordinator.New(coordCfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var srv *server.Server
	if cfg.HTTP.Enabled {
		srv = server.NewServer(server.ServerConfig{
			Port:        cfg.HTTP.Port,
			Coordinator: coordr,
			Store:       settingsStore,
			Database:    db,
			Options:     opts,
		})
		go func() {
			if err := srv.Start(); err != nil {
				log.Error().Err(err).Msg("API server failed")
				cancel()
			}
		}()
	}

	runErr := make(chan error, 1)
	go func() { runErr <- coordr.Run(ctx) }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-runErr:
		if err != nil && ctx.Err() == nil {
			return err
		}
	case <-ctx.Done():
	}

	cancel()
	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("API server shutdown failed")
		}
	}

	// Keep three days of dispatch history; older keys can never fire again.
	if err := db.PruneDispatched(time.Now().Add(-72 * time.Hour)); err != nil {
		log.Warn().Err(err).Msg("failed to prune dispatch history")
	}

	return nil
}
