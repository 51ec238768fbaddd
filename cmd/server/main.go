// Package main is the entry point for the POI tile server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/poimap/server/internal/api"
	"github.com/poimap/server/internal/cache"
	"github.com/poimap/server/internal/config"
	"github.com/poimap/server/internal/data/pointset"
	"github.com/poimap/server/internal/flight"
	"github.com/poimap/server/internal/service"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config/server.yaml", "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
	if *debug {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Info().Int("port", cfg.Server.Port).Msg("starting POI tile server")

	// Load datasets once; both collections are read-only for the rest of the
	// process.
	pois := pointset.Load("pois", []pointset.Candidate{
		{Path: cfg.Data.POINDJSONPath, Kind: pointset.KindLineDelimited},
		{Path: cfg.Data.POIGeoJSONPath, Kind: pointset.KindDocument},
		{Path: cfg.Data.POISummaryPath, Kind: pointset.KindDocument},
	}, log)
	cities := pointset.Load("cities", []pointset.Candidate{
		{Path: cfg.Data.CityPath, Kind: pointset.KindDocument},
	}, log)

	// Initialize caches
	store, err := cache.NewStore(cfg.Cache.Dir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tile store")
	}
	manager, err := cache.NewManager(cache.ManagerConfig{
		PayloadCacheSizeMB: cfg.Cache.PayloadSizeMB,
		PayloadTTL:         time.Duration(cfg.Cache.PayloadTTLMinutes) * time.Minute,
		QueryCacheSize:     cfg.Cache.QueryEntries,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize cache manager")
	}
	defer manager.Close()

	// Initialize tile service
	tileService := service.NewTileService(service.TileServiceConfig{
		POIs:    pois,
		Cities:  cities,
		Store:   store,
		Cache:   manager,
		Flights: flight.NewRegistry(),
		Log:     log,
	})

	// Set up HTTP router
	router := api.NewRouter(api.RouterConfig{
		Service:     tileService,
		CORSOrigins: cfg.Server.CORSOrigins,
		Log:         log,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("server listening on http://localhost:%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
