// Command mockapi serves an emulation of the timezone lookup API on
// localhost, so worldclock can be run without a real token:
//
//	mockapi -port 8080 -token dev &
//	TZ_API_KEY=dev worldclock -base-url http://localhost:8080/api/timezone/
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"worldclock/api"
	"worldclock/datasource"
	"worldclock/logger"
)

var log = logger.New("mockapi")

func main() {
	port := flag.Int("port", 8080, "Port to run the server on")
	token := flag.String("token", "dev", "Token clients must send")
	zonesFile := flag.String("zones-file", "", "Extra zones to serve, one per line")
	delay := flag.Duration("delay", 0, "Artificial latency added to every lookup")
	flag.Parse()

	zones := append([]string{}, datasource.DefaultZones...)
	if *zonesFile != "" {
		extra, err := datasource.LoadZonesFile(*zonesFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load zone list")
		}
		zones = append(zones, extra...)
	}

	store := api.NewZoneStore()
	for _, zone := range zones {
		if err := store.AddLocation(zone); err != nil {
			log.Warn().Err(err).Msg("Skipping zone")
			continue
		}
		if *delay > 0 {
			entry, _ := store.Get(zone)
			entry.Delay = *delay
			store.Set(zone, entry)
		}
	}

	server := api.NewServer(store, *token)

	// Start the API server in a goroutine
	go func() {
		if err := server.Start(*port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server stopped")
		}
	}()

	// Wait for shutdown signal
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-shutdownChan
	log.Info().Str("signal", sig.String()).Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Shutdown complete")
}
