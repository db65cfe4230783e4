package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/BioHazard786/Warpcall/backend/internal/config"
	"github.com/BioHazard786/Warpcall/backend/internal/journal"
	"github.com/BioHazard786/Warpcall/backend/internal/logging"
	"github.com/BioHazard786/Warpcall/backend/internal/server"
	"github.com/BioHazard786/Warpcall/backend/internal/signaling"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Init("error", true)
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logging.Init(cfg.LogLevel, cfg.IsDevelopment())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []signaling.Option{signaling.WithMetrics(signaling.NewMetrics(reg))}
	if cfg.JournalDSN != "" {
		j, err := journal.NewSQLite(cfg.JournalDSN)
		if err != nil {
			log.Fatal().Err(err).Str("dsn", cfg.JournalDSN).Msg("Failed to open journal")
		}
		defer j.Close()
		opts = append(opts, signaling.WithJournal(j))
		log.Info().Str("dsn", cfg.JournalDSN).Msg("Room journal enabled")
	}

	hub := signaling.NewHub(opts...)

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: server.NewRouter(hub, server.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			SendBuffer:     cfg.SendBuffer,
			Gatherer:       reg,
		}),
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Str("mode", cfg.Mode).Msg("Starting signaling server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Shutdown does not wait for hijacked websocket connections; their
	// pumps end when the process exits.
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}
