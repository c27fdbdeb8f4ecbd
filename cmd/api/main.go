package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/gravadigital/drawnames-api/internal/auth"
	"github.com/gravadigital/drawnames-api/internal/config"
	"github.com/gravadigital/drawnames-api/internal/domain/draw"
	"github.com/gravadigital/drawnames-api/internal/logger"
	"github.com/gravadigital/drawnames-api/internal/metrics"
	"github.com/gravadigital/drawnames-api/internal/server"
	"github.com/gravadigital/drawnames-api/internal/services"
	"github.com/gravadigital/drawnames-api/internal/storage"
)

func main() {
	cfg := config.Load()
	logger.Initialize(cfg.Log.Level)
	log := logger.Get()

	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		log.Debugf(format, args...)
	})); err != nil {
		log.Warn("Failed to set GOMAXPROCS", "error", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", "error", err)
	}

	storageType, err := storage.ValidateStorageType(cfg.Storage.Type)
	if err != nil {
		log.Fatal("Invalid storage type", "error", err)
	}
	container, err := storage.NewFactory(storageType).CreateContainer(cfg)
	if err != nil {
		log.Fatal("Failed to initialize storage", "type", storageType, "error", err)
	}
	defer func() {
		if err := container.Close(); err != nil {
			log.Error("Failed to close storage", "error", err)
		}
	}()
	log.Info("Storage ready", "info", container.GetInfo())

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	tokens := auth.NewTokenIssuer(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	generator := draw.NewGenerator(draw.Options{
		AttemptsPerParticipant: cfg.Draw.AttemptsPerParticipant,
		SwapsPerParticipant:    cfg.Draw.SwapsPerParticipant,
	})

	srv := server.New(cfg, server.Deps{
		Events:   services.NewEventService(container.Events(), auth.NewOrganizerKeys(0), tokens),
		Draws:    services.NewDrawService(container.Events(), generator, metrics.New(registry)),
		Tokens:   tokens,
		Gatherer: registry,
		Health:   container.Health,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("Server stopped", "error", err)
		}
	case sig := <-quit:
		log.Info("Shutdown signal received", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			log.Error("Graceful shutdown failed", "error", err)
		}
	}

	log.Info("Server exited")
}
