package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/certifyapp/certnotify/internal/config"
	"github.com/certifyapp/certnotify/internal/database"
	"github.com/certifyapp/certnotify/internal/email"
	"github.com/certifyapp/certnotify/internal/handler"
	"github.com/certifyapp/certnotify/internal/logger"
	"github.com/certifyapp/certnotify/internal/metrics"
	"github.com/certifyapp/certnotify/internal/middleware"
	"github.com/certifyapp/certnotify/internal/repository"
	"github.com/certifyapp/certnotify/internal/router"
	"github.com/certifyapp/certnotify/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ValidateProvider(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid email provider config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().
		Str("version", handler.Version).
		Str("collection", cfg.Trigger.Collection).
		Str("provider", cfg.Email.Provider).
		Msg("starting certnotify server")

	// Optional stores. Interfaces stay nil unless the store is enabled.
	var (
		db         *database.Postgres
		rdb        *database.Redis
		ledger     service.Ledger
		deliveries service.DeliveryLog
	)

	if cfg.Database.Enabled {
		db, err = database.NewPostgres(cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()
		deliveries = repository.NewDeliveryRepository(db)
		log.Info().Msg("connected to PostgreSQL, delivery log enabled")
	}

	if cfg.Ledger.Enabled {
		rdb, err = database.NewRedis(cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer rdb.Close()
		ledger = repository.NewLedgerRepository(rdb, cfg.Ledger.TTL)
		log.Info().Dur("ttl", cfg.Ledger.TTL).Msg("connected to Redis, delivery ledger enabled")
	}

	// Initialize mail provider
	sender, err := email.NewSender(context.Background(), cfg.Email, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize email sender")
	}

	// Initialize services
	m := metrics.New()
	notifySvc := service.NewNotificationService(sender, ledger, deliveries, m, cfg, log)

	// Initialize handlers and middleware
	h := handler.New(db, rdb, log, cfg, m, notifySvc)
	mw := middleware.New(log, cfg, m)

	// Set up router
	r := router.New(h, mw, m, cfg.Trigger.MaxInstances)

	// Create HTTP server
	addr := cfg.Server.Addr()
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Int("max_instances", cfg.Trigger.MaxInstances).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Cloud Run allows 10s between SIGTERM and SIGKILL
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
