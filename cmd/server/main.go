package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/headless-cms-admin/internal/api"
	"github.com/headless-cms-admin/internal/config"
	"github.com/headless-cms-admin/internal/kvstore"
	"github.com/headless-cms-admin/internal/metrics"
	"github.com/headless-cms-admin/internal/repository"
	"github.com/headless-cms-admin/internal/service"
	"github.com/headless-cms-admin/pkg/logger"
)

func main() {
	// Bootstrap logger until the configured one is available
	log := logger.New()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = logger.NewWithOptions(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	log.Info().Str("backend", cfg.Storage.Backend).Msg("Starting headless CMS admin server...")

	ctx := context.Background()

	// Open the durable store
	store, err := kvstore.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer store.Close()

	// Initialize repositories and load persisted state
	repos := repository.New(store, log)
	if err := repos.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to load persisted state")
	}

	collector := metrics.New()
	unsubscribe := repos.Subscribe(collector.ObserveChange)
	defer unsubscribe()
	unsubscribeLog := repos.Subscribe(func(c repository.Change) {
		log.Debug().Str("collection", c.Collection).Str("op", string(c.Op)).Str("id", c.ID).Msg("Store changed")
	})
	defer unsubscribeLog()

	// Initialize services
	services := service.NewServices(repos, cfg, log, service.WithMetrics(collector))

	// Start scheduled publish processor
	if cfg.Scheduler.Enabled {
		go services.Scheduler.StartProcessor(ctx)
		log.Info().Dur("interval", cfg.Scheduler.Interval).Msg("Scheduled publish processor started")
	}

	// Initialize router
	router := api.NewRouter(services, cfg, collector, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	services.Scheduler.StopProcessor()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return
	}

	log.Info().Msg("Server exited gracefully")
}
