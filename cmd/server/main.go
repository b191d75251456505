package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/rpattn/salespipe/internal/api"
	"github.com/rpattn/salespipe/internal/catalog"
	"github.com/rpattn/salespipe/internal/config"
	"github.com/rpattn/salespipe/internal/db"
	"github.com/rpattn/salespipe/internal/logger"
	"github.com/rpattn/salespipe/internal/metrics"
	"github.com/rpattn/salespipe/internal/middleware"
	"github.com/rpattn/salespipe/internal/pipeline"
	"github.com/rpattn/salespipe/internal/repository"
)

func main() {
	log := logger.New()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	runnerOpts := []pipeline.Option{
		pipeline.WithWorkers(cfg.Pipeline.Workers),
		pipeline.WithTopN(cfg.Pipeline.TopN),
	}
	handlerOpts := []api.Option{}

	// The catalog lookup chain: HTTP client, optionally layered behind the
	// local products table. The runner adds a per-run cache on top.
	var lookup catalog.Lookup
	if cfg.Catalog.BaseURL != "" {
		lookup = catalog.NewClient(cfg.Catalog.BaseURL, catalog.WithTimeout(cfg.Catalog.Timeout))
	}

	if cfg.DatabaseEnabled {
		conn, err := db.NewConnection(ctx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer conn.Close()

		if err := db.RunMigrations(cfg.Database, "./migrations"); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}

		runLogs := repository.NewRunLogRepository(conn.Pool)
		runnerOpts = append(runnerOpts, pipeline.WithRunLog(runLogs))
		handlerOpts = append(handlerOpts, api.WithRunLogs(runLogs))

		products := repository.NewProductRepository(conn.Pool)
		if lookup != nil {
			lookup = repository.NewWriteThroughLookup(products, lookup)
		} else {
			lookup = repository.NewProductLookup(products)
		}
	}

	registry := metrics.NewRegistry()
	handlerOpts = append(handlerOpts, api.WithMetrics(registry))

	runner := pipeline.NewRunner(lookup, runnerOpts...)
	handler := api.NewHandler(runner, log, handlerOpts...)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	routes := handler.Routes()
	mux := http.NewServeMux()
	mux.Handle("/api/", corsHandler.Handler(routes))
	mux.Handle("/healthz", routes)
	mux.Handle("/metrics", registry.Handler())

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      middleware.Logging(log)(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("starting pipeline server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}
