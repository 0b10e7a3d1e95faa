// Command chartengine serves the chart-compilation HTTP API, wiring
// config -> logging -> tenant router -> cache -> warehouse -> engine ->
// HTTP router, with graceful shutdown on SIGINT/SIGTERM, ported from the
// gateway's main.go wiring shape.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/pflag"

	"github.com/sitescope-io/cctv-analytics/internal/api"
	"github.com/sitescope-io/cctv-analytics/internal/cache"
	"github.com/sitescope-io/cctv-analytics/internal/config"
	"github.com/sitescope-io/cctv-analytics/internal/engine"
	"github.com/sitescope-io/cctv-analytics/internal/logging"
	"github.com/sitescope-io/cctv-analytics/internal/tenant"
	"github.com/sitescope-io/cctv-analytics/internal/warehouse"
	"github.com/sitescope-io/cctv-analytics/internal/warehouse/bigquery"
	"github.com/sitescope-io/cctv-analytics/internal/warehouse/memframe"
)

func main() {
	cfg := config.Load()

	var addrOverride string
	pflag.StringVar(&addrOverride, "addr", "", "override the listen address (defaults to CHARTENGINE_ADDR)")
	pflag.Parse()
	if addrOverride != "" {
		cfg.Addr = addrOverride
	}

	log := logging.New(cfg)
	log.Info().Str("env", cfg.Env).Msg("chartengine starting")

	router := tenant.New(cfg.OrgTables, cfg.Project, cfg.Dataset)

	backend, err := buildCacheBackend(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("cache backend init failed")
	}
	specCache := cache.New(backend, cfg.CacheTTL)

	wh, err := buildWarehouse(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("warehouse init failed")
	}

	eng := engine.New(router, wh, specCache, log)
	handler := api.New(eng, log)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Logger)

	r.Get("/healthz", handler.Healthz)
	r.Get("/ready", handler.Ready)
	r.Post("/v1/charts", handler.Charts)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("chartengine listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-done
	log.Info().Msg("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	} else {
		log.Info().Msg("chartengine stopped gracefully")
	}
}

func buildCacheBackend(cfg *config.Config) (cache.Backend, error) {
	switch cfg.CacheBackend {
	case "redis":
		return cache.NewRedisBackend(cfg.RedisURL, "chartengine")
	case "null":
		return cache.NullBackend{}, nil
	default:
		return cache.NewMemoryBackend(), nil
	}
}

func buildWarehouse(cfg *config.Config) (warehouse.Warehouse, error) {
	if cfg.WarehouseBackend == "bigquery" {
		return bigquery.New(context.Background(), cfg.Project)
	}
	return memframe.NewWarehouse(memframe.New(nil, nil)), nil
}
