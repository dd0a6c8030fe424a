// Package main provides the catalog server binary that serves enriched weapon
// listings, skill stats and user accounts over HTTP.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gbcatalog/internal/api"
	"github.com/cory-johannsen/gbcatalog/internal/config"
	"github.com/cory-johannsen/gbcatalog/internal/observability"
	"github.com/cory-johannsen/gbcatalog/internal/server"
	"github.com/cory-johannsen/gbcatalog/internal/skill"
	"github.com/cory-johannsen/gbcatalog/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file; empty = defaults and environment only")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "catalogserver")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting catalog server",
		zap.String("http_addr", cfg.Server.Addr()),
		zap.String("database", cfg.Database.Host),
	)

	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	defer pool.Close()
	logger.Info("database connected", zap.Duration("elapsed", time.Since(dbStart)))

	weapons := postgres.NewWeaponRepository(pool.DB())
	stats := postgres.NewStatsRepository(pool.DB())
	accounts := postgres.NewAccountRepository(pool.DB())
	grids := postgres.NewGridRepository(pool.DB())

	cache := skill.NewStatsCache(stats, logger.Named("stats-cache"), skill.WithTTL(cfg.Enrichment.CacheTTL))
	enricher := skill.NewEnricher(cache, logger.Named("enricher"), skill.Options{
		DefaultSkillLevel: cfg.Enrichment.DefaultSkillLevel,
		BatchSize:         cfg.Enrichment.BatchSize,
		FastBatchSize:     cfg.Enrichment.FastBatchSize,
	})

	srv := api.NewServer(api.Deps{
		Weapons:  weapons,
		Stats:    stats,
		Accounts: accounts,
		Grids:    grids,
		Enricher: enricher,
		Health: func(ctx context.Context) error {
			return pool.Health(ctx, time.Second)
		},
		Logger: logger.Named("http"),
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorLog:     zap.NewStdLog(logger.Named("http")),
	}

	lifecycle := server.NewLifecycle(logger)
	// Keeps the stats cache warm so request paths rarely pay for a reload.
	lifecycle.Add("stats-warmer", server.NewTickerService(cfg.Enrichment.CacheTTL, cache.EnsureLoaded))
	lifecycle.Add("http", server.NewHTTPService(httpServer, cfg.Server.ShutdownTimeout, logger))

	logger.Info("catalog server initialized", zap.Duration("startup", time.Since(start)))

	if err := lifecycle.Run(ctx); err != nil {
		logger.Error("server exited with error", zap.Error(err))
	}
}
