// Package main provides the content import tool that replaces the stored skill
// stats or weapons with the records of a YAML or JSON file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cory-johannsen/gbcatalog/internal/config"
	"github.com/cory-johannsen/gbcatalog/internal/importer"
	"github.com/cory-johannsen/gbcatalog/internal/observability"
	"github.com/cory-johannsen/gbcatalog/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file; empty = defaults and environment only")
	kindFlag := flag.String("kind", "", "collection to replace: stats or weapons")
	file := flag.String("file", "", "path to a YAML/JSON content file or a directory of them")
	flag.Parse()

	if *kindFlag == "" || *file == "" {
		fmt.Fprintln(os.Stderr, "usage: import-content -kind <stats|weapons> -file <path> [-config <path>]")
		os.Exit(1)
	}
	kind, err := importer.ParseKind(*kindFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	logger, err := observability.NewLogger(cfg.Logging, "import-content")
	if err != nil {
		fmt.Fprintf(os.Stderr, "initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	start := time.Now()
	imp := importer.New(
		postgres.NewStatsRepository(pool.DB()),
		postgres.NewWeaponRepository(pool.DB()),
		logger,
	)
	n, err := imp.Run(ctx, kind, *file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("imported %d %s in %s\n", n, kind, time.Since(start).Round(time.Millisecond))
}
