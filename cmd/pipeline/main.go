package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"seqforge/internal/config"
	"seqforge/internal/infrastructure"
	"seqforge/internal/pipeline"
	"seqforge/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional, env vars override)")
	enableTracing := flag.Bool("trace", false, "emit OpenTelemetry spans for each stage to stdout")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}

	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		logger.Error("failed to resolve paths", "error", err)
		os.Exit(1)
	}
	if err := paths.EnsureDirectories(); err != nil {
		logger.Error("failed to create directories", "error", err)
		os.Exit(1)
	}

	// The pipeline is a single batch pass: it runs to completion or
	// fails fast, with no cancellation points of its own.
	ctx := context.Background()

	tracing, err := infrastructure.InitializeTracing(*enableTracing)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := tracing.Shutdown(context.Background()); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	store, err := storage.NewClient(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	logger.Info("starting feature pipeline",
		"base_dir", paths.BaseDir,
		"remote_storage", store.Enabled())

	runner := pipeline.NewRunner(cfg, paths, store, tracing.Tracer, logger)
	if err := runner.Run(ctx); err != nil {
		logger.Error("pipeline failed", "error", err)
		os.Exit(1)
	}
	logger.Info("pipeline complete")
}
