package handlers

import (
	"context"
	"fmt"
	"time"

	"trendpulse/internal/config"
	"trendpulse/internal/core"
	"trendpulse/internal/logger"
	"trendpulse/internal/pipeline"
	"trendpulse/internal/reasoning"
	"trendpulse/internal/sources"
	"trendpulse/internal/store"
)

// app bundles the wired pipeline components shared by the CLI commands.
type app struct {
	cfg     *config.Config
	kv      *store.SQLiteKV
	store   *store.ReportStore
	scanner *pipeline.Scanner
}

// buildApp wires the full pipeline from configuration: KV store, source
// adapters, reasoning engine, and scanner.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	kv, err := store.NewSQLiteKV(cfg.Store.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	reports := store.NewReportStore(kv)

	manager := sources.NewManager(
		buildAdapters(cfg),
		cfg.Sources.MaxConcurrency,
		cfg.Sources.FilterFallback,
		datasourceFor(cfg),
	)

	reasoner, err := buildReasoner(ctx, cfg)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	fetchOpts := sources.FetchOptions{
		Timeout:        config.Duration(cfg.Sources.Timeout, 30*time.Second),
		PolitenessWait: config.Duration(cfg.Sources.PolitenessWait, 0),
	}
	scanner := pipeline.NewScanner(manager, reasoner, reports, cfg.Reasoning.Enabled, fetchOpts)

	return &app{cfg: cfg, kv: kv, store: reports, scanner: scanner}, nil
}

func (a *app) close() {
	if err := a.kv.Close(); err != nil {
		log := logger.Get()
		log.Error().Err(err).Msg("failed to close store")
	}
}

// buildAdapters converts the configured sources into adapters. With use_mock
// set, or no sources configured, the packaged mock dataset serves instead.
func buildAdapters(cfg *config.Config) []sources.Adapter {
	if cfg.Sources.UseMock || len(cfg.Sources.Feeds) == 0 {
		return []sources.Adapter{sources.NewMockAdapter("mock")}
	}

	timeout := config.Duration(cfg.Sources.Timeout, 30*time.Second)
	adapters := make([]sources.Adapter, 0, len(cfg.Sources.Feeds))
	for _, src := range cfg.Sources.Feeds {
		if src.Kind == "mock" {
			adapters = append(adapters, sources.NewMockAdapter(src.Name))
			continue
		}
		adapters = append(adapters, sources.NewFeedAdapter(src.Name, src.URL, timeout, cfg.Sources.UserAgent))
	}
	return adapters
}

func datasourceFor(cfg *config.Config) string {
	if cfg.Sources.UseMock || len(cfg.Sources.Feeds) == 0 {
		return core.DatasourceMock
	}
	return core.DatasourceLive
}

// buildReasoner creates the fallback engine, with the external model as
// primary when a key is configured and the stage is enabled. A missing key
// is not an error: the heuristic path serves alone.
func buildReasoner(ctx context.Context, cfg *config.Config) (*reasoning.FallbackEngine, error) {
	timeout := config.Duration(cfg.Reasoning.Timeout, 20*time.Second)

	if !cfg.Reasoning.Enabled || cfg.Reasoning.APIKey == "" {
		if cfg.Reasoning.Enabled {
			log := logger.Get()
			log.Warn().Msg("no reasoning API key configured, heuristic summaries only")
		}
		return reasoning.NewFallbackEngine(nil, timeout, cfg.Reasoning.MaxCallsPerRun), nil
	}

	engine, err := reasoning.NewGeminiEngine(ctx, cfg.Reasoning.APIKey, cfg.Reasoning.Model, cfg.Reasoning.Temperature)
	if err != nil {
		return nil, fmt.Errorf("failed to create reasoning engine: %w", err)
	}
	return reasoning.NewFallbackEngine(engine, timeout, cfg.Reasoning.MaxCallsPerRun), nil
}
