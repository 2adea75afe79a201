package main

import (
	"context"
	"fmt"
	"time"

	"phdradar/internal/classify"
	"phdradar/internal/config"
	"phdradar/internal/dedup"
	"phdradar/internal/llm"
	"phdradar/internal/pipeline"
	"phdradar/internal/source"
	"phdradar/internal/storage"
	"phdradar/internal/storage/postgres"
	"phdradar/internal/storage/sqlite"
	"phdradar/internal/syncstate"
)

// app holds the wired components for one command invocation.
type app struct {
	cfg    *config.Config
	store  storage.Storage
	runner *pipeline.Runner
}

// buildApp loads config and wires storage, provider, classifier, dedup
// engine and sources into a runner. noLLM swaps the provider for the
// disabled stub.
func buildApp(ctx context.Context, noLLM bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("no sources configured; add a sources section to %s", config.DefaultPath())
	}

	store, err := buildStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	provider, err := buildProvider(cfg, noLLM)
	if err != nil {
		store.Close()
		return nil, err
	}

	classifier, err := classify.New(provider)
	if err != nil {
		store.Close()
		return nil, err
	}

	engine, err := dedup.New(provider, cfg.DedupConfig())
	if err != nil {
		store.Close()
		return nil, err
	}

	sources, err := buildSources(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	runner, err := pipeline.New(sources, store, classifier, engine,
		syncstate.NewStore(cfg.State.Path), cfg.DedupConfig())
	if err != nil {
		store.Close()
		return nil, err
	}

	return &app{cfg: cfg, store: store, runner: runner}, nil
}

func (a *app) Close() {
	a.store.Close()
}

func buildStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		return sqlite.New(cfg.Storage.Path)
	case "postgres":
		pgCfg := postgres.DefaultConfig()
		pgCfg.DSN = cfg.Storage.DSN
		return postgres.New(ctx, pgCfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func buildProvider(cfg *config.Config, noLLM bool) (llm.Provider, error) {
	if noLLM {
		return llm.Disabled{}, nil
	}
	return llm.NewClient(llm.Config{
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
		Cooldown:  time.Duration(cfg.LLM.CooldownSeconds) * time.Second,
	})
}

func buildSources(cfg *config.Config) ([]source.DataSource, error) {
	sources := make([]source.DataSource, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		switch sc.Type {
		case "feedfile":
			src, err := source.NewFeedFile(sc.Name, sc.Path)
			if err != nil {
				return nil, fmt.Errorf("source %s: %w", sc.Name, err)
			}
			sources = append(sources, src)
		default:
			return nil, fmt.Errorf("source %s: unknown type %q", sc.Name, sc.Type)
		}
	}
	return sources, nil
}
