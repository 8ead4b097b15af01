package main

import (
	"errors"
	"log/slog"

	appservice "github.com/helixml/chlog/application/service"
	domainservice "github.com/helixml/chlog/domain/service"
	"github.com/helixml/chlog/infrastructure/aggregator"
	"github.com/helixml/chlog/infrastructure/enricher"
	"github.com/helixml/chlog/infrastructure/git"
	"github.com/helixml/chlog/infrastructure/prompt"
	"github.com/helixml/chlog/infrastructure/provider"
	"github.com/helixml/chlog/internal/config"
)

// buildGenerator wires the full pipeline: prompt store, model client,
// enricher, aggregator and git source opener.
func buildGenerator(cfg config.AppConfig, logger *slog.Logger) (*appservice.Generator, error) {
	endpoint := cfg.Endpoint()
	if !endpoint.IsConfigured() {
		return nil, errors.New("no model API key configured: set CHLOG_ENDPOINT_API_KEY or OPENAI_API_KEY")
	}

	store, err := promptStore(cfg)
	if err != nil {
		return nil, err
	}

	client := provider.NewOpenAI(provider.Config{
		APIKey:        endpoint.APIKey(),
		BaseURL:       endpoint.BaseURL(),
		Model:         endpoint.Model(),
		Timeout:       endpoint.Timeout(),
		MaxRetries:    endpoint.MaxRetries(),
		InitialDelay:  endpoint.InitialDelay(),
		BackoffFactor: endpoint.BackoffFactor(),
		MaxTokens:     endpoint.MaxTokens(),
		CacheDir:      cfg.HTTPCacheDir(),
	})

	commitEnricher := enricher.NewCommitEnricher(client, store, logger).
		WithParallelism(endpoint.NumParallelTasks())
	changelogAggregator := aggregator.NewChangelogAggregator(client, store, logger)
	pipeline := appservice.NewPipeline(commitEnricher, changelogAggregator, logger)

	open := func(path string) (domainservice.CommitSource, error) {
		return git.Open(path, logger)
	}

	return appservice.NewGenerator(open, pipeline, logger), nil
}

func promptStore(cfg config.AppConfig) (*prompt.Store, error) {
	if path := cfg.PromptsPath(); path != "" {
		return prompt.NewStoreFromFile(path)
	}
	return prompt.NewStore()
}
