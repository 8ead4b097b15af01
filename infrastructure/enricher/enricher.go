// Package enricher derives a category and description for each commit by
// sending its message and diff through a structured model call.
package enricher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sashabaranov/go-openai/jsonschema"
	"golang.org/x/sync/errgroup"

	"github.com/helixml/chlog/domain/commit"
	domainservice "github.com/helixml/chlog/domain/service"
	"github.com/helixml/chlog/infrastructure/prompt"
	"github.com/helixml/chlog/infrastructure/provider"
)

// DefaultParallelism bounds the number of in-flight model calls.
const DefaultParallelism = 10

// enrichmentPayload is the structured response for a single commit.
type enrichmentPayload struct {
	Category    string `json:"category"`
	Description string `json:"description"`
}

// enrichmentShape constrains the model to a known category and a free-text
// description. The category enum is the authoritative list; anything outside
// it is rejected before it reaches the domain.
func enrichmentShape() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"category": {
				Type:        jsonschema.String,
				Enum:        commit.CategoryStrings(),
				Description: "The change category for this commit.",
			},
			"description": {
				Type:        jsonschema.String,
				Description: "A short release-notes sentence describing the change.",
			},
		},
		Required:             []string{"category", "description"},
		AdditionalProperties: false,
	}
}

// CommitEnricher uses a StructuredGenerator to categorise and describe
// commits.
type CommitEnricher struct {
	generator   provider.StructuredGenerator
	prompts     *prompt.Store
	parallelism int
	log         *slog.Logger
}

// NewCommitEnricher creates a new CommitEnricher.
func NewCommitEnricher(generator provider.StructuredGenerator, prompts *prompt.Store, log *slog.Logger) *CommitEnricher {
	return &CommitEnricher{
		generator:   generator,
		prompts:     prompts,
		parallelism: DefaultParallelism,
		log:         log,
	}
}

// WithParallelism sets the maximum number of concurrent model calls.
func (e *CommitEnricher) WithParallelism(n int) *CommitEnricher {
	if n > 0 {
		e.parallelism = n
	}
	return e
}

// Enrich processes commits concurrently and returns enrichments in the input
// order. Per-commit failures are collected rather than aborting the batch; the
// batch fails with a BatchError naming every failed commit when the failure
// fraction exceeds the configured tolerance, or when nothing succeeded at all.
// Implements domainservice.Enricher.
func (e *CommitEnricher) Enrich(ctx context.Context, commits []commit.Commit, opts ...domainservice.EnrichOption) ([]commit.Enriched, error) {
	cfg := domainservice.NewEnrichConfig(opts...)

	if len(commits) == 0 {
		e.log.Warn("no commits to enrich")
		return nil, nil
	}

	tpl, err := e.prompts.Get(prompt.EnrichCommit)
	if err != nil {
		return nil, err
	}

	results := make([]commit.Enriched, len(commits))
	succeeded := make([]bool, len(commits))
	errs := make([]error, len(commits))

	var mu sync.Mutex
	completed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i, c := range commits {
		g.Go(func() error {
			enriched, err := e.enrichOne(gctx, tpl, c)

			mu.Lock()
			if err != nil {
				errs[i] = domainservice.NewCommitError(c.Hash(), err)
			} else {
				results[i] = enriched
				succeeded[i] = true
			}
			completed++
			done := completed
			mu.Unlock()

			if err != nil && cfg.OnFailure() != nil {
				cfg.OnFailure()(c.Hash(), err)
			}
			if cfg.Progress() != nil {
				cfg.Progress()(done, len(commits))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var failures []domainservice.CommitError
	for _, err := range errs {
		if ce, ok := err.(domainservice.CommitError); ok {
			failures = append(failures, ce)
		}
	}

	if len(failures) > 0 {
		rate := float64(len(failures)) / float64(len(commits))
		if rate > cfg.MaxFailureRate() {
			return nil, domainservice.NewBatchError(len(commits), failures)
		}
		e.log.Warn("continuing despite failed commits",
			slog.Int("failed", len(failures)),
			slog.Int("total", len(commits)))
	}

	enriched := make([]commit.Enriched, 0, len(commits))
	for i := range commits {
		if succeeded[i] {
			enriched = append(enriched, results[i])
		}
	}
	if len(enriched) == 0 {
		return nil, domainservice.NewBatchError(len(commits), failures)
	}
	return enriched, nil
}

func (e *CommitEnricher) enrichOne(ctx context.Context, tpl prompt.Template, c commit.Commit) (commit.Enriched, error) {
	rendered, err := tpl.Render(map[string]string{
		"commit_message": c.Message(),
		"diff":           c.Diff(),
	})
	if err != nil {
		return commit.Enriched{}, err
	}

	var payload enrichmentPayload
	if err := e.generator.Complete(ctx, rendered.System(), rendered.User(), enrichmentShape(), &payload); err != nil {
		return commit.Enriched{}, err
	}

	category, err := commit.ParseCategory(payload.Category)
	if err != nil {
		return commit.Enriched{}, fmt.Errorf("%w: %w", provider.ErrSchemaViolation, err)
	}

	return commit.NewEnriched(c, category, payload.Description), nil
}

// Ensure CommitEnricher implements domainservice.Enricher.
var _ domainservice.Enricher = (*CommitEnricher)(nil)
