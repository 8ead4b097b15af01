// Package aggregator condenses a set of enriched commits into a single
// structured changelog with one model call.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/helixml/chlog/domain/changelog"
	"github.com/helixml/chlog/domain/commit"
	domainservice "github.com/helixml/chlog/domain/service"
	"github.com/helixml/chlog/infrastructure/prompt"
	"github.com/helixml/chlog/infrastructure/provider"
)

// changelogPayload is the structured response for a changelog generation call.
type changelogPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Summary     string `json:"summary"`
}

func changelogShape() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"title": {
				Type:        jsonschema.String,
				Description: "A concise title for the release.",
			},
			"description": {
				Type:        jsonschema.String,
				Description: "The changelog body in markdown, grouping changes by category.",
			},
			"summary": {
				Type:        jsonschema.String,
				Description: "A short prose summary of the release.",
			},
		},
		Required:             []string{"title", "description", "summary"},
		AdditionalProperties: false,
	}
}

// ChangelogAggregator uses a StructuredGenerator to produce a changelog from
// enriched commits.
type ChangelogAggregator struct {
	generator provider.StructuredGenerator
	prompts   *prompt.Store
	log       *slog.Logger
}

// NewChangelogAggregator creates a new ChangelogAggregator.
func NewChangelogAggregator(generator provider.StructuredGenerator, prompts *prompt.Store, log *slog.Logger) *ChangelogAggregator {
	return &ChangelogAggregator{generator: generator, prompts: prompts, log: log}
}

// Aggregate produces a changelog covering the whole enriched set. An empty
// set fails with changelog.ErrEmptyCommitSet before any model call. When
// outputTemplate is empty the default markdown skeleton is substituted.
// Implements domainservice.Aggregator.
func (a *ChangelogAggregator) Aggregate(ctx context.Context, enriched []commit.Enriched, outputTemplate string) (changelog.Changelog, error) {
	if len(enriched) == 0 {
		return changelog.Changelog{}, changelog.ErrEmptyCommitSet
	}
	if outputTemplate == "" {
		outputTemplate = changelog.DefaultTemplate
	}

	tpl, err := a.prompts.Get(prompt.GenerateChangelog)
	if err != nil {
		return changelog.Changelog{}, err
	}

	rendered, err := tpl.Render(map[string]string{
		"commits":  formatCommits(enriched),
		"template": outputTemplate,
	})
	if err != nil {
		return changelog.Changelog{}, err
	}

	a.log.Debug("aggregating changelog", slog.Int("commits", len(enriched)))

	var payload changelogPayload
	if err := a.generator.Complete(ctx, rendered.System(), rendered.User(), changelogShape(), &payload); err != nil {
		return changelog.Changelog{}, err
	}

	return changelog.New(payload.Title, payload.Description, payload.Summary), nil
}

// formatCommits renders the enriched set as the flat text block the changelog
// prompt consumes.
func formatCommits(enriched []commit.Enriched) string {
	parts := make([]string, len(enriched))
	for i, en := range enriched {
		parts[i] = fmt.Sprintf("\nCommit Message: %s\n\nDescription: %s\n\nCategory: %s\n",
			en.Message(), en.Description(), en.Category())
	}
	return strings.Join(parts, "\n")
}

// Ensure ChangelogAggregator implements domainservice.Aggregator.
var _ domainservice.Aggregator = (*ChangelogAggregator)(nil)
