// Package service orchestrates the changelog pipeline: raw commits are
// enriched with model analysis, then the full enriched set is condensed into
// a single structured changelog.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/helixml/chlog/domain/changelog"
	"github.com/helixml/chlog/domain/commit"
	domainservice "github.com/helixml/chlog/domain/service"
)

// State is the observable lifecycle phase of a pipeline run.
type State string

// Pipeline states. A run moves Idle -> Enriching -> Aggregating -> Done, or
// ends in Failed from any phase.
const (
	StateIdle        State = "idle"
	StateEnriching   State = "enriching"
	StateAggregating State = "aggregating"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// RunOption configures a single pipeline run.
type RunOption func(*runConfig)

type runConfig struct {
	outputTemplate string
	enrichOpts     []domainservice.EnrichOption
}

// WithOutputTemplate sets the markdown formatting guidance for the changelog
// body. Empty means the default skeleton.
func WithOutputTemplate(template string) RunOption {
	return func(c *runConfig) { c.outputTemplate = template }
}

// WithEnrichOptions forwards options to the enrichment phase, such as
// progress reporting or a failure tolerance.
func WithEnrichOptions(opts ...domainservice.EnrichOption) RunOption {
	return func(c *runConfig) { c.enrichOpts = append(c.enrichOpts, opts...) }
}

// Pipeline runs the two-phase changelog generation. A Pipeline is reusable;
// State reports the phase of the most recent Run.
type Pipeline struct {
	enricher   domainservice.Enricher
	aggregator domainservice.Aggregator
	log        *slog.Logger

	mu    sync.Mutex
	state State
}

// NewPipeline creates a Pipeline.
func NewPipeline(enricher domainservice.Enricher, aggregator domainservice.Aggregator, log *slog.Logger) *Pipeline {
	return &Pipeline{
		enricher:   enricher,
		aggregator: aggregator,
		log:        log,
		state:      StateIdle,
	}
}

// State returns the phase of the most recent Run, or StateIdle before the
// first Run.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Run enriches the commits and aggregates them into a changelog. An empty
// commit set fails immediately with changelog.ErrEmptyCommitSet; no model
// call is made.
func (p *Pipeline) Run(ctx context.Context, commits []commit.Commit, opts ...RunOption) (changelog.Changelog, error) {
	var cfg runConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(commits) == 0 {
		p.setState(StateFailed)
		return changelog.Changelog{}, changelog.ErrEmptyCommitSet
	}

	p.setState(StateEnriching)
	p.log.Info("enriching commits", slog.Int("count", len(commits)))

	enriched, err := p.enricher.Enrich(ctx, commits, cfg.enrichOpts...)
	if err != nil {
		p.setState(StateFailed)
		return changelog.Changelog{}, fmt.Errorf("enrich commits: %w", err)
	}

	p.setState(StateAggregating)
	p.log.Info("aggregating changelog", slog.Int("enriched", len(enriched)))

	cl, err := p.aggregator.Aggregate(ctx, enriched, cfg.outputTemplate)
	if err != nil {
		p.setState(StateFailed)
		return changelog.Changelog{}, fmt.Errorf("aggregate changelog: %w", err)
	}

	p.setState(StateDone)
	return cl, nil
}
