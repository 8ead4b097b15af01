package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/helixml/chlog/domain/changelog"
	domainservice "github.com/helixml/chlog/domain/service"
)

// SourceOpener opens a commit source for a repository path.
type SourceOpener func(path string) (domainservice.CommitSource, error)

// GenerateRequest names the repository and commit range for one changelog.
type GenerateRequest struct {
	// RepoPath is the filesystem path of the repository to read.
	RepoPath string
	// FromRef is the exclusive lower bound of the range (tag, branch, hash).
	FromRef string
	// ToRef is the inclusive upper bound; empty means HEAD.
	ToRef string
	// Template is optional markdown formatting guidance for the changelog.
	Template string
	// EnrichOpts are forwarded to the enrichment phase.
	EnrichOpts []domainservice.EnrichOption
}

// Generator binds a commit source to the pipeline, turning a ref range into
// a changelog in one call. This is the entrypoint the CLI and the MCP server
// share.
type Generator struct {
	open     SourceOpener
	pipeline *Pipeline
	log      *slog.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(open SourceOpener, pipeline *Pipeline, log *slog.Logger) *Generator {
	return &Generator{open: open, pipeline: pipeline, log: log}
}

// Generate reads the commit range and runs the pipeline over it.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) (changelog.Changelog, error) {
	source, err := g.open(req.RepoPath)
	if err != nil {
		return changelog.Changelog{}, fmt.Errorf("open repository %s: %w", req.RepoPath, err)
	}

	toRef := req.ToRef
	if toRef == "" {
		toRef = "HEAD"
	}

	commits, err := source.CommitsBetween(ctx, req.FromRef, toRef)
	if err != nil {
		return changelog.Changelog{}, fmt.Errorf("read commits %s..%s: %w", req.FromRef, toRef, err)
	}

	g.log.Info("generating changelog",
		slog.String("repo", req.RepoPath),
		slog.String("from", req.FromRef),
		slog.String("to", toRef),
		slog.Int("commits", len(commits)))

	return g.pipeline.Run(ctx, commits,
		WithOutputTemplate(req.Template),
		WithEnrichOptions(req.EnrichOpts...))
}
