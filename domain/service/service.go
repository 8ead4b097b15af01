// Package service defines the domain-level contracts between the pipeline
// orchestrator and its collaborators: the commit source, the commit enricher
// and the changelog aggregator.
package service

import (
	"context"

	"github.com/helixml/chlog/domain/changelog"
	"github.com/helixml/chlog/domain/commit"
)

// CommitSource supplies an ordered sequence of commits for a ref range.
// The pipeline makes no assumption about how commits are obtained (local
// repository traversal, remote API, test fixture).
type CommitSource interface {
	// CommitsBetween returns the commits reachable from toRef but not from
	// fromRef, in chronological order, each carrying its unified diff.
	CommitsBetween(ctx context.Context, fromRef, toRef string) ([]commit.Commit, error)
}

// Enricher derives a category and description for each commit via model
// analysis. The returned slice preserves the input order. Per-commit failures
// are collected and judged against the configured failure tolerance rather
// than aborting on first error.
type Enricher interface {
	Enrich(ctx context.Context, commits []commit.Commit, opts ...EnrichOption) ([]commit.Enriched, error)
}

// Aggregator turns the full enriched set into a structured changelog with a
// single model call. outputTemplate is markdown formatting guidance; the
// aggregator substitutes a default skeleton when it is empty.
type Aggregator interface {
	Aggregate(ctx context.Context, enriched []commit.Enriched, outputTemplate string) (changelog.Changelog, error)
}
