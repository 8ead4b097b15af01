// Package commit defines the commit records that flow through the changelog
// pipeline: raw commits as supplied by a commit source, and enriched commits
// carrying the model-derived category and description.
package commit

// Commit is an atomic recorded change from a version-control history.
// Immutable once created; owned by the caller of the pipeline.
type Commit struct {
	hash    string
	message string
	diff    string
}

// New creates a Commit.
func New(hash, message, diff string) Commit {
	return Commit{hash: hash, message: message, diff: diff}
}

// Hash returns the commit identifier.
func (c Commit) Hash() string { return c.hash }

// Message returns the commit message.
func (c Commit) Message() string { return c.message }

// Diff returns the unified diff for the commit.
func (c Commit) Diff() string { return c.diff }

// ShortHash returns the first 8 characters of the hash, or the full hash if
// it is shorter.
func (c Commit) ShortHash() string {
	if len(c.hash) > 8 {
		return c.hash[:8]
	}
	return c.hash
}

// Enriched is a Commit plus the model-derived category and description.
// Created once by the enricher, one-to-one with a Commit, never mutated.
type Enriched struct {
	commit      Commit
	category    Category
	description string
}

// NewEnriched creates an Enriched commit.
func NewEnriched(c Commit, category Category, description string) Enriched {
	return Enriched{commit: c, category: category, description: description}
}

// Commit returns the underlying raw commit.
func (e Enriched) Commit() Commit { return e.commit }

// Hash returns the commit identifier.
func (e Enriched) Hash() string { return e.commit.hash }

// Message returns the commit message.
func (e Enriched) Message() string { return e.commit.message }

// Diff returns the unified diff for the commit.
func (e Enriched) Diff() string { return e.commit.diff }

// Category returns the derived change category.
func (e Enriched) Category() Category { return e.category }

// Description returns the derived change description.
func (e Enriched) Description() string { return e.description }
