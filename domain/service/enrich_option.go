package service

// EnrichProgress is called after each commit completes during enrichment.
// completed is the running total of commits processed so far; total is the
// overall number of commits in the batch.
type EnrichProgress func(completed, total int)

// CommitFailure is called when a single commit's enrichment fails.
// hash is the failing commit's identifier; err is the upstream error.
type CommitFailure func(hash string, err error)

// EnrichOption configures the behaviour of an Enrich call.
type EnrichOption func(*EnrichConfig)

// EnrichConfig holds the resolved configuration for an Enrich call.
type EnrichConfig struct {
	progress       EnrichProgress
	onFailure      CommitFailure
	maxFailureRate float64
}

// NewEnrichConfig applies all options and returns the resolved config.
// The default failure rate is 0: any single commit failure is fatal.
func NewEnrichConfig(opts ...EnrichOption) EnrichConfig {
	var cfg EnrichConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Progress returns the progress callback, or nil if none was set.
func (c EnrichConfig) Progress() EnrichProgress { return c.progress }

// OnFailure returns the per-commit failure callback, or nil if none was set.
func (c EnrichConfig) OnFailure() CommitFailure { return c.onFailure }

// MaxFailureRate returns the maximum fraction of commits that may fail
// enrichment before the batch is abandoned.
func (c EnrichConfig) MaxFailureRate() float64 { return c.maxFailureRate }

// WithEnrichProgress registers a callback invoked after each commit's
// enrichment completes, successfully or not.
func WithEnrichProgress(fn EnrichProgress) EnrichOption {
	return func(c *EnrichConfig) { c.progress = fn }
}

// WithCommitFailure registers a callback invoked when an individual commit
// fails enrichment, so callers can log each error as it occurs.
func WithCommitFailure(fn CommitFailure) EnrichOption {
	return func(c *EnrichConfig) { c.onFailure = fn }
}

// WithMaxFailureRate sets the maximum fraction of commits that may fail
// enrichment before the batch is abandoned. The rate is clamped to [0, 1].
// A rate of 0 means any single failure is fatal; failed commits under the
// tolerance are excluded from the enriched set.
func WithMaxFailureRate(rate float64) EnrichOption {
	return func(c *EnrichConfig) {
		if rate < 0 {
			rate = 0
		}
		if rate > 1 {
			rate = 1
		}
		c.maxFailureRate = rate
	}
}
