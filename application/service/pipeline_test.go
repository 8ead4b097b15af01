package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/chlog/domain/changelog"
	"github.com/helixml/chlog/domain/commit"
	domainservice "github.com/helixml/chlog/domain/service"
	"github.com/helixml/chlog/infrastructure/aggregator"
	"github.com/helixml/chlog/infrastructure/enricher"
	"github.com/helixml/chlog/infrastructure/prompt"
)

// stubEnricher implements domainservice.Enricher deterministically.
type stubEnricher struct {
	err   error
	calls int
}

func (s *stubEnricher) Enrich(_ context.Context, commits []commit.Commit, _ ...domainservice.EnrichOption) ([]commit.Enriched, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	enriched := make([]commit.Enriched, len(commits))
	for i, c := range commits {
		enriched[i] = commit.NewEnriched(c, commit.CategoryFeature, "described "+c.Message())
	}
	return enriched, nil
}

// stubAggregator records its input and returns a fixed changelog.
type stubAggregator struct {
	err      error
	calls    int
	received []commit.Enriched
	template string
}

func (s *stubAggregator) Aggregate(_ context.Context, enriched []commit.Enriched, outputTemplate string) (changelog.Changelog, error) {
	s.calls++
	s.received = enriched
	s.template = outputTemplate
	if s.err != nil {
		return changelog.Changelog{}, s.err
	}
	return changelog.New("Release", "body", "summary"), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testCommits(n int) []commit.Commit {
	commits := make([]commit.Commit, n)
	for i := range commits {
		commits[i] = commit.New(fmt.Sprintf("%040d", i), fmt.Sprintf("commit %d", i), "diff")
	}
	return commits
}

func TestPipeline_Run_Succeeds(t *testing.T) {
	enricher := &stubEnricher{}
	aggregator := &stubAggregator{}
	p := NewPipeline(enricher, aggregator, testLogger())

	cl, err := p.Run(context.Background(), testCommits(3))
	require.NoError(t, err)
	assert.Equal(t, "Release", cl.Title())
	assert.Equal(t, StateDone, p.State())
	assert.Equal(t, 1, enricher.calls)
	assert.Equal(t, 1, aggregator.calls)
}

func TestPipeline_Run_PassesEnrichedSetInOrder(t *testing.T) {
	aggregator := &stubAggregator{}
	p := NewPipeline(&stubEnricher{}, aggregator, testLogger())

	commits := testCommits(4)
	_, err := p.Run(context.Background(), commits)
	require.NoError(t, err)

	require.Len(t, aggregator.received, 4)
	for i, en := range aggregator.received {
		assert.Equal(t, commits[i].Hash(), en.Hash())
	}
}

func TestPipeline_Run_EmptyCommitSet(t *testing.T) {
	enricher := &stubEnricher{}
	aggregator := &stubAggregator{}
	p := NewPipeline(enricher, aggregator, testLogger())

	_, err := p.Run(context.Background(), nil)
	require.ErrorIs(t, err, changelog.ErrEmptyCommitSet)
	assert.Equal(t, StateFailed, p.State())
	assert.Zero(t, enricher.calls)
	assert.Zero(t, aggregator.calls)
}

func TestPipeline_Run_EnrichFailureStopsPipeline(t *testing.T) {
	upstream := errors.New("enrichment broke")
	aggregator := &stubAggregator{}
	p := NewPipeline(&stubEnricher{err: upstream}, aggregator, testLogger())

	_, err := p.Run(context.Background(), testCommits(2))
	require.ErrorIs(t, err, upstream)
	assert.Equal(t, StateFailed, p.State())
	assert.Zero(t, aggregator.calls)
}

func TestPipeline_Run_AggregateFailure(t *testing.T) {
	upstream := errors.New("aggregation broke")
	p := NewPipeline(&stubEnricher{}, &stubAggregator{err: upstream}, testLogger())

	_, err := p.Run(context.Background(), testCommits(2))
	require.ErrorIs(t, err, upstream)
	assert.Equal(t, StateFailed, p.State())
}

func TestPipeline_Run_ForwardsOutputTemplate(t *testing.T) {
	aggregator := &stubAggregator{}
	p := NewPipeline(&stubEnricher{}, aggregator, testLogger())

	_, err := p.Run(context.Background(), testCommits(1), WithOutputTemplate("## Custom"))
	require.NoError(t, err)
	assert.Equal(t, "## Custom", aggregator.template)
}

func TestPipeline_StateIdleBeforeFirstRun(t *testing.T) {
	p := NewPipeline(&stubEnricher{}, &stubAggregator{}, testLogger())
	assert.Equal(t, StateIdle, p.State())
}

// stubSource implements domainservice.CommitSource.
type stubSource struct {
	commits  []commit.Commit
	err      error
	lastFrom string
	lastTo   string
}

func (s *stubSource) CommitsBetween(_ context.Context, fromRef, toRef string) ([]commit.Commit, error) {
	s.lastFrom = fromRef
	s.lastTo = toRef
	return s.commits, s.err
}

func TestGenerator_Generate(t *testing.T) {
	source := &stubSource{commits: testCommits(2)}
	p := NewPipeline(&stubEnricher{}, &stubAggregator{}, testLogger())
	g := NewGenerator(func(path string) (domainservice.CommitSource, error) {
		assert.Equal(t, "/repo", path)
		return source, nil
	}, p, testLogger())

	cl, err := g.Generate(context.Background(), GenerateRequest{
		RepoPath: "/repo",
		FromRef:  "v1.0.0",
	})
	require.NoError(t, err)
	assert.Equal(t, "Release", cl.Title())
	assert.Equal(t, "v1.0.0", source.lastFrom)
	assert.Equal(t, "HEAD", source.lastTo, "empty ToRef defaults to HEAD")
}

func TestGenerator_Generate_OpenFailure(t *testing.T) {
	upstream := errors.New("not a repository")
	p := NewPipeline(&stubEnricher{}, &stubAggregator{}, testLogger())
	g := NewGenerator(func(string) (domainservice.CommitSource, error) {
		return nil, upstream
	}, p, testLogger())

	_, err := g.Generate(context.Background(), GenerateRequest{RepoPath: "/nope", FromRef: "v1"})
	require.ErrorIs(t, err, upstream)
}

func TestGenerator_Generate_EmptyRange(t *testing.T) {
	p := NewPipeline(&stubEnricher{}, &stubAggregator{}, testLogger())
	g := NewGenerator(func(string) (domainservice.CommitSource, error) {
		return &stubSource{}, nil
	}, p, testLogger())

	_, err := g.Generate(context.Background(), GenerateRequest{RepoPath: "/repo", FromRef: "v1"})
	require.ErrorIs(t, err, changelog.ErrEmptyCommitSet)
}

// fakeModel answers both the enrichment and the aggregation calls with
// canned payloads, keyed off the rendered prompt text.
type fakeModel struct {
	mu            sync.Mutex
	aggregateUser string
}

func (f *fakeModel) Complete(_ context.Context, _, user string, _ jsonschema.Definition, out any) error {
	var payload map[string]string
	switch {
	case strings.Contains(user, "Generate a changelog"):
		f.mu.Lock()
		f.aggregateUser = user
		f.mu.Unlock()
		payload = map[string]string{
			"title":       "v1.1.0",
			"description": "### Added\n- login form",
			"summary":     "one feature, one fix",
		}
	case strings.Contains(user, "add login form"):
		payload = map[string]string{"category": "feature", "description": "Adds a login form"}
	default:
		payload = map[string]string{"category": "bug_fix", "description": "Fixes a crash on startup"}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func TestPipeline_Run_EndToEndWithRealStages(t *testing.T) {
	store, err := prompt.NewStore()
	require.NoError(t, err)

	model := &fakeModel{}
	logger := testLogger()
	p := NewPipeline(
		enricher.NewCommitEnricher(model, store, logger),
		aggregator.NewChangelogAggregator(model, store, logger),
		logger,
	)

	commits := []commit.Commit{
		commit.New(strings.Repeat("a", 40), "add login form", "+form"),
		commit.New(strings.Repeat("b", 40), "fix startup crash", "-nil deref"),
	}

	cl, err := p.Run(context.Background(), commits)
	require.NoError(t, err)
	assert.Equal(t, StateDone, p.State())
	assert.Equal(t, "v1.1.0", cl.Title())
	assert.Equal(t, "one feature, one fix", cl.Summary())

	model.mu.Lock()
	aggregateUser := model.aggregateUser
	model.mu.Unlock()
	assert.Contains(t, aggregateUser, "feature")
	assert.Contains(t, aggregateUser, "bug_fix")
	assert.Contains(t, aggregateUser, "Adds a login form")
	assert.Contains(t, aggregateUser, "Fixes a crash on startup")
	assert.Contains(t, aggregateUser, "### Added", "default template is forwarded")
}
