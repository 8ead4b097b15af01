package enricher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/chlog/domain/commit"
	domainservice "github.com/helixml/chlog/domain/service"
	"github.com/helixml/chlog/infrastructure/prompt"
	"github.com/helixml/chlog/infrastructure/provider"
)

// fakeGenerator implements provider.StructuredGenerator for tests. respond
// maps a substring of the user text to the payload (or error) to return.
type fakeGenerator struct {
	respond func(userText string) (enrichmentPayload, error)
	calls   atomic.Int32
}

func (f *fakeGenerator) Complete(_ context.Context, _, userText string, _ jsonschema.Definition, out any) error {
	f.calls.Add(1)
	payload, err := f.respond(userText)
	if err != nil {
		return err
	}
	*out.(*enrichmentPayload) = payload
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testStore(t *testing.T) *prompt.Store {
	t.Helper()
	store, err := prompt.NewStore()
	require.NoError(t, err)
	return store
}

func newCommits(n int) []commit.Commit {
	commits := make([]commit.Commit, n)
	for i := range commits {
		commits[i] = commit.New(
			fmt.Sprintf("%040d", i),
			fmt.Sprintf("commit %d", i),
			fmt.Sprintf("diff %d", i),
		)
	}
	return commits
}

func describe(string) (enrichmentPayload, error) {
	return enrichmentPayload{Category: "feature", Description: "a change"}, nil
}

func TestCommitEnricher_Enrich_EmptyCommits(t *testing.T) {
	gen := &fakeGenerator{respond: describe}
	e := NewCommitEnricher(gen, testStore(t), testLogger())

	enriched, err := e.Enrich(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, enriched)
	assert.Zero(t, gen.calls.Load())
}

func TestCommitEnricher_Enrich_PreservesOrder(t *testing.T) {
	gen := &fakeGenerator{respond: func(userText string) (enrichmentPayload, error) {
		return enrichmentPayload{Category: "bug_fix", Description: userText}, nil
	}}
	e := NewCommitEnricher(gen, testStore(t), testLogger()).WithParallelism(4)

	commits := newCommits(12)
	enriched, err := e.Enrich(context.Background(), commits)
	require.NoError(t, err)
	require.Len(t, enriched, 12)

	for i, en := range enriched {
		assert.Equal(t, commits[i].Hash(), en.Hash(), "slot %d", i)
		assert.Equal(t, commit.CategoryBugFix, en.Category())
		assert.Contains(t, en.Description(), fmt.Sprintf("commit %d", i))
	}
}

func TestCommitEnricher_Enrich_ZeroToleranceFailsBatch(t *testing.T) {
	upstream := errors.New("model exploded")
	gen := &fakeGenerator{respond: func(userText string) (enrichmentPayload, error) {
		if strings.Contains(userText, "diff 1") {
			return enrichmentPayload{}, upstream
		}
		return describe(userText)
	}}
	e := NewCommitEnricher(gen, testStore(t), testLogger())

	commits := newCommits(3)

	var failedHashes []string
	var mu sync.Mutex
	enriched, err := e.Enrich(context.Background(), commits,
		domainservice.WithCommitFailure(func(hash string, _ error) {
			mu.Lock()
			failedHashes = append(failedHashes, hash)
			mu.Unlock()
		}))
	require.Error(t, err)
	assert.Nil(t, enriched)

	var batchErr *domainservice.BatchError
	require.ErrorAs(t, err, &batchErr)
	require.Len(t, batchErr.Failures(), 1)
	assert.Equal(t, commits[1].Hash(), batchErr.Failures()[0].Hash())
	assert.ErrorIs(t, err, upstream)

	assert.Equal(t, []string{commits[1].Hash()}, failedHashes)
}

func TestCommitEnricher_Enrich_ToleratedFailureExcludesCommit(t *testing.T) {
	gen := &fakeGenerator{respond: func(userText string) (enrichmentPayload, error) {
		if strings.Contains(userText, "diff 0") {
			return enrichmentPayload{}, errors.New("transient")
		}
		return describe(userText)
	}}
	e := NewCommitEnricher(gen, testStore(t), testLogger())

	commits := newCommits(4)
	enriched, err := e.Enrich(context.Background(), commits,
		domainservice.WithMaxFailureRate(0.5))
	require.NoError(t, err)
	require.Len(t, enriched, 3)

	for i, en := range enriched {
		assert.Equal(t, commits[i+1].Hash(), en.Hash())
	}
}

func TestCommitEnricher_Enrich_AllFailedUnderToleranceStillErrors(t *testing.T) {
	gen := &fakeGenerator{respond: func(string) (enrichmentPayload, error) {
		return enrichmentPayload{}, errors.New("down")
	}}
	e := NewCommitEnricher(gen, testStore(t), testLogger())

	_, err := e.Enrich(context.Background(), newCommits(2),
		domainservice.WithMaxFailureRate(1))

	var batchErr *domainservice.BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Len(t, batchErr.Failures(), 2)
}

func TestCommitEnricher_Enrich_UnknownCategoryIsSchemaViolation(t *testing.T) {
	gen := &fakeGenerator{respond: func(string) (enrichmentPayload, error) {
		return enrichmentPayload{Category: "improvement", Description: "x"}, nil
	}}
	e := NewCommitEnricher(gen, testStore(t), testLogger())

	_, err := e.Enrich(context.Background(), newCommits(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrSchemaViolation)
	assert.ErrorIs(t, err, commit.ErrUnknownCategory)
}

func TestCommitEnricher_Enrich_ProgressReachesTotal(t *testing.T) {
	gen := &fakeGenerator{respond: describe}
	e := NewCommitEnricher(gen, testStore(t), testLogger()).WithParallelism(3)

	var mu sync.Mutex
	var seen []int
	total := 7
	enriched, err := e.Enrich(context.Background(), newCommits(total),
		domainservice.WithEnrichProgress(func(completed, n int) {
			mu.Lock()
			seen = append(seen, completed)
			mu.Unlock()
			assert.Equal(t, total, n)
		}))
	require.NoError(t, err)
	assert.Len(t, enriched, total)

	require.Len(t, seen, total)
	assert.Contains(t, seen, total)
}

func TestCommitEnricher_Enrich_CancelledContext(t *testing.T) {
	gen := &fakeGenerator{respond: func(string) (enrichmentPayload, error) {
		return enrichmentPayload{}, context.Canceled
	}}
	e := NewCommitEnricher(gen, testStore(t), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	enriched, err := e.Enrich(ctx, newCommits(3))
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, enriched)
}

func TestCommitEnricher_Enrich_BoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	gen := &fakeGenerator{respond: func(userText string) (enrichmentPayload, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		return describe(userText)
	}}
	e := NewCommitEnricher(gen, testStore(t), testLogger()).WithParallelism(2)

	_, err := e.Enrich(context.Background(), newCommits(10))
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}
