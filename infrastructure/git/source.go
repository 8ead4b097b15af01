// Package git reads commit history from local repositories using go-git.
package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/helixml/chlog/domain/commit"
	domainservice "github.com/helixml/chlog/domain/service"
)

// ErrNoTags indicates the repository has no semantic version tags.
var ErrNoTags = errors.New("no version tags found")

// Tag is a semantic version tag and the commit it points at.
type Tag struct {
	Name    string
	SHA     string
	Version *semver.Version
}

// Source reads commits from a local repository. Implements
// domainservice.CommitSource.
type Source struct {
	repo *gogit.Repository
	log  *slog.Logger
}

// Open opens the repository at path, searching parent directories for the
// .git directory the way the git CLI does.
func Open(path string, log *slog.Logger) (*Source, error) {
	if log == nil {
		log = slog.Default()
	}
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return &Source{repo: repo, log: log}, nil
}

// CommitsBetween returns the commits reachable from toRef but not from
// fromRef, the fromRef..toRef range, in chronological order by committer
// time, each carrying its unified diff against its first parent. An empty
// fromRef means the whole history; an empty toRef means HEAD. Commits on
// branches merged inside the range appear individually.
func (s *Source) CommitsBetween(ctx context.Context, fromRef, toRef string) ([]commit.Commit, error) {
	if toRef == "" {
		toRef = "HEAD"
	}
	toHash, err := s.repo.ResolveRevision(plumbing.Revision(toRef))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", toRef, err)
	}

	excluded := make(map[plumbing.Hash]struct{})
	if fromRef != "" {
		fromHash, err := s.repo.ResolveRevision(plumbing.Revision(fromRef))
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", fromRef, err)
		}
		if err := s.collectAncestors(ctx, *fromHash, excluded); err != nil {
			return nil, fmt.Errorf("walk %s ancestry: %w", fromRef, err)
		}
	}

	iter, err := s.repo.Log(&gogit.LogOptions{From: *toHash, Order: gogit.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("get commit log: %w", err)
	}
	defer iter.Close()

	var newestFirst []*object.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := excluded[c.Hash]; ok {
			return nil
		}
		newestFirst = append(newestFirst, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk history: %w", err)
	}

	s.log.Debug("collected commits",
		slog.String("from", fromRef),
		slog.String("to", toRef),
		slog.Int("count", len(newestFirst)))

	commits := make([]commit.Commit, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		c := newestFirst[i]
		diff, err := commitPatch(c)
		if err != nil {
			return nil, fmt.Errorf("diff commit %s: %w", c.Hash, err)
		}
		commits = append(commits, commit.New(c.Hash.String(), strings.TrimSpace(c.Message), diff))
	}
	return commits, nil
}

// collectAncestors marks every commit reachable from start, start included.
func (s *Source) collectAncestors(ctx context.Context, start plumbing.Hash, seen map[plumbing.Hash]struct{}) error {
	iter, err := s.repo.Log(&gogit.LogOptions{From: start})
	if err != nil {
		return err
	}
	defer iter.Close()

	return iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		seen[c.Hash] = struct{}{}
		return nil
	})
}

// commitPatch renders the unified diff of a commit against its first parent.
// A root commit diffs against the empty tree.
func commitPatch(c *object.Commit) (string, error) {
	parentTree := &object.Tree{}
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return "", fmt.Errorf("get parent commit: %w", err)
		}
		parentTree, err = parent.Tree()
		if err != nil {
			return "", fmt.Errorf("get parent tree: %w", err)
		}
	}

	commitTree, err := c.Tree()
	if err != nil {
		return "", fmt.Errorf("get commit tree: %w", err)
	}

	changes, err := parentTree.Diff(commitTree)
	if err != nil {
		return "", fmt.Errorf("compute diff: %w", err)
	}

	patch, err := changes.Patch()
	if err != nil {
		return "", fmt.Errorf("get patch: %w", err)
	}

	return patch.String(), nil
}

// VersionTags returns the repository's semantic version tags, newest version
// first. Tags that do not parse as semantic versions are skipped. Annotated
// tags resolve to their target commit.
func (s *Source) VersionTags() ([]Tag, error) {
	iter, err := s.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("get tags: %w", err)
	}
	defer iter.Close()

	var tags []Tag
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		version, err := semver.NewVersion(ref.Name().Short())
		if err != nil {
			return nil
		}

		sha := ref.Hash().String()
		if tagObj, err := s.repo.TagObject(ref.Hash()); err == nil {
			sha = tagObj.Target.String()
		}

		tags = append(tags, Tag{Name: ref.Name().Short(), SHA: sha, Version: version})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}

	sort.Slice(tags, func(i, j int) bool {
		return tags[i].Version.GreaterThan(tags[j].Version)
	})
	return tags, nil
}

// LatestTag returns the highest semantic version tag, or ErrNoTags when the
// repository has none.
func (s *Source) LatestTag() (Tag, error) {
	tags, err := s.VersionTags()
	if err != nil {
		return Tag{}, err
	}
	if len(tags) == 0 {
		return Tag{}, ErrNoTags
	}
	return tags[0], nil
}

// CurrentBranch returns the short name of the checked-out branch.
func (s *Source) CurrentBranch() (string, error) {
	head, err := s.repo.Head()
	if err != nil {
		return "", fmt.Errorf("get HEAD: %w", err)
	}
	return head.Name().Short(), nil
}

// HeadSHA returns the commit hash HEAD points at.
func (s *Source) HeadSHA() (string, error) {
	head, err := s.repo.Head()
	if err != nil {
		return "", fmt.Errorf("get HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// RemoteURL returns the first URL of the origin remote.
func (s *Source) RemoteURL() (string, error) {
	remote, err := s.repo.Remote("origin")
	if err != nil {
		return "", fmt.Errorf("get origin remote: %w", err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", errors.New("origin remote has no URL")
	}
	return urls[0], nil
}

// Ensure Source implements domainservice.CommitSource.
var _ domainservice.CommitSource = (*Source)(nil)
