package git

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	appErrors "github.com/noggin-kb/noggin/internal/errors"
	"github.com/noggin-kb/noggin/internal/logger"
	"github.com/noggin-kb/noggin/internal/models"
)

const shortHashLen = 7

// fallbackBranches are tried in order when HEAD does not resolve.
var fallbackBranches = []string{"main", "master"}

// Walker reads commit history with go-git.
type Walker struct{}

func NewWalker() *Walker {
	return &Walker{}
}

// RepoRoot returns the top-level directory of the repository containing path.
func (w *Walker) RepoRoot(path string) (string, error) {
	repo, err := openRepo(path)
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", appErrors.ErrRepositoryNotFound.WithError(err).WithContext("path", path)
	}
	return wt.Filesystem.Root(), nil
}

func openRepo(path string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, appErrors.ErrRepositoryNotFound.WithError(err).WithContext("path", path)
	}
	return repo, nil
}

// Walk returns commits oldest first. A repository without any branch
// yields an empty result.
func (w *Walker) Walk(ctx context.Context, repoPath string, opts models.WalkOptions) (*models.WalkResult, error) {
	log := logger.FromContext(ctx)

	repo, err := openRepo(repoPath)
	if err != nil {
		return nil, err
	}

	start, ok, err := resolveStart(repo)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Info("repository has no branches, nothing to walk", "path", repoPath)
		return &models.WalkResult{}, nil
	}

	commits, err := collect(ctx, repo, start, opts.SkipMerges)
	if err != nil {
		return nil, err
	}

	if opts.Since != "" {
		commits, err = resumeAfter(ctx, repo, commits, opts.Since)
		if err != nil {
			return nil, err
		}
	}

	result := &models.WalkResult{}
	for _, c := range commits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		meta := toMetadata(ctx, c, opts.Paths)
		if len(opts.Paths) > 0 && len(meta.Files) == 0 {
			continue
		}

		if opts.Limit > 0 && len(result.Commits) == opts.Limit {
			result.Continuation = result.Commits[len(result.Commits)-1].Hash
			break
		}
		result.Commits = append(result.Commits, meta)
	}

	log.Debug("walked history",
		"commits", len(result.Commits),
		"continuation", result.Continuation)

	return result, nil
}

func resolveStart(repo *git.Repository) (plumbing.Hash, bool, error) {
	head, err := repo.Head()
	if err == nil {
		return head.Hash(), true, nil
	}
	if !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return plumbing.ZeroHash, false, appErrors.ErrWalkHistory.WithError(err)
	}

	for _, branch := range fallbackBranches {
		ref, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true)
		if err == nil {
			return ref.Hash(), true, nil
		}
	}
	return plumbing.ZeroHash, false, nil
}

// collect loads every commit reachable from start, ordered by author time
// ascending.
func collect(ctx context.Context, repo *git.Repository, start plumbing.Hash, skipMerges bool) ([]*object.Commit, error) {
	iter, err := repo.Log(&git.LogOptions{From: start, Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, appErrors.ErrCommitNotFound.WithError(err).WithContext("hash", start.String())
	}
	defer iter.Close()

	var commits []*object.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if skipMerges && c.NumParents() > 1 {
			return nil
		}
		commits = append(commits, c)
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, appErrors.ErrCommitNotFound.WithError(err)
	}

	for i, j := 0, len(commits)-1; i < j; i, j = i+1, j-1 {
		commits[i], commits[j] = commits[j], commits[i]
	}
	sort.SliceStable(commits, func(i, j int) bool {
		return commits[i].Author.When.Unix() < commits[j].Author.When.Unix()
	})
	return commits, nil
}

// resumeAfter drops everything up to and including since. A since outside
// the walked sequence excludes its whole ancestry instead.
func resumeAfter(ctx context.Context, repo *git.Repository, commits []*object.Commit, since string) ([]*object.Commit, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(since))
	if err != nil {
		return nil, appErrors.ErrCommitNotFound.WithError(err).WithContext("hash", since)
	}

	for i, c := range commits {
		if c.Hash == *hash {
			return commits[i+1:], nil
		}
	}

	seen := make(map[plumbing.Hash]bool)
	iter, err := repo.Log(&git.LogOptions{From: *hash})
	if err != nil {
		return nil, appErrors.ErrCommitNotFound.WithError(err).WithContext("hash", since)
	}
	defer iter.Close()
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		seen[c.Hash] = true
		return nil
	})
	if err != nil {
		return nil, appErrors.ErrCommitNotFound.WithError(err).WithContext("hash", since)
	}

	out := commits[:0:0]
	for _, c := range commits {
		if !seen[c.Hash] {
			out = append(out, c)
		}
	}
	return out, nil
}

func toMetadata(ctx context.Context, c *object.Commit, paths []string) models.CommitMetadata {
	hash := c.Hash.String()
	meta := models.CommitMetadata{
		Hash:      hash,
		ShortHash: hash[:shortHashLen],
		Author:    fmt.Sprintf("%s <%s>", c.Author.Name, c.Author.Email),
		Timestamp: c.Author.When.Unix(),
		Message:   c.Message,
		Summary:   strings.TrimSpace(strings.SplitN(c.Message, "\n", 2)[0]),
	}
	for _, p := range c.ParentHashes {
		meta.ParentHashes = append(meta.ParentHashes, p.String())
	}

	stats, err := c.StatsContext(ctx)
	if err != nil {
		logger.Warn(ctx, "diff stats unavailable, using zeros", "hash", meta.ShortHash, "error", err)
		return meta
	}

	for _, s := range stats {
		if !matchesAny(s.Name, paths) {
			continue
		}
		meta.Files = append(meta.Files, models.FileChange{Path: s.Name, Additions: s.Addition, Deletions: s.Deletion})
		meta.Insertions += s.Addition
		meta.Deletions += s.Deletion
	}
	meta.FilesChanged = len(meta.Files)
	return meta
}

func matchesAny(path string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
