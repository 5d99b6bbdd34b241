package vcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/Sumatoshi-tech/loctrack/pkg/commitday"
)

// GoGit is a pure Go backend that needs neither libgit2 nor a git binary.
type GoGit struct{}

// Clone implements Backend.
func (GoGit) Clone(ctx context.Context, url, dir string, auth Auth) (Repository, error) {
	opts := &git.CloneOptions{URL: url}
	if auth.Token != "" {
		opts.Auth = &http.BasicAuth{Username: auth.Username, Password: auth.Token}
	}

	repo, err := git.PlainCloneContext(ctx, dir, false, opts)
	if err != nil {
		return nil, fmt.Errorf("clone repository: %w", err)
	}

	return &goGitRepo{repo: repo, dir: dir}, nil
}

// Open implements Backend.
func (GoGit) Open(dir string) (Repository, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	return &goGitRepo{repo: repo, dir: dir}, nil
}

type goGitRepo struct {
	repo *git.Repository
	dir  string
}

func (r *goGitRepo) Dir() string {
	return r.dir
}

func (r *goGitRepo) Log(ctx context.Context, since time.Time) ([]commitday.Commit, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("get HEAD: %w", err)
	}

	iter, err := r.repo.Log(&git.LogOptions{From: head.Hash(), Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("read commits: %w", err)
	}
	defer iter.Close()

	var log []commitday.Commit

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		commit, err := iter.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("read commits: %w", err)
		}

		if !since.IsZero() && commit.Committer.When.Before(since) {
			continue
		}

		log = append(log, toCommit(commit))
	}

	slices.Reverse(log)

	return log, nil
}

func toCommit(c *object.Commit) commitday.Commit {
	return commitday.Commit{Hash: c.Hash.String(), When: c.Committer.When}
}

func (r *goGitRepo) Checkout(ctx context.Context, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}

	h := plumbing.NewHash(hash)

	err = wt.Checkout(&git.CheckoutOptions{Hash: h, Force: true})
	if err != nil {
		return fmt.Errorf("checkout %s: %w", hash, err)
	}

	// Force does not remove untracked files left by a newer snapshot.
	err = wt.Clean(&git.CleanOptions{Dir: true})
	if err != nil {
		return fmt.Errorf("clean worktree: %w", err)
	}

	return nil
}

func (r *goGitRepo) Close() error {
	return nil
}
