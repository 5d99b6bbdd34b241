package vcs

import (
	"context"
	"fmt"
	"time"

	"github.com/Sumatoshi-tech/loctrack/pkg/commitday"
	"github.com/Sumatoshi-tech/loctrack/pkg/gitlib"
)

// Libgit2 is the default backend, built on pkg/gitlib.
type Libgit2 struct{}

// Clone implements Backend.
func (Libgit2) Clone(ctx context.Context, url, dir string, auth Auth) (Repository, error) {
	repo, err := gitlib.Clone(ctx, url, dir, gitlib.Credentials{Username: auth.Username, Token: auth.Token})
	if err != nil {
		return nil, err
	}

	return &libgit2Repo{repo: repo}, nil
}

// Open implements Backend.
func (Libgit2) Open(dir string) (Repository, error) {
	repo, err := gitlib.OpenRepository(dir)
	if err != nil {
		return nil, err
	}

	return &libgit2Repo{repo: repo}, nil
}

type libgit2Repo struct {
	repo *gitlib.Repository
}

func (r *libgit2Repo) Dir() string {
	return r.repo.Path()
}

func (r *libgit2Repo) Log(ctx context.Context, since time.Time) ([]commitday.Commit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := r.repo.Log(since)
	if err != nil {
		return nil, err
	}

	log := make([]commitday.Commit, 0, len(entries))
	for _, e := range entries {
		log = append(log, commitday.Commit{Hash: e.Hash.String(), When: e.Committer.When})
	}

	return log, nil
}

func (r *libgit2Repo) Checkout(ctx context.Context, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h, err := gitlib.ParseHash(hash)
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	return r.repo.Checkout(h)
}

func (r *libgit2Repo) Close() error {
	r.repo.Free()

	return nil
}
