package tracker_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/loctrack/pkg/commitday"
	"github.com/Sumatoshi-tech/loctrack/pkg/history"
	"github.com/Sumatoshi-tech/loctrack/pkg/vcs"
)

var errNotFound = errors.New("repository not found")

// source is a remote repository: an oldest-first log and the line count of
// every commit's snapshot.
type source struct {
	log   []commitday.Commit
	sizes map[string]int
}

type fakeBackend struct {
	sources map[string]source
	clones  []string
}

func (b *fakeBackend) Clone(ctx context.Context, url, dir string, _ vcs.Auth) (vcs.Repository, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.clones = append(b.clones, dir)

	src, ok := b.sources[url]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errNotFound, url)
	}

	repo := &fakeRepo{dir: dir, src: src}

	if len(src.log) > 0 {
		err := repo.Checkout(ctx, src.log[len(src.log)-1].Hash)
		if err != nil {
			return nil, err
		}
	}

	return repo, nil
}

func (b *fakeBackend) Open(string) (vcs.Repository, error) {
	return nil, errNotFound
}

type fakeRepo struct {
	dir string
	src source
}

func (r *fakeRepo) Dir() string { return r.dir }

func (r *fakeRepo) Log(_ context.Context, since time.Time) ([]commitday.Commit, error) {
	var out []commitday.Commit

	for _, c := range r.src.log {
		if !since.IsZero() && c.When.Before(since) {
			continue
		}

		out = append(out, c)
	}

	return out, nil
}

// Checkout writes a single file holding as many lines as the snapshot has.
func (r *fakeRepo) Checkout(_ context.Context, hash string) error {
	n, ok := r.src.sizes[hash]
	if !ok {
		return fmt.Errorf("unknown commit %s", hash)
	}

	return os.WriteFile(filepath.Join(r.dir, "code.txt"), []byte(strings.Repeat("x\n", n)), 0o644)
}

func (r *fakeRepo) Close() error { return nil }

// failingStore loads nothing and refuses every save.
type failingStore struct{}

var errDiskFull = errors.New("disk full")

func (failingStore) Load(context.Context, string) (history.History, error) {
	return history.History{}, nil
}

func (failingStore) Save(context.Context, string, history.History) error {
	return errDiskFull
}

func (failingStore) Close() error { return nil }

// commit builds a log entry on day of May 2024 at hour UTC.
func commit(hash string, day, hour int) commitday.Commit {
	return commitday.Commit{Hash: hash, When: time.Date(2024, time.May, day, hour, 0, 0, 0, time.UTC)}
}
