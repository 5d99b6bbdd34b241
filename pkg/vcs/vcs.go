// Package vcs abstracts the version-control operations of a tracking run:
// clone or open a repository, list its commit log and check out a commit.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sumatoshi-tech/loctrack/pkg/commitday"
)

// Backend names.
const (
	BackendLibgit2 = "libgit2"
	BackendGoGit   = "gogit"
)

// ErrUnknownBackend is returned by NewBackend for an unsupported name.
var ErrUnknownBackend = errors.New("unknown vcs backend")

// Auth carries HTTP basic credentials. An empty Token means anonymous access.
type Auth struct {
	Username string
	Token    string
}

// Repository is a cloned or opened repository with a working tree.
type Repository interface {
	// Dir returns the working tree root.
	Dir() string
	// Log lists commits reachable from HEAD, oldest first. Commits with a
	// committer time before since are omitted; a zero since keeps all.
	Log(ctx context.Context, since time.Time) ([]commitday.Commit, error)
	// Checkout forces the working tree to the snapshot of hash.
	Checkout(ctx context.Context, hash string) error
	// Close releases resources held by the repository. It does not remove Dir.
	Close() error
}

// Backend creates repositories.
type Backend interface {
	Clone(ctx context.Context, url, dir string, auth Auth) (Repository, error)
	Open(dir string) (Repository, error)
}

// NewBackend returns the backend registered under name. An empty name
// selects libgit2.
func NewBackend(name string) (Backend, error) {
	switch name {
	case "", BackendLibgit2:
		return Libgit2{}, nil
	case BackendGoGit:
		return GoGit{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}
