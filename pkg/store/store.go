// Package store persists per-repository line count histories.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Sumatoshi-tech/loctrack/pkg/history"
)

// Backend names.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Sentinel errors.
var (
	// ErrMalformed reports a stored history that cannot be trusted: unreadable,
	// failing the document schema or breaking a history invariant.
	ErrMalformed = errors.New("malformed history")
	// ErrUnknownBackend is returned by New for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown store backend")
	// ErrEmptyKey is returned when a repository key is empty.
	ErrEmptyKey = errors.New("empty history key")
)

// Store loads and saves histories by repository key.
type Store interface {
	// Load returns the stored history. A missing history is empty and not an
	// error. A malformed one is returned empty with an error wrapping
	// ErrMalformed.
	Load(ctx context.Context, key string) (history.History, error)
	// Save replaces the whole stored history of key.
	Save(ctx context.Context, key string, h history.History) error
	Close() error
}

// Lister is implemented by stores that can enumerate their keys.
type Lister interface {
	Keys(ctx context.Context) ([]string, error)
}

// Options select and configure a backend.
type Options struct {
	Backend    string
	Dir        string
	SQLitePath string
	Logger     *slog.Logger
}

// New opens the configured backend. An empty backend selects JSON files.
func New(opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendJSON:
		return NewJSONStore(opts.Dir), nil
	case BackendSQLite:
		return OpenSQLite(opts.SQLitePath, opts.Logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

func checkKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	return nil
}

func validated(h history.History) (history.History, error) {
	err := h.Validate()
	if err != nil {
		return history.History{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return h, nil
}
