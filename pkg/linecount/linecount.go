// Package linecount measures the size of a checked-out working tree.
package linecount

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/Sumatoshi-tech/loctrack/pkg/textutil"
)

// Counting modes.
const (
	ModeWC   = "wc"
	ModeCode = "code"
	ModeExec = "exec"
)

// gitDir is never counted.
const gitDir = ".git"

// Sentinel errors.
var (
	ErrUnknownMode     = errors.New("unknown counter mode")
	ErrMissingCommand  = errors.New("exec counter requires a command")
	ErrMalformedOutput = errors.New("malformed counter output")
)

// Counter counts the lines of the tree rooted at dir.
type Counter interface {
	Count(ctx context.Context, dir string) (int, error)
}

// Options selects and configures a counter.
type Options struct {
	Mode    string
	Command string
	Timeout time.Duration
}

// New returns the counter for opts.Mode.
func New(opts Options) (Counter, error) {
	switch opts.Mode {
	case "", ModeWC:
		return WC{}, nil
	case ModeCode:
		return Code{}, nil
	case ModeExec:
		if opts.Command == "" {
			return nil, ErrMissingCommand
		}

		return Exec{Command: opts.Command, Timeout: opts.Timeout}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, opts.Mode)
	}
}

// WC counts newline characters in every regular file outside .git, matching
// `find . -type f -not -path '*/.git/*' | xargs wc -l`.
type WC struct{}

// Count implements Counter.
func (WC) Count(ctx context.Context, dir string) (int, error) {
	total := 0

	err := walkFiles(ctx, dir, func(path, _ string) error {
		n, err := countNewlines(path)
		if err != nil {
			return err
		}

		total += n

		return nil
	})
	if err != nil {
		return 0, err
	}

	return total, nil
}

// walkFiles calls fn for every regular file below dir, skipping .git
// directories. Symlinks are not followed.
func walkFiles(ctx context.Context, dir string, fn func(path, rel string) error) error {
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if entry.IsDir() {
			if entry.Name() == gitDir && path != dir {
				return filepath.SkipDir
			}

			return nil
		}

		if !entry.Type().IsRegular() {
			return nil
		}

		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return fmt.Errorf("relative path of %s: %w", path, relErr)
		}

		return fn(path, filepath.ToSlash(rel))
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", dir, err)
	}

	return nil
}

func countNewlines(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	n, err := textutil.CountNewlines(file)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}

	return n, nil
}
