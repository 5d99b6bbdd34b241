package linecount

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// waitDelay bounds how long output pipes are drained after the command is
// killed.
const waitDelay = time.Second

// Exec delegates counting to an external shell command run inside the tree,
// e.g. `find . -type f -not -path './.git/*' -exec cat {} + | wc -l`.
// The first field of the last non-empty output line must be an integer.
type Exec struct {
	Command string
	Timeout time.Duration
}

// Count implements Counter.
func (e Exec) Count(ctx context.Context, dir string) (int, error) {
	if e.Command == "" {
		return 0, ErrMissingCommand
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, "sh", "-c", e.Command)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	if err != nil {
		return 0, fmt.Errorf("run %q: %w (stderr: %s)", e.Command, err, strings.TrimSpace(stderr.String()))
	}

	return ParseCount(stdout.String())
}

// ParseCount extracts the first integer field of the last non-empty line.
// Fields may use ',' as a separator, as CSV reports do.
func ParseCount(output string) (int, error) {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])

	if last == "" {
		return 0, fmt.Errorf("%w: empty output", ErrMalformedOutput)
	}

	fields := strings.FieldsFunc(last, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})

	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedOutput, last)
	}

	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedOutput, last)
	}

	return n, nil
}
