// Package backfill brings a sparse lines-of-code history up to date with a
// repository's commit log.
package backfill

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/loctrack/pkg/commitday"
	"github.com/Sumatoshi-tech/loctrack/pkg/history"
)

// Counter measures the size of the working tree rooted at dir.
type Counter interface {
	Count(ctx context.Context, dir string) (int, error)
}

// Worktree is a checked-out repository whose contents can be moved to any
// commit of its log.
type Worktree interface {
	// Dir returns the working tree root.
	Dir() string
	// Checkout materializes the snapshot of the given commit in Dir.
	Checkout(ctx context.Context, hash string) error
}

// Measurement is one counted day.
type Measurement struct {
	Date  history.Date
	Lines int
}

// Result is the outcome of one backfill.
type Result struct {
	// History is the (possibly extended) history.
	History history.History
	// Changed is true when at least one record was appended.
	Changed bool
	// Latest is the most recent measurement, stored or not.
	Latest int
	// Days is the number of days measured.
	Days int
	// Appended is the number of records added to History.
	Appended int
	// Failures is the number of days whose measurement failed and counted as zero.
	Failures int
}

// Fold applies measurements in order to h and reports whether anything was
// appended. It is the pure core of Engine.Run.
func Fold(h history.History, measurements []Measurement) (history.History, bool) {
	changed := false

	for _, m := range measurements {
		var appended bool

		h, appended = h.Observe(m.Date, m.Lines)
		changed = changed || appended
	}

	return h, changed
}

// Engine orchestrates day selection, measurement and sparse appends.
type Engine struct {
	counter Counter
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTracer sets the tracer used for backfill spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// NewEngine creates an Engine measuring with counter.
func NewEngine(counter Counter, options ...Option) *Engine {
	engine := &Engine{
		counter: counter,
		logger:  slog.Default(),
		tracer:  nooptrace.NewTracerProvider().Tracer("loctrack"),
	}

	for _, opt := range options {
		opt(engine)
	}

	return engine
}

// Run measures every day of log after the last recorded date of hist and
// appends the days whose count differs from the running value.
//
// When no day is outstanding, hist is returned untouched and Latest is a fresh
// count of the snapshot currently checked out in wt. Measurement and checkout
// failures count as zero and never abort the run. The returned error is
// non-nil only when ctx is cancelled; the partial result must then be discarded.
func (e *Engine) Run(ctx context.Context, hist history.History, log []commitday.Commit, wt Worktree) (Result, error) {
	since := hist.LastDate()
	entries := commitday.Select(log, since)

	ctx, span := e.tracer.Start(ctx, "loctrack.backfill",
		trace.WithAttributes(
			attribute.String("backfill.since", since.String()),
			attribute.Int("backfill.commits", len(log)),
			attribute.Int("backfill.days", len(entries)),
		))
	defer span.End()

	result := Result{History: hist}

	if len(entries) == 0 {
		e.logger.DebugContext(ctx, "no outstanding days", "since", since.String())

		result.Latest = e.measure(ctx, wt, "", &result)

		return result, nil
	}

	e.logger.InfoContext(ctx, "backfilling", "days", len(entries), "since", since.String())

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("backfill interrupted at %s: %w", entry.Date, err)
		}

		lines := e.measure(ctx, wt, entry.Commit.Hash, &result)
		result.Days++
		result.Latest = lines

		var appended bool

		result.History, appended = result.History.Observe(entry.Date, lines)
		if appended {
			result.Changed = true
			result.Appended++

			e.logger.DebugContext(ctx, "size changed", "date", entry.Date.String(), "lines", lines)
		}
	}

	span.SetAttributes(attribute.Int("backfill.appended", result.Appended), attribute.Int("backfill.failures", result.Failures))

	return result, nil
}

// measure checks out hash (unless empty) and counts the tree. Errors are
// logged, recorded on result and reported as zero lines.
func (e *Engine) measure(ctx context.Context, wt Worktree, hash string, result *Result) int {
	if hash != "" {
		err := wt.Checkout(ctx, hash)
		if err != nil {
			result.Failures++

			e.logger.WarnContext(ctx, "checkout failed, counting as zero", "commit", hash, "error", err)

			return 0
		}
	}

	lines, err := e.counter.Count(ctx, wt.Dir())
	if err != nil || lines < 0 {
		result.Failures++

		e.logger.WarnContext(ctx, "line count failed, counting as zero", "commit", hash, "lines", lines, "error", err)

		return 0
	}

	return lines
}
