// Package tracker runs the per-repository tracking flow over a batch of
// repositories: clone, backfill, persist, badge and chart. A failing
// repository never stops the batch.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/loctrack/pkg/backfill"
	"github.com/Sumatoshi-tech/loctrack/pkg/badge"
	"github.com/Sumatoshi-tech/loctrack/pkg/history"
	"github.com/Sumatoshi-tech/loctrack/pkg/observability"
	"github.com/Sumatoshi-tech/loctrack/pkg/report"
	"github.com/Sumatoshi-tech/loctrack/pkg/repolist"
	"github.com/Sumatoshi-tech/loctrack/pkg/store"
	"github.com/Sumatoshi-tech/loctrack/pkg/vcs"
)

// Sentinel errors marking why a repository failed.
var (
	ErrClone     = errors.New("clone repository")
	ErrLog       = errors.New("read commit log")
	ErrSave      = errors.New("save history")
	ErrBadge     = errors.New("write badge")
	ErrChart     = errors.New("write chart")
	ErrWorkDir   = errors.New("create work dir")
	ErrCancelled = errors.New("run cancelled")
)

// sinceMargin widens the commit log query below the last stored day so that
// committer offsets east and west of UTC cannot hide a commit of a later
// day. The day selector drops everything up to the last stored day.
const sinceMargin = 48 * time.Hour

// BadgeWriter writes the badge of a repository.
type BadgeWriter interface {
	Write(key string, count int) (badge.Document, error)
}

// ChartWriter regenerates the charts of a repository.
type ChartWriter interface {
	Write(repo, key string, h history.History) ([]string, error)
}

// Options wires a Tracker.
type Options struct {
	Backend vcs.Backend
	Store   store.Store
	Counter backfill.Counter
	Badges  BadgeWriter
	Charts  ChartWriter

	Auth vcs.Auth

	// WorkDir is the parent of the per-repository clones. Empty means the
	// system temp dir.
	WorkDir      string
	CloneTimeout time.Duration

	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.RunMetrics
}

// Tracker processes repositories one at a time.
type Tracker struct {
	opts   Options
	engine *backfill.Engine
	logger *slog.Logger
	tracer trace.Tracer
}

// New creates a Tracker.
func New(opts Options) *Tracker {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer("loctrack")
	}

	return &Tracker{
		opts:   opts,
		engine: backfill.NewEngine(opts.Counter, backfill.WithLogger(logger), backfill.WithTracer(tracer)),
		logger: logger,
		tracer: tracer,
	}
}

// Run tracks every repository in order and returns the per-repository
// outcomes. Once ctx is cancelled, the remaining repositories are reported
// as failed without being touched.
func (t *Tracker) Run(ctx context.Context, repos []repolist.Repo) report.Summary {
	return t.batch(ctx, "loctrack.run", repos, t.Track)
}

// Render regenerates badges and charts from stored histories only.
func (t *Tracker) Render(ctx context.Context, repos []repolist.Repo) report.Summary {
	return t.batch(ctx, "loctrack.render", repos, t.RenderOne)
}

func (t *Tracker) batch(
	ctx context.Context, name string, repos []repolist.Repo,
	process func(context.Context, repolist.Repo) report.Outcome,
) report.Summary {
	summary := report.Summary{
		RunID:    uuid.NewString(),
		Started:  time.Now().UTC(),
		Outcomes: make([]report.Outcome, 0, len(repos)),
	}

	ctx = observability.ContextWithAttrs(ctx, slog.String("run_id", summary.RunID))

	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("run.id", summary.RunID),
		attribute.Int("run.repos", len(repos)),
	))
	defer span.End()

	t.logger.InfoContext(ctx, "run started", "repos", len(repos))

	for _, repo := range repos {
		if ctx.Err() != nil {
			summary.Outcomes = append(summary.Outcomes, failed(repo, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())))

			continue
		}

		summary.Outcomes = append(summary.Outcomes, process(ctx, repo))
	}

	failures := summary.Failed()

	span.SetAttributes(attribute.Int("run.failed", failures))

	if failures > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d repositories failed", failures))
	}

	t.logger.InfoContext(ctx, "run finished", "repos", len(repos), "failed", failures)

	return summary
}

// Track runs the full flow for one repository. The clone lives in a fresh
// temp directory that is removed on every path.
func (t *Tracker) Track(ctx context.Context, repo repolist.Repo) report.Outcome {
	start := time.Now()

	ctx = observability.ContextWithAttrs(ctx, slog.String("repo", repo.Name), slog.String("key", repo.Key))

	ctx, span := t.tracer.Start(ctx, "loctrack.repo", trace.WithAttributes(
		attribute.String("repo.name", repo.Name),
		attribute.String("repo.key", repo.Key),
	))
	defer span.End()

	outcome, stats := t.track(ctx, repo)

	stats.Duration = time.Since(start)
	outcome.Seconds = stats.Duration.Seconds()
	stats.Status = outcome.Status

	t.opts.Metrics.RecordRepo(ctx, stats)

	if outcome.Status == report.StatusFailed {
		span.SetStatus(codes.Error, outcome.Error)
		t.logger.ErrorContext(ctx, "repository failed", "error", outcome.Error)
	}

	return outcome
}

func (t *Tracker) track(ctx context.Context, repo repolist.Repo) (report.Outcome, observability.RepoStats) {
	var stats observability.RepoStats

	dir, err := os.MkdirTemp(t.opts.WorkDir, "loctrack-"+repo.Key+"-")
	if err != nil {
		return failed(repo, fmt.Errorf("%w: %w", ErrWorkDir, err)), stats
	}

	defer func() {
		rmErr := os.RemoveAll(dir)
		if rmErr != nil {
			t.logger.WarnContext(ctx, "remove work dir", "dir", dir, "error", rmErr)
		}
	}()

	hist := t.load(ctx, repo.Key)

	wt, err := t.clone(ctx, repo, dir)
	if err != nil {
		return failed(repo, err), stats
	}

	defer func() {
		closeErr := wt.Close()
		if closeErr != nil {
			t.logger.WarnContext(ctx, "close repository", "error", closeErr)
		}
	}()

	var since time.Time
	if last := hist.LastDate(); !last.IsZero() {
		since = last.Time().Add(-sinceMargin)
	}

	log, err := wt.Log(ctx, since)
	if err != nil {
		return failed(repo, fmt.Errorf("%w: %w", ErrLog, err)), stats
	}

	result, err := t.engine.Run(ctx, hist, log, wt)
	if err != nil {
		return failed(repo, fmt.Errorf("%w: %w", ErrCancelled, err)), stats
	}

	stats.Days = result.Days
	stats.Failures = result.Failures
	stats.Appended = result.Appended

	t.logger.InfoContext(ctx, "backfill done",
		"days", result.Days, "lines", result.Latest, "changed", result.Changed, "failures", result.Failures)

	if result.Changed {
		err = t.opts.Store.Save(ctx, repo.Key, result.History)
		if err != nil {
			return failed(repo, fmt.Errorf("%w: %w", ErrSave, err)), stats
		}
	}

	status := report.StatusUnchanged
	if result.Changed {
		status = report.StatusUpdated
	}

	outcome := report.Outcome{
		Repo:     repo.Name,
		Key:      repo.Key,
		Status:   status,
		Lines:    result.Latest,
		Records:  len(result.History),
		Days:     result.Days,
		Appended: result.Appended,
		Failures: result.Failures,
	}

	return t.publish(ctx, repo, outcome, result.Latest, result.History), stats
}

// load returns the stored history of key. A store error is logged and
// treated as no history.
func (t *Tracker) load(ctx context.Context, key string) history.History {
	hist, err := t.opts.Store.Load(ctx, key)
	if err != nil {
		t.logger.WarnContext(ctx, "stored history unusable, starting empty", "error", err)

		return history.History{}
	}

	return hist
}

func (t *Tracker) clone(ctx context.Context, repo repolist.Repo, dir string) (vcs.Repository, error) {
	ctx, span := t.tracer.Start(ctx, "loctrack.clone", trace.WithAttributes(
		attribute.String("vcs.url", repo.URL),
	))
	defer span.End()

	if t.opts.CloneTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, t.opts.CloneTimeout)
		defer cancel()
	}

	wt, err := t.opts.Backend.Clone(ctx, repo.URL, dir, t.opts.Auth)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())

		return nil, fmt.Errorf("%w %s: %w", ErrClone, repo.URL, err)
	}

	t.logger.DebugContext(ctx, "cloned", "dir", dir)

	return wt, nil
}

// publish writes the badge from latest and regenerates the charts from h.
func (t *Tracker) publish(
	ctx context.Context, repo repolist.Repo, outcome report.Outcome, latest int, h history.History,
) report.Outcome {
	doc, err := t.opts.Badges.Write(repo.Key, latest)
	if err != nil {
		return failed(repo, fmt.Errorf("%w: %w", ErrBadge, err))
	}

	outcome.Badge = doc.Message

	t.logger.InfoContext(ctx, "badge updated", "message", doc.Message)

	if t.opts.Charts == nil {
		return outcome
	}

	paths, err := t.opts.Charts.Write(repo.Name, repo.Key, h)
	if err != nil {
		return failed(repo, fmt.Errorf("%w: %w", ErrChart, err))
	}

	if len(paths) == 0 {
		t.logger.DebugContext(ctx, "chart skipped, empty history")
	} else {
		t.logger.InfoContext(ctx, "chart updated", "paths", paths)
	}

	return outcome
}

// RenderOne regenerates the badge and charts of one repository from its
// stored history. The badge shows the last stored count.
func (t *Tracker) RenderOne(ctx context.Context, repo repolist.Repo) report.Outcome {
	start := time.Now()

	ctx = observability.ContextWithAttrs(ctx, slog.String("repo", repo.Name), slog.String("key", repo.Key))

	ctx, span := t.tracer.Start(ctx, "loctrack.repo", trace.WithAttributes(
		attribute.String("repo.name", repo.Name),
		attribute.String("repo.key", repo.Key),
	))
	defer span.End()

	hist, err := t.opts.Store.Load(ctx, repo.Key)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())

		return failed(repo, err)
	}

	outcome := report.Outcome{
		Repo:    repo.Name,
		Key:     repo.Key,
		Status:  report.StatusRendered,
		Lines:   hist.LastLines(),
		Records: len(hist),
	}

	if len(hist) == 0 {
		t.logger.WarnContext(ctx, "no stored history, nothing to render")

		outcome.Seconds = time.Since(start).Seconds()

		return outcome
	}

	outcome = t.publish(ctx, repo, outcome, hist.LastLines(), hist)
	outcome.Seconds = time.Since(start).Seconds()

	return outcome
}

func failed(repo repolist.Repo, err error) report.Outcome {
	return report.Outcome{
		Repo:   repo.Name,
		Key:    repo.Key,
		Status: report.StatusFailed,
		Error:  observability.RedactURL(err.Error()),
	}
}
