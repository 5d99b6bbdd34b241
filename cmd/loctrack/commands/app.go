// Package commands implements the loctrack CLI commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/loctrack/internal/tracker"
	"github.com/Sumatoshi-tech/loctrack/pkg/badge"
	"github.com/Sumatoshi-tech/loctrack/pkg/chart"
	"github.com/Sumatoshi-tech/loctrack/pkg/config"
	"github.com/Sumatoshi-tech/loctrack/pkg/linecount"
	"github.com/Sumatoshi-tech/loctrack/pkg/observability"
	"github.com/Sumatoshi-tech/loctrack/pkg/report"
	"github.com/Sumatoshi-tech/loctrack/pkg/repolist"
	"github.com/Sumatoshi-tech/loctrack/pkg/store"
	"github.com/Sumatoshi-tech/loctrack/pkg/vcs"
	"github.com/Sumatoshi-tech/loctrack/pkg/version"
)

// ErrNoRepositories is returned when neither arguments, the repos file nor
// the config list name a repository.
var ErrNoRepositories = errors.New("no repositories to track (add them to the repos file or pass them as arguments)")

// GlobalOptions holds the persistent root flags.
type GlobalOptions struct {
	ConfigPath string
	Verbose    bool
	Quiet      bool
}

// Register adds the persistent flags to root.
func (g *GlobalOptions) Register(root *cobra.Command) {
	root.PersistentFlags().StringVarP(&g.ConfigPath, "config", "c", "", "config file (default loctrack.yaml in . or ./config)")
	root.PersistentFlags().BoolVarP(&g.Verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().BoolVarP(&g.Quiet, "quiet", "q", false, "suppress output")
}

// app is everything a command needs once configuration is resolved.
type app struct {
	cfg       *config.Config
	providers observability.Providers
	store     store.Store
}

func bootstrap(
	cmd *cobra.Command, globals *GlobalOptions, mode observability.AppMode, bindings map[string]string,
) (*app, error) {
	cfg, err := config.LoadConfig(config.Options{
		Path:     globals.ConfigPath,
		Flags:    cmd.Flags(),
		Bindings: bindings,
	})
	if err != nil {
		return nil, err
	}

	providers, err := initObservability(cfg, globals, mode, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	st, err := store.New(store.Options{
		Backend:    cfg.Store.Backend,
		Dir:        cfg.Dirs.History,
		SQLitePath: cfg.Store.SQLitePath,
		Logger:     providers.Logger,
	})
	if err != nil {
		shutdownErr := providers.Shutdown(context.Background())

		return nil, errors.Join(fmt.Errorf("open history store: %w", err), shutdownErr)
	}

	return &app{cfg: cfg, providers: providers, store: st}, nil
}

func initObservability(
	cfg *config.Config, globals *GlobalOptions, mode observability.AppMode, logOutput io.Writer,
) (observability.Providers, error) {
	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		return observability.Providers{}, err
	}

	switch {
	case globals.Verbose:
		level = slog.LevelDebug
	case globals.Quiet:
		level = slog.LevelError
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Environment = cfg.Telemetry.Environment
	obsCfg.Mode = mode
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Logging.JSON
	obsCfg.LogOutput = logOutput

	return observability.Init(obsCfg)
}

// close releases the store and flushes telemetry.
func (a *app) close() {
	storeErr := a.store.Close()
	if storeErr != nil {
		a.providers.Logger.Warn("close history store", "error", storeErr)
	}

	shutdownErr := a.providers.Shutdown(context.Background())
	if shutdownErr != nil {
		a.providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
	}
}

// repositories resolves the batch: explicit arguments win, otherwise the
// repos file followed by the config list. Malformed entries are logged and
// come back as failed outcomes so the rest of the batch still runs.
func (a *app) repositories(args []string) ([]repolist.Repo, []report.Outcome, error) {
	var (
		repos    []repolist.Repo
		rejected []repolist.Rejected
	)

	if len(args) > 0 {
		repos, rejected = repolist.Merge(nil, args, a.cfg.Git.BaseURL)
	} else {
		fromFile, fileRejected, err := repolist.Load(a.cfg.ReposFile, a.cfg.Git.BaseURL)
		if err != nil {
			return nil, nil, err
		}

		var cfgRejected []repolist.Rejected

		repos, cfgRejected = repolist.Merge(fromFile, a.cfg.Repos, a.cfg.Git.BaseURL)
		rejected = append(fileRejected, cfgRejected...)
	}

	outcomes := make([]report.Outcome, 0, len(rejected))

	for _, rej := range rejected {
		a.providers.Logger.Warn("repository entry skipped", "entry", rej.Entry, "line", rej.Line, "error", rej.Err)

		outcomes = append(outcomes, report.Outcome{
			Repo:   rej.Entry,
			Key:    repolist.Key(rej.Entry),
			Status: report.StatusFailed,
			Error:  observability.RedactURL(rej.Error()),
		})
	}

	return repos, outcomes, nil
}

func (a *app) tracker() (*tracker.Tracker, error) {
	backend, err := vcs.NewBackend(a.cfg.Git.Backend)
	if err != nil {
		return nil, err
	}

	counter, err := linecount.New(linecount.Options{
		Mode:    a.cfg.Counter.Mode,
		Command: a.cfg.Counter.Command,
		Timeout: a.cfg.Counter.Timeout,
	})
	if err != nil {
		return nil, err
	}

	metrics, err := observability.NewRunMetrics(a.providers.Meter)
	if err != nil {
		return nil, err
	}

	return tracker.New(tracker.Options{
		Backend: backend,
		Store:   a.store,
		Counter: counter,
		Badges:  badge.NewWriter(a.cfg.Dirs.Badges),
		Charts: chart.NewWriter(a.cfg.Dirs.Diagrams, chart.WriterOptions{
			SVG:  a.cfg.Chart.SVG,
			HTML: a.cfg.Chart.HTML,
			Options: chart.Options{
				Width:  a.cfg.Chart.Width,
				Height: a.cfg.Chart.Height,
				Theme:  chart.Theme(a.cfg.Chart.Theme),
			},
		}),
		Auth:         vcs.Auth{Username: a.cfg.Git.Username, Token: a.cfg.Git.Token()},
		WorkDir:      a.cfg.Dirs.Work,
		CloneTimeout: a.cfg.Git.CloneTimeout,
		Logger:       a.providers.Logger,
		Tracer:       a.providers.Tracer,
		Metrics:      metrics,
	}), nil
}
