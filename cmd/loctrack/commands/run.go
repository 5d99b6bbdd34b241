package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/loctrack/pkg/observability"
	"github.com/Sumatoshi-tech/loctrack/pkg/report"
)

// ErrRepositoriesFailed is returned by run --strict when any repository failed.
var ErrRepositoriesFailed = errors.New("repositories failed")

const (
	runCmdUse   = "run [repository...]"
	runCmdShort = "Backfill line count histories and refresh badges and charts"
	runCmdLong  = `Run clones every tracked repository into a temporary directory, measures
the days committed since its last stored record, appends the sizes that
changed and rewrites its badge and charts.

Repositories come from the arguments when given, otherwise from the repos
file followed by the "repos" config list. An entry is owner/name (cloned
from git.base_url) or a full clone URL.`
)

// Flag names bound to config keys.
var runBindings = map[string]string{
	"repos_file":             "repos-file",
	"dirs.history":           "history-dir",
	"dirs.badges":            "badge-dir",
	"dirs.diagrams":          "diagram-dir",
	"dirs.work":              "work-dir",
	"git.backend":            "backend",
	"git.clone_timeout":      "clone-timeout",
	"counter.mode":           "counter",
	"counter.command":        "counter-command",
	"counter.timeout":        "counter-timeout",
	"store.backend":          "store",
	"store.sqlite_path":      "sqlite-path",
	"chart.svg":              "svg",
	"chart.html":             "html",
	"chart.theme":            "theme",
	"telemetry.metrics_file": "metrics-file",
}

type runOptions struct {
	format string
	strict bool
}

// NewRunCommand creates the run subcommand.
func NewRunCommand(globals *GlobalOptions) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   runCmdUse,
		Short: runCmdShort,
		Long:  runCmdLong,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrack(cmd, globals, opts, args)
		},
	}

	registerArtifactFlags(cmd)

	flags := cmd.Flags()
	flags.String("repos-file", "", "repository list file")
	flags.String("work-dir", "", "parent directory of temporary clones")
	flags.String("backend", "", "git backend: libgit2 or gogit")
	flags.Duration("clone-timeout", 0, "clone timeout (0 disables)")
	flags.String("counter", "", "line counter: wc, code or exec")
	flags.String("counter-command", "", "shell command of the exec counter")
	flags.Duration("counter-timeout", 0, "exec counter timeout (0 disables)")
	flags.String("metrics-file", "", "write Prometheus metrics to this file after the run")
	flags.StringVarP(&opts.format, "format", "f", report.FormatTable, "summary format: table, json or yaml")
	flags.BoolVar(&opts.strict, "strict", false, "exit non-zero when any repository failed")

	return cmd
}

// registerArtifactFlags adds the storage and chart flags shared by run and render.
func registerArtifactFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("history-dir", "", "history directory")
	flags.String("badge-dir", "", "badge directory")
	flags.String("diagram-dir", "", "chart directory")
	flags.String("store", "", "history store: json or sqlite")
	flags.String("sqlite-path", "", "SQLite database of the sqlite store")
	flags.Bool("svg", true, "write the SVG chart")
	flags.Bool("html", false, "write the interactive HTML chart")
	flags.String("theme", "", "chart theme: dark or light")
}

func runTrack(cmd *cobra.Command, globals *GlobalOptions, opts runOptions, args []string) error {
	a, err := bootstrap(cmd, globals, observability.ModeCLI, runBindings)
	if err != nil {
		return err
	}
	defer a.close()

	repos, rejected, err := a.repositories(args)
	if err != nil {
		return err
	}

	if len(repos) == 0 && len(rejected) == 0 {
		return ErrNoRepositories
	}

	trk, err := a.tracker()
	if err != nil {
		return err
	}

	summary := trk.Run(cmd.Context(), repos)
	summary.Outcomes = append(rejected, summary.Outcomes...)

	if path := a.cfg.Telemetry.MetricsFile; path != "" {
		metricsErr := observability.WriteMetricsFile(a.providers.Registry, path)
		if metricsErr != nil {
			a.providers.Logger.Warn("metrics file not written", "path", path, "error", metricsErr)
		}
	}

	if !globals.Quiet {
		err = report.WriteSummary(cmd.OutOrStdout(), summary, report.Options{Format: opts.format})
		if err != nil {
			return err
		}
	}

	if opts.strict && summary.Failed() > 0 {
		return fmt.Errorf("%w: %d of %d", ErrRepositoriesFailed, summary.Failed(), len(summary.Outcomes))
	}

	return nil
}
