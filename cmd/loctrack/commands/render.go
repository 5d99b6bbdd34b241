package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/loctrack/pkg/observability"
	"github.com/Sumatoshi-tech/loctrack/pkg/report"
	"github.com/Sumatoshi-tech/loctrack/pkg/repolist"
	"github.com/Sumatoshi-tech/loctrack/pkg/store"
)

var renderBindings = map[string]string{
	"repos_file":        "repos-file",
	"dirs.history":      "history-dir",
	"dirs.badges":       "badge-dir",
	"dirs.diagrams":     "diagram-dir",
	"store.backend":     "store",
	"store.sqlite_path": "sqlite-path",
	"chart.svg":         "svg",
	"chart.html":        "html",
	"chart.theme":       "theme",
}

// NewRenderCommand creates the render subcommand.
func NewRenderCommand(globals *GlobalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "render [repository...]",
		Short: "Regenerate badges and charts from stored histories without cloning",
		Long: `Render rewrites the badge (from the last stored record) and the charts of
each repository. Without arguments it renders the tracked repositories, or
every stored history when nothing is tracked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd, globals, observability.ModeRender, renderBindings)
			if err != nil {
				return err
			}
			defer a.close()

			repos, rejected, err := renderTargets(cmd, a, args)
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

			summary := trk.Render(cmd.Context(), repos)
			summary.Outcomes = append(rejected, summary.Outcomes...)

			if globals.Quiet {
				return nil
			}

			return report.WriteSummary(cmd.OutOrStdout(), summary, report.Options{Format: format})
		},
	}

	registerArtifactFlags(cmd)
	cmd.Flags().String("repos-file", "", "repository list file")
	cmd.Flags().StringVarP(&format, "format", "f", report.FormatTable, "summary format: table, json or yaml")

	return cmd
}

// renderTargets falls back to the keys of the store when no repository is
// tracked. Keys stand in for names there.
func renderTargets(cmd *cobra.Command, a *app, args []string) ([]repolist.Repo, []report.Outcome, error) {
	repos, rejected, err := a.repositories(args)
	if err != nil || len(repos) > 0 || len(rejected) > 0 {
		return repos, rejected, err
	}

	lister, ok := a.store.(store.Lister)
	if !ok {
		return nil, nil, nil
	}

	keys, err := lister.Keys(cmd.Context())
	if err != nil {
		return nil, nil, err
	}

	for _, key := range keys {
		repos = append(repos, repolist.Repo{Name: key, Key: key})
	}

	return repos, nil, nil
}
