package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/loctrack/pkg/observability"
	"github.com/Sumatoshi-tech/loctrack/pkg/report"
	"github.com/Sumatoshi-tech/loctrack/pkg/repolist"
)

var historyBindings = map[string]string{
	"dirs.history":      "history-dir",
	"store.backend":     "store",
	"store.sqlite_path": "sqlite-path",
}

// NewHistoryCommand creates the history subcommand.
func NewHistoryCommand(globals *GlobalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "history <repository>",
		Short: "Print the stored line count history of a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd, globals, observability.ModeRender, historyBindings)
			if err != nil {
				return err
			}
			defer a.close()

			repo, err := repolist.New(args[0], a.cfg.Git.BaseURL)
			if err != nil {
				return err
			}

			hist, err := a.store.Load(cmd.Context(), repo.Key)
			if err != nil {
				return err
			}

			return report.WriteHistory(cmd.OutOrStdout(), report.HistoryView{
				Repo:    repo.Name,
				Key:     repo.Key,
				Records: hist,
			}, report.Options{Format: format})
		},
	}

	flags := cmd.Flags()
	flags.String("history-dir", "", "history directory")
	flags.String("store", "", "history store: json or sqlite")
	flags.String("sqlite-path", "", "SQLite database of the sqlite store")
	flags.StringVarP(&format, "format", "f", report.FormatTable, "output format: table, json or yaml")

	return cmd
}
