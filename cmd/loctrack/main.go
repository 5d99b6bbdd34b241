// Package main provides the entry point for the loctrack CLI tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/loctrack/cmd/loctrack/commands"
	"github.com/Sumatoshi-tech/loctrack/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCommand().ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var globals commands.GlobalOptions

	rootCmd := &cobra.Command{
		Use:   "loctrack",
		Short: "loctrack - lines of code history for git repositories",
		Long: `loctrack keeps a sparse daily lines-of-code history per repository and
publishes it as a shields.io endpoint badge and a step chart.

Commands:
  run       Backfill histories and refresh badges and charts
  render    Regenerate badges and charts from stored histories
  history   Print a stored history`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	globals.Register(rootCmd)

	rootCmd.AddCommand(commands.NewRunCommand(&globals))
	rootCmd.AddCommand(commands.NewRenderCommand(&globals))
	rootCmd.AddCommand(commands.NewHistoryCommand(&globals))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
