package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskmaster/tasksync/cmd/tasksync/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "tasksync",
		Short:         "TaskSync task store",
		Long:          `TaskSync keeps a task collection in a remote Postgres store with a local cache fallback, and notifies listeners of every change.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to a config file (yaml, json or toml)")

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewTasksCommand())
	rootCmd.AddCommand(commands.NewStatsCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
