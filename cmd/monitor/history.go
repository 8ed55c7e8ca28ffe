package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kingrea/lattice-monitor/internal/printer"
)

var historyCmd = &cobra.Command{
	Use:          "history",
	Short:        "List past workflow runs",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := runtimeFor(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		list, err := rt.client.History(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetching history: %w", err)
		}
		printer.New(cmd.OutOrStdout()).History(list)
		return nil
	},
}

var resultsCmd = &cobra.Command{
	Use:          "results [name]",
	Short:        "List produced output files, or print one",
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := runtimeFor(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		if len(args) == 1 {
			content, err := rt.client.ResultContent(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("fetching result %s: %w", args[0], err)
			}
			fmt.Fprint(cmd.OutOrStdout(), content)
			return nil
		}
		list, err := rt.client.Results(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing results: %w", err)
		}
		printer.New(cmd.OutOrStdout()).Results(list)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(resultsCmd)
}
