package main

import (
	"github.com/spf13/cobra"

	"github.com/kingrea/lattice-monitor/internal/office"
	"github.com/kingrea/lattice-monitor/internal/printer"
)

var statusCmd = &cobra.Command{
	Use:          "status",
	Short:        "Print the current office once",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := runtimeFor(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.actions.LoadStatus(cmd.Context()); err != nil {
			return err
		}
		var board office.Board
		if snap := rt.status.View().Snapshot; snap != nil {
			board = office.Still(*snap)
		}
		printer.New(cmd.OutOrStdout()).Board(board)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
