package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/kingrea/lattice-monitor/internal/api"
	"github.com/kingrea/lattice-monitor/internal/printer"
)

var executionsCmd = &cobra.Command{
	Use:   "executions",
	Short: "List workflow executions known to the server",
}

var listExecutionsCmd = &cobra.Command{
	Use:          "list",
	Short:        "List executions",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := runtimeFor(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		list, err := rt.client.Executions(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing executions: %w", err)
		}
		if state, _ := cmd.Flags().GetString("state"); state != "" {
			list = filterByState(list, api.ExecutionState(state))
		}
		printer.New(cmd.OutOrStdout()).Executions(list)
		return nil
	},
}

var showExecutionCmd = &cobra.Command{
	Use:          "show [execution-id]",
	Short:        "Show one execution and the start of its transcript",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := runtimeFor(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		offset, _ := cmd.Flags().GetInt("offset")
		limit, _ := cmd.Flags().GetInt("limit")
		detail, err := rt.client.Execution(cmd.Context(), args[0], offset, limit)
		if err != nil {
			if api.IsStatus(err, http.StatusNotFound) {
				return fmt.Errorf("execution %s not found", args[0])
			}
			return fmt.Errorf("fetching execution: %w", err)
		}
		p := printer.New(cmd.OutOrStdout())
		p.Executions([]api.ExecutionSummary{detail.ExecutionSummary})
		for _, ev := range detail.Events {
			p.Event(detail.ID, ev)
		}
		if shown := offset + len(detail.Events); shown < detail.TotalEvents {
			fmt.Fprintf(cmd.OutOrStdout(), "... %d more events (use --offset %d)\n", detail.TotalEvents-shown, shown)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(executionsCmd)
	executionsCmd.AddCommand(listExecutionsCmd)
	executionsCmd.AddCommand(showExecutionCmd)

	listExecutionsCmd.Flags().StringP("state", "s", "", "only list executions in this state (running, completed, ...)")
	showExecutionCmd.Flags().Int("offset", 0, "first transcript event to show")
	showExecutionCmd.Flags().IntP("limit", "n", 50, "maximum transcript events to show")
}

func runtimeFor(cmd *cobra.Command) (*runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return newRuntime(cfg)
}

func filterByState(list []api.ExecutionSummary, state api.ExecutionState) []api.ExecutionSummary {
	out := list[:0:0]
	for _, e := range list {
		if e.State == state {
			out = append(out, e)
		}
	}
	return out
}
