package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/lattice-monitor/internal/printer"
	"github.com/kingrea/lattice-monitor/internal/router"
)

var workflowsCmd = &cobra.Command{
	Use:   "workflows",
	Short: "Manage workflow definitions stored on the server",
}

var listWorkflowsCmd = &cobra.Command{
	Use:          "list",
	Short:        "List stored workflows",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := runtimeFor(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		list, err := rt.client.Workflows(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing workflows: %w", err)
		}
		printer.New(cmd.OutOrStdout()).Workflows(list)
		return nil
	},
}

var showWorkflowCmd = &cobra.Command{
	Use:          "show [name]",
	Short:        "Print a stored workflow's YAML",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := runtimeFor(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		raw, err := rt.client.WorkflowRaw(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("fetching workflow %s: %w", args[0], err)
		}
		fmt.Fprint(cmd.OutOrStdout(), raw)
		return nil
	},
}

var createWorkflowCmd = &cobra.Command{
	Use:          "create [file.yaml]",
	Short:        "Upload a local workflow definition",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		filename, content, err := readWorkflowFile(args[0])
		if err != nil {
			return err
		}
		rt, err := runtimeFor(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.client.CreateWorkflow(cmd.Context(), filename, content); err != nil {
			return fmt.Errorf("uploading %s: %w", filename, err)
		}
		rt.journal.Info("uploaded workflow %s", filename)
		fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", filename)
		return nil
	},
}

var deleteWorkflowCmd = &cobra.Command{
	Use:          "delete [name]",
	Short:        "Delete a stored workflow",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := runtimeFor(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.client.DeleteWorkflow(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("deleting workflow %s: %w", args[0], err)
		}
		rt.journal.Info("deleted workflow %s", args[0])
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

var runWorkflowCmd = &cobra.Command{
	Use:   "run [name]",
	Short: "Launch a stored workflow without tracking it",
	Long: `Launch a stored workflow as a detached process on the server. Use
"monitor tail --start" instead to follow the run's transcript.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := runtimeFor(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		resp, err := rt.client.ExecuteWorkflow(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("launching workflow %s: %w", args[0], err)
		}
		if !resp.Success {
			return fmt.Errorf("server refused to launch %s", args[0])
		}
		rt.journal.Info("launched workflow %s", args[0])
		if resp.PID != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "launched %s (pid %d)\n", args[0], *resp.PID)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "launched %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workflowsCmd)
	workflowsCmd.AddCommand(listWorkflowsCmd)
	workflowsCmd.AddCommand(showWorkflowCmd)
	workflowsCmd.AddCommand(createWorkflowCmd)
	workflowsCmd.AddCommand(deleteWorkflowCmd)
	workflowsCmd.AddCommand(runWorkflowCmd)
}

// readWorkflowFile loads a local definition and checks that it is a YAML
// mapping before it is sent anywhere.
func readWorkflowFile(path string) (string, string, error) {
	filename, ok := router.WorkflowFileName(path)
	if !ok {
		return "", "", fmt.Errorf("%s: workflow files must end in .yaml or .yml", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", "", fmt.Errorf("%s: %w", path, err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return "", "", errors.New(path + ": workflow must be a YAML mapping")
	}
	return filename, string(data), nil
}
