package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kingrea/lattice-monitor/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create .monitor/config.yaml in the project directory",
	Long: `Create the .monitor directory with a commented default config.yaml. An
existing config is kept; --server rewrites its server URL.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := projectDir(cmd)
		if err != nil {
			return err
		}
		if err := config.InitMonitorDir(dir); err != nil {
			return fmt.Errorf("initializing %s: %w", config.MonitorDir, err)
		}
		cfg, err := config.NewConfig(dir)
		if err != nil {
			return err
		}
		if server, _ := cmd.Flags().GetString("server"); server != "" {
			if err := cfg.SetServerURL(server); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "config: %s\nserver: %s\n", cfg.ProjectConfigPath(), cfg.ServerURL())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
