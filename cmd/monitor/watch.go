package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kingrea/lattice-monitor/internal/config"
	"github.com/kingrea/lattice-monitor/internal/printer"
	"github.com/kingrea/lattice-monitor/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the live dashboard",
	Long: `Open the live dashboard in the alternate screen. When stdout is not a
terminal, or --plain is given, frames are printed as lines instead.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	rootCmd.Flags().Bool("plain", false, "print frames as lines instead of opening the dashboard")
	watchCmd.Flags().Bool("plain", false, "print frames as lines instead of opening the dashboard")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.InitMonitorDir(cfg.ProjectDir); err != nil {
		return fmt.Errorf("initializing %s: %w", config.MonitorDir, err)
	}
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	plain, _ := cmd.Flags().GetBool("plain")
	if plain || !stdoutIsTerminal() {
		p := printer.New(cmd.OutOrStdout())
		return follow(cmd.Context(), rt, p, nil)
	}
	return runDashboard(cmd.Context(), rt)
}

// runDashboard runs the live feed and the bubbletea program side by side.
// Quitting the program stops the feed; a feed failure kills the program.
func runDashboard(ctx context.Context, rt *runtime) error {
	app, err := tui.NewApp(tui.Deps{
		Status:     rt.status,
		Connection: rt.connection,
		Execution:  rt.execution,
		Session:    rt.session,
		Actions:    rt.actions,
		Tracker:    rt.tracker,
		Logbook:    rt.journal,
	})
	if err != nil {
		return err
	}
	defer app.Close()

	g, gctx := errgroup.WithContext(ctx)
	feedCtx, stopFeed := context.WithCancel(gctx)
	defer stopFeed()

	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(gctx))
	rt.journal.Info("dashboard opened for %s", rt.cfg.ServerURL())

	g.Go(func() error {
		return rt.feed.Run(feedCtx)
	})
	g.Go(func() error {
		defer stopFeed()
		_, err := program.Run()
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	})
	err = g.Wait()
	rt.journal.Info("dashboard closed")
	return err
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
