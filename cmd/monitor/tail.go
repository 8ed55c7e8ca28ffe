package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kingrea/lattice-monitor/internal/api"
	"github.com/kingrea/lattice-monitor/internal/printer"
	"github.com/kingrea/lattice-monitor/internal/store"
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print live frames as plain lines",
	Long: `Print every frame from the live feed as one line. With --start the named
workflow is started once the feed is connected; with --attach an execution
that is already running is backfilled once the feed is connected. In both
cases only that execution's frames are shown and tail exits once it
finishes, with a non-zero status if it failed or was stopped.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runTail,
}

func init() {
	rootCmd.AddCommand(tailCmd)

	tailCmd.Flags().String("start", "", "start this workflow and follow its execution")
	tailCmd.Flags().String("attach", "", "follow an execution that is already running")
	tailCmd.Flags().StringSliceP("type", "t", nil, "only print these frame types (e.g. cli_event,execution_state_change)")
	tailCmd.Flags().Bool("no-color", false, "disable colored output")
	tailCmd.MarkFlagsMutuallyExclusive("start", "attach")
}

func runTail(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	start, _ := cmd.Flags().GetString("start")
	attach, _ := cmd.Flags().GetString("attach")
	types, _ := cmd.Flags().GetStringSlice("type")
	noColor, _ := cmd.Flags().GetBool("no-color")

	opts := []printer.Option{printer.WithTypes(types...), printer.WithSession(attach)}
	if noColor {
		opts = append(opts, printer.WithColor(false))
	}
	p := printer.New(cmd.OutOrStdout(), opts...)
	if start == "" && attach == "" {
		return follow(ctx, rt, p, nil)
	}

	var final *api.ExecutionSummary
	err = follow(ctx, rt, p, func(ctx context.Context) (err error) {
		final, err = track(ctx, rt, p, start, attach)
		return err
	})
	if err != nil || final == nil {
		return err
	}
	p.Executions([]api.ExecutionSummary{*final})
	if final.State != api.StateCompleted {
		return fmt.Errorf("execution %s %s", final.ID, final.State)
	}
	return nil
}

// track starts or attaches to the target execution once the live feed is
// connected and blocks until it finishes. It returns nil, nil if ctx ends
// first.
func track(ctx context.Context, rt *runtime, p *printer.Printer, start, attach string) (*api.ExecutionSummary, error) {
	if !awaitConnected(ctx, rt.connection) {
		return nil, nil
	}
	if start != "" {
		target, err := rt.actions.StartExecution(ctx, start)
		if err != nil {
			return nil, err
		}
		p.Track(target.ID)
	} else {
		target, err := rt.actions.Attach(ctx, attach)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil
			}
			return nil, err
		}
		for _, ev := range rt.execution.View().Events {
			p.Event(target.ID, ev)
		}
	}
	if _, err := rt.actions.Refresh(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, nil
		}
		return nil, err
	}
	final, _ := awaitTerminal(ctx, rt.execution)
	return final, nil
}

// follow runs the live feed and prints router frames and connection changes
// until ctx ends. When until is set, follow also returns once until does.
func follow(ctx context.Context, rt *runtime, p *printer.Printer, until func(context.Context) error) error {
	tap := rt.router.Subscribe()
	conn := rt.connection.Subscribe()
	defer conn.Close()

	g, gctx := errgroup.WithContext(ctx)
	followCtx, stop := context.WithCancel(gctx)
	defer stop()

	g.Go(func() error {
		return rt.feed.Run(followCtx)
	})
	g.Go(func() error {
		defer stop()
		return p.Follow(followCtx, tap)
	})
	g.Go(func() error {
		printConnection(followCtx, rt.connection, conn, p)
		return nil
	})
	if until != nil {
		g.Go(func() error {
			defer stop()
			return until(followCtx)
		})
	}
	return g.Wait()
}

func printConnection(ctx context.Context, conns *store.ConnectionStore, sub store.Subscription, p *printer.Printer) {
	last := conns.View().Connected
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.C:
			if !ok {
				return
			}
			if now := conns.View().Connected; now != last {
				last = now
				p.Connection(now)
			}
		}
	}
}

// awaitTerminal blocks until the tracked execution reaches a terminal state.
// It reports false if ctx ends first.
func awaitTerminal(ctx context.Context, executions *store.ExecutionStore) (*api.ExecutionSummary, bool) {
	sub := executions.Subscribe()
	defer sub.Close()
	for {
		if exec := executions.View().Execution; exec != nil && exec.State.IsTerminal() {
			return exec, true
		}
		select {
		case <-ctx.Done():
			return nil, false
		case _, ok := <-sub.C:
			if !ok {
				return nil, false
			}
		}
	}
}

// awaitConnected blocks until the live feed reports a connection. It reports
// false if ctx ends first.
func awaitConnected(ctx context.Context, conns *store.ConnectionStore) bool {
	sub := conns.Subscribe()
	defer sub.Close()
	for {
		if conns.View().Connected {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case _, ok := <-sub.C:
			if !ok {
				return false
			}
		}
	}
}
