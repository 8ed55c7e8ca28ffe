package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kingrea/lattice-monitor/internal/actions"
	"github.com/kingrea/lattice-monitor/internal/api"
	"github.com/kingrea/lattice-monitor/internal/config"
	"github.com/kingrea/lattice-monitor/internal/livefeed"
	"github.com/kingrea/lattice-monitor/internal/logbook"
	"github.com/kingrea/lattice-monitor/internal/logging"
	"github.com/kingrea/lattice-monitor/internal/office"
	"github.com/kingrea/lattice-monitor/internal/router"
	"github.com/kingrea/lattice-monitor/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live dashboard for orchestrated agent workflows",
	Long: `monitor follows a workflow server over its live feed and shows the office
of agents, the running execution's transcript, and the AI workflow builder.
Run without a subcommand it opens the dashboard (same as "monitor watch").`,
	SilenceUsage: true,
	RunE:         runWatch,
}

func init() {
	rootCmd.PersistentFlags().String("dir", "", "project directory (default is the working directory)")
	rootCmd.PersistentFlags().String("server", "", "server URL, overrides config.yaml and MONITOR_SERVER_URL")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
}

// runtime is the fully wired client: stores, router, live feed and actions
// for one project directory.
type runtime struct {
	cfg     *config.Config
	log     *logging.Logger
	journal *logbook.Logbook
	client  *api.Client

	status     *store.StatusStore
	connection *store.ConnectionStore
	execution  *store.ExecutionStore
	session    *store.SessionStore

	router  *router.Router
	feed    *livefeed.Conn
	actions *actions.Controller
	tracker *office.Tracker
}

func projectDir(cmd *cobra.Command) (string, error) {
	dir, _ := cmd.Flags().GetString("dir")
	if strings.TrimSpace(dir) != "" {
		return dir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return cwd, nil
}

// loadConfig reads .monitor/config.yaml and applies the persistent flags on
// top of it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	dir, err := projectDir(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := config.NewConfig(dir)
	if err != nil {
		return nil, err
	}
	if server, _ := cmd.Flags().GetString("server"); strings.TrimSpace(server) != "" {
		cfg.Project.Server.URL = strings.TrimRight(strings.TrimSpace(server), "/")
	}
	if level, _ := cmd.Flags().GetString("log-level"); strings.TrimSpace(level) != "" {
		cfg.Project.Log.Level = strings.ToLower(strings.TrimSpace(level))
	}
	return cfg, nil
}

// newRuntime wires every component for cfg. Nothing is dialled yet; callers
// start the feed with rt.feed.Run.
func newRuntime(cfg *config.Config) (*runtime, error) {
	logger, err := logging.New(cfg)
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, log: logger}
	if rt.journal, err = logbook.New(cfg.JournalPath()); err != nil {
		rt.Close()
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	rt.client, err = api.NewClient(cfg.ServerURL(),
		api.WithAPIPrefix(cfg.Project.Server.APIPrefix),
		api.WithHTTPClient(&http.Client{Timeout: cfg.Project.Server.RequestTimeout.Std()}),
		api.WithLogger(logger),
	)
	if err != nil {
		rt.Close()
		return nil, err
	}
	settings, err := livefeed.SettingsFromConfig(cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}

	capacity := cfg.Project.Live.EventCapacity
	rt.status = store.NewStatusStore()
	rt.connection = store.NewConnectionStore()
	rt.execution = store.NewExecutionStore(capacity)
	rt.session = store.NewSessionStore(capacity)

	rt.router = router.New(
		router.WithStatus(rt.status),
		router.WithRecorder(rt.connection),
		router.WithChannel(router.ExecutionChannel{Store: rt.execution}),
		router.WithChannel(router.AIChannel{Store: rt.session}),
		router.WithLogger(logger.Printer(slog.LevelDebug)),
	)
	rt.feed = livefeed.New(settings, rt.router, rt.connection,
		livefeed.WithLogger(logger),
		livefeed.WithJournal(rt.journal),
	)
	rt.actions = actions.New(rt.client, rt.status, rt.execution, rt.session,
		actions.WithJournal(rt.journal),
	)
	rt.tracker = office.NewTracker()
	logger.Debug("runtime ready", "server", cfg.ServerURL(), "feed", settings.URL, "event_capacity", capacity)
	return rt, nil
}

// Close ends router taps and releases the log file.
func (rt *runtime) Close() {
	if rt.router != nil {
		rt.router.Close()
	}
	if rt.log != nil {
		_ = rt.log.Close()
	}
}
