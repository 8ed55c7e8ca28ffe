// internal/config/config.go
//
// This package handles configuration and the .monitor directory structure.
// A project that runs the monitor gets a .monitor/ folder in its root holding
// config.yaml and the logs the dashboard writes while the TUI owns the terminal.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MonitorDir is the name of the directory we create in each project
	MonitorDir = ".monitor"

	DefaultServerURL      = "http://127.0.0.1:8000"
	DefaultWSPath         = "/ws"
	DefaultAPIPrefix      = "/api"
	DefaultRequestTimeout = 15 * time.Second
	DefaultReconnectDelay = 3 * time.Second
	DefaultPingInterval   = 30 * time.Second
	DefaultEventCapacity  = 5000
	DefaultLogLevel       = "info"
)

const defaultProjectConfigYAML = `# monitor configuration
version: 1

# Dashboard backend. The live feed connects to <url><ws_path>, REST calls go to <url><api_prefix>.
server:
  url: http://127.0.0.1:8000
  ws_path: /ws
  api_prefix: /api
  request_timeout: 15s

# Live connection. The reconnect delay is a fixed interval; there is no backoff.
live:
  reconnect_delay: 3s
  ping_interval: 30s
  # Transcript events kept per session.
  event_capacity: 5000

log:
  level: info # debug | info | warn | error
  file: true
`

// Duration is a time.Duration that reads and writes as "3s" in YAML.
type Duration time.Duration

// UnmarshalYAML accepts Go duration strings or a bare integer of milliseconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	raw := strings.TrimSpace(value.Value)
	if raw == "" {
		*d = 0
		return nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q", value.Line, raw)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration in Go notation.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std converts to time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ServerConfig locates the dashboard backend.
type ServerConfig struct {
	URL            string   `yaml:"url"`
	WSPath         string   `yaml:"ws_path"`
	APIPrefix      string   `yaml:"api_prefix"`
	RequestTimeout Duration `yaml:"request_timeout"`
}

// LiveConfig tunes the push connection.
type LiveConfig struct {
	ReconnectDelay Duration `yaml:"reconnect_delay"`
	PingInterval   Duration `yaml:"ping_interval"`
	EventCapacity  int      `yaml:"event_capacity"`
}

// LogConfig controls the diagnostic log.
type LogConfig struct {
	Level string `yaml:"level"`
	File  *bool  `yaml:"file,omitempty"`
}

// ProjectConfig models .monitor/config.yaml.
type ProjectConfig struct {
	Version int          `yaml:"version"`
	Server  ServerConfig `yaml:"server"`
	Live    LiveConfig   `yaml:"live"`
	Log     LogConfig    `yaml:"log"`
}

// Config holds the runtime configuration for the monitor.
type Config struct {
	// ProjectDir is the directory where the user ran `monitor` from
	ProjectDir string

	// MonitorProjectDir is ProjectDir/.monitor
	MonitorProjectDir string

	Project ProjectConfig
}

// InitMonitorDir creates the .monitor directory structure in the given
// project directory and writes a commented default config when none exists.
//
// .monitor/
// ├── config.yaml
// └── logs/
func InitMonitorDir(projectDir string) error {
	monitorDir := filepath.Join(projectDir, MonitorDir)
	if err := os.MkdirAll(filepath.Join(monitorDir, "logs"), 0o755); err != nil {
		return err
	}
	return ensureProjectConfig(filepath.Join(monitorDir, "config.yaml"))
}

// NewConfig loads .monitor/config.yaml (defaults when absent) and applies
// MONITOR_* environment overrides.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:        projectDir,
		MonitorProjectDir: filepath.Join(projectDir, MonitorDir),
		Project:           defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	cfg.Project.applyEnvOverrides()
	cfg.Project.normalize()
	if err := cfg.Project.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.MonitorProjectDir, "logs")
}

// LogFilePath is where the diagnostic log is written.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.LogsDir(), "monitor.log")
}

// JournalPath is where the activity journal shown in the dashboard lives.
func (c *Config) JournalPath() string {
	return filepath.Join(c.LogsDir(), "activity.log")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.MonitorProjectDir, "config.yaml")
}

// ServerURL returns the configured backend origin.
func (c *Config) ServerURL() string {
	return c.Project.Server.URL
}

// LogToFile reports whether the diagnostic log file is enabled.
func (c *Config) LogToFile() bool {
	return c.Project.Log.File == nil || *c.Project.Log.File
}

// SetServerURL updates the backend origin and persists it to config.yaml.
func (c *Config) SetServerURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("config: server url is required")
	}
	c.Project.Server.URL = raw
	return c.saveProjectConfig()
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	parsed := defaultProjectConfig()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	pc := ProjectConfig{}
	pc.applyDefaults()
	return pc
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Server.URL) == "" {
		pc.Server.URL = DefaultServerURL
	}
	if strings.TrimSpace(pc.Server.WSPath) == "" {
		pc.Server.WSPath = DefaultWSPath
	}
	if strings.TrimSpace(pc.Server.APIPrefix) == "" {
		pc.Server.APIPrefix = DefaultAPIPrefix
	}
	if pc.Server.RequestTimeout <= 0 {
		pc.Server.RequestTimeout = Duration(DefaultRequestTimeout)
	}
	if pc.Live.ReconnectDelay <= 0 {
		pc.Live.ReconnectDelay = Duration(DefaultReconnectDelay)
	}
	if pc.Live.PingInterval <= 0 {
		pc.Live.PingInterval = Duration(DefaultPingInterval)
	}
	if pc.Live.EventCapacity <= 0 {
		pc.Live.EventCapacity = DefaultEventCapacity
	}
	if strings.TrimSpace(pc.Log.Level) == "" {
		pc.Log.Level = DefaultLogLevel
	}
}

func (pc *ProjectConfig) applyEnvOverrides() {
	if value := strings.TrimSpace(os.Getenv("MONITOR_SERVER_URL")); value != "" {
		pc.Server.URL = value
	}
	if value := strings.TrimSpace(os.Getenv("MONITOR_LOG_LEVEL")); value != "" {
		pc.Log.Level = value
	}
	if value := strings.TrimSpace(os.Getenv("MONITOR_RECONNECT_DELAY")); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
			pc.Live.ReconnectDelay = Duration(parsed)
		}
	}
	if value := strings.TrimSpace(os.Getenv("MONITOR_EVENT_CAPACITY")); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			pc.Live.EventCapacity = parsed
		}
	}
}

func (pc *ProjectConfig) normalize() {
	pc.Server.URL = strings.TrimRight(strings.TrimSpace(pc.Server.URL), "/")
	pc.Server.WSPath = "/" + strings.Trim(strings.TrimSpace(pc.Server.WSPath), "/")
	pc.Server.APIPrefix = "/" + strings.Trim(strings.TrimSpace(pc.Server.APIPrefix), "/")
	pc.Log.Level = strings.ToLower(strings.TrimSpace(pc.Log.Level))
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	parsed, err := url.Parse(pc.Server.URL)
	if err != nil {
		return fmt.Errorf("server.url: %w", err)
	}
	switch parsed.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("server.url must use http or https, got %q", pc.Server.URL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("server.url has no host")
	}
	if pc.Live.EventCapacity <= 0 {
		return fmt.Errorf("live.event_capacity must be positive")
	}
	switch pc.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	return nil
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0644)
}

func (c *Config) saveProjectConfig() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Project.applyDefaults()
	c.Project.normalize()
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.MonitorProjectDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure monitor dir: %w", err)
	}
	data, err := yaml.Marshal(c.Project)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	return nil
}
