package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"

	"github.com/kingrea/lattice-monitor/internal/config"
)

// Logger writes structured lines to .monitor/logs/monitor.log so users can
// inspect connection trouble after the dashboard exits. It embeds *slog.Logger;
// Printf is kept for components that take a printf-style logger.
type Logger struct {
	*slog.Logger
	file *os.File
}

// New opens (or creates) the project log file described by cfg. When file
// logging is disabled, lines go to stderr instead.
func New(cfg *config.Config) (*Logger, error) {
	level, err := ParseLevel(cfg.Project.Log.Level)
	if err != nil {
		return nil, err
	}
	if !cfg.LogToFile() {
		return NewWriter(os.Stderr, level), nil
	}
	if err := os.MkdirAll(cfg.LogsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Clean(cfg.LogFilePath()), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	l := NewWriter(f, level)
	l.file = f
	return l, nil
}

// NewWriter logs to w. Colour is used only when w is a terminal.
func NewWriter(w io.Writer, level slog.Level) *Logger {
	handler := tint.NewHandler(w, &tint.Options{
		NoColor:    !isTerminal(w),
		TimeFormat: time.RFC3339,
		Level:      level,
	})
	return &Logger{Logger: slog.New(handler)}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWriter(io.Discard, slog.LevelError+1)
}

// ParseLevel maps debug|info|warn|error to a slog level.
func ParseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("logging: unknown level %q", raw)
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Printf writes a single info line.
func (l *Logger) Printf(format string, args ...any) {
	l.Printer(slog.LevelInfo).Printf(format, args...)
}

// Printer adapts the logger to a Printf sink at a fixed level.
func (l *Logger) Printer(level slog.Level) Printer {
	return Printer{logger: l, level: level}
}

// Printer is a printf-style view of a Logger.
type Printer struct {
	logger *Logger
	level  slog.Level
}

// Printf formats and logs one line, dropping a trailing newline.
func (p Printer) Printf(format string, args ...any) {
	if p.logger == nil || p.logger.Logger == nil {
		return
	}
	if !p.logger.Enabled(context.Background(), p.level) {
		return
	}
	line := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	p.logger.Log(context.Background(), p.level, line)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
