package logging

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kingrea/lattice-monitor/internal/config"
)

func TestParseLevel(t *testing.T) {
	for raw, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(raw)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseLevel("loud")
	require.Error(t, err)
}

func TestPrinterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, slog.LevelInfo)
	l.Printer(slog.LevelDebug).Printf("hidden %d", 1)
	l.Printf("shown %s\n", "line")
	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "shown line")
	require.Equal(t, 1, strings.Count(out, "\n"))
	require.NotContains(t, out, "\x1b[")
}

func TestNewWritesProjectLogFile(t *testing.T) {
	projectDir := t.TempDir()
	cfg, err := config.NewConfig(projectDir)
	require.NoError(t, err)
	l, err := New(cfg)
	require.NoError(t, err)
	l.Warn("feed closed", "reconnect_in", "3s")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(cfg.LogFilePath())
	require.NoError(t, err)
	require.Contains(t, string(data), "feed closed")
	require.Contains(t, string(data), "reconnect_in=3s")
}

func TestNilPrinterIsSafe(t *testing.T) {
	var l *Logger
	require.NoError(t, l.Close())
	Printer{}.Printf("nothing")
	Discard().Printf("dropped")
}
