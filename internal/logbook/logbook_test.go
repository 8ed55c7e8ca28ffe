package logbook

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTailReturnsRecentLinesAndTotal(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), "logs", "activity.log"))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		book.Info("entry-%d", i)
	}
	lines, total := book.Tail(3)
	require.Equal(t, 5, total)
	require.Len(t, lines, 3)
	for idx, want := range []string{"entry-2", "entry-3", "entry-4"} {
		require.Contains(t, lines[idx], want)
	}
}

func TestAppendFoldsMessageAndStampsLevel(t *testing.T) {
	at := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)
	book, err := New(filepath.Join(t.TempDir(), "activity.log"), WithClock(func() time.Time { return at }))
	require.NoError(t, err)
	book.Warn("connection lost:\n  %s", "EOF")
	book.Error("answer failed")

	lines, total := book.Tail(10)
	require.Equal(t, 2, total)
	require.Equal(t, "2026-05-04T03:02:01Z WARN  connection lost: EOF", lines[0])
	require.Equal(t, "2026-05-04T03:02:01Z ERROR answer failed", lines[1])
}

func TestTailOnMissingFile(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), "activity.log"))
	require.NoError(t, err)
	lines, total := book.Tail(5)
	require.Nil(t, lines)
	require.Zero(t, total)

	var nilBook *Logbook
	nilBook.Printf("ignored")
	lines, _ = nilBook.Tail(1)
	require.Nil(t, lines)
}
