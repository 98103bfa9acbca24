package log

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(LevelInfo)
	})

	SetLevel(LevelInfo)
	Debug("hidden", "k", 1)
	Info("shown", "days", 7)
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "msg=shown")
	require.Contains(t, buf.String(), "days=7")

	buf.Reset()
	SetLevel(LevelDebug)
	Debug("now visible")
	require.Contains(t, buf.String(), "now visible")

	buf.Reset()
	SetLevel(LevelError)
	Warn("dropped")
	Error("layout failed", errors.New("boom"), "day", "2025-01-06")
	require.NotContains(t, buf.String(), "dropped")
	require.Contains(t, buf.String(), "err=boom")
	require.Contains(t, buf.String(), "day=2025-01-06")
}

func TestOddKVsAreTolerated(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })

	Info("odd", "a", 1, 42, "skipped", "trailing")
	require.Contains(t, buf.String(), "a=1")
	require.NotContains(t, buf.String(), "skipped")
	require.NotContains(t, buf.String(), "trailing")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, LevelDebug, ParseLevel("debug"))
	require.Equal(t, LevelWarn, ParseLevel(" warning "))
	require.Equal(t, LevelError, ParseLevel("ERROR"))
	require.Equal(t, LevelInfo, ParseLevel("verbose"))
}
