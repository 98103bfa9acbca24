package textview

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/require"

	"weekcal/internal/engine"
	"weekcal/internal/model"
	"weekcal/internal/window"
)

func at(d, h int) time.Time {
	return time.Date(2025, 1, d, h, 0, 0, 0, time.UTC)
}

func snapshot(t *testing.T) engine.Snapshot {
	t.Helper()
	snap, err := engine.Build(engine.Input{
		Items: []model.Appointment{
			{ID: "a", Summary: "Planning", Begin: at(7, 9), End: at(7, 11)},
			{ID: "b", Summary: "Interview", Begin: at(7, 10), End: at(7, 12)},
			{ID: "c", Summary: "Retro", Begin: at(9, 16), End: at(9, 17)},
		},
		Window: window.Window{Mode: window.WorkWeek, Anchor: at(8, 0), FirstDayOfWeek: time.Monday},
	}, engine.Options{AssignLanes: true})
	require.NoError(t, err)
	return snap
}

func TestRender(t *testing.T) {
	out := Render(snapshot(t), Options{Width: 206, Lines: 20, Begin: 8 * time.Hour, End: 18 * time.Hour})
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 21)

	require.Contains(t, lines[0], "Mon 06 Jan")
	require.Contains(t, lines[0], "Fri 10 Jan")
	require.Contains(t, out, "08:00")
	require.Contains(t, out, "09:00 Plan")
	require.Contains(t, out, "10:00 Inte")
	require.Contains(t, out, "16:00 Retro")
	require.Contains(t, out, "┃")

	for _, l := range lines {
		require.Equal(t, 206, lipgloss.Width(l))
	}

	// Planning and Interview overlap, so they share lines side by side.
	var shared bool
	for _, l := range lines {
		if strings.Contains(l, "┃") && strings.Contains(l, "Inte") {
			shared = true
		}
	}
	require.True(t, shared)
}

func TestRenderEmpty(t *testing.T) {
	require.Equal(t, "no visible days\n", Render(engine.Snapshot{}, Options{}))
}

func TestFit(t *testing.T) {
	require.Equal(t, "ab  ", fit("ab", 4))
	require.Equal(t, "abc…", fit("abcdef", 4))
	require.Equal(t, "", fit("x", 0))
}
