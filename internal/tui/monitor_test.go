package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func testRows() []Row {
	return []Row{
		{Family: "expert", Name: "Living Room", IP: "192.168.1.10", Power: "on", Source: "optical 1", Volume: "-22.5dB"},
		{Family: "minidsp", Name: "Flex HTx", IP: "192.168.1.50", Power: "-", Source: "Toslink", Volume: "-30.0dB", Muted: true},
	}
}

func TestMonitorViewListsDevices(t *testing.T) {
	events := make(chan struct{})
	m := NewMonitorModel(testRows, events)

	view := m.View()
	for _, want := range []string{"Living Room", "Flex HTx", "192.168.1.10", "muted", "2 device(s)"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestMonitorViewEmptyShowsSpinner(t *testing.T) {
	events := make(chan struct{})
	m := NewMonitorModel(func() []Row { return nil }, events)

	view := m.View()
	if !strings.Contains(view, "Listening for amplifier announcements") {
		t.Errorf("empty view missing waiting message:\n%s", view)
	}
}

func TestMonitorRefreshRereadsSnapshot(t *testing.T) {
	rows := []Row{}
	events := make(chan struct{}, 1)
	m := NewMonitorModel(func() []Row { return rows }, events)

	if len(m.rows) != 0 {
		t.Fatalf("initial rows = %d, want 0", len(m.rows))
	}

	rows = testRows()
	events <- struct{}{}
	updated, cmd := m.Update(refreshMsg{})
	m = updated.(MonitorModel)

	if len(m.rows) != 2 {
		t.Errorf("rows after refresh = %d, want 2", len(m.rows))
	}
	// The refresh handler must re-arm the event wait.
	if cmd == nil {
		t.Error("refresh returned no follow-up command")
	}
}

func TestMonitorCursorNavigation(t *testing.T) {
	events := make(chan struct{})
	m := NewMonitorModel(testRows, events)

	down := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}}
	up := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}}

	updated, _ := m.Update(down)
	m = updated.(MonitorModel)
	if m.cursor != 1 {
		t.Errorf("cursor after down = %d, want 1", m.cursor)
	}

	// Already at the last row; stays put.
	updated, _ = m.Update(down)
	m = updated.(MonitorModel)
	if m.cursor != 1 {
		t.Errorf("cursor after down at bottom = %d, want 1", m.cursor)
	}

	updated, _ = m.Update(up)
	m = updated.(MonitorModel)
	if m.cursor != 0 {
		t.Errorf("cursor after up = %d, want 0", m.cursor)
	}
}

func TestMonitorCursorClampedOnShrink(t *testing.T) {
	rows := testRows()
	events := make(chan struct{}, 1)
	m := NewMonitorModel(func() []Row { return rows }, events)
	m.cursor = 1

	rows = rows[:1]
	events <- struct{}{}
	updated, _ := m.Update(refreshMsg{})
	m = updated.(MonitorModel)

	if m.cursor != 0 {
		t.Errorf("cursor after shrink = %d, want 0", m.cursor)
	}
}

func TestMonitorQuitKey(t *testing.T) {
	events := make(chan struct{})
	m := NewMonitorModel(testRows, events)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("quit key produced no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("quit key did not produce a QuitMsg")
	}
}

func TestRenderTablePlain(t *testing.T) {
	out := RenderTable(testRows())
	for _, want := range []string{"FAMILY", "expert", "minidsp", "Flex HTx"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}

	if got := RenderTable(nil); !strings.Contains(got, "no devices") {
		t.Errorf("empty table = %q, want no-devices message", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 20); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	if got := truncate("a very long device name", 10); len([]rune(got)) != 10 {
		t.Errorf("truncate length = %d, want 10 (%q)", len([]rune(got)), got)
	}
}
