package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Row is one device line in the monitor table. The monitor renders
// whatever snapshot it is handed; it never talks to the network itself.
type Row struct {
	Family string // "expert" or "minidsp"
	Name   string
	IP     string
	Power  string // "on", "off", or "-" for families without a power state
	Source string
	Volume string
	Muted  bool
}

// refreshMsg signals that the device snapshot should be re-read.
type refreshMsg struct{}

// monitorKeyMap defines key bindings for the monitor screen
type monitorKeyMap struct {
	Up   key.Binding
	Down key.Binding
	Help key.Binding
	Quit key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k monitorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k monitorKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Help, k.Quit},
	}
}

// MonitorModel is the live device monitor. It re-reads the snapshot
// function whenever the event channel fires, so discovery and state
// deltas show up as they arrive.
type MonitorModel struct {
	snapshot func() []Row
	events   <-chan struct{}

	rows   []Row
	cursor int

	width   int
	spinner spinner.Model
	help    help.Model
	keys    monitorKeyMap
}

// NewMonitorModel creates a monitor over the given snapshot function.
// The events channel should fire (or close) whenever the snapshot may
// have changed.
func NewMonitorModel(snapshot func() []Row, events <-chan struct{}) MonitorModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	keys := monitorKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}

	return MonitorModel{
		snapshot: snapshot,
		events:   events,
		rows:     snapshot(),
		width:    GetTerminalWidth(),
		spinner:  s,
		help:     help.New(),
		keys:     keys,
	}
}

// Init implements tea.Model
func (m MonitorModel) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), m.spinner.Tick)
}

// waitForEvent blocks on the event channel and triggers a refresh.
func (m MonitorModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-m.events; !ok {
			return tea.Quit()
		}
		return refreshMsg{}
	}
}

// Update implements tea.Model
func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.rows)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = clampWidth(msg.Width)
		m.help.Width = m.width
		return m, nil

	case refreshMsg:
		m.rows = m.snapshot()
		if m.cursor >= len(m.rows) && len(m.rows) > 0 {
			m.cursor = len(m.rows) - 1
		}
		return m, m.waitForEvent()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model
func (m MonitorModel) View() string {
	var b strings.Builder

	title := TitleStyle.Render("AMPLIFIER MONITOR")
	count := SubtitleStyle.Render(fmt.Sprintf("%d device(s)", len(m.rows)))
	b.WriteString(lipgloss.JoinVertical(lipgloss.Left, title, count))
	b.WriteString("\n")
	b.WriteString("  " + RenderDivider(m.width-4))
	b.WriteString("\n")

	if len(m.rows) == 0 {
		b.WriteString("\n  ")
		b.WriteString(m.spinner.View())
		b.WriteString(" Listening for amplifier announcements...\n\n")
	} else {
		b.WriteString(renderRows(m.rows, m.cursor))
	}

	b.WriteString("\n")
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

// RenderTable renders the device table without any interactive chrome.
// Used for plain (non-TTY) output.
func RenderTable(rows []Row) string {
	if len(rows) == 0 {
		return "no devices discovered\n"
	}
	return renderRows(rows, -1)
}

func renderRows(rows []Row, selected int) string {
	var b strings.Builder

	header := fmt.Sprintf("  %-8s %-20s %-15s %-5s %-12s %-8s",
		"FAMILY", "NAME", "IP", "POWER", "SOURCE", "VOLUME")
	b.WriteString(ColumnHeaderStyle.Render(header))
	b.WriteString("\n")

	for i, row := range rows {
		volume := row.Volume
		if row.Muted {
			volume = MutedBadgeStyle.Render(volume + " [muted]")
		}
		power := row.Power
		if power == "on" {
			power = PowerOnStyle.Render(power)
		}

		line := fmt.Sprintf("%-8s %-20s %-15s %-5s %-12s %-8s",
			row.Family, truncate(row.Name, 20), row.IP, power, truncate(row.Source, 12), volume)
		if i == selected {
			b.WriteString(SelectedRowStyle.Render("→ " + line))
		} else {
			b.WriteString(RowStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 1 {
		return s[:max]
	}
	return s[:max-1] + "…"
}
