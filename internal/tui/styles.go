package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette for the monitor UI
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - headers, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - powered on, unmuted
	WarningColor = lipgloss.Color("#FFA500") // Orange - muted
	MutedColor   = lipgloss.Color("#626262") // Gray - secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

// Layout constants
const (
	MinTerminalWidth = 60  // Minimum supported terminal width
	MaxContentWidth  = 100 // Maximum content width before capping
)

var (
	// TitleStyle is for the monitor header line
	TitleStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Bold(true).
			PaddingLeft(2)

	// SubtitleStyle is for secondary header text
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			PaddingLeft(2)

	// ColumnHeaderStyle is for the device table column row
	ColumnHeaderStyle = lipgloss.NewStyle().
				Foreground(MutedColor).
				Bold(true)

	// RowStyle is for unselected device rows
	RowStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	// SelectedRowStyle is for the highlighted device row
	SelectedRowStyle = lipgloss.NewStyle().
				Foreground(PrimaryColor).
				Bold(true)

	// PowerOnStyle marks powered-on devices
	PowerOnStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	// MutedBadgeStyle marks muted devices
	MutedBadgeStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// SpinnerStyle is for the waiting-for-devices spinner
	SpinnerStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	// HelpStyle wraps the bubbles/help footer
	HelpStyle = lipgloss.NewStyle().
			PaddingLeft(2)
)

// GetTerminalWidth returns the current terminal width, with fallback.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// clampWidth bounds a reported window width to the supported range.
func clampWidth(width int) int {
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// RenderDivider creates a horizontal line of the given width.
func RenderDivider(width int) string {
	return lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Render(strings.Repeat("─", width))
}
