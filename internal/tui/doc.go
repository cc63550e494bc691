// Package tui implements the interactive amplifier monitor.
//
// The monitor is a Bubble Tea program that renders a live table of
// discovered devices. It is fed a snapshot function and an event
// channel by the caller; whenever the channel fires the snapshot is
// re-read, so discovery announcements and websocket state deltas show
// up as they happen. RenderTable provides the same table for plain,
// non-interactive output.
package tui
