// Amplink discovers and controls network amplifiers on the local LAN.
//
// It speaks two protocols: the fixed-length binary status/command frames
// used by Devialet Expert amplifiers, and the JSON announcement plus
// HTTP/websocket interface exposed by the minidsp-rs daemon for miniDSP
// processors.
//
// Usage:
//
//	amplink [command] [flags]
//
// Running without arguments launches the live monitor.
// See 'amplink --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amplink/amplink/internal/logging"
	"github.com/amplink/amplink/internal/version"
)

func main() {
	logging.InitializeFromEnv()
	defer logging.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "amplink",
	Short: "Network amplifier discovery and control",
	Long: `Amplink discovers and controls network amplifiers on the local LAN.

Supported families:
  expert   Devialet Expert amplifiers (UDP status broadcasts + binary commands)
  minidsp  miniDSP processors via the minidsp-rs daemon (UDP announcements +
           HTTP/websocket)

If no command is specified, the live monitor will launch automatically.`,
	Version: version.Version,
	RunE:    runMonitor,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("amplink %s\n", version.Full())
	},
}
