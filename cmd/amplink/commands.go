package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/amplink/amplink/internal/config"
	"github.com/amplink/amplink/internal/expert"
	"github.com/amplink/amplink/internal/minidsp"
	"github.com/amplink/amplink/internal/tui"
)

// Command flags
var (
	familyFilter string
	waitTimeout  int
	scanTimeout  int
	plainOutput  bool
	mdnsLocate   bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&familyFilter, "family", "", "Restrict to one amplifier family (expert, minidsp)")

	monitorCmd.Flags().BoolVar(&plainOutput, "plain", false, "Stream events as plain text instead of the TUI")
	// Scan keeps its own timeout variable; the control verbs below share
	// one, and a shared variable would clobber scan's zero default with
	// theirs, hiding the configured locate timeout.
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 0, "Listen duration in seconds (default from config)")
	scanCmd.Flags().BoolVar(&mdnsLocate, "mdns", false, "Also browse mDNS for minidsp-rs daemons")

	for _, cmd := range []*cobra.Command{powerCmd, muteCmd, volumeCmd, sourceCmd, presetCmd} {
		cmd.Flags().IntVar(&waitTimeout, "timeout", 10, "Seconds to wait for the device to announce itself")
	}

	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(powerCmd)
	rootCmd.AddCommand(muteCmd)
	rootCmd.AddCommand(volumeCmd)
	rootCmd.AddCommand(sourceCmd)
	rootCmd.AddCommand(presetCmd)
}

// controllers bundles the per-family controllers behind one event stream.
type controllers struct {
	expert  *expert.Controller
	minidsp *minidsp.Controller

	registry *config.Registry
	events   chan struct{}
}

// startControllers binds the discovery ports for the families enabled by
// configuration and the --family flag.
func startControllers() (*controllers, error) {
	registry, err := config.LoadRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	prefs := registry.Preferences

	c := &controllers{
		registry: registry,
		events:   make(chan struct{}, 16),
	}

	wantExpert := prefs.Expert.Enabled && (familyFilter == "" || familyFilter == "expert")
	wantMiniDSP := prefs.MiniDSP.Enabled && (familyFilter == "" || familyFilter == "minidsp")
	if !wantExpert && !wantMiniDSP {
		return nil, fmt.Errorf("no amplifier family enabled (check --family and the config file)")
	}

	if wantExpert {
		c.expert = expert.NewController()
		c.expert.SetTransmits(prefs.Expert.Transmits)
		c.expert.OnNewDevice(func(d *expert.Device) {
			registry.UpdateDeviceLastSeen(d.Name(), "expert", d.IPAddress())
			c.ping()
		})
		c.expert.OnDeviceUpdated(func(d *expert.Device, changed bool) { c.ping() })
		if err := c.expert.Start(); err != nil {
			return nil, fmt.Errorf("failed to start expert discovery: %w", err)
		}
	}

	if wantMiniDSP {
		c.minidsp = minidsp.NewController()
		c.minidsp.SetPort(prefs.MiniDSP.Port)
		c.minidsp.OnNewDevice(func(d *minidsp.Device) {
			registry.UpdateDeviceLastSeen(d.Name(), "minidsp", d.IPAddress())
			c.ping()
		})
		c.minidsp.OnDeviceUpdated(func(d *minidsp.Device, changed bool) { c.ping() })
		if err := c.minidsp.Start(); err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to start minidsp discovery: %w", err)
		}
	}

	return c, nil
}

// ping nudges the event stream without blocking the dispatching listener.
func (c *controllers) ping() {
	select {
	case c.events <- struct{}{}:
	default:
	}
}

func (c *controllers) Close() {
	if c.expert != nil {
		c.expert.Close()
	}
	if c.minidsp != nil {
		c.minidsp.Close()
	}
}

// snapshot builds the monitor table from both registries, sorted by name.
func (c *controllers) snapshot() []tui.Row {
	var rows []tui.Row

	if c.expert != nil {
		for _, d := range c.expert.Devices() {
			power := "off"
			if d.Power() {
				power = "on"
			}
			rows = append(rows, tui.Row{
				Family: "expert",
				Name:   c.registry.DisplayName(d.Name()),
				IP:     d.IPAddress(),
				Power:  power,
				Source: d.CurrentSourceName(),
				Volume: fmt.Sprintf("%.1fdB", d.VolumeDB()),
				Muted:  d.Muted(),
			})
		}
	}

	if c.minidsp != nil {
		for _, d := range c.minidsp.Devices() {
			rows = append(rows, tui.Row{
				Family: "minidsp",
				Name:   c.registry.DisplayName(d.Name()),
				IP:     d.IPAddress(),
				Power:  "-",
				Source: d.Source(),
				Volume: fmt.Sprintf("%.1fdB", d.VolumeDB()),
				Muted:  d.Muted(),
			})
		}
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows
}

// monitorCmd runs the live dashboard
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch amplifiers live",
	Long: `Listen for amplifier announcements and show their state live.

Status broadcasts and websocket deltas update the display as they arrive.
Use --plain for line-oriented output suitable for logs and pipes.`,
	Example: `  # Launch the interactive monitor (also the default command)
  amplink monitor
  amplink

  # Only the Devialet family, plain output
  amplink monitor --family expert --plain`,
	RunE: runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctrls, err := startControllers()
	if err != nil {
		return err
	}
	defer ctrls.Close()
	defer ctrls.registry.Save()

	if !cmd.Flags().Changed("plain") {
		plainOutput = ctrls.registry.Preferences.Monitor.Plain
	}
	if plainOutput {
		return runPlainMonitor(ctrls)
	}

	model := tui.NewMonitorModel(ctrls.snapshot, ctrls.events)
	p := tea.NewProgram(model)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("monitor error: %w", err)
	}
	return nil
}

// runPlainMonitor streams state lines until interrupted.
func runPlainMonitor(ctrls *controllers) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("Listening for amplifiers (ctrl-c to stop)...")
	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			fmt.Print(tui.RenderTable(ctrls.snapshot()))
			return nil
		case <-ctrls.events:
			for _, row := range ctrls.snapshot() {
				fmt.Printf("%s  %-8s %-20s %s power=%s source=%q volume=%s muted=%v\n",
					time.Now().Format("15:04:05"), row.Family, row.Name, row.IP,
					row.Power, row.Source, row.Volume, row.Muted)
			}
		}
	}
}

// scanCmd listens for a bounded period and prints what it heard
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for amplifiers on the network",
	Long: `Listen for amplifier announcements for a bounded period and print
every device heard.

Devialet Expert amplifiers broadcast status frames continuously; miniDSP
daemons broadcast announcement packets. With --mdns the scan additionally
browses mDNS for minidsp-rs daemon endpoints, which helps on networks
that filter UDP broadcast.`,
	Example: `  # Listen with the configured timeout
  amplink scan

  # Quick 3-second scan, minidsp family only
  amplink scan --timeout 3 --family minidsp

  # Include an mDNS browse
  amplink scan --mdns`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	ctrls, err := startControllers()
	if err != nil {
		return err
	}
	defer ctrls.Close()

	timeout := scanTimeout
	if timeout <= 0 {
		timeout = ctrls.registry.Preferences.LocateTimeout
	}

	fmt.Printf("Scanning for amplifiers (timeout: %ds)...\n\n", timeout)
	time.Sleep(time.Duration(timeout) * time.Second)

	rows := ctrls.snapshot()
	if len(rows) == 0 {
		fmt.Println("No devices found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the amplifier is powered and on the same subnet")
		fmt.Println("  - Check that UDP broadcast is not filtered by your switch/AP")
		fmt.Println("  - Try increasing --timeout for slower networks")
		if !mdnsLocate {
			fmt.Println("  - Try --mdns to browse for minidsp-rs daemons instead")
		}
	} else {
		fmt.Print(tui.RenderTable(rows))
	}

	if mdnsLocate {
		if err := runMDNSLocate(cmd.Context(), timeout); err != nil {
			return err
		}
	}

	if err := ctrls.registry.Save(); err != nil {
		return fmt.Errorf("failed to record discovered devices: %w", err)
	}
	return nil
}

func runMDNSLocate(ctx context.Context, timeoutSeconds int) error {
	fmt.Println("\nBrowsing mDNS for minidsp-rs daemons...")

	endpoints, err := minidsp.LocateDaemons(ctx, time.Duration(timeoutSeconds)*time.Second)
	if err != nil {
		return fmt.Errorf("mDNS browse failed: %w", err)
	}
	if len(endpoints) == 0 {
		fmt.Println("No daemons advertised via mDNS.")
		return nil
	}
	for _, ep := range endpoints {
		fmt.Printf("  %s (%s) at %s:%d\n", ep.Instance, ep.Host, ep.IP, ep.Port)
	}
	return nil
}

// devicesCmd prints devices remembered in the config file
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List devices seen in previous runs",
	Long: `List the devices recorded in the configuration file, with their
nicknames and the time they were last heard from. This does not touch
the network; use 'amplink scan' for a live view.`,
	RunE: runDevices,
}

func runDevices(cmd *cobra.Command, args []string) error {
	registry, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	devices := registry.DeviceSnapshot()
	if len(devices) == 0 {
		fmt.Println("No devices recorded yet. Run 'amplink scan' first.")
		return nil
	}

	names := make([]string, 0, len(devices))
	for name := range devices {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		device := devices[name]
		if familyFilter != "" && device.Family != familyFilter {
			continue
		}
		fmt.Printf("%s\n", registry.DisplayName(name))
		if device.Nickname != "" {
			fmt.Printf("   Announced: %s\n", name)
		}
		fmt.Printf("   Family:    %s\n", device.Family)
		fmt.Printf("   Last IP:   %s\n", device.LastIP)
		if !device.LastSeen.IsZero() {
			fmt.Printf("   Last seen: %s\n", device.LastSeen.Format(time.RFC1123))
		}
		fmt.Println()
	}
	return nil
}

// target is a control handle for a device of either family.
type target struct {
	expert  *expert.Device
	minidsp *minidsp.Device
}

// waitForDevice listens until the named device announces itself or the
// wait times out. Lookup accepts both announced names and nicknames.
func waitForDevice(ctrls *controllers, name string) (target, error) {
	deadline := time.After(time.Duration(waitTimeout) * time.Second)

	lookup := func() (target, bool) {
		announced := ctrls.registry.AnnouncedName(name)
		if ctrls.expert != nil {
			if d, ok := ctrls.expert.Get(announced); ok {
				return target{expert: d}, true
			}
		}
		if ctrls.minidsp != nil {
			if d, ok := ctrls.minidsp.Get(announced); ok {
				return target{minidsp: d}, true
			}
		}
		return target{}, false
	}

	if t, ok := lookup(); ok {
		return t, nil
	}
	fmt.Printf("Waiting up to %ds for %q to announce itself...\n", waitTimeout, name)

	for {
		select {
		case <-deadline:
			return target{}, fmt.Errorf("device %q not heard from within %ds", name, waitTimeout)
		case <-ctrls.events:
			if t, ok := lookup(); ok {
				return t, nil
			}
		}
	}
}

// withDevice runs fn against the named device, managing controller
// lifetime and the wait.
func withDevice(name string, fn func(ctx context.Context, t target, prefs *config.Preferences) error) error {
	ctrls, err := startControllers()
	if err != nil {
		return err
	}
	defer ctrls.Close()

	t, err := waitForDevice(ctrls, name)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return fn(ctx, t, ctrls.registry.Preferences)
}

// powerCmd switches an amplifier on or off
var powerCmd = &cobra.Command{
	Use:   "power <on|off> <device>",
	Short: "Switch an amplifier on or off",
	Example: `  amplink power on "Living Room"
  amplink power off "Living Room" --timeout 30`,
	Args: cobra.ExactArgs(2),
	RunE: runPower,
}

func runPower(cmd *cobra.Command, args []string) error {
	on, err := parseOnOff(args[0])
	if err != nil {
		return err
	}

	return withDevice(args[1], func(ctx context.Context, t target, prefs *config.Preferences) error {
		if t.expert == nil {
			return fmt.Errorf("device %q does not support power control", args[1])
		}
		if err := t.expert.SetPower(ctx, on); err != nil {
			return fmt.Errorf("power command failed: %w", err)
		}
		fmt.Printf("✓ %s powered %s\n", args[1], args[0])
		return nil
	})
}

// muteCmd mutes or unmutes an amplifier
var muteCmd = &cobra.Command{
	Use:   "mute <on|off> <device>",
	Short: "Mute or unmute an amplifier",
	Example: `  amplink mute on "Living Room"
  amplink mute off "Flex HTx"`,
	Args: cobra.ExactArgs(2),
	RunE: runMute,
}

func runMute(cmd *cobra.Command, args []string) error {
	on, err := parseOnOff(args[0])
	if err != nil {
		return err
	}

	return withDevice(args[1], func(ctx context.Context, t target, prefs *config.Preferences) error {
		if t.expert != nil {
			err = t.expert.SetMute(ctx, on)
		} else {
			err = t.minidsp.SetMute(ctx, on)
		}
		if err != nil {
			return fmt.Errorf("mute command failed: %w", err)
		}
		fmt.Printf("✓ %s mute %s\n", args[1], args[0])
		return nil
	})
}

// volumeCmd sets the volume in dB, or steps it up/down
var volumeCmd = &cobra.Command{
	Use:   "volume <dB|up|down> <device>",
	Short: "Set amplifier volume",
	Long: `Set amplifier volume in dB, or step it with 'up'/'down'.

Devialet Expert amplifiers accept -97.5..30 dB and are capped by a
safety ceiling; miniDSP devices accept -127.5..0 dB. Requests outside
the range are clamped.`,
	Example: `  amplink volume -30 "Living Room"
  amplink volume up "Flex HTx"`,
	Args: cobra.ExactArgs(2),
	RunE: runVolume,
}

func runVolume(cmd *cobra.Command, args []string) error {
	return withDevice(args[1], func(ctx context.Context, t target, prefs *config.Preferences) error {
		var err error
		switch args[0] {
		case "up":
			if t.expert != nil {
				err = t.expert.VolumeUp(ctx)
			} else {
				err = t.minidsp.VolumeUp(ctx)
			}
		case "down":
			if t.expert != nil {
				err = t.expert.VolumeDown(ctx)
			} else {
				err = t.minidsp.VolumeDown(ctx)
			}
		default:
			db, perr := strconv.ParseFloat(args[0], 64)
			if perr != nil {
				return fmt.Errorf("invalid volume %q (want a dB value, 'up' or 'down')", args[0])
			}
			if t.expert != nil {
				// Configured safety ceiling on top of the built-in one.
				if max := prefs.Expert.MaxVolume; max > 0 && db > expert.IntToDB(max) {
					db = expert.IntToDB(max)
				}
				err = t.expert.SetVolumeDB(ctx, db)
			} else {
				err = t.minidsp.SetVolumeDB(ctx, db)
			}
		}
		if err != nil {
			return fmt.Errorf("volume command failed: %w", err)
		}
		fmt.Printf("✓ %s volume %s\n", args[1], args[0])
		return nil
	})
}

// sourceCmd selects an input source
var sourceCmd = &cobra.Command{
	Use:   "source <name> <device>",
	Short: "Select an input source",
	Example: `  amplink source "optical 1" "Living Room"
  amplink source Toslink "Flex HTx"`,
	Args: cobra.ExactArgs(2),
	RunE: runSource,
}

func runSource(cmd *cobra.Command, args []string) error {
	return withDevice(args[1], func(ctx context.Context, t target, prefs *config.Preferences) error {
		var err error
		if t.expert != nil {
			err = t.expert.SelectSource(ctx, args[0])
		} else {
			err = t.minidsp.SelectSource(ctx, args[0])
		}
		if err != nil {
			return fmt.Errorf("source command failed: %w", err)
		}
		fmt.Printf("✓ %s source set to %q\n", args[1], args[0])
		return nil
	})
}

// presetCmd recalls a DSP preset
var presetCmd = &cobra.Command{
	Use:     "preset <0-4> <device>",
	Short:   "Recall a DSP preset (miniDSP only)",
	Example: `  amplink preset 2 "Flex HTx"`,
	Args:    cobra.ExactArgs(2),
	RunE:    runPreset,
}

func runPreset(cmd *cobra.Command, args []string) error {
	preset, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid preset %q: %w", args[0], err)
	}

	return withDevice(args[1], func(ctx context.Context, t target, prefs *config.Preferences) error {
		if t.minidsp == nil {
			return fmt.Errorf("device %q does not support presets", args[1])
		}
		if err := t.minidsp.SelectPreset(ctx, preset); err != nil {
			return fmt.Errorf("preset command failed: %w", err)
		}
		fmt.Printf("✓ %s preset %d recalled\n", args[1], preset)
		return nil
	})
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid state %q (want on or off)", s)
	}
}
