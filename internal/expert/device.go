package expert

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/amplink/amplink/internal/controller"
)

const (
	// StatusPort is the UDP broadcast port for status frames.
	StatusPort = 45454

	// CommandPort is the unicast UDP port for command frames.
	CommandPort = 45455

	// MaxVolumeDB is the maximum volume accepted by SetVolumeDB. The
	// amplifier goes well past this, but -10 dB is the ceiling considered
	// safe for attached speakers.
	MaxVolumeDB = -10.0

	// MaxVolumeInt is MaxVolumeDB on the device's linear 0..255 scale.
	MaxVolumeInt = 175

	// TransmitsPerCommand is how many times each logical command is sent.
	// UDP is unacknowledged; sending twice covers the occasional loss.
	TransmitsPerCommand = 2

	// counterLimit is the largest sequence counter value; past it the
	// counter restarts at zero.
	counterLimit = 0xFFFF
)

// Source is one entry of an amplifier's 15-slot input table. IsSelected is
// derived from the frame's selected-source index on every parse and is
// never mutated independently.
type Source struct {
	Name       string
	Index      int
	IsEnabled  bool
	IsSelected bool
}

// Device holds the last-known state of one expert amplifier plus the
// sequence counters for its command stream. Instances are created by
// ParseStatus and owned by the registry; all fields are guarded by mu so
// status merges and concurrent command encoding cannot race.
type Device struct {
	mu sync.Mutex

	name        string
	ipAddress   string
	sourceIndex int
	sources     []Source
	power       bool
	muted       bool
	volume      uint8

	// numPackets advances once per physical transmission, numCommands once
	// per logical command. Both wrap to 0 past 0xFFFF.
	numPackets  uint32
	numCommands uint32

	transmits int
	dial      dialFunc
}

func newDevice() *Device {
	return &Device{
		transmits: TransmitsPerCommand,
		dial:      dialCommandPort,
	}
}

// Name returns the device name, the registry key.
func (d *Device) Name() string { return d.name }

// IPAddress returns the sender address of the latest status frame.
func (d *Device) IPAddress() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ipAddress
}

// Power reports whether the amplifier is powered on.
func (d *Device) Power() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.power
}

// Muted reports whether the amplifier is muted.
func (d *Device) Muted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.muted
}

// Volume returns the volume on the device-native 0..255 scale.
func (d *Device) Volume() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int(d.volume)
}

// VolumeFloat returns the volume as a 0..1 fraction.
func (d *Device) VolumeFloat() float64 {
	return float64(d.Volume()) / 255
}

// VolumeDB returns the volume in dB. The 0..255 scale maps linearly onto
// -97.5..30 dB in 0.5 dB steps, with 195 = 0 dB.
func (d *Device) VolumeDB() float64 {
	return IntToDB(d.Volume())
}

// IntToDB converts the device-native 0..255 volume scale to dB.
func IntToDB(volume int) float64 {
	return (float64(volume) - 195) / 2.0
}

// SourceIndex returns the selected source slot.
func (d *Device) SourceIndex() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sourceIndex
}

// Sources returns a copy of the source table from the latest status frame.
func (d *Device) Sources() []Source {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Source(nil), d.sources...)
}

// EnabledSourceNames returns the names of the enabled sources, in slot order.
func (d *Device) EnabledSourceNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.sources))
	for _, s := range d.sources {
		if s.IsEnabled {
			names = append(names, s.Name)
		}
	}
	return names
}

// CurrentSourceName returns the name of the selected source, or "" if the
// selected index has no entry in the source table.
func (d *Device) CurrentSourceName() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sourceIndex < 0 || d.sourceIndex >= len(d.sources) {
		return ""
	}
	return d.sources[d.sourceIndex].Name
}

func (d *Device) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fmt.Sprintf("expert %q at %s power=%v muted=%v volume=%d (%.1fdB) source=%d",
		d.name, d.ipAddress, d.power, d.muted, d.volume, IntToDB(int(d.volume)), d.sourceIndex)
}

// Merge reconciles this device with a freshly parsed snapshot and reports
// whether any observable state changed.
//
// A snapshot with a different name leaves the device untouched; the name is
// the registry key, so a mismatch here means a routing bug upstream, not a
// real identity change. The source table is always replaced regardless of
// equality because its IsSelected flags are re-derived on every parse.
func (d *Device) Merge(update *Device) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if update.name != d.name {
		return false
	}

	changed := false
	if update.ipAddress != d.ipAddress {
		d.ipAddress = update.ipAddress
		changed = true
	}
	if update.sourceIndex != d.sourceIndex {
		d.sourceIndex = update.sourceIndex
		changed = true
	}
	if update.power != d.power {
		d.power = update.power
		changed = true
	}
	if update.muted != d.muted {
		d.muted = update.muted
		changed = true
	}
	if update.volume != d.volume {
		d.volume = update.volume
		changed = true
	}
	d.sources = update.sources
	return changed
}

// TurnOn powers the amplifier on.
func (d *Device) TurnOn(ctx context.Context) error {
	return d.SetPower(ctx, true)
}

// TurnOff powers the amplifier off (standby).
func (d *Device) TurnOff(ctx context.Context) error {
	return d.SetPower(ctx, false)
}

// TogglePower flips the power state relative to the latest status frame.
func (d *Device) TogglePower(ctx context.Context) error {
	return d.SetPower(ctx, !d.Power())
}

// SetPower sends a power command.
func (d *Device) SetPower(ctx context.Context, on bool) error {
	return d.sendCommand(ctx, boolFlag(on), opPower, 0, 0)
}

// SetMute sends a mute command.
func (d *Device) SetMute(ctx context.Context, mute bool) error {
	return d.sendCommand(ctx, boolFlag(mute), opMute, 0, 0)
}

// VolumeUp raises the volume by one step (0.5 dB).
func (d *Device) VolumeUp(ctx context.Context) error {
	return d.SetVolumeInt(ctx, d.Volume()+1)
}

// VolumeDown lowers the volume by one step (0.5 dB).
func (d *Device) VolumeDown(ctx context.Context) error {
	return d.SetVolumeInt(ctx, d.Volume()-1)
}

// SetVolumeFloat sets the volume from a 0..1 fraction of the device scale.
// Out-of-range inputs are clamped.
func (d *Device) SetVolumeFloat(ctx context.Context, volume float64) error {
	if volume > 1 {
		volume = 1
	} else if volume < 0 {
		volume = 0
	}
	return d.SetVolumeInt(ctx, int(volume*255+0.5))
}

// SetVolumeInt sets the volume on the device-native 0..255 scale, capped
// at MaxVolumeInt.
func (d *Device) SetVolumeInt(ctx context.Context, volume int) error {
	if volume > MaxVolumeInt {
		volume = MaxVolumeInt
	}
	return d.SetVolumeDB(ctx, IntToDB(volume))
}

// SetVolumeDB sets the volume in dB, capped at MaxVolumeDB. The command is
// skipped entirely when the encoded code equals the code of the currently
// recorded volume, avoiding redundant traffic for repeated requests.
func (d *Device) SetVolumeDB(ctx context.Context, db float64) error {
	if db > MaxVolumeDB {
		db = MaxVolumeDB
	}

	hi, lo := volumePayload(db)
	curHi, curLo := volumePayload(d.VolumeDB())
	if hi == curHi && lo == curLo {
		return nil
	}
	return d.sendCommand(ctx, 0, opVolume, hi, lo)
}

// SelectSource selects an input by name. The name must match one of the
// currently enabled sources from the latest status frame; anything else is
// rejected with controller.ErrInvalidArgument.
func (d *Device) SelectSource(ctx context.Context, name string) error {
	d.mu.Lock()
	index := -1
	for _, s := range d.sources {
		if s.IsEnabled && s.Name == name {
			index = s.Index
			break
		}
	}
	d.mu.Unlock()

	if index < 0 {
		return fmt.Errorf("%w: unknown source %q, options: %s",
			controller.ErrInvalidArgument, name, strings.Join(d.EnabledSourceNames(), ", "))
	}

	hi, lo := sourcePayload(index)
	return d.sendCommand(ctx, 0, opSource, hi, lo)
}

func boolFlag(b bool) byte {
	if b {
		return 1
	}
	return 0
}
