package minidsp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/amplink/amplink/internal/controller"
	"github.com/amplink/amplink/internal/logging"
)

const (
	// DefaultPort is the minidsp-rs daemon's HTTP/websocket port.
	DefaultPort = 5380

	// MinVolumeDB and MaxVolumeDB bound the master volume.
	MinVolumeDB = -127.5
	MaxVolumeDB = 0

	// MaxPreset is the highest zero-indexed preset slot.
	MaxPreset = 4

	configRequestTimeout = 10 * time.Second
)

// SourceCatalog is the fixed input catalog for this family. The daemon's
// schema endpoint does not filter options by model, so the catalog is a
// package constant pending a real capability-discovery mechanism.
var SourceCatalog = []string{"Analog", "Toslink"}

// masterStatus mirrors the "master" object of the daemon's JSON protocol,
// used both for incoming status deltas and outgoing config mutations.
// Pointer fields distinguish "absent" from zero values.
type masterStatus struct {
	Source *string  `json:"source,omitempty"`
	Mute   *bool    `json:"mute,omitempty"`
	Volume *float64 `json:"volume,omitempty"`
	Preset *int     `json:"preset,omitempty"`
}

// Device holds the last-known state of one minidsp unit. Instances are
// built from the first discovery packet per name and start muted at
// minimum volume until the live channel delivers real state.
type Device struct {
	mu sync.Mutex

	name      string
	ipAddress string
	port      int

	source   string // "" until the first delta names one
	muted    bool
	volumeDB float64
	preset   int

	httpClient *http.Client
	configURL  string
	streamURL  string
}

// NewDevice builds a device from a discovery packet. A non-positive port
// selects DefaultPort.
func NewDevice(packet *DiscoveryPacket, port int) *Device {
	if port <= 0 {
		port = DefaultPort
	}
	d := &Device{
		name:       packet.Name,
		ipAddress:  packet.IPAddress.String(),
		port:       port,
		muted:      true,
		volumeDB:   MinVolumeDB,
		httpClient: &http.Client{Timeout: configRequestTimeout},
	}
	d.configURL = fmt.Sprintf("http://%s:%d/devices/0/config", d.ipAddress, d.port)
	d.streamURL = fmt.Sprintf("ws://%s:%d/devices/0?poll=true", d.ipAddress, d.port)
	return d
}

// Name returns the device name, the registry key.
func (d *Device) Name() string { return d.name }

// IPAddress returns the address from the discovery packet.
func (d *Device) IPAddress() string { return d.ipAddress }

// Port returns the daemon's HTTP port.
func (d *Device) Port() int { return d.port }

// Source returns the active input, or "" if no delta has named one yet.
func (d *Device) Source() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.source
}

// Muted reports whether the master output is muted.
func (d *Device) Muted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.muted
}

// VolumeDB returns the master volume in dB.
func (d *Device) VolumeDB() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.volumeDB
}

// VolumeFloat returns the volume as a 0..1 fraction of the dB range.
func (d *Device) VolumeFloat() float64 {
	return (d.VolumeDB() - MinVolumeDB) / (MaxVolumeDB - MinVolumeDB)
}

// Preset returns the active preset slot (zero-indexed).
func (d *Device) Preset() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.preset
}

// Sources returns the input catalog.
func (d *Device) Sources() []string {
	return append([]string(nil), SourceCatalog...)
}

func (d *Device) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	source := d.source
	if source == "" {
		source = "none"
	}
	return fmt.Sprintf("minidsp %q at %s:%d volume=%.1fdB muted=%v source=%s preset=%d",
		d.name, d.ipAddress, d.port, d.volumeDB, d.muted, source, d.preset)
}

// applyDelta applies one status message from the live channel field by
// field; fields absent from the delta leave state unchanged. Reports
// whether anything observable changed.
func (d *Device) applyDelta(data []byte) (bool, error) {
	var update struct {
		Master *masterStatus `json:"master"`
	}
	if err := json.Unmarshal(data, &update); err != nil {
		return false, fmt.Errorf("%w: status delta: %v", controller.ErrMalformedPacket, err)
	}
	if update.Master == nil {
		logging.Warn("status delta without master object", zap.String("device", d.name))
		return false, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	changed := false
	if s := update.Master.Source; s != nil && *s != d.source {
		d.source = *s
		changed = true
	}
	if m := update.Master.Mute; m != nil && *m != d.muted {
		d.muted = *m
		changed = true
	}
	if v := update.Master.Volume; v != nil && *v != d.volumeDB {
		d.volumeDB = *v
		changed = true
	}
	if p := update.Master.Preset; p != nil && *p != d.preset {
		d.preset = *p
		changed = true
	}
	return changed, nil
}

// SetMute sends a mute mutation. Local state follows via the live channel.
func (d *Device) SetMute(ctx context.Context, mute bool) error {
	return d.postConfig(ctx, masterStatus{Mute: &mute})
}

// VolumeUp raises the volume by one 0.5 dB step.
func (d *Device) VolumeUp(ctx context.Context) error {
	return d.SetVolumeDB(ctx, d.VolumeDB()+0.5)
}

// VolumeDown lowers the volume by one 0.5 dB step.
func (d *Device) VolumeDown(ctx context.Context) error {
	return d.SetVolumeDB(ctx, d.VolumeDB()-0.5)
}

// SetVolumeFloat sets the volume from a 0..1 fraction of the dB range,
// quantized to the device's 0.5 dB steps.
func (d *Device) SetVolumeFloat(ctx context.Context, volume float64) error {
	if volume > 1 {
		volume = 1
	} else if volume < 0 {
		volume = 0
	}
	db := math.Round(volume*(MaxVolumeDB-MinVolumeDB)*2)/2 + MinVolumeDB
	return d.SetVolumeDB(ctx, db)
}

// SetVolumeDB sets the master volume in dB, clamped to the legal range.
func (d *Device) SetVolumeDB(ctx context.Context, db float64) error {
	if db < MinVolumeDB {
		db = MinVolumeDB
	} else if db > MaxVolumeDB {
		db = MaxVolumeDB
	}

	d.mu.Lock()
	d.volumeDB = db
	d.mu.Unlock()

	return d.postConfig(ctx, masterStatus{Volume: &db})
}

// SelectSource selects an input by name. The name must be a member of the
// fixed catalog; anything else is rejected with
// controller.ErrInvalidArgument.
func (d *Device) SelectSource(ctx context.Context, name string) error {
	found := false
	for _, s := range SourceCatalog {
		if s == name {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: source %q is not one of: %s",
			controller.ErrInvalidArgument, name, strings.Join(SourceCatalog, ", "))
	}

	d.mu.Lock()
	d.source = name
	d.mu.Unlock()

	return d.postConfig(ctx, masterStatus{Source: &name})
}

// SelectPreset activates a preset slot, zero-indexed (0 is "Preset 1").
func (d *Device) SelectPreset(ctx context.Context, preset int) error {
	if preset < 0 || preset > MaxPreset {
		return fmt.Errorf("%w: preset %d out of range 0..%d",
			controller.ErrInvalidArgument, preset, MaxPreset)
	}

	d.mu.Lock()
	d.preset = preset
	d.mu.Unlock()

	return d.postConfig(ctx, masterStatus{Preset: &preset})
}

// postConfig sends one configuration mutation to the daemon.
func (d *Device) postConfig(ctx context.Context, status masterStatus) error {
	body, err := json.Marshal(struct {
		MasterStatus masterStatus `json:"master_status"`
	}{status})
	if err != nil {
		return fmt.Errorf("failed to encode config mutation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.configURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build config request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("config request to %q failed: %w", d.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("config request to %q failed: status %s", d.name, resp.Status)
	}
	return nil
}
