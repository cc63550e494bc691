package config

import (
	"sync"
	"time"
)

// Registry represents the entire user configuration file.
// It stores user-defined metadata for amplifiers and application preferences.
//
// Device metadata is written from discovery listener goroutines and read
// from the UI goroutine, so all access to Devices goes through the
// mutex-guarded accessors.
type Registry struct {
	mu sync.Mutex

	Version     int                `yaml:"version"`
	Devices     map[string]*Device `yaml:"devices,omitempty"` // Keyed by announced device name
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Device represents user-defined metadata for a single amplifier.
// This is keyed by the device's announced name in the Registry.
type Device struct {
	Nickname string    `yaml:"nickname,omitempty"`  // User-friendly name
	Family   string    `yaml:"family,omitempty"`    // "expert" or "minidsp"
	LastIP   string    `yaml:"last_ip,omitempty"`   // Last known IP address
	LastSeen time.Time `yaml:"last_seen,omitempty"` // Last discovery time
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	Expert  *ExpertPrefs  `yaml:"expert,omitempty"`
	MiniDSP *MiniDSPPrefs `yaml:"minidsp,omitempty"`
	Monitor *MonitorPrefs `yaml:"monitor,omitempty"`

	// LocateTimeout is the mDNS browse timeout in seconds.
	LocateTimeout int `yaml:"locate_timeout"`
}

// MonitorPrefs holds defaults for the monitor command.
type MonitorPrefs struct {
	// Plain makes line-oriented output the default instead of the TUI.
	Plain bool `yaml:"plain"`
}

// ExpertPrefs holds preferences for the fixed-frame amplifier family.
type ExpertPrefs struct {
	Enabled bool `yaml:"enabled"`

	// Transmits is how many times each command frame is sent. The
	// amplifiers deduplicate on the packet counter, so repeats only add
	// robustness on lossy networks.
	Transmits int `yaml:"transmits"`

	// MaxVolume caps SetVolume requests, expressed as the raw volume
	// byte (0-255). Zero means use the built-in ceiling.
	MaxVolume int `yaml:"max_volume,omitempty"`
}

// MiniDSPPrefs holds preferences for the JSON/websocket amplifier family.
type MiniDSPPrefs struct {
	Enabled bool `yaml:"enabled"`

	// Port overrides the daemon's HTTP port when non-zero.
	Port int `yaml:"port,omitempty"`
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version: 1,
		Devices: make(map[string]*Device),
		Preferences: &Preferences{
			Expert:        &ExpertPrefs{Enabled: true, Transmits: 2},
			MiniDSP:       &MiniDSPPrefs{Enabled: true},
			Monitor:       &MonitorPrefs{},
			LocateTimeout: 10,
		},
	}
}

// GetDevice retrieves device metadata by announced name.
// Returns nil if the device doesn't exist in the registry.
func (r *Registry) GetDevice(name string) *Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Devices[name]
}

// EnsureDevice ensures a device entry exists in the registry, creating a
// default entry if needed, and returns it.
func (r *Registry) EnsureDevice(name string) *Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ensureDeviceLocked(name)
}

func (r *Registry) ensureDeviceLocked(name string) *Device {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}

	if device, exists := r.Devices[name]; exists {
		return device
	}

	device := &Device{}
	r.Devices[name] = device
	return device
}

// UpdateDeviceLastSeen updates the last seen timestamp, family and IP for
// a device.
func (r *Registry) UpdateDeviceLastSeen(name, family, ip string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	device := r.ensureDeviceLocked(name)
	device.LastSeen = time.Now()
	device.Family = family
	device.LastIP = ip
}

// SetDeviceNickname sets a user-friendly nickname for a device.
func (r *Registry) SetDeviceNickname(name, nickname string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureDeviceLocked(name).Nickname = nickname
}

// DisplayName returns the nickname if one is set, otherwise the announced
// name the device is keyed under.
func (r *Registry) DisplayName(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if device := r.Devices[name]; device != nil && device.Nickname != "" {
		return device.Nickname
	}
	return name
}

// AnnouncedName resolves a nickname back to the announced name the device
// is keyed under. Names that match no nickname are returned unchanged.
func (r *Registry) AnnouncedName(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, device := range r.Devices {
		if device.Nickname == name {
			return key
		}
	}
	return name
}

// DeviceSnapshot returns a copy of the device metadata map. The Device
// pointers are shared; callers treat them as read-only.
func (r *Registry) DeviceSnapshot() map[string]*Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := make(map[string]*Device, len(r.Devices))
	for name, device := range r.Devices {
		snapshot[name] = device
	}
	return snapshot
}
