package controller

import "sync"

// Device is the constraint for registry entries. Devices are keyed by a
// stable name extracted from their announcement packets; names are not
// expected to collide across real devices on one network.
type Device interface {
	Name() string
}

// NewDeviceFunc is invoked once when a device name is first observed.
type NewDeviceFunc[D Device] func(device D)

// DeviceUpdatedFunc is invoked for every subsequent observation of a known
// device. changed reports whether the observation altered any retained state.
type DeviceUpdatedFunc[D Device] func(device D, changed bool)

// Registry is the single source of truth for known devices of one protocol
// family. It maps device name to the authoritative device instance, creates
// or merges on each parsed packet, and dispatches exactly one of the two
// event kinds per observation.
//
// All mutation is serialized on an internal mutex. Event listeners are
// dispatched sequentially in registration order, outside the lock, so a
// listener may call back into the registry.
type Registry[D Device] struct {
	mu        sync.Mutex
	devices   map[string]D
	onNew     []NewDeviceFunc[D]
	onUpdated []DeviceUpdatedFunc[D]
}

// NewRegistry creates an empty registry.
func NewRegistry[D Device]() *Registry[D] {
	return &Registry[D]{
		devices: make(map[string]D),
	}
}

// OnNewDevice registers a listener for first sightings.
func (r *Registry[D]) OnNewDevice(fn NewDeviceFunc[D]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onNew = append(r.onNew, fn)
}

// OnDeviceUpdated registers a listener for observations of known devices.
func (r *Registry[D]) OnDeviceUpdated(fn DeviceUpdatedFunc[D]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onUpdated = append(r.onUpdated, fn)
}

// Observe records one parsed packet for the named device.
//
// On first sighting, create is called to build the device instance, the
// instance is stored, and the new-device listeners fire. On subsequent
// sightings, merge is called with the stored instance and its result is
// reported to the device-updated listeners. Exactly one event kind fires
// per call.
func (r *Registry[D]) Observe(name string, create func() D, merge func(existing D) bool) {
	r.mu.Lock()

	existing, known := r.devices[name]
	if !known {
		device := create()
		r.devices[name] = device
		listeners := append([]NewDeviceFunc[D](nil), r.onNew...)
		r.mu.Unlock()

		for _, fn := range listeners {
			fn(device)
		}
		return
	}

	changed := merge(existing)
	listeners := append([]DeviceUpdatedFunc[D](nil), r.onUpdated...)
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(existing, changed)
	}
}

// NotifyUpdated surfaces a device state change that arrived outside the
// broadcast listener path, such as a delta from a live-update stream, to
// the same ordered device-updated listeners.
func (r *Registry[D]) NotifyUpdated(device D, changed bool) {
	r.mu.Lock()
	listeners := append([]DeviceUpdatedFunc[D](nil), r.onUpdated...)
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(device, changed)
	}
}

// Get returns the device with the given name, if known.
func (r *Registry[D]) Get(name string) (D, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	device, ok := r.devices[name]
	return device, ok
}

// Devices returns a snapshot of all known devices.
func (r *Registry[D]) Devices() []D {
	r.mu.Lock()
	defer r.mu.Unlock()
	devices := make([]D, 0, len(r.devices))
	for _, d := range r.devices {
		devices = append(devices, d)
	}
	return devices
}

// Len returns the number of known devices.
func (r *Registry[D]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices)
}
