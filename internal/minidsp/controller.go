package minidsp

import (
	"context"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/amplink/amplink/internal/controller"
	"github.com/amplink/amplink/internal/logging"
)

// Controller wires the discovery listener to a device registry and owns
// the per-device live channels. Discovery packets carry only identity, so
// repeat sightings of a known name dispatch device-updated with
// changed=false; real state changes arrive over each device's websocket
// stream and are surfaced through the same listeners.
type Controller struct {
	registry *controller.Registry[*Device]
	listener *controller.Listener

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	channels map[string]*LiveChannel

	port int

	// autoStream can be disabled for tests that have no daemon to dial.
	autoStream bool
}

// NewController creates a controller. Call Start to bind the discovery port.
func NewController() *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		registry:   controller.NewRegistry[*Device](),
		ctx:        ctx,
		cancel:     cancel,
		channels:   make(map[string]*LiveChannel),
		autoStream: true,
	}
	c.listener = controller.NewListener(DiscoveryPort, c.handleDatagram)
	c.registry.OnNewDevice(c.openLiveChannel)
	return c
}

// SetPort overrides the daemon HTTP port for devices created after the
// call. Non-positive values keep DefaultPort.
func (c *Controller) SetPort(port int) {
	if port > 0 {
		c.port = port
	}
}

// OnNewDevice registers a listener for newly discovered devices.
func (c *Controller) OnNewDevice(fn controller.NewDeviceFunc[*Device]) {
	c.registry.OnNewDevice(fn)
}

// OnDeviceUpdated registers a listener for state deltas of known devices.
func (c *Controller) OnDeviceUpdated(fn controller.DeviceUpdatedFunc[*Device]) {
	c.registry.OnDeviceUpdated(fn)
}

// Devices returns a snapshot of all known devices.
func (c *Controller) Devices() []*Device {
	return c.registry.Devices()
}

// Get returns the device with the given name, if known.
func (c *Controller) Get(name string) (*Device, bool) {
	return c.registry.Get(name)
}

// Start binds the discovery port and begins processing announcements.
func (c *Controller) Start() error {
	return c.listener.Start()
}

// Close stops the listener and tears down every live channel. Idempotent.
func (c *Controller) Close() error {
	c.cancel()
	err := c.listener.Close()

	c.mu.Lock()
	channels := make([]*LiveChannel, 0, len(c.channels))
	for _, ch := range c.channels {
		channels = append(channels, ch)
	}
	c.mu.Unlock()

	for _, ch := range channels {
		ch.Close()
	}
	return err
}

func (c *Controller) handleDatagram(data []byte, addr *net.UDPAddr) {
	packet, err := ParseDiscovery(data)
	if err != nil {
		logging.LogDatagram("dropping malformed discovery packet", addr.String(), data)
		return
	}

	c.registry.Observe(packet.Name,
		func() *Device {
			logging.Info("discovered minidsp device", zap.String("packet", packet.String()))
			return NewDevice(packet, c.port)
		},
		// Discovery carries no live state; repeat sightings change nothing.
		func(existing *Device) bool { return false },
	)
}

// openLiveChannel starts the status stream for a newly sighted device.
func (c *Controller) openLiveChannel(device *Device) {
	if !c.autoStream {
		return
	}

	ch := NewLiveChannel(device, c.registry.NotifyUpdated)

	c.mu.Lock()
	c.channels[device.Name()] = ch
	c.mu.Unlock()

	go func() {
		if err := ch.Run(c.ctx); err != nil {
			logging.Warn("live channel terminated",
				zap.String("device", device.Name()),
				zap.Error(err),
			)
		}
	}()
}
