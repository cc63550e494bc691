package expert

import (
	"net"

	"github.com/amplink/amplink/internal/controller"
	"github.com/amplink/amplink/internal/logging"
)

// Controller wires the expert broadcast listener to a device registry.
// Status frames arrive every few hundred milliseconds from each powered
// amplifier on the network; the controller parses each into a snapshot and
// creates-or-merges the registry entry.
type Controller struct {
	registry  *controller.Registry[*Device]
	listener  *controller.Listener
	transmits int
}

// NewController creates a controller. Call Start to bind the status port.
func NewController() *Controller {
	c := &Controller{
		registry:  controller.NewRegistry[*Device](),
		transmits: TransmitsPerCommand,
	}
	c.listener = controller.NewListener(StatusPort, c.handleDatagram)
	return c
}

// SetTransmits overrides how many times each command frame is sent to
// devices created after the call. Values below 1 are ignored.
func (c *Controller) SetTransmits(n int) {
	if n >= 1 {
		c.transmits = n
	}
}

// OnNewDevice registers a listener for newly discovered amplifiers.
func (c *Controller) OnNewDevice(fn controller.NewDeviceFunc[*Device]) {
	c.registry.OnNewDevice(fn)
}

// OnDeviceUpdated registers a listener for status merges of known amplifiers.
func (c *Controller) OnDeviceUpdated(fn controller.DeviceUpdatedFunc[*Device]) {
	c.registry.OnDeviceUpdated(fn)
}

// Devices returns a snapshot of all known amplifiers.
func (c *Controller) Devices() []*Device {
	return c.registry.Devices()
}

// Get returns the amplifier with the given name, if known.
func (c *Controller) Get(name string) (*Device, bool) {
	return c.registry.Get(name)
}

// Start binds the status port and begins processing broadcasts.
func (c *Controller) Start() error {
	return c.listener.Start()
}

// Close stops the listener. Idempotent.
func (c *Controller) Close() error {
	return c.listener.Close()
}

func (c *Controller) handleDatagram(data []byte, addr *net.UDPAddr) {
	snapshot, err := ParseStatus(data, addr)
	if err != nil {
		logging.LogDatagram("dropping malformed expert status frame", addr.String(), data)
		return
	}

	c.registry.Observe(snapshot.Name(),
		func() *Device {
			snapshot.transmits = c.transmits
			return snapshot
		},
		func(existing *Device) bool { return existing.Merge(snapshot) },
	)
}
