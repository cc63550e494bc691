package minidsp

import (
	"net"
	"testing"
)

func discoveryAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4(192, 168, 1, 50), Port: DiscoveryPort}
}

func TestControllerHandleDatagram(t *testing.T) {
	c := NewController()
	c.autoStream = false // no daemon to dial in tests
	defer c.Close()

	var discovered []string
	c.OnNewDevice(func(d *Device) {
		discovered = append(discovered, d.Name())
	})
	var updates []bool
	c.OnDeviceUpdated(func(d *Device, changed bool) {
		updates = append(updates, changed)
	})

	packet := buildDiscoveryPacket("Flex HTx")

	c.handleDatagram(packet, discoveryAddr())
	if len(discovered) != 1 || discovered[0] != "Flex HTx" {
		t.Fatalf("discovered = %v, want [Flex HTx]", discovered)
	}

	// Announcements carry identity only; a repeat changes nothing.
	c.handleDatagram(packet, discoveryAddr())
	if len(updates) != 1 || updates[0] != false {
		t.Fatalf("updates = %v, want [false]", updates)
	}

	device, ok := c.Get("Flex HTx")
	if !ok {
		t.Fatal("device not in registry")
	}
	if device.IPAddress() != "192.168.1.50" {
		t.Errorf("ip = %q, want 192.168.1.50", device.IPAddress())
	}
	if len(c.Devices()) != 1 {
		t.Errorf("registry holds %d devices, want 1", len(c.Devices()))
	}
}

func TestControllerDropsMalformedAnnouncements(t *testing.T) {
	c := NewController()
	c.autoStream = false
	defer c.Close()

	created := 0
	c.OnNewDevice(func(d *Device) { created++ })

	c.handleDatagram([]byte{0x01, 0x02}, discoveryAddr())
	c.handleDatagram(make([]byte, minDiscoverySize-1), discoveryAddr())

	if created != 0 {
		t.Errorf("malformed announcements created %d devices", created)
	}
}
