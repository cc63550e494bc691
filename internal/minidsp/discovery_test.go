package minidsp

import (
	"errors"
	"testing"

	"github.com/amplink/amplink/internal/controller"
)

// buildDiscoveryPacket assembles a synthetic announcement datagram.
func buildDiscoveryPacket(name string) []byte {
	data := make([]byte, minDiscoverySize+len(name))
	copy(data[6:12], []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}) // MAC
	copy(data[14:18], []byte{192, 168, 1, 50})                   // IPv4
	data[18] = 10   // hwid
	data[19] = 1    // fw major
	data[20] = 12   // fw minor
	data[21] = 51   // dsp id
	data[22] = 0x0A // serial hi
	data[23] = 0xBC // serial lo
	data[35] = byte(len(name))
	copy(data[36:], name)
	return data
}

func TestParseDiscovery(t *testing.T) {
	packet, err := ParseDiscovery(buildDiscoveryPacket("Flex HTx"))
	if err != nil {
		t.Fatalf("ParseDiscovery() error = %v", err)
	}

	if packet.Name != "Flex HTx" {
		t.Errorf("name = %q, want %q", packet.Name, "Flex HTx")
	}
	if packet.MACAddress != 0x001122334455 {
		t.Errorf("mac = %012x, want 001122334455", packet.MACAddress)
	}
	if got := packet.IPAddress.String(); got != "192.168.1.50" {
		t.Errorf("ip = %q, want 192.168.1.50", got)
	}
	if packet.HWID != 10 {
		t.Errorf("hwid = %d, want 10", packet.HWID)
	}
	if packet.DSPID != 51 {
		t.Errorf("dsp id = %d, want 51", packet.DSPID)
	}
	if packet.Serial != 0x0ABC {
		t.Errorf("serial = 0x%04x, want 0x0ABC", packet.Serial)
	}
	if packet.FirmwareMajor != 1 || packet.FirmwareMinor != 12 {
		t.Errorf("firmware = %d.%d, want 1.12", packet.FirmwareMajor, packet.FirmwareMinor)
	}
}

func TestParseDiscoveryShortBuffer(t *testing.T) {
	for _, size := range []int{0, 10, 35} {
		_, err := ParseDiscovery(make([]byte, size))
		if !errors.Is(err, controller.ErrMalformedPacket) {
			t.Errorf("ParseDiscovery() with %d bytes error = %v, want ErrMalformedPacket", size, err)
		}
	}
}

func TestParseDiscoveryNameOverrunsBuffer(t *testing.T) {
	data := buildDiscoveryPacket("Flex")
	// Claim a name longer than the buffer holds.
	data[35] = 200

	_, err := ParseDiscovery(data)
	if !errors.Is(err, controller.ErrMalformedPacket) {
		t.Errorf("ParseDiscovery() error = %v, want ErrMalformedPacket", err)
	}
}

func TestParseDiscoveryInvalidUTF8Name(t *testing.T) {
	data := buildDiscoveryPacket("Flex")
	data[36] = 0xFF
	data[37] = 0xFE

	_, err := ParseDiscovery(data)
	if !errors.Is(err, controller.ErrMalformedPacket) {
		t.Errorf("ParseDiscovery() error = %v, want ErrMalformedPacket", err)
	}
}

func TestParseDiscoveryEmptyName(t *testing.T) {
	packet, err := ParseDiscovery(buildDiscoveryPacket(""))
	if err != nil {
		t.Fatalf("ParseDiscovery() error = %v", err)
	}
	if packet.Name != "" {
		t.Errorf("name = %q, want empty", packet.Name)
	}
}
