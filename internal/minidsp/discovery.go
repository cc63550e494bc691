package minidsp

import (
	"fmt"
	"net"
	"unicode/utf8"

	"github.com/amplink/amplink/internal/controller"
)

// DiscoveryPort is the UDP broadcast port for daemon announcements.
const DiscoveryPort = 3999

// Discovery packet layout:
//
//	[6-11]   48-bit MAC address
//	[14-17]  IPv4 address
//	[18]     hardware id
//	[19]     XMOS firmware major
//	[20]     XMOS firmware minor
//	[21]     DSP id
//	[22-23]  serial number (big-endian)
//	[35]     name length
//	[36+]    UTF-8 name
const minDiscoverySize = 36

// DiscoveryPacket is one parsed announcement. It is transient: the
// registry keeps only the Device built from the first packet per name.
type DiscoveryPacket struct {
	Name          string
	MACAddress    uint64
	IPAddress     net.IP
	HWID          byte
	DSPID         byte
	Serial        uint16
	FirmwareMajor byte
	FirmwareMinor byte
}

func (p *DiscoveryPacket) String() string {
	return fmt.Sprintf("DiscoveryPacket{name=%q mac=%012x ip=%s hwid=%d dsp=%d serial=%d fw=%d.%d}",
		p.Name, p.MACAddress, p.IPAddress, p.HWID, p.DSPID, p.Serial, p.FirmwareMajor, p.FirmwareMinor)
}

// ParseDiscovery decodes one announcement datagram. Short buffers, a name
// that overruns the buffer, or invalid UTF-8 in the name return an error
// wrapping controller.ErrMalformedPacket and never a partial packet.
func ParseDiscovery(data []byte) (*DiscoveryPacket, error) {
	if len(data) < minDiscoverySize {
		return nil, fmt.Errorf("%w: discovery packet too short: %d bytes (minimum %d)",
			controller.ErrMalformedPacket, len(data), minDiscoverySize)
	}

	nameLen := int(data[35])
	if len(data) < minDiscoverySize+nameLen {
		return nil, fmt.Errorf("%w: discovery packet truncates %d-byte name: %d bytes total",
			controller.ErrMalformedPacket, nameLen, len(data))
	}

	name := data[36 : 36+nameLen]
	if !utf8.Valid(name) {
		return nil, fmt.Errorf("%w: device name is not valid UTF-8", controller.ErrMalformedPacket)
	}

	var mac uint64
	for _, b := range data[6:12] {
		mac = mac<<8 | uint64(b)
	}

	return &DiscoveryPacket{
		Name:          string(name),
		MACAddress:    mac,
		IPAddress:     net.IPv4(data[14], data[15], data[16], data[17]),
		HWID:          data[18],
		DSPID:         data[21],
		Serial:        uint16(data[22])<<8 | uint16(data[23]),
		FirmwareMajor: data[19],
		FirmwareMinor: data[20],
	}, nil
}
