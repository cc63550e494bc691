package expert

import (
	"fmt"
	"net"
	"strings"
	"unicode/utf8"

	"github.com/amplink/amplink/internal/controller"
)

// Status frame layout (from live capture analysis):
//
//	[19-49]   device name, NUL-padded UTF-8 (31 bytes)
//	[52+i*17] source slot i: 1 ascii-digit enabled flag + 16-byte name
//	[307]     bit 7: power
//	[308]     bit 1: muted, bits 2-5: selected source index
//	[310]     volume (0..255)
const (
	minStatusSize = 311

	nameOffset = 19
	nameLength = 31

	sourceTableOffset = 52
	sourceSlotStride  = 17
	numSourceSlots    = 15

	powerByteOffset  = 307
	sourceByteOffset = 308
	volumeByteOffset = 310
)

// ParseStatus decodes one broadcast status frame into a fresh Device
// snapshot. Malformed frames (short buffer, invalid UTF-8 in a name field)
// return an error wrapping controller.ErrMalformedPacket; the caller drops
// the packet without touching the registry.
func ParseStatus(data []byte, addr *net.UDPAddr) (*Device, error) {
	if len(data) < minStatusSize {
		return nil, fmt.Errorf("%w: status frame too short: %d bytes (minimum %d)",
			controller.ErrMalformedPacket, len(data), minStatusSize)
	}

	name, err := decodePaddedName(data[nameOffset : nameOffset+nameLength])
	if err != nil {
		return nil, fmt.Errorf("%w: device name: %v", controller.ErrMalformedPacket, err)
	}

	sourceIndex := int(data[sourceByteOffset]&0x3C) >> 2

	sources := make([]Source, 0, numSourceSlots)
	for i := 0; i < numSourceSlots; i++ {
		slot := sourceTableOffset + i*sourceSlotStride

		sourceName, err := decodePaddedName(data[slot+1 : slot+sourceSlotStride])
		if err != nil {
			return nil, fmt.Errorf("%w: source %d name: %v", controller.ErrMalformedPacket, i, err)
		}

		sources = append(sources, Source{
			Name: sourceName,
			// Observed frames carry '0' or '1'; any other byte is
			// treated as enabled, matching device behavior seen so far.
			IsEnabled:  data[slot] != '0',
			Index:      i,
			IsSelected: i == sourceIndex,
		})
	}

	device := newDevice()
	device.name = name
	device.ipAddress = addr.IP.String()
	device.sourceIndex = sourceIndex
	device.sources = sources
	device.power = data[powerByteOffset]&0x80 != 0
	device.muted = data[sourceByteOffset]&0x02 != 0
	device.volume = data[volumeByteOffset]
	return device, nil
}

// decodePaddedName strips NUL padding from a fixed-width UTF-8 name field.
func decodePaddedName(field []byte) (string, error) {
	if !utf8.Valid(field) {
		return "", fmt.Errorf("invalid UTF-8")
	}
	return strings.ReplaceAll(string(field), "\x00", ""), nil
}
