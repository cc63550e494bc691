package expert

import (
	"net"
	"testing"
)

// statusFrameOpts describes a synthetic status frame for tests.
type statusFrameOpts struct {
	name        string
	power       bool
	muted       bool
	volume      byte
	sourceIndex int
	sources     map[int]string // slot -> name, enabled
}

func buildStatusFrame(opts statusFrameOpts) []byte {
	data := make([]byte, minStatusSize)
	copy(data[nameOffset:nameOffset+nameLength], opts.name)

	for i := 0; i < numSourceSlots; i++ {
		slot := sourceTableOffset + i*sourceSlotStride
		if name, ok := opts.sources[i]; ok {
			data[slot] = '1'
			copy(data[slot+1:slot+sourceSlotStride], name)
		} else {
			data[slot] = '0'
		}
	}

	if opts.power {
		data[powerByteOffset] |= 0x80
	}
	if opts.muted {
		data[sourceByteOffset] |= 0x02
	}
	data[sourceByteOffset] |= byte(opts.sourceIndex&0x0F) << 2
	data[volumeByteOffset] = opts.volume
	return data
}

func testAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4(192, 168, 1, 40), Port: StatusPort}
}

func TestParseStatus(t *testing.T) {
	frame := buildStatusFrame(statusFrameOpts{
		name:        "Living Room",
		power:       true,
		volume:      195,
		sourceIndex: 2,
		sources:     map[int]string{0: "Phono", 2: "Optical 1", 10: "USB"},
	})

	device, err := ParseStatus(frame, testAddr())
	if err != nil {
		t.Fatalf("ParseStatus() error = %v", err)
	}

	if device.Name() != "Living Room" {
		t.Errorf("name = %q, want %q", device.Name(), "Living Room")
	}
	if device.IPAddress() != "192.168.1.40" {
		t.Errorf("ip = %q, want 192.168.1.40", device.IPAddress())
	}
	if !device.Power() {
		t.Error("power = false, want true")
	}
	if device.Muted() {
		t.Error("muted = true, want false")
	}
	if device.Volume() != 195 {
		t.Errorf("volume = %d, want 195", device.Volume())
	}
	if device.VolumeDB() != 0 {
		t.Errorf("volume dB = %v, want 0", device.VolumeDB())
	}
	if device.SourceIndex() != 2 {
		t.Errorf("source index = %d, want 2", device.SourceIndex())
	}
	if got := device.CurrentSourceName(); got != "Optical 1" {
		t.Errorf("current source = %q, want %q", got, "Optical 1")
	}

	sources := device.Sources()
	if len(sources) != numSourceSlots {
		t.Fatalf("parsed %d sources, want %d", len(sources), numSourceSlots)
	}
	if !sources[2].IsSelected {
		t.Error("source 2 not marked selected")
	}
	if sources[0].IsSelected {
		t.Error("source 0 marked selected")
	}

	wantEnabled := []string{"Phono", "Optical 1", "USB"}
	gotEnabled := device.EnabledSourceNames()
	if len(gotEnabled) != len(wantEnabled) {
		t.Fatalf("enabled sources = %v, want %v", gotEnabled, wantEnabled)
	}
	for i := range wantEnabled {
		if gotEnabled[i] != wantEnabled[i] {
			t.Errorf("enabled source %d = %q, want %q", i, gotEnabled[i], wantEnabled[i])
		}
	}
}

func TestParseStatusMutedBit(t *testing.T) {
	frame := buildStatusFrame(statusFrameOpts{name: "Amp", muted: true})
	device, err := ParseStatus(frame, testAddr())
	if err != nil {
		t.Fatalf("ParseStatus() error = %v", err)
	}
	if !device.Muted() {
		t.Error("muted = false, want true")
	}
}

func TestParseStatusShortFrame(t *testing.T) {
	for _, size := range []int{0, 50, 310} {
		if _, err := ParseStatus(make([]byte, size), testAddr()); err == nil {
			t.Errorf("ParseStatus() with %d bytes succeeded, want error", size)
		}
	}
}

func TestParseStatusInvalidUTF8Name(t *testing.T) {
	frame := buildStatusFrame(statusFrameOpts{name: "Amp"})
	frame[nameOffset] = 0xFF
	frame[nameOffset+1] = 0xFE

	if _, err := ParseStatus(frame, testAddr()); err == nil {
		t.Error("ParseStatus() with invalid UTF-8 name succeeded, want error")
	}
}

func TestParseStatusNonDigitEnabledByte(t *testing.T) {
	// Only '0' disables a slot; anything else observed in the wild means
	// enabled.
	frame := buildStatusFrame(statusFrameOpts{name: "Amp"})
	frame[sourceTableOffset] = 'x'

	device, err := ParseStatus(frame, testAddr())
	if err != nil {
		t.Fatalf("ParseStatus() error = %v", err)
	}
	if !device.Sources()[0].IsEnabled {
		t.Error("source 0 with enabled byte 'x' parsed as disabled")
	}
}
