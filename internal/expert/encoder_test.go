package expert

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestEncodeCommandLayout(t *testing.T) {
	frame := EncodeCommand(0x0102, 0x0304, 0x01, opPower, 0xAA, 0xBB)

	if len(frame) != CommandFrameSize {
		t.Fatalf("frame size = %d, want %d", len(frame), CommandFrameSize)
	}
	if frame[0] != 0x44 || frame[1] != 0x72 {
		t.Errorf("marker = 0x%02x 0x%02x, want 0x44 0x72", frame[0], frame[1])
	}
	if got := binary.BigEndian.Uint16(frame[2:4]); got != 0x0102 {
		t.Errorf("packet counter = 0x%04x, want 0x0102", got)
	}
	if got := binary.BigEndian.Uint16(frame[4:6]); got != 0x0304 {
		t.Errorf("command counter = 0x%04x, want 0x0304", got)
	}
	if frame[6] != 0x01 || frame[7] != opPower {
		t.Errorf("opcode bytes = 0x%02x 0x%02x, want 0x01 0x%02x", frame[6], frame[7], opPower)
	}
	if frame[8] != 0xAA || frame[9] != 0xBB {
		t.Errorf("payload = 0x%02x 0x%02x, want 0xAA 0xBB", frame[8], frame[9])
	}

	// Everything past the CRC must be zero padding.
	if !bytes.Equal(frame[14:], make([]byte, CommandFrameSize-14)) {
		t.Error("bytes past CRC are not zero")
	}
}

func TestEncodeCommandCRCGoldenVector(t *testing.T) {
	// Power-off command with both counters at zero. The CRC over the
	// 12-byte prefix is pinned against a CRC-16/CCITT-FALSE reference
	// implementation.
	frame := EncodeCommand(0, 0, 0, opPower, 0, 0)

	if got := binary.BigEndian.Uint16(frame[12:14]); got != 0xE51D {
		t.Errorf("CRC = 0x%04x, want 0xE51D", got)
	}

	// The CRC must cover the counters: advancing the packet counter by
	// one changes it.
	frame = EncodeCommand(1, 0, 0, opPower, 0, 0)
	if got := binary.BigEndian.Uint16(frame[12:14]); got != 0x0E3E {
		t.Errorf("CRC with packet counter 1 = 0x%04x, want 0x0E3E", got)
	}
}

func TestCRC16KnownValues(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint16
	}{
		// Standard CRC-16/CCITT-FALSE check value.
		{"check sequence", []byte("123456789"), 0x29B1},
		{"empty", nil, 0xFFFF},
		{"single zero byte", []byte{0x00}, 0xE1F0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := crc16(tt.data); got != tt.want {
				t.Errorf("crc16() = 0x%04x, want 0x%04x", got, tt.want)
			}
		})
	}
}

func TestVolumeCode(t *testing.T) {
	tests := []struct {
		db   float64
		want uint16
	}{
		{0, 0x0000},
		{0.5, 0x3F00},
		{1, 0x3F80},
		{2, 0x4000},
		{5, 0x40A0},
		{10, 0x4120},
		{20, 0x41A0},
		{30, 0x41F0},
		{40, 0x4220},
		{97.5, 0x42C3},
		{127.5, 0x42FF},
		// Magnitude encoding ignores sign.
		{-10, 0x4120},
		{-40, 0x4220},
	}

	for _, tt := range tests {
		if got := VolumeCode(tt.db); got != tt.want {
			t.Errorf("VolumeCode(%v) = 0x%04x, want 0x%04x", tt.db, got, tt.want)
		}
	}
}

func TestVolumeCodeMonotonic(t *testing.T) {
	var prev uint16
	for halves := 0; halves <= 20; halves++ {
		db := float64(halves) / 2
		code := VolumeCode(db)
		if code < prev {
			t.Fatalf("VolumeCode not monotonic at %v dB: 0x%04x < 0x%04x", db, code, prev)
		}
		prev = code
	}
}

func TestVolumePayloadSignFlag(t *testing.T) {
	hi, lo := volumePayload(-10)
	if got := uint16(hi)<<8 | uint16(lo); got != 0xC120 {
		t.Errorf("volumePayload(-10) = 0x%04x, want 0xC120", got)
	}

	hi, lo = volumePayload(10)
	if got := uint16(hi)<<8 | uint16(lo); got != 0x4120 {
		t.Errorf("volumePayload(10) = 0x%04x, want 0x4120", got)
	}
}

func TestSourcePayload(t *testing.T) {
	tests := []struct {
		index  int
		wantHi byte
		wantLo byte
	}{
		{0, 0x40, 0x00},
		{3, 0x40, 0x60},
		{7, 0x40, 0xE0},
		// Indices above 7 right-shift the low byte by one bit.
		{8, 0x41, 0x00},
		{10, 0x41, 0x20},
		{14, 0x41, 0x60},
	}

	for _, tt := range tests {
		hi, lo := sourcePayload(tt.index)
		if hi != tt.wantHi || lo != tt.wantLo {
			t.Errorf("sourcePayload(%d) = 0x%02x 0x%02x, want 0x%02x 0x%02x",
				tt.index, hi, lo, tt.wantHi, tt.wantLo)
		}
	}
}

func TestSourcePayloadHighIndexShiftRegression(t *testing.T) {
	// Index 10 unshifted would be 0x4140; the firmware quirk halves the
	// low byte for indices above 7.
	_, lo := sourcePayload(10)
	if lo != 0x40>>1 {
		t.Errorf("index 10 low byte = 0x%02x, want 0x%02x", lo, 0x40>>1)
	}
}
