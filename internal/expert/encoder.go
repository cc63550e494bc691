package expert

import (
	"encoding/binary"
	"math"
)

// Command frame layout (142 bytes, verified against live captures):
//
//	[0-1]    marker 0x44 0x72
//	[2-3]    packet counter (big-endian, increments per transmission)
//	[4-5]    command counter (big-endian, increments per logical command)
//	[6]      opcode flag (bool argument for power/mute, 0x00 otherwise)
//	[7]      opcode
//	[8-9]    opcode-specific payload
//	[12-13]  CRC-16/CCITT-FALSE over bytes 0-11 (big-endian)
//
// Remaining bytes are zero.
const (
	// CommandFrameSize is the fixed size of every outgoing command frame.
	CommandFrameSize = 142

	frameMarker0 = 0x44
	frameMarker1 = 0x72

	opPower  = 0x01
	opVolume = 0x04
	opSource = 0x05
	opMute   = 0x07
)

// EncodeCommand builds one complete command frame. The payload bytes are
// passed individually because the source-select opcode applies an extra
// shift to the low byte only (see sourcePayload).
func EncodeCommand(packetCounter, commandCounter uint16, flag, opcode, payloadHi, payloadLo byte) []byte {
	frame := make([]byte, CommandFrameSize)
	frame[0] = frameMarker0
	frame[1] = frameMarker1
	binary.BigEndian.PutUint16(frame[2:4], packetCounter)
	binary.BigEndian.PutUint16(frame[4:6], commandCounter)
	frame[6] = flag
	frame[7] = opcode
	frame[8] = payloadHi
	frame[9] = payloadLo

	crc := crc16(frame[:12])
	binary.BigEndian.PutUint16(frame[12:14], crc)
	return frame
}

// crc16 computes CRC-16/CCITT-FALSE (poly 0x1021, init 0xFFFF, MSB-first,
// no final XOR) as used by the command frame trailer.
func crc16(data []byte) uint16 {
	crc := uint32(0xFFFF)
	for _, b := range data {
		crc ^= uint32(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return uint16(crc & 0xFFFF)
}

// VolumeCode converts the magnitude of a dB value into the device's 16-bit
// fixed-point volume representation, encoding 0.5 dB steps with a
// shifted-exponent scheme matching the firmware.
//
// The reference definition is recursive: f(0) = 0, f(0.5) = 0x3F00, else
// f(x) = (256 >> ceil(1 + log2(x))) + f(x - 0.5). Each step reduces the
// input by exactly 0.5, so the loop below accumulates the same terms from
// the top down and yields bit-identical output.
func VolumeCode(db float64) uint16 {
	abs := math.Abs(db)
	if abs == 0 {
		return 0
	}

	// Terminal f(0.5) term.
	code := uint32(0x3F00)
	for x := abs; x > 0.5; x -= 0.5 {
		shift := uint(math.Ceil(1 + math.Log2(x)))
		code += 256 >> shift
	}
	return uint16(code)
}

// volumePayload encodes a dB value for the set-volume opcode. Negative dB
// values carry a sign flag in bit 15 alongside the magnitude encoding.
func volumePayload(db float64) (hi, lo byte) {
	code := VolumeCode(db)
	if db < 0 {
		code |= 0x8000
	}
	return byte(code >> 8), byte(code & 0xFF)
}

// sourcePayload encodes a source index for the select-source opcode.
// Indices above 7 additionally right-shift the low byte by one bit, a
// quirk of the firmware's short encoding for high indices.
func sourcePayload(index int) (hi, lo byte) {
	out := 0x4000 | uint16(index)<<5
	hi = byte(out >> 8)
	lo = byte(out & 0xFF)
	if index > 7 {
		lo >>= 1
	}
	return hi, lo
}
