// Package expert implements the protocol stack for the "expert" amplifier
// family: fixed-offset binary status broadcasts on UDP port 45454 and
// 142-byte CRC16-checksummed command frames sent to unicast port 45455.
//
// The wire format was reverse-engineered from live captures. Status frames
// are full snapshots (name, power, mute, volume, source table); commands
// carry per-device packet and command sequence counters and a logarithmic
// fixed-point volume encoding (see VolumeCode).
//
// Commands are fire-and-forget: each logical command is transmitted twice
// over a transient UDP association to compensate for loss, with no
// acknowledgment from the device.
package expert
