package controller

import "errors"

// Shared error classes for the two protocol families. Family packages wrap
// these so callers can classify failures with errors.Is without caring
// which family produced them.
var (
	// ErrInvalidArgument indicates a control operation was rejected by
	// client-side validation (unknown source name, out-of-range preset).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMalformedPacket indicates a datagram that does not decode as a
	// status or discovery packet. These are dropped and logged, never
	// surfaced past the listener.
	ErrMalformedPacket = errors.New("malformed packet")
)
