// Package controller provides the family-generic plumbing shared by both
// amplifier protocol stacks: a UDP broadcast listener that feeds raw
// datagrams to a handler, and a name-keyed device registry that
// deduplicates devices and dispatches new-device / device-updated events
// to registered listeners.
//
// The two protocol families (expert, minidsp) share no wire format, but
// they share this exact shape: Listener -> Parser -> Registry -> events.
// Each family package instantiates the registry with its own device type
// and supplies the create/merge behavior for its packets.
package controller
