// Package minidsp implements the protocol stack for the "minidsp" amplifier
// family, which is fronted by the minidsp-rs daemon: UDP discovery
// broadcasts on port 3999 announce each unit, a JSON config endpoint
// (/devices/0/config) accepts master-status mutations, and a websocket
// stream (/devices/0?poll=true) delivers asynchronous status deltas.
//
// Discovery packets carry only identity and network information. Live
// state arrives exclusively over the per-device websocket channel, which
// the controller opens as soon as a device is first sighted.
package minidsp
