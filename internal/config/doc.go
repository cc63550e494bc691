// Package config manages the persistent user configuration file.
//
// The configuration stores user-defined metadata for discovered
// amplifiers (nicknames, last known addresses) and application
// preferences (per-family toggles, command transmit counts, the mDNS
// browse timeout). It lives in the platform configuration directory as
// a YAML file and is written atomically.
//
// Live device state is never persisted here; it is rebuilt from the
// network on every run.
package config
