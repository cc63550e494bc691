// Package logging provides structured logging for amplink using zap.
//
// Logging is silent by default so the CLI output stays clean. Set the
// AMPLINK_LOG_LEVEL environment variable (debug, info, warn, error) or call
// Initialize with an explicit level to enable output.
//
// The package exposes convenience wrappers (Debug, Info, Warn, Error) plus
// helpers for dumping raw network packets in hex/ascii form, which is the
// main debugging tool when reverse-engineered UDP frames do not parse.
package logging
