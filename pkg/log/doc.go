// Package log provides the subscription lifecycle event log.
//
// The event log is a machine-readable trace of what happened to each
// connection, its subscription registry and every registered session. It is
// separate from operational logging (slog): operational logs are for humans,
// the event log is for tooling such as the mash-subs-log CLI.
//
// # Basic Usage
//
//	// During development: mirror events to the console
//	cfg.EventLogger = log.NewSlogAdapter(slog.Default())
//
//	// In production: append to a binary file
//	cfg.EventLogger, _ = log.NewFileLogger("/var/log/mash/subs.slog")
//
//	// Both
//	cfg.EventLogger = log.NewMultiLogger(console, file)
//
// # Event Types
//
// Every event names the entity it concerns (connection, registry or session)
// and carries either a StateChangeEvent or an ErrorEventData.
//
// # File Format
//
// Files are a plain concatenation of CBOR-encoded events with integer map
// keys. Reader streams them back with optional filtering.
package log
