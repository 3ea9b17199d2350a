// Package config loads the YAML configuration shared by the mash-subs tools
// and builds the ambient stack from it: the operational slog logger, the
// lifecycle event logger and the metrics collector.
//
// Example:
//
//	logging:
//	  level: debug
//	  format: json
//	  output: stderr
//	event_log:
//	  path: /var/log/mash-subs/lifecycle.slog
//	  console: false
//	metrics:
//	  enabled: true
//	  namespace: mash_subs
//	  address: ":9090"
//	connection:
//	  stream_buffer: 16
//
// Every section is optional; unset fields keep the values from Default.
package config
