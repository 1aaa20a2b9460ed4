// Package logging provides structured logging with per-module log levels.
//
// # Usage
//
// Initialize once at startup, then ask for a logger per module:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"capture": "debug",
//			"api":     "warn",
//		},
//	})
//
//	logger := logging.GetLogger("capture")
//	logger.Info("Preview mode changed", "mode", "all")
//
// Loggers obtained before Initialize are rebuilt by it, so package-level
// loggers are safe.
//
// # Outputs
//
// Records fan out to stdout (text or json), the systemd journal when
// [github.com/coreos/go-systemd/v22/journal.Enabled] reports it, and an
// in-memory ring buffer served by the HTTP API.
//
//	journalctl -t camwall MODULE=capture
//
// # Runtime level changes
//
// SetLevels swaps levels in place. The config watcher calls it when the
// [logging] section of the configuration file changes:
//
//	[logging]
//	level = "info"
//
//	[logging.modules]
//	capture = "debug"
//	render = "warn"
package logging
