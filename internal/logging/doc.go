// Package logging provides structured logging for lightpaxos nodes.
//
// # Overview
//
// The logging package provides a structured logging interface with support for:
//
//   - Multiple log levels (debug, info, warn, error)
//   - Text and JSON output formats
//   - Field-based contextual logging
//
// # Creating a Logger
//
// Create a logger with configuration:
//
//	logger := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "/var/log/lightpaxos/node.log",
//	})
//
// Or use defaults:
//
//	logger := logging.NewDefault() // Info level, text format, stdout
//
// For testing, use a no-op logger:
//
//	logger := logging.NewNop()
//
// # Contextual Fields
//
// Every role logs through a logger carrying its id:
//
//	roleLogger := logger.WithFields("role", "p1")
//	roleLogger.Info("state transition", "from", "candidate", "to", "primary")
//
// Text output keeps fields in the order they were added:
//
//	2026-02-18T10:30:00Z [info] state transition role=p1 from=candidate to=primary
//
// JSON output:
//
//	{"ts":"2026-02-18T10:30:00Z","level":"info","msg":"state transition","role":"p1",...}
//
// Protocol traffic is logged at debug level. Guard expensive arguments with
// Enabled:
//
//	if logger.Enabled(logging.LevelDebug) {
//	    logger.Debug("inbound", "message", m.String())
//	}
//
// # Output Destinations
//
//	logging.Config{Output: "stdout"}                  // Standard output
//	logging.Config{Output: "stderr"}                  // Standard error
//	logging.Config{Output: "/var/log/lightpaxos.log"} // File path
package logging
