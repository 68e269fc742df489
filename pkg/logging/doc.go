// Package logging provides a small structured logging wrapper used by the
// conformance harness's driver, check catalog, and suite runner.
//
// # Architecture
//
// The logging system is built around these core concepts:
//
// ## Log Levels
//   - **Debug**: Wire-level detail (raw frames, per-socket poll results)
//   - **Info**: Suite and check lifecycle events
//   - **Warn**: Recoverable anomalies (unexpected but non-fatal messages)
//   - **Error**: Failures that abort a check or the whole suite
//
// ## Structured Logging
// All log entries include:
//   - Timestamp with millisecond precision
//   - Log level (Debug, Info, Warn, Error)
//   - Subsystem identifier for categorization (e.g. "driver", "wire", "suite")
//   - Message content with optional formatting
//   - Optional error information
//
// # Usage
//
//	import "kernelconform/pkg/logging"
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//	logging.Info("suite", "running tier %s", tier)
//	logging.Debug("wire", "recv %d frames on iopub", len(frames))
//	logging.Error("driver", err, "kernel_info_request timed out")
//
// # Subsystem Organization
//
//   - **driver**: kernel subprocess lifecycle and channel correlation
//   - **wire**: connection file and message framing
//   - **suite**: conformance suite orchestration
//   - **checks**: individual check execution
//
// # Integration with slog
//
// The package is a thin facade over log/slog: InitForCLI builds a
// slog.TextHandler and the level-tagged helpers attach a "subsystem"
// attribute (and an "error" attribute, for Error) before delegating to it.
package logging
