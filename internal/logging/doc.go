// Package logging provides the leveled logging facade used across the
// gallery service.
//
// It wraps a zerolog logger and supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable (or
// DEBUG=true). Init switches between console and JSON output and can add a
// rotating file sink backed by lumberjack. Component returns a structured
// child logger for packages that want typed fields.
package logging
