// Package logging provides the leveled logger shared by the backdrop
// gallery server and CLI.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions, including recovered download failures
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable
// (or DEBUG=true) and can be overridden at runtime with SetLevel.
package logging
