// Package logging provides a minimal logging interface and adapters for dialogmesh.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that adapters, state and dialogs use for observability. This
// package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - DialogLogger with component / conversation context and turn helpers
//   - ZapAdapter for applications standardised on zap
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	bot, err := dialogmesh.New(explorer, func(o *dialogmesh.Options) { o.Logger = logger })
package logging
