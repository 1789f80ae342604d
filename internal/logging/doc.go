// Package logging builds the process-wide slog logger and provides the
// attribute helpers the rest of the codebase logs with.
//
// Two output formats are supported: a compact console format for interactive
// use and JSON for machine consumption. Component loggers tag every record
// with the emitting subsystem so pipeline stages can be told apart in a run's
// combined output.
package logging
