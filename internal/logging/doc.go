// Package logging constructs slog loggers for the CLI and the sync runner.
//
// Two handler formats are supported: a console handler for interactive use and
// a JSON handler for log files and automation. Field helpers and canonical
// attribute names keep run, playlist, and entry identifiers consistent across
// components so failures can be traced without re-deriving context from tool
// output.
package logging
