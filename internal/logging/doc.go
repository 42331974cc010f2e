// Package logging assembles structured slog loggers and formatting helpers used
// across octpack.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes helpers that keep warning lines shaped the same way everywhere
// (event type, hint, impact). Every CLI invocation gets a run identifier so
// lines from one pack run can be grepped out of a shared log file. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
package logging
