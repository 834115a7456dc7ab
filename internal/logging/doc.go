// Package logging assembles structured slog loggers and the attribute helpers
// used across podarchive.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context helpers so per-episode code can tag log lines
// with the run and Overcast episode identifiers. NewNop gives tests and wiring
// code a logger that cannot fail.
package logging
