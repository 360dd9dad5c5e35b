// Package logging assembles structured slog loggers and attribute helpers
// used across jobtrail.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so monitor and route code can
// tag log lines with application IDs, mailbox message IDs, and correlation
// IDs. A no-op logger is provided for tests and wiring code that cannot fail.
package logging
