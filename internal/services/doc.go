// Package services defines shared utilities consumed by the mailbox,
// classifier, monitor, and route layers.
//
// Key responsibilities:
//   - Context helpers that stamp application IDs, mailbox message IDs, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures can be
//     classified with errors.Is (configuration, auth, fetch, validation,
//     not found) and mapped to HTTP status codes at the route boundary.
//
// Use these helpers when wiring new components so failure handling and
// observability stay uniform across the daemon.
package services
