// Package daemon coordinates the long-running jobtrail process.
//
// It wires the mailbox monitor, the application registry, SQLite persistence
// and the gin HTTP API into a single lifecycle with flock-based locking to
// prevent multiple instances. Registry changes are mirrored into the store
// for the connected account and announced through the notifier.
//
// Keep orchestration here: classification and polling live in their own
// packages while the daemon handles startup, shutdown, and the wiring between
// them.
package daemon
