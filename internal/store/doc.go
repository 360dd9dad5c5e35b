// Package store persists tracked applications in SQLite (modernc.org/sqlite,
// no cgo).
//
// The database holds one users row per connected mailbox account and the
// applications belonging to it, unique on the lowercased (company, position)
// identity. The in-memory registry stays authoritative while the daemon
// runs; the store only rehydrates it after authentication and mirrors its
// changes.
package store
