// Package registry owns the in-memory collection of tracked job applications.
//
// The Registry is shared by the mailbox monitor and the route layer. It never
// hands out pointers to its backing entries; every accessor returns copies,
// and every mutation (upsert, direct stage override, delete, restore) runs
// under a single mutex so identity deduplication and id allocation stay
// atomic. Subscribers receive Change events after the lock is released, which
// is how persistence and notifications observe the registry.
package registry
