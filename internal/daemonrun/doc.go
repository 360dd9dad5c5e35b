// Package daemonrun is the composition root for the long-running jobtrail
// process: it opens the store, builds the mailbox client, classifier,
// registry, and monitor, and serves IPC until shutdown.
package daemonrun
