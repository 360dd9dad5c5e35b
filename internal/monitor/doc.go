// Package monitor runs the mailbox polling loop.
//
// A Manager owns one background goroutine while running. Each cycle fetches
// the most recent messages, classifies them, and merges actionable results
// into the shared registry. Failed cycles back off exponentially; a rejected
// mailbox credential stops the loop. ManualScan runs the same cycle
// synchronously for the scan route.
package monitor
