// Package stage defines the application lifecycle taxonomy and the merge
// policy used to reconcile conflicting stage signals.
//
// Stages are ordered Applied < Interview < Offer for merge purposes, while
// Rejected is absorbing: it overrides every stage and is never downgraded by
// a later non-rejection signal. Merge is idempotent so replayed or
// out-of-order emails converge on the same result.
package stage
