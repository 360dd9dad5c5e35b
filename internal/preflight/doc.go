// Package preflight validates directories, mailbox credentials, and
// classifier providers before the daemon starts, and renders the same checks
// as status lines for the CLI.
package preflight
