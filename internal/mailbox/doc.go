// Package mailbox provides read-only access to the user's mailbox.
//
// GmailClient uses an OAuth authorization-code grant limited to the
// gmail.readonly scope. The token is persisted to mailbox.token_file, reloaded
// at startup, and rewritten whenever it is refreshed. IMAPClient logs in with
// configured credentials and has no browser flow.
//
// Both decode messages into RawMessage: multipart bodies prefer text/plain and
// fall back to text/html converted to text.
package mailbox
