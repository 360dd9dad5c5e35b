// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// Methods are registered under the Jobtrail service name and delegate to the
// same api.Service the HTTP routes use, so both transports share validation
// and error semantics. Errors cross the socket as plain strings.
package ipc
