// Command jobtrail is the command-line front end for the jobtrail daemon.
//
// It launches and stops the daemon, drives the mailbox sign-in flow, lists
// and edits tracked applications, and renders status. Everything except
// `daemon` and `config` talks to the running daemon over its IPC socket.
package main
