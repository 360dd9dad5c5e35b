// Package daemonctl launches, probes, and stops the jobtrail daemon process
// on behalf of the CLI.
package daemonctl
