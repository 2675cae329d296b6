// Package client runs a single smile alarm command from the command line.
//
// Alarm and sound changes are written straight to the shared JSON files and
// the running daemon, if any, is asked to reload them. Stop requests are
// forwarded to the daemon.
package client
