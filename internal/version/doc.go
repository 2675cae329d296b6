// Package version exposes build metadata of the smile alarm.
//
// Version, Commit and BuildTime are injected at build time via ldflags.
package version
