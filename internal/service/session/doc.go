// Package session implements the ringing session state machine.
//
// A Controller moves between Idle, Ringing and Stopping. Trigger starts the
// audio loop and camera ingestion and a monitor goroutine that feeds fresh
// frames through the smile detector into a smile.Timer. Whichever comes first
// of a confirmed smile, a manual ForceStop or Shutdown performs the stop
// transition; a single-flight latch guarantees it runs once per session.
//
// All session fields are guarded by one mutex and exposed only as immutable
// alarm.Session snapshots.
package session
