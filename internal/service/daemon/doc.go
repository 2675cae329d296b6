// Package daemon runs the smile alarm: it wires the alarm store, sound
// preferences, camera and detector adapters, session controller and
// scheduler together and runs the clock, scheduler, control signal and
// command loops until the context is cancelled.
package daemon
