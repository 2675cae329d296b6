// Package alarm contains the core domain types of the smile alarm.
//
// It defines Alarm (a wall-clock time of day that may be armed), TimeOfDay
// with its next-occurrence arithmetic, the ringing Session snapshot, sound
// Preferences and the sentinel errors shared by every service.
package alarm
