// Package alarms implements persistence for the alarm list.
//
// The FileRepository stores and loads the ordered list of alarm records as a
// JSON array on disk, overwriting the whole file on every save, and exposes a
// Repository interface that the alarm store depends on.
package alarms
