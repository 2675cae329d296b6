package alarm

import "errors"

var (
	// ErrCapacityExceeded is returned when adding an alarm beyond MaxAlarms.
	ErrCapacityExceeded = errors.New("alarm capacity exceeded")
	// ErrPersistenceFailed wraps load and save failures of the persistence collaborator.
	ErrPersistenceFailed = errors.New("persistence failed")
	// ErrCollaboratorUnavailable is reported when the camera or audio device cannot be opened.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	// ErrCollaboratorTimeout is reported when a collaborator call exceeds its deadline.
	ErrCollaboratorTimeout = errors.New("collaborator call timed out")
	// ErrAlarmNotFound is returned for operations on an unknown alarm id.
	ErrAlarmNotFound = errors.New("alarm not found")
	// ErrInvalidTime is returned for malformed or out of range times of day.
	ErrInvalidTime = errors.New("invalid time of day")
	// ErrUnknownSound is returned when selecting a sound that is not in the catalog.
	ErrUnknownSound = errors.New("unknown sound")
	// ErrNotRinging is returned by stop requests when no session is ringing.
	ErrNotRinging = errors.New("no alarm is ringing")
	// ErrAlarmMismatch is returned when a stop names an alarm other than the ringing one.
	ErrAlarmMismatch = errors.New("alarm is not the ringing one")
)
