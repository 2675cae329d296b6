package alarm

// SessionState is the lifecycle state of the ringing session.
type SessionState int

const (
	// StateIdle means no alarm is ringing.
	StateIdle SessionState = iota
	// StateRinging means an alarm is sounding and smiles are being watched.
	StateRinging
	// StateStopping means the stop transition is in flight.
	StateStopping
)

// String returns the lower-case name of the state.
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRinging:
		return "ringing"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// StopReason tells why a ringing session ended.
type StopReason string

const (
	// StopSmile is a stop caused by a confirmed sustained smile.
	StopSmile StopReason = "smile"
	// StopManual is a stop requested through the manual override path.
	StopManual StopReason = "manual"
	// StopShutdown is a stop performed while the process shuts down.
	StopShutdown StopReason = "shutdown"
)

// Session is an immutable snapshot of the ringing session.
type Session struct {
	// State is the lifecycle state.
	State SessionState
	// ActiveAlarmID is set iff State is not StateIdle.
	ActiveAlarmID string
	// Smiling is the latest detector verdict.
	Smiling bool
	// Confidence is the latest detector confidence.
	Confidence float64
	// Progress is the detector confidence normalized to [0, 1].
	Progress float64
	// LastFrameSeq is the sequence number of the last analysed frame.
	LastFrameSeq uint64
	// LastStop tells why the previous session ended. Set only while idle.
	LastStop StopReason
}
