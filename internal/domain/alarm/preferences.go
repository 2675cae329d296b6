package alarm

import "time"

const (
	// DefaultSound is used when no sound was selected or the selected one is missing.
	DefaultSound = "urgent"
	// DefaultVolume is the initial playback volume.
	DefaultVolume = 0.5
)

// Preferences holds the selected alarm sound and volume.
type Preferences struct {
	// SoundID is the catalog id of the selected sound.
	SoundID string `json:"current_sound"`
	// Volume is the playback volume in [0, 1].
	Volume float64 `json:"volume"`
	// LastUsed is when the preferences were last written.
	LastUsed time.Time `json:"last_used"`
}

// DefaultPreferences returns the preferences used before anything was saved.
func DefaultPreferences() Preferences {
	return Preferences{
		SoundID: DefaultSound,
		Volume:  DefaultVolume,
	}
}

// ClampVolume limits v to [0, 1].
func ClampVolume(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
