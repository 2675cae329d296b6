// Package sound manages the alarm sound catalog and the persisted sound
// preferences, and previews sounds through the shared audio deck.
package sound

import domain "github.com/oshokin/smile-alarm/internal/domain/alarm"

// Sound is a catalog entry.
type Sound struct {
	// ID is the stable identifier, also the WAV file base name.
	ID string
	// Name is shown to the user.
	Name string
}

var catalog = []Sound{
	{ID: "gentle", Name: "Gentle Morning"},
	{ID: domain.DefaultSound, Name: "Urgent Alarm"},
	{ID: "melodic", Name: "Melodic Tone"},
	{ID: "beeping", Name: "Beeping Sound"},
	{ID: "chirping", Name: "Bird Chirping"},
	{ID: "digital", Name: "Digital Beep"},
}

// Catalog returns the available sounds in display order.
func Catalog() []Sound {
	result := make([]Sound, len(catalog))
	copy(result, catalog)

	return result
}

// Lookup finds a sound by id.
func Lookup(id string) (Sound, bool) {
	for _, s := range catalog {
		if s.ID == id {
			return s, true
		}
	}

	return Sound{}, false
}
