// Package audioloop re-issues playback on a fixed cadence while an alarm is
// ringing and arbitrates the single audio device between the ringing session
// and sound previews.
package audioloop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oshokin/smile-alarm/internal/resilience"
)

// Player is the audio playback device.
type Player interface {
	Load(path string) error
	Play() error
	Pause() error
	Seek(offset time.Duration) error
	SetVolume(volume float64) error
}

// Owner identifies who currently holds the deck.
type Owner string

const (
	// OwnerRinging is the alarm session loop.
	OwnerRinging Owner = "ringing"
	// OwnerPreview is a user requested sound test.
	OwnerPreview Owner = "preview"
)

// Track is a sound file with its playback volume.
type Track struct {
	Path   string
	Volume float64
}

// Deck serialises access to a Player and remembers which track is loaded,
// so a preview can override the ringing track and the ringing loop reloads
// its own track on its next cadence tick.
type Deck struct {
	player  Player
	timeout time.Duration

	mu     sync.Mutex
	loaded string
	owner  Owner
}

// NewDeck wraps player. Every device call is bounded by timeout.
func NewDeck(player Player, timeout time.Duration) *Deck {
	return &Deck{
		player:  player,
		timeout: timeout,
	}
}

// PlayFromStart loads track if it is not already loaded, applies its volume
// and plays it from the beginning on behalf of owner.
func (d *Deck) PlayFromStart(ctx context.Context, owner Owner, track Track) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	// The caller may have been cancelled while waiting for the lock.
	if err := ctx.Err(); err != nil {
		return err
	}

	loaded := d.loaded

	err := resilience.Call(ctx, d.timeout, func(context.Context) error {
		if loaded != track.Path {
			if err := d.player.Load(track.Path); err != nil {
				return fmt.Errorf("load %s: %w", track.Path, err)
			}
		}

		if err := d.player.SetVolume(track.Volume); err != nil {
			return fmt.Errorf("set volume: %w", err)
		}

		if err := d.player.Seek(0); err != nil {
			return fmt.Errorf("seek: %w", err)
		}

		return d.player.Play()
	})
	if err != nil {
		d.loaded = ""
		return err
	}

	d.loaded = track.Path
	d.owner = owner

	return nil
}

// Release pauses playback if owner still holds the deck. A preview that took
// over the device is left alone.
func (d *Deck) Release(ctx context.Context, owner Owner) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.owner != owner {
		return nil
	}

	d.owner = ""

	return resilience.Call(ctx, d.timeout, func(context.Context) error {
		return d.player.Pause()
	})
}

// Owner reports who last started playback.
func (d *Deck) Owner() Owner {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.owner
}
