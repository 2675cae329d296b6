// Package audio plays 16-bit PCM WAV files through the system audio device
// with github.com/ebitengine/oto/v3.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// ErrNoTrack is returned by Play before anything was loaded.
var ErrNoTrack = errors.New("no track loaded")

// An oto context can be created only once per process and fixes the output format.
var (
	contextOnce   sync.Once
	sharedContext *oto.Context
	sharedFormat  wavFormat
	errContext    error
)

func outputContext(format wavFormat) (*oto.Context, error) {
	contextOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   format.SampleRate,
			ChannelCount: format.Channels,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			errContext = fmt.Errorf("create audio context: %w", err)
			return
		}

		// Wait for the hardware audio devices to be ready.
		<-ready

		sharedContext = ctx
		sharedFormat = format
	})

	if errContext != nil {
		return nil, errContext
	}

	if format != sharedFormat {
		return nil, fmt.Errorf("%w: output is %d Hz x %d, file is %d Hz x %d", ErrUnsupportedWAV,
			sharedFormat.SampleRate, sharedFormat.Channels, format.SampleRate, format.Channels)
	}

	return sharedContext, nil
}

// OtoPlayer is a single-track player.
type OtoPlayer struct {
	mu     sync.Mutex
	player *oto.Player
	format wavFormat
	volume float64
}

// NewOtoPlayer creates a player at full volume. The audio device is opened on
// the first Load.
func NewOtoPlayer() *OtoPlayer {
	return &OtoPlayer{volume: 1}
}

// Load replaces the current track with the WAV file at path.
func (p *OtoPlayer) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read sound file: %w", err)
	}

	format, pcm, err := parseWAV(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	ctx, err := outputContext(format)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	_ = p.closeLocked()

	p.player = ctx.NewPlayer(bytes.NewReader(pcm))
	p.player.SetVolume(p.volume)
	p.format = format

	return nil
}

// Play starts or resumes playback without waiting for it to finish.
func (p *OtoPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.player == nil {
		return ErrNoTrack
	}

	p.player.Play()

	return nil
}

// Pause pauses playback.
func (p *OtoPlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.player != nil {
		p.player.Pause()
	}

	return nil
}

// Seek moves the playback position to offset from the start of the track.
func (p *OtoPlayer) Seek(offset time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.player == nil {
		return ErrNoTrack
	}

	if _, err := p.player.Seek(byteOffset(p.format, offset), io.SeekStart); err != nil {
		return fmt.Errorf("seek: %w", err)
	}

	return nil
}

// SetVolume sets the volume in [0, 1].
func (p *OtoPlayer) SetVolume(volume float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.volume = volume

	if p.player != nil {
		p.player.SetVolume(volume)
	}

	return nil
}

// Close releases the current track.
func (p *OtoPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.closeLocked()
}

func (p *OtoPlayer) closeLocked() error {
	if p.player == nil {
		return nil
	}

	p.player.Pause()
	err := p.player.Close()
	p.player = nil

	return err
}

// byteOffset converts a time offset into a frame aligned byte offset.
func byteOffset(format wavFormat, offset time.Duration) int64 {
	if offset <= 0 || format.SampleRate == 0 {
		return 0
	}

	frames := int64(offset) * int64(format.SampleRate) / int64(time.Second)

	return frames * int64(format.frameSize())
}
