package audioloop

import (
	"errors"
	"sync"
	"time"
)

var errDeviceBusy = errors.New("device busy")

// fakePlayer records every call made to it.
type fakePlayer struct {
	mu      sync.Mutex
	calls   []string
	loaded  string
	volume  float64
	playing bool
	failing bool
}

func (p *fakePlayer) record(call string) {
	p.calls = append(p.calls, call)
}

func (p *fakePlayer) Load(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("load " + path)

	if p.failing {
		return errDeviceBusy
	}

	p.loaded = path

	return nil
}

func (p *fakePlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("play")
	p.playing = true

	return nil
}

func (p *fakePlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("pause")
	p.playing = false

	return nil
}

func (p *fakePlayer) Seek(time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("seek")

	return nil
}

func (p *fakePlayer) SetVolume(v float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.volume = v

	return nil
}

func (p *fakePlayer) count(call string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0

	for _, c := range p.calls {
		if c == call {
			n++
		}
	}

	return n
}

func (p *fakePlayer) state() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.loaded, p.playing
}

func (p *fakePlayer) setFailing(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failing = v
}
