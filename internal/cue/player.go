// Package cue plays the short audio click used during latency
// calibration, via github.com/ebitengine/oto/v3.
package cue

import (
	"bytes"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/djentronome/rhythm-core/internal/domain"
	"github.com/djentronome/rhythm-core/internal/logger"
)

const (
	sampleRate   = 44100
	channelCount = 1
	clickFreqHz  = 1000.0
	clickMs      = 40.0
	clickAmp     = 0.6
)

// Compile-time interface check.
var _ domain.CuePlayer = (*Player)(nil)

// Player plays the calibration click through the system audio device.
type Player struct {
	ctx *oto.Context
	log *logger.Logger

	mu     sync.Mutex
	active *oto.Player
	pcm    []byte
}

// NewPlayer initializes the system audio context and pre-renders the
// click tone. Returns an error if the audio device is unavailable.
func NewPlayer(log *logger.Logger) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-readyChan

	log.Debug("cue player initialized (rate=%d, channels=%d)", sampleRate, channelCount)
	return &Player{
		ctx: ctx,
		log: log,
		pcm: generateClickPCM(sampleRate, clickFreqHz, clickMs, clickAmp),
	}, nil
}

// Play plays the click synchronously, blocking until it finishes or
// Stop is called.
func (p *Player) Play() error {
	player := p.ctx.NewPlayer(bytes.NewReader(p.pcm))

	p.mu.Lock()
	p.active = player
	p.mu.Unlock()

	player.Play()
	p.log.Debug("cue player: playing click (%d bytes)", len(p.pcm))

	for player.IsPlaying() {
		time.Sleep(2 * time.Millisecond)
	}

	p.mu.Lock()
	p.active = nil
	p.mu.Unlock()

	return player.Close()
}

// Stop interrupts playback if a click is currently sounding. Safe to
// call concurrently and when nothing is playing.
func (p *Player) Stop() {
	p.mu.Lock()
	active := p.active
	p.mu.Unlock()

	if active != nil {
		active.Pause()
		p.log.Debug("cue player: interrupted")
	}
}
