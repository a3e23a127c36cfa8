// Package pattern implements the Pattern Player: it converts an
// ordered, time-stamped Pattern into lookahead-windowed NOTE_TRIGGERED
// events synchronized to the game clock.
package pattern

import (
	"context"
	"fmt"

	"github.com/djentronome/rhythm-core/internal/bus"
	"github.com/djentronome/rhythm-core/internal/domain"
	"github.com/djentronome/rhythm-core/internal/logger"
)

// State is the player's explicit lifecycle state.
type State int

const (
	Idle State = iota
	Loaded
	Playing
	Paused
	Stopped
)

var stateNames = map[State]string{
	Idle:    "idle",
	Loaded:  "loaded",
	Playing: "playing",
	Paused:  "paused",
	Stopped: "stopped",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// NoteTriggeredPayload is the bus.NoteTriggered event payload.
type NoteTriggeredPayload struct {
	Note        domain.Note
	Index       int
	ScheduledMs float64
	GameTimeMs  float64
}

// SectionChangedPayload is the bus.SectionChanged event payload.
type SectionChangedPayload struct {
	Section    domain.Section
	GameTimeMs float64
}

// Option configures a Player at construction time.
type Option func(*Player)

// WithLookaheadMs sets the forward window exposed via Lookahead
// (default 500ms).
func WithLookaheadMs(ms float64) Option {
	return func(p *Player) { p.lookaheadMs = ms }
}

// WithTriggerBufferMs sets how far ahead of its scheduled time a note
// may fire (default 10ms).
func WithTriggerBufferMs(ms float64) Option {
	return func(p *Player) { p.triggerBufferMs = ms }
}

// Player drives note and section triggering for a single loaded
// Pattern against the shared game clock.
type Player struct {
	bus *bus.Bus
	log *logger.Logger

	lookaheadMs     float64
	triggerBufferMs float64

	state   State
	pattern *domain.Pattern

	triggered  []domain.TriggeredNote
	nextIdx    int
	sectionIdx int

	completedEmitted bool
}

// New creates a player publishing to b.
func New(b *bus.Bus, log *logger.Logger, opts ...Option) *Player {
	p := &Player{
		bus:             b,
		log:             log,
		lookaheadMs:     500,
		triggerBufferMs: 10,
		state:           Idle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the player's current lifecycle state.
func (p *Player) State() State { return p.state }

// Pattern returns the currently loaded pattern, or nil.
func (p *Player) Pattern() *domain.Pattern { return p.pattern }

// LoadPattern loads pat, resetting trigger state. If the player is
// currently Playing or Paused, the session is stopped first
// (stop-then-load) before the new pattern is installed.
func (p *Player) LoadPattern(pat *domain.Pattern) {
	if p.state == Playing || p.state == Paused {
		p.doStop()
	}

	p.pattern = pat
	p.triggered = make([]domain.TriggeredNote, len(pat.Notes))
	for i, n := range pat.Notes {
		p.triggered[i] = domain.TriggeredNote{Note: n, Index: i}
	}
	p.nextIdx = 0
	p.sectionIdx = 0
	p.completedEmitted = false
	p.state = Loaded

	p.bus.Emit(bus.Event{Kind: bus.PatternLoaded})
}

// LoadPatternFromPath delegates to an external PatternSource. This is
// the sole operation in the player that may suspend; it must not be
// called on the core thread during active playback.
func (p *Player) LoadPatternFromPath(ctx context.Context, src domain.PatternSource, path string) error {
	pat, err := src.Load(ctx, path)
	if err != nil {
		return fmt.Errorf("pattern: loading %q: %w", path, err)
	}
	p.LoadPattern(pat)
	return nil
}

// Start transitions to Playing, restarting from time zero. Valid from
// Loaded, Paused, or Stopped.
func (p *Player) Start() error {
	if p.pattern == nil {
		return domain.ErrPatternNotLoaded
	}
	switch p.state {
	case Loaded, Paused, Stopped:
		// start always restarts from time zero, even from Paused —
		// Resume is the operation that continues from the pause point.
		p.resetTriggerState()
		p.state = Playing
		p.bus.Emit(bus.Event{Kind: bus.PatternStarted})
		return nil
	default:
		return fmt.Errorf("pattern: start from %s: %w", p.state, domain.ErrInvalidState)
	}
}

// Pause transitions Playing -> Paused.
func (p *Player) Pause() error {
	if p.state != Playing {
		return fmt.Errorf("pattern: pause from %s: %w", p.state, domain.ErrInvalidState)
	}
	p.state = Paused
	p.bus.Emit(bus.Event{Kind: bus.PatternPaused})
	return nil
}

// Resume transitions Paused -> Playing, continuing from the current cursor.
func (p *Player) Resume() error {
	if p.state != Paused {
		return fmt.Errorf("pattern: resume from %s: %w", p.state, domain.ErrInvalidState)
	}
	p.state = Playing
	p.bus.Emit(bus.Event{Kind: bus.PatternResumed})
	return nil
}

// Stop transitions to Stopped; the pattern itself is retained so Start
// can replay it. Valid from Playing or Paused; a no-op elsewhere.
func (p *Player) Stop() error {
	if p.state != Playing && p.state != Paused {
		return nil
	}
	p.doStop()
	return nil
}

func (p *Player) doStop() {
	p.state = Stopped
	p.bus.Emit(bus.Event{Kind: bus.PatternStopped})
}

func (p *Player) resetTriggerState() {
	for i := range p.triggered {
		p.triggered[i].Triggered = false
		p.triggered[i].TriggeredAt = 0
		p.triggered[i].Judged = false
	}
	p.nextIdx = 0
	p.sectionIdx = 0
	p.completedEmitted = false
}

// Update triggers every note whose scheduled time has entered the
// window [*, t + trigger_buffer_ms], advances the section cursor, and
// detects pattern completion. It is a no-op outside the Playing
// state, matching PatternError::Unloaded semantics (idle, not an error).
func (p *Player) Update(gameTimeMs float64) {
	if p.state != Playing || p.pattern == nil {
		return
	}

	for p.nextIdx < len(p.pattern.Notes) && p.pattern.Notes[p.nextIdx].TimeMs <= gameTimeMs+p.triggerBufferMs {
		idx := p.nextIdx
		note := p.pattern.Notes[idx]
		p.triggered[idx].Triggered = true
		p.triggered[idx].TriggeredAt = gameTimeMs

		p.bus.Emit(bus.Event{
			Kind:       bus.NoteTriggered,
			GameTimeMs: gameTimeMs,
			Payload: NoteTriggeredPayload{
				Note:        note,
				Index:       idx,
				ScheduledMs: note.TimeMs,
				GameTimeMs:  gameTimeMs,
			},
		})
		p.nextIdx++
	}

	for p.sectionIdx < len(p.pattern.Sections) && gameTimeMs >= p.pattern.Sections[p.sectionIdx].StartMs {
		section := p.pattern.Sections[p.sectionIdx]
		p.bus.Emit(bus.Event{
			Kind:       bus.SectionChanged,
			GameTimeMs: gameTimeMs,
			Payload:    SectionChangedPayload{Section: section, GameTimeMs: gameTimeMs},
		})
		p.sectionIdx++
	}

	if !p.completedEmitted && p.nextIdx >= len(p.pattern.Notes) && gameTimeMs >= p.pattern.DurationMs {
		p.completedEmitted = true
		p.bus.Emit(bus.Event{Kind: bus.PatternCompleted, GameTimeMs: gameTimeMs})
		p.doStop()
	}
}

// Lookahead returns a read-only slice of notes scheduled within
// [t, t+lookahead_ms], for the renderer to draw approaching notes.
func (p *Player) Lookahead(gameTimeMs float64) []domain.Note {
	if p.pattern == nil {
		return nil
	}

	end := gameTimeMs + p.lookaheadMs
	var out []domain.Note
	for i := 0; i < len(p.pattern.Notes); i++ {
		n := p.pattern.Notes[i]
		if n.TimeMs < gameTimeMs {
			continue
		}
		if n.TimeMs > end {
			break
		}
		out = append(out, n)
	}
	return out
}

// TriggeredNotes returns the player's internal per-note trigger state.
// The judge keeps its own per-note judged marks and does not use this
// slice.
func (p *Player) TriggeredNotes() []domain.TriggeredNote {
	return p.triggered
}
