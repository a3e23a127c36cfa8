// Package scheduler drives the fixed-timestep simulation loop from a
// variable-rate external frame signal, bounding the work done per
// frame so the core never enters an unbounded catch-up spiral.
package scheduler

import (
	"fmt"

	"github.com/djentronome/rhythm-core/internal/bus"
	"github.com/djentronome/rhythm-core/internal/clock"
	"github.com/djentronome/rhythm-core/internal/logger"
)

// UpdateFunc runs one fixed-step simulation update.
type UpdateFunc func(fixedDt float64) error

// RenderFunc runs once per frame after the update loop, receiving the
// frame's delta (wall delta scaled by the clock's time scale, in
// seconds) and the clock's interpolation factor.
type RenderFunc func(deltaTime, interpolation float64) error

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithTargetFPS sets the fixed update rate (default 60).
func WithTargetFPS(fps int) Option {
	return func(s *Scheduler) {
		if fps > 0 {
			s.fixedDt = 1.0 / float64(fps)
		}
	}
}

// WithMaxUpdatesPerFrame sets the spiral-of-death guard (default 5).
func WithMaxUpdatesPerFrame(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxUpdatesPerFrame = n
		}
	}
}

// WithPerfWindow sets the size of the rolling performance window
// (default 60 samples).
func WithPerfWindow(n int) Option {
	return func(s *Scheduler) {
		s.perf = newPerfMonitor(n)
	}
}

// Scheduler calls UpdateFunc at a deterministic cadence regardless of
// the frame source's rate, and RenderFunc at most once per frame.
type Scheduler struct {
	clock *clock.Clock
	bus   *bus.Bus
	log   *logger.Logger

	fixedDt            float64
	maxUpdatesPerFrame int

	updateFn UpdateFunc
	renderFn RenderFunc

	perf *perfMonitor

	running          bool
	completedOnce    bool
}

// New creates a scheduler driving clk and publishing lifecycle events
// on b. updateFn and renderFn must be non-nil.
func New(clk *clock.Clock, b *bus.Bus, log *logger.Logger, updateFn UpdateFunc, renderFn RenderFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:              clk,
		bus:                b,
		log:                log,
		fixedDt:            1.0 / 60.0,
		maxUpdatesPerFrame: 5,
		updateFn:           updateFn,
		renderFn:           renderFn,
		perf:               newPerfMonitor(60),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start marks the scheduler running and emits a Start event. It does
// not spawn any goroutine — the caller drives the loop by calling Tick.
func (s *Scheduler) Start() {
	s.running = true
	s.bus.Emit(bus.Event{Kind: bus.Start, GameTimeMs: s.clock.GameTimeMs()})
}

// Stop marks the scheduler idle and emits a Stop event. Any
// in-progress frame (the current Tick call) completes first.
func (s *Scheduler) Stop() {
	s.running = false
	s.bus.Emit(bus.Event{Kind: bus.Stop, GameTimeMs: s.clock.GameTimeMs()})
}

// Pause freezes the underlying clock and emits a Pause event.
func (s *Scheduler) Pause() {
	s.clock.Pause()
	s.bus.Emit(bus.Event{Kind: bus.Pause, GameTimeMs: s.clock.GameTimeMs()})
}

// Resume unfreezes the underlying clock and emits a Resume event.
func (s *Scheduler) Resume() {
	s.clock.Resume()
	s.bus.Emit(bus.Event{Kind: bus.Resume, GameTimeMs: s.clock.GameTimeMs()})
}

// SetTimeScale forwards to the underlying clock.
func (s *Scheduler) SetTimeScale(scale float64) {
	s.clock.SetTimeScale(scale)
}

// On is a convenience wrapper over the bus for registering a handler.
func (s *Scheduler) On(kind bus.Kind, handler bus.Handler) bus.Token {
	return s.bus.Subscribe(kind, handler)
}

// GetPerfStats returns the current rolling performance snapshot.
func (s *Scheduler) GetPerfStats() PerfStats {
	return s.perf.stats()
}

// Tick drives one frame from a wall-clock timestamp in milliseconds.
// It advances the clock, runs up to MaxUpdatesPerFrame fixed updates,
// and renders once. Per the engine's ordering guarantee, within a
// single Tick the emitted bus events appear as: Update (once per
// fixed step, each followed by whatever the update function itself
// emits), then Render (once) — Update is never interleaved after
// Render in the same tick.
func (s *Scheduler) Tick(wallMs float64) error {
	if !s.running {
		return nil
	}

	steps, clipped := s.clock.Update(wallMs, s.fixedDt, s.maxUpdatesPerFrame)
	interpolation := s.clock.Interpolation()

	if s.clock.IsPaused() {
		frameErr := s.render(0, interpolation)
		s.perf.record(0, 0)
		return frameErr
	}

	if clipped {
		s.log.Warn("scheduler: clipping pending updates to %d (spiral-of-death guard), remainder carried in accumulator", s.maxUpdatesPerFrame)
	}

	ran := 0
	for i := 0; i < steps; i++ {
		if err := s.runUpdate(); err != nil {
			s.log.Warn("scheduler: update failed, stopping update loop for this frame: %v", err)
			break
		}
		ran++
	}

	frameErr := s.render(s.clock.DeltaTimeSec(), interpolation)
	s.perf.record(s.clock.DeltaTimeSec()*1000.0, ran)
	return frameErr
}

func (s *Scheduler) runUpdate() error {
	s.bus.Emit(bus.Event{Kind: bus.Update, GameTimeMs: s.clock.GameTimeMs()})
	err := s.safeUpdate()
	if err != nil {
		s.bus.Emit(bus.Event{
			Kind:       bus.Error,
			GameTimeMs: s.clock.GameTimeMs(),
			Payload:    bus.ErrorPayload{Original: bus.Event{Kind: bus.Update, GameTimeMs: s.clock.GameTimeMs()}, Err: err},
		})
		return err
	}
	return nil
}

func (s *Scheduler) safeUpdate() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("update panic: %v", r)
		}
	}()
	return s.updateFn(s.fixedDt)
}

func (s *Scheduler) render(deltaTime, interpolation float64) error {
	err := s.safeRender(deltaTime, interpolation)
	if err != nil {
		s.log.Warn("scheduler: render failed: %v", err)
		s.bus.Emit(bus.Event{
			Kind:       bus.Error,
			GameTimeMs: s.clock.GameTimeMs(),
			Payload:    bus.ErrorPayload{Original: bus.Event{Kind: bus.Render, GameTimeMs: s.clock.GameTimeMs()}, Err: err},
		})
		return nil // a render failure never interrupts the scheduler
	}
	s.bus.Emit(bus.Event{Kind: bus.Render, GameTimeMs: s.clock.GameTimeMs()})
	return nil
}

func (s *Scheduler) safeRender(deltaTime, interpolation float64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render panic: %v", r)
		}
	}()
	return s.renderFn(deltaTime, interpolation)
}
