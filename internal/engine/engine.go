// Package engine wires the six core components — clock, bus,
// scheduler, calibrator, pattern player, and judge — into the single
// Engine entry point external collaborators (a frame source and
// a MIDI adapter) drive.
package engine

import (
	"context"

	"github.com/djentronome/rhythm-core/internal/bus"
	"github.com/djentronome/rhythm-core/internal/calibrator"
	"github.com/djentronome/rhythm-core/internal/clock"
	"github.com/djentronome/rhythm-core/internal/domain"
	"github.com/djentronome/rhythm-core/internal/judge"
	"github.com/djentronome/rhythm-core/internal/logger"
	"github.com/djentronome/rhythm-core/internal/pattern"
	"github.com/djentronome/rhythm-core/internal/scheduler"
)

// Option configures an Engine at construction time.
type Option func(*options)

type options struct {
	targetFPS          int
	maxUpdatesPerFrame int
	perfWindow         int
	lookaheadMs        float64
	triggerBufferMs    float64
	hitWindows         domain.HitWindows
	scoringTable       domain.ScoringTable
	comboBreaksOnOk    bool
	ghostBreaksCombo   bool
	render             scheduler.RenderFunc

	calibrationSampleCount      int
	calibrationOutlierMADFactor float64
}

// WithTargetFPS sets the scheduler's fixed update rate (default 60).
func WithTargetFPS(fps int) Option { return func(o *options) { o.targetFPS = fps } }

// WithMaxUpdatesPerFrame sets the scheduler's spiral-of-death guard (default 5).
func WithMaxUpdatesPerFrame(n int) Option { return func(o *options) { o.maxUpdatesPerFrame = n } }

// WithPerfWindow sets the scheduler's rolling performance window size.
func WithPerfWindow(n int) Option { return func(o *options) { o.perfWindow = n } }

// WithLookaheadMs sets the pattern player's renderer lookahead window.
func WithLookaheadMs(ms float64) Option { return func(o *options) { o.lookaheadMs = ms } }

// WithTriggerBufferMs sets the pattern player's early-trigger buffer.
func WithTriggerBufferMs(ms float64) Option { return func(o *options) { o.triggerBufferMs = ms } }

// WithHitWindows overrides the judge's perfect/good/ok windows.
func WithHitWindows(w domain.HitWindows) Option { return func(o *options) { o.hitWindows = w } }

// WithScoringTable overrides the judge's per-accuracy point values.
func WithScoringTable(t domain.ScoringTable) Option { return func(o *options) { o.scoringTable = t } }

// WithComboBreaksOnOk makes an "ok" judgment reset combo.
func WithComboBreaksOnOk(v bool) Option { return func(o *options) { o.comboBreaksOnOk = v } }

// WithGhostHitBreaksCombo makes a ghost hit reset combo.
func WithGhostHitBreaksCombo(v bool) Option { return func(o *options) { o.ghostBreaksCombo = v } }

// WithRenderFunc installs the per-frame render callback (default: a no-op).
func WithRenderFunc(fn scheduler.RenderFunc) Option { return func(o *options) { o.render = fn } }

// WithCalibrationSampleCount sets the calibrator's minimum sample
// count required to finish a session (default 12).
func WithCalibrationSampleCount(n int) Option {
	return func(o *options) { o.calibrationSampleCount = n }
}

// WithCalibrationOutlierMADFactor sets the calibrator's MAD multiple
// beyond which a sample is discarded as an outlier (default 3.0).
func WithCalibrationOutlierMADFactor(f float64) Option {
	return func(o *options) { o.calibrationOutlierMADFactor = f }
}

// Engine is the single entry point the host drives: Tick from a frame
// source, OnHit from a MIDI adapter.
type Engine struct {
	clock      *clock.Clock
	bus        *bus.Bus
	scheduler  *scheduler.Scheduler
	player     *pattern.Player
	judge      *judge.Judge
	calibrator *calibrator.Calibrator
	log        *logger.Logger
}

// New wires a complete engine. store backs the calibrator's persisted
// profiles.
func New(store domain.ProfileStore, log *logger.Logger, opts ...Option) *Engine {
	o := &options{
		targetFPS:          60,
		maxUpdatesPerFrame: 5,
		perfWindow:         60,
		lookaheadMs:        500,
		triggerBufferMs:    10,
		hitWindows:         domain.DefaultHitWindows(),
		scoringTable:       domain.DefaultScoringTable(),
		render:             func(float64, float64) error { return nil },

		calibrationSampleCount:      12,
		calibrationOutlierMADFactor: 3.0,
	}
	for _, opt := range opts {
		opt(o)
	}

	b := bus.New(log)
	c := clock.New()
	cal := calibrator.New(store, b, log,
		calibrator.WithMinSamples(o.calibrationSampleCount),
		calibrator.WithOutlierMADFactor(o.calibrationOutlierMADFactor),
	)
	player := pattern.New(b, log, pattern.WithLookaheadMs(o.lookaheadMs), pattern.WithTriggerBufferMs(o.triggerBufferMs))
	j := judge.New(b, log,
		judge.WithHitWindows(o.hitWindows),
		judge.WithScoringTable(o.scoringTable),
		judge.WithComboBreaksOnOk(o.comboBreaksOnOk),
		judge.WithGhostHitBreaksCombo(o.ghostBreaksCombo),
	)

	e := &Engine{clock: c, bus: b, player: player, judge: j, calibrator: cal, log: log}

	e.scheduler = scheduler.New(c, b, log, e.update, o.render,
		scheduler.WithTargetFPS(o.targetFPS),
		scheduler.WithMaxUpdatesPerFrame(o.maxUpdatesPerFrame),
		scheduler.WithPerfWindow(o.perfWindow),
	)

	return e
}

// update is the scheduler's fixed-step UpdateFunc: it drives the
// player and judge from the current game time, in that order, so
// NOTE_TRIGGERED/SECTION_CHANGED precede HIT_JUDGED within the tick.
func (e *Engine) update(fixedDt float64) error {
	t := e.clock.GameTimeMs()
	e.player.Update(t)
	e.judge.Advance(t)
	return nil
}

// Tick drives one frame from a wall-clock timestamp in milliseconds.
// This is the sole entry point the external frame source calls.
func (e *Engine) Tick(wallMs float64) error {
	return e.scheduler.Tick(wallMs)
}

// LoadPattern loads pat into the player and attaches the judge to it.
func (e *Engine) LoadPattern(pat *domain.Pattern) {
	e.player.LoadPattern(pat)
	e.judge.Attach(pat, e.calibrator)
}

// LoadPatternFromPath delegates to src, an external pattern loader.
// Must not be called while playing (see domain.PatternSource docs).
func (e *Engine) LoadPatternFromPath(ctx context.Context, src domain.PatternSource, path string) error {
	if err := e.player.LoadPatternFromPath(ctx, src, path); err != nil {
		return err
	}
	e.judge.Attach(e.player.Pattern(), e.calibrator)
	return nil
}

// Start starts the scheduler and the pattern player together.
func (e *Engine) Start() error {
	e.scheduler.Start()
	return e.player.Start()
}

// Pause pauses the clock (via the scheduler) and the pattern player.
func (e *Engine) Pause() error {
	e.scheduler.Pause()
	return e.player.Pause()
}

// Resume resumes the clock and the pattern player.
func (e *Engine) Resume() error {
	e.scheduler.Resume()
	return e.player.Resume()
}

// Stop stops the scheduler and pattern player.
func (e *Engine) Stop() error {
	e.scheduler.Stop()
	return e.player.Stop()
}

// OnHit enqueues a hit event for judging at the start of the next
// fixed update. Safe to call from any goroutine (the MIDI adapter's).
func (e *Engine) OnHit(hit domain.HitEvent) {
	e.judge.OnHit(hit)
}

// On registers a bus handler for the given event kind.
func (e *Engine) On(kind bus.Kind, handler bus.Handler) bus.Token {
	return e.bus.Subscribe(kind, handler)
}

// GetScoreState returns the judge's current score/combo snapshot.
func (e *Engine) GetScoreState() domain.ScoreState {
	return e.judge.GetScoreState()
}

// GetPerfStats returns the scheduler's rolling performance snapshot.
func (e *Engine) GetPerfStats() scheduler.PerfStats {
	return e.scheduler.GetPerfStats()
}

// Lookahead returns notes scheduled within the player's lookahead window.
func (e *Engine) Lookahead() []domain.Note {
	return e.player.Lookahead(e.clock.GameTimeMs())
}

// Calibrator exposes the engine's latency calibrator for calibration
// routines driven by the host application.
func (e *Engine) Calibrator() *calibrator.Calibrator { return e.calibrator }

// Bus exposes the engine's event bus so external consumers (a HUD, a
// replay recorder) can subscribe without the engine needing to know
// about them.
func (e *Engine) Bus() *bus.Bus { return e.bus }

// PlayerState returns the pattern player's current lifecycle state.
func (e *Engine) PlayerState() pattern.State { return e.player.State() }
