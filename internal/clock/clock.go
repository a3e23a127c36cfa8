// Package clock implements the deterministic fixed-timestep game
// clock that relates variable wall-clock frame timestamps to
// monotonically non-decreasing game time.
package clock

import "math"

// Clock translates wall-clock frame timestamps into game time. It is
// not safe for concurrent use — per the engine's single-threaded
// cooperative model, only the core thread ever calls Update.
type Clock struct {
	gameTimeSec   float64
	deltaTimeSec  float64
	lastWallMs    float64
	accumulator   float64
	interpolation float64
	paused        bool
	timeScale     float64

	established     bool // true once lastWallMs holds a real baseline
	needsRebaseline bool // set by Resume; consumed by the next Update
}

// New creates a clock at time zero, unpaused, with a time scale of 1.0.
func New() *Clock {
	return &Clock{timeScale: 1.0}
}

// Update advances the clock from a new wall-clock timestamp (in
// milliseconds) and reports how many fixed_dt steps the caller should
// now perform. maxSteps bounds how many of the pending steps are
// actually consumed — the spiral-of-death guard — with maxSteps <= 0
// meaning unbounded. Steps beyond maxSteps are NOT discarded: their
// worth of elapsed time stays in the accumulator and is carried into
// later frames, so game_time only ever advances by the steps actually
// granted, never by the full (possibly huge) raw delta. clipped
// reports whether the guard actually bit this call. The first call
// (or the first call after Resume) only establishes a baseline and
// returns zero steps, so a long gap — a cold start or a long pause —
// never produces a delta spike.
func (c *Clock) Update(wallMs float64, fixedDt float64, maxSteps int) (steps int, clipped bool) {
	if !c.established || c.needsRebaseline {
		c.lastWallMs = wallMs
		c.established = true
		c.needsRebaseline = false
		c.deltaTimeSec = 0
		return 0, false
	}

	rawDelta := (wallMs - c.lastWallMs) / 1000.0 * c.timeScale
	c.lastWallMs = wallMs

	if c.paused {
		c.deltaTimeSec = 0
		c.interpolation = 0
		return 0, false
	}

	c.deltaTimeSec = rawDelta
	c.accumulator += rawDelta

	if fixedDt > 0 {
		steps = int(math.Floor(c.accumulator / fixedDt))
		if steps < 0 {
			steps = 0
		}
		if maxSteps > 0 && steps > maxSteps {
			steps = maxSteps
			clipped = true
		}
		c.gameTimeSec += float64(steps) * fixedDt
		c.accumulator -= float64(steps) * fixedDt
		c.interpolation = c.accumulator / fixedDt
	}

	return steps, clipped
}

// Pause freezes game-time advancement. Subsequent Update calls report
// a zero delta and zero interpolation until Resume.
func (c *Clock) Pause() {
	c.paused = true
}

// Resume unfreezes the clock. The next Update call re-baselines the
// wall clock instead of consuming the elapsed wall time as a delta,
// so a long pause never produces a catch-up spike.
func (c *Clock) Resume() {
	c.paused = false
	c.needsRebaseline = true
}

// IsPaused reports whether the clock is currently paused.
func (c *Clock) IsPaused() bool { return c.paused }

// SetTimeScale sets the rate at which game time advances relative to
// wall time. Negative scales are rejected and clamped to zero.
func (c *Clock) SetTimeScale(scale float64) {
	if scale < 0 {
		scale = 0
	}
	c.timeScale = scale
}

// TimeScale returns the current time scale.
func (c *Clock) TimeScale() float64 { return c.timeScale }

// Reset returns the clock to its zero state: game time, accumulator,
// and baseline all cleared, time scale restored to 1.0.
func (c *Clock) Reset() {
	*c = Clock{timeScale: 1.0}
}

// GameTimeSec returns the current game time in seconds. Never decreases.
func (c *Clock) GameTimeSec() float64 { return c.gameTimeSec }

// GameTimeMs returns the current game time in milliseconds.
func (c *Clock) GameTimeMs() float64 { return c.gameTimeSec * 1000.0 }

// DeltaTimeSec returns the most recent non-paused frame delta (wall
// delta scaled by the time scale), in seconds. Zero while paused or
// immediately after a baseline reset.
func (c *Clock) DeltaTimeSec() float64 { return c.deltaTimeSec }

// Interpolation returns the residual accumulator fraction in [0,1),
// for the renderer to interpolate between fixed updates.
func (c *Clock) Interpolation() float64 { return c.interpolation }
