package clock

import "testing"

func TestFirstUpdateEstablishesBaselineOnly(t *testing.T) {
	c := New()
	steps, clipped := c.Update(0, 1.0/60.0, 0)
	if steps != 0 || clipped {
		t.Fatalf("expected 0 steps and no clip on first update, got %d, %v", steps, clipped)
	}
	if c.GameTimeMs() != 0 {
		t.Fatalf("expected game time 0, got %v", c.GameTimeMs())
	}
}

func TestCatchUpFrame(t *testing.T) {
	// Scenario A from the design: target_fps=60, frames at wall_ms 0, 100.
	c := New()
	fixedDt := 1.0 / 60.0

	c.Update(0, fixedDt, 0)
	steps, clipped := c.Update(100, fixedDt, 0)

	if steps != 6 {
		t.Fatalf("expected 6 steps for a 100ms frame at 60fps with no cap, got %d", steps)
	}
	if clipped {
		t.Fatalf("expected no clipping with maxSteps <= 0 (unbounded)")
	}
}

func TestCatchUpFrameClipsStepsAndRetainsRemainderInAccumulator(t *testing.T) {
	// Scenario A with the spiral-of-death guard applied: target_fps=60,
	// max_updates_per_frame=5, frames at wall_ms 0, 100. Spec invariant 5
	// requires game_time == 5/60s with the 1/60s remainder retained in
	// the accumulator, not discarded.
	c := New()
	fixedDt := 1.0 / 60.0

	c.Update(0, fixedDt, 5)
	steps, clipped := c.Update(100, fixedDt, 5)

	if steps != 5 {
		t.Fatalf("expected steps clipped to 5, got %d", steps)
	}
	if !clipped {
		t.Fatalf("expected clipped=true")
	}

	wantGameTimeMs := 5.0 / 60.0 * 1000.0
	if diff := c.GameTimeMs() - wantGameTimeMs; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("expected game time %.6fms, got %.6fms", wantGameTimeMs, c.GameTimeMs())
	}

	wantRemainderSec := 1.0 / 60.0
	if diff := c.Interpolation()*fixedDt - wantRemainderSec; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("expected accumulator remainder %.6fs, got %.6fs", wantRemainderSec, c.Interpolation()*fixedDt)
	}

	// The retained remainder must be consumed on the next frame rather
	// than lost: a frame with zero further elapsed wall time should
	// immediately yield one more step from the carried-over accumulator.
	steps, clipped = c.Update(100, fixedDt, 5)
	if steps != 1 {
		t.Fatalf("expected 1 step from the retained remainder on a zero-elapsed follow-up frame, got %d", steps)
	}
	if clipped {
		t.Fatalf("expected no clip once the backlog has drained below the cap")
	}
}

func TestGameTimeNeverDecreases(t *testing.T) {
	c := New()
	fixedDt := 1.0 / 60.0

	last := 0.0
	wall := 0.0
	for i := 0; i < 50; i++ {
		wall += 16.6
		c.Update(wall, fixedDt, 0)
		if c.GameTimeMs() < last {
			t.Fatalf("game time decreased: %v -> %v", last, c.GameTimeMs())
		}
		last = c.GameTimeMs()
	}
}

func TestPauseZeroesDelta(t *testing.T) {
	c := New()
	fixedDt := 1.0 / 60.0

	c.Update(0, fixedDt, 0)
	c.Pause()
	c.Update(100, fixedDt, 0)

	if c.DeltaTimeSec() != 0 {
		t.Fatalf("expected zero delta while paused, got %v", c.DeltaTimeSec())
	}
	if c.Interpolation() != 0 {
		t.Fatalf("expected zero interpolation while paused, got %v", c.Interpolation())
	}
}

func TestPauseResumeZeroElapsedLeavesGameTimeUnchanged(t *testing.T) {
	c := New()
	fixedDt := 1.0 / 60.0

	c.Update(0, fixedDt, 0)
	before := c.GameTimeMs()

	c.Pause()
	c.Resume()
	c.Update(0, fixedDt, 0)

	if c.GameTimeMs() != before {
		t.Fatalf("expected game time unchanged across zero-elapsed pause/resume, got %v -> %v", before, c.GameTimeMs())
	}
}

func TestResumeDoesNotProduceCatchUpSpike(t *testing.T) {
	c := New()
	fixedDt := 1.0 / 60.0

	c.Update(0, fixedDt, 0)
	c.Update(500, fixedDt, 0) // play for half a second
	atPause := c.GameTimeMs()

	c.Pause()
	c.Update(10500, fixedDt, 0) // 10s wall clock elapse while paused
	c.Resume()

	steps, _ := c.Update(10516, fixedDt, 0) // one frame after resume
	if steps > 1 {
		t.Fatalf("expected at most 1 step immediately after resume, got %d", steps)
	}
	if c.GameTimeMs() < atPause {
		t.Fatalf("game time decreased across pause: %v -> %v", atPause, c.GameTimeMs())
	}
}

func TestSetTimeScaleRejectsNegative(t *testing.T) {
	c := New()
	c.SetTimeScale(-1)
	if c.TimeScale() != 0 {
		t.Fatalf("expected negative time scale clamped to 0, got %v", c.TimeScale())
	}
}

func TestSetTimeScaleRoundTrip(t *testing.T) {
	c := New()
	fixedDt := 1.0 / 60.0
	c.Update(0, fixedDt, 0)

	c.SetTimeScale(2.0)
	c.Update(1000, fixedDt, 0)
	doubled := c.GameTimeMs()

	c.Reset()
	c.Update(0, fixedDt, 0)
	c.SetTimeScale(2.0)
	c.SetTimeScale(1.0)
	c.Update(1000, fixedDt, 0)
	normal := c.GameTimeMs()

	if doubled <= normal {
		t.Fatalf("expected 2x time scale to advance further than 1x: %v vs %v", doubled, normal)
	}
}
