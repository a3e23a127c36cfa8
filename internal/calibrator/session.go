package calibrator

import (
	"context"
	"time"

	"github.com/djentronome/rhythm-core/internal/domain"
)

// gameClock is the minimal Time Provider surface a calibration session
// needs: the current game time, to stamp each cue's scheduled moment.
type gameClock interface {
	GameTimeMs() float64
}

// defaultSampleTimeout is the per-sample wait before a sample is
// discarded as unanswered (spec default: 5s).
const defaultSampleTimeout = 5 * time.Second

// RunSession drives the interactive calibration routine end to end:
// for sampleCount samples it schedules and plays an audio cue via cue
// at the clock's current game time, then waits up to timeout for a hit
// to arrive on hits. A hit that arrives in time is recorded as a
// sample; a sample that times out is discarded, matching the per-
// sample timeout in the cancellation & timeout rules. The clock
// reconciliation pair (t_audio_start, t_input_domain_start) is
// established from the first recorded sample, so every subsequent hit
// anywhere in the system — not just during calibration — is converted
// through the same translator before being compensated.
func (c *Calibrator) RunSession(ctx context.Context, deviceID, inputMethod string, clk gameClock, cue domain.CuePlayer, hits <-chan domain.HitEvent, sampleCount int, timeout time.Duration) (domain.CalibrationProfile, error) {
	if timeout <= 0 {
		timeout = defaultSampleTimeout
	}

	c.StartSession(deviceID, inputMethod)

	for i := 0; i < sampleCount; i++ {
		scheduledAt := clk.GameTimeMs()
		if err := cue.Play(); err != nil {
			c.log.Warn("calibrator: cue playback failed on sample %d: %v", i, err)
		}

		select {
		case <-ctx.Done():
			return domain.CalibrationProfile{}, ctx.Err()
		case hit := <-hits:
			if !c.translator.Established() {
				c.translator.Establish(scheduledAt, hit.RawTimestampMs)
			}
			if err := c.RecordSample(deviceID, hit.RawTimestampMs, scheduledAt); err != nil {
				c.log.Warn("calibrator: recording sample %d: %v", i, err)
			}
		case <-time.After(timeout):
			c.log.Warn("calibrator: sample %d timed out after %s, discarded", i, timeout)
		}
	}

	return c.Finish(ctx, deviceID)
}
