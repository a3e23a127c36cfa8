package calibrator

// ClockTranslator maps timestamps between the audio-output clock
// domain and the input-device clock domain. On first input received
// after playback begins, the pair (audio_t0, input_t0) is established
// and used as a fixed affine transform for the rest of the session —
// the rest of the system never touches raw input clocks directly.
type ClockTranslator struct {
	audioT0     float64
	inputT0     float64
	established bool
}

// Establish records the first (audio_t0, input_t0) pair observed.
// Subsequent calls are no-ops until Reset.
func (t *ClockTranslator) Establish(audioT0, inputT0 float64) {
	if t.established {
		return
	}
	t.audioT0 = audioT0
	t.inputT0 = inputT0
	t.established = true
}

// Established reports whether the translator has recorded its baseline pair.
func (t *ClockTranslator) Established() bool { return t.established }

// ToAudioClock converts a timestamp from the input clock domain into
// the audio clock domain using the established affine transform. It
// returns the timestamp unchanged if no baseline has been established.
func (t *ClockTranslator) ToAudioClock(inputTs float64) float64 {
	if !t.established {
		return inputTs
	}
	return inputTs - t.inputT0 + t.audioT0
}

// Reset clears the established baseline.
func (t *ClockTranslator) Reset() {
	*t = ClockTranslator{}
}
