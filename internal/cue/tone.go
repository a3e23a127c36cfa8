package cue

import "math"

// generateClickPCM synthesizes a short, signed 16-bit mono PCM sine
// burst at freqHz for durationMs, with a linear fade-out over the
// final quarter to avoid an audible click at the tail. Used as the
// calibration audio cue instead of decoding an external WAV file —
// this engine owns no audio assets.
func generateClickPCM(sampleRate int, freqHz float64, durationMs float64, amplitude float64) []byte {
	numSamples := int(float64(sampleRate) * durationMs / 1000.0)
	out := make([]byte, numSamples*2) // 16-bit mono

	fadeStart := numSamples * 3 / 4
	for i := 0; i < numSamples; i++ {
		t := float64(i) / float64(sampleRate)
		sample := amplitude * math.Sin(2*math.Pi*freqHz*t)

		if i >= fadeStart && numSamples > fadeStart {
			fade := 1.0 - float64(i-fadeStart)/float64(numSamples-fadeStart)
			sample *= fade
		}

		v := int16(sample * 32767)
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}

	return out
}
