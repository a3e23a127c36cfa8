package domain

import "time"

// CalibrationProfile holds a device's measured latency offsets.
// Combined offset (AudioOffsetMs + InputOffsetMs) is subtracted from
// a hit's raw timestamp to align it to game time.
type CalibrationProfile struct {
	DeviceID      string
	InputMethod   string
	AudioOffsetMs float64
	VisualOffsetMs float64
	InputOffsetMs float64
	LastCalibrated time.Time
	Confidence    float64 // [0,1]
	LowConfidence bool
}

// CombinedOffsetMs returns the scalar subtracted from raw input
// timestamps to yield game-time-aligned input.
func (p CalibrationProfile) CombinedOffsetMs() float64 {
	return p.AudioOffsetMs + p.InputOffsetMs
}
