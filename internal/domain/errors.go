package domain

import "errors"

// Sentinel errors returned by the engine's core components. Callers
// should compare with errors.Is since most call sites wrap these with
// additional context via fmt.Errorf("...: %w", ...).
var (
	// ErrPatternNotLoaded is returned by the player's Start when no
	// pattern is loaded. Pause and Resume report ErrInvalidState instead.
	ErrPatternNotLoaded = errors.New("pattern: no pattern loaded")

	// ErrPatternNotFound is returned by a pattern loader when the
	// requested pattern does not exist at the given path or ID.
	ErrPatternNotFound = errors.New("pattern: not found")

	// ErrInvalidState is returned when a state-machine transition is
	// attempted from a state that does not permit it.
	ErrInvalidState = errors.New("pattern: invalid state transition")

	// ErrCalibrationInsufficientSamples is returned when a calibration
	// session is finished with fewer than the minimum required samples.
	ErrCalibrationInsufficientSamples = errors.New("calibration: not enough samples")

	// ErrCalibrationNotFound names the case where no stored profile
	// exists for a device. Calibrator.Profile reports that case with
	// found=false and a nil error, not with this sentinel.
	ErrCalibrationNotFound = errors.New("calibration: profile not found")

	// ErrUnknownEventKind names an event kind outside the closed
	// event-kind set. bus.KindFromString reports that case with
	// ok=false; no package in this module returns this sentinel.
	ErrUnknownEventKind = errors.New("bus: unknown event kind")

	// ErrUnknownHitKind is returned when a hit event names a drum kind
	// the judge does not recognize.
	ErrUnknownHitKind = errors.New("judge: unknown hit kind")
)
