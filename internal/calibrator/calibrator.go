// Package calibrator implements the Latency Calibrator: it measures
// and persists per-device timing offsets so a player's perceived hits
// align with expected note times, and exposes the combined offset the
// judge applies to incoming hit timestamps.
package calibrator

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/djentronome/rhythm-core/internal/bus"
	"github.com/djentronome/rhythm-core/internal/domain"
	"github.com/djentronome/rhythm-core/internal/logger"
)

const keyPrefix = "calibration:"

// Option configures a Calibrator at construction time.
type Option func(*Calibrator)

// WithMinSamples sets the minimum sample count required to finish a
// session (default 3, per CalibrationError::NotEnoughSamples).
func WithMinSamples(n int) Option {
	return func(c *Calibrator) { c.minSamples = n }
}

// WithOutlierMADFactor sets the MAD multiple beyond which a sample is
// discarded as an outlier (default 3.0).
func WithOutlierMADFactor(f float64) Option {
	return func(c *Calibrator) { c.outlierMADFactor = f }
}

// Calibrator runs calibration sessions and holds the latest profile
// per device, persisted through an opaque key/value store.
type Calibrator struct {
	store domain.ProfileStore
	bus   *bus.Bus
	log   *logger.Logger

	minSamples       int
	outlierMADFactor float64

	translator ClockTranslator

	sessions map[string]*session
	profiles map[string]domain.CalibrationProfile
}

type session struct {
	deviceID    string
	inputMethod string
	deltas      []float64
}

// New creates a calibrator backed by store.
func New(store domain.ProfileStore, b *bus.Bus, log *logger.Logger, opts ...Option) *Calibrator {
	c := &Calibrator{
		store:            store,
		bus:              b,
		log:              log,
		minSamples:       3,
		outlierMADFactor: 3.0,
		sessions:         make(map[string]*session),
		profiles:         make(map[string]domain.CalibrationProfile),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartSession begins (or restarts) a calibration session for a device.
func (c *Calibrator) StartSession(deviceID, inputMethod string) {
	c.sessions[deviceID] = &session{deviceID: deviceID, inputMethod: inputMethod}
}

// RecordSample appends one calibration sample: the raw input
// timestamp of the user's hit and the game time the cue was scheduled
// for. Both in milliseconds.
func (c *Calibrator) RecordSample(deviceID string, rawInputMs, scheduledCueMs float64) error {
	s, ok := c.sessions[deviceID]
	if !ok {
		return fmt.Errorf("calibrator: no session started for device %q", deviceID)
	}
	s.deltas = append(s.deltas, rawInputMs-scheduledCueMs)
	return nil
}

// Finish computes the device's offset from the session's collected
// samples, persists it, and returns the resulting profile. Returns
// ErrCalibrationInsufficientSamples if fewer than the minimum required
// samples were recorded after outlier removal.
func (c *Calibrator) Finish(ctx context.Context, deviceID string) (domain.CalibrationProfile, error) {
	s, ok := c.sessions[deviceID]
	if !ok || len(s.deltas) < c.minSamples {
		return domain.CalibrationProfile{}, domain.ErrCalibrationInsufficientSamples
	}

	filtered, mean, stddev := removeOutliers(s.deltas, c.outlierMADFactor)
	if len(filtered) < c.minSamples {
		return domain.CalibrationProfile{}, domain.ErrCalibrationInsufficientSamples
	}

	offset := median(filtered)
	confidence := confidenceFor(mean, stddev)

	profile := domain.CalibrationProfile{
		DeviceID:       deviceID,
		InputMethod:    s.inputMethod,
		InputOffsetMs:  offset,
		LastCalibrated: time.Now(),
		Confidence:     confidence,
		LowConfidence:  confidence < 0.5,
	}

	if existing, ok := c.profiles[deviceID]; ok {
		profile.AudioOffsetMs = existing.AudioOffsetMs
		profile.VisualOffsetMs = existing.VisualOffsetMs
	}

	if err := c.persist(ctx, profile); err != nil {
		return domain.CalibrationProfile{}, fmt.Errorf("calibrator: persisting profile: %w", err)
	}

	c.profiles[deviceID] = profile
	delete(c.sessions, deviceID)

	c.bus.Emit(bus.Event{Kind: bus.CalibrationUpdated, Payload: profile})
	return profile, nil
}

// Profile returns the in-memory profile for a device, loading it from
// the store on first access. ok is false if no profile has ever been
// stored for the device — defaults (all offsets zero) should be used.
func (c *Calibrator) Profile(ctx context.Context, deviceID string) (domain.CalibrationProfile, bool, error) {
	if p, ok := c.profiles[deviceID]; ok {
		return p, true, nil
	}

	raw, found, err := c.store.Get(ctx, keyPrefix+deviceID)
	if err != nil {
		return domain.CalibrationProfile{}, false, fmt.Errorf("calibrator: loading profile for %q: %w", deviceID, err)
	}
	if !found {
		return domain.CalibrationProfile{}, false, nil
	}

	var p domain.CalibrationProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.CalibrationProfile{}, false, fmt.Errorf("calibrator: decoding profile for %q: %w", deviceID, err)
	}
	c.profiles[deviceID] = p
	return p, true, nil
}

func (c *Calibrator) persist(ctx context.Context, p domain.CalibrationProfile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.store.Put(ctx, keyPrefix+p.DeviceID, raw)
}

// CombinedOffsetMs returns AudioOffsetMs + InputOffsetMs for the named
// device, or zero if no profile has been calibrated yet.
func (c *Calibrator) CombinedOffsetMs(deviceID string) float64 {
	if p, ok := c.profiles[deviceID]; ok {
		return p.CombinedOffsetMs()
	}
	return 0
}

// CompensatedTimestampMs satisfies the offsetSource port the judge
// consumes: it first translates a raw hit timestamp out of the input
// clock's domain into game time via the cross-clock ClockTranslator —
// so the judge never touches a raw input clock value directly — then
// subtracts the device's combined audio+input offset.
func (c *Calibrator) CompensatedTimestampMs(deviceID string, rawMs float64) float64 {
	translated := c.translator.ToAudioClock(rawMs)
	return translated - c.CombinedOffsetMs(deviceID)
}

// ClockTranslator returns the calibrator's cross-clock-domain translator.
func (c *Calibrator) ClockTranslator() *ClockTranslator { return &c.translator }

func median(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func meanOf(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddevOf(xs []float64, mean float64) float64 {
	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}

// removeOutliers discards samples whose deviation from the median
// exceeds madFactor * MAD (median absolute deviation), returning the
// filtered samples plus the mean/stddev of the filtered set.
func removeOutliers(xs []float64, madFactor float64) ([]float64, float64, float64) {
	if len(xs) == 0 {
		return nil, 0, 0
	}

	med := median(xs)
	deviations := make([]float64, len(xs))
	for i, x := range xs {
		deviations[i] = math.Abs(x - med)
	}
	mad := median(deviations)

	var filtered []float64
	if mad == 0 {
		filtered = xs
	} else {
		threshold := madFactor * mad
		for _, x := range xs {
			if math.Abs(x-med) <= threshold {
				filtered = append(filtered, x)
			}
		}
	}

	mean := meanOf(filtered)
	return filtered, mean, stddevOf(filtered, mean)
}

// confidenceFor implements confidence = 1 - stddev/mean, clamped to [0,1].
func confidenceFor(mean, stddev float64) float64 {
	if mean == 0 {
		if stddev == 0 {
			return 1
		}
		return 0
	}
	c := 1 - math.Abs(stddev/mean)
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
