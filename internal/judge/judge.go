// Package judge implements the Rhythm Judge & Scorer: it matches
// incoming hit events to pattern notes within configurable hit
// windows, emits judgments, and tracks score/combo state.
package judge

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/djentronome/rhythm-core/internal/bus"
	"github.com/djentronome/rhythm-core/internal/domain"
	"github.com/djentronome/rhythm-core/internal/logger"
)

// Option configures a Judge at construction time.
type Option func(*Judge)

// WithHitWindows overrides the default 30/60/100ms hit windows.
func WithHitWindows(w domain.HitWindows) Option {
	return func(j *Judge) { j.windows = w }
}

// WithScoringTable overrides the default per-accuracy point values.
func WithScoringTable(t domain.ScoringTable) Option {
	return func(j *Judge) { j.scoring = t }
}

// WithComboBreaksOnOk makes an "ok" judgment reset combo (default false).
func WithComboBreaksOnOk(v bool) Option {
	return func(j *Judge) { j.comboBreaksOnOk = v }
}

// WithGhostHitBreaksCombo makes an unmatched hit reset combo (default false).
func WithGhostHitBreaksCombo(v bool) Option {
	return func(j *Judge) { j.ghostBreaksCombo = v }
}

// offsetSource converts a raw hit timestamp for a device into game
// time: translating it out of the input clock's domain and
// subtracting the device's combined latency offset. The calibrator
// satisfies this; tests can supply an identity stub.
type offsetSource interface {
	CompensatedTimestampMs(deviceID string, rawMs float64) float64
}

// zeroOffset is used when no calibrator is attached.
type zeroOffset struct{}

func (zeroOffset) CompensatedTimestampMs(_ string, rawMs float64) float64 { return rawMs }

// Judge matches hit events against a pattern's active note window and
// maintains score/combo state for one playback session.
type Judge struct {
	bus *bus.Bus
	log *logger.Logger

	windows          domain.HitWindows
	scoring          domain.ScoringTable
	comboBreaksOnOk  bool
	ghostBreaksCombo bool

	offsets offsetSource

	pattern *domain.Pattern
	judged  []bool

	pendingMu sync.Mutex
	pending   []domain.HitEvent

	score domain.ScoreState
}

// New creates a judge publishing to b.
func New(b *bus.Bus, log *logger.Logger, opts ...Option) *Judge {
	j := &Judge{
		bus:     b,
		log:     log,
		windows: domain.DefaultHitWindows(),
		scoring: domain.DefaultScoringTable(),
		offsets: zeroOffset{},
	}
	for _, opt := range opts {
		opt(j)
	}
	j.reset()
	return j
}

// Attach installs the pattern to judge against and the offset source
// used to compensate incoming hit timestamps. Resets score/combo state.
func (j *Judge) Attach(pattern *domain.Pattern, offsets offsetSource) {
	j.pattern = pattern
	j.judged = make([]bool, 0)
	if pattern != nil {
		j.judged = make([]bool, len(pattern.Notes))
	}
	if offsets != nil {
		j.offsets = offsets
	}
	j.reset()
}

func (j *Judge) reset() {
	j.score = domain.ScoreState{Multiplier: 1.0}
	j.pendingMu.Lock()
	j.pending = nil
	j.pendingMu.Unlock()
	if j.pattern != nil {
		for i := range j.judged {
			j.judged[i] = false
		}
	}
}

// Reset clears score/combo state and all per-note judgment marks, but
// keeps the attached pattern and offset source.
func (j *Judge) Reset() { j.reset() }

// OnHit enqueues a hit for processing at the start of the next
// Advance call. Safe to call from any goroutine — this is the
// thread-safe queue the engine's concurrency model requires at the
// MIDI-adapter boundary.
func (j *Judge) OnHit(hit domain.HitEvent) {
	j.pendingMu.Lock()
	j.pending = append(j.pending, hit)
	j.pendingMu.Unlock()
}

// OnHitValidated behaves like OnHit but rejects a hit whose Kind falls
// outside the closed HitKind set, for adapters that decode kind off
// the wire and cannot rely on the compiler to catch a bad value.
func (j *Judge) OnHitValidated(hit domain.HitEvent) error {
	if _, ok := domain.HitKindFromString(hit.Kind.String()); !ok {
		return fmt.Errorf("judge: hit kind %d: %w", hit.Kind, ErrUnknownKind)
	}
	j.OnHit(hit)
	return nil
}

func (j *Judge) drainPending() []domain.HitEvent {
	j.pendingMu.Lock()
	defer j.pendingMu.Unlock()
	if len(j.pending) == 0 {
		return nil
	}
	hits := j.pending
	j.pending = nil
	return hits
}

// GetScoreState returns a copy of the current score state.
func (j *Judge) GetScoreState() domain.ScoreState { return j.score }

// Advance retires overdue notes as misses, drains the pending hit
// queue, and matches or ghosts each hit — all for game time t. Events
// are emitted in the mandated order: misses (by note time), then
// matched hits (by hit arrival order), then ghost hits (by arrival
// order).
func (j *Judge) Advance(t float64) {
	if j.pattern == nil {
		return
	}

	j.emitMisses(t)

	hits := j.drainPending()
	if len(hits) == 0 {
		return
	}

	type outcome struct {
		hit domain.HitEvent
		j   domain.Judgment
	}
	var matched, ghosts []outcome

	for _, h := range hits {
		jd, ok := j.match(h, t)
		if ok {
			matched = append(matched, outcome{hit: h, j: jd})
		} else {
			ghosts = append(ghosts, outcome{hit: h, j: jd})
		}
	}

	for _, o := range matched {
		j.applyAndEmit(o.j)
	}
	for _, o := range ghosts {
		j.applyAndEmit(o.j)
	}
}

// emitMisses retires every unjudged note whose ok window has fully
// elapsed as of t, in ascending note-time order.
func (j *Judge) emitMisses(t float64) {
	type overdue struct {
		idx  int
		note domain.Note
	}
	var list []overdue
	for i, n := range j.pattern.Notes {
		if j.judged[i] {
			continue
		}
		if t > n.TimeMs+j.windows.OkMs {
			list = append(list, overdue{idx: i, note: n})
		}
	}
	sort.Slice(list, func(a, b int) bool { return list[a].note.TimeMs < list[b].note.TimeMs })

	for _, o := range list {
		j.judged[o.idx] = true
		jd := domain.Judgment{
			Note:       &j.pattern.Notes[o.idx],
			NoteIndex:  o.idx,
			Accuracy:   domain.Miss,
			DeltaMs:    j.windows.OkMs,
			GameTimeMs: t,
		}
		j.applyAndEmit(jd)
	}
}

// match finds the best unjudged, kind-matching candidate note for hit
// within the ok window and classifies the result. ok is false for a
// ghost hit (no candidate).
func (j *Judge) match(hit domain.HitEvent, t float64) (domain.Judgment, bool) {
	compensated := j.offsets.CompensatedTimestampMs(hit.DeviceID, hit.RawTimestampMs)

	best := -1
	var bestDelta float64
	for i, n := range j.pattern.Notes {
		if j.judged[i] || n.Kind != hit.Kind {
			continue
		}
		delta := compensated - n.TimeMs
		if math.Abs(delta) > j.windows.OkMs {
			continue
		}
		if best == -1 || math.Abs(delta) < math.Abs(bestDelta) ||
			(math.Abs(delta) == math.Abs(bestDelta) && n.TimeMs < j.pattern.Notes[best].TimeMs) {
			best = i
			bestDelta = delta
		}
	}

	hitCopy := hit
	if best == -1 {
		return domain.Judgment{
			Hit:        &hitCopy,
			Accuracy:   domain.Ghost,
			DeltaMs:    0,
			GameTimeMs: t,
		}, false
	}

	j.judged[best] = true
	accuracy := classify(bestDelta, j.windows)
	return domain.Judgment{
		Note:       &j.pattern.Notes[best],
		NoteIndex:  best,
		Hit:        &hitCopy,
		Accuracy:   accuracy,
		DeltaMs:    bestDelta,
		GameTimeMs: t,
	}, true
}

func classify(delta float64, w domain.HitWindows) domain.Accuracy {
	abs := math.Abs(delta)
	switch {
	case abs <= w.PerfectMs:
		return domain.Perfect
	case abs <= w.GoodMs:
		return domain.Good
	default:
		return domain.Ok
	}
}

// applyAndEmit updates score/combo for jd and publishes HIT_JUDGED.
// Per spec, the point award uses the multiplier in effect BEFORE this
// hit's combo change — scoring a hit at combo=10 uses the multiplier
// combo=10 already earned, not the multiplier combo=11 earns it.
func (j *Judge) applyAndEmit(jd domain.Judgment) {
	multiplierBefore := j.score.Multiplier

	switch jd.Accuracy {
	case domain.Perfect:
		j.score.Perfect++
		j.bumpCombo()
	case domain.Good:
		j.score.GoodCount++
		j.bumpCombo()
	case domain.Ok:
		j.score.OkCount++
		if j.comboBreaksOnOk {
			j.breakCombo()
		} else {
			j.bumpCombo()
		}
	case domain.Miss:
		j.score.MissCount++
		j.breakCombo()
	case domain.Ghost:
		j.score.GhostCount++
		if j.ghostBreaksCombo {
			j.breakCombo()
		}
	}

	points := j.basePoints(jd.Accuracy)
	delta := int64(float64(points) * float64(multiplierBefore))
	j.score.Score += uint64(delta)

	jd.ScoreDelta = delta
	jd.ComboAfter = j.score.Combo

	j.bus.Emit(bus.Event{
		Kind:       bus.HitJudged,
		GameTimeMs: jd.GameTimeMs,
		Payload:    jd,
	})
}

func (j *Judge) basePoints(a domain.Accuracy) int64 {
	switch a {
	case domain.Perfect:
		return j.scoring.Perfect
	case domain.Good:
		return j.scoring.Good
	case domain.Ok:
		return j.scoring.Ok
	default:
		return j.scoring.Miss
	}
}

func (j *Judge) bumpCombo() {
	j.score.Combo++
	if j.score.Combo > j.score.MaxCombo {
		j.score.MaxCombo = j.score.Combo
	}
	j.score.Multiplier = multiplierFor(j.score.Combo)
}

func (j *Judge) breakCombo() {
	j.score.Combo = 0
	j.score.Multiplier = multiplierFor(0)
}

// multiplierFor implements 1.0 + 0.1 * min(combo/10, 9), capped at 10.0.
func multiplierFor(combo uint32) float32 {
	tens := float64(combo) / 10.0
	if tens > 9 {
		tens = 9
	}
	m := 1.0 + 0.1*tens
	if m > 10.0 {
		m = 10.0
	}
	return float32(m)
}

// ErrUnknownKind is returned by OnHitValidated when a hit's kind is
// outside the closed HitKind set understood by the adapter boundary.
var ErrUnknownKind = fmt.Errorf("%w", domain.ErrUnknownHitKind)
