package judge

import (
	"errors"
	"testing"

	"github.com/djentronome/rhythm-core/internal/bus"
	"github.com/djentronome/rhythm-core/internal/domain"
	"github.com/djentronome/rhythm-core/internal/logger"
)

func newTestJudge(t *testing.T) (*Judge, *bus.Bus) {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	b := bus.New(log)
	return New(b, log), b
}

func TestPerfectHit(t *testing.T) {
	// Scenario B: note at 1000ms, hit at raw 1015ms, no offset.
	j, b := newTestJudge(t)
	pattern := &domain.Pattern{Notes: []domain.Note{{TimeMs: 1000, Kind: domain.Kick}}}
	j.Attach(pattern, nil)

	var got domain.Judgment
	b.Subscribe(bus.HitJudged, func(e bus.Event) error { got = e.Payload.(domain.Judgment); return nil })

	j.OnHit(domain.HitEvent{Kind: domain.Kick, RawTimestampMs: 1015})
	j.Advance(1015)

	if got.Accuracy != domain.Perfect {
		t.Fatalf("expected perfect, got %s", got.Accuracy)
	}
	if got.DeltaMs != 15 {
		t.Fatalf("expected delta +15, got %v", got.DeltaMs)
	}
	score := j.GetScoreState()
	if score.Score != 100 || score.Combo != 1 {
		t.Fatalf("expected score 100 combo 1, got score=%d combo=%d", score.Score, score.Combo)
	}
}

type fixedOffset float64

func (f fixedOffset) CompensatedTimestampMs(_ string, rawMs float64) float64 { return rawMs - float64(f) }

func TestLatencyCompensatedHit(t *testing.T) {
	// Scenario C: combined offset 50ms, raw timestamp 1050ms -> compensated 1000ms.
	j, b := newTestJudge(t)
	pattern := &domain.Pattern{Notes: []domain.Note{{TimeMs: 1000, Kind: domain.Kick}}}
	j.Attach(pattern, fixedOffset(50))

	var got domain.Judgment
	b.Subscribe(bus.HitJudged, func(e bus.Event) error { got = e.Payload.(domain.Judgment); return nil })

	j.OnHit(domain.HitEvent{Kind: domain.Kick, RawTimestampMs: 1050})
	j.Advance(1050)

	if got.Accuracy != domain.Perfect || got.DeltaMs != 0 {
		t.Fatalf("expected perfect delta 0, got %s delta=%v", got.Accuracy, got.DeltaMs)
	}
}

func TestMiss(t *testing.T) {
	// Scenario D: note at 1000ms snare, ok_window 100ms, no hit arrives.
	j, b := newTestJudge(t)
	pattern := &domain.Pattern{Notes: []domain.Note{{TimeMs: 1000, Kind: domain.Snare}}}
	j.Attach(pattern, nil)

	var got domain.Judgment
	misses := 0
	b.Subscribe(bus.HitJudged, func(e bus.Event) error {
		got = e.Payload.(domain.Judgment)
		misses++
		return nil
	})

	j.Advance(1101)

	if misses != 1 || got.Accuracy != domain.Miss {
		t.Fatalf("expected 1 miss, got %d (%s)", misses, got.Accuracy)
	}
	if j.GetScoreState().Combo != 0 {
		t.Fatalf("expected combo reset to 0 on miss")
	}
}

func TestMissBoundaryNotYetAtExactWindow(t *testing.T) {
	j, _ := newTestJudge(t)
	pattern := &domain.Pattern{Notes: []domain.Note{{TimeMs: 1000, Kind: domain.Snare}}}
	j.Attach(pattern, nil)

	j.Advance(1100) // exactly note.time_ms + ok_window_ms
	if j.GetScoreState().MissCount != 0 {
		t.Fatal("expected no miss yet exactly at the ok window boundary")
	}
}

func TestTieBreakSmallestAbsDeltaWins(t *testing.T) {
	// Scenario E: unjudged snares at 1000ms and 1005ms; hit at 1003ms.
	j, b := newTestJudge(t)
	pattern := &domain.Pattern{Notes: []domain.Note{
		{TimeMs: 1000, Kind: domain.Snare},
		{TimeMs: 1005, Kind: domain.Snare},
	}}
	j.Attach(pattern, nil)

	var got domain.Judgment
	b.Subscribe(bus.HitJudged, func(e bus.Event) error { got = e.Payload.(domain.Judgment); return nil })

	j.OnHit(domain.HitEvent{Kind: domain.Snare, RawTimestampMs: 1003})
	j.Advance(1003)

	if got.NoteIndex != 1 {
		t.Fatalf("expected the 1005ms note (smaller |delta|=2) to match, got note index %d", got.NoteIndex)
	}
}

func TestPauseResumeDoesNotDoubleTriggerMisses(t *testing.T) {
	j, b := newTestJudge(t)
	pattern := &domain.Pattern{Notes: []domain.Note{{TimeMs: 1000, Kind: domain.Kick}}}
	j.Attach(pattern, nil)

	misses := 0
	b.Subscribe(bus.HitJudged, func(bus.Event) error { misses++; return nil })

	j.Advance(1101)
	j.Advance(1200)
	j.Advance(1300)

	if misses != 1 {
		t.Fatalf("expected exactly 1 miss across repeated Advance calls, got %d", misses)
	}
}

func TestGhostHitDoesNotBreakComboByDefault(t *testing.T) {
	j, b := newTestJudge(t)
	pattern := &domain.Pattern{Notes: []domain.Note{{TimeMs: 1000, Kind: domain.Kick}}}
	j.Attach(pattern, nil)

	j.OnHit(domain.HitEvent{Kind: domain.Kick, RawTimestampMs: 1010})
	j.Advance(1010) // perfect hit, combo = 1

	var got domain.Judgment
	b.Subscribe(bus.HitJudged, func(e bus.Event) error { got = e.Payload.(domain.Judgment); return nil })
	j.OnHit(domain.HitEvent{Kind: domain.Snare, RawTimestampMs: 2000}) // no candidate -> ghost
	j.Advance(2000)

	if got.Accuracy != domain.Ghost {
		t.Fatalf("expected ghost, got %s", got.Accuracy)
	}
	if j.GetScoreState().Combo != 1 {
		t.Fatalf("expected combo unaffected by ghost hit, got %d", j.GetScoreState().Combo)
	}
}

func TestOrderingWithinOneAdvanceMissesThenMatchedThenGhosts(t *testing.T) {
	j, b := newTestJudge(t)
	pattern := &domain.Pattern{Notes: []domain.Note{
		{TimeMs: 500, Kind: domain.Kick},  // will be overdue -> miss
		{TimeMs: 1000, Kind: domain.Snare}, // will match
	}}
	j.Attach(pattern, nil)

	var order []domain.Accuracy
	b.Subscribe(bus.HitJudged, func(e bus.Event) error {
		order = append(order, e.Payload.(domain.Judgment).Accuracy)
		return nil
	})

	j.OnHit(domain.HitEvent{Kind: domain.Snare, RawTimestampMs: 1010})
	j.OnHit(domain.HitEvent{Kind: domain.HiHat, RawTimestampMs: 1010}) // no hihat note -> ghost
	j.Advance(1010)

	if len(order) != 3 {
		t.Fatalf("expected 3 judgments, got %d (%v)", len(order), order)
	}
	if order[0] != domain.Miss {
		t.Fatalf("expected miss first, got %v", order)
	}
	if order[1] != domain.Perfect && order[1] != domain.Good && order[1] != domain.Ok {
		t.Fatalf("expected a matched hit second, got %v", order)
	}
	if order[2] != domain.Ghost {
		t.Fatalf("expected ghost last, got %v", order)
	}
}

func TestScoreStateMultiplierScalesWithCombo(t *testing.T) {
	j, _ := newTestJudge(t)
	pattern := &domain.Pattern{}
	for i := 0; i < 25; i++ {
		pattern.Notes = append(pattern.Notes, domain.Note{TimeMs: float64(i * 100), Kind: domain.Kick})
	}
	j.Attach(pattern, nil)

	for i, n := range pattern.Notes {
		j.OnHit(domain.HitEvent{Kind: domain.Kick, RawTimestampMs: n.TimeMs})
		j.Advance(n.TimeMs)
		_ = i
	}

	score := j.GetScoreState()
	if score.Combo != 25 {
		t.Fatalf("expected combo 25, got %d", score.Combo)
	}
	if score.Multiplier < 1.0 || score.Multiplier > 10.0 {
		t.Fatalf("expected multiplier within [1,10], got %v", score.Multiplier)
	}
}

func TestScoreUsesPreIncrementMultiplier(t *testing.T) {
	// Each hit must be scored with the multiplier combo already earned
	// BEFORE this hit, not the multiplier the combo bump produces.
	j, _ := newTestJudge(t)
	pattern := &domain.Pattern{}
	const n = 12
	for i := 0; i < n; i++ {
		pattern.Notes = append(pattern.Notes, domain.Note{TimeMs: float64(i * 100), Kind: domain.Kick})
	}
	j.Attach(pattern, nil)

	var wantScore uint64
	combo := uint32(0)
	for _, note := range pattern.Notes {
		multiplierBefore := multiplierFor(combo)
		wantScore += uint64(int64(100 * float64(multiplierBefore)))
		combo++

		j.OnHit(domain.HitEvent{Kind: domain.Kick, RawTimestampMs: note.TimeMs})
		j.Advance(note.TimeMs)
	}

	got := j.GetScoreState().Score
	if got != wantScore {
		t.Fatalf("expected score %d using pre-increment multipliers, got %d", wantScore, got)
	}
}

func TestOnHitValidatedRejectsUnknownKind(t *testing.T) {
	j, _ := newTestJudge(t)
	j.Attach(&domain.Pattern{}, nil)

	if err := j.OnHitValidated(domain.HitEvent{Kind: domain.Kick, RawTimestampMs: 10}); err != nil {
		t.Fatalf("expected a known kind to be accepted, got %v", err)
	}
	if err := j.OnHitValidated(domain.HitEvent{Kind: domain.HitKind(99), RawTimestampMs: 10}); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}
