package calibrator

import (
	"context"
	"testing"
	"time"

	"github.com/djentronome/rhythm-core/internal/domain"
)

// fakeClock reports an incrementing game time on each call, simulating
// wall-clock advancement without any cross-goroutine shared state.
type fakeClock struct{ ms float64 }

func (f *fakeClock) GameTimeMs() float64 {
	f.ms += 100
	return f.ms
}

type fakeCue struct{ plays int }

func (f *fakeCue) Play() error { f.plays++; return nil }
func (f *fakeCue) Stop()       {}

func TestRunSessionRecordsSamplesAndFinishes(t *testing.T) {
	c, ctx := newTestCalibrator(t)
	clk := &fakeClock{}
	player := &fakeCue{}

	hits := make(chan domain.HitEvent, 1)
	go func() {
		for i := 0; i < 5; i++ {
			hits <- domain.HitEvent{Kind: domain.Kick, RawTimestampMs: float64(i)*100 + 110, DeviceID: "pad-1"}
		}
	}()

	profile, err := c.RunSession(ctx, "pad-1", "midi", clk, player, hits, 5, time.Second)
	if err != nil {
		t.Fatalf("RunSession: %v", err)
	}
	if player.plays != 5 {
		t.Fatalf("expected the cue to play once per sample (5), got %d", player.plays)
	}
	if profile.InputOffsetMs < 9.9 || profile.InputOffsetMs > 10.1 {
		t.Fatalf("expected ~10ms offset, got %v", profile.InputOffsetMs)
	}
}

func TestRunSessionDiscardsTimedOutSamples(t *testing.T) {
	c, ctx := newTestCalibrator(t)
	clk := &fakeClock{}
	player := &fakeCue{}

	hits := make(chan domain.HitEvent) // never sent to — every sample times out

	_, err := c.RunSession(ctx, "pad-2", "midi", clk, player, hits, 3, 5*time.Millisecond)
	if err == nil {
		t.Fatal("expected insufficient-samples error when every sample times out")
	}
}

func TestRunSessionEstablishesClockTranslatorFromFirstSample(t *testing.T) {
	c, ctx := newTestCalibrator(t)
	clk := &fakeClock{}
	player := &fakeCue{}

	hits := make(chan domain.HitEvent, 1)
	go func() {
		for i := 0; i < 3; i++ {
			hits <- domain.HitEvent{Kind: domain.Kick, RawTimestampMs: float64(i)*100 + 110, DeviceID: "pad-3"}
		}
	}()

	if c.ClockTranslator().Established() {
		t.Fatal("expected translator unestablished before any session runs")
	}

	if _, err := c.RunSession(ctx, "pad-3", "midi", clk, player, hits, 3, time.Second); err != nil {
		t.Fatalf("RunSession: %v", err)
	}
	if !c.ClockTranslator().Established() {
		t.Fatal("expected the clock translator to be established from the first recorded sample")
	}
}

func TestRunSessionRespectsContextCancellation(t *testing.T) {
	c, _ := newTestCalibrator(t)
	clk := &fakeClock{}
	player := &fakeCue{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	hits := make(chan domain.HitEvent)
	if _, err := c.RunSession(ctx, "pad-4", "midi", clk, player, hits, 3, time.Second); err == nil {
		t.Fatal("expected a cancelled context to abort the session")
	}
}
