// Command djentronome runs a demo harness around the rhythm timing
// engine: a simulated frame source drives Tick, a fixture hit source
// feeds the judge, and a terminal HUD renders the resulting score and
// judgment stream. The 3D note highway renderer and the real MIDI
// adapter are out of scope; this wiring stands in for both.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/djentronome/rhythm-core/internal/config"
	"github.com/djentronome/rhythm-core/internal/cue"
	"github.com/djentronome/rhythm-core/internal/domain"
	"github.com/djentronome/rhythm-core/internal/engine"
	"github.com/djentronome/rhythm-core/internal/hud"
	"github.com/djentronome/rhythm-core/internal/logger"
	"github.com/djentronome/rhythm-core/internal/patternstore"
	"github.com/djentronome/rhythm-core/internal/profilestore"
)

func main() {
	verbose := flag.Bool("verbose", false, "enable debug logging")
	quiet := flag.Bool("quiet", false, "disable all logging")
	logFile := flag.String("log-file", "", "write logs to this file instead of stderr")
	envFile := flag.String("env", ".env", "path to a .env file of overrides")
	patternID := flag.String("pattern", "four-on-the-floor", "fixture pattern to play")
	noHUD := flag.Bool("no-hud", false, "run headless, without the terminal HUD")
	calibrate := flag.Bool("calibrate", false, "run a latency calibration session before starting playback")
	calibrateDevice := flag.String("calibrate-device", "sim-pad", "device id to calibrate")
	flag.Parse()

	cfg := config.LoadEnv(*envFile)

	out := os.Stderr
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "djentronome: opening log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	level := logger.LevelNormal
	if *quiet {
		level = logger.LevelOff
	} else if *verbose {
		level = logger.LevelVerbose
	}
	log := logger.New(level, out)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	store := profilestore.NewMemoryStore(log)
	patterns := patternstore.NewMemorySource(log)

	eng := engine.New(store, log,
		engine.WithTargetFPS(cfg.TargetFPS),
		engine.WithMaxUpdatesPerFrame(cfg.MaxUpdatesPerFrame),
		engine.WithLookaheadMs(cfg.LookaheadMs),
		engine.WithTriggerBufferMs(cfg.TriggerBufferMs),
		engine.WithHitWindows(cfg.HitWindows),
		engine.WithComboBreaksOnOk(cfg.ComboBreaksOnOk),
		engine.WithGhostHitBreaksCombo(cfg.GhostHitBreaksCombo),
		engine.WithCalibrationSampleCount(cfg.CalibrationSampleCount),
		engine.WithCalibrationOutlierMADFactor(cfg.CalibrationOutlierMADFactor),
	)

	ctxLoad, cancelLoad := context.WithTimeout(ctx, 5*time.Second)
	defer cancelLoad()
	if err := eng.LoadPatternFromPath(ctxLoad, patterns, *patternID); err != nil {
		log.Error("djentronome: loading pattern %q: %v", *patternID, err)
		os.Exit(1)
	}

	if *calibrate {
		runCalibration(ctx, eng, log, *calibrateDevice, cfg.CalibrationSampleCount)
	}

	if err := eng.Start(); err != nil {
		log.Error("djentronome: starting: %v", err)
		os.Exit(1)
	}

	if *noHUD {
		runHeadless(ctx, eng, log)
		return
	}

	h := hud.New(eng.Bus())
	go simulateMIDI(ctx, eng)
	go driveFrames(ctx, eng, h, log)

	if err := h.Run(); err != nil {
		log.Error("djentronome: hud: %v", err)
		os.Exit(1)
	}
}

// wallClock adapts time.Since to the calibrator's gameClock port for
// the calibration routine, which runs independently of the engine's
// own Tick-driven clock (calibration happens before the pattern
// starts playing).
type wallClock struct{ start time.Time }

func (w wallClock) GameTimeMs() float64 { return float64(time.Since(w.start).Milliseconds()) }

// runCalibration drives the latency calibration protocol end to end:
// it opens the audio cue player (falling back to a no-op if the audio
// device is unavailable), feeds simulated human hits at a fixture
// jitter, and runs the calibrator's sampling session before handing
// control back to the caller. The resulting profile is persisted by
// the calibrator itself; its combined offset applies to later hits
// that carry the same device id.
func runCalibration(ctx context.Context, eng *engine.Engine, log *logger.Logger, deviceID string, sampleCount int) {
	var player domain.CuePlayer
	audioPlayer, err := cue.NewPlayer(log)
	if err != nil {
		log.Warn("djentronome: audio cue unavailable, falling back to no-op: %v", err)
		player = cue.NewNoOp(log)
	} else {
		player = audioPlayer
	}

	calCtx, cancel := context.WithTimeout(ctx, 90*time.Second)
	defer cancel()

	start := time.Now()
	hits := make(chan domain.HitEvent, 1)
	go simulateCalibrationHits(calCtx, start, deviceID, hits)

	profile, err := eng.Calibrator().RunSession(calCtx, deviceID, "midi", wallClock{start: start}, player, hits, sampleCount, 0)
	if err != nil {
		log.Warn("djentronome: calibration session failed: %v", err)
		return
	}
	log.Info("djentronome: calibrated device=%s offset=%.1fms confidence=%.2f",
		profile.DeviceID, profile.CombinedOffsetMs(), profile.Confidence)
}

// simulateCalibrationHits stands in for a human hitting a calibration
// pad shortly after each cue: a short, slightly randomized delay
// after the routine requests a sample.
func simulateCalibrationHits(ctx context.Context, start time.Time, deviceID string, hits chan<- domain.HitEvent) {
	for {
		delay := 120*time.Millisecond + time.Duration(rand.Intn(60))*time.Millisecond
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
			select {
			case hits <- domain.HitEvent{Kind: domain.Kick, RawTimestampMs: float64(time.Since(start).Milliseconds()), DeviceID: deviceID}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// simulateMIDI stands in for a real drum-kit MIDI adapter: for every
// note that enters the lookahead window it schedules a single hit at
// the note's own timestamp plus a small human-like jitter, then feeds
// it to the engine once that moment arrives.
func simulateMIDI(ctx context.Context, eng *engine.Engine) {
	start := time.Now()
	scheduled := make(map[float64]bool)
	type pending struct {
		fireAtMs float64
		kind     domain.HitKind
	}
	var queue []pending

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			nowMs := float64(time.Since(start).Milliseconds())

			for _, n := range eng.Lookahead() {
				if scheduled[n.TimeMs] {
					continue
				}
				scheduled[n.TimeMs] = true
				jitter := (rand.Float64() - 0.5) * 16 // +/- 8ms human jitter
				queue = append(queue, pending{fireAtMs: n.TimeMs + jitter, kind: n.Kind})
			}

			remaining := queue[:0]
			for _, p := range queue {
				if nowMs >= p.fireAtMs {
					eng.OnHit(domain.HitEvent{Kind: p.kind, RawTimestampMs: nowMs, DeviceID: "sim"})
					continue
				}
				remaining = append(remaining, p)
			}
			queue = remaining
		}
	}
}

func driveFrames(ctx context.Context, eng *engine.Engine, h *hud.HUD, log *logger.Logger) {
	start := time.Now()
	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			wallMs := float64(time.Since(start).Milliseconds())
			if err := eng.Tick(wallMs); err != nil {
				log.Warn("djentronome: tick: %v", err)
			}
			h.PushScore(eng.GetScoreState())
		}
	}
}

func runHeadless(ctx context.Context, eng *engine.Engine, log *logger.Logger) {
	start := time.Now()
	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			score := eng.GetScoreState()
			log.Info("djentronome: final score=%d combo=%d max_combo=%d", score.Score, score.Combo, score.MaxCombo)
			return
		case <-ticker.C:
			wallMs := float64(time.Since(start).Milliseconds())
			if err := eng.Tick(wallMs); err != nil {
				log.Warn("djentronome: tick: %v", err)
			}
		}
	}
}
