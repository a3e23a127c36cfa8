// Package config loads engine tunables from defaults overridable by
// environment variables (optionally read from a .env file), the way
// the source material's cmd/ entry point loads its own configuration.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/djentronome/rhythm-core/internal/domain"
)

// Config holds every tunable named in the engine's external-interfaces
// contract, with the spec's defaults.
type Config struct {
	TargetFPS          int
	MaxUpdatesPerFrame int

	LookaheadMs     float64
	TriggerBufferMs float64

	HitWindows domain.HitWindows

	CalibrationSampleCount     int
	CalibrationOutlierMADFactor float64

	ComboBreaksOnOk     bool
	GhostHitBreaksCombo bool

	PauseOnFocusLoss bool
}

// Default returns the spec's documented defaults.
func Default() Config {
	return Config{
		TargetFPS:                   60,
		MaxUpdatesPerFrame:          5,
		LookaheadMs:                 500,
		TriggerBufferMs:             10,
		HitWindows:                  domain.DefaultHitWindows(),
		CalibrationSampleCount:      12,
		CalibrationOutlierMADFactor: 3.0,
		ComboBreaksOnOk:             false,
		GhostHitBreaksCombo:         false,
		PauseOnFocusLoss:            true,
	}
}

// LoadEnv loads a .env file (if present — a missing file is not an
// error) via godotenv, then overlays any recognized DJENTRONOME_*
// environment variables onto Default().
func LoadEnv(envPath string) Config {
	_ = godotenv.Load(envPath)

	cfg := Default()
	overlayInt(&cfg.TargetFPS, "DJENTRONOME_TARGET_FPS")
	overlayInt(&cfg.MaxUpdatesPerFrame, "DJENTRONOME_MAX_UPDATES_PER_FRAME")
	overlayFloat(&cfg.LookaheadMs, "DJENTRONOME_LOOKAHEAD_MS")
	overlayFloat(&cfg.TriggerBufferMs, "DJENTRONOME_TRIGGER_BUFFER_MS")
	overlayFloat(&cfg.HitWindows.PerfectMs, "DJENTRONOME_PERFECT_WINDOW_MS")
	overlayFloat(&cfg.HitWindows.GoodMs, "DJENTRONOME_GOOD_WINDOW_MS")
	overlayFloat(&cfg.HitWindows.OkMs, "DJENTRONOME_OK_WINDOW_MS")
	overlayInt(&cfg.CalibrationSampleCount, "DJENTRONOME_CALIBRATION_SAMPLE_COUNT")
	overlayFloat(&cfg.CalibrationOutlierMADFactor, "DJENTRONOME_CALIBRATION_OUTLIER_MAD_FACTOR")
	overlayBool(&cfg.ComboBreaksOnOk, "DJENTRONOME_COMBO_BREAKS_ON_OK")
	overlayBool(&cfg.GhostHitBreaksCombo, "DJENTRONOME_GHOST_HIT_BREAKS_COMBO")
	overlayBool(&cfg.PauseOnFocusLoss, "DJENTRONOME_PAUSE_ON_FOCUS_LOSS")

	return cfg
}

func overlayInt(dst *int, envVar string) {
	if v, ok := os.LookupEnv(envVar); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func overlayFloat(dst *float64, envVar string) {
	if v, ok := os.LookupEnv(envVar); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func overlayBool(dst *bool, envVar string) {
	if v, ok := os.LookupEnv(envVar); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
