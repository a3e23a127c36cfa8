package cue

import (
	"github.com/djentronome/rhythm-core/internal/domain"
	"github.com/djentronome/rhythm-core/internal/logger"
)

// Compile-time interface check.
var _ domain.CuePlayer = (*NoOp)(nil)

// NoOp is a cue player that does nothing, used when no audio device
// is available (headless calibration, CI, tests).
type NoOp struct {
	log *logger.Logger
}

// NewNoOp creates a no-op cue player.
func NewNoOp(log *logger.Logger) *NoOp {
	return &NoOp{log: log}
}

// Play logs and returns immediately.
func (n *NoOp) Play() error {
	n.log.Debug("cue no-op: would play click")
	return nil
}

// Stop does nothing.
func (n *NoOp) Stop() {}
