package domain

import "context"

// PatternSource loads a Pattern from an external source (file, asset
// bundle, network fetch — the core is agnostic). Implementations must
// return notes sorted ascending by TimeMs. This is the sole port
// permitted to suspend; it must not be called on the core thread
// during playback.
type PatternSource interface {
	Load(ctx context.Context, path string) (*Pattern, error)
}

// ProfileStore is an opaque key/value persistence capability used by
// the calibrator to survive across sessions. The core never assumes a
// specific storage backend.
type ProfileStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

// CuePlayer plays a short audio cue used during latency calibration.
// Play blocks until the cue finishes or Stop is called.
type CuePlayer interface {
	Play() error
	Stop()
}
