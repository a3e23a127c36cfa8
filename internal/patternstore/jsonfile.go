package patternstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/djentronome/rhythm-core/internal/domain"
)

// Compile-time interface check.
var _ domain.PatternSource = (*JSONFileSource)(nil)

// JSONFileSource loads patterns from JSON files on disk. This is the
// one PatternSource implementation that actually suspends (file I/O);
// per the engine's concurrency model it must not be called on the
// core thread during active playback.
type JSONFileSource struct{}

// NewJSONFileSource creates a loader with no state.
func NewJSONFileSource() *JSONFileSource { return &JSONFileSource{} }

// wirePattern mirrors Pattern's on-disk JSON schema: note/section
// kinds are spelled out as strings rather than HitKind's integer value.
type wirePattern struct {
	ID         string        `json:"id"`
	Metadata   wireMetadata  `json:"metadata"`
	DurationMs float64       `json:"duration_ms"`
	Notes      []wireNote    `json:"notes"`
	Sections   []wireSection `json:"sections"`
}

type wireMetadata struct {
	BPM           float64 `json:"bpm"`
	TimeSignature string  `json:"time_signature"`
	Title         string  `json:"title"`
	Difficulty    string  `json:"difficulty"`
}

type wireNote struct {
	TimeMs   float64           `json:"time_ms"`
	Type     string            `json:"type"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type wireSection struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	StartMs float64 `json:"start_ms"`
	EndMs   float64 `json:"end_ms"`
}

// Load reads and decodes the pattern file at path, producing notes
// sorted ascending by TimeMs.
func (s *JSONFileSource) Load(ctx context.Context, path string) (*domain.Pattern, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("patternstore: %q: %w", path, domain.ErrPatternNotFound)
		}
		return nil, fmt.Errorf("patternstore: reading %q: %w", path, err)
	}

	var wire wirePattern
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("patternstore: decoding %q: %w", path, err)
	}

	pattern, err := fromWire(wire)
	if err != nil {
		return nil, fmt.Errorf("patternstore: %q: %w", path, err)
	}
	return pattern, nil
}

func fromWire(w wirePattern) (*domain.Pattern, error) {
	notes := make([]domain.Note, len(w.Notes))
	for i, n := range w.Notes {
		kind, ok := domain.HitKindFromString(n.Type)
		if !ok {
			return nil, fmt.Errorf("note %d: %w: %q", i, domain.ErrUnknownHitKind, n.Type)
		}
		notes[i] = domain.Note{TimeMs: n.TimeMs, Kind: kind, Metadata: n.Metadata}
	}
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].TimeMs < notes[j].TimeMs })

	sections := make([]domain.Section, len(w.Sections))
	for i, s := range w.Sections {
		sections[i] = domain.Section{ID: s.ID, Name: s.Name, StartMs: s.StartMs, EndMs: s.EndMs}
	}

	return &domain.Pattern{
		ID: w.ID,
		Metadata: domain.Metadata{
			BPM:           w.Metadata.BPM,
			TimeSignature: w.Metadata.TimeSignature,
			Title:         w.Metadata.Title,
			Difficulty:    w.Metadata.Difficulty,
		},
		DurationMs: w.DurationMs,
		Notes:      notes,
		Sections:   sections,
	}, nil
}
