// Package patternstore provides domain.PatternSource implementations:
// an in-memory fixture source for tests and demos, and a JSON-file
// backed loader for real pattern assets.
package patternstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/djentronome/rhythm-core/internal/domain"
	"github.com/djentronome/rhythm-core/internal/logger"
)

// Compile-time interface check.
var _ domain.PatternSource = (*MemorySource)(nil)

// MemorySource serves patterns seeded in-process, keyed by ID.
type MemorySource struct {
	mu       sync.RWMutex
	log      *logger.Logger
	patterns map[string]*domain.Pattern
}

// NewMemorySource creates a source with a couple of seeded demo patterns.
func NewMemorySource(log *logger.Logger) *MemorySource {
	s := &MemorySource{log: log, patterns: make(map[string]*domain.Pattern)}
	s.seed()
	return s
}

func (s *MemorySource) seed() {
	s.Put(&domain.Pattern{
		ID:         "four-on-the-floor",
		Metadata:   domain.Metadata{BPM: 120, TimeSignature: "4/4", Title: "Four On The Floor", Difficulty: "easy"},
		DurationMs: 8000,
		Notes: []domain.Note{
			{TimeMs: 0, Kind: domain.Kick},
			{TimeMs: 500, Kind: domain.HiHat},
			{TimeMs: 1000, Kind: domain.Kick},
			{TimeMs: 1500, Kind: domain.Snare},
			{TimeMs: 2000, Kind: domain.Kick},
			{TimeMs: 2500, Kind: domain.HiHat},
			{TimeMs: 3000, Kind: domain.Kick},
			{TimeMs: 3500, Kind: domain.Snare},
		},
		Sections: []domain.Section{
			{ID: "verse", Name: "Verse", StartMs: 0, EndMs: 4000},
			{ID: "chorus", Name: "Chorus", StartMs: 4000, EndMs: 8000},
		},
	})

	s.Put(&domain.Pattern{
		ID:         "blast-beat",
		Metadata:   domain.Metadata{BPM: 200, TimeSignature: "4/4", Title: "Blast Beat", Difficulty: "hard"},
		DurationMs: 4000,
		Notes: []domain.Note{
			{TimeMs: 0, Kind: domain.Kick},
			{TimeMs: 150, Kind: domain.Snare},
			{TimeMs: 300, Kind: domain.Kick},
			{TimeMs: 450, Kind: domain.Snare},
			{TimeMs: 600, Kind: domain.Kick},
			{TimeMs: 750, Kind: domain.Snare},
		},
	})
}

// Put installs (or replaces) a pattern by ID, sorting its notes
// ascending by TimeMs as domain.PatternSource implementations must.
func (s *MemorySource) Put(p *domain.Pattern) {
	sort.SliceStable(p.Notes, func(i, j int) bool { return p.Notes[i].TimeMs < p.Notes[j].TimeMs })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns[p.ID] = p
}

// Load returns the pattern registered under path (treated as an ID
// for the in-memory source).
func (s *MemorySource) Load(ctx context.Context, path string) (*domain.Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.patterns[path]
	if !ok {
		return nil, fmt.Errorf("patternstore: %q: %w", path, domain.ErrPatternNotFound)
	}
	return p, nil
}
