package cache

import (
	"sync"

	"github.com/google/uuid"
)

// WriterIDGenerator names the process writing cache entries.
type WriterIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 writer ids, so listings
// show which run produced an entry and roughly when.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns the same writer id every time.
// Tests use it for byte-identical cache listings.
type FixedGenerator struct {
	mu sync.Mutex
	id string
	n  int
}

// NewFixedGenerator creates a generator returning id. If id is empty,
// Generate returns "test-writer".
func NewFixedGenerator(id string) *FixedGenerator {
	if id == "" {
		id = "test-writer"
	}
	return &FixedGenerator{id: id}
}

// Generate returns the fixed id.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return g.id
}

// Calls returns how often Generate was called.
func (g *FixedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}
