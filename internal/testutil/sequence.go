package testutil

import (
	"slices"
	"sync"

	"github.com/mdeval/mdeval/internal/checksum"
	"github.com/mdeval/mdeval/internal/trajectory"
)

// CountingSequence wraps a trajectory.Sequence and records every frame access.
//
// Tests use it to assert that validation fails before any frame is read and
// that segment streams only fetch what the combinator consumes.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type CountingSequence struct {
	inner trajectory.Sequence

	mu      sync.Mutex
	indices []int
}

// NewCountingSequence wraps inner.
func NewCountingSequence(inner trajectory.Sequence) *CountingSequence {
	return &CountingSequence{inner: inner}
}

// Len implements trajectory.Sequence. Length queries are not counted.
func (s *CountingSequence) Len() int {
	return s.inner.Len()
}

// At implements trajectory.Sequence and records i.
func (s *CountingSequence) At(i int) (trajectory.Frame, error) {
	s.mu.Lock()
	s.indices = append(s.indices, i)
	s.mu.Unlock()
	return s.inner.At(i)
}

// SliceStartFraction forwards to the wrapped sequence, or returns 0.
func (s *CountingSequence) SliceStartFraction() float64 {
	if ss, ok := s.inner.(trajectory.SliceStarter); ok {
		return ss.SliceStartFraction()
	}
	return 0
}

// Checksum fingerprints the wrapped sequence, so wrapping never changes a
// cache key.
func (s *CountingSequence) Checksum() checksum.Fingerprint {
	return checksum.Sum(s.inner)
}

// Calls returns the number of At calls so far.
func (s *CountingSequence) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.indices)
}

// Indices returns the accessed indices in call order.
func (s *CountingSequence) Indices() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.indices)
}

// Reset forgets all recorded accesses.
func (s *CountingSequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indices = nil
}
