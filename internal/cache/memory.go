package cache

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mdeval/mdeval/internal/checksum"
)

// Memory is a process-local Backend.
type Memory struct {
	mu   sync.RWMutex
	data map[checksum.Fingerprint]Record
}

// NewMemory creates an empty Memory backend.
func NewMemory() *Memory {
	return &Memory{
		data: make(map[checksum.Fingerprint]Record),
	}
}

// Load implements Backend.
func (m *Memory) Load(_ context.Context, key checksum.Fingerprint) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.data[key]
	if !ok {
		return Record{}, ErrNotFound
	}
	return cloneRecord(rec), nil
}

// Save implements Backend.
func (m *Memory) Save(_ context.Context, rec Record) error {
	rec = cloneRecord(rec)
	if rec.Created.IsZero() {
		rec.Created = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[rec.Key] = rec
	return nil
}

// Delete implements Backend.
func (m *Memory) Delete(_ context.Context, key checksum.Fingerprint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; !ok {
		return ErrNotFound
	}
	delete(m.data, key)
	return nil
}

// List implements Backend. Entries are ordered by key.
func (m *Memory) List(_ context.Context) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Info, 0, len(m.data))
	for _, rec := range m.data {
		out = append(out, Info{
			Key:     rec.Key,
			Label:   rec.Label,
			Writer:  rec.Writer,
			Size:    int64(len(rec.Payload)),
			Created: rec.Created,
		})
	}
	slices.SortFunc(out, func(a, b Info) int {
		return strings.Compare(a.Key.Hex(), b.Key.Hex())
	})
	return out, nil
}

// Purge implements Backend.
func (m *Memory) Purge(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.data)
	clear(m.data)
	return n, nil
}

func cloneRecord(rec Record) Record {
	rec.Meta = slices.Clone(rec.Meta)
	rec.Payload = slices.Clone(rec.Payload)
	return rec
}
