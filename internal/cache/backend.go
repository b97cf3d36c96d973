package cache

import (
	"context"
	"errors"
	"time"

	"github.com/mdeval/mdeval/internal/checksum"
)

// ErrNotFound is returned by Backend.Load and Backend.Delete for absent keys.
var ErrNotFound = errors.New("cache entry not found")

// Record is one stored entry.
type Record struct {
	Key     checksum.Fingerprint
	Label   string
	Writer  string
	Meta    []byte
	Payload []byte
	Created time.Time
}

// Info describes a stored entry without its payload.
type Info struct {
	Key     checksum.Fingerprint
	Label   string
	Writer  string
	Size    int64
	Created time.Time
}

// Stats summarizes a backend.
type Stats struct {
	Entries int
	Bytes   int64
}

// Backend persists records. Save overwrites an existing key atomically.
type Backend interface {
	Load(ctx context.Context, key checksum.Fingerprint) (Record, error)
	Save(ctx context.Context, rec Record) error
	Delete(ctx context.Context, key checksum.Fingerprint) error
	List(ctx context.Context) ([]Info, error)
	Purge(ctx context.Context) (int, error)
}

// Summarize computes Stats from a listing.
func Summarize(infos []Info) Stats {
	s := Stats{Entries: len(infos)}
	for _, in := range infos {
		s.Bytes += in.Size
	}
	return s
}
