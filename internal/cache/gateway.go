package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/mdeval/mdeval/internal/checksum"
	"github.com/mdeval/mdeval/internal/correlation"
)

// DefaultHotSize is the number of decoded results kept in memory.
const DefaultHotSize = 256

// Gateway implements correlation.Gateway over a Backend.
//
// Lookups go hot LRU first, then the backend. Concurrent misses on one key
// share a single producer call, and the result is saved to the backend
// before any caller sees it. Callers always receive their own copy.
// Cancelling one caller's context abandons only that caller's wait; the
// producer runs to completion for the rest.
type Gateway struct {
	backend Backend
	hot     *lru.Cache[checksum.Fingerprint, *correlation.Result]
	group   singleflight.Group
	writer  string
	logger  *slog.Logger

	hotSize int
	writers WriterIDGenerator

	hits   atomic.Int64
	misses atomic.Int64
	stores atomic.Int64
}

var _ correlation.Gateway = (*Gateway)(nil)

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithHotSize sets the in-memory LRU capacity.
//
// Default: 256 results (DefaultHotSize)
func WithHotSize(n int) GatewayOption {
	return func(g *Gateway) {
		g.hotSize = n
	}
}

// WithWriterIDs sets how the gateway names itself in stored entries.
//
// Default: a fresh UUIDv7 per gateway.
func WithWriterIDs(gen WriterIDGenerator) GatewayOption {
	return func(g *Gateway) {
		g.writers = gen
	}
}

// WithGatewayLogger sets the logger for hit, miss and store events.
func WithGatewayLogger(l *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		g.logger = l
	}
}

// NewGateway creates a Gateway in front of b.
func NewGateway(b Backend, opts ...GatewayOption) (*Gateway, error) {
	if b == nil {
		return nil, fmt.Errorf("cache gateway: backend is required")
	}
	g := &Gateway{
		backend: b,
		logger:  slog.Default(),
		hotSize: DefaultHotSize,
		writers: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(g)
	}

	hot, err := lru.New[checksum.Fingerprint, *correlation.Result](g.hotSize)
	if err != nil {
		return nil, fmt.Errorf("cache gateway: %w", err)
	}
	g.hot = hot
	g.writer = g.writers.Generate()
	return g, nil
}

// GetOrCompute implements correlation.Gateway.
func (g *Gateway) GetOrCompute(ctx context.Context, key checksum.Fingerprint, produce correlation.Producer) (*correlation.Result, error) {
	if res, ok := g.hot.Get(key); ok {
		g.hits.Add(1)
		g.logger.Debug("cache hit", "key", key.Hex(), "tier", "memory")
		return res.Clone(), nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The shared fill outlives any single caller: a caller that gives up
	// returns its own ctx error while the others keep waiting.
	ch := g.group.DoChan(key.Hex(), func() (any, error) {
		return g.fill(context.WithoutCancel(ctx), key, produce)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*correlation.Result).Clone(), nil
	}
}

// fill runs under the singleflight group for key.
func (g *Gateway) fill(ctx context.Context, key checksum.Fingerprint, produce correlation.Producer) (*correlation.Result, error) {
	if res, ok := g.hot.Get(key); ok {
		g.hits.Add(1)
		return res, nil
	}

	rec, err := g.backend.Load(ctx, key)
	switch {
	case err == nil:
		res, decodeErr := Decode(rec.Meta, rec.Payload)
		if decodeErr == nil {
			g.hits.Add(1)
			g.logger.Debug("cache hit", "key", key.Hex(), "tier", "backend", "label", rec.Label)
			g.hot.Add(key, res)
			return res, nil
		}
		g.logger.Warn("discarding unreadable cache entry", "key", key.Hex(), "error", decodeErr)
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("cache load %s: %w", key.Hex(), err)
	}

	g.misses.Add(1)
	label := correlation.LabelFrom(ctx)
	g.logger.Debug("cache miss", "key", key.Hex(), "label", label)

	res, err := produce(ctx)
	if err != nil {
		return nil, err
	}

	meta, payload, err := Encode(res)
	if err != nil {
		return nil, fmt.Errorf("cache store %s: %w", key.Hex(), err)
	}
	if err := g.backend.Save(ctx, Record{
		Key:     key,
		Label:   label,
		Writer:  g.writer,
		Meta:    meta,
		Payload: payload,
	}); err != nil {
		return nil, fmt.Errorf("cache store %s: %w", key.Hex(), err)
	}
	g.stores.Add(1)
	g.logger.Debug("cache store", "key", key.Hex(), "bytes", len(payload))

	res = res.Clone()
	g.hot.Add(key, res)
	return res, nil
}

// Invalidate drops key from memory and from the backend.
func (g *Gateway) Invalidate(ctx context.Context, key checksum.Fingerprint) error {
	g.hot.Remove(key)
	return g.backend.Delete(ctx, key)
}

// Writer returns the id stamped on entries this gateway stores.
func (g *Gateway) Writer() string {
	return g.writer
}

// GatewayStats counts lookups since the gateway was created.
type GatewayStats struct {
	Hits   int64
	Misses int64
	Stores int64
}

// Stats returns the hit, miss and store counters.
func (g *Gateway) Stats() GatewayStats {
	return GatewayStats{
		Hits:   g.hits.Load(),
		Misses: g.misses.Load(),
		Stores: g.stores.Load(),
	}
}
