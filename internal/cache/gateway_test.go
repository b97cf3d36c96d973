package cache

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdeval/mdeval/internal/checksum"
	"github.com/mdeval/mdeval/internal/correlation"
	"github.com/mdeval/mdeval/internal/observables"
	"github.com/mdeval/mdeval/internal/testutil"
)

type countingProducer struct {
	calls atomic.Int64
	res   *correlation.Result
	err   error
}

func (p *countingProducer) produce(context.Context) (*correlation.Result, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return p.res.Clone(), nil
}

func newTestGateway(t *testing.T, b Backend, opts ...GatewayOption) *Gateway {
	t.Helper()
	opts = append([]GatewayOption{WithWriterIDs(NewFixedGenerator(""))}, opts...)
	g, err := NewGateway(b, opts...)
	require.NoError(t, err)
	return g
}

func TestGateway_ProducesOnce(t *testing.T) {
	g := newTestGateway(t, NewMemory())
	p := &countingProducer{res: sampleResult()}
	key := checksum.Sum("once")

	first, err := g.GetOrCompute(context.Background(), key, p.produce)
	require.NoError(t, err)
	second, err := g.GetOrCompute(context.Background(), key, p.produce)
	require.NoError(t, err)

	assert.Equal(t, int64(1), p.calls.Load())
	assert.Equal(t, first.Times, second.Times)
	assert.Equal(t, GatewayStats{Hits: 1, Misses: 1, Stores: 1}, g.Stats())
}

func TestGateway_StoresBeforeReturning(t *testing.T) {
	mem := NewMemory()
	g := newTestGateway(t, mem)
	p := &countingProducer{res: sampleResult()}
	key := checksum.Sum("durable")

	ctx := correlation.WithLabel(context.Background(), "msd(frames[0:10:1])")
	_, err := g.GetOrCompute(ctx, key, p.produce)
	require.NoError(t, err)

	rec, err := mem.Load(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "msd(frames[0:10:1])", rec.Label)
	assert.Equal(t, "test-writer", rec.Writer)
}

func TestGateway_HitFromBackendAcrossProcesses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	key := checksum.Sum("shared")
	want := sampleResult()

	s1, err := Open(path)
	require.NoError(t, err)
	g1 := newTestGateway(t, s1)
	p1 := &countingProducer{res: want}
	_, err = g1.GetOrCompute(context.Background(), key, p1.produce)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	g2 := newTestGateway(t, s2)
	p2 := &countingProducer{res: want}
	got, err := g2.GetOrCompute(context.Background(), key, p2.produce)
	require.NoError(t, err)

	assert.Equal(t, int64(0), p2.calls.Load(), "a stored entry must not be recomputed")
	assert.Equal(t, want.Times, got.Times)
	assert.Equal(t, GatewayStats{Hits: 1}, g2.Stats())
}

func TestGateway_ConcurrentMissesShareOneProducer(t *testing.T) {
	g := newTestGateway(t, createTestStore(t))
	release := make(chan struct{})
	var calls atomic.Int64
	produce := func(context.Context) (*correlation.Result, error) {
		calls.Add(1)
		<-release
		return sampleResult(), nil
	}
	key := checksum.Sum("herd")

	const n = 16
	var wg sync.WaitGroup
	var started sync.WaitGroup
	wg.Add(n)
	started.Add(n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			started.Done()
			_, errs[i] = g.GetOrCompute(context.Background(), key, produce)
		}(i)
	}
	started.Wait()
	close(release)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int64(1), calls.Load())
}

func TestGateway_CancelledCallerDoesNotFailOthers(t *testing.T) {
	mem := NewMemory()
	g := newTestGateway(t, mem)
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int64
	produce := func(ctx context.Context) (*correlation.Result, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return sampleResult(), nil
	}
	key := checksum.Sum("abandoned")

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := g.GetOrCompute(ctx, key, produce)
		firstErr <- err
	}()
	<-started

	type outcome struct {
		res *correlation.Result
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		res, err := g.GetOrCompute(context.Background(), key, produce)
		second <- outcome{res, err}
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, sampleResult().Times, got.res.Times)
	assert.Equal(t, int64(1), calls.Load())

	_, err := mem.Load(context.Background(), key)
	assert.NoError(t, err, "the shared result is stored even though its first caller left")
}

func TestGateway_CancelledContextSkipsProducer(t *testing.T) {
	g := newTestGateway(t, NewMemory())
	p := &countingProducer{res: sampleResult()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.GetOrCompute(ctx, checksum.Sum("late"), p.produce)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, p.calls.Load())
}

func TestGateway_ProducerErrorIsNotCached(t *testing.T) {
	mem := NewMemory()
	g := newTestGateway(t, mem)
	boom := errors.New("boom")
	key := checksum.Sum("failing")

	_, err := g.GetOrCompute(context.Background(), key, (&countingProducer{err: boom}).produce)
	assert.ErrorIs(t, err, boom)

	infos, err := mem.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, infos)

	p := &countingProducer{res: sampleResult()}
	_, err = g.GetOrCompute(context.Background(), key, p.produce)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.calls.Load())
}

func TestGateway_RecomputesUnreadableEntry(t *testing.T) {
	mem := NewMemory()
	key := checksum.Sum("corrupt")
	require.NoError(t, mem.Save(context.Background(), Record{Key: key, Meta: []byte(`{"codec":1,"rows":1,"lags":1,"width":1}`), Payload: []byte{1}}))

	g := newTestGateway(t, mem)
	p := &countingProducer{res: sampleResult()}
	got, err := g.GetOrCompute(context.Background(), key, p.produce)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.calls.Load())
	assert.Len(t, got.Times, 3)

	rec, err := mem.Load(context.Background(), key)
	require.NoError(t, err)
	_, err = Decode(rec.Meta, rec.Payload)
	assert.NoError(t, err, "the entry is repaired")
}

func TestGateway_ReturnsCopies(t *testing.T) {
	g := newTestGateway(t, NewMemory())
	key := checksum.Sum("copies")
	p := &countingProducer{res: sampleResult()}

	first, err := g.GetOrCompute(context.Background(), key, p.produce)
	require.NoError(t, err)
	first.Times[0] = 1234

	second, err := g.GetOrCompute(context.Background(), key, p.produce)
	require.NoError(t, err)
	assert.Equal(t, 0.0, second.Times[0])
}

func TestGateway_Invalidate(t *testing.T) {
	g := newTestGateway(t, NewMemory())
	key := checksum.Sum("invalidate")
	p := &countingProducer{res: sampleResult()}

	_, err := g.GetOrCompute(context.Background(), key, p.produce)
	require.NoError(t, err)
	require.NoError(t, g.Invalidate(context.Background(), key))
	_, err = g.GetOrCompute(context.Background(), key, p.produce)
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.calls.Load())
}

func TestGateway_Options(t *testing.T) {
	_, err := NewGateway(nil)
	assert.Error(t, err)

	_, err = NewGateway(NewMemory(), WithHotSize(0))
	assert.Error(t, err, "lru rejects a non-positive size")

	gen := NewFixedGenerator("run-7")
	g, err := NewGateway(NewMemory(), WithWriterIDs(gen), WithHotSize(1))
	require.NoError(t, err)
	assert.Equal(t, "run-7", g.Writer())
	assert.Equal(t, 1, gen.Calls())

	uuidGateway, err := NewGateway(NewMemory())
	require.NoError(t, err)
	assert.Len(t, uuidGateway.Writer(), 36)
}

func TestGateway_WithScheduler(t *testing.T) {
	g := newTestGateway(t, createTestStore(t))
	s := correlation.NewScheduler(g)
	frames := testutil.NewCountingSequence(testutil.Ramp(30, 2))
	opts := correlation.Options{Segments: 3, Average: true}

	first, err := s.Shifted(context.Background(), observables.MSD, frames, opts)
	require.NoError(t, err)
	fetched := frames.Calls()
	require.Positive(t, fetched)

	second, err := s.Shifted(context.Background(), observables.MSD, frames, opts)
	require.NoError(t, err)
	assert.Equal(t, fetched, frames.Calls(), "a hit must not touch the trajectory")
	assert.Equal(t, first, second)
	assert.Equal(t, GatewayStats{Hits: 1, Misses: 1, Stores: 1}, g.Stats())
}
