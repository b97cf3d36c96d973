package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdeval/mdeval/internal/checksum"
)

func TestCountingSequence_RecordsAccesses(t *testing.T) {
	seq := NewCountingSequence(Ramp(5, 1))
	assert.Equal(t, 5, seq.Len())
	assert.Equal(t, 0, seq.Calls(), "Len must not count as an access")

	f, err := seq.At(3)
	require.NoError(t, err)
	assert.Equal(t, 3.0, f.Time)

	_, err = seq.At(9)
	assert.Error(t, err)

	assert.Equal(t, 2, seq.Calls())
	assert.Equal(t, []int{3, 9}, seq.Indices())

	seq.Reset()
	assert.Equal(t, 0, seq.Calls())
}

func TestCountingSequence_ChecksumMatchesInner(t *testing.T) {
	inner := Ramp(4, 2)
	assert.Equal(t, checksum.Sum(inner), checksum.Sum(NewCountingSequence(inner)))
}

func TestCountingSequence_ForwardsSliceStart(t *testing.T) {
	sliced, err := Ramp(10, 1).Slice(3, 10, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, NewCountingSequence(sliced).SliceStartFraction(), 1e-12)
}

func TestCountingSequence_ThreadSafe(t *testing.T) {
	seq := NewCountingSequence(Ramp(3, 1))
	const numGoroutines = 50

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			_, _ = seq.At(1)
		}()
	}
	wg.Wait()

	assert.Equal(t, numGoroutines, seq.Calls())
}

func TestRamp(t *testing.T) {
	fs := Ramp(3, 2)
	f, err := fs.At(2)
	require.NoError(t, err)
	assert.Equal(t, 2.0, f.Time)
	assert.Len(t, f.Coords, 2)
	assert.Equal(t, 2.0, f.Coords[1][0])
}

func TestValues(t *testing.T) {
	fs := Values(4, -1)
	f, err := fs.At(1)
	require.NoError(t, err)
	assert.Equal(t, -1.0, f.Sum())
}
