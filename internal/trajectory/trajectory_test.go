package trajectory

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(n int) []Frame {
	frames := make([]Frame, n)
	for i := range frames {
		frames[i] = Frame{Step: i, Time: float64(i), Coords: []Vec{{float64(i), 0, 0}}}
	}
	return frames
}

func TestFramesAt(t *testing.T) {
	fs := NewFrames(ramp(5))
	assert.Equal(t, 5, fs.Len())

	f, err := fs.At(3)
	require.NoError(t, err)
	assert.Equal(t, 3.0, f.Time)

	_, err = fs.At(5)
	var idxErr *IndexError
	require.True(t, errors.As(err, &idxErr))
	assert.Equal(t, 5, idxErr.Index)
	assert.Equal(t, 5, idxErr.Len)

	_, err = fs.At(-1)
	assert.Error(t, err)
}

func TestFramesSlice(t *testing.T) {
	fs := NewFrames(ramp(10))

	s, err := fs.Slice(2, 9, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())

	var times []float64
	for i := 0; i < s.Len(); i++ {
		f, err := s.At(i)
		require.NoError(t, err)
		times = append(times, f.Time)
	}
	assert.Equal(t, []float64{2, 5, 8}, times)
	assert.InDelta(t, 0.2, s.SliceStartFraction(), 1e-12)

	nested, err := s.Slice(1, 3, 1)
	require.NoError(t, err)
	f, err := nested.At(0)
	require.NoError(t, err)
	assert.Equal(t, 5.0, f.Time)
	assert.InDelta(t, 0.5, nested.SliceStartFraction(), 1e-12)
}

func TestFramesSliceClamps(t *testing.T) {
	fs := NewFrames(ramp(4))

	s, err := fs.Slice(-2, 100, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	_, err = fs.Slice(0, 4, 0)
	assert.Error(t, err)
}

func TestFramesChecksum(t *testing.T) {
	a := NewFrames(ramp(6))
	b := NewFrames(ramp(6))
	assert.Equal(t, a.Checksum(), b.Checksum(), "equal content must fingerprint equally")

	other := ramp(6)
	other[4].Coords[0][1] = 1e-9
	assert.NotEqual(t, a.Checksum(), NewFrames(other).Checksum())

	retimed := ramp(6)
	retimed[2].Time = 2.5
	assert.NotEqual(t, a.Checksum(), NewFrames(retimed).Checksum())

	s, err := a.Slice(1, 6, 1)
	require.NoError(t, err)
	assert.NotEqual(t, a.Checksum(), s.Checksum())
}

func TestFrameSelect(t *testing.T) {
	f := Frame{Time: 1, Coords: []Vec{{1, 0, 0}, {2, 0, 0}, {3, 0, 0}}}
	sel := f.Select(Mask{true, false, true})
	assert.Equal(t, []Vec{{1, 0, 0}, {3, 0, 0}}, sel.Coords)
	assert.Equal(t, 1.0, sel.Time)
	assert.Len(t, f.Coords, 3, "select must not modify the source")
}

func TestFrameDisplacements(t *testing.T) {
	a := Frame{Coords: []Vec{{0, 0, 0}, {1, 1, 1}}}
	b := Frame{Coords: []Vec{{1, 2, 3}, {1, 1, 1}}}
	d, err := a.Displacements(b)
	require.NoError(t, err)
	assert.Equal(t, []Vec{{1, 2, 3}, {0, 0, 0}}, d)

	_, err = a.Displacements(Frame{})
	assert.Error(t, err)
}

func TestParseYAML(t *testing.T) {
	data := []byte(`
box: [3, 3, 3]
frames:
  - step: 0
    time: 0.0
    coords: [[0, 0, 0], [1, 1, 1]]
  - step: 10
    time: 0.5
    coords: [[0.1, 0, 0], [1, 1.2, 1]]
`)
	fs, err := ParseYAML(data)
	require.NoError(t, err)
	require.Equal(t, 2, fs.Len())

	f, err := fs.At(1)
	require.NoError(t, err)
	assert.Equal(t, 10, f.Step)
	assert.Equal(t, 0.5, f.Time)
	assert.Equal(t, Vec{3, 3, 3}, f.Box)
	assert.Equal(t, Vec{1, 1.2, 1}, f.Coords[1])
}

func TestParseYAMLRejectsBadInput(t *testing.T) {
	tests := map[string]string{
		"ragged atoms":  "frames:\n  - coords: [[0,0,0]]\n  - coords: [[0,0,0],[1,1,1]]\n",
		"two component": "frames:\n  - coords: [[0,0]]\n",
		"unknown field": "frames: []\nextra: 1\n",
		"bad box":       "box: [1, 2]\nframes: []\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseYAML([]byte(in))
			assert.Error(t, err)
		})
	}
}

func TestYAMLRoundtripThroughFile(t *testing.T) {
	walk, err := RandomWalk(WalkConfig{Frames: 4, Atoms: 3, Seed: 7})
	require.NoError(t, err)

	data, err := MarshalYAML(walk)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "traj.yaml")
	require.NoError(t, os.WriteFile(path, data, 0644))

	loaded, err := LoadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, walk.Checksum(), loaded.Checksum())
}

func TestRandomWalkDeterministic(t *testing.T) {
	cfg := WalkConfig{Frames: 20, Atoms: 5, Dt: 0.5, Seed: 42}
	a, err := RandomWalk(cfg)
	require.NoError(t, err)
	b, err := RandomWalk(cfg)
	require.NoError(t, err)
	assert.Equal(t, a.Checksum(), b.Checksum())

	f, err := a.At(3)
	require.NoError(t, err)
	assert.Equal(t, 1.5, f.Time)
	assert.Len(t, f.Coords, 5)

	cfg.Seed = 43
	c, err := RandomWalk(cfg)
	require.NoError(t, err)
	assert.NotEqual(t, a.Checksum(), c.Checksum())

	_, err = RandomWalk(WalkConfig{})
	assert.Error(t, err)
}
