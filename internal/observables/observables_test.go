package observables

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdeval/mdeval/internal/checksum"
	"github.com/mdeval/mdeval/internal/correlation"
	"github.com/mdeval/mdeval/internal/testutil"
	"github.com/mdeval/mdeval/internal/trajectory"
)

func frame(coords ...trajectory.Vec) trajectory.Frame {
	return trajectory.Frame{Coords: coords}
}

func TestMSD(t *testing.T) {
	ref := frame(trajectory.Vec{0, 0, 0}, trajectory.Vec{1, 1, 1})
	f := frame(trajectory.Vec{1, 2, 2}, trajectory.Vec{1, 1, 1})
	assert.Equal(t, correlation.Value{4.5}, MSD.Call(ref, f))
	assert.Equal(t, correlation.Value{0}, MSD.Call(ref, ref))
	assert.True(t, math.IsNaN(MSD.Call(ref, frame())[0]), "atom mismatch yields NaN")
}

func TestNonGaussian(t *testing.T) {
	ref := frame(trajectory.Vec{0, 0, 0}, trajectory.Vec{0, 0, 0})
	same := frame(trajectory.Vec{2, 0, 0}, trajectory.Vec{0, -2, 0})
	assert.InDelta(t, -0.4, NonGaussian.Call(ref, same)[0], 1e-12)
	assert.True(t, math.IsNaN(NonGaussian.Call(ref, ref)[0]))
}

func TestISF(t *testing.T) {
	fn, err := Build("isf", checksum.Kwargs{"q": 1.0})
	require.NoError(t, err)

	ref := frame(trajectory.Vec{0, 0, 0})
	assert.Equal(t, correlation.Value{1}, fn.Call(ref, ref))
	assert.InDelta(t, 0, fn.Call(ref, frame(trajectory.Vec{math.Pi, 0, 0}))[0], 1e-12)
	assert.InDelta(t, 2/math.Pi, fn.Call(ref, frame(trajectory.Vec{0, math.Pi / 2, 0}))[0], 1e-12)
}

func TestRotationalAutocorrelation(t *testing.T) {
	p2, err := Build("rotational_autocorrelation", nil)
	require.NoError(t, err)

	x := frame(trajectory.Vec{1, 0, 0})
	y := frame(trajectory.Vec{0, 1, 0})
	assert.InDelta(t, 1, p2.Call(x, x)[0], 1e-12)
	assert.InDelta(t, -0.5, p2.Call(x, y)[0], 1e-12)

	p3, err := Build("rotational_autocorrelation", checksum.Kwargs{"order": 3})
	require.NoError(t, err)
	half := frame(trajectory.Vec{0.5, math.Sqrt(3) / 2, 0})
	assert.InDelta(t, -0.4375, p3.Call(x, half)[0], 1e-12)
}

func TestLegendre(t *testing.T) {
	for _, x := range []float64{-1, -0.3, 0, 0.7, 1} {
		assert.InDelta(t, 1, legendre(0, x), 1e-12)
		assert.InDelta(t, x, legendre(1, x), 1e-12)
		assert.InDelta(t, (3*x*x-1)/2, legendre(2, x), 1e-12)
		assert.InDelta(t, (35*x*x*x*x-30*x*x+3)/8, legendre(4, x), 1e-12)
	}
}

func TestVanHoveSelf(t *testing.T) {
	fn, err := Build("van_hove_self", checksum.Kwargs{"bins": []any{0, 1, 2.0}})
	require.NoError(t, err)

	origin := trajectory.Vec{0, 0, 0}
	ref := frame(origin, origin, origin, origin)
	moved := frame(
		trajectory.Vec{0.5, 0, 0},
		trajectory.Vec{0, 1.5, 0},
		trajectory.Vec{0, 0, 2},
		trajectory.Vec{3, 0, 0},
	)
	assert.Equal(t, correlation.Value{0.25, 0.5}, fn.Call(ref, moved))
}

func TestBin(t *testing.T) {
	edges := []float64{0, 1, 2, 4}
	tests := []struct {
		x    float64
		want int
		ok   bool
	}{
		{-0.1, 0, false},
		{0, 0, true},
		{0.99, 0, true},
		{1, 1, true},
		{3.5, 2, true},
		{4, 2, true},
		{4.01, 0, false},
		{math.NaN(), 0, false},
	}
	for _, tt := range tests {
		got, ok := bin(edges, tt.x)
		assert.Equal(t, tt.ok, ok, "x=%v", tt.x)
		if tt.ok {
			assert.Equal(t, tt.want, got, "x=%v", tt.x)
		}
	}
}

func TestBuildRejects(t *testing.T) {
	tests := map[string]struct {
		name string
		kw   checksum.Kwargs
	}{
		"unknown":        {"viscosity", nil},
		"isf without q":  {"isf", nil},
		"isf bad q":      {"isf", checksum.Kwargs{"q": "fast"}},
		"msd keyword":    {"msd", checksum.Kwargs{"q": 1.0}},
		"negative order": {"rotational_autocorrelation", checksum.Kwargs{"order": -1}},
		"fractional ord": {"rotational_autocorrelation", checksum.Kwargs{"order": 1.5}},
		"one edge":       {"van_hove_self", checksum.Kwargs{"bins": []float64{1}}},
		"unsorted edges": {"van_hove_self", checksum.Kwargs{"bins": []float64{0, 2, 1}}},
		"stray keyword":  {"van_hove_self", checksum.Kwargs{"bins": []float64{0, 1}, "q": 1}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Build(tt.name, tt.kw)
			assert.Error(t, err)
		})
	}
}

func TestBuildNormalizesKeywords(t *testing.T) {
	a, err := Build("isf", checksum.Kwargs{"q": 2})
	require.NoError(t, err)
	b, err := Build("isf", checksum.Kwargs{"q": 2.0})
	require.NoError(t, err)
	assert.Equal(t, checksum.Sum(a), checksum.Sum(b))

	c, err := Build("isf", checksum.Kwargs{"q": 2.5})
	require.NoError(t, err)
	assert.NotEqual(t, checksum.Sum(a), checksum.Sum(c))

	d, err := Build("van_hove_self", checksum.Kwargs{"bins": []any{0, 1}})
	require.NoError(t, err)
	e, err := Build("van_hove_self", checksum.Kwargs{"bins": []float64{0, 1}})
	require.NoError(t, err)
	assert.Equal(t, checksum.Sum(d), checksum.Sum(e))
}

func TestNamesAndDescribe(t *testing.T) {
	assert.Equal(t, []string{"isf", "msd", "non_gaussian", "rotational_autocorrelation", "van_hove_self"}, Names())
	for _, n := range Names() {
		assert.NotEmpty(t, Describe(n))
	}
}

func TestVersionsRegistered(t *testing.T) {
	reg := checksum.DefaultRegistry()
	for _, name := range []string{
		"observables.msd",
		"observables.non_gaussian",
		"observables.isf",
		"observables.rotational_autocorrelation",
		"observables.van_hove_self",
	} {
		v, ok := reg.VersionOf(name)
		assert.True(t, ok, name)
		assert.Equal(t, 1, v, name)
	}
	assert.Equal(t, checksum.Sum("observables.msd", 1), MSD.Checksum())
}

func TestSlab(t *testing.T) {
	sel := Slab(0, 0, 1)
	m := sel.Fn(frame(trajectory.Vec{0.5, 0, 0}, trajectory.Vec{1, 0, 0}, trajectory.Vec{-0.1, 0, 0}))
	assert.Equal(t, trajectory.Mask{true, false, false}, m)

	assert.NotEqual(t, checksum.Sum(Slab(0, 0, 1)), checksum.Sum(Slab(1, 0, 1)))
	assert.NotEqual(t, checksum.Sum(Slab(0, 0, 1)), checksum.Sum(Slab(0, 0, 2)))
	assert.Panics(t, func() { Slab(3, 0, 1) })
}

func TestShiftedMSDOverRamp(t *testing.T) {
	res, err := correlation.Shifted(context.Background(), MSD, testutil.Ramp(40, 3), correlation.Options{
		Segments: 4,
		Average:  true,
	})
	require.NoError(t, err)
	for j, tm := range res.Times {
		assert.InDelta(t, tm*tm, res.Data[0][j][0], 1e-9)
	}
}
