package correlation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdeval/mdeval/internal/checksum"
	"github.com/mdeval/mdeval/internal/trajectory"
)

var scaled = NewKernel("test.scaled_sum_diff", func(ref, f trajectory.Frame, kw checksum.Kwargs) Value {
	k, err := kw.Float("k", 1)
	if err != nil {
		panic(err)
	}
	return Scalar(k * (ref.Sum() - f.Sum()))
}, 1)

func TestBoundCallsKernel(t *testing.T) {
	a := trajectory.Frame{Coords: []trajectory.Vec{{3, 0, 0}}}
	b := trajectory.Frame{Coords: []trajectory.Vec{{1, 0, 0}}}
	assert.Equal(t, Value{4}, scaled.Bind(checksum.Kwargs{"k": 2.0}).Call(a, b))
	assert.Equal(t, Value{2}, scaled.Bind(nil).Call(a, b))
}

func TestBoundFingerprintsAsPartial(t *testing.T) {
	bound := scaled.Bind(checksum.Kwargs{"k": 2.0, "q": 1.5})
	want := checksum.Partial{Func: scaled, Kwargs: map[string]any{"q": 1.5, "k": 2.0}}
	assert.Equal(t, checksum.Sum(want), checksum.Sum(bound))

	assert.NotEqual(t, checksum.Sum(bound), checksum.Sum(scaled.Bind(checksum.Kwargs{"k": 3.0, "q": 1.5})))
	assert.NotEqual(t, checksum.Sum(bound), checksum.Sum(scaled.Bind(checksum.Kwargs{"k": 2, "q": 1.5})),
		"an int keyword must not collide with the equal float")
}

func TestBindCopiesKeywords(t *testing.T) {
	kw := checksum.Kwargs{"k": 2.0}
	bound := scaled.Bind(kw)
	before := checksum.Sum(bound)
	kw["k"] = 5.0
	assert.Equal(t, before, checksum.Sum(bound))
}

func TestFuncCapturesChangeFingerprint(t *testing.T) {
	mk := func(offset float64) Func {
		return NewFunc("test.offset", func(a, b trajectory.Frame) Value {
			return Scalar(a.Sum() - b.Sum() + offset)
		}, offset)
	}
	assert.Equal(t, checksum.Sum(mk(1)), checksum.Sum(mk(1)))
	assert.NotEqual(t, checksum.Sum(mk(1)), checksum.Sum(mk(2)))
}

func TestVersionedFunc(t *testing.T) {
	v1 := NewVersioned("test.versioned_pair", func(a, b trajectory.Frame) Value { return Scalar(0) }, 1)
	assert.Equal(t, 1, v1.Version())
	assert.Equal(t, checksum.Sum("test.versioned_pair", 1), v1.Checksum())
	assert.Equal(t, Value{0}, v1.Call(trajectory.Frame{}, trajectory.Frame{}))

	again := NewVersioned("test.versioned_pair", func(a, b trajectory.Frame) Value { return Scalar(1) }, 1)
	assert.Equal(t, v1.Checksum(), again.Checksum(), "the version, not the code, identifies it")

	assert.Panics(t, func() {
		NewVersioned("test.versioned_pair", func(a, b trajectory.Frame) Value { return Scalar(0) }, 2)
	})
}

func TestResultCloneAndCanonical(t *testing.T) {
	r := &Result{Times: []float64{0, 1}, Data: [][]Value{{{1, 2}, {3, 4}}}}
	c := r.Clone()
	c.Data[0][0][0] = 99
	c.Times[1] = 7
	assert.Equal(t, 1.0, r.Data[0][0][0])
	assert.Equal(t, 1.0, r.Times[1])

	rows, lags, width := r.Shape()
	assert.Equal(t, [3]int{1, 2, 2}, [3]int{rows, lags, width})
	require.NoError(t, r.Validate())

	nan := &Result{Times: []float64{0}, Data: [][]Value{{{math.NaN()}}}}
	data, err := nan.MarshalCanonical()
	require.NoError(t, err)
	assert.Equal(t, `{"averaged":false,"data":[[[null]]],"times":[0]}`, string(data))

	ragged := &Result{Times: []float64{0, 1}, Data: [][]Value{{{1}}}}
	assert.Error(t, ragged.Validate())
}
