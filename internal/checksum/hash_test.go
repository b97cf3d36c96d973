package checksum

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stringer struct{ id int }

func (s stringer) String() string { return "stringer" }

func TestSumEmptyIsSaltDigest(t *testing.T) {
	// md5("42")
	assert.Equal(t, "a1d0c6e83f027327d8461063f4ac58a6", Sum().Hex())
}

func TestStreamLayout(t *testing.T) {
	e := New(42)
	stream := e.Bytes("abc", nil, []byte{0x01, 0x02}, 7, 1.0, true)
	assert.Equal(t, "42abcNone\x01\x027"+"1.0"+"True", string(stream))
}

func TestSumDeterminism(t *testing.T) {
	fn := NewFunc("pkg.fn", 0, 1.5, "x")
	p := Partial{Func: fn, Args: []any{1, "two"}, Kwargs: map[string]any{"q": 22.77, "box": nil}}

	a := Sum(fn, p, []float64{1, 2, 3}, "text")
	b := Sum(fn, p, []float64{1, 2, 3}, "text")
	assert.Equal(t, a, b, "Sum must be deterministic")
	assert.False(t, a.IsZero())
}

func TestClassifyPriority(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  Descriptor
	}{
		{"nil", nil, None{}},
		{"typed nil pointer", (*Func[int])(nil), None{}},
		{"explicit", Fingerprint{1}, Explicit{Sum: Fingerprint{1}}},
		{"bytes", []byte("ab"), Bytes("ab")},
		{"text", "ab", Text("ab")},
		{"float slice", []float64{0}, Array(make([]byte, 8))},
		{"int", 3, Scalar("3")},
		{"float", 2.5, Scalar("2.5")},
		{"integral float", 2.0, Scalar("2.0")},
		{"bool", false, Scalar("False")},
		{"opaque", stringer{1}, Opaque("stringer")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.input))
		})
	}
}

func TestClassifyClosureAndPartial(t *testing.T) {
	fn := NewFunc("pkg.closure", 0, 3, "cap")
	d, ok := Classify(fn).(Closure)
	require.True(t, ok, "Func must classify as Closure")
	assert.Equal(t, []byte("pkg.closure"), d.Code)
	assert.Equal(t, []any{3, "cap"}, d.Captured)

	v := MustRegister("checksum_test.classify", 0, 1)
	_, ok = Classify(v).(Explicit)
	assert.True(t, ok, "Versioned must classify as Explicit")
}

func TestExplicitTakesPriority(t *testing.T) {
	sum := Sum("anything")
	assert.Equal(t, Sum(sum), Sum(Explicit{Sum: sum}))
	assert.Equal(t, string(New(42).Bytes(sum)), "42"+sum.String())
}

func TestIntAndFloatDiffer(t *testing.T) {
	assert.NotEqual(t, Sum(1), Sum(1.0))
}

func TestClosureCapturesAffectSum(t *testing.T) {
	a := NewFunc("pkg.isf", 0, 22.77)
	b := NewFunc("pkg.isf", 0, 22.78)
	c := NewFunc("pkg.isf", 0, 22.77)

	assert.NotEqual(t, Sum(a), Sum(b), "different capture must change fingerprint")
	assert.Equal(t, Sum(a), Sum(c), "structurally equal closures must match")
	assert.NotEqual(t, Sum(a), Sum(NewFunc("pkg.msd", 0, 22.77)), "different code must change fingerprint")
}

func TestClosureCaptureOrderMatters(t *testing.T) {
	a := NewFunc("pkg.fn", 0, 1, 2)
	b := NewFunc("pkg.fn", 0, 2, 1)
	assert.NotEqual(t, Sum(a), Sum(b))
}

func TestPartialKeywordOrderIrrelevant(t *testing.T) {
	fn := NewFunc("pkg.kernel", 0)
	kw1 := map[string]any{}
	kw1["alpha"] = 1
	kw1["beta"] = 2.5
	kw1["gamma"] = "c"

	kw2 := map[string]any{}
	kw2["gamma"] = "c"
	kw2["alpha"] = 1
	kw2["beta"] = 2.5

	for i := 0; i < 20; i++ {
		assert.Equal(t,
			Sum(Partial{Func: fn, Kwargs: kw1}),
			Sum(Partial{Func: fn, Kwargs: kw2}),
		)
	}
}

func TestPartialPositionalOrderMatters(t *testing.T) {
	fn := NewFunc("pkg.kernel", 0)
	assert.NotEqual(t,
		Sum(Partial{Func: fn, Args: []any{1, 2}}),
		Sum(Partial{Func: fn, Args: []any{2, 1}}),
	)
}

func TestPartialKeywordValueChangesSum(t *testing.T) {
	fn := NewFunc("pkg.kernel", 0)
	a := Sum(Partial{Func: fn, Kwargs: map[string]any{"q": 22.77}})
	b := Sum(Partial{Func: fn, Kwargs: map[string]any{"q": 22.78}})
	assert.NotEqual(t, a, b)
}

func TestPartialKeywordNameIsHashed(t *testing.T) {
	fn := NewFunc("pkg.kernel", 0)
	a := Sum(Partial{Func: fn, Kwargs: map[string]any{"q": 1}})
	b := Sum(Partial{Func: fn, Kwargs: map[string]any{"r": 1}})
	assert.NotEqual(t, a, b)
}

type boundKernel struct {
	fn *Func[int]
	kw map[string]any
}

func (b boundKernel) PartialFunc() any               { return b.fn }
func (b boundKernel) PartialArgs() []any             { return nil }
func (b boundKernel) PartialKeywords() map[string]any { return b.kw }

func TestPartialCapabilityMatchesDescriptor(t *testing.T) {
	fn := NewFunc("pkg.kernel", 0)
	kw := map[string]any{"q": 3.0}
	assert.Equal(t, Sum(Partial{Func: fn, Kwargs: kw}), Sum(boundKernel{fn: fn, kw: kw}))
}

func TestArrayByteChangeChangesSum(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{1, 2, 3.0000001}
	assert.NotEqual(t, Sum(a), Sum(b))
}

func TestArrayShapeIsNotEncoded(t *testing.T) {
	flat := []float64{1, 2, 3, 4}
	square := [][]float64{{1, 2}, {3, 4}}
	assert.Equal(t, Sum(flat), Sum(square), "raw buffers with equal bytes collide by design")

	// 0.0 as float64 and int64 are both eight zero bytes.
	assert.Equal(t, Sum([]float64{0}), Sum([]int64{0}))
}

func TestSaltChangesEveryKind(t *testing.T) {
	inputs := map[string]any{
		"explicit": Fingerprint{7},
		"none":     nil,
		"bytes":    []byte("x"),
		"text":     "x",
		"closure":  NewFunc("pkg.fn", 0, 1),
		"partial":  Partial{Func: NewFunc("pkg.fn", 0), Kwargs: map[string]any{"a": 1}},
		"array":    []float64{1},
		"scalar":   1,
		"opaque":   stringer{},
	}

	a, b := New(42), New(43)
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			assert.NotEqual(t, a.Sum(in), b.Sum(in))
		})
	}
}

func TestUnknownKindsNeverPanic(t *testing.T) {
	type custom struct {
		A int
		B []string
	}
	assert.NotPanics(t, func() {
		Sum(custom{A: 1, B: []string{"x"}}, complex(1, 2), map[string]int{"b": 2, "a": 1}, struct{}{})
	})
	// fmt prints maps with sorted keys, so opaque maps are stable.
	assert.Equal(t, Sum(map[string]int{"b": 2, "a": 1}), Sum(map[string]int{"a": 1, "b": 2}))
}

func TestParseFingerprintRoundtrip(t *testing.T) {
	f := Sum("roundtrip")

	fromDec, err := ParseFingerprint(f.String())
	require.NoError(t, err)
	assert.Equal(t, f, fromDec)

	fromHex, err := ParseFingerprint(HexPrefix + f.Hex())
	require.NoError(t, err)
	assert.Equal(t, f, fromHex)

	raw, err := ParseHex(f.Hex())
	require.NoError(t, err)
	assert.Equal(t, f, raw)
}

func TestParseFingerprintThirtyTwoDigitDecimal(t *testing.T) {
	const dec = "12345678901234567890123456789012"
	require.Len(t, dec, 32)

	f, err := ParseFingerprint(dec)
	require.NoError(t, err)
	assert.Equal(t, dec, f.String(), "32 decimal digits stay decimal")

	asHex, err := ParseFingerprint(HexPrefix + dec)
	require.NoError(t, err)
	assert.Equal(t, dec, asHex.Hex())
	assert.NotEqual(t, f, asHex)
}

func TestParseFingerprintRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "-1", "xyz", "340282366920938463463374607431768211456",
		"0x", "0xabc", "0x" + strings.Repeat("g", 32), "deadbeefdeadbeefdeadbeefdeadbeef"} {
		_, err := ParseFingerprint(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestLabel(t *testing.T) {
	fn := NewFunc("pkg.kernel", 0)
	p := Partial{Func: fn, Args: []any{1}, Kwargs: map[string]any{"q": 2.5, "a": "x"}}
	assert.Equal(t, `pkg.kernel(1, a="x", q=2.5)`, Label(p))
	assert.Equal(t, "None", Label(nil))
}
