package observables

import (
	"math"
	"slices"

	"github.com/mdeval/mdeval/internal/checksum"
	"github.com/mdeval/mdeval/internal/correlation"
	"github.com/mdeval/mdeval/internal/trajectory"
)

// ISF is the incoherent intermediate scattering function
// <sin(q|dr|) / (q|dr|)>. Keyword: q, the scattering vector length.
var ISF = correlation.NewKernel("observables.isf", isf, 1)

// RotationalAutocorrelation treats coordinates as unit vectors and returns
// <P_order(u(0) . u(t))>. Keyword: order, the Legendre order (default 2).
var RotationalAutocorrelation = correlation.NewKernel("observables.rotational_autocorrelation", rotational, 1)

// VanHoveSelf is the self part of the Van Hove function: the histogram of
// displacement lengths over the bin edges given as keyword bins, divided by
// the number of atoms. The last bin includes its right edge.
var VanHoveSelf = correlation.NewKernel("observables.van_hove_self", vanHoveSelf, 1)

func isf(ref, frame trajectory.Frame, kw checksum.Kwargs) correlation.Value {
	q, err := kw.Float("q", math.NaN())
	r2, ok := squaredDisplacements(ref, frame)
	if err != nil || !ok {
		return correlation.Scalar(math.NaN())
	}
	s := make([]float64, len(r2))
	for i, x := range r2 {
		s[i] = sinc(math.Sqrt(x) * q)
	}
	return correlation.Scalar(mean(s))
}

// sinc is sin(x)/x with sinc(0) = 1.
func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(x) / x
}

func rotational(ref, frame trajectory.Frame, kw checksum.Kwargs) correlation.Value {
	order, err := kw.Int("order", 2)
	if err != nil || order < 0 || ref.Len() != frame.Len() || ref.Len() == 0 {
		return correlation.Scalar(math.NaN())
	}
	p := make([]float64, ref.Len())
	for i := range ref.Coords {
		p[i] = legendre(order, ref.Coords[i].Dot(frame.Coords[i]))
	}
	return correlation.Scalar(mean(p))
}

// legendre evaluates P_n(x) with Bonnet's recursion.
func legendre(n int, x float64) float64 {
	if n == 0 {
		return 1
	}
	prev, cur := 1.0, x
	for k := 1; k < n; k++ {
		prev, cur = cur, (float64(2*k+1)*x*cur-float64(k)*prev)/float64(k+1)
	}
	return cur
}

func vanHoveSelf(ref, frame trajectory.Frame, kw checksum.Kwargs) correlation.Value {
	edges, err := kw.Floats("bins")
	if err != nil || len(edges) < 2 {
		return correlation.Value{math.NaN()}
	}
	out := make(correlation.Value, len(edges)-1)
	r2, ok := squaredDisplacements(ref, frame)
	if !ok {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	for _, x := range r2 {
		if b, ok := bin(edges, math.Sqrt(x)); ok {
			out[b]++
		}
	}
	n := float64(len(r2))
	for i := range out {
		out[i] /= n
	}
	return out
}

// bin returns the index of the half-open bin [edges[i], edges[i+1]) holding
// x. The last bin is closed on the right.
func bin(edges []float64, x float64) (int, bool) {
	last := len(edges) - 1
	if x < edges[0] || x > edges[last] || math.IsNaN(x) {
		return 0, false
	}
	if x == edges[last] {
		return last - 1, true
	}
	i, found := slices.BinarySearch(edges, x)
	if found {
		return i, true
	}
	return i - 1, true
}
