// Package observables provides the standard pair functions correlated by
// the scheduler: mean squared displacement, the non-Gaussian parameter, the
// incoherent intermediate scattering function, rotational autocorrelation
// and the self part of the Van Hove function.
//
// Every function is registered with a version; bump it whenever its output
// changes so cached results are invalidated.
//
// Pair functions expect both frames to hold the same atoms in the same
// order. On a mismatch they return NaN.
package observables

import (
	"math"

	"github.com/mdeval/mdeval/internal/correlation"
	"github.com/mdeval/mdeval/internal/trajectory"
)

// MSD is the mean squared displacement <|r(t) - r(0)|^2>.
var MSD = correlation.NewVersioned("observables.msd", msd, 1)

// NonGaussian is the non-Gaussian parameter 3<r^4> / (5<r^2>^2) - 1.
// It is NaN at zero lag.
var NonGaussian = correlation.NewVersioned("observables.non_gaussian", nonGaussian, 1)

func msd(ref, frame trajectory.Frame) correlation.Value {
	r2, ok := squaredDisplacements(ref, frame)
	if !ok {
		return correlation.Scalar(math.NaN())
	}
	return correlation.Scalar(mean(r2))
}

func nonGaussian(ref, frame trajectory.Frame) correlation.Value {
	r2, ok := squaredDisplacements(ref, frame)
	if !ok {
		return correlation.Scalar(math.NaN())
	}
	r4 := make([]float64, len(r2))
	for i, x := range r2 {
		r4[i] = x * x
	}
	m := mean(r2)
	return correlation.Scalar(3.0/5.0*mean(r4)/(m*m) - 1)
}

func squaredDisplacements(ref, frame trajectory.Frame) ([]float64, bool) {
	d, err := ref.Displacements(frame)
	if err != nil || len(d) == 0 {
		return nil, false
	}
	r2 := make([]float64, len(d))
	for i, v := range d {
		r2[i] = v.Norm2()
	}
	return r2, true
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}
