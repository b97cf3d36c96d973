package spectra

import (
	"math"
	"math/cmplx"
)

// KWW is the stretched exponential A·exp(-(t/τ)^β).
func KWW(t, a, tau, beta float64) float64 {
	return a * math.Exp(-math.Pow(t/tau, beta))
}

// KWW1e returns the time at which KWW(t, a, tau, beta) has decayed to 1/e.
func KWW1e(a, tau, beta float64) float64 {
	return tau * math.Pow(-math.Log(1/(math.E*a)), 1/beta)
}

// ColeDavidson is the imaginary part of the Cole-Davidson susceptibility.
func ColeDavidson(w, a, b, t0 float64) float64 {
	p := math.Atan(w * t0)
	return a * math.Pow(math.Cos(p), b) * math.Sin(b*p)
}

// ColeCole is the imaginary part of the Cole-Cole susceptibility.
func ColeCole(w, a, b, t0 float64) float64 {
	x := math.Pow(w*t0, b)
	return a * x * math.Sin(math.Pi*b/2) / (1 + 2*x*math.Cos(math.Pi*b/2) + x*x)
}

// HavriliakNegami is -Im(A / (1 + (iωτ)^α)^β).
func HavriliakNegami(w, a, beta, alpha, tau float64) float64 {
	denom := cmplx.Pow(1+cmplx.Pow(complex(0, w*tau), complex(alpha, 0)), complex(beta, 0))
	return -imag(complex(a, 0) / denom)
}

// Colen models how a correlation time t8 far from a wall grows towards it:
// t8·exp(A·exp(-d/X)) at distance d.
func Colen(d, x, t8, a float64) float64 {
	return t8 * math.Exp(a*math.Exp(-d/x))
}

// ColenQ models the plateau height of the overlap function at distance d
// from a wall, falling from 1 to the bulk value qb.
func ColenQ(d, x, qb, g float64) float64 {
	return (1-qb)*math.Exp(-math.Pow(d/x, g)) + qb
}
