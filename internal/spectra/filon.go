// Package spectra post-processes correlation results: numerical
// derivatives, Filon Fourier transforms, susceptibilities and the
// relaxation models commonly fitted to them.
package spectra

import (
	"errors"
	"fmt"
	"math"
)

// DefaultFrequencies is the number of frequencies chosen when none are given.
const DefaultFrequencies = 100

// Derivative selects how the correlation slope is estimated per interval.
type Derivative int

const (
	// Linear uses the finite difference over each sampling interval.
	Linear Derivative = iota
	// Stencil uses five-point stencil derivatives at the interior points and
	// integrates between them. Requires equally spaced times.
	Stencil
)

func (d Derivative) String() string {
	switch d {
	case Linear:
		return "linear"
	case Stencil:
		return "stencil"
	default:
		return fmt.Sprintf("Derivative(%d)", int(d))
	}
}

// ParseDerivative maps "linear" or "stencil" to a Derivative.
func ParseDerivative(s string) (Derivative, error) {
	switch s {
	case "", "linear":
		return Linear, nil
	case "stencil":
		return Stencil, nil
	default:
		return 0, fmt.Errorf("unknown derivative %q: want linear or stencil", s)
	}
}

// ErrNoPositiveTimes is returned when frequencies must be chosen but no
// sampled time is positive.
var ErrNoPositiveTimes = errors.New("spectra: no positive times to choose frequencies from")

// FilonOptions configures Filon.
type FilonOptions struct {
	// Frequencies are angular frequencies, all positive. Empty means
	// DefaultFrequencies log-spaced points between 2π/t_max and 2π/t_min over
	// the positive times.
	Frequencies []float64

	Derivative Derivative

	// Imag also computes the imaginary part.
	Imag bool
}

// Filon computes the Fourier transform of a slowly varying correlation
// function by integrating its piecewise constant slope exactly against
// cos and sin. It returns the angular frequencies and the transform at each.
//
// The sum over intervals is divided by the number of intervals.
func Filon(times, corr []float64, opts FilonOptions) ([]float64, []complex128, error) {
	if len(times) != len(corr) {
		return nil, nil, fmt.Errorf("spectra: %d times for %d values", len(times), len(corr))
	}
	if len(times) < 2 {
		return nil, nil, fmt.Errorf("spectra: need at least 2 samples, got %d", len(times))
	}

	omega := opts.Frequencies
	if len(omega) == 0 {
		var err error
		if omega, err = defaultFrequencies(times); err != nil {
			return nil, nil, err
		}
	}
	for _, w := range omega {
		if !(w > 0) {
			return nil, nil, fmt.Errorf("spectra: frequency %g is not positive", w)
		}
	}

	knots, slopes, err := slopes(times, corr, opts.Derivative)
	if err != nil {
		return nil, nil, err
	}

	c0 := corr[0]
	m := float64(len(slopes))
	out := make([]complex128, len(omega))
	for i, w := range omega {
		w2 := w * w
		var re, im float64
		for k, d := range slopes {
			lo, hi := knots[k], knots[k+1]
			re += d * (math.Cos(w*hi) - math.Cos(w*lo)) / w2
			if opts.Imag {
				im += d * (c0/w + (math.Sin(w*hi)-math.Sin(w*lo))/w2)
			}
		}
		out[i] = complex(re/m, im/m)
	}
	return append([]float64(nil), omega...), out, nil
}

// Susceptibility returns ω and ω·Re F(ω), where F is the Filon transform of
// the correlation function.
func Susceptibility(times, corr []float64, opts FilonOptions) ([]float64, []float64, error) {
	opts.Imag = false
	omega, f, err := Filon(times, corr, opts)
	if err != nil {
		return nil, nil, err
	}
	chi := make([]float64, len(f))
	for i, v := range f {
		chi[i] = omega[i] * real(v)
	}
	return omega, chi, nil
}

// slopes returns the interval boundaries and the slope on each interval.
func slopes(times, corr []float64, method Derivative) ([]float64, []float64, error) {
	switch method {
	case Linear:
		d := make([]float64, len(times)-1)
		for k := range d {
			d[k] = (corr[k+1] - corr[k]) / (times[k+1] - times[k])
		}
		return times, d, nil
	case Stencil:
		x, dy, err := FivePointStencil(times, corr)
		if err != nil {
			return nil, nil, err
		}
		if len(x) < 2 {
			return nil, nil, fmt.Errorf("spectra: stencil derivative needs at least 6 samples, got %d", len(times))
		}
		// Each interval takes the mean of its endpoint derivatives.
		d := make([]float64, len(x)-1)
		for k := range d {
			d[k] = (dy[k] + dy[k+1]) / 2
		}
		return x, d, nil
	default:
		return nil, nil, fmt.Errorf("spectra: unknown derivative %v", method)
	}
}

// defaultFrequencies spans 2π/t_max .. 2π/t_min over the positive times,
// log-spaced.
func defaultFrequencies(times []float64) ([]float64, error) {
	first, last := math.NaN(), math.NaN()
	for _, t := range times {
		if t > 0 {
			if math.IsNaN(first) {
				first = t
			}
			last = t
		}
	}
	if math.IsNaN(first) {
		return nil, ErrNoPositiveTimes
	}
	return LogFrequencies(1/last, 1/first, DefaultFrequencies), nil
}

// LogFrequencies returns n angular frequencies 2π·f with f log-spaced from
// fmin to fmax inclusive.
func LogFrequencies(fmin, fmax float64, n int) []float64 {
	if n < 1 {
		return nil
	}
	lo, hi := math.Log10(fmin), math.Log10(fmax)
	out := make([]float64, n)
	for i := range out {
		e := lo
		if n > 1 {
			e = lo + float64(i)*(hi-lo)/float64(n-1)
		}
		out[i] = 2 * math.Pi * math.Pow(10, e)
	}
	return out
}
