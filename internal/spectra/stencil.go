package spectra

import "fmt"

// FivePointStencil estimates dy/dx at the interior points x[2:len-2] with
// the five-point central difference
//
//	(-y[i+2] + 8y[i+1] - 8y[i-1] + y[i-2]) / 12h
//
// The x values must be equally spaced; h is taken from the outer pair.
func FivePointStencil(x, y []float64) ([]float64, []float64, error) {
	if len(x) != len(y) {
		return nil, nil, fmt.Errorf("spectra: %d x values for %d y values", len(x), len(y))
	}
	if len(x) < 5 {
		return nil, nil, fmt.Errorf("spectra: five-point stencil needs at least 5 samples, got %d", len(x))
	}

	n := len(x) - 4
	xs := make([]float64, n)
	dy := make([]float64, n)
	for k := range n {
		i := k + 2
		h := (x[i+2] - x[i-2]) / 4
		xs[k] = x[i]
		dy[k] = (-y[i+2] + 8*y[i+1] - 8*y[i-1] + y[i-2]) / (12 * h)
	}
	return xs, dy, nil
}
