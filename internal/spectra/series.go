package spectra

import (
	"fmt"
	"slices"

	"github.com/mdeval/mdeval/internal/correlation"
)

// Series flattens a scalar correlation result into times and values.
// Unaveraged results are averaged over their segments first.
func Series(res *correlation.Result) ([]float64, []float64, error) {
	if res == nil {
		return nil, nil, fmt.Errorf("spectra: nil result")
	}
	rows, lags, width := res.Shape()
	if rows == 0 || lags == 0 {
		return nil, nil, fmt.Errorf("spectra: empty result")
	}
	if width != 1 {
		return nil, nil, fmt.Errorf("spectra: values have %d elements, want a scalar correlation", width)
	}

	scalars := res.Scalars()
	values := make([]float64, lags)
	for _, row := range scalars {
		for j, v := range row {
			values[j] += v
		}
	}
	for j := range values {
		values[j] /= float64(rows)
	}
	return slices.Clone(res.Times), values, nil
}
