package correlation

import (
	"fmt"
	"math"
	"slices"

	"github.com/mdeval/mdeval/internal/canonical"
)

// Result is the outcome of a shifted correlation.
type Result struct {
	// Times holds the real time of each lag offset relative to frame 0.
	Times []float64

	// Data is segments x lags, or a single row of means when Averaged.
	Data [][]Value

	Averaged bool
}

// Shape returns the number of rows, lags and elements per value.
func (r *Result) Shape() (rows, lags, width int) {
	rows = len(r.Data)
	lags = len(r.Times)
	if rows > 0 && len(r.Data[0]) > 0 {
		width = len(r.Data[0][0])
	}
	return rows, lags, width
}

// Validate checks that every row has one value per lag and every value has
// the same width.
func (r *Result) Validate() error {
	_, lags, width := r.Shape()
	for i, row := range r.Data {
		if len(row) != lags {
			return fmt.Errorf("result row %d: %d values for %d lags", i, len(row), lags)
		}
		for j, v := range row {
			if len(v) != width {
				return fmt.Errorf("result row %d lag %d: width %d, want %d", i, j, len(v), width)
			}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	out := &Result{Times: slices.Clone(r.Times), Averaged: r.Averaged}
	out.Data = make([][]Value, len(r.Data))
	for i, row := range r.Data {
		out.Data[i] = make([]Value, len(row))
		for j, v := range row {
			out.Data[i][j] = slices.Clone(v)
		}
	}
	return out
}

// Scalars returns the first element of every value, row by row. Convenient
// for scalar correlations.
func (r *Result) Scalars() [][]float64 {
	out := make([][]float64, len(r.Data))
	for i, row := range r.Data {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			if len(v) > 0 {
				out[i][j] = v[0]
			}
		}
	}
	return out
}

// MarshalCanonical encodes the result as canonical JSON. Non-finite values
// encode as null.
func (r *Result) MarshalCanonical() ([]byte, error) {
	data := make([]any, len(r.Data))
	for i, row := range r.Data {
		vals := make([]any, len(row))
		for j, v := range row {
			vals[j] = FiniteOrNull(v)
		}
		data[i] = vals
	}
	return canonical.Marshal(map[string]any{
		"times":    FiniteOrNull(r.Times),
		"data":     data,
		"averaged": r.Averaged,
	})
}

// FiniteOrNull maps xs for canonical JSON, replacing NaN and infinities
// with nil.
func FiniteOrNull(xs []float64) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			out[i] = nil
			continue
		}
		out[i] = x
	}
	return out
}

// average reduces rows to their element-wise mean.
func average(rows [][]Value) [][]Value {
	if len(rows) == 0 {
		return rows
	}
	mean := make([]Value, len(rows[0]))
	for j := range mean {
		mean[j] = make(Value, len(rows[0][j]))
	}
	for _, row := range rows {
		for j, v := range row {
			for k, x := range v {
				mean[j][k] += x
			}
		}
	}
	n := float64(len(rows))
	for _, v := range mean {
		for k := range v {
			v[k] /= n
		}
	}
	return [][]Value{mean}
}
