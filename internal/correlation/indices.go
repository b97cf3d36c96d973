package correlation

import (
	"fmt"
	"math"
	"slices"

	"github.com/mdeval/mdeval/internal/checksum"
)

// IndexFunc returns the lag offsets in [first, last] at which a correlation
// is evaluated.
type IndexFunc func(first, last int) []int

// IndexDistribution is a named IndexFunc. Its parameters are captures, so
// LogIndicesN(50) and LogIndicesN(100) fingerprint differently.
type IndexDistribution struct {
	*checksum.Func[IndexFunc]
}

// Offsets evaluates the distribution.
func (d IndexDistribution) Offsets(first, last int) []int {
	return d.Fn(first, last)
}

// DefaultLogPoints is the number of log-spaced samples LogIndices draws.
const DefaultLogPoints = 100

// LogIndices is the default distribution: DefaultLogPoints log-spaced points.
var LogIndices = LogIndicesN(DefaultLogPoints)

// LogIndicesN samples num points log-spaced over [1, last-first+1], truncates
// them to integers, shifts them back by first-1 and removes duplicates. The
// result is strictly increasing and starts at first; for num >= 2 it also
// ends at last.
func LogIndicesN(num int) IndexDistribution {
	fn := func(first, last int) []int {
		return logIndices(first, last, num)
	}
	return IndexDistribution{checksum.NewFunc[IndexFunc]("correlation.log_indices", fn, num)}
}

func logIndices(first, last, num int) []int {
	if last < first || num < 1 {
		return nil
	}
	span := float64(last - first + 1)
	stop := math.Log10(span)

	out := make([]int, 0, num)
	for i := 0; i < num; i++ {
		x := 1.0
		switch {
		case num == 1:
		case i == num-1:
			// The endpoint is exact; pow(10, log10(n)) can land one ulp short.
			x = span
		default:
			x = math.Pow(10, float64(i)*(stop/float64(num-1)))
		}
		idx := int(x) - 1 + first
		if len(out) == 0 || idx > out[len(out)-1] {
			out = append(out, idx)
		}
	}
	return out
}

// LinearIndices returns every step-th offset from first up to and including
// last. The last offset is always part of the result. Panics if step < 1.
func LinearIndices(step int) IndexDistribution {
	if step < 1 {
		panic(fmt.Sprintf("correlation: linear index step must be positive, got %d", step))
	}
	fn := func(first, last int) []int {
		if last < first {
			return nil
		}
		var out []int
		for i := first; i <= last; i += step {
			out = append(out, i)
		}
		if out[len(out)-1] != last {
			out = append(out, last)
		}
		return out
	}
	return IndexDistribution{checksum.NewFunc[IndexFunc]("correlation.linear_indices", fn, step)}
}

// ExplicitIndices always returns the given offsets, sorted and deduplicated,
// regardless of the requested range. Offsets beyond the trajectory surface
// as frame access errors.
func ExplicitIndices(offsets ...int) IndexDistribution {
	sorted := slices.Clone(offsets)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	fn := func(int, int) []int {
		return slices.Clone(sorted)
	}
	return IndexDistribution{checksum.NewFunc[IndexFunc]("correlation.explicit_indices", fn, sorted)}
}
