package observables

import (
	"fmt"
	"maps"
	"slices"

	"github.com/mdeval/mdeval/internal/checksum"
	"github.com/mdeval/mdeval/internal/correlation"
	"github.com/mdeval/mdeval/internal/trajectory"
)

type entry struct {
	describe string
	build    func(kw checksum.Kwargs) (correlation.Function, error)
}

var catalog = map[string]entry{
	"msd": {
		describe: "mean squared displacement",
		build:    noKeywords("msd", MSD),
	},
	"non_gaussian": {
		describe: "non-Gaussian parameter alpha2",
		build:    noKeywords("non_gaussian", NonGaussian),
	},
	"isf": {
		describe: "incoherent intermediate scattering function (q)",
		build: func(kw checksum.Kwargs) (correlation.Function, error) {
			if err := only(kw, "q"); err != nil {
				return nil, err
			}
			if _, ok := kw["q"]; !ok {
				return nil, fmt.Errorf("isf: keyword q is required")
			}
			q, err := kw.Float("q", 0)
			if err != nil {
				return nil, fmt.Errorf("isf: %w", err)
			}
			return ISF.Bind(checksum.Kwargs{"q": q}), nil
		},
	},
	"rotational_autocorrelation": {
		describe: "Legendre rotational autocorrelation (order)",
		build: func(kw checksum.Kwargs) (correlation.Function, error) {
			if err := only(kw, "order"); err != nil {
				return nil, err
			}
			order, err := kw.Int("order", 2)
			if err != nil {
				return nil, fmt.Errorf("rotational_autocorrelation: %w", err)
			}
			if order < 0 {
				return nil, fmt.Errorf("rotational_autocorrelation: order must not be negative, got %d", order)
			}
			return RotationalAutocorrelation.Bind(checksum.Kwargs{"order": order}), nil
		},
	},
	"van_hove_self": {
		describe: "self part of the Van Hove function (bins)",
		build: func(kw checksum.Kwargs) (correlation.Function, error) {
			if err := only(kw, "bins"); err != nil {
				return nil, err
			}
			edges, err := kw.Floats("bins")
			if err != nil {
				return nil, fmt.Errorf("van_hove_self: %w", err)
			}
			if len(edges) < 2 {
				return nil, fmt.Errorf("van_hove_self: bins needs at least two edges")
			}
			for i := 1; i < len(edges); i++ {
				if edges[i] <= edges[i-1] {
					return nil, fmt.Errorf("van_hove_self: bin edges must increase (edge %d)", i)
				}
			}
			return VanHoveSelf.Bind(checksum.Kwargs{"bins": edges}), nil
		},
	},
}

// Names lists the observables Build accepts.
func Names() []string {
	return slices.Sorted(maps.Keys(catalog))
}

// Describe returns a one-line description of the named observable.
func Describe(name string) string {
	return catalog[name].describe
}

// Build returns the named observable with its keywords validated and
// normalized, so equal parameters always yield equal cache keys.
func Build(name string, kw checksum.Kwargs) (correlation.Function, error) {
	e, ok := catalog[name]
	if !ok {
		return nil, fmt.Errorf("unknown observable %q (known: %v)", name, Names())
	}
	return e.build(kw)
}

func noKeywords(name string, fn correlation.Function) func(checksum.Kwargs) (correlation.Function, error) {
	return func(kw checksum.Kwargs) (correlation.Function, error) {
		if err := only(kw); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return fn, nil
	}
}

func only(kw checksum.Kwargs, allowed ...string) error {
	for k := range kw {
		if !slices.Contains(allowed, k) {
			return fmt.Errorf("unexpected keyword %q", k)
		}
	}
	return nil
}

// Slab selects the atoms whose coordinate along axis lies in [lo, hi) in
// the reference frame. Panics unless axis is 0, 1 or 2.
func Slab(axis int, lo, hi float64) correlation.Selector {
	if axis < 0 || axis > 2 {
		panic(fmt.Sprintf("observables: slab axis %d out of range", axis))
	}
	return correlation.NewSelector("observables.slab", func(ref trajectory.Frame) trajectory.Mask {
		m := make(trajectory.Mask, ref.Len())
		for i, c := range ref.Coords {
			m[i] = c[axis] >= lo && c[axis] < hi
		}
		return m
	}, axis, lo, hi)
}
