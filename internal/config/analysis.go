// Package config loads analysis definitions from CUE files and cache
// settings from the environment.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/mdeval/mdeval/internal/checksum"
	"github.com/mdeval/mdeval/internal/correlation"
	"github.com/mdeval/mdeval/internal/observables"
)

//go:embed schema.cue
var schemaCUE string

// Index distribution kinds accepted in `indices.kind`.
const (
	IndicesLog      = "log"
	IndicesLinear   = "linear"
	IndicesExplicit = "explicit"
)

// Analysis is one shifted-correlation run as written in a config file.
type Analysis struct {
	Observable string
	Params     checksum.Kwargs
	Segments   int
	Window     float64
	Skip       *float64
	Average    bool
	Indices    IndexSpec
	Select     *SlabSpec
}

// IndexSpec selects an index distribution.
type IndexSpec struct {
	Kind    string
	Num     int   // log
	Step    int   // linear
	Offsets []int // explicit
}

// SlabSpec restricts segments to a slab of atoms.
type SlabSpec struct {
	Axis   int
	Lo, Hi float64
}

// LoadError reports an invalid or unreadable config file.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadAnalysis reads the `analysis` struct from the CUE file at path.
func LoadAnalysis(path string) (*Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseAnalysis(data, path)
}

// ParseAnalysis compiles src, unifies its `analysis` struct with the schema
// and decodes the result. filename is used in error positions.
func ParseAnalysis(src []byte, filename string) (*Analysis, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("config schema: %w", err)
	}

	file := ctx.CompileBytes(src, cue.Filename(filename))
	if err := file.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	av := file.LookupPath(cue.ParsePath("analysis"))
	if !av.Exists() {
		return nil, &LoadError{Field: "analysis", Message: "analysis is required", Pos: file.Pos()}
	}

	v := schema.LookupPath(cue.ParsePath("#Analysis")).Unify(av)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}
	return decodeAnalysis(v)
}

func decodeAnalysis(v cue.Value) (*Analysis, error) {
	a := &Analysis{}
	var err error

	if a.Observable, err = v.LookupPath(cue.ParsePath("observable")).String(); err != nil {
		return nil, formatCUEError(err)
	}
	if a.Params, err = parseParams(v.LookupPath(cue.ParsePath("params"))); err != nil {
		return nil, err
	}

	segments, err := v.LookupPath(cue.ParsePath("segments")).Int64()
	if err != nil {
		return nil, formatCUEError(err)
	}
	a.Segments = int(segments)

	if a.Window, err = v.LookupPath(cue.ParsePath("window")).Float64(); err != nil {
		return nil, formatCUEError(err)
	}
	if a.Average, err = v.LookupPath(cue.ParsePath("average")).Bool(); err != nil {
		return nil, formatCUEError(err)
	}

	// Optional fields only count when the file sets them.
	if sv := v.LookupPath(cue.ParsePath("skip")); sv.Exists() && sv.IsConcrete() {
		skip, err := sv.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		a.Skip = correlation.Fraction(skip)
	}

	if a.Indices, err = parseIndices(v.LookupPath(cue.ParsePath("indices"))); err != nil {
		return nil, err
	}

	if sv := v.LookupPath(cue.ParsePath("select")); sv.Exists() && sv.IsConcrete() {
		slab, err := parseSlab(sv)
		if err != nil {
			return nil, err
		}
		a.Select = slab
	}

	return a, nil
}

// parseParams keeps integers as int and everything else as float64 or
// []float64, the shapes observables.Build normalizes.
func parseParams(v cue.Value) (checksum.Kwargs, error) {
	kw := checksum.Kwargs{}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Selector().String()
		fv := iter.Value()
		switch fv.Kind() {
		case cue.IntKind:
			n, err := fv.Int64()
			if err != nil {
				return nil, formatCUEError(err)
			}
			kw[name] = int(n)
		case cue.FloatKind, cue.NumberKind:
			f, err := fv.Float64()
			if err != nil {
				return nil, formatCUEError(err)
			}
			kw[name] = f
		case cue.ListKind:
			xs, err := floatList(fv)
			if err != nil {
				return nil, err
			}
			kw[name] = xs
		default:
			return nil, &LoadError{
				Field:   "params." + name,
				Message: fmt.Sprintf("expected number or list of numbers, got %v", fv.Kind()),
				Pos:     fv.Pos(),
			}
		}
	}
	return kw, nil
}

func floatList(v cue.Value) ([]float64, error) {
	list, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []float64
	for list.Next() {
		f, err := list.Value().Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, f)
	}
	return out, nil
}

func parseIndices(v cue.Value) (IndexSpec, error) {
	kind, err := v.LookupPath(cue.ParsePath("kind")).String()
	if err != nil {
		return IndexSpec{}, formatCUEError(err)
	}

	spec := IndexSpec{Kind: kind}
	switch kind {
	case IndicesLog:
		n, err := v.LookupPath(cue.ParsePath("num")).Int64()
		if err != nil {
			return IndexSpec{}, formatCUEError(err)
		}
		spec.Num = int(n)
	case IndicesLinear:
		n, err := v.LookupPath(cue.ParsePath("step")).Int64()
		if err != nil {
			return IndexSpec{}, formatCUEError(err)
		}
		spec.Step = int(n)
	case IndicesExplicit:
		list, err := v.LookupPath(cue.ParsePath("offsets")).List()
		if err != nil {
			return IndexSpec{}, formatCUEError(err)
		}
		for list.Next() {
			n, err := list.Value().Int64()
			if err != nil {
				return IndexSpec{}, formatCUEError(err)
			}
			spec.Offsets = append(spec.Offsets, int(n))
		}
		if len(spec.Offsets) == 0 {
			return IndexSpec{}, &LoadError{Field: "indices.offsets", Message: "at least one offset is required", Pos: v.Pos()}
		}
	default:
		return IndexSpec{}, &LoadError{Field: "indices.kind", Message: fmt.Sprintf("unknown kind %q", kind), Pos: v.Pos()}
	}
	return spec, nil
}

func parseSlab(v cue.Value) (*SlabSpec, error) {
	axis, err := v.LookupPath(cue.ParsePath("axis")).Int64()
	if err != nil {
		return nil, formatCUEError(err)
	}
	lo, err := v.LookupPath(cue.ParsePath("lo")).Float64()
	if err != nil {
		return nil, formatCUEError(err)
	}
	hi, err := v.LookupPath(cue.ParsePath("hi")).Float64()
	if err != nil {
		return nil, formatCUEError(err)
	}
	if hi <= lo {
		return nil, &LoadError{Field: "select", Message: fmt.Sprintf("hi (%g) must be above lo (%g)", hi, lo), Pos: v.Pos()}
	}
	return &SlabSpec{Axis: int(axis), Lo: lo, Hi: hi}, nil
}

// Distribution returns the index distribution this IndexSpec names.
func (s IndexSpec) Distribution() (correlation.IndexDistribution, error) {
	switch s.Kind {
	case "", IndicesLog:
		if s.Num == 0 {
			return correlation.LogIndices, nil
		}
		if s.Num < 1 {
			return correlation.IndexDistribution{}, fmt.Errorf("log indices: num must be positive, got %d", s.Num)
		}
		return correlation.LogIndicesN(s.Num), nil
	case IndicesLinear:
		if s.Step < 1 {
			return correlation.IndexDistribution{}, fmt.Errorf("linear indices: step must be positive, got %d", s.Step)
		}
		return correlation.LinearIndices(s.Step), nil
	case IndicesExplicit:
		if len(s.Offsets) == 0 {
			return correlation.IndexDistribution{}, fmt.Errorf("explicit indices: no offsets")
		}
		return correlation.ExplicitIndices(s.Offsets...), nil
	}
	return correlation.IndexDistribution{}, fmt.Errorf("unknown index distribution %q", s.Kind)
}

// Function builds the configured observable.
func (a *Analysis) Function() (correlation.Function, error) {
	return observables.Build(a.Observable, a.Params)
}

// Options converts the analysis into scheduler options. Window and segment
// bounds are checked by the scheduler, not here.
func (a *Analysis) Options() (correlation.Options, error) {
	dist, err := a.Indices.Distribution()
	if err != nil {
		return correlation.Options{}, err
	}

	opts := correlation.Options{
		Indices:  dist,
		Segments: a.Segments,
		Window:   a.Window,
		Skip:     a.Skip,
		Average:  a.Average,
	}
	if a.Select != nil {
		if a.Select.Axis < 0 || a.Select.Axis > 2 {
			return correlation.Options{}, fmt.Errorf("select: axis must be 0, 1 or 2, got %d", a.Select.Axis)
		}
		opts.Correlation = correlation.Subensemble(observables.Slab(a.Select.Axis, a.Select.Lo, a.Select.Hi), correlation.Correlate)
	}
	return opts, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &LoadError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
