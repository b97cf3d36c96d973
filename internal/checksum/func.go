package checksum

import (
	"fmt"
	"math"
	"slices"
)

// Func pairs a Go function with a stable code identity. Go cannot introspect
// compiled code, so the identity is the name the author gives it; values the
// function closes over are declared explicitly as captures.
type Func[F any] struct {
	Fn       F
	name     string
	captured []any
}

// NewFunc wraps fn under name with the given captured values.
// Captures are fingerprinted in the order given.
func NewFunc[F any](name string, fn F, captured ...any) *Func[F] {
	return &Func[F]{
		Fn:       fn,
		name:     name,
		captured: slices.Clone(captured),
	}
}

// Name returns the code identity as text.
func (f *Func[F]) Name() string {
	return f.name
}

// CodeID implements CodeIdentity.
func (f *Func[F]) CodeID() []byte {
	return []byte(f.name)
}

// Captured implements CodeIdentity.
func (f *Func[F]) Captured() []any {
	return slices.Clone(f.captured)
}

// Kwargs holds keyword arguments bound to a function.
type Kwargs map[string]any

// Float returns the named argument as float64, or def when absent.
func (kw Kwargs) Float(name string, def float64) (float64, error) {
	v, ok := kw[name]
	if !ok || v == nil {
		return def, nil
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, fmt.Errorf("keyword %q: expected number, got %T", name, v)
	}
	return f, nil
}

// Int returns the named argument as int, or def when absent.
// Floats are accepted when they hold an integral value.
func (kw Kwargs) Int(name string, def int) (int, error) {
	v, ok := kw[name]
	if !ok || v == nil {
		return def, nil
	}
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, fmt.Errorf("keyword %q: expected integer, got %v", name, v)
	}
	return int(f), nil
}

// Floats returns the named argument as a float64 slice, or nil when absent.
func (kw Kwargs) Floats(name string) ([]float64, error) {
	v, ok := kw[name]
	if !ok || v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case []float64:
		return slices.Clone(val), nil
	case []any:
		out := make([]float64, len(val))
		for i, x := range val {
			f, ok := toFloat(x)
			if !ok {
				return nil, fmt.Errorf("keyword %q[%d]: expected number, got %T", name, i, x)
			}
			out[i] = f
		}
		return out, nil
	}
	return nil, fmt.Errorf("keyword %q: expected list of numbers, got %T", name, v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}
