package correlation

import (
	"maps"

	"github.com/mdeval/mdeval/internal/checksum"
	"github.com/mdeval/mdeval/internal/trajectory"
)

// Value is one correlation value: a single element for scalar correlations,
// several for histograms.
type Value []float64

// Scalar wraps a single number.
func Scalar(x float64) Value {
	return Value{x}
}

// Function is a pair function correlated against a fixed reference frame.
// Implementations must also be fingerprintable for caching: Func and
// VersionedFunc carry code identities, Bound is a partial application.
type Function interface {
	Call(ref, frame trajectory.Frame) Value
}

// PairFunc is the plain signature behind every Function.
type PairFunc func(ref, frame trajectory.Frame) Value

// Func is a named pair function; its captured values take part in its
// fingerprint.
type Func struct {
	*checksum.Func[PairFunc]
}

// NewFunc names fn for fingerprinting. Pass every value fn closes over as a
// capture.
func NewFunc(name string, fn PairFunc, captured ...any) Func {
	return Func{checksum.NewFunc(name, fn, captured...)}
}

// Call implements Function.
func (f Func) Call(ref, frame trajectory.Frame) Value {
	return f.Fn(ref, frame)
}

// VersionedFunc is a pair function fingerprinted by name and version only.
type VersionedFunc struct {
	*checksum.Versioned[PairFunc]
}

// NewVersioned registers fn in the default registry.
// Panics on a conflicting registration.
func NewVersioned(name string, fn PairFunc, version int, deps ...any) VersionedFunc {
	return VersionedFunc{checksum.MustRegister(name, fn, version, deps...)}
}

// Call implements Function.
func (f VersionedFunc) Call(ref, frame trajectory.Frame) Value {
	return f.Fn(ref, frame)
}

// Kernel is a pair function with keyword parameters.
type Kernel func(ref, frame trajectory.Frame, kw checksum.Kwargs) Value

// KernelFunc is a versioned kernel. Bind turns it into a Function.
type KernelFunc struct {
	*checksum.Versioned[Kernel]
}

// NewKernel registers fn in the default registry.
// Panics on a conflicting registration.
func NewKernel(name string, fn Kernel, version int, deps ...any) KernelFunc {
	return KernelFunc{checksum.MustRegister(name, fn, version, deps...)}
}

// Bind fixes keyword arguments. The result fingerprints as a partial
// application of the kernel, so keyword order is irrelevant.
func (k KernelFunc) Bind(kw checksum.Kwargs) Bound {
	return Bound{kernel: k, kw: maps.Clone(kw)}
}

// Bound is a kernel with bound keyword arguments.
type Bound struct {
	kernel KernelFunc
	kw     checksum.Kwargs
}

// Call implements Function.
func (b Bound) Call(ref, frame trajectory.Frame) Value {
	return b.kernel.Fn(ref, frame, b.kw)
}

// PartialFunc implements checksum.PartialApplication.
func (b Bound) PartialFunc() any {
	return b.kernel
}

// PartialArgs implements checksum.PartialApplication.
func (b Bound) PartialArgs() []any {
	return nil
}

// PartialKeywords implements checksum.PartialApplication.
func (b Bound) PartialKeywords() map[string]any {
	return maps.Clone(map[string]any(b.kw))
}
