package correlation

import (
	"iter"

	"github.com/mdeval/mdeval/internal/checksum"
	"github.com/mdeval/mdeval/internal/trajectory"
)

// CombineFunc turns one segment's lazy frame stream into a lazy value
// stream. It must consume frames in order and may stop early.
type CombineFunc func(fn Function, frames iter.Seq[trajectory.Frame]) iter.Seq[Value]

// Combinator is a named CombineFunc.
type Combinator struct {
	*checksum.Func[CombineFunc]
}

// Stream applies the combinator.
func (c Combinator) Stream(fn Function, frames iter.Seq[trajectory.Frame]) iter.Seq[Value] {
	return c.Fn(fn, frames)
}

// Correlate is the default combinator: the first frame is the reference and
// fn(ref, f) is yielded for every frame, the reference included.
var Correlate = Combinator{checksum.NewFunc[CombineFunc]("correlation.correlation", correlate)}

func correlate(fn Function, frames iter.Seq[trajectory.Frame]) iter.Seq[Value] {
	return func(yield func(Value) bool) {
		var ref trajectory.Frame
		first := true
		for f := range frames {
			if first {
				ref, first = f, false
			}
			if !yield(fn.Call(ref, f)) {
				return
			}
		}
	}
}

// SelectFunc derives an atom mask from a segment's reference frame.
type SelectFunc func(ref trajectory.Frame) trajectory.Mask

// Selector is a named SelectFunc.
type Selector struct {
	*checksum.Func[SelectFunc]
}

// NewSelector names fn for fingerprinting.
func NewSelector(name string, fn SelectFunc, captured ...any) Selector {
	return Selector{checksum.NewFunc(name, fn, captured...)}
}

// All selects every atom.
var All = NewSelector("correlation.select_all", func(ref trajectory.Frame) trajectory.Mask {
	m := make(trajectory.Mask, ref.Len())
	for i := range m {
		m[i] = true
	}
	return m
})

// Subensemble wraps base so each segment is restricted to the atoms sel picks
// in the segment's first frame. The mask stays frozen for the whole segment.
func Subensemble(sel Selector, base Combinator) Combinator {
	fn := func(fn Function, frames iter.Seq[trajectory.Frame]) iter.Seq[Value] {
		masked := func(yield func(trajectory.Frame) bool) {
			var mask trajectory.Mask
			first := true
			for f := range frames {
				if first {
					mask, first = sel.Fn(f), false
				}
				if !yield(f.Select(mask)) {
					return
				}
			}
		}
		return base.Fn(fn, masked)
	}
	return Combinator{checksum.NewFunc[CombineFunc]("correlation.subensemble_correlation", fn, sel, base)}
}
