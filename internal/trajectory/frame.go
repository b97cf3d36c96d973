// Package trajectory provides the frame sources the correlation scheduler
// reads from: an integer-indexable, length-bearing sequence of snapshots,
// each carrying a time stamp and per-atom coordinates.
//
// Loading real simulation formats and periodic-boundary arithmetic live
// elsewhere; this package covers in-memory sequences, YAML fixtures and a
// deterministic random-walk generator.
package trajectory

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Vec is a three-dimensional vector.
type Vec [3]float64

// Sub returns v - o.
func (v Vec) Sub(o Vec) Vec {
	return Vec{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

// Dot returns the scalar product.
func (v Vec) Dot(o Vec) float64 {
	return v[0]*o[0] + v[1]*o[1] + v[2]*o[2]
}

// Norm2 returns the squared length.
func (v Vec) Norm2() float64 {
	return v.Dot(v)
}

// Frame is one snapshot of a trajectory.
type Frame struct {
	Step   int
	Time   float64
	Box    Vec
	Coords []Vec
}

// Mask selects atoms of a frame.
type Mask []bool

// Len returns the number of atoms.
func (f Frame) Len() int {
	return len(f.Coords)
}

// Select returns a copy of f restricted to the atoms where m is true.
// Atoms beyond the end of m are dropped.
func (f Frame) Select(m Mask) Frame {
	out := Frame{Step: f.Step, Time: f.Time, Box: f.Box}
	for i, c := range f.Coords {
		if i < len(m) && m[i] {
			out.Coords = append(out.Coords, c)
		}
	}
	return out
}

// Displacements returns other.Coords[i] - f.Coords[i] for each atom.
// Both frames must hold the same number of atoms.
func (f Frame) Displacements(other Frame) ([]Vec, error) {
	if len(f.Coords) != len(other.Coords) {
		return nil, fmt.Errorf("displacements: atom count mismatch %d != %d", len(f.Coords), len(other.Coords))
	}
	d := make([]Vec, len(f.Coords))
	for i := range f.Coords {
		d[i] = other.Coords[i].Sub(f.Coords[i])
	}
	return d, nil
}

// Sum returns the sum of all coordinate components.
func (f Frame) Sum() float64 {
	var s float64
	for _, c := range f.Coords {
		s += c[0] + c[1] + c[2]
	}
	return s
}

// RawBytes returns the coordinate buffer as little-endian float64s, row-major.
// Time, step and box are not part of it.
func (f Frame) RawBytes() []byte {
	buf := make([]byte, 24*len(f.Coords))
	for i, c := range f.Coords {
		for j := 0; j < 3; j++ {
			binary.LittleEndian.PutUint64(buf[24*i+8*j:], math.Float64bits(c[j]))
		}
	}
	return buf
}
