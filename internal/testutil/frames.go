package testutil

import "github.com/mdeval/mdeval/internal/trajectory"

// Ramp returns n frames one time unit apart, starting at time 0. Every atom
// of frame i sits at (i, 0, 0), so each atom moves one unit per frame and
// the mean squared displacement at lag k is exactly k*k.
func Ramp(n, atoms int) *trajectory.Frames {
	frames := make([]trajectory.Frame, n)
	for i := range frames {
		coords := make([]trajectory.Vec, atoms)
		for a := range coords {
			coords[a] = trajectory.Vec{float64(i), 0, 0}
		}
		frames[i] = trajectory.Frame{Step: i, Time: float64(i), Coords: coords}
	}
	return trajectory.NewFrames(frames)
}

// Values returns frames whose coordinate sum equals values[i], one atom
// each, one time unit apart.
func Values(values ...float64) *trajectory.Frames {
	frames := make([]trajectory.Frame, len(values))
	for i, v := range values {
		frames[i] = trajectory.Frame{
			Step:   i,
			Time:   float64(i),
			Coords: []trajectory.Vec{{v, 0, 0}},
		}
	}
	return trajectory.NewFrames(frames)
}
