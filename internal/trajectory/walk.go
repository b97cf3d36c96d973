package trajectory

import (
	"fmt"
	"math/rand/v2"
)

// WalkConfig describes a synthetic random-walk trajectory.
type WalkConfig struct {
	Frames   int
	Atoms    int
	Dt       float64 // time between frames
	StepSize float64 // standard deviation of each displacement component
	Box      float64 // cubic box edge; initial positions are uniform inside it
	Seed     uint64
}

// RandomWalk generates a reproducible Brownian trajectory. The same config
// always yields bit-identical frames, so generated trajectories fingerprint
// identically across runs.
func RandomWalk(cfg WalkConfig) (*Frames, error) {
	if cfg.Frames <= 0 || cfg.Atoms <= 0 {
		return nil, fmt.Errorf("random walk: frames and atoms must be positive (got %d, %d)", cfg.Frames, cfg.Atoms)
	}
	if cfg.Dt <= 0 {
		cfg.Dt = 1
	}
	if cfg.StepSize <= 0 {
		cfg.StepSize = 0.1
	}
	if cfg.Box <= 0 {
		cfg.Box = 5
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	box := Vec{cfg.Box, cfg.Box, cfg.Box}

	pos := make([]Vec, cfg.Atoms)
	for i := range pos {
		pos[i] = Vec{rng.Float64() * cfg.Box, rng.Float64() * cfg.Box, rng.Float64() * cfg.Box}
	}

	frames := make([]Frame, cfg.Frames)
	for t := range frames {
		coords := make([]Vec, cfg.Atoms)
		copy(coords, pos)
		frames[t] = Frame{Step: t, Time: float64(t) * cfg.Dt, Box: box, Coords: coords}

		for i := range pos {
			for k := 0; k < 3; k++ {
				pos[i][k] += rng.NormFloat64() * cfg.StepSize
			}
		}
	}
	return NewFrames(frames), nil
}
