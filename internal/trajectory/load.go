package trajectory

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the YAML fixture layout:
//
//	box: [3.0, 3.0, 3.0]
//	frames:
//	  - step: 0
//	    time: 0.0
//	    coords: [[0, 0, 0], [1, 1, 1]]
type File struct {
	// Box applies to every frame that does not set its own.
	Box    []float64   `yaml:"box,omitempty"`
	Frames []FileFrame `yaml:"frames"`
}

// FileFrame is one frame of a fixture file.
type FileFrame struct {
	Step   int         `yaml:"step"`
	Time   float64     `yaml:"time"`
	Box    []float64   `yaml:"box,omitempty"`
	Coords [][]float64 `yaml:"coords"`
}

// LoadYAML reads a fixture file from path.
func LoadYAML(path string) (*Frames, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trajectory: %w", err)
	}
	frames, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return frames, nil
}

// ParseYAML decodes fixture bytes. Every frame must hold the same number of
// atoms and every coordinate exactly three components.
func ParseYAML(data []byte) (*Frames, error) {
	var file File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse trajectory YAML: %w", err)
	}

	defaultBox, err := toVec(file.Box, "box")
	if err != nil {
		return nil, err
	}

	frames := make([]Frame, len(file.Frames))
	atoms := -1
	for i, ff := range file.Frames {
		if atoms >= 0 && len(ff.Coords) != atoms {
			return nil, fmt.Errorf("frame %d: has %d atoms, expected %d", i, len(ff.Coords), atoms)
		}
		atoms = len(ff.Coords)

		box := defaultBox
		if ff.Box != nil {
			if box, err = toVec(ff.Box, fmt.Sprintf("frame %d box", i)); err != nil {
				return nil, err
			}
		}

		coords := make([]Vec, len(ff.Coords))
		for j, c := range ff.Coords {
			if coords[j], err = toVec(c, fmt.Sprintf("frame %d atom %d", i, j)); err != nil {
				return nil, err
			}
		}
		frames[i] = Frame{Step: ff.Step, Time: ff.Time, Box: box, Coords: coords}
	}

	return NewFrames(frames), nil
}

func toVec(xs []float64, what string) (Vec, error) {
	if xs == nil {
		return Vec{}, nil
	}
	if len(xs) != 3 {
		return Vec{}, fmt.Errorf("%s: expected 3 components, got %d", what, len(xs))
	}
	return Vec{xs[0], xs[1], xs[2]}, nil
}

// MarshalYAML encodes a sequence in fixture layout. Used to export generated
// trajectories.
func MarshalYAML(seq Sequence) ([]byte, error) {
	file := File{Frames: make([]FileFrame, 0, seq.Len())}
	for i := 0; i < seq.Len(); i++ {
		f, err := seq.At(i)
		if err != nil {
			return nil, err
		}
		coords := make([][]float64, len(f.Coords))
		for j, c := range f.Coords {
			coords[j] = []float64{c[0], c[1], c[2]}
		}
		file.Frames = append(file.Frames, FileFrame{
			Step:   f.Step,
			Time:   f.Time,
			Box:    []float64{f.Box[0], f.Box[1], f.Box[2]},
			Coords: coords,
		})
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return nil, fmt.Errorf("failed to encode trajectory YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
