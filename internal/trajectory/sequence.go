package trajectory

import (
	"fmt"
	"sync"

	"github.com/mdeval/mdeval/internal/checksum"
)

// Sequence is an ordered, integer-indexable sequence of frames.
// At may be expensive; callers fetch lazily.
type Sequence interface {
	Len() int
	At(i int) (Frame, error)
}

// SliceStarter is implemented by sequences that are a slice of a longer
// trajectory. The fraction is the slice start relative to the full length.
type SliceStarter interface {
	SliceStartFraction() float64
}

// IndexError reports an out-of-range frame access.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("frame index %d out of range [0, %d)", e.Index, e.Len)
}

// store is the shared backing array of a family of slices.
type store struct {
	frames []Frame

	sumOnce sync.Once
	sum     checksum.Fingerprint
}

// content fingerprints every time stamp and coordinate once.
func (s *store) content() checksum.Fingerprint {
	s.sumOnce.Do(func() {
		times := make([]float64, len(s.frames))
		values := make([]any, 0, len(s.frames)+2)
		for i, f := range s.frames {
			times[i] = f.Time
		}
		values = append(values, "trajectory.frames", times)
		for _, f := range s.frames {
			values = append(values, f)
		}
		s.sum = checksum.Sum(values...)
	})
	return s.sum
}

// Frames is an in-memory Sequence. Slicing shares the backing frames.
type Frames struct {
	store *store
	start int
	stop  int
	step  int
}

// NewFrames wraps frames without copying them.
func NewFrames(frames []Frame) *Frames {
	return &Frames{
		store: &store{frames: frames},
		start: 0,
		stop:  len(frames),
		step:  1,
	}
}

// Len implements Sequence.
func (f *Frames) Len() int {
	if f.stop <= f.start {
		return 0
	}
	return (f.stop - f.start + f.step - 1) / f.step
}

// At implements Sequence.
func (f *Frames) At(i int) (Frame, error) {
	n := f.Len()
	if i < 0 || i >= n {
		return Frame{}, &IndexError{Index: i, Len: n}
	}
	return f.store.frames[f.start+i*f.step], nil
}

// Slice returns the frames [start:stop:step] of f, with Python-style clamping
// of start and stop. A negative stop counts from the end.
func (f *Frames) Slice(start, stop, step int) (*Frames, error) {
	if step <= 0 {
		return nil, fmt.Errorf("slice: step must be positive, got %d", step)
	}
	n := f.Len()
	if start < 0 {
		start = max(0, n+start)
	}
	if stop < 0 {
		stop = max(0, n+stop)
	}
	start = min(start, n)
	stop = min(stop, n)

	return &Frames{
		store: f.store,
		start: f.start + start*f.step,
		stop:  f.start + stop*f.step,
		step:  f.step * step,
	}, nil
}

// SliceStartFraction implements SliceStarter: the slice start relative to
// the full backing trajectory.
func (f *Frames) SliceStartFraction() float64 {
	total := len(f.store.frames)
	if total == 0 {
		return 0
	}
	return float64(f.start) / float64(total)
}

// Checksum implements checksum.Checksummer. The content digest is computed
// once per backing trajectory; slices add their bounds.
func (f *Frames) Checksum() checksum.Fingerprint {
	return checksum.Sum(f.store.content(), f.start, f.stop, f.step)
}

// Name describes the sequence in logs and cache listings.
func (f *Frames) Name() string {
	return fmt.Sprintf("frames[%d:%d:%d]", f.start, f.stop, f.step)
}
