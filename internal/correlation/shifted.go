package correlation

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"github.com/mdeval/mdeval/internal/checksum"
	"github.com/mdeval/mdeval/internal/trajectory"
)

const (
	// DefaultSegments is the number of shifted windows when Options.Segments is 0.
	DefaultSegments = 10

	// DefaultWindow is the window fraction when Options.Window is 0.
	DefaultWindow = 0.5
)

// taskName is the code identity of a shifted correlation in cache keys.
const taskName = "correlation.shifted_correlation"

// Options configures a shifted correlation. The zero value selects
// LogIndices, Correlate, DefaultSegments and DefaultWindow, with the skip
// taken from the frame source.
type Options struct {
	Indices     IndexDistribution
	Correlation Combinator
	Segments    int
	Window      float64

	// Skip is the fraction of the trajectory skipped at the start. Nil means
	// the frame source's slice start fraction, or 0.
	Skip *float64

	Average bool
}

// Fraction returns a pointer to v, for Options.Skip.
func Fraction(v float64) *float64 {
	return &v
}

func (o Options) withDefaults() Options {
	if o.Indices.Func == nil {
		o.Indices = LogIndices
	}
	if o.Correlation.Func == nil {
		o.Correlation = Correlate
	}
	if o.Segments == 0 {
		o.Segments = DefaultSegments
	}
	if o.Window == 0 {
		o.Window = DefaultWindow
	}
	return o
}

// Task is one validated shifted correlation: a function, a frame source and
// resolved options.
type Task struct {
	fn     Function
	frames trajectory.Sequence
	opts   Options
	skip   float64
	logger *slog.Logger
}

// NewTask resolves defaults and validates opts. It never reads frames.
func NewTask(fn Function, frames trajectory.Sequence, opts Options) (*Task, error) {
	opts = opts.withDefaults()

	skip := 0.0
	switch {
	case opts.Skip != nil:
		skip = *opts.Skip
	default:
		if s, ok := frames.(trajectory.SliceStarter); ok {
			skip = s.SliceStartFraction()
		}
	}

	if fn == nil || frames == nil {
		return nil, newConfigError(ErrCodeMissingInput, "function and frames are required", opts.Window, skip, opts.Segments)
	}
	if opts.Segments < 1 {
		return nil, newConfigError(ErrCodeInvalidSegments, "segments must be at least 1", opts.Window, skip, opts.Segments)
	}
	// Written positively so NaN fails every check.
	if !(skip >= 0) {
		return nil, newConfigError(ErrCodeInvalidSkip, "skip must not be negative", opts.Window, skip, opts.Segments)
	}
	if !(opts.Window > 0) || !(opts.Window+skip < 1) {
		return nil, newConfigError(ErrCodeInvalidWindow, "window must be positive and window + skip must be below 1", opts.Window, skip, opts.Segments)
	}

	opts.Skip = Fraction(skip)
	return &Task{fn: fn, frames: frames, opts: opts, skip: skip, logger: slog.Default()}, nil
}

// Options returns the resolved options. Skip is always set.
func (t *Task) Options() Options {
	o := t.opts
	o.Skip = Fraction(t.skip)
	return o
}

// Descriptor describes the whole call for fingerprinting: the function and
// frames as positional arguments, every option as a keyword.
func (t *Task) Descriptor() checksum.Partial {
	return checksum.Partial{
		Func: checksum.Closure{Code: []byte(taskName)},
		Args: []any{t.fn, t.frames},
		Kwargs: map[string]any{
			"index_distribution": t.opts.Indices,
			"correlation":        t.opts.Correlation,
			"segments":           t.opts.Segments,
			"window":             t.opts.Window,
			"skip":               t.skip,
			"average":            t.opts.Average,
		},
	}
}

// Key fingerprints the task with e, or the default engine when e is nil.
func (t *Task) Key(e *checksum.Engine) checksum.Fingerprint {
	if e == nil {
		e = checksum.Default()
	}
	return e.Sum(t.Descriptor())
}

// Label is a short human-readable description for logs and cache listings.
func (t *Task) Label() string {
	return fmt.Sprintf("shifted_correlation(%s, %s)", checksum.Label(t.fn), checksum.Label(t.frames))
}

// Starts returns the segment start frames in ascending order: Segments
// evenly spaced offsets over [skip*N, (1-window-skip)*N), truncated.
func (t *Task) Starts() []int {
	n := float64(t.frames.Len())
	lo := n * t.skip
	hi := n * (1 - t.opts.Window - t.skip)
	step := (hi - lo) / float64(t.opts.Segments)

	starts := make([]int, t.opts.Segments)
	for i := range starts {
		starts[i] = int(float64(i)*step + lo)
	}
	slices.Sort(starts)
	return starts
}

// Lags returns the lag offsets from the index distribution over
// [0, floor(window*N)].
func (t *Task) Lags() []int {
	numFrames := int(float64(t.frames.Len()) * t.opts.Window)
	return t.opts.Indices.Offsets(0, numFrames)
}

// Compute runs the correlation without any caching. Segments run one at a
// time in ascending start order; ctx is checked between segments.
func (t *Task) Compute(ctx context.Context) (*Result, error) {
	starts := t.Starts()
	lags := t.Lags()

	rows := make([][]Value, 0, len(starts))
	for i, start := range starts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t.logger.Debug("shifted correlation segment", "segment", i+1, "of", len(starts), "start", start)

		row, err := t.segment(start, lags)
		if err != nil {
			return nil, fmt.Errorf("segment %d (start %d): %w", i+1, start, err)
		}
		rows = append(rows, row)
	}

	times, err := t.times(lags)
	if err != nil {
		return nil, err
	}

	res := &Result{Times: times, Data: rows}
	if err := res.Validate(); err != nil {
		return nil, err
	}
	if t.opts.Average {
		res.Data = average(rows)
		res.Averaged = true
	}
	return res, nil
}

// segment streams frames start+lag lazily into the combinator.
func (t *Task) segment(start int, lags []int) ([]Value, error) {
	var fetchErr error
	frames := t.stream(start, lags, &fetchErr)

	row := make([]Value, 0, len(lags))
	for v := range t.opts.Correlation.Stream(t.fn, frames) {
		row = append(row, v)
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	return row, nil
}

func (t *Task) stream(start int, lags []int, errp *error) iter.Seq[trajectory.Frame] {
	return func(yield func(trajectory.Frame) bool) {
		for _, lag := range lags {
			f, err := t.frames.At(start + lag)
			if err != nil {
				*errp = fmt.Errorf("lag %d: %w", lag, err)
				return
			}
			if !yield(f) {
				return
			}
		}
	}
}

func (t *Task) times(lags []int) ([]float64, error) {
	origin, err := t.frames.At(0)
	if err != nil {
		return nil, fmt.Errorf("lag times: %w", err)
	}
	times := make([]float64, len(lags))
	for i, lag := range lags {
		f, err := t.frames.At(lag)
		if err != nil {
			return nil, fmt.Errorf("lag times: %w", err)
		}
		times[i] = f.Time - origin.Time
	}
	return times, nil
}

// Shifted computes a shifted correlation of fn over frames without caching.
func Shifted(ctx context.Context, fn Function, frames trajectory.Sequence, opts Options) (*Result, error) {
	task, err := NewTask(fn, frames, opts)
	if err != nil {
		return nil, err
	}
	return task.Compute(ctx)
}
