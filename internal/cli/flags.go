package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mdeval/mdeval/internal/checksum"
	"github.com/mdeval/mdeval/internal/config"
	"github.com/mdeval/mdeval/internal/correlation"
	"github.com/mdeval/mdeval/internal/trajectory"
)

// AnalysisFlags describe a shifted correlation on the command line. With
// --config, only flags given explicitly override the file.
type AnalysisFlags struct {
	Config     string
	Observable string
	Params     []string
	Segments   int
	Window     float64
	Skip       float64
	Average    bool
	Indices    string
	Num        int
	Step       int
	Offsets    []int
}

func (f *AnalysisFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.Config, "config", "c", "", "CUE analysis file")
	fs.StringVar(&f.Observable, "observable", "msd", "observable name (see `mdeval observables`)")
	fs.StringArrayVarP(&f.Params, "param", "p", nil, "observable keyword as key=value; comma-separate list values")
	fs.IntVar(&f.Segments, "segments", correlation.DefaultSegments, "number of shifted windows")
	fs.Float64Var(&f.Window, "window", correlation.DefaultWindow, "window length as a fraction of the trajectory")
	fs.Float64Var(&f.Skip, "skip", 0, "fraction skipped at the start (default: slice start of the trajectory)")
	fs.BoolVar(&f.Average, "average", false, "average over segments")
	fs.StringVar(&f.Indices, "indices", config.IndicesLog, "lag distribution (log|linear|explicit)")
	fs.IntVar(&f.Num, "num", correlation.DefaultLogPoints, "log distribution: number of points")
	fs.IntVar(&f.Step, "step", 1, "linear distribution: step")
	fs.IntSliceVar(&f.Offsets, "offsets", nil, "explicit distribution: lag offsets")
}

// resolve merges the config file, if any, with the flags.
func (f *AnalysisFlags) resolve(cmd *cobra.Command) (*config.Analysis, error) {
	fs := cmd.Flags()
	set := func(name string) bool {
		return f.Config == "" || fs.Changed(name)
	}

	a := &config.Analysis{Params: checksum.Kwargs{}}
	if f.Config != "" {
		loaded, err := config.LoadAnalysis(f.Config)
		if err != nil {
			return nil, err
		}
		a = loaded
	}

	if set("observable") {
		a.Observable = f.Observable
	}
	if set("param") && len(f.Params) > 0 {
		kw, err := parseParams(f.Params)
		if err != nil {
			return nil, err
		}
		a.Params = kw
	}
	if set("segments") {
		a.Segments = f.Segments
	}
	if set("window") {
		a.Window = f.Window
	}
	if fs.Changed("skip") {
		a.Skip = correlation.Fraction(f.Skip)
	}
	if set("average") {
		a.Average = f.Average
	}

	if set("indices") {
		a.Indices.Kind = f.Indices
	}
	if set("num") {
		a.Indices.Num = f.Num
	}
	if set("step") {
		a.Indices.Step = f.Step
	}
	if set("offsets") {
		a.Indices.Offsets = f.Offsets
	}
	return a, nil
}

// parseParams reads key=value pairs. Values with commas become lists;
// integral values stay ints so observables can check them.
func parseParams(pairs []string) (checksum.Kwargs, error) {
	kw := checksum.Kwargs{}
	for _, p := range pairs {
		key, raw, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("param %q: expected key=value", p)
		}
		if strings.Contains(raw, ",") {
			var xs []float64
			for _, part := range strings.Split(raw, ",") {
				x, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
				if err != nil {
					return nil, fmt.Errorf("param %s: %w", key, err)
				}
				xs = append(xs, x)
			}
			kw[key] = xs
			continue
		}
		raw = strings.TrimSpace(raw)
		if n, err := strconv.Atoi(raw); err == nil {
			kw[key] = n
			continue
		}
		x, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", key, err)
		}
		kw[key] = x
	}
	return kw, nil
}

// TrajectoryFlags select the frames: a YAML file argument or a generated
// random walk, optionally sliced.
type TrajectoryFlags struct {
	WalkFrames int
	WalkAtoms  int
	WalkDt     float64
	Seed       uint64
	Start      int
	Stop       int
	Stride     int
}

func (f *TrajectoryFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVar(&f.WalkFrames, "walk-frames", 0, "generate a random walk with this many frames instead of reading a file")
	fs.IntVar(&f.WalkAtoms, "walk-atoms", 16, "random walk: number of atoms")
	fs.Float64Var(&f.WalkDt, "walk-dt", 1, "random walk: time between frames")
	fs.Uint64Var(&f.Seed, "seed", 1, "random walk: seed")
	fs.IntVar(&f.Start, "start", 0, "first frame of the slice")
	fs.IntVar(&f.Stop, "stop", 0, "end of the slice, exclusive (0 means the end)")
	fs.IntVar(&f.Stride, "stride", 1, "slice step")
}

func (f *TrajectoryFlags) load(args []string) (*trajectory.Frames, error) {
	var (
		frames *trajectory.Frames
		err    error
	)
	switch {
	case len(args) == 1:
		frames, err = trajectory.LoadYAML(args[0])
	case f.WalkFrames > 0:
		frames, err = trajectory.RandomWalk(trajectory.WalkConfig{
			Frames: f.WalkFrames,
			Atoms:  f.WalkAtoms,
			Dt:     f.WalkDt,
			Seed:   f.Seed,
		})
	default:
		return nil, fmt.Errorf("a trajectory file or --walk-frames is required")
	}
	if err != nil {
		return nil, err
	}

	if f.Start == 0 && f.Stop == 0 && f.Stride == 1 {
		return frames, nil
	}
	stop := f.Stop
	if stop == 0 {
		stop = frames.Len()
	}
	return frames.Slice(f.Start, stop, f.Stride)
}

// resolveInputs resolves the observable, options and frames shared by correlate
// and checksum. Failures are command errors.
func resolveInputs(cmd *cobra.Command, af *AnalysisFlags, tf *TrajectoryFlags, args []string) (correlation.Function, correlation.Options, trajectory.Sequence, error) {
	a, err := af.resolve(cmd)
	if err != nil {
		return nil, correlation.Options{}, nil, WrapExitError(ExitCommandError, ErrCodeConfig, "invalid analysis", err)
	}
	fn, err := a.Function()
	if err != nil {
		return nil, correlation.Options{}, nil, WrapExitError(ExitCommandError, ErrCodeConfig, "invalid observable", err)
	}
	opts, err := a.Options()
	if err != nil {
		return nil, correlation.Options{}, nil, WrapExitError(ExitCommandError, ErrCodeConfig, "invalid analysis", err)
	}
	frames, err := tf.load(args)
	if err != nil {
		return nil, correlation.Options{}, nil, WrapExitError(ExitCommandError, ErrCodeTrajectory, "failed to load trajectory", err)
	}
	return fn, opts, frames, nil
}

// newTask validates the inputs the way the scheduler will.
func newTask(fn correlation.Function, frames trajectory.Sequence, opts correlation.Options) (*correlation.Task, error) {
	task, err := correlation.NewTask(fn, frames, opts)
	if err != nil {
		if correlation.IsConfigurationError(err) {
			return nil, WrapExitError(ExitCommandError, ErrCodeInvalidWindow, "invalid correlation options", err)
		}
		return nil, WrapExitError(ExitCommandError, ErrCodeConfig, "invalid correlation options", err)
	}
	return task, nil
}
