package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mdeval/mdeval/internal/cache"
	"github.com/mdeval/mdeval/internal/canonical"
	"github.com/mdeval/mdeval/internal/correlation"
	"github.com/mdeval/mdeval/internal/spectra"
)

// CorrelateOptions holds flags for the correlate command.
type CorrelateOptions struct {
	*RootOptions
	Analysis   AnalysisFlags
	Trajectory TrajectoryFlags
	NoCache    bool
	Output     string

	Susceptibility bool
	Derivative     string
}

// CorrelateResult is the JSON payload of the correlate command.
type CorrelateResult struct {
	Key    string          `json:"key"`
	Hex    string          `json:"hex"`
	Label  string          `json:"label"`
	Cached bool            `json:"cached"`
	Result json.RawMessage `json:"result"`

	// Susceptibility is {"omega": [...], "chi": [...]} when requested.
	Susceptibility json.RawMessage `json:"susceptibility,omitempty"`
}

// NewCorrelateCommand creates the correlate command.
func NewCorrelateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CorrelateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "correlate [trajectory.yaml]",
		Short: "Run a shifted correlation, reusing cached results",
		Long: `Run a shifted correlation of an observable over a trajectory.

The result is looked up in the cache by fingerprint first and computed
only on a miss. Non-finite values print as null in JSON output.

Examples:
  mdeval correlate traj.yaml --observable msd --segments 20 --average
  mdeval correlate traj.yaml -c analysis.cue --db ./cache.db
  mdeval correlate --walk-frames 1000 --observable isf -p q=7.3 --format json
  mdeval correlate traj.yaml --observable isf -p q=7.3 --average --susceptibility`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCorrelate(opts, cmd, args)
		},
	}

	opts.Analysis.register(cmd)
	opts.Trajectory.register(cmd)
	cmd.Flags().BoolVar(&opts.NoCache, "no-cache", false, "compute without reading or writing the cache")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "also write the canonical result JSON to this file")
	cmd.Flags().BoolVar(&opts.Susceptibility, "susceptibility", false, "also print the susceptibility of the (segment-averaged) correlation")
	cmd.Flags().StringVar(&opts.Derivative, "derivative", "linear", "slope estimate for the susceptibility (linear|stencil)")

	return cmd
}

func runCorrelate(opts *CorrelateOptions, cmd *cobra.Command, args []string) error {
	formatter := opts.formatter(cmd)
	logger := opts.Logger()

	fn, copts, frames, err := resolveInputs(cmd, &opts.Analysis, &opts.Trajectory, args)
	if err != nil {
		return formatter.Fail(err)
	}
	derivative, err := spectra.ParseDerivative(opts.Derivative)
	if err != nil {
		return formatter.Fail(WrapExitError(ExitCommandError, ErrCodeConfig, "invalid --derivative", err))
	}
	task, err := newTask(fn, frames, copts)
	if err != nil {
		return formatter.Fail(err)
	}
	key := task.Key(nil)
	formatter.VerboseLog("Task %s: %s", key.Hex(), task.Label())

	var gw *cache.Gateway
	schedOpts := []correlation.SchedulerOption{correlation.WithLogger(logger)}
	if !opts.NoCache {
		backend, err := openBackend(opts.RootOptions)
		if err != nil {
			return formatter.Fail(err)
		}
		defer backend.Close()
		formatter.VerboseLog("Cache: %s", backend.Describe)

		gw, err = cache.NewGateway(backend, cache.WithGatewayLogger(logger))
		if err != nil {
			return formatter.Fail(WrapExitError(ExitCommandError, ErrCodeCache, "failed to create cache gateway", err))
		}
	}

	var sched *correlation.Scheduler
	if gw != nil {
		sched = correlation.NewScheduler(gw, schedOpts...)
	} else {
		sched = correlation.NewScheduler(nil, schedOpts...)
	}

	res, err := sched.Shifted(cmd.Context(), fn, frames, copts)
	if err != nil {
		return formatter.Fail(WrapExitError(ExitFailure, ErrCodeCompute, "correlation failed", err))
	}
	cached := gw != nil && gw.Stats().Misses == 0

	canon, err := res.MarshalCanonical()
	if err != nil {
		return formatter.Fail(WrapExitError(ExitFailure, ErrCodeCompute, "failed to encode result", err))
	}
	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, canon, 0o644); err != nil {
			return formatter.Fail(WrapExitError(ExitCommandError, ErrCodeGeneric, "failed to write output file", err))
		}
	}

	out := CorrelateResult{
		Key:    key.String(),
		Hex:    key.Hex(),
		Label:  task.Label(),
		Cached: cached,
		Result: canon,
	}

	var omega, chi []float64
	if opts.Susceptibility {
		times, values, err := spectra.Series(res)
		if err == nil {
			omega, chi, err = spectra.Susceptibility(times, values, spectra.FilonOptions{Derivative: derivative})
		}
		if err != nil {
			return formatter.Fail(WrapExitError(ExitFailure, ErrCodeCompute, "susceptibility failed", err))
		}
		out.Susceptibility, err = canonical.Marshal(map[string]any{
			"omega": correlation.FiniteOrNull(omega),
			"chi":   correlation.FiniteOrNull(chi),
		})
		if err != nil {
			return formatter.Fail(WrapExitError(ExitFailure, ErrCodeCompute, "failed to encode susceptibility", err))
		}
	}

	if formatter.JSON() {
		return formatter.Success(out, "")
	}
	if err := writeResultText(formatter, out, res); err != nil {
		return err
	}
	if omega == nil {
		return nil
	}
	fmt.Fprintf(formatter.Writer, "\n# susceptibility (%s derivative)\n", derivative)
	rows := make([][]string, len(omega))
	for i := range omega {
		rows[i] = []string{formatFloat(omega[i]), formatFloat(chi[i])}
	}
	return formatter.Table([]string{"omega", "chi"}, rows)
}

func writeResultText(f *OutputFormatter, out CorrelateResult, res *correlation.Result) error {
	status := "computed"
	if out.Cached {
		status = "cached"
	}
	fmt.Fprintf(f.Writer, "# %s\n# key %s (%s)\n", out.Label, out.Hex, status)

	header := []string{"time"}
	if res.Averaged {
		header = append(header, "mean")
	} else {
		for i := range res.Data {
			header = append(header, fmt.Sprintf("seg%d", i+1))
		}
	}

	rows := make([][]string, len(res.Times))
	for j, t := range res.Times {
		row := []string{formatFloat(t)}
		for _, seg := range res.Data {
			row = append(row, formatValue(seg[j]))
		}
		rows[j] = row
	}
	return f.Table(header, rows)
}

func formatValue(v correlation.Value) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = formatFloat(x)
	}
	return strings.Join(parts, " ")
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', 8, 64)
}
