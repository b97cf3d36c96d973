package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mdeval/mdeval/internal/cache"
)

// ChecksumOptions holds flags for the checksum command.
type ChecksumOptions struct {
	*RootOptions
	Analysis   AnalysisFlags
	Trajectory TrajectoryFlags
	Check      bool
}

// ChecksumResult is the JSON payload of the checksum command.
type ChecksumResult struct {
	Key    string `json:"key"`
	Hex    string `json:"hex"`
	Label  string `json:"label"`
	Cached *bool  `json:"cached,omitempty"`
}

// NewChecksumCommand creates the checksum command.
func NewChecksumCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ChecksumOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "checksum [trajectory.yaml]",
		Short: "Print the cache key of a correlation without running it",
		Long: `Print the fingerprint a correlate invocation with the same arguments
would be cached under. No frames are correlated.

With --check, also report whether the cache already holds the result.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChecksum(opts, cmd, args)
		},
	}

	opts.Analysis.register(cmd)
	opts.Trajectory.register(cmd)
	cmd.Flags().BoolVar(&opts.Check, "check", false, "look the key up in the cache")

	return cmd
}

func runChecksum(opts *ChecksumOptions, cmd *cobra.Command, args []string) error {
	formatter := opts.formatter(cmd)

	fn, copts, frames, err := resolveInputs(cmd, &opts.Analysis, &opts.Trajectory, args)
	if err != nil {
		return formatter.Fail(err)
	}
	task, err := newTask(fn, frames, copts)
	if err != nil {
		return formatter.Fail(err)
	}
	key := task.Key(nil)

	out := ChecksumResult{Key: key.String(), Hex: key.Hex(), Label: task.Label()}
	if opts.Check {
		backend, err := openBackend(opts.RootOptions)
		if err != nil {
			return formatter.Fail(err)
		}
		defer backend.Close()

		_, err = backend.Load(cmd.Context(), key)
		switch {
		case err == nil:
			out.Cached = boolPtr(true)
		case errors.Is(err, cache.ErrNotFound):
			out.Cached = boolPtr(false)
		default:
			return formatter.Fail(WrapExitError(ExitCommandError, ErrCodeCache, "cache lookup failed", err))
		}
	}

	text := fmt.Sprintf("%s\n%s  %s", out.Key, out.Hex, out.Label)
	if out.Cached != nil {
		text += fmt.Sprintf("\ncached: %t", *out.Cached)
	}
	return formatter.Success(out, text)
}

func boolPtr(b bool) *bool {
	return &b
}
