package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mdeval/mdeval/internal/cache"
	"github.com/mdeval/mdeval/internal/checksum"
)

// CacheEntry is one row of `cache ls`. Key is in the 0x-prefixed hex form
// that `cache rm` accepts.
type CacheEntry struct {
	Key     string    `json:"key"`
	Label   string    `json:"label"`
	Writer  string    `json:"writer"`
	Size    int64     `json:"size"`
	Created time.Time `json:"created"`
}

// CacheStats is the JSON payload of `cache stats`.
type CacheStats struct {
	Backend string `json:"backend"`
	Entries int    `json:"entries"`
	Bytes   int64  `json:"bytes"`
}

// NewCacheCommand creates the cache command group.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage stored results",
	}

	cmd.AddCommand(newCacheListCommand(rootOpts))
	cmd.AddCommand(newCacheRemoveCommand(rootOpts))
	cmd.AddCommand(newCachePurgeCommand(rootOpts))
	cmd.AddCommand(newCacheStatsCommand(rootOpts))

	return cmd
}

// withBackend opens the backend, runs fn and reports its error.
func withBackend(opts *RootOptions, cmd *cobra.Command, fn func(*OutputFormatter, *openedBackend) error) error {
	formatter := opts.formatter(cmd)
	backend, err := openBackend(opts)
	if err != nil {
		return formatter.Fail(err)
	}
	defer backend.Close()

	if err := fn(formatter, backend); err != nil {
		return formatter.Fail(err)
	}
	return nil
}

func newCacheListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "ls",
		Short:         "List cached results",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(opts, cmd, func(f *OutputFormatter, b *openedBackend) error {
				infos, err := b.List(cmd.Context())
				if err != nil {
					return WrapExitError(ExitCommandError, ErrCodeCache, "failed to list cache", err)
				}

				entries := make([]CacheEntry, len(infos))
				for i, in := range infos {
					entries[i] = CacheEntry{
						Key:     checksum.HexPrefix + in.Key.Hex(),
						Label:   in.Label,
						Writer:  in.Writer,
						Size:    in.Size,
						Created: in.Created.UTC(),
					}
				}

				if f.JSON() {
					return f.Success(entries, "")
				}
				if len(entries) == 0 {
					return f.Success(nil, "No cached results in "+b.Describe)
				}
				rows := make([][]string, len(entries))
				for i, e := range entries {
					rows[i] = []string{e.Key, strconv.FormatInt(e.Size, 10), e.Created.Format(time.RFC3339), e.Writer, e.Label}
				}
				return f.Table([]string{"KEY", "BYTES", "CREATED", "WRITER", "LABEL"}, rows)
			})
		},
	}
}

func newCacheRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "rm <key>...",
		Short:         "Remove cached results by key (decimal, or hex with a 0x prefix)",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys := make([]checksum.Fingerprint, len(args))
			for i, a := range args {
				k, err := checksum.ParseFingerprint(a)
				if err != nil {
					return opts.formatter(cmd).Fail(WrapExitError(ExitCommandError, ErrCodeConfig, "invalid key", err))
				}
				keys[i] = k
			}

			return withBackend(opts, cmd, func(f *OutputFormatter, b *openedBackend) error {
				removed := make([]string, 0, len(keys))
				for _, k := range keys {
					err := b.Delete(cmd.Context(), k)
					switch {
					case errors.Is(err, cache.ErrNotFound):
						return WrapExitError(ExitFailure, ErrCodeNotFound, "no cached result for "+k.Hex(), err)
					case err != nil:
						return WrapExitError(ExitCommandError, ErrCodeCache, "failed to remove "+k.Hex(), err)
					}
					removed = append(removed, k.Hex())
				}
				return f.Success(map[string]any{"removed": removed}, fmt.Sprintf("Removed %d result(s)", len(removed)))
			})
		},
	}
}

func newCachePurgeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "purge",
		Short:         "Remove every cached result",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(opts, cmd, func(f *OutputFormatter, b *openedBackend) error {
				n, err := b.Purge(cmd.Context())
				if err != nil {
					return WrapExitError(ExitCommandError, ErrCodeCache, "failed to purge cache", err)
				}
				return f.Success(map[string]any{"purged": n}, fmt.Sprintf("Purged %d result(s) from %s", n, b.Describe))
			})
		},
	}
}

func newCacheStatsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "stats",
		Short:         "Show entry count and payload size",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(opts, cmd, func(f *OutputFormatter, b *openedBackend) error {
				infos, err := b.List(cmd.Context())
				if err != nil {
					return WrapExitError(ExitCommandError, ErrCodeCache, "failed to list cache", err)
				}
				s := cache.Summarize(infos)
				out := CacheStats{Backend: b.Describe, Entries: s.Entries, Bytes: s.Bytes}
				return f.Success(out, fmt.Sprintf("%s: %d result(s), %d bytes", out.Backend, out.Entries, out.Bytes))
			})
		},
	}
}
