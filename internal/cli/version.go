package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mdeval/mdeval/internal/checksum"
	"github.com/mdeval/mdeval/internal/observables"
)

// Version is set at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

// VersionInfo is the JSON payload of the version command.
type VersionInfo struct {
	Version   string         `json:"version"`
	Salt      int            `json:"salt"`
	Functions map[string]int `json:"functions"`
}

// NewVersionCommand creates the version command. Registered function
// versions are part of every cache key, so they are listed too.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "version",
		Short:         "Print version, hash salt and registered function versions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			reg := checksum.DefaultRegistry()

			info := VersionInfo{Version: Version, Salt: checksum.Salt, Functions: map[string]int{}}
			var b strings.Builder
			fmt.Fprintf(&b, "mdeval %s (salt %d)", info.Version, info.Salt)
			for _, name := range reg.Names() {
				v, _ := reg.VersionOf(name)
				info.Functions[name] = v
				fmt.Fprintf(&b, "\n  %s v%d", name, v)
			}
			return f.Success(info, b.String())
		},
	}
}

// NewObservablesCommand lists the observables correlate accepts.
func NewObservablesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "observables",
		Short:         "List available observables",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			names := observables.Names()
			if f.JSON() {
				out := make(map[string]string, len(names))
				for _, n := range names {
					out[n] = observables.Describe(n)
				}
				return f.Success(out, "")
			}
			rows := make([][]string, len(names))
			for i, n := range names {
				rows[i] = []string{n, observables.Describe(n)}
			}
			return f.Table([]string{"NAME", "DESCRIPTION"}, rows)
		},
	}
}
