package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/synclog/pkg/store"
)

// Version is set via ldflags at build time.
var Version = "dev"

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print the version of synclog.

With --verbose, also print the Go runtime and the store drivers compiled
into this binary.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "synclog %s\n", Version)
			if verbose {
				fmt.Fprintf(w, "go:      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
				fmt.Fprintf(w, "stores:  %s\n", strings.Join(store.Drivers(), ", "))
			}
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Include runtime and store driver details")
	return cmd
}
