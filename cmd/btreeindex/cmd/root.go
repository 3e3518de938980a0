// Package cmd is the command dispatcher: it maps the btreeindex verbs
// onto pkg/index operations and owns the stdout/stderr/exit-code
// contract. None of the core engine lives here.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sankalp88/btreeindex/internal/config"
	"github.com/sankalp88/btreeindex/internal/telemetry"
)

var (
	verboseFlag bool
	cfg         *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "btreeindex",
	Short: "A disk-resident B-tree index over a flat text data file",
	Long: `btreeindex builds and queries a fixed-block B-tree index over a
line-oriented text file, mapping a fixed-length key prefix of each
line to the byte offset at which that line begins.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		if verboseFlag {
			loaded.Verbose = true
		}
		cfg = loaded
		telemetry.Configure(cfg.Verbose)
		return nil
	},
}

// Execute runs the command dispatcher and exits the process with a
// non-zero status on any unhandled error, per the command surface's
// contract: errors to stderr, informational output to stdout.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose diagnostic logging")
}
