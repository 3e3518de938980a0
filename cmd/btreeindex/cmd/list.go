package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sankalp88/btreeindex/pkg/index"
)

var listCmd = &cobra.Command{
	Use:   "list <indexPath> <probeKey> [k]",
	Short: "Print up to k lines whose keys are >= probeKey, ascending",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		k := cfg.DefaultListK
		if len(args) == 3 {
			n, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid k %q: %w", args[2], err)
			}
			k = n
		}

		idx, err := index.Open(args[0])
		if err != nil {
			return err
		}
		defer idx.Close()

		lines, err := idx.List([]byte(args[1]), k)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, line := range lines {
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
