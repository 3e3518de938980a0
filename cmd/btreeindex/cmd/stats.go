package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sankalp88/btreeindex/pkg/index"
)

var statsCmd = &cobra.Command{
	Use:   "stats <indexPath>",
	Short: "Print node count, height, branching factor, and key size",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := index.Open(args[0])
		if err != nil {
			return err
		}
		defer idx.Close()

		s := idx.Stats()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "id: %s\n", s.ID)
		fmt.Fprintf(out, "key size: %d\n", s.KeySize)
		fmt.Fprintf(out, "height: %d\n", s.Height)
		fmt.Fprintf(out, "branching factor: %d\n", s.BranchingFactor)
		fmt.Fprintf(out, "node count: %d\n", s.NodeCount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
