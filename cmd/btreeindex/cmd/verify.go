package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sankalp88/btreeindex/pkg/index"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <indexPath>",
	Short: "Walk the tree from the root and report structural findings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := index.Open(args[0])
		if err != nil {
			return err
		}
		defer idx.Close()

		report, err := idx.Verify()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "nodes visited: %d\n", report.NodesVisited)
		fmt.Fprintf(out, "height: %d\n", report.Height)
		fmt.Fprintf(out, "branching factor: %d\n", report.BranchingFactor)
		for _, finding := range report.Findings {
			fmt.Fprintf(out, "finding: %s\n", finding)
		}

		if !report.Healthy() {
			return fmt.Errorf("%d structural finding(s)", len(report.Findings))
		}
		fmt.Fprintln(out, "index is structurally sound")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
