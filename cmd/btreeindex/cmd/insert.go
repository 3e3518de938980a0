package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sankalp88/btreeindex/pkg/index"
)

var insertCmd = &cobra.Command{
	Use:   "insert <indexPath> <record>",
	Short: "Append a record to the data file and index it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := index.Open(args[0])
		if err != nil {
			return err
		}
		defer idx.Close()

		offset, existed, err := idx.InsertRecord(args[1])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if existed {
			fmt.Fprintf(out, "key already indexed at offset %d\n", offset)
			return nil
		}
		fmt.Fprintf(out, "inserted at offset %d\n", offset)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(insertCmd)
}
