package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sankalp88/btreeindex/pkg/bterr"
	"github.com/sankalp88/btreeindex/pkg/index"
)

var findCmd = &cobra.Command{
	Use:   "find <indexPath> <key>",
	Short: "Look up a key and print its offset and line",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := index.Open(args[0])
		if err != nil {
			return err
		}
		defer idx.Close()

		offset, line, err := idx.Find([]byte(args[1]))
		if err != nil {
			if errors.Is(err, bterr.NotFound) {
				fmt.Fprintf(cmd.OutOrStdout(), "not found: %s\n", args[1])
				return nil
			}
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", offset, line)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(findCmd)
}
