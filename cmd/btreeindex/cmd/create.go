package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sankalp88/btreeindex/pkg/index"
)

var createCmd = &cobra.Command{
	Use:   "create <dataFilePath> <indexPath> [keySize]",
	Short: "Build a new index by scanning an existing data file",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		dataPath, indexPath := args[0], args[1]

		keySize := cfg.DefaultKeySize
		if len(args) == 3 {
			n, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid key size %q: %w", args[2], err)
			}
			keySize = n
		}

		idx, err := index.Create(dataPath, indexPath, keySize)
		if err != nil {
			return err
		}
		defer idx.Close()

		inserted, duplicates, err := idx.BuildFromDataFile()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, key := range duplicates {
			fmt.Fprintf(out, "duplicate key, skipped: %s\n", key)
		}
		fmt.Fprintf(out, "indexed %d record(s)\n", inserted)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
}
