// Command btreeindex builds and queries a disk-resident B-tree index
// over a flat text data file.
package main

import "github.com/sankalp88/btreeindex/cmd/btreeindex/cmd"

func main() {
	cmd.Execute()
}
