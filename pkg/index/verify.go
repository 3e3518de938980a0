package index

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/sankalp88/btreeindex/pkg/btree"
)

// VerifyReport is the result of a fsck-style structural walk: every
// node's CRC32 and entry-count bound, and the absence of any block
// address reachable more than once in the tree.
type VerifyReport struct {
	NodesVisited    int
	Height          int32
	KeySize         int
	BranchingFactor int
	Findings        []string
}

// Healthy reports whether the walk found no structural problems.
func (r *VerifyReport) Healthy() bool {
	return len(r.Findings) == 0
}

// Verify performs a full reachability walk from the root, checking
// every node's checksum (via btree.ReadNode), its internal-flag
// validity, its entry-count bound, the ascending-key sortedness of its
// entries, and — via a bitset over block addresses — that no block is
// reachable more than once. It never mutates the index.
func (idx *Index) Verify() (*VerifyReport, error) {
	report := &VerifyReport{
		Height:          idx.tree.Height,
		KeySize:         idx.keySize,
		BranchingFactor: idx.tree.M,
	}

	visited := bitset.New(uint(idx.tree.NodeCount + 1))

	var walk func(addr int64, depth int, isRoot bool)
	walk = func(addr int64, depth int, isRoot bool) {
		blockIdx := uint(addr / btree.BlockSize)
		if visited.Test(blockIdx) {
			report.Findings = append(report.Findings,
				fmt.Sprintf("block %d is reachable more than once (cycle)", addr))
			return
		}
		visited.Set(blockIdx)

		node, err := btree.ReadNode(idx.dev, addr, idx.keySize)
		if err != nil {
			report.Findings = append(report.Findings, fmt.Sprintf("block %d: %v", addr, err))
			return
		}
		report.NodesVisited++

		n := node.N()
		lower := report.BranchingFactor / 2
		if isRoot {
			lower = 0
			if report.Height > 0 {
				lower = 1
			}
		}
		if n < lower || n > report.BranchingFactor-1 {
			report.Findings = append(report.Findings,
				fmt.Sprintf("block %d has %d entries, outside the allowed range", addr, n))
		}

		for i := 1; i < len(node.Entries); i++ {
			if btree.CompareKeys(node.Entries[i-1].Key, node.Entries[i].Key) >= 0 {
				report.Findings = append(report.Findings,
					fmt.Sprintf("block %d entries are not strictly ascending at index %d", addr, i))
				break
			}
		}

		if node.Internal && depth < int(report.Height) {
			for _, e := range node.Entries {
				walk(e.Child, depth+1, false)
			}
		}
	}

	walk(btree.RootAddr, 0, true)

	return report, nil
}
