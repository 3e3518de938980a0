// Package btree implements the on-disk node format and the top-down
// insertion / search / range-scan engine of a fixed-block B-tree index.
//
// A node lives in exactly one 1024-byte block. Its own address is never
// stored inside the block; it is the block offset the caller used to
// read it.
//
// On-disk node layout (1024 bytes):
//
//	byte 0        internal flag (bool, one byte)
//	bytes 1-4     entry count n (int32, big-endian)
//	bytes 5..     n entries, each keySize+8 bytes: key bytes followed by
//	              an 8-byte big-endian integer (child pointer if
//	              internal, value-offset if leaf)
//	bytes 1020-1023  CRC32 (big-endian uint32) of bytes [0,1020)
//
// The trailing checksum is a diagnostic addition on top of the base
// format: at the largest n a node is ever persisted with (M-1, since a
// node with n==M is split before it is written), the used span never
// reaches byte 1020 for any legal key size, so it never collides with
// entry data.
package btree

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/sankalp88/btreeindex/pkg/blockio"
	"github.com/sankalp88/btreeindex/pkg/bterr"
)

const (
	// BlockSize is the fixed size of every block in the index file.
	BlockSize = 1024

	headerSize = 5 // 1-byte internal flag + 4-byte entry count

	checksumSize   = 4
	checksumOffset = BlockSize - checksumSize

	// entryFixedArea is block size minus the header, per the
	// branching-factor formula.
	entryFixedArea = 1019 // 1024 - 5

	// NoValue is the sentinel held in an internal entry's Offset field,
	// which is unused because internal entries carry a child pointer. It
	// is never surfaced through the public API, which returns a
	// distinguished NotFound error instead.
	NoValue int64 = -1
)

// BranchingFactor computes M = floor(1019 / (keySize + 8)) for the
// given key size and rejects key sizes that would make M < 4.
func BranchingFactor(keySize int) (int, error) {
	if keySize <= 0 {
		return 0, bterr.NewBadArgument("key size must be positive")
	}

	m := entryFixedArea / (keySize + 8)
	if m < 4 {
		return 0, bterr.NewBadArgument("key size too large: branching factor would be below 4")
	}
	return m, nil
}

func entrySize(keySize int) int {
	return keySize + 8
}

// Entry is a single key paired with either a data-file value offset
// (leaf entries) or a child block pointer (internal entries). A node's
// Internal flag determines which field is meaningful.
type Entry struct {
	Key    []byte
	Offset int64 // valid when the owning node is a leaf
	Child  int64 // valid when the owning node is internal
}

// Node is a single in-memory materialization of one block.
type Node struct {
	Internal bool
	Entries  []Entry
}

// N returns the current number of live entries.
func (n *Node) N() int {
	return len(n.Entries)
}

// ReadNode deserializes the node stored at the given block address.
func ReadNode(dev *blockio.Device, addr int64, keySize int) (*Node, error) {
	raw, err := readRawBlock(dev, addr)
	if err != nil {
		return nil, err
	}

	if err := verifyChecksum(raw); err != nil {
		return nil, err
	}

	internalByte := raw[0]
	if internalByte != 0x00 && internalByte != 0x01 {
		return nil, bterr.NewCorruptIndex("node internal-flag byte outside {0,1}")
	}
	internal := internalByte != 0x00

	n := int32(binary.BigEndian.Uint32(raw[1:5]))
	m, err := BranchingFactor(keySize)
	if err != nil {
		return nil, err
	}
	if n < 0 || int(n) >= m {
		return nil, bterr.NewCorruptIndex("node entry count out of bounds")
	}

	es := entrySize(keySize)
	entries := make([]Entry, n)
	pos := headerSize
	for i := 0; i < int(n); i++ {
		key := append([]byte(nil), raw[pos:pos+keySize]...)
		val := int64(binary.BigEndian.Uint64(raw[pos+keySize : pos+es]))
		if internal {
			entries[i] = Entry{Key: key, Child: val, Offset: NoValue}
		} else {
			entries[i] = Entry{Key: key, Offset: val}
		}
		pos += es
	}

	return &Node{Internal: internal, Entries: entries}, nil
}

// WriteNode serializes the node to the block at the given address.
func WriteNode(dev *blockio.Device, addr int64, node *Node, keySize int) error {
	m, err := BranchingFactor(keySize)
	if err != nil {
		return err
	}
	if len(node.Entries) >= m {
		return bterr.NewCorruptIndex("refusing to persist an overfull node")
	}

	raw := make([]byte, BlockSize)
	if node.Internal {
		raw[0] = 0x01
	}
	binary.BigEndian.PutUint32(raw[1:5], uint32(len(node.Entries)))

	es := entrySize(keySize)
	pos := headerSize
	for _, e := range node.Entries {
		if len(e.Key) != keySize {
			return bterr.NewBadArgument("entry key length does not match index key size")
		}
		copy(raw[pos:pos+keySize], e.Key)
		v := e.Offset
		if node.Internal {
			v = e.Child
		}
		binary.BigEndian.PutUint64(raw[pos+keySize:pos+es], uint64(v))
		pos += es
	}

	sum := crc32.ChecksumIEEE(raw[:checksumOffset])
	binary.BigEndian.PutUint32(raw[checksumOffset:BlockSize], sum)

	dev.Seek(addr)
	return dev.WriteBytes(raw)
}

func readRawBlock(dev *blockio.Device, addr int64) ([]byte, error) {
	dev.Seek(addr)
	return dev.ReadBytes(BlockSize)
}

func verifyChecksum(raw []byte) error {
	want := binary.BigEndian.Uint32(raw[checksumOffset:BlockSize])
	got := crc32.ChecksumIEEE(raw[:checksumOffset])
	if want != got {
		return bterr.NewCorruptIndex("node checksum mismatch")
	}
	return nil
}

// entryIndexForKey returns the smallest index j such that
// entries[j].Key > key, or len(entries) if no such entry exists. This
// is the leaf insertion position from §4.3.2.
func entryIndexForKey(entries []Entry, key []byte) int {
	lo, hi := 0, len(entries)
	for lo < hi {
		mid := (lo + hi) / 2
		if compareKeys(entries[mid].Key, key) > 0 {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// childIndexForKey returns the internal-node child index to descend
// into for key: the last index j such that entries[j].Key <= key, or 0
// if key is smaller than every entry's key.
func childIndexForKey(entries []Entry, key []byte) int {
	j := 0
	for i := 1; i < len(entries); i++ {
		if compareKeys(entries[i].Key, key) <= 0 {
			j = i
		} else {
			break
		}
	}
	return j
}

// CompareKeys exposes the tree's lexicographic key ordering to callers
// outside the package (the verify walk in pkg/index checks sortedness
// of a node's entries).
func CompareKeys(a, b []byte) int {
	return compareKeys(a, b)
}

func compareKeys(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
