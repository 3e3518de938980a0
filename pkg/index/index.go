// Package index is the lifecycle facade: it owns an index file and its
// paired data file, wires the block device and tree engine together,
// and is the only layer the command surface touches directly.
package index

import (
	"fmt"
	"os"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/google/uuid"

	"github.com/sankalp88/btreeindex/internal/telemetry"
	"github.com/sankalp88/btreeindex/pkg/blockio"
	"github.com/sankalp88/btreeindex/pkg/bterr"
	"github.com/sankalp88/btreeindex/pkg/btree"
	"github.com/sankalp88/btreeindex/pkg/datafile"
)

// bloomEstimatedKeys and bloomFalsePositiveRate size the advisory
// duplicate-key filter. It is rebuilt from the real tree on Open, so
// an undersized estimate only costs a higher false-positive rate, not
// correctness: a false positive just falls through to a real Search.
const (
	bloomEstimatedKeys     = 100_000
	bloomFalsePositiveRate = 0.01
)

// Index is one open index instance: an index file, its paired data
// file, the tree engine operating over the index file, and an
// advisory Bloom filter of every key currently in the tree.
type Index struct {
	dev      *blockio.Device
	data     *datafile.File
	tree     *btree.Tree
	keySize  int
	dataPath string
	id       uuid.UUID
	filter   *bloom.BloomFilter
}

// Create builds a brand-new index at indexPath for the data file at
// dataFilePath, with the given fixed key size. The index file is
// truncated if it already exists. The data file is opened (created if
// absent) but not scanned; bulk-loading existing lines is
// BuildFromDataFile's job.
func Create(dataFilePath, indexPath string, keySize int) (*Index, error) {
	if _, err := btree.BranchingFactor(keySize); err != nil {
		return nil, err
	}

	dev, err := blockio.Create(indexPath)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	if err := writeMeta(dev, metaBlock{dataPath: dataFilePath, keySize: int32(keySize), height: 0, id: id}); err != nil {
		dev.Close()
		return nil, err
	}

	root := &btree.Node{Internal: false}
	if err := btree.WriteNode(dev, btree.RootAddr, root, keySize); err != nil {
		dev.Close()
		return nil, err
	}

	tree, err := btree.NewTree(dev, keySize, 0, 1, root)
	if err != nil {
		dev.Close()
		return nil, err
	}
	tree.PersistHeight = func(h int32) error { return persistHeight(dev, h) }

	data, err := datafile.Open(dataFilePath)
	if err != nil {
		dev.Close()
		return nil, err
	}

	telemetry.IndexCreate(indexPath, dataFilePath, keySize, id.String())

	return &Index{
		dev:      dev,
		data:     data,
		tree:     tree,
		keySize:  keySize,
		dataPath: dataFilePath,
		id:       id,
		filter:   bloom.NewWithEstimates(bloomEstimatedKeys, bloomFalsePositiveRate),
	}, nil
}

// Open reopens an existing index file, reconstructing the tree's root
// and height from the meta-block and rebuilding the advisory Bloom
// filter with a full leaf walk.
func Open(indexPath string) (*Index, error) {
	if _, err := os.Stat(indexPath); err != nil {
		return nil, bterr.NewIoError(0, 0, err)
	}

	dev, err := blockio.Open(indexPath)
	if err != nil {
		return nil, err
	}

	meta, err := readMeta(dev)
	if err != nil {
		dev.Close()
		return nil, err
	}

	length, err := dev.Length()
	if err != nil {
		dev.Close()
		return nil, err
	}
	if length%btree.BlockSize != 0 {
		dev.Close()
		return nil, bterr.NewCorruptIndex("index file length is not a multiple of the block size")
	}
	nodeCount := length/btree.BlockSize - 1

	root, err := btree.ReadNode(dev, btree.RootAddr, int(meta.keySize))
	if err != nil {
		dev.Close()
		return nil, err
	}

	tree, err := btree.NewTree(dev, int(meta.keySize), meta.height, nodeCount, root)
	if err != nil {
		dev.Close()
		return nil, err
	}
	tree.PersistHeight = func(h int32) error { return persistHeight(dev, h) }

	data, err := datafile.Open(meta.dataPath)
	if err != nil {
		dev.Close()
		return nil, err
	}

	filter := bloom.NewWithEstimates(bloomEstimatedKeys, bloomFalsePositiveRate)
	if err := tree.WalkLeaves(func(key []byte, _ int64) error {
		filter.Add(key)
		return nil
	}); err != nil {
		dev.Close()
		data.Close()
		return nil, err
	}

	telemetry.IndexOpen(indexPath, int(meta.keySize), meta.height, meta.id.String())

	return &Index{
		dev:      dev,
		data:     data,
		tree:     tree,
		keySize:  int(meta.keySize),
		dataPath: meta.dataPath,
		id:       meta.id,
		filter:   filter,
	}, nil
}

// Close releases both the index file and data file handles.
func (idx *Index) Close() error {
	dataErr := idx.data.Close()
	devErr := idx.dev.Close()
	if devErr != nil {
		return devErr
	}
	return dataErr
}

// KeySize returns the fixed key size of this index.
func (idx *Index) KeySize() int {
	return idx.keySize
}

// ID returns the random instance identifier stamped into the
// meta-block at Create time.
func (idx *Index) ID() uuid.UUID {
	return idx.id
}

// Find looks up key and, on a hit, reads the corresponding line from
// the data file.
func (idx *Index) Find(key []byte) (offset int64, line string, err error) {
	if len(key) != idx.keySize {
		return 0, "", bterr.NewBadArgument("key length does not match index key size")
	}

	offset, err = idx.tree.Search(key)
	if err != nil {
		return 0, "", err
	}

	line, err = idx.data.ReadLineAt(offset)
	if err != nil {
		return 0, "", err
	}
	return offset, line, nil
}

// InsertRecord takes the first KeySize() bytes of record as its key.
// If that key is already indexed, InsertRecord returns its existing
// offset with existed set to true and makes no change. Otherwise the
// record is appended to the data file and indexed.
func (idx *Index) InsertRecord(record string) (offset int64, existed bool, err error) {
	if len(record) < idx.keySize {
		return 0, false, bterr.NewBadArgument("record shorter than the index key size")
	}
	key := []byte(record[:idx.keySize])

	if idx.filter.Test(key) {
		existingOffset, err := idx.tree.Search(key)
		if err == nil {
			return existingOffset, true, nil
		}
		if err != bterr.NotFound {
			return 0, false, err
		}
		// Bloom false positive: key is not actually present, fall through.
	}

	offset, err = idx.data.Append(record)
	if err != nil {
		return 0, false, err
	}

	if err := idx.tree.Insert(key, offset); err != nil {
		if _, dup := err.(*bterr.DuplicateKey); dup {
			return offset, true, nil
		}
		return 0, false, err
	}
	idx.filter.Add(key)
	return offset, false, nil
}

// indexExistingLine inserts (key, offset) for a line that is already
// present in the data file, without appending anything. Used by
// BuildFromDataFile to bulk-load an index from a pre-existing file.
func (idx *Index) indexExistingLine(key []byte, offset int64) (duplicate bool, err error) {
	if idx.filter.Test(key) {
		if _, err := idx.tree.Search(key); err == nil {
			return true, nil
		} else if err != bterr.NotFound {
			return false, err
		}
	}

	if err := idx.tree.Insert(key, offset); err != nil {
		if _, dup := err.(*bterr.DuplicateKey); dup {
			return true, nil
		}
		return false, err
	}
	idx.filter.Add(key)
	return false, nil
}

// BuildFromDataFile scans idx's data file from the start and indexes
// every line whose key is not already present, reporting the keys of
// any lines skipped as duplicates.
func (idx *Index) BuildFromDataFile() (inserted int, duplicateKeys []string, err error) {
	err = datafile.ScanLines(idx.dataPath, func(offset int64, line string) error {
		if len(line) < idx.keySize {
			return bterr.NewBadArgument(fmt.Sprintf("line at offset %d is shorter than the key size", offset))
		}
		key := []byte(line[:idx.keySize])

		dup, ierr := idx.indexExistingLine(key, offset)
		if ierr != nil {
			return ierr
		}
		if dup {
			duplicateKeys = append(duplicateKeys, string(key))
		} else {
			inserted++
		}
		return nil
	})
	return inserted, duplicateKeys, err
}

// List returns up to k data-file lines whose keys are >= probeKey, in
// ascending key order.
func (idx *Index) List(probeKey []byte, k int) ([]string, error) {
	if len(probeKey) != idx.keySize {
		return nil, bterr.NewBadArgument("probe key length does not match index key size")
	}

	var lines []string
	err := idx.tree.RangeScan(probeKey, k, func(offset int64) error {
		line, err := idx.data.ReadLineAt(offset)
		if err != nil {
			return err
		}
		lines = append(lines, line)
		return nil
	})
	return lines, err
}

// Stats is a read-only snapshot of an index's geometry.
type Stats struct {
	NodeCount       int64
	Height          int32
	BranchingFactor int
	KeySize         int
	ID              string
}

// Stats reports the current tree geometry.
func (idx *Index) Stats() Stats {
	return Stats{
		NodeCount:       idx.tree.NodeCount,
		Height:          idx.tree.Height,
		BranchingFactor: idx.tree.M,
		KeySize:         idx.keySize,
		ID:              idx.id.String(),
	}
}
