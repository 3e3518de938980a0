package btree

import (
	"github.com/sankalp88/btreeindex/internal/telemetry"
	"github.com/sankalp88/btreeindex/pkg/blockio"
	"github.com/sankalp88/btreeindex/pkg/bterr"
)

const (
	// MetaAddr is the fixed block address of the meta-block.
	MetaAddr int64 = 0
	// RootAddr is the fixed block address of the root node. It never
	// moves: a root promotion copies the previous root's content to a
	// freshly allocated block and overwrites block 1024 with the new
	// internal root, rather than recording a root pointer in the
	// meta-block.
	RootAddr int64 = BlockSize
)

// Tree owns the root node, current height, branching factor, and node
// counter for one open index. All other nodes are read from and
// written to disk on demand; only the root is held in memory between
// operations.
type Tree struct {
	Dev     *blockio.Device
	KeySize int
	M       int
	Height  int32
	Root    *Node

	// NodeCount is the allocator cursor: the number of nodes ever
	// allocated (the root counts as the first). allocateBlock returns
	// NodeCount*BlockSize after incrementing it.
	NodeCount int64

	// PersistHeight, if set, is invoked after a root promotion so the
	// new height can be written into the meta-block at offset 260. It
	// is optional so the engine can be exercised without a full index
	// (e.g. in unit tests against a bare device).
	PersistHeight func(h int32) error
}

// NewTree builds a Tree around an already-positioned root node. keySize
// must be the key size the caller used to persist that root.
func NewTree(dev *blockio.Device, keySize int, height int32, nodeCount int64, root *Node) (*Tree, error) {
	m, err := BranchingFactor(keySize)
	if err != nil {
		return nil, err
	}
	return &Tree{
		Dev:       dev,
		KeySize:   keySize,
		M:         m,
		Height:    height,
		NodeCount: nodeCount,
		Root:      root,
	}, nil
}

func (t *Tree) allocateBlock() int64 {
	t.NodeCount++
	return t.NodeCount * BlockSize
}

func (t *Tree) readNode(addr int64) (*Node, error) {
	return ReadNode(t.Dev, addr, t.KeySize)
}

func (t *Tree) persist(node *Node, addr int64) error {
	return WriteNode(t.Dev, addr, node, t.KeySize)
}

// Search descends h levels from the root and returns the value-offset
// stored for key, or bterr.NotFound if no entry has that key.
func (t *Tree) Search(key []byte) (int64, error) {
	if len(key) != t.KeySize {
		return 0, bterr.NewBadArgument("key length does not match index key size")
	}
	return t.searchNode(t.Root, int(t.Height), key)
}

func (t *Tree) searchNode(node *Node, depth int, key []byte) (int64, error) {
	if depth == 0 {
		idx, ok := findExact(node.Entries, key)
		if !ok {
			return 0, bterr.NotFound
		}
		return node.Entries[idx].Offset, nil
	}

	j := childIndexForKey(node.Entries, key)
	child, err := t.readNode(node.Entries[j].Child)
	if err != nil {
		return 0, err
	}
	return t.searchNode(child, depth-1, key)
}

// splitResult carries the right sibling produced when a node insertion
// overflows, for propagation to the parent (or to root promotion at the
// top level).
type splitResult struct {
	sibling     *Node
	siblingAddr int64
}

// Insert adds (key, value) to the tree. The caller is responsible for
// having already confirmed the key is absent (InsertRecord in the
// index lifecycle does this with its Bloom filter and, when the filter
// cannot rule the key out, a preceding Search); Insert itself
// still rejects a key it finds already present while descending, via
// bterr.DuplicateKey.
func (t *Tree) Insert(key []byte, value int64) error {
	if len(key) != t.KeySize {
		return bterr.NewBadArgument("key length does not match index key size")
	}

	res, err := t.insertRec(t.Root, RootAddr, int(t.Height), key, value)
	if err != nil {
		return err
	}
	if res == nil {
		return nil // absorbed, no root promotion
	}

	// Root promotion: the previous root's content (now the left half of
	// the split, held by t.Root) moves to a freshly allocated block; a
	// new internal root with two entries is written at block 1024.
	oldRootAddr := t.allocateBlock()
	if err := t.persist(t.Root, oldRootAddr); err != nil {
		return err
	}

	newRoot := &Node{
		Internal: true,
		Entries: []Entry{
			{Key: cloneKey(t.Root.Entries[0].Key), Child: oldRootAddr, Offset: NoValue},
			{Key: cloneKey(res.sibling.Entries[0].Key), Child: res.siblingAddr, Offset: NoValue},
		},
	}
	if err := t.persist(newRoot, RootAddr); err != nil {
		return err
	}

	t.Root = newRoot
	t.Height++
	telemetry.RootPromotion(oldRootAddr, t.Height)
	if t.PersistHeight != nil {
		if err := t.PersistHeight(t.Height); err != nil {
			return err
		}
	}
	return nil
}

// insertRec is the top-down recursive insert from §4.3.2. It returns a
// nil *splitResult when the insertion was absorbed without a split, or
// a non-nil one carrying the new right sibling when node overflowed and
// had to be split at addr.
func (t *Tree) insertRec(node *Node, addr int64, depth int, key []byte, value int64) (*splitResult, error) {
	if depth == 0 {
		if _, exists := findExact(node.Entries, key); exists {
			return nil, bterr.NewDuplicateKey(key)
		}

		j := entryIndexForKey(node.Entries, key)
		node.Entries = insertEntryAt(node.Entries, j, Entry{Key: cloneKey(key), Offset: value})
		return t.persistOrSplit(node, addr)
	}

	j := childIndexForKey(node.Entries, key)
	childAddr := node.Entries[j].Child
	child, err := t.readNode(childAddr)
	if err != nil {
		return nil, err
	}

	childResult, err := t.insertRec(child, childAddr, depth-1, key, value)
	if err != nil {
		return nil, err
	}
	if childResult == nil {
		return nil, nil // child absorbed; this node's own entries are unchanged
	}

	newEntry := Entry{
		Key:    cloneKey(childResult.sibling.Entries[0].Key),
		Child:  childResult.siblingAddr,
		Offset: NoValue,
	}
	node.Entries = insertEntryAt(node.Entries, j+1, newEntry)
	return t.persistOrSplit(node, addr)
}

// persistOrSplit writes node at addr if it still fits within one
// block, or splits it in two (the left half staying at addr, the right
// half on a freshly allocated block) when n has reached M.
func (t *Tree) persistOrSplit(node *Node, addr int64) (*splitResult, error) {
	if len(node.Entries) < t.M {
		if err := t.persist(node, addr); err != nil {
			return nil, err
		}
		return nil, nil
	}

	mid := t.M / 2
	left := &Node{Internal: node.Internal, Entries: append([]Entry(nil), node.Entries[:mid]...)}
	right := &Node{Internal: node.Internal, Entries: append([]Entry(nil), node.Entries[mid:]...)}

	rightAddr := t.allocateBlock()
	if err := t.persist(left, addr); err != nil {
		return nil, err
	}
	if err := t.persist(right, rightAddr); err != nil {
		return nil, err
	}

	telemetry.NodeSplit(addr, rightAddr, len(node.Entries))
	*node = *left
	return &splitResult{sibling: right, siblingAddr: rightAddr}, nil
}

// RangeScan emits the value-offset of each leaf entry with key >=
// probeKey, in ascending key order, stopping after k entries or when
// the tree is exhausted. It maintains a descent stack of (node, childIdx)
// frames and, on exhausting a leaf, pops frames until one has an
// unvisited next child, then descends that child's leftmost path.
func (t *Tree) RangeScan(probeKey []byte, k int, emit func(offset int64) error) error {
	if k <= 0 {
		return nil
	}
	if len(probeKey) != t.KeySize {
		return bterr.NewBadArgument("probe key length does not match index key size")
	}

	type frame struct {
		node *Node
		idx  int
	}
	var stack []frame

	node := t.Root
	for depth := int(t.Height); depth > 0; depth-- {
		j := childIndexForKey(node.Entries, probeKey)
		stack = append(stack, frame{node: node, idx: j})
		child, err := t.readNode(node.Entries[j].Child)
		if err != nil {
			return err
		}
		node = child
	}

	pos := entryIndexForKeyGE(node.Entries, probeKey)
	remaining := k

	for {
		for pos < len(node.Entries) && remaining > 0 {
			if err := emit(node.Entries[pos].Offset); err != nil {
				return err
			}
			pos++
			remaining--
		}
		if remaining == 0 {
			return nil
		}

		advanced := false
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.idx+1 >= len(top.node.Entries) {
				stack = stack[:len(stack)-1]
				continue
			}
			top.idx++
			child, err := t.readNode(top.node.Entries[top.idx].Child)
			if err != nil {
				return err
			}
			node = child
			for node.Internal {
				stack = append(stack, frame{node: node, idx: 0})
				next, err := t.readNode(node.Entries[0].Child)
				if err != nil {
					return err
				}
				node = next
			}
			pos = 0
			advanced = true
			break
		}
		if !advanced {
			return nil
		}
	}
}

// WalkLeaves visits every leaf entry in the tree in ascending key
// order, invoking emit with each entry's key and value-offset. Used to
// rebuild an in-memory summary (e.g. a Bloom filter) of an index's
// keys when it is opened, since nothing above the node currently being
// read is cached between operations.
func (t *Tree) WalkLeaves(emit func(key []byte, offset int64) error) error {
	return t.walkLeaves(t.Root, int(t.Height), emit)
}

func (t *Tree) walkLeaves(node *Node, depth int, emit func(key []byte, offset int64) error) error {
	if depth == 0 {
		for _, e := range node.Entries {
			if err := emit(e.Key, e.Offset); err != nil {
				return err
			}
		}
		return nil
	}
	for _, e := range node.Entries {
		child, err := t.readNode(e.Child)
		if err != nil {
			return err
		}
		if err := t.walkLeaves(child, depth-1, emit); err != nil {
			return err
		}
	}
	return nil
}

func cloneKey(key []byte) []byte {
	return append([]byte(nil), key...)
}

func insertEntryAt(entries []Entry, idx int, e Entry) []Entry {
	entries = append(entries, Entry{})
	copy(entries[idx+1:], entries[idx:])
	entries[idx] = e
	return entries
}

func findExact(entries []Entry, key []byte) (int, bool) {
	lo, hi := 0, len(entries)
	for lo < hi {
		mid := (lo + hi) / 2
		switch c := compareKeys(entries[mid].Key, key); {
		case c == 0:
			return mid, true
		case c < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return lo, false
}

func entryIndexForKeyGE(entries []Entry, key []byte) int {
	lo, hi := 0, len(entries)
	for lo < hi {
		mid := (lo + hi) / 2
		if compareKeys(entries[mid].Key, key) >= 0 {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}
