package btree

import (
	"fmt"
	"path/filepath"
	"sort"
	"testing"

	"github.com/sankalp88/btreeindex/pkg/blockio"
	"github.com/sankalp88/btreeindex/pkg/bterr"
)

// newTestTree builds an empty tree with a freshly written empty leaf
// root at RootAddr, backed by a temp-file device.
func newTestTree(t *testing.T, keySize int) *Tree {
	t.Helper()

	dev, err := blockio.Open(filepath.Join(t.TempDir(), "tree.idx"))
	if err != nil {
		t.Fatalf("opening test device: %v", err)
	}
	t.Cleanup(func() { dev.Close() })

	root := &Node{Internal: false}
	if err := WriteNode(dev, RootAddr, root, keySize); err != nil {
		t.Fatalf("writing empty root: %v", err)
	}

	tree, err := NewTree(dev, keySize, 0, 1, root)
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}
	return tree
}

func TestSearchEmptyTree(t *testing.T) {
	tree := newTestTree(t, 3)

	_, err := tree.Search([]byte("AAA"))
	if err != bterr.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestInsertAndSearch(t *testing.T) {
	tree := newTestTree(t, 3)

	if err := tree.Insert([]byte("BBB"), 9); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	off, err := tree.Search([]byte("BBB"))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if off != 9 {
		t.Errorf("Search = %d, want 9", off)
	}

	if _, err := tree.Search([]byte("ZZZ")); err != bterr.NotFound {
		t.Errorf("expected NotFound for absent key, got %v", err)
	}
}

func TestInsertRejectsWrongKeyLength(t *testing.T) {
	tree := newTestTree(t, 3)

	err := tree.Insert([]byte("AB"), 0)
	if _, ok := err.(*bterr.BadArgument); !ok {
		t.Fatalf("expected BadArgument, got %v", err)
	}
}

func TestInsertRejectsDuplicateKey(t *testing.T) {
	tree := newTestTree(t, 3)

	if err := tree.Insert([]byte("AAA"), 0); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	err := tree.Insert([]byte("AAA"), 100)
	if _, ok := err.(*bterr.DuplicateKey); !ok {
		t.Fatalf("expected DuplicateKey, got %v", err)
	}

	off, err := tree.Search([]byte("AAA"))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if off != 0 {
		t.Errorf("Search = %d, want 0 (duplicate insert must be a no-op)", off)
	}
}

func TestRoundTripManyKeys(t *testing.T) {
	tree := newTestTree(t, 3)

	keys := []string{"AAA", "BBB", "CCC", "AAB", "BBA", "DDD", "ZZZ", "MMM", "AAC"}
	for i, k := range keys {
		if err := tree.Insert([]byte(k), int64(i*10)); err != nil {
			t.Fatalf("Insert(%s): %v", k, err)
		}
	}

	for i, k := range keys {
		off, err := tree.Search([]byte(k))
		if err != nil {
			t.Fatalf("Search(%s): %v", k, err)
		}
		if off != int64(i*10) {
			t.Errorf("Search(%s) = %d, want %d", k, off, i*10)
		}
	}
}

func TestSplitAndRootPromotion(t *testing.T) {
	const keySize = 1
	tree := newTestTree(t, keySize)

	// M = floor(1019/9) = 113 for a 1-byte key. Insert enough distinct
	// keys to force at least one leaf split and a root promotion.
	var persistedHeights []int32

	count := 0
	for b := 0; b < 256 && count < 200; b++ {
		key := []byte{byte(b)}
		count++
		if err := tree.Insert(key, int64(count)); err != nil {
			t.Fatalf("Insert #%d: %v", count, err)
		}
		persistedHeights = append(persistedHeights, tree.Height)
	}

	if tree.Height < 1 {
		t.Fatalf("expected tree height to grow past 0 after %d inserts, got %d", count, tree.Height)
	}

	for i := 1; i < len(persistedHeights); i++ {
		if persistedHeights[i] < persistedHeights[i-1] {
			t.Fatalf("height decreased from %d to %d", persistedHeights[i-1], persistedHeights[i])
		}
	}

	if tree.Root.N() < 1 || tree.Root.N() >= tree.M {
		t.Errorf("root entry count %d outside [1, M)", tree.Root.N())
	}

	for i := 0; i < count; i++ {
		off, err := tree.Search([]byte{byte(i)})
		if err != nil {
			t.Fatalf("Search(%d) after splitting: %v", i, err)
		}
		if off != int64(i+1) {
			t.Errorf("Search(%d) = %d, want %d", i, off, i+1)
		}
	}
}

func TestSplitAndRootPromotionPersistsHeight(t *testing.T) {
	const keySize = 1
	tree := newTestTree(t, keySize)

	var persisted []int32
	tree.PersistHeight = func(h int32) error {
		persisted = append(persisted, h)
		return nil
	}

	for b := 0; b < 200; b++ {
		if err := tree.Insert([]byte{byte(b)}, int64(b)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	if len(persisted) == 0 {
		t.Fatal("expected PersistHeight to be invoked on at least one root promotion")
	}
	if persisted[len(persisted)-1] != tree.Height {
		t.Errorf("last persisted height %d does not match tree.Height %d", persisted[len(persisted)-1], tree.Height)
	}
}

func TestRangeScanOrderingAndLimit(t *testing.T) {
	tree := newTestTree(t, 3)

	inserted := map[string]int64{
		"AAA": 0, "AAB": 1, "BBA": 2, "BBB": 3, "CCC": 4, "DDD": 5,
	}
	keys := make([]string, 0, len(inserted))
	for k := range inserted {
		keys = append(keys, k)
	}
	for _, k := range keys {
		if err := tree.Insert([]byte(k), inserted[k]); err != nil {
			t.Fatalf("Insert(%s): %v", k, err)
		}
	}

	var got []int64
	err := tree.RangeScan([]byte("BBA"), 3, func(off int64) error {
		got = append(got, off)
		return nil
	})
	if err != nil {
		t.Fatalf("RangeScan: %v", err)
	}

	want := []int64{inserted["BBA"], inserted["BBB"], inserted["CCC"]}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("RangeScan = %v, want %v", got, want)
	}
}

func TestRangeScanFromMinimumReturnsAllInAscendingOrder(t *testing.T) {
	tree := newTestTree(t, 2)

	// keySize=2 caps keys at two decimal digits, so n must not exceed 100.
	n := 100
	keys := make([]string, 0, n)
	for i := 0; i < n; i++ {
		keys = append(keys, fmt.Sprintf("%02d", i))
	}
	for i, k := range keys {
		if err := tree.Insert([]byte(k), int64(i)); err != nil {
			t.Fatalf("Insert(%s): %v", k, err)
		}
	}

	var got []string
	err := tree.RangeScan([]byte("00"), n+10, func(off int64) error {
		got = append(got, keys[off])
		return nil
	})
	if err != nil {
		t.Fatalf("RangeScan: %v", err)
	}

	if len(got) != n {
		t.Fatalf("got %d entries, want %d", len(got), n)
	}
	if !sort.StringsAreSorted(got) {
		t.Errorf("RangeScan output not sorted: %v", got)
	}

	seen := map[string]bool{}
	for _, k := range got {
		if seen[k] {
			t.Errorf("duplicate key %s in range scan output", k)
		}
		seen[k] = true
	}
}

func TestRangeScanBeyondMaxKeyReturnsNothing(t *testing.T) {
	tree := newTestTree(t, 3)
	if err := tree.Insert([]byte("AAA"), 0); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	var got []int64
	err := tree.RangeScan([]byte("ZZZ"), 5, func(off int64) error {
		got = append(got, off)
		return nil
	})
	if err != nil {
		t.Fatalf("RangeScan: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no results past the maximum key, got %v", got)
	}
}
