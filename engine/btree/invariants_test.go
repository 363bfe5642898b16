package btree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbkit/slotdb/engine/buffer"
	"github.com/dbkit/slotdb/engine/page"
	"github.com/dbkit/slotdb/engine/table"
)

// checkTreeInvariants sweeps the whole tree and asserts the structural
// properties every operation must preserve: per-page size accounting
// and sorted slots, subtree key ranges consistent with the separators
// above them, an intact leaf chain, and valid checksums. Returns every
// key in ascending order. Assumes a BigInt key column, which every
// tree test here uses.
func checkTreeInvariants(t *testing.T, tree *Tree, mgr buffer.Manager, tbl table.Table) []int64 {
	t.Helper()

	superDesp, err := mgr.Borrow(tbl.Name(), 0)
	require.NoError(t, err)
	sp := page.SuperPage{Buf: superDesp.Buf}
	assert.True(t, sp.VerifyChecksum(), "super page checksum")
	root := sp.RootBlockID()
	require.NoError(t, mgr.Release(superDesp))
	require.NotZero(t, root, "super must name a root")

	keys, chainLeaves := sweepSubtree(t, tree, mgr, tbl, root, nil, nil)

	// Leaf-chain walk: start at the leftmost leaf, follow next, and it
	// must visit exactly the leaves the descent saw, in the same order,
	// ending with next == 0.
	var walked []uint32
	blockID := leftmostLeafID(t, mgr, tbl, root)
	for blockID != 0 {
		walked = append(walked, blockID)
		d, err := mgr.Borrow(tbl.Name(), blockID)
		require.NoError(t, err)
		p := page.DataPage{Buf: d.Buf}
		require.Equal(t, page.TypeData, p.Type())
		blockID = p.Next()
		require.NoError(t, mgr.Release(d))
	}
	assert.Equal(t, chainLeaves, walked, "leaf chain must match the tree's left-to-right leaf order")

	for i := 1; i < len(keys); i++ {
		assert.Less(t, keys[i-1], keys[i], "keys must be globally strictly ascending")
	}
	return keys
}

func leftmostLeafID(t *testing.T, mgr buffer.Manager, tbl table.Table, root uint32) uint32 {
	t.Helper()
	blockID := root
	for {
		d, err := mgr.Borrow(tbl.Name(), blockID)
		require.NoError(t, err)
		p := page.DataPage{Buf: d.Buf}
		if p.Type() == page.TypeData {
			require.NoError(t, mgr.Release(d))
			return blockID
		}
		blockID = p.Next()
		require.NoError(t, mgr.Release(d))
		require.NotZero(t, blockID, "internal page must have a leftmost child")
	}
}

// sweepSubtree checks one subtree and returns its keys in ascending
// order plus its leaves in left-to-right order. lower/upper bound the
// allowed key range: a subtree reached through separator k holds keys
// >= k, and keys stay below the next separator up the ancestry.
func sweepSubtree(t *testing.T, tree *Tree, mgr buffer.Manager, tbl table.Table, blockID uint32, lower, upper *int64) ([]int64, []uint32) {
	t.Helper()

	d, err := mgr.Borrow(tbl.Name(), blockID)
	require.NoError(t, err)
	p := page.DataPage{Buf: d.Buf}

	require.True(t, page.ValidMagic(p.Buf), "block %d magic", blockID)
	assert.True(t, p.VerifyChecksum(), "block %d checksum", blockID)
	assert.Equal(t, blockID, p.Self())
	checkPageAccounting(t, p)

	if p.Type() == page.TypeData {
		keys := make([]int64, 0, p.SlotCount())
		for i := 0; i < p.SlotCount(); i++ {
			keys = append(keys, tree.codec.GetByIndex(tree.schema, p.Record(i), tree.schema.KeyIndex).(int64))
		}
		require.NoError(t, mgr.Release(d))
		checkRange(t, blockID, keys, lower, upper)
		return keys, []uint32{blockID}
	}

	require.Equal(t, page.TypeIndex, p.Type(), "block %d has a non-tree page type", blockID)

	n := p.SlotCount()
	seps := make([]int64, 0, n)
	children := make([]uint32, 0, n+1)
	children = append(children, p.Next())
	for i := 0; i < n; i++ {
		sepWire, child := tree.separator(p, i)
		seps = append(seps, tree.schema.KeyType().WireToHost(sepWire).(int64))
		children = append(children, child)
	}
	require.NoError(t, mgr.Release(d))

	checkRange(t, blockID, seps, lower, upper)
	require.NotZero(t, children[0], "internal page %d must keep a leftmost child", blockID)

	var keys []int64
	var leaves []uint32
	for i, child := range children {
		childLower, childUpper := lower, upper
		if i > 0 {
			childLower = &seps[i-1]
		}
		if i < n {
			childUpper = &seps[i]
		}
		childKeys, childLeaves := sweepSubtree(t, tree, mgr, tbl, child, childLower, childUpper)
		keys = append(keys, childKeys...)
		leaves = append(leaves, childLeaves...)
	}
	return keys, leaves
}

// checkPageAccounting asserts the size invariants: non-negative free
// size, a free-space cursor clear of the trailer, and the exact
// header + records + free + trailer = page budget.
func checkPageAccounting(t *testing.T, p page.DataPage) {
	t.Helper()

	assert.GreaterOrEqual(t, p.FreeSize(), 0)
	assert.LessOrEqual(t, p.FreeSpaceOffset(), len(p.Buf)-p.TrailerSize())

	sum := 0
	for i := 0; i < p.SlotCount(); i++ {
		offset, length := p.Slot(i)
		assert.GreaterOrEqual(t, int(offset), page.DataHeaderSize)
		assert.LessOrEqual(t, int(offset)+int(length), p.FreeSpaceOffset())
		sum += int(length)
	}
	assert.Equal(t, len(p.Buf), sum+p.TrailerSize()+page.DataHeaderSize+p.FreeSize(),
		"block %d size accounting must balance", p.Self())
}

func checkRange(t *testing.T, blockID uint32, keys []int64, lower, upper *int64) {
	t.Helper()
	for i, k := range keys {
		if i > 0 {
			assert.Less(t, keys[i-1], k, "block %d slot keys must be strictly ascending", blockID)
		}
		if lower != nil {
			assert.GreaterOrEqual(t, k, *lower, "block %d key below its separator", blockID)
		}
		if upper != nil {
			assert.Less(t, k, *upper, "block %d key at or above the next separator", blockID)
		}
	}
}
