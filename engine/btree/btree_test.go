package btree

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbkit/slotdb/engine/buffer"
	"github.com/dbkit/slotdb/engine/page"
	"github.com/dbkit/slotdb/engine/record"
	"github.com/dbkit/slotdb/engine/schema"
	"github.com/dbkit/slotdb/engine/storeerr"
	"github.com/dbkit/slotdb/engine/super"
	"github.com/dbkit/slotdb/engine/table"
)

func addrSchema() schema.Schema {
	return schema.Schema{
		Fields: []schema.Field{
			{Name: "id", Type: schema.BigInt{}},
			{Name: "addr", Type: schema.Varchar{}},
		},
		KeyIndex: 0,
	}
}

func newTestTree(t *testing.T, s schema.Schema) (*Tree, *buffer.MemManager, *table.MemTable) {
	t.Helper()
	mgr := buffer.NewMemManager()
	tbl := table.NewMemTable("t_"+t.Name(), s)
	require.NoError(t, super.Bootstrap(tbl, mgr, 1))
	return New(mgr, tbl, s, record.Tuple{}, 1), mgr, tbl
}

// fixedRow packs id with a payload sized so the whole record is exactly
// 168 bytes: 1 header + 8 key + 2 length prefix + 157 payload.
func fixedRow(id int64) []interface{} {
	return []interface{}{id, fmt.Sprintf("%0157d", id)}
}

// shortRow packs id with a 72-byte payload: an 83-byte record that
// aligns to 88, so 177 of them fill a leaf and the 178th forces a
// split.
func shortRow(id int64) []interface{} {
	return []interface{}{id, fmt.Sprintf("%072d", id)}
}

func borrowData(t *testing.T, mgr buffer.Manager, tbl table.Table, blockID uint32) (*buffer.BufDesp, page.DataPage) {
	t.Helper()
	d, err := mgr.Borrow(tbl.Name(), blockID)
	require.NoError(t, err)
	return d, page.DataPage{Buf: d.Buf}
}

func leafKeys(t *testing.T, mgr buffer.Manager, tbl table.Table, blockID uint32) []int64 {
	t.Helper()
	d, p := borrowData(t, mgr, tbl, blockID)
	defer mgr.Release(d)
	var codec record.Codec = record.Tuple{}
	s := addrSchema()
	keys := make([]int64, 0, p.SlotCount())
	for i := 0; i < p.SlotCount(); i++ {
		keys = append(keys, codec.GetByIndex(s, p.Record(i), 0).(int64))
	}
	return keys
}

func rootBlock(t *testing.T, tree *Tree) uint32 {
	t.Helper()
	stats, err := tree.Stats()
	require.NoError(t, err)
	return stats.RootBlockID
}

func TestSingleLeafCRUD(t *testing.T) {
	tree, mgr, tbl := newTestTree(t, addrSchema())

	wantAfter := [][]int64{{7}, {3, 7}, {3, 7, 11}, {3, 5, 7, 11}}
	for i, k := range []int64{7, 3, 11, 5} {
		require.NoError(t, tree.Insert(fixedRow(k)))
		assert.Equal(t, wantAfter[i], leafKeys(t, mgr, tbl, rootBlock(t, tree)))
	}

	err := tree.Insert(fixedRow(5))
	assert.True(t, storeerr.IsDuplicate(err), "re-inserting key 5 must fail Duplicate, got %v", err)

	root := rootBlock(t, tree)
	d, p := borrowData(t, mgr, tbl, root)
	freeBefore := p.FreeSize()
	require.NoError(t, mgr.Release(d))

	require.NoError(t, tree.Remove(int64(7)))
	assert.Equal(t, []int64{3, 5, 11}, leafKeys(t, mgr, tbl, root))

	d, p = borrowData(t, mgr, tbl, root)
	// 168 record bytes plus the 8 trailer bytes the 4th slot had claimed.
	assert.Equal(t, freeBefore+168+8, p.FreeSize())
	require.NoError(t, mgr.Release(d))

	_, err = tree.Search(int64(7))
	assert.True(t, storeerr.IsNotFound(err))

	values, err := tree.Search(int64(5))
	require.NoError(t, err)
	assert.Equal(t, int64(5), values[0])
	assert.Equal(t, fmt.Sprintf("%0157d", 5), values[1])

	stats, err := tree.Stats()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), stats.RecordCount)
	assert.Equal(t, uint64(0), stats.SplitCount)
}

func TestLeafSplitGrowsRoot(t *testing.T) {
	tree, mgr, tbl := newTestTree(t, addrSchema())

	for k := int64(1); k <= 177; k++ {
		require.NoError(t, tree.Insert(shortRow(k)))
	}
	stats, err := tree.Stats()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), stats.SplitCount, "177 short rows must still fit one leaf")
	oldRoot := stats.RootBlockID

	require.NoError(t, tree.Insert(shortRow(178)))
	stats, err = tree.Stats()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.SplitCount)
	assert.NotEqual(t, oldRoot, stats.RootBlockID)

	rootDesp, rootPage := borrowData(t, mgr, tbl, stats.RootBlockID)
	assert.Equal(t, page.TypeIndex, rootPage.Type())
	assert.Equal(t, 1, rootPage.SlotCount())
	assert.Equal(t, oldRoot, rootPage.Next(), "new root's leftmost child is the old leaf")

	var codec record.Codec = record.Tuple{}
	idxSch := IndexSchema(schema.BigInt{})
	sepKey := codec.GetByIndex(idxSch, rootPage.Record(0), 0).(int64)
	newLeaf := codec.GetByIndex(idxSch, rootPage.Record(0), 1).(uint32)
	require.NoError(t, mgr.Release(rootDesp))

	oldKeys := leafKeys(t, mgr, tbl, oldRoot)
	newKeys := leafKeys(t, mgr, tbl, newLeaf)
	assert.Equal(t, newKeys[0], sepKey, "separator must equal the new leaf's minimum key")
	assert.Less(t, oldKeys[len(oldKeys)-1], newKeys[0])
	assert.Equal(t, 178, len(oldKeys)+len(newKeys))

	oldDesp, oldPage := borrowData(t, mgr, tbl, oldRoot)
	assert.Equal(t, newLeaf, oldPage.Next(), "leaf chain must link old -> new")
	require.NoError(t, mgr.Release(oldDesp))

	checkTreeInvariants(t, tree, mgr, tbl)

	for k := int64(1); k <= 178; k++ {
		values, err := tree.Search(k)
		require.NoError(t, err, "key %d", k)
		assert.Equal(t, k, values[0])
	}
}

func TestUpdateWithExpansionSplitsAgain(t *testing.T) {
	tree, mgr, tbl := newTestTree(t, addrSchema())
	for k := int64(1); k <= 178; k++ {
		require.NoError(t, tree.Insert(shortRow(k)))
	}
	splitsBefore := mustStats(t, tree).SplitCount
	require.Equal(t, uint64(1), splitsBefore)

	wide := fmt.Sprintf("%08192d", 177)
	require.NoError(t, tree.Update([]interface{}{int64(177), wide}))

	assert.Greater(t, mustStats(t, tree).SplitCount, splitsBefore,
		"the 8192-byte payload cannot fit the right leaf without another split")

	for k := int64(1); k <= 178; k++ {
		values, err := tree.Search(k)
		require.NoError(t, err, "key %d", k)
		if k == 177 {
			assert.Equal(t, wide, values[1])
		} else {
			assert.Equal(t, fmt.Sprintf("%072d", k), values[1])
		}
	}
	checkTreeInvariants(t, tree, mgr, tbl)
}

func TestRemoveIsIdempotentlyNotFound(t *testing.T) {
	tree, mgr, tbl := newTestTree(t, addrSchema())
	for _, k := range []int64{1, 2, 3} {
		require.NoError(t, tree.Insert(fixedRow(k)))
	}

	require.NoError(t, tree.Remove(int64(2)))
	err := tree.Remove(int64(2))
	assert.True(t, storeerr.IsNotFound(err))

	keys := checkTreeInvariants(t, tree, mgr, tbl)
	assert.Equal(t, []int64{1, 3}, keys)
	assert.Equal(t, uint64(2), mustStats(t, tree).RecordCount)
}

func TestUpdatePreservesKeySet(t *testing.T) {
	tree, mgr, tbl := newTestTree(t, addrSchema())
	for _, k := range []int64{10, 20, 30} {
		require.NoError(t, tree.Insert(fixedRow(k)))
	}

	require.NoError(t, tree.Update([]interface{}{int64(20), "replacement"}))

	values, err := tree.Search(int64(20))
	require.NoError(t, err)
	assert.Equal(t, "replacement", values[1])

	keys := checkTreeInvariants(t, tree, mgr, tbl)
	assert.Equal(t, []int64{10, 20, 30}, keys)
}

func TestUpdateOfMissingKeyFailsNotFound(t *testing.T) {
	tree, _, _ := newTestTree(t, addrSchema())
	require.NoError(t, tree.Insert(fixedRow(1)))
	err := tree.Update(fixedRow(99))
	assert.True(t, storeerr.IsNotFound(err))
}

func TestScanWalksLeafChainInOrder(t *testing.T) {
	tree, _, _ := newTestTree(t, addrSchema())
	for k := int64(1); k <= 400; k++ {
		require.NoError(t, tree.Insert(shortRow(k)))
	}

	sc, err := tree.Scan(nil)
	require.NoError(t, err)
	var seen []int64
	for sc.Valid() {
		seen = append(seen, sc.Values()[0].(int64))
		require.NoError(t, sc.Next())
	}
	require.NoError(t, sc.Close())

	assert.Len(t, seen, 400)
	assert.True(t, sort.SliceIsSorted(seen, func(a, b int) bool { return seen[a] < seen[b] }))

	sc, err = tree.Scan(int64(390))
	require.NoError(t, err)
	var tail []int64
	for sc.Valid() {
		tail = append(tail, sc.Values()[0].(int64))
		require.NoError(t, sc.Next())
	}
	require.NoError(t, sc.Close())
	assert.Equal(t, 11, len(tail))
	assert.Equal(t, int64(390), tail[0])
}

func TestSearchSurfacesCorruptPage(t *testing.T) {
	tree, mgr, tbl := newTestTree(t, addrSchema())
	require.NoError(t, tree.Insert(fixedRow(1)))

	root := rootBlock(t, tree)
	d, err := mgr.Borrow(tbl.Name(), root)
	require.NoError(t, err)
	d.Buf[0] = 0 // stomp the magic word
	require.NoError(t, mgr.Release(d))

	_, err = tree.Search(int64(1))
	assert.True(t, storeerr.IsCorrupt(err))
}

func mustStats(t *testing.T, tree *Tree) super.Stats {
	t.Helper()
	stats, err := tree.Stats()
	require.NoError(t, err)
	return stats
}
