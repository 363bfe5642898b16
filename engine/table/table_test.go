package table

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dbkit/slotdb/engine/schema"
)

func testInfo() schema.Schema {
	return schema.Schema{
		Fields:   []schema.Field{{Name: "id", Type: schema.BigInt{}}},
		KeyIndex: 0,
	}
}

func TestMemTableAllocateGrowsThenReusesFreedBlocks(t *testing.T) {
	tbl := NewMemTable("orders", testInfo())

	a, err := tbl.Allocate()
	assert.NoError(t, err)
	b, err := tbl.Allocate()
	assert.NoError(t, err)
	assert.NotEqual(t, a, b)

	assert.NoError(t, tbl.Deallocate(a))
	c, err := tbl.Allocate()
	assert.NoError(t, err)
	assert.Equal(t, a, c, "a freed block must be reused before growing")

	assert.Equal(t, "orders", tbl.Name())
}

func TestFileTableBootstrapsAndAllocates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.tbl")
	tbl, err := NewFileTable(path, "orders", testInfo(), 1)
	assert.NoError(t, err)
	defer tbl.Close()

	a, err := tbl.Allocate()
	assert.NoError(t, err)
	assert.Equal(t, uint32(1), a)

	b, err := tbl.Allocate()
	assert.NoError(t, err)
	assert.Equal(t, uint32(2), b)
}

func TestFileTableReusesDeallocatedBlockViaFreeList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.tbl")
	tbl, err := NewFileTable(path, "orders", testInfo(), 1)
	assert.NoError(t, err)
	defer tbl.Close()

	a, _ := tbl.Allocate()
	_, _ = tbl.Allocate()
	assert.NoError(t, tbl.Deallocate(a))

	reused, err := tbl.Allocate()
	assert.NoError(t, err)
	assert.Equal(t, a, reused)
}

func TestFileTableSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.tbl")
	tbl, err := NewFileTable(path, "orders", testInfo(), 1)
	assert.NoError(t, err)
	a, _ := tbl.Allocate()
	assert.NoError(t, tbl.Close())

	reopened, err := NewFileTable(path, "orders", testInfo(), 1)
	assert.NoError(t, err)
	defer reopened.Close()

	b, err := reopened.Allocate()
	assert.NoError(t, err)
	assert.NotEqual(t, a, b, "reopen must not reuse a still-live block")
}
