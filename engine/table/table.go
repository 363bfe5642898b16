// Package table is the table/file-manager contract the core consumes
// but never owns: block allocation and the relation
// schema/name it carries. FileTable is the reference on-disk
// implementation; MemTable is a pure in-memory stand-in for fast unit
// tests that don't need a real file.
package table

import (
	"sync"

	"github.com/dbkit/slotdb/engine/schema"
)

// Table is the contract engine/btree allocates fresh blocks through.
type Table interface {
	// Allocate returns a fresh block id, reusing the free list before
	// growing the file.
	Allocate() (uint32, error)

	// Deallocate returns a block to the free list.
	Deallocate(blockID uint32) error

	// Info returns the table's relation schema.
	Info() schema.Schema

	// Name returns the table's name, the key a buffer.Manager borrows
	// frames under.
	Name() string
}

// MemTable is a Table with no backing file: block ids are handed out
// from a counter and recycled through an in-memory free list. Used by
// tests and the CLI demo together with buffer.MemManager, which
// already holds every block's bytes in memory — MemTable only needs
// to track which ids are live.
type MemTable struct {
	mu         sync.Mutex
	name       string
	info       schema.Schema
	maxBlockID uint32
	freeList   []uint32
}

func NewMemTable(name string, info schema.Schema) *MemTable {
	return &MemTable{name: name, info: info}
}

func (t *MemTable) Allocate() (uint32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n := len(t.freeList); n > 0 {
		id := t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		return id, nil
	}
	t.maxBlockID++
	return t.maxBlockID, nil
}

func (t *MemTable) Deallocate(blockID uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.freeList = append(t.freeList, blockID)
	return nil
}

func (t *MemTable) Info() schema.Schema { return t.info }
func (t *MemTable) Name() string        { return t.name }
