package btree

import (
	"github.com/dbkit/slotdb/engine/storeerr"
)

// Update replaces the row at values' key with values: remove then
// insert through the usual paths, so the remove may rebalance and the
// insert may split. No in-place rewrite is attempted — record payloads
// are variable-length and an in-place update would break the slot
// ordering the whole page design rests on. Not atomic; a failed
// re-insert leaves the key absent.
func (t *Tree) Update(values []interface{}) error {
	key := values[t.schema.KeyIndex]
	if err := t.Remove(key); err != nil {
		return storeerr.Wrap("btree.Update", err)
	}
	if err := t.Insert(values); err != nil {
		return storeerr.Wrap("btree.Update", err)
	}
	return nil
}
