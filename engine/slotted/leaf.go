package slotted

import (
	"bytes"

	"github.com/dbkit/slotdb/engine/page"
	"github.com/dbkit/slotdb/engine/record"
	"github.com/dbkit/slotdb/engine/schema"
)

// InsertRecord finds the key's lower-bound slot, fails on a duplicate,
// and either packs the record in place or reports "no room" so the
// caller can split. On a duplicate key position is -1; otherwise it is
// the lower-bound slot index — callers use it both on success (where it
// landed) and on no-room (where a split must occur).
func InsertRecord(p page.DataPage, codec record.Codec, s schema.Schema, values []interface{}) (done bool, position int, err error) {
	keyWire := s.KeyType().HostToWire(values[s.KeyIndex])
	idx := SearchRecord(p, codec, s, keyWire)

	if idx < p.SlotCount() {
		existing := codec.RefByIndex(s, p.Record(idx), s.KeyIndex)
		if bytes.Equal(existing, keyWire) {
			return false, -1, nil
		}
	}

	size := codec.Size(s, values)
	required := page.Align8(size) + trailerDelta(p.SlotCount())
	if p.FreeSize() < required {
		return false, idx, nil
	}

	ptr, needReorder, err := Allocate(p, size, idx)
	if err != nil {
		return false, idx, err
	}
	codec.Set(s, ptr, values)
	if needReorder {
		Reorder(p, codec, s)
	}
	return true, idx, nil
}

// RemoveRecord finds the record matching keyWire and deallocates its
// slot. SearchRecord may land on a neighboring key when the probe
// isn't present, so the key is re-checked before removing.
func RemoveRecord(p page.DataPage, codec record.Codec, s schema.Schema, keyWire []byte) bool {
	idx := SearchRecord(p, codec, s, keyWire)
	if idx >= p.SlotCount() {
		return false
	}
	existing := codec.RefByIndex(s, p.Record(idx), s.KeyIndex)
	if !bytes.Equal(existing, keyWire) {
		return false
	}
	Deallocate(p, codec, idx)
	return true
}

// UpdateRecord is remove_record then insert_record on the same page.
// It only covers the case where the re-insert fits without a split;
// when it doesn't, it returns done=false with the no-room split
// position, and the old record has already been removed from the page.
// engine/btree.Update does not use this helper: it removes and
// re-inserts through the tree-level paths.
func UpdateRecord(p page.DataPage, codec record.Codec, s schema.Schema, values []interface{}) (done bool, position int, err error) {
	keyWire := s.KeyType().HostToWire(values[s.KeyIndex])
	if !RemoveRecord(p, codec, s, keyWire) {
		return false, -1, nil
	}
	return InsertRecord(p, codec, s, values)
}
