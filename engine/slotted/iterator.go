package slotted

import (
	"github.com/dbkit/slotdb/engine/page"
	"github.com/dbkit/slotdb/engine/record"
	"github.com/dbkit/slotdb/engine/schema"
)

// Iterator walks one page's slots in either direction, the
// within-a-page half of an ordered scan; engine/btree chains these
// across the leaf linked list for a full-table Scan.
type Iterator struct {
	p     page.DataPage
	codec record.Codec
	s     schema.Schema
	idx   int
}

// NewIterator returns an iterator positioned at the page's first slot.
func NewIterator(p page.DataPage, codec record.Codec, s schema.Schema) *Iterator {
	return &Iterator{p: p, codec: codec, s: s, idx: 0}
}

// Valid reports whether the iterator currently references a slot.
func (it *Iterator) Valid() bool {
	return it.idx >= 0 && it.idx < it.p.SlotCount()
}

// Values unpacks the record the iterator currently references.
func (it *Iterator) Values() []interface{} {
	return it.codec.Get(it.s, it.p.Record(it.idx))
}

// KeyWire returns the wire-encoded key bytes of the current record,
// without unpacking the rest of the fields.
func (it *Iterator) KeyWire() []byte {
	return it.codec.RefByIndex(it.s, it.p.Record(it.idx), it.s.KeyIndex)
}

// Next advances the iterator by one slot (the "+=" of the source).
func (it *Iterator) Next() { it.idx++ }

// Prev moves the iterator back by one slot (the "-=" of the source).
func (it *Iterator) Prev() { it.idx-- }

// SeekFirst/SeekLast reposition the iterator to the page's first or
// last slot.
func (it *Iterator) SeekFirst() { it.idx = 0 }
func (it *Iterator) SeekLast()  { it.idx = it.p.SlotCount() - 1 }
