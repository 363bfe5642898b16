// Package slotted is the space-management layer of a single data or
// index page: slot allocation and deallocation, compaction,
// ordered-insert reorder, and slot-array binary search. It knows
// nothing about trees — engine/btree drives pages through here one at
// a time.
package slotted

import (
	"sort"

	"github.com/dbkit/slotdb/engine/page"
	"github.com/dbkit/slotdb/engine/record"
	"github.com/dbkit/slotdb/engine/schema"
	"github.com/dbkit/slotdb/engine/storeerr"
	"github.com/dbkit/slotdb/logger"
)

// trailerDelta is the change in trailer size from adding one more
// slot to a page currently holding slotCount slots: 0 or 8, since the
// trailer is 8-byte aligned and a slot is 4.
func trailerDelta(slotCount int) int {
	before := page.Align8(slotCount*page.SlotSize + page.ChecksumSize)
	after := page.Align8((slotCount+1)*page.SlotSize + page.ChecksumSize)
	return after - before
}

// Allocate reserves spaceBytes (rounded up to 8) for a new record and
// opens a slot for it at insertIndex, shrinking the page first if the
// contiguous free run can't satisfy the request. Returns the record's
// backing bytes and whether Shrink ran — callers
// must Reorder in that case, since compaction invalidates the
// placeholder slot's sort position relative to freshly-moved records.
func Allocate(p page.DataPage, spaceBytes int, insertIndex int) ([]byte, bool, error) {
	spaceBytes = page.Align8(spaceBytes)
	delta := trailerDelta(p.SlotCount())
	demand := spaceBytes + delta

	if p.FreeSize() < demand {
		return nil, false, storeerr.ErrPageFull
	}

	needReorder := false
	if p.FreeSpaceSize()-delta < demand {
		Shrink(p)
		needReorder = true
	}

	recordOffset := p.FreeSpaceOffset()
	shiftSlotsOpen(p, insertIndex)
	p.SetSlot(insertIndex, uint16(recordOffset), uint16(spaceBytes))
	p.GrowSlotCount()
	p.SubFreeSize(demand)
	p.AddFreeSpaceOffset(spaceBytes)

	return p.Buf[recordOffset : recordOffset+spaceBytes], needReorder, nil
}

// shiftSlotsOpen makes room for a new slot at insertIndex by shifting
// every slot at [insertIndex, slotCount) one position toward the free
// space. Must run highest-index-first so no slot overwrites another
// before it has been read.
func shiftSlotsOpen(p page.DataPage, insertIndex int) {
	for i := p.SlotCount(); i > insertIndex; i-- {
		offset, length := p.Slot(i - 1)
		p.SetSlot(i, offset, length)
	}
}

// Deallocate tombstones the record at slotIndex and removes its slot,
// closing the gap by shifting every later slot back by one (the mirror
// of shiftSlotsOpen). This keeps the slot array dense in [0,
// slot_count) and is what makes Split's "always deallocate at
// split_pos" loop correct: removing split_pos pulls split_pos+1 down
// into its place, so the next iteration finds the next record to move
// at the same index.
func Deallocate(p page.DataPage, codec record.Codec, slotIndex int) {
	codec.Die(p.Record(slotIndex))

	_, length := p.Slot(slotIndex)
	trailerBefore := p.TrailerSize()

	n := p.SlotCount()
	for i := slotIndex; i < n-1; i++ {
		offset, l := p.Slot(i + 1)
		p.SetSlot(i, offset, l)
	}
	p.ShrinkSlotCount()

	recovered := trailerBefore - p.TrailerSize()
	p.AddFreeSize(int(length) + recovered)
}

// Shrink compacts live records toward the header, packing them in
// offset order and rewriting every slot's offset. By the time Shrink
// runs, every remaining slot refers to a live record —
// Deallocate already removed dead slots outright, so there is nothing
// to skip here.
func Shrink(p page.DataPage) {
	n := p.SlotCount()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		oa, _ := p.Slot(order[a])
		ob, _ := p.Slot(order[b])
		return oa < ob
	})

	cursor := page.DataHeaderSize
	for _, slotIdx := range order {
		offset, length := p.Slot(slotIdx)
		if int(offset) != cursor {
			copy(p.Buf[cursor:cursor+int(length)], p.Buf[offset:int(offset)+int(length)])
		}
		p.SetSlot(slotIdx, uint16(cursor), length)
		cursor += int(length)
	}

	p.SetFreeSpaceOffset(cursor)
	packed := cursor - page.DataHeaderSize
	freeSize := len(p.Buf) - page.DataHeaderSize - p.TrailerSize() - packed
	p.SetFreeSize(freeSize)

	logger.Log.Debugf("slotted: shrink self=%d packed=%d free_size=%d", p.Self(), packed, freeSize)
}

// Reorder stable-sorts the slot array by the schema's key field,
// comparing wire-encoded key bytes via the key type's comparator.
// Needed after Shrink invalidates a freshly-allocated
// placeholder's position relative to the records Shrink just moved.
func Reorder(p page.DataPage, codec record.Codec, s schema.Schema) {
	n := p.SlotCount()
	type slotVal struct{ offset, length uint16 }
	slots := make([]slotVal, n)
	for i := 0; i < n; i++ {
		offset, length := p.Slot(i)
		slots[i] = slotVal{offset, length}
	}
	kt := s.KeyType()
	keyOf := func(sv slotVal) []byte {
		rec := p.Buf[sv.offset : int(sv.offset)+int(sv.length)]
		return codec.RefByIndex(s, rec, s.KeyIndex)
	}
	sort.SliceStable(slots, func(a, b int) bool {
		return kt.Compare(keyOf(slots[a]), keyOf(slots[b])) < 0
	})
	for i, sv := range slots {
		p.SetSlot(i, sv.offset, sv.length)
	}
}

// SearchRecord returns the lower-bound slot index: the first slot
// whose key is >= probe, or slot_count if every key is smaller. Used
// both for insert position and tree descent routing.
func SearchRecord(p page.DataPage, codec record.Codec, s schema.Schema, probe []byte) int {
	kt := s.KeyType()
	lo, hi := 0, p.SlotCount()
	for lo < hi {
		mid := (lo + hi) / 2
		rec := p.Record(mid)
		key := codec.RefByIndex(s, rec, s.KeyIndex)
		if kt.Compare(key, probe) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
