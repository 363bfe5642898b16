package slotted

import (
	"github.com/dbkit/slotdb/engine/page"
	"github.com/dbkit/slotdb/engine/record"
)

// SplitPosition finds the slot index at which an old page should be
// cut in two, given a pending insert of insertSize bytes at
// insertPos. It walks slots accumulating aligned record
// length plus one slot's width, folding in the pending insert's own
// contribution at insertPos, and stops at the first point that exceeds
// half the page's payload capacity. includedInOld reports whether the
// pending insert landed before the cut (caller inserts into the old
// page) or after it (caller inserts into the new page).
func SplitPosition(p page.DataPage, insertPos int, insertSize int) (splitPos int, includedInOld bool) {
	capacity := (page.PageSize - page.DataHeaderSize) / 2
	cumulative := 0
	n := p.SlotCount()

	for i := 0; i <= n; i++ {
		if i == insertPos {
			cumulative += page.Align8(insertSize) + page.SlotSize
			if cumulative > capacity {
				return i, true
			}
		}
		if i < n {
			_, length := p.Slot(i)
			cumulative += int(length) + page.SlotSize
			if cumulative > capacity {
				return i, i >= insertPos
			}
		}
	}
	return n, true
}

// CopyRecord places the record at src's srcSlotIndex onto dst's
// current tail via Allocate(len, slot_count) — append order, no
// re-sort. Callers either move records in
// already-sorted order or call Reorder explicitly afterward.
func CopyRecord(src, dst page.DataPage, codec record.Codec, srcSlotIndex int) error {
	rec := src.Record(srcSlotIndex)
	ptr, _, err := Allocate(dst, len(rec), dst.SlotCount())
	if err != nil {
		return err
	}
	copy(ptr, rec)
	return nil
}

// Split moves every record at [split_pos, slot_count) from src to dst,
// an already-cleared fresh page. Deallocating always at
// split_pos works because Deallocate closes the gap by pulling later
// slots back — the record that needs to move next keeps landing at
// split_pos until src is exhausted down to split_pos.
func Split(src, dst page.DataPage, codec record.Codec, insertPos int, insertSize int) (splitPos int, includedInOld bool, err error) {
	splitPos, includedInOld = SplitPosition(src, insertPos, insertSize)

	for src.SlotCount() > splitPos {
		if err := CopyRecord(src, dst, codec, splitPos); err != nil {
			return splitPos, includedInOld, err
		}
		Deallocate(src, codec, splitPos)
	}
	return splitPos, includedInOld, nil
}
