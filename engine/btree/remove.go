package btree

import (
	"github.com/dbkit/slotdb/engine/buffer"
	"github.com/dbkit/slotdb/engine/page"
	"github.com/dbkit/slotdb/engine/schema"
	"github.com/dbkit/slotdb/engine/slotted"
	"github.com/dbkit/slotdb/engine/storeerr"
	"github.com/dbkit/slotdb/engine/super"
	"github.com/dbkit/slotdb/logger"
)

// insertOrFail drives slotted.InsertRecord and turns the page-full
// "no room" signal into an invariant violation — every call site here
// inserts into a page a borrow or merge has already sized room for, so
// a refusal means the rebalance logic itself is wrong, not that a
// split is needed.
func (t *Tree) insertOrFail(p page.DataPage, s schema.Schema, values []interface{}) error {
	done, _, err := slotted.InsertRecord(p, t.codec, s, values)
	if err != nil {
		return err
	}
	if !done {
		return storeerr.Wrap("btree.insertOrFail", storeerr.ErrInvariantViolation)
	}
	return nil
}

// Remove deletes the row at the leaf, then repairs
// underflow up the stack via borrow-then-merge, shrinking the
// root if a merge cascades all the way up and empties it.
func (t *Tree) Remove(keyValue interface{}) error {
	keyWire := t.schema.KeyType().HostToWire(keyValue)

	var pins []*buffer.BufDesp
	defer func() { t.releaseAll(pins) }()

	stack, err := t.descend(&pins, keyWire)
	if err != nil {
		return err
	}
	superDesp := pins[0]
	sp := page.SuperPage{Buf: superDesp.Buf}

	leaf := stack[len(stack)-1]
	if !slotted.RemoveRecord(leaf.p, t.codec, t.schema, keyWire) {
		return storeerr.Wrap("btree.Remove", storeerr.ErrNotFound)
	}
	if err := t.writeBack(leaf.desp, leaf.p); err != nil {
		return err
	}
	sp.AddRecordCount(-1)

	if len(stack) == 1 {
		sp.SetChecksum()
		return t.writeSuper(superDesp)
	}

	idx := len(stack) - 1
	for idx > 0 && t.underflowing(stack[idx].p) {
		parent := stack[idx-1]
		merged, err := t.repair(&pins, parent, stack[idx])
		if err != nil {
			return err
		}
		if !merged {
			break
		}
		idx--
	}

	if len(stack) > 1 {
		root := stack[0]
		if root.p.Type() == page.TypeIndex && root.p.SlotCount() == 0 {
			oldRootID := root.blockID
			super.ShrinkRoot(sp, root.p.Next())
			root.p.SetNext(0)
			logger.Log.Debugf("btree: root shrank old=%d new=%d", oldRootID, sp.RootBlockID())
			if err := t.tbl.Deallocate(oldRootID); err != nil {
				return storeerr.Wrap("btree.Remove", err)
			}
		}
	}

	sp.SetChecksum()
	return t.writeSuper(superDesp)
}

func (t *Tree) underflowing(p page.DataPage) bool {
	return p.FreeSize() > page.DataFreeSize/2
}

// leftSibling returns child's left sibling's block id, per the parent
// routing rules: via `next` when the child sits at parent slot
// 0, via the preceding slot's child pointer otherwise. csp == -1 (child
// reached via `next`) has no left sibling.
func (t *Tree) leftSibling(parentPage page.DataPage, csp int) (uint32, bool) {
	if csp < 0 {
		return 0, false
	}
	if csp == 0 {
		return parentPage.Next(), true
	}
	_, child := t.separator(parentPage, csp-1)
	return child, true
}

// rightSibling mirrors leftSibling from the other side.
func (t *Tree) rightSibling(parentPage page.DataPage, csp int) (uint32, bool) {
	n := parentPage.SlotCount()
	if csp == -1 {
		if n == 0 {
			return 0, false
		}
		_, child := t.separator(parentPage, 0)
		return child, true
	}
	if csp+1 < n {
		_, child := t.separator(parentPage, csp+1)
		return child, true
	}
	return 0, false
}

// leftSeparatorSlot/rightSeparatorSlot are the parent slot indices that
// describe the boundary with, respectively, child's left and right
// sibling.
func leftSeparatorSlot(csp int) int { return csp }
func rightSeparatorSlot(csp int) int {
	if csp == -1 {
		return 0
	}
	return csp + 1
}

// replaceSeparator overwrites parentPage's slotIndex record with a
// fresh (newKey, childID) pair — a deallocate-then-insert since a
// variable-width key may change length.
func (t *Tree) replaceSeparator(parentPage page.DataPage, slotIndex int, newKey interface{}, childID uint32) error {
	slotted.Deallocate(parentPage, t.codec, slotIndex)
	return t.insertOrFail(parentPage, t.idxSch, []interface{}{newKey, childID})
}

// hypotheticalFreeSizeAfterRemoving simulates Deallocate's free_size
// bookkeeping for slot i without mutating p, so a borrow can be vetoed
// before it would underflow the lender.
func hypotheticalFreeSizeAfterRemoving(p page.DataPage, i int) int {
	_, length := p.Slot(i)
	trailerBefore := p.TrailerSize()
	trailerAfter := page.Align8((p.SlotCount()-1)*page.SlotSize + page.ChecksumSize)
	return p.FreeSize() + int(length) + (trailerBefore - trailerAfter)
}

// repair asks parent to fix child's underflow: try borrow (preferring
// the sibling richer in payload, i.e. smaller free_size), then fall
// back to merge. Returns merged=true when a merge collapsed the
// boundary — one of the two pages is gone and the parent lost a
// separator, so the caller must check the parent next.
func (t *Tree) repair(pins *[]*buffer.BufDesp, parent frame, child frame) (bool, error) {
	csp := child.slotInParent
	leftID, hasLeft := t.leftSibling(parent.p, csp)
	rightID, hasRight := t.rightSibling(parent.p, csp)
	if !hasLeft && !hasRight {
		return false, storeerr.Wrap("btree.repair", storeerr.ErrInvariantViolation)
	}
	isLeaf := child.p.Type() == page.TypeData

	var leftDesp, rightDesp *buffer.BufDesp
	var leftPage, rightPage page.DataPage
	var err error
	if hasLeft {
		leftDesp, leftPage, err = t.borrowPage(leftID)
		if err != nil {
			return false, err
		}
		*pins = append(*pins, leftDesp)
	}
	if hasRight {
		rightDesp, rightPage, err = t.borrowPage(rightID)
		if err != nil {
			return false, err
		}
		*pins = append(*pins, rightDesp)
	}

	tryLeftFirst := hasLeft && (!hasRight || leftPage.FreeSize() <= rightPage.FreeSize())

	attempt := func(tryLeft bool) (bool, error) {
		if tryLeft {
			if !hasLeft {
				return false, nil
			}
			return t.borrowFromLeft(pins, parent, child, leftDesp, leftPage, csp, isLeaf)
		}
		if !hasRight {
			return false, nil
		}
		return t.borrowFromRight(pins, parent, child, rightID, rightDesp, rightPage, csp, isLeaf)
	}

	first, second := tryLeftFirst, !tryLeftFirst
	if ok, err := attempt(first); err != nil {
		return false, err
	} else if ok {
		return false, nil
	}
	if ok, err := attempt(second); err != nil {
		return false, err
	} else if ok {
		return false, nil
	}

	// Borrow failed on both sides (or only one sibling exists and it
	// can't spare a record) — merge. The right page always folds into
	// the left one: leaves need that to keep the linked list simple,
	// and internal pages share the code path.
	if hasLeft {
		logger.Log.Debugf("btree: merge child=%d into left=%d", child.blockID, leftID)
		return true, t.mergeChildIntoLeft(pins, parent, child, leftDesp, leftPage, csp, isLeaf)
	}
	logger.Log.Debugf("btree: merge right=%d into child=%d", rightID, child.blockID)
	return true, t.mergeRightIntoChild(pins, parent, child, rightID, rightDesp, rightPage, csp, isLeaf)
}

func (t *Tree) borrowFromLeft(pins *[]*buffer.BufDesp, parent frame, child frame, leftDesp *buffer.BufDesp, leftPage page.DataPage, csp int, isLeaf bool) (bool, error) {
	n := leftPage.SlotCount()
	if n == 0 {
		return false, nil
	}
	lastIdx := n - 1
	if hypotheticalFreeSizeAfterRemoving(leftPage, lastIdx) > page.DataFreeSize/2 {
		return false, nil
	}

	if isLeaf {
		values := t.codec.Get(t.schema, leftPage.Record(lastIdx))
		slotted.Deallocate(leftPage, t.codec, lastIdx)
		if err := t.insertOrFail(child.p, t.schema, values); err != nil {
			return false, err
		}
		newFirstKeyWire := t.codec.RefByIndex(t.schema, child.p.Record(0), t.schema.KeyIndex)
		newFirstKey := t.schema.KeyType().WireToHost(newFirstKeyWire)
		if err := t.replaceSeparator(parent.p, leftSeparatorSlot(csp), newFirstKey, child.blockID); err != nil {
			return false, err
		}
	} else {
		lastKeyWire, lastChildID := t.separator(leftPage, lastIdx)
		lastKey := t.schema.KeyType().WireToHost(lastKeyWire)
		formerLeftmostChild := child.p.Next()
		formerMinKeyWire, err := t.leftmostLeafKey(pins, formerLeftmostChild)
		if err != nil {
			return false, err
		}
		formerMinKey := t.schema.KeyType().WireToHost(formerMinKeyWire)

		slotted.Deallocate(leftPage, t.codec, lastIdx)
		child.p.SetNext(lastChildID)
		if err := t.insertOrFail(child.p, t.idxSch, []interface{}{formerMinKey, formerLeftmostChild}); err != nil {
			return false, err
		}
		// The child's subtree now starts at the moved child, whose
		// minimum is the lender's last separator key.
		if err := t.replaceSeparator(parent.p, leftSeparatorSlot(csp), lastKey, child.blockID); err != nil {
			return false, err
		}
	}

	if err := t.writeBack(leftDesp, leftPage); err != nil {
		return false, err
	}
	if err := t.writeBack(child.desp, child.p); err != nil {
		return false, err
	}
	if err := t.writeBack(parent.desp, parent.p); err != nil {
		return false, err
	}
	return true, nil
}

func (t *Tree) borrowFromRight(pins *[]*buffer.BufDesp, parent frame, child frame, rightID uint32, rightDesp *buffer.BufDesp, rightPage page.DataPage, csp int, isLeaf bool) (bool, error) {
	n := rightPage.SlotCount()
	if n == 0 {
		return false, nil
	}
	if hypotheticalFreeSizeAfterRemoving(rightPage, 0) > page.DataFreeSize/2 {
		return false, nil
	}

	if isLeaf {
		values := t.codec.Get(t.schema, rightPage.Record(0))
		slotted.Deallocate(rightPage, t.codec, 0)
		if err := t.insertOrFail(child.p, t.schema, values); err != nil {
			return false, err
		}
		var newRightFirstKey interface{}
		if rightPage.SlotCount() > 0 {
			wire := t.codec.RefByIndex(t.schema, rightPage.Record(0), t.schema.KeyIndex)
			newRightFirstKey = t.schema.KeyType().WireToHost(wire)
		} else {
			newRightFirstKey = values[t.schema.KeyIndex]
		}
		if err := t.replaceSeparator(parent.p, rightSeparatorSlot(csp), newRightFirstKey, rightID); err != nil {
			return false, err
		}
	} else {
		movedChildID := rightPage.Next()
		sep0KeyWire, sep0Child := t.separator(rightPage, 0)
		sep0Key := t.schema.KeyType().WireToHost(sep0KeyWire)
		movedMinKeyWire, err := t.leftmostLeafKey(pins, movedChildID)
		if err != nil {
			return false, err
		}
		movedMinKey := t.schema.KeyType().WireToHost(movedMinKeyWire)

		slotted.Deallocate(rightPage, t.codec, 0)
		rightPage.SetNext(sep0Child)
		if err := t.insertOrFail(child.p, t.idxSch, []interface{}{movedMinKey, movedChildID}); err != nil {
			return false, err
		}
		if err := t.replaceSeparator(parent.p, rightSeparatorSlot(csp), sep0Key, rightID); err != nil {
			return false, err
		}
	}

	if err := t.writeBack(rightDesp, rightPage); err != nil {
		return false, err
	}
	if err := t.writeBack(child.desp, child.p); err != nil {
		return false, err
	}
	if err := t.writeBack(parent.desp, parent.p); err != nil {
		return false, err
	}
	return true, nil
}

// mergeChildIntoLeft folds child (positioned right of leftPage) into
// leftPage, which survives; child's block is freed and its separator
// removed from parent.
func (t *Tree) mergeChildIntoLeft(pins *[]*buffer.BufDesp, parent frame, child frame, leftDesp *buffer.BufDesp, leftPage page.DataPage, csp int, isLeaf bool) error {
	if isLeaf {
		values := t.gatherValues(child.p)
		leftPage.SetNext(child.p.Next())
		if err := t.writeBack(leftDesp, leftPage); err != nil {
			return err
		}
		if err := t.tbl.Deallocate(child.blockID); err != nil {
			return err
		}
		slotted.Deallocate(parent.p, t.codec, leftSeparatorSlot(csp))
		if err := t.writeBack(parent.desp, parent.p); err != nil {
			return err
		}
		return t.reinsertAll(values)
	}

	if err := t.mergeInternalInto(pins, leftPage, child.p); err != nil {
		return err
	}
	if err := t.writeBack(leftDesp, leftPage); err != nil {
		return err
	}
	if err := t.tbl.Deallocate(child.blockID); err != nil {
		return err
	}
	slotted.Deallocate(parent.p, t.codec, leftSeparatorSlot(csp))
	return t.writeBack(parent.desp, parent.p)
}

// mergeRightIntoChild folds rightPage (positioned right of child) into
// child, which survives; rightPage's block is freed and its separator
// removed from parent.
func (t *Tree) mergeRightIntoChild(pins *[]*buffer.BufDesp, parent frame, child frame, rightID uint32, rightDesp *buffer.BufDesp, rightPage page.DataPage, csp int, isLeaf bool) error {
	if isLeaf {
		values := t.gatherValues(rightPage)
		child.p.SetNext(rightPage.Next())
		if err := t.writeBack(child.desp, child.p); err != nil {
			return err
		}
		if err := t.tbl.Deallocate(rightID); err != nil {
			return err
		}
		slotted.Deallocate(parent.p, t.codec, rightSeparatorSlot(csp))
		if err := t.writeBack(parent.desp, parent.p); err != nil {
			return err
		}
		return t.reinsertAll(values)
	}

	if err := t.mergeInternalInto(pins, child.p, rightPage); err != nil {
		return err
	}
	if err := t.writeBack(child.desp, child.p); err != nil {
		return err
	}
	if err := t.tbl.Deallocate(rightID); err != nil {
		return err
	}
	slotted.Deallocate(parent.p, t.codec, rightSeparatorSlot(csp))
	return t.writeBack(parent.desp, parent.p)
}

// mergeInternalInto moves every (sep, child) record of src into dst in
// key order, then appends an entry for src's own `next` child using
// that subtree's leftmost leaf key.
func (t *Tree) mergeInternalInto(pins *[]*buffer.BufDesp, dst, src page.DataPage) error {
	n := src.SlotCount()
	for i := 0; i < n; i++ {
		sepWire, childID := t.separator(src, i)
		sepKey := t.schema.KeyType().WireToHost(sepWire)
		if err := t.insertOrFail(dst, t.idxSch, []interface{}{sepKey, childID}); err != nil {
			return err
		}
	}
	nextMinWire, err := t.leftmostLeafKey(pins, src.Next())
	if err != nil {
		return err
	}
	nextMinKey := t.schema.KeyType().WireToHost(nextMinWire)
	logger.Log.Debugf("btree: internal merge src=%d dst=%d moved=%d", src.Self(), dst.Self(), n+1)
	return t.insertOrFail(dst, t.idxSch, []interface{}{nextMinKey, src.Next()})
}

// gatherValues snapshots every live record's unpacked values, in slot
// order, before the page they live on is discarded.
func (t *Tree) gatherValues(p page.DataPage) [][]interface{} {
	n := p.SlotCount()
	out := make([][]interface{}, n)
	for i := 0; i < n; i++ {
		out[i] = t.codec.Get(t.schema, p.Record(i))
	}
	return out
}

// reinsertAll re-drives each value through the full tree-level Insert
// path, which copes with variable-length records and may itself split.
// The super page's record count already reflects these rows from
// before the merge, so it is backed out first to avoid double-counting
// Insert's own bump.
func (t *Tree) reinsertAll(values [][]interface{}) error {
	if len(values) == 0 {
		return nil
	}
	superDesp, err := t.buf.Borrow(t.tbl.Name(), 0)
	if err != nil {
		return storeerr.Wrap("btree.reinsertAll", err)
	}
	sp := page.SuperPage{Buf: superDesp.Buf}
	sp.AddRecordCount(-int64(len(values)))
	sp.SetChecksum()
	if err := t.writeSuper(superDesp); err != nil {
		t.buf.Release(superDesp)
		return err
	}
	if err := t.buf.Release(superDesp); err != nil {
		return storeerr.Wrap("btree.reinsertAll", err)
	}

	for _, v := range values {
		if err := t.Insert(v); err != nil {
			return storeerr.Wrap("btree.reinsertAll", err)
		}
	}
	return nil
}
