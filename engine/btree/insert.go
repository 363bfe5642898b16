package btree

import (
	"github.com/dbkit/slotdb/engine/buffer"
	"github.com/dbkit/slotdb/engine/page"
	"github.com/dbkit/slotdb/engine/slotted"
	"github.com/dbkit/slotdb/engine/storeerr"
	"github.com/dbkit/slotdb/engine/super"
	"github.com/dbkit/slotdb/logger"
)

// Insert descends to the target leaf, inserts there, and on
// "no room" split and propagate a promoted key up the stack, splitting
// ancestors in turn until one absorbs it or the root itself grows.
func (t *Tree) Insert(values []interface{}) error {
	keyWire := t.schema.KeyType().HostToWire(values[t.schema.KeyIndex])

	var pins []*buffer.BufDesp
	defer func() { t.releaseAll(pins) }()

	stack, err := t.descend(&pins, keyWire)
	if err != nil {
		return err
	}
	superDesp := pins[0]
	sp := page.SuperPage{Buf: superDesp.Buf}

	leaf := stack[len(stack)-1]
	done, idx, err := slotted.InsertRecord(leaf.p, t.codec, t.schema, values)
	if err != nil {
		return storeerr.Wrap("btree.Insert", err)
	}
	if !done && idx == -1 {
		return storeerr.Wrap("btree.Insert", storeerr.ErrDuplicate)
	}

	if done {
		if err := t.writeBack(leaf.desp, leaf.p); err != nil {
			return err
		}
		sp.AddRecordCount(1)
		sp.SetChecksum()
		return t.writeSuper(superDesp)
	}

	size := t.codec.Size(t.schema, values)
	newDesp, newPage, includedInOld, err := t.splitPage(leaf.p, page.TypeData, idx, size)
	if err != nil {
		return storeerr.Wrap("btree.Insert", err)
	}
	pins = append(pins, newDesp)
	newPage.SetNext(leaf.p.Next())
	leaf.p.SetNext(newPage.Self())
	sp.IncSplitCount()
	logger.Log.Debugf("btree: leaf split old=%d new=%d", leaf.blockID, newPage.Self())

	target := newPage
	if includedInOld {
		target = leaf.p
	}
	if _, _, err := slotted.InsertRecord(target, t.codec, t.schema, values); err != nil {
		return storeerr.Wrap("btree.Insert", err)
	}

	if err := t.writeBack(leaf.desp, leaf.p); err != nil {
		return err
	}
	if err := t.writeBack(newDesp, newPage); err != nil {
		return err
	}
	sp.AddRecordCount(1)

	// Promoted entry for the leaf level: the new leaf's smallest key.
	promotedKeyWire := t.codec.RefByIndex(t.schema, newPage.Record(0), t.schema.KeyIndex)
	promoted := []interface{}{t.schema.KeyType().WireToHost(promotedKeyWire), newPage.Self()}

	for level := len(stack) - 2; level >= 0; level-- {
		parent := stack[level]
		pdone, pidx, perr := slotted.InsertRecord(parent.p, t.codec, t.idxSch, promoted)
		if perr != nil {
			return storeerr.Wrap("btree.Insert", perr)
		}
		if pdone {
			if err := t.writeBack(parent.desp, parent.p); err != nil {
				return err
			}
			sp.SetChecksum()
			return t.writeSuper(superDesp)
		}
		if pidx == -1 {
			return storeerr.Wrap("btree.Insert", storeerr.ErrInvariantViolation)
		}

		pSize := t.codec.Size(t.idxSch, promoted)
		pNewDesp, pNewPage, pIncludedInOld, err := t.splitPage(parent.p, page.TypeIndex, pidx, pSize)
		if err != nil {
			return storeerr.Wrap("btree.Insert", err)
		}
		pins = append(pins, pNewDesp)
		sp.IncSplitCount()
		logger.Log.Debugf("btree: index split old=%d new=%d", parent.blockID, pNewPage.Self())

		pTarget := pNewPage
		if pIncludedInOld {
			pTarget = parent.p
		}
		if _, _, err := slotted.InsertRecord(pTarget, t.codec, t.idxSch, promoted); err != nil {
			return storeerr.Wrap("btree.Insert", err)
		}

		// The new internal page's first separator becomes its leftmost
		// child: subtree(child) keys start exactly at that separator's
		// key, so popping it into `next` keeps the n-slots/n+1-children
		// shape and yields the minimum key of the new page —
		// the promoted entry for the next level up.
		firstSepWire, firstChild := t.separator(pNewPage, 0)
		firstSepKey := t.schema.KeyType().WireToHost(firstSepWire)
		pNewPage.SetNext(firstChild)
		slotted.Deallocate(pNewPage, t.codec, 0)

		if err := t.writeBack(parent.desp, parent.p); err != nil {
			return err
		}
		if err := t.writeBack(pNewDesp, pNewPage); err != nil {
			return err
		}
		promoted = []interface{}{firstSepKey, pNewPage.Self()}
	}

	// Every ancestor split, the old root included: grow a new root
	// whose leftmost child is the old root.
	newRootID, err := t.tbl.Allocate()
	if err != nil {
		return storeerr.Wrap("btree.Insert", err)
	}
	rootDesp, err := t.buf.Borrow(t.tbl.Name(), newRootID)
	if err != nil {
		return storeerr.Wrap("btree.Insert", err)
	}
	pins = append(pins, rootDesp)
	rootPage := page.Clear(rootDesp.Buf, t.spaceID, newRootID, page.TypeIndex)
	rootPage.SetNext(stack[0].blockID)
	if _, _, err := slotted.InsertRecord(rootPage, t.codec, t.idxSch, promoted); err != nil {
		return storeerr.Wrap("btree.Insert", err)
	}
	if err := t.writeBack(rootDesp, rootPage); err != nil {
		return err
	}

	super.GrowRoot(sp, newRootID)
	logger.Log.Debugf("btree: root grew old=%d new=%d", stack[0].blockID, newRootID)
	sp.SetChecksum()
	return t.writeSuper(superDesp)
}

// splitPage allocates a fresh page of the given type and moves the
// upper half of old's slots onto it. Linking — the leaf
// chain `next` for data pages, the leftmost-child `next` for index
// pages — is the caller's business.
func (t *Tree) splitPage(oldPage page.DataPage, typ uint16, insertPos int, insertSize int) (*buffer.BufDesp, page.DataPage, bool, error) {
	newID, err := t.tbl.Allocate()
	if err != nil {
		return nil, page.DataPage{}, false, err
	}
	newDesp, err := t.buf.Borrow(t.tbl.Name(), newID)
	if err != nil {
		return nil, page.DataPage{}, false, storeerr.Wrap("btree.splitPage", err)
	}
	newPage := page.Clear(newDesp.Buf, t.spaceID, newID, typ)

	_, includedInOld, err := slotted.Split(oldPage, newPage, t.codec, insertPos, insertSize)
	if err != nil {
		return nil, page.DataPage{}, false, err
	}

	return newDesp, newPage, includedInOld, nil
}

// leftmostLeafKey walks blockID's leftmost spine (following `next`
// through any internal pages) down to a leaf and returns that leaf's
// first record's key, wire-encoded.
func (t *Tree) leftmostLeafKey(pins *[]*buffer.BufDesp, blockID uint32) ([]byte, error) {
	d, p, err := t.borrowPage(blockID)
	if err != nil {
		return nil, err
	}
	*pins = append(*pins, d)
	for p.Type() != page.TypeData {
		d, p, err = t.borrowPage(p.Next())
		if err != nil {
			return nil, err
		}
		*pins = append(*pins, d)
	}
	if p.SlotCount() == 0 {
		return nil, storeerr.Wrap("btree.leftmostLeafKey", storeerr.ErrInvariantViolation)
	}
	return t.codec.RefByIndex(t.schema, p.Record(0), t.schema.KeyIndex), nil
}

func (t *Tree) writeBack(d *buffer.BufDesp, p page.DataPage) error {
	p.Touch()
	p.SetChecksum()
	if err := t.buf.Write(d); err != nil {
		return storeerr.Wrap("btree.writeBack", err)
	}
	return nil
}

func (t *Tree) writeSuper(d *buffer.BufDesp) error {
	if err := t.buf.Write(d); err != nil {
		return storeerr.Wrap("btree.writeSuper", err)
	}
	return nil
}
