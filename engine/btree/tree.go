// Package btree is the clustered B+-tree layered on the slotted-page
// engine: top-down descent, leaf insert with split
// and promoted-key propagation, leaf remove with borrow-then-merge
// rebalancing, root grow/shrink, and update as remove-then-insert.
package btree

import (
	"github.com/dbkit/slotdb/engine/buffer"
	"github.com/dbkit/slotdb/engine/page"
	"github.com/dbkit/slotdb/engine/record"
	"github.com/dbkit/slotdb/engine/schema"
	"github.com/dbkit/slotdb/engine/slotted"
	"github.com/dbkit/slotdb/engine/storeerr"
	"github.com/dbkit/slotdb/engine/super"
	"github.com/dbkit/slotdb/engine/table"
	"github.com/dbkit/slotdb/logger"
)

// Tree wraps the three out-of-core collaborators and the
// derived internal-page schema.
type Tree struct {
	buf     buffer.Manager
	tbl     table.Table
	schema  schema.Schema
	codec   record.Codec
	idxSch  schema.Schema
	spaceID uint32
}

// New returns a Tree over an already-bootstrapped table
// (super.Bootstrap must have run first).
func New(buf buffer.Manager, tbl table.Table, s schema.Schema, codec record.Codec, spaceID uint32) *Tree {
	return &Tree{
		buf:     buf,
		tbl:     tbl,
		schema:  s,
		codec:   codec,
		idxSch:  IndexSchema(s.KeyType()),
		spaceID: spaceID,
	}
}

// Stats exposes the tree's durable counters.
func (t *Tree) Stats() (super.Stats, error) {
	d, sp, err := t.superPage()
	if err != nil {
		return super.Stats{}, err
	}
	defer t.buf.Release(d)
	return super.ReadStats(sp), nil
}

// frame is one level of the descent stack: the block borrowed at that
// level, and the slot index in ITS PARENT that led here (-1 meaning
// "reached via the parent's leftmost-child `next` pointer"). Explicit
// stack, not recursion.
type frame struct {
	desp         *buffer.BufDesp
	p            page.DataPage
	blockID      uint32
	slotInParent int
}

func (t *Tree) superPage() (*buffer.BufDesp, page.SuperPage, error) {
	d, err := t.buf.Borrow(t.tbl.Name(), 0)
	if err != nil {
		return nil, page.SuperPage{}, storeerr.Wrap("btree.superPage", err)
	}
	return d, page.SuperPage{Buf: d.Buf}, nil
}

func (t *Tree) borrowPage(blockID uint32) (*buffer.BufDesp, page.DataPage, error) {
	d, err := t.buf.Borrow(t.tbl.Name(), blockID)
	if err != nil {
		return nil, page.DataPage{}, storeerr.Wrap("btree.borrowPage", err)
	}
	if !page.ValidMagic(d.Buf) {
		logger.Log.Errorf("btree: bad magic on block %d of %s", blockID, t.tbl.Name())
		if rerr := t.buf.Release(d); rerr != nil {
			logger.Log.Errorf("btree: release after bad magic: %v", rerr)
		}
		return nil, page.DataPage{}, storeerr.Wrap("btree.borrowPage", storeerr.ErrCorrupt)
	}
	return d, page.DataPage{Buf: d.Buf}, nil
}

// releaseAll releases every pinned descriptor in reverse borrow order.
// Every borrow must be matched by a release on every code path,
// including error returns.
func (t *Tree) releaseAll(pins []*buffer.BufDesp) {
	for i := len(pins) - 1; i >= 0; i-- {
		if err := t.buf.Release(pins[i]); err != nil {
			logger.Log.Errorf("btree: unbalanced release: %v", err)
		}
	}
}

// separator reads the i-th slot of an internal page as (sep key wire,
// child block id).
func (t *Tree) separator(p page.DataPage, i int) ([]byte, uint32) {
	rec := p.Record(i)
	sep := t.codec.RefByIndex(t.idxSch, rec, 0)
	child := t.codec.GetByIndex(t.idxSch, rec, 1).(uint32)
	return sep, child
}

// descend walks from the root to the leaf that should hold keyWire.
// Routing sends a key equal to a separator into that separator's own
// child. Every page visited, including the super page, is appended
// to pins so the caller's deferred releaseAll balances every borrow.
func (t *Tree) descend(pins *[]*buffer.BufDesp, keyWire []byte) ([]frame, error) {
	superDesp, sp, err := t.superPage()
	if err != nil {
		return nil, err
	}
	*pins = append(*pins, superDesp)

	var stack []frame
	blockID := sp.RootBlockID()
	slotInParent := -1

	for {
		d, p, err := t.borrowPage(blockID)
		if err != nil {
			return nil, err
		}
		*pins = append(*pins, d)
		stack = append(stack, frame{desp: d, p: p, blockID: blockID, slotInParent: slotInParent})

		if p.Type() == page.TypeData {
			return stack, nil
		}

		r := slotted.SearchRecord(p, t.codec, t.idxSch, keyWire)
		n := p.SlotCount()
		switch {
		case n == 0:
			slotInParent, blockID = -1, p.Next()
		case r >= n:
			_, child := t.separator(p, n-1)
			slotInParent, blockID = n-1, child
		default:
			sepKey, child := t.separator(p, r)
			switch {
			case t.schema.KeyType().Compare(sepKey, keyWire) == 0:
				slotInParent, blockID = r, child
			case r > 0:
				_, leftChild := t.separator(p, r-1)
				slotInParent, blockID = r-1, leftChild
			default:
				slotInParent, blockID = -1, p.Next()
			}
		}
	}
}

// Search returns the unpacked row stored under keyValue.
func (t *Tree) Search(keyValue interface{}) ([]interface{}, error) {
	keyWire := t.schema.KeyType().HostToWire(keyValue)

	var pins []*buffer.BufDesp
	defer func() { t.releaseAll(pins) }()

	stack, err := t.descend(&pins, keyWire)
	if err != nil {
		return nil, err
	}
	leaf := stack[len(stack)-1].p

	r := slotted.SearchRecord(leaf, t.codec, t.schema, keyWire)
	if r >= leaf.SlotCount() {
		return nil, storeerr.Wrap("btree.Search", storeerr.ErrNotFound)
	}
	rec := leaf.Record(r)
	if t.schema.KeyType().Compare(t.codec.RefByIndex(t.schema, rec, t.schema.KeyIndex), keyWire) != 0 {
		return nil, storeerr.Wrap("btree.Search", storeerr.ErrNotFound)
	}
	return t.codec.Get(t.schema, rec), nil
}
