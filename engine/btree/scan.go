package btree

import (
	"github.com/dbkit/slotdb/engine/buffer"
	"github.com/dbkit/slotdb/engine/page"
	"github.com/dbkit/slotdb/engine/slotted"
	"github.com/dbkit/slotdb/engine/storeerr"
)

// Scanner walks the leaf chain in ascending key order, one pinned leaf
// at a time. The within-a-page half is slotted.Iterator; Scanner owns
// hopping the `next` pointers between leaves and the single buffer pin
// that goes with the current leaf. Callers must Close it (or drain it
// to exhaustion) so the pin is returned.
type Scanner struct {
	t    *Tree
	desp *buffer.BufDesp
	it   *slotted.Iterator
	p    page.DataPage
	done bool
}

// Scan returns a Scanner positioned at the first record whose key is
// >= startKey, or at the tree's smallest record when startKey is nil
// (the full-table scan supplemented from the original RecordIterator).
func (t *Tree) Scan(startKey interface{}) (*Scanner, error) {
	var leafDesp *buffer.BufDesp
	var leaf page.DataPage
	startIdx := 0

	if startKey == nil {
		d, p, err := t.leftmostLeaf()
		if err != nil {
			return nil, err
		}
		leafDesp, leaf = d, p
	} else {
		keyWire := t.schema.KeyType().HostToWire(startKey)

		var pins []*buffer.BufDesp
		stack, err := t.descend(&pins, keyWire)
		if err != nil {
			t.releaseAll(pins)
			return nil, err
		}
		target := stack[len(stack)-1]

		// Re-pin the leaf for the scanner's own lifetime, then balance
		// out every descent borrow.
		d, p, err := t.borrowPage(target.blockID)
		t.releaseAll(pins)
		if err != nil {
			return nil, err
		}
		leafDesp, leaf = d, p
		startIdx = slotted.SearchRecord(leaf, t.codec, t.schema, keyWire)
	}

	s := &Scanner{t: t, desp: leafDesp, p: leaf, it: slotted.NewIterator(leaf, t.codec, t.schema)}
	for i := 0; i < startIdx; i++ {
		s.it.Next()
	}
	if !s.it.Valid() {
		if err := s.advanceLeaf(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// leftmostLeaf descends from the root via leftmost-child pointers,
// holding at most two pins at a time.
func (t *Tree) leftmostLeaf() (*buffer.BufDesp, page.DataPage, error) {
	superDesp, sp, err := t.superPage()
	if err != nil {
		return nil, page.DataPage{}, err
	}
	blockID := sp.RootBlockID()
	if err := t.buf.Release(superDesp); err != nil {
		return nil, page.DataPage{}, storeerr.Wrap("btree.leftmostLeaf", err)
	}

	d, p, err := t.borrowPage(blockID)
	if err != nil {
		return nil, page.DataPage{}, err
	}
	for p.Type() != page.TypeData {
		next := p.Next()
		if err := t.buf.Release(d); err != nil {
			return nil, page.DataPage{}, storeerr.Wrap("btree.leftmostLeaf", err)
		}
		d, p, err = t.borrowPage(next)
		if err != nil {
			return nil, page.DataPage{}, err
		}
	}
	return d, p, nil
}

// Valid reports whether the scanner currently references a record.
func (s *Scanner) Valid() bool { return !s.done && s.it.Valid() }

// Values unpacks the current record.
func (s *Scanner) Values() []interface{} { return s.it.Values() }

// Next advances by one record, hopping to the next leaf when the
// current one is exhausted. Reaching the end of the chain releases the
// last pin; the scanner then reports !Valid().
func (s *Scanner) Next() error {
	if s.done {
		return nil
	}
	s.it.Next()
	if s.it.Valid() {
		return nil
	}
	return s.advanceLeaf()
}

func (s *Scanner) advanceLeaf() error {
	for {
		next := s.p.Next()
		if err := s.t.buf.Release(s.desp); err != nil {
			s.desp = nil
			s.done = true
			return storeerr.Wrap("btree.Scanner", err)
		}
		s.desp = nil
		if next == 0 {
			s.done = true
			return nil
		}
		d, p, err := s.t.borrowPage(next)
		if err != nil {
			s.done = true
			return err
		}
		s.desp, s.p = d, p
		s.it = slotted.NewIterator(p, s.t.codec, s.t.schema)
		if s.it.Valid() {
			return nil
		}
	}
}

// Close releases the scanner's pin, if it still holds one. Safe to call
// after exhaustion or a failed Next.
func (s *Scanner) Close() error {
	if s.desp == nil {
		return nil
	}
	err := s.t.buf.Release(s.desp)
	s.desp = nil
	s.done = true
	if err != nil {
		return storeerr.Wrap("btree.Scanner.Close", err)
	}
	return nil
}
