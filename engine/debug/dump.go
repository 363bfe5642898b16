// Package debug renders pages and whole trees as readable structures
// for the CLI demo and for test-failure diagnostics. Everything here is
// read-only: pages are borrowed, decoded into plain structs, and
// released before pp formats them.
package debug

import (
	"github.com/k0kubun/pp"

	"github.com/dbkit/slotdb/engine/btree"
	"github.com/dbkit/slotdb/engine/buffer"
	"github.com/dbkit/slotdb/engine/page"
	"github.com/dbkit/slotdb/engine/record"
	"github.com/dbkit/slotdb/engine/schema"
	"github.com/dbkit/slotdb/engine/storeerr"
	"github.com/dbkit/slotdb/engine/table"
)

// PageDump is one decoded page: its identity, space bookkeeping, the
// key column of every slot, and — for index pages — the decoded child
// subtrees.
type PageDump struct {
	Block     uint32
	Type      string
	Next      uint32
	SlotCount int
	FreeSize  int
	Keys      []interface{}
	Children  []PageDump
}

// TreeDump is the whole tree, super-page counters included.
type TreeDump struct {
	Root        uint32
	RecordCount uint64
	SplitCount  uint64
	Pages       PageDump
}

func typeName(t uint16) string {
	switch t {
	case page.TypeSuper:
		return "SUPER"
	case page.TypeData:
		return "DATA"
	case page.TypeIndex:
		return "INDEX"
	case page.TypeIdle:
		return "IDLE"
	default:
		return "?"
	}
}

// DumpPage decodes a single borrowed page. s must be the schema the
// page's records are packed with — the table schema for a leaf,
// btree.IndexSchema(keyType) for an internal page.
func DumpPage(p page.DataPage, codec record.Codec, s schema.Schema) PageDump {
	d := PageDump{
		Block:     p.Self(),
		Type:      typeName(p.Type()),
		Next:      p.Next(),
		SlotCount: p.SlotCount(),
		FreeSize:  p.FreeSize(),
	}
	for i := 0; i < p.SlotCount(); i++ {
		d.Keys = append(d.Keys, codec.GetByIndex(s, p.Record(i), s.KeyIndex))
	}
	return d
}

// SprintPage formats one page for humans.
func SprintPage(p page.DataPage, codec record.Codec, s schema.Schema) string {
	return pp.Sprint(DumpPage(p, codec, s))
}

// DumpTree walks the whole tree from the super page down and decodes
// every page into a nested TreeDump.
func DumpTree(mgr buffer.Manager, tbl table.Table, codec record.Codec, s schema.Schema) (TreeDump, error) {
	superDesp, err := mgr.Borrow(tbl.Name(), 0)
	if err != nil {
		return TreeDump{}, storeerr.Wrap("debug.DumpTree", err)
	}
	sp := page.SuperPage{Buf: superDesp.Buf}
	dump := TreeDump{
		Root:        sp.RootBlockID(),
		RecordCount: sp.RecordCount(),
		SplitCount:  sp.SplitCount(),
	}
	root := sp.RootBlockID()
	if err := mgr.Release(superDesp); err != nil {
		return TreeDump{}, storeerr.Wrap("debug.DumpTree", err)
	}

	pages, err := dumpSubtree(mgr, tbl, codec, s, root)
	if err != nil {
		return TreeDump{}, err
	}
	dump.Pages = pages
	return dump, nil
}

// SprintTree formats the whole tree for humans.
func SprintTree(mgr buffer.Manager, tbl table.Table, codec record.Codec, s schema.Schema) (string, error) {
	dump, err := DumpTree(mgr, tbl, codec, s)
	if err != nil {
		return "", err
	}
	return pp.Sprint(dump), nil
}

func dumpSubtree(mgr buffer.Manager, tbl table.Table, codec record.Codec, s schema.Schema, blockID uint32) (PageDump, error) {
	desp, err := mgr.Borrow(tbl.Name(), blockID)
	if err != nil {
		return PageDump{}, storeerr.Wrap("debug.dumpSubtree", err)
	}
	p := page.DataPage{Buf: desp.Buf}

	if p.Type() == page.TypeData {
		d := DumpPage(p, codec, s)
		if err := mgr.Release(desp); err != nil {
			return PageDump{}, storeerr.Wrap("debug.dumpSubtree", err)
		}
		return d, nil
	}

	idxSch := btree.IndexSchema(s.KeyType())
	d := DumpPage(p, codec, idxSch)

	children := []uint32{p.Next()}
	for i := 0; i < p.SlotCount(); i++ {
		children = append(children, codec.GetByIndex(idxSch, p.Record(i), 1).(uint32))
	}
	if err := mgr.Release(desp); err != nil {
		return PageDump{}, storeerr.Wrap("debug.dumpSubtree", err)
	}

	for _, child := range children {
		if child == 0 {
			continue
		}
		sub, err := dumpSubtree(mgr, tbl, codec, s, child)
		if err != nil {
			return PageDump{}, err
		}
		d.Children = append(d.Children, sub)
	}
	return d, nil
}
