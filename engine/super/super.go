// Package super is the thin bookkeeping layer over a table's super
// page: bootstrapping a fresh table, and the counter/root-pointer
// mutations engine/btree performs during a root grow or shrink.
package super

import (
	"github.com/dbkit/slotdb/engine/buffer"
	"github.com/dbkit/slotdb/engine/page"
	"github.com/dbkit/slotdb/engine/storeerr"
	"github.com/dbkit/slotdb/engine/table"
	"github.com/dbkit/slotdb/logger"
)

// Stats snapshots the super page's counters: a lifetime split counter
// (bumped on every leaf/internal split), a live row count
// (bumped/dropped on every leaf insert/remove), and the block
// allocation counters.
type Stats struct {
	RecordCount    uint64
	SplitCount     uint64
	DataBlockCount uint32
	IdleBlockCount uint32
	RootBlockID    uint32
}

// ReadStats snapshots a borrowed super page's counters.
func ReadStats(sp page.SuperPage) Stats {
	return Stats{
		RecordCount:    sp.RecordCount(),
		SplitCount:     sp.SplitCount(),
		DataBlockCount: sp.DataBlockCount(),
		IdleBlockCount: sp.IdleBlockCount(),
		RootBlockID:    sp.RootBlockID(),
	}
}

// Bootstrap formats tbl's block 0 as a fresh super page and allocates
// an empty leaf as the initial root. Must run exactly once, before
// any Tree operation.
func Bootstrap(tbl table.Table, mgr buffer.Manager, spaceID uint32) error {
	superDesp, err := mgr.Borrow(tbl.Name(), 0)
	if err != nil {
		return storeerr.Wrap("super.Bootstrap", err)
	}
	defer mgr.Release(superDesp)

	sp := page.ClearSuper(superDesp.Buf, spaceID)

	rootID, err := tbl.Allocate()
	if err != nil {
		return storeerr.Wrap("super.Bootstrap", err)
	}

	rootDesp, err := mgr.Borrow(tbl.Name(), rootID)
	if err != nil {
		return storeerr.Wrap("super.Bootstrap", err)
	}
	leaf := page.Clear(rootDesp.Buf, spaceID, rootID, page.TypeData)
	leaf.SetChecksum()
	if err := mgr.Write(rootDesp); err != nil {
		mgr.Release(rootDesp)
		return storeerr.Wrap("super.Bootstrap", err)
	}
	if err := mgr.Release(rootDesp); err != nil {
		return storeerr.Wrap("super.Bootstrap", err)
	}

	sp.SetRootBlockID(rootID)
	sp.SetChecksum()
	logger.Log.Debugf("super: bootstrap table=%s root=%d", tbl.Name(), rootID)
	return mgr.Write(superDesp)
}

// GrowRoot points the super page at a freshly-allocated root after a
// root split. The split that forced the grow
// is counted by the insert path itself — growing the root only moves
// the entry point.
func GrowRoot(sp page.SuperPage, newRootID uint32) {
	sp.SetRootBlockID(newRootID)
}

// ShrinkRoot points the super page at the root's sole remaining child
// after a root shrink.
func ShrinkRoot(sp page.SuperPage, soleChildID uint32) {
	sp.SetRootBlockID(soleChildID)
}
