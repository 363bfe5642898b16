package page

import (
	bin "github.com/dbkit/slotdb/engine/binary"
	"github.com/dbkit/slotdb/util"
)

// Super header layout, following the 16-byte common header
// (offsets 16..63):
//
//	16 timestamp         uint64
//	24 record count      uint64  live rows across the whole tree
//	32 split count       uint64  leaf/internal splits performed, lifetime
//	40 root block id     uint32
//	44 max block id      uint32  highest block id ever allocated
//	48 free list head    uint32  idle-block chain head, 0 if empty
//	52 data block count  uint32  live data/index blocks
//	56 idle block count  uint32  blocks on the free list
//	60 reserved          uint32  padding to 64 bytes
const (
	offSuperTimestamp      = 16
	offRecordCount         = 24
	offSplitCount          = 32
	offRootBlockID         = 40
	offMaxBlockID          = 44
	offFreeListHead        = 48
	offDataBlockCount      = 52
	offIdleBlockCount      = 56
)

// SuperPage is a typed view over a borrowed 4 KiB buffer holding a
// table's super page. Block 0 of every table file.
type SuperPage struct {
	Buf []byte
}

func (p SuperPage) Magic() uint32    { return magic(p.Buf) }
func (p SuperPage) SpaceID() uint32  { return spaceID(p.Buf) }
func (p SuperPage) Type() uint16     { return pageType(p.Buf) }
func (p SuperPage) Self() uint32     { return self(p.Buf) }

func (p SuperPage) Timestamp() uint64 { return bin.GetUint64(p.Buf[offSuperTimestamp:]) }
func (p SuperPage) Touch()            { bin.PutUint64(p.Buf[offSuperTimestamp:], uint64(util.GetCurrentTimeMillis())) }

func (p SuperPage) RecordCount() uint64     { return bin.GetUint64(p.Buf[offRecordCount:]) }
func (p SuperPage) SetRecordCount(v uint64) { bin.PutUint64(p.Buf[offRecordCount:], v) }
func (p SuperPage) AddRecordCount(delta int64) {
	p.SetRecordCount(uint64(int64(p.RecordCount()) + delta))
}

func (p SuperPage) SplitCount() uint64     { return bin.GetUint64(p.Buf[offSplitCount:]) }
func (p SuperPage) SetSplitCount(v uint64) { bin.PutUint64(p.Buf[offSplitCount:], v) }
func (p SuperPage) IncSplitCount()         { p.SetSplitCount(p.SplitCount() + 1) }

func (p SuperPage) RootBlockID() uint32     { return bin.GetUint32(p.Buf[offRootBlockID:]) }
func (p SuperPage) SetRootBlockID(v uint32) { bin.PutUint32(p.Buf[offRootBlockID:], v) }

func (p SuperPage) MaxBlockID() uint32     { return bin.GetUint32(p.Buf[offMaxBlockID:]) }
func (p SuperPage) SetMaxBlockID(v uint32) { bin.PutUint32(p.Buf[offMaxBlockID:], v) }
func (p SuperPage) NextBlockID() uint32 {
	next := p.MaxBlockID() + 1
	p.SetMaxBlockID(next)
	return next
}

func (p SuperPage) FreeListHead() uint32     { return bin.GetUint32(p.Buf[offFreeListHead:]) }
func (p SuperPage) SetFreeListHead(v uint32) { bin.PutUint32(p.Buf[offFreeListHead:], v) }

func (p SuperPage) DataBlockCount() uint32     { return bin.GetUint32(p.Buf[offDataBlockCount:]) }
func (p SuperPage) SetDataBlockCount(v uint32) { bin.PutUint32(p.Buf[offDataBlockCount:], v) }
func (p SuperPage) AddDataBlockCount(delta int32) {
	p.SetDataBlockCount(uint32(int32(p.DataBlockCount()) + delta))
}

func (p SuperPage) IdleBlockCount() uint32     { return bin.GetUint32(p.Buf[offIdleBlockCount:]) }
func (p SuperPage) SetIdleBlockCount(v uint32) { bin.PutUint32(p.Buf[offIdleBlockCount:], v) }
func (p SuperPage) AddIdleBlockCount(delta int32) {
	p.SetIdleBlockCount(uint32(int32(p.IdleBlockCount()) + delta))
}

// ClearSuper formats buf as a fresh super page with no root yet —
// callers set RootBlockID once the initial empty leaf has been
// allocated.
func ClearSuper(buf []byte, spaceID uint32) SuperPage {
	for i := range buf {
		buf[i] = 0
	}
	p := SuperPage{Buf: buf}
	setMagic(buf)
	setSpaceID(buf, spaceID)
	setPageType(buf, TypeSuper)
	setSelf(buf, 0)
	p.Touch()
	return p
}

func (p SuperPage) SetChecksum()        { bin.ComputeChecksum(p.Buf) }
func (p SuperPage) VerifyChecksum() bool { return bin.VerifyChecksum(p.Buf) }
