package page

import (
	bin "github.com/dbkit/slotdb/engine/binary"
	"github.com/dbkit/slotdb/util"
)

// Data/index header layout, following the 16-byte common header
// (offsets 16..39):
//
//	16 next           uint32  leaf-chain forward pointer, 0 if none
//	20 timestamp       uint64  last-write wall clock, millis
//	28 slot count      uint16
//	30 free size       uint16  reclaimable bytes after a future Shrink
//	32 free space off  uint16  first byte past the last allocated record
//	34 reserved        6 bytes padding to 40, keeping the header 8-byte aligned
const (
	offNext            = 16
	offTimestamp       = 20
	offSlotCount       = 28
	offFreeSize        = 30
	offFreeSpaceOffset = 32
)

// DataPage is a typed view over a borrowed 16 KiB buffer holding a data
// or index page. It owns no memory of its own.
type DataPage struct {
	Buf []byte
}

func (p DataPage) Magic() uint32       { return magic(p.Buf) }
func (p DataPage) SpaceID() uint32     { return spaceID(p.Buf) }
func (p DataPage) Type() uint16        { return pageType(p.Buf) }
func (p DataPage) SetType(t uint16)    { setPageType(p.Buf, t) }
func (p DataPage) Self() uint32        { return self(p.Buf) }
func (p DataPage) Next() uint32        { return bin.GetUint32(p.Buf[offNext:]) }
func (p DataPage) SetNext(v uint32)    { bin.PutUint32(p.Buf[offNext:], v) }
func (p DataPage) Timestamp() uint64   { return bin.GetUint64(p.Buf[offTimestamp:]) }
func (p DataPage) Touch()              { bin.PutUint64(p.Buf[offTimestamp:], uint64(util.GetCurrentTimeMillis())) }
func (p DataPage) SlotCount() int      { return int(bin.GetUint16(p.Buf[offSlotCount:])) }
func (p DataPage) setSlotCount(n int)  { bin.PutUint16(p.Buf[offSlotCount:], uint16(n)) }
func (p DataPage) FreeSize() int       { return int(bin.GetUint16(p.Buf[offFreeSize:])) }
func (p DataPage) setFreeSize(n int)   { bin.PutUint16(p.Buf[offFreeSize:], uint16(n)) }
func (p DataPage) FreeSpaceOffset() int {
	return int(bin.GetUint16(p.Buf[offFreeSpaceOffset:]))
}
func (p DataPage) setFreeSpaceOffset(n int) {
	bin.PutUint16(p.Buf[offFreeSpaceOffset:], uint16(n))
}

// Clear resets buf to a freshly-formatted, empty data/index page:
// header written, zero slots, full free space, stamped self id.
func Clear(buf []byte, spaceID uint32, selfID uint32, typ uint16) DataPage {
	for i := range buf {
		buf[i] = 0
	}
	p := DataPage{Buf: buf}
	setMagic(buf)
	setSpaceID(buf, spaceID)
	setPageType(buf, typ)
	setSelf(buf, selfID)
	p.setSlotCount(0)
	p.setFreeSpaceOffset(DataHeaderSize)
	p.setFreeSize(DataFreeSize)
	p.Touch()
	return p
}

// TrailerSize is the 8-byte-aligned byte length of the slot array plus
// the trailing checksum word.
func (p DataPage) TrailerSize() int {
	return Align8(p.SlotCount()*SlotSize + ChecksumSize)
}

// FreeSpaceSize is the contiguous run of unused bytes between the
// record region and the slot/checksum trailer — what Allocate can hand
// out without a Shrink first.
func (p DataPage) FreeSpaceSize() int {
	return len(p.Buf) - p.TrailerSize() - p.FreeSpaceOffset()
}

// slotOffset maps logical slot index i (0 = highest address, adjacent
// to the checksum word; increasing i moves toward the record region)
// to its physical byte offset, independent of slot count.
func (p DataPage) slotOffset(i int) int {
	return len(p.Buf) - ChecksumSize - (i+1)*SlotSize
}

// Slot returns the i-th slot's (offset, length) within the page. The
// tombstone flag lives in the referenced record's first byte, not
// here — a slot's length is always the plain record length.
func (p DataPage) Slot(i int) (offset uint16, length uint16) {
	o := p.slotOffset(i)
	return bin.GetUint16(p.Buf[o:]), bin.GetUint16(p.Buf[o+2:])
}

func (p DataPage) SetSlot(i int, offset uint16, length uint16) {
	o := p.slotOffset(i)
	bin.PutUint16(p.Buf[o:], offset)
	bin.PutUint16(p.Buf[o+2:], length)
}

// RecordLength returns the i-th slot's record length.
func (p DataPage) RecordLength(i int) int {
	_, length := p.Slot(i)
	return int(length)
}

// Record returns the i-th slot's record bytes, tombstone byte included.
func (p DataPage) Record(i int) []byte {
	offset, _ := p.Slot(i)
	n := p.RecordLength(i)
	return p.Buf[int(offset) : int(offset)+n]
}

// GrowSlotCount/ShrinkSlotCount adjust the header's slot count without
// touching slot contents — callers (slotted.Allocate/Deallocate) own
// shifting the array itself.
func (p DataPage) GrowSlotCount()   { p.setSlotCount(p.SlotCount() + 1) }
func (p DataPage) ShrinkSlotCount() { p.setSlotCount(p.SlotCount() - 1) }

// AddFreeSize/SubFreeSize adjust the header's reclaimable-byte counter.
func (p DataPage) AddFreeSize(n int) { p.setFreeSize(p.FreeSize() + n) }
func (p DataPage) SubFreeSize(n int) { p.setFreeSize(p.FreeSize() - n) }
func (p DataPage) SetFreeSize(n int) { p.setFreeSize(n) }

func (p DataPage) AddFreeSpaceOffset(n int) {
	p.setFreeSpaceOffset(p.FreeSpaceOffset() + n)
}
func (p DataPage) SetFreeSpaceOffset(n int) { p.setFreeSpaceOffset(n) }

// SetChecksum computes and stores the trailer checksum over the whole
// page. Must be the last write before a page is
// released back to its table.
func (p DataPage) SetChecksum() { bin.ComputeChecksum(p.Buf) }

// VerifyChecksum reports whether the stored checksum matches.
func (p DataPage) VerifyChecksum() bool { return bin.VerifyChecksum(p.Buf) }
