package page

import (
	bin "github.com/dbkit/slotdb/engine/binary"
)

// Common header layout, shared by every page type (offsets 0..15):
//
//	0  magic      uint32
//	4  space id   uint32
//	8  type       uint16
//	10 reserved   uint16
//	12 self id    uint32

const (
	offMagic   = 0
	offSpaceID = 4
	offType    = 8
	offSelf    = 12
)

func magic(buf []byte) uint32      { return bin.GetUint32(buf[offMagic:]) }
func setMagic(buf []byte)          { bin.PutUint32(buf[offMagic:], Magic) }
func spaceID(buf []byte) uint32    { return bin.GetUint32(buf[offSpaceID:]) }
func setSpaceID(buf []byte, v uint32) { bin.PutUint32(buf[offSpaceID:], v) }
func pageType(buf []byte) uint16   { return bin.GetUint16(buf[offType:]) }
func setPageType(buf []byte, v uint16) { bin.PutUint16(buf[offType:], v) }
func self(buf []byte) uint32       { return bin.GetUint32(buf[offSelf:]) }
func setSelf(buf []byte, v uint32) { bin.PutUint32(buf[offSelf:], v) }

// ValidMagic reports whether buf starts with the page magic word — the
// cheap half of load-time corruption detection, checked before the
// checksum.
func ValidMagic(buf []byte) bool {
	return len(buf) >= CommonHeaderSize && magic(buf) == Magic
}

// PageType reads the 2-byte type field out of any page buffer without needing
// to know whether it's a super, data or index page.
func PageType(buf []byte) uint16 { return pageType(buf) }
