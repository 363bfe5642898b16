package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClearFormatsEmptyDataPage(t *testing.T) {
	buf := make([]byte, PageSize)
	p := Clear(buf, 7, 42, TypeData)

	assert.True(t, ValidMagic(buf))
	assert.Equal(t, uint32(7), p.SpaceID())
	assert.Equal(t, TypeData, p.Type())
	assert.Equal(t, uint32(42), p.Self())
	assert.Equal(t, 0, p.SlotCount())
	assert.Equal(t, DataHeaderSize, p.FreeSpaceOffset())
	assert.Equal(t, DataFreeSize, p.FreeSize())
}

func TestSlotRoundTrips(t *testing.T) {
	buf := make([]byte, PageSize)
	p := Clear(buf, 1, 1, TypeData)

	p.SetSlot(0, 40, 16)
	offset, length := p.Slot(0)
	assert.Equal(t, uint16(40), offset)
	assert.Equal(t, uint16(16), length)
	assert.Equal(t, 16, p.RecordLength(0))
}

func TestSlotOffsetIsIndependentOfSlotCount(t *testing.T) {
	buf := make([]byte, PageSize)
	p := Clear(buf, 1, 1, TypeData)

	before := p.slotOffset(0)
	p.GrowSlotCount()
	p.GrowSlotCount()
	after := p.slotOffset(0)
	assert.Equal(t, before, after, "slot 0's physical offset must not depend on slot count")
}

func TestChecksumDetectsCorruption(t *testing.T) {
	buf := make([]byte, PageSize)
	p := Clear(buf, 1, 1, TypeData)
	p.SetChecksum()
	assert.True(t, p.VerifyChecksum())

	buf[100] ^= 0xFF
	assert.False(t, p.VerifyChecksum())
}

func TestClearSuperFormatsFreshSuperPage(t *testing.T) {
	buf := make([]byte, SuperSize)
	p := ClearSuper(buf, 3)

	assert.True(t, ValidMagic(buf))
	assert.Equal(t, TypeSuper, p.Type())
	assert.Equal(t, uint64(0), p.RecordCount())
	assert.Equal(t, uint32(0), p.MaxBlockID())

	assert.Equal(t, uint32(1), p.NextBlockID())
	assert.Equal(t, uint32(2), p.NextBlockID())
	p.SetRootBlockID(1)
	assert.Equal(t, uint32(1), p.RootBlockID())

	p.SetChecksum()
	assert.True(t, p.VerifyChecksum())
}
