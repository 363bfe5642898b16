package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBorrowCreatesZeroedFrameOnFirstUse(t *testing.T) {
	m := NewMemManager()

	desp, err := m.Borrow("orders", 1)
	assert.NoError(t, err)
	assert.Len(t, desp.Buf, pageSize)
	assert.Equal(t, int32(1), desp.RefCount())

	desp0, err := m.Borrow("orders", 0)
	assert.NoError(t, err)
	assert.Len(t, desp0.Buf, superSize)
}

func TestBorrowReturnsSameFrameAcrossCalls(t *testing.T) {
	m := NewMemManager()

	first, _ := m.Borrow("orders", 7)
	first.Buf[0] = 0xAB

	second, _ := m.Borrow("orders", 7)
	assert.Equal(t, byte(0xAB), second.Buf[0], "a second borrow of the same block must see the same bytes")
	assert.Equal(t, int32(2), second.RefCount(), "each borrow pins independently")
}

func TestDifferentTablesDoNotCollide(t *testing.T) {
	m := NewMemManager()

	a, _ := m.Borrow("orders", 1)
	b, _ := m.Borrow("customers", 1)
	a.Buf[0] = 1
	assert.NotEqual(t, a, b)
	assert.Equal(t, byte(0), b.Buf[0])
}

func TestReleaseDecrementsPinAndRejectsUnbalancedRelease(t *testing.T) {
	m := NewMemManager()

	desp, _ := m.Borrow("orders", 1)
	assert.NoError(t, m.Release(desp))
	assert.Equal(t, int32(0), desp.RefCount())

	assert.Error(t, m.Release(desp), "releasing an unpinned descriptor is an invariant violation")
}

func TestWriteMarksDirty(t *testing.T) {
	m := NewMemManager()
	desp, _ := m.Borrow("orders", 1)
	assert.False(t, desp.IsDirty())
	assert.NoError(t, m.Write(desp))
	assert.True(t, desp.IsDirty())
}
