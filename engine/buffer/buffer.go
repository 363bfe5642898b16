// Package buffer is the buffer-manager contract the core consumes but
// never owns: Borrow/Release/Write plus a pinned
// descriptor. MemManager is the reference implementation used by
// tests, the CLI demo, and the end-to-end scenarios — real eviction
// and write-back policy belong to the out-of-scope production buffer
// manager.
package buffer

import (
	"encoding/binary"
	"sync"

	"go.uber.org/atomic"

	"github.com/dbkit/slotdb/engine/storeerr"
	"github.com/dbkit/slotdb/logger"
	"github.com/dbkit/slotdb/util"
)

// BufDesp is a pinned buffer descriptor: the frame's bytes plus a
// reference count. The ref count is a go.uber.org/atomic.Int32 so
// Pin/Unpin are safe to call without the manager's own lock held.
type BufDesp struct {
	TableName string
	BlockID   uint32
	Buf       []byte

	refs  atomic.Int32
	dirty atomic.Bool
}

func (d *BufDesp) pin() int32   { return d.refs.Inc() }
func (d *BufDesp) unpin() int32 { return d.refs.Dec() }

// RefCount reports the descriptor's current pin count.
func (d *BufDesp) RefCount() int32 { return d.refs.Load() }

// MarkDirty flags the descriptor for write-back.
func (d *BufDesp) MarkDirty() { d.dirty.Store(true) }

// IsDirty reports whether Write has been requested since the last
// clear.
func (d *BufDesp) IsDirty() bool { return d.dirty.Load() }

// Manager is the buffer-manager contract.
type Manager interface {
	// Borrow returns a pinned frame for (tableName, blockID), loading
	// or fabricating it if this is the first borrow, and increments
	// its pin count.
	Borrow(tableName string, blockID uint32) (*BufDesp, error)

	// Release drops one pin. Returns storeerr.ErrInvariantViolation if
	// the descriptor was not pinned.
	Release(desp *BufDesp) error

	// Write marks or flushes the frame dirty.
	Write(desp *BufDesp) error
}

// MemManager is a non-evicting, in-memory reference Manager keyed by
// (tableName, blockID) hashed with xxhash into a frame table. It never
// forgets a frame and never writes anywhere — there is nothing to
// flush to, by design, so its pin accounting can be tested in
// isolation from any real buffer-pool eviction policy.
type MemManager struct {
	mu     sync.Mutex
	frames map[uint64]*BufDesp
}

func NewMemManager() *MemManager {
	return &MemManager{frames: make(map[uint64]*BufDesp)}
}

func frameKey(tableName string, blockID uint32) uint64 {
	key := make([]byte, len(tableName)+4)
	copy(key, tableName)
	binary.BigEndian.PutUint32(key[len(tableName):], blockID)
	return util.HashCode(key)
}

// frameSize: block 0 of every table is the 4 KiB super page, every
// other block is 16 KiB.
func frameSize(blockID uint32) int {
	if blockID == 0 {
		return superSize
	}
	return pageSize
}

const (
	superSize = 4 * 1024
	pageSize  = 16 * 1024
)

func (m *MemManager) Borrow(tableName string, blockID uint32) (*BufDesp, error) {
	key := frameKey(tableName, blockID)

	m.mu.Lock()
	desp, ok := m.frames[key]
	if !ok {
		desp = &BufDesp{
			TableName: tableName,
			BlockID:   blockID,
			Buf:       make([]byte, frameSize(blockID)),
		}
		m.frames[key] = desp
	}
	m.mu.Unlock()

	pins := desp.pin()
	logger.Log.Debugf("buffer: borrow table=%s block=%d pins=%d", tableName, blockID, pins)
	return desp, nil
}

func (m *MemManager) Release(desp *BufDesp) error {
	if desp.RefCount() <= 0 {
		return storeerr.Wrap("buffer.Release", storeerr.ErrInvariantViolation)
	}
	pins := desp.unpin()
	logger.Log.Debugf("buffer: release table=%s block=%d pins=%d", desp.TableName, desp.BlockID, pins)
	return nil
}

func (m *MemManager) Write(desp *BufDesp) error {
	desp.MarkDirty()
	return nil
}
