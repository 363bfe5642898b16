package table

import (
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/dbkit/slotdb/engine/page"
	"github.com/dbkit/slotdb/engine/schema"
	"github.com/dbkit/slotdb/engine/storeerr"
	"github.com/dbkit/slotdb/logger"
)

// FileTable block-aligns reads and writes to an *os.File: block 0 is
// the 4 KiB super page, every later block is 16 KiB. Free blocks are
// threaded through an idle block's own `next` field — engine/page's
// data header, reused with type Idle.
type FileTable struct {
	mu      sync.Mutex
	file    *os.File
	name    string
	info    schema.Schema
	spaceID uint32
}

// NewFileTable opens (creating if necessary) the file at path and
// formats a fresh super page if it's empty.
func NewFileTable(path string, name string, info schema.Schema, spaceID uint32) (*FileTable, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, storeerr.Wrap("table.NewFileTable", err)
	}

	t := &FileTable{file: f, name: name, info: info, spaceID: spaceID}

	fi, err := f.Stat()
	if err != nil {
		return nil, storeerr.Wrap("table.NewFileTable", err)
	}
	if fi.Size() == 0 {
		if err := t.bootstrap(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *FileTable) bootstrap() error {
	buf := make([]byte, page.SuperSize)
	sp := page.ClearSuper(buf, t.spaceID)
	sp.SetChecksum()
	return t.writeBlock(0, buf)
}

func blockOffset(blockID uint32) int64 {
	if blockID == 0 {
		return 0
	}
	return int64(page.SuperSize) + int64(blockID-1)*int64(page.PageSize)
}

func blockSize(blockID uint32) int {
	if blockID == 0 {
		return page.SuperSize
	}
	return page.PageSize
}

func (t *FileTable) readBlock(blockID uint32) ([]byte, error) {
	buf := make([]byte, blockSize(blockID))
	if _, err := t.file.ReadAt(buf, blockOffset(blockID)); err != nil {
		return nil, storeerr.Wrap("table.readBlock", err)
	}
	return buf, nil
}

func (t *FileTable) writeBlock(blockID uint32, buf []byte) error {
	if _, err := t.file.WriteAt(buf, blockOffset(blockID)); err != nil {
		return storeerr.Wrap("table.writeBlock", err)
	}
	return nil
}

func (t *FileTable) readSuper() (page.SuperPage, error) {
	buf, err := t.readBlock(0)
	if err != nil {
		return page.SuperPage{}, err
	}
	return page.SuperPage{Buf: buf}, nil
}

// Allocate reuses a block from the free list before growing the file.
func (t *FileTable) Allocate() (uint32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sp, err := t.readSuper()
	if err != nil {
		return 0, err
	}

	if head := sp.FreeListHead(); head != 0 {
		idleBuf, err := t.readBlock(head)
		if err != nil {
			return 0, err
		}
		idle := page.DataPage{Buf: idleBuf}
		sp.SetFreeListHead(idle.Next())
		sp.AddIdleBlockCount(-1)
		sp.AddDataBlockCount(1)
		sp.SetChecksum()
		if err := t.writeBlock(0, sp.Buf); err != nil {
			return 0, err
		}
		logger.Log.Debugf("table: allocate %s reused idle block %d", t.name, head)
		return head, nil
	}

	id := sp.NextBlockID()
	sp.AddDataBlockCount(1)
	sp.SetChecksum()
	if err := t.writeBlock(0, sp.Buf); err != nil {
		return 0, err
	}
	if err := t.writeBlock(id, make([]byte, page.PageSize)); err != nil {
		return 0, err
	}
	logger.Log.Debugf("table: allocate %s grew to block %d", t.name, id)
	return id, nil
}

// Deallocate threads blockID onto the free list's head.
func (t *FileTable) Deallocate(blockID uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	sp, err := t.readSuper()
	if err != nil {
		return err
	}

	idleBuf := make([]byte, page.PageSize)
	idle := page.Clear(idleBuf, t.spaceID, blockID, page.TypeIdle)
	idle.SetNext(sp.FreeListHead())
	idle.SetChecksum()
	if err := t.writeBlock(blockID, idleBuf); err != nil {
		return err
	}

	sp.SetFreeListHead(blockID)
	sp.AddIdleBlockCount(1)
	sp.AddDataBlockCount(-1)
	sp.SetChecksum()
	if err := t.writeBlock(0, sp.Buf); err != nil {
		return err
	}
	logger.Log.Debugf("table: deallocate %s freed block %d", t.name, blockID)
	return nil
}

func (t *FileTable) Info() schema.Schema { return t.info }
func (t *FileTable) Name() string        { return t.name }

// Close releases the underlying file handle.
func (t *FileTable) Close() error {
	if err := t.file.Close(); err != nil {
		return errors.Wrap(err, "table.Close")
	}
	return nil
}
