package btree

import (
	bin "github.com/dbkit/slotdb/engine/binary"
	"github.com/dbkit/slotdb/engine/schema"
)

// blockID is the fixed-width-4 field type backing an internal page's
// child pointer. It is not part of the user-facing type system
// (engine/schema's BIGINT/INT/VARCHAR/DECIMAL) — purely plumbing so an
// internal page's (separator_key, child_block_id) records
// can be packed with the very same record.Codec and slotted-page
// machinery the leaf level uses.
type blockID struct{}

func (blockID) Tag() byte  { return 0xff }
func (blockID) Width() int { return 4 }

func (blockID) HostToWire(v interface{}) []byte {
	buf := make([]byte, 4)
	bin.PutUint32(buf, v.(uint32))
	return buf
}

func (blockID) WireToHost(wire []byte) interface{} {
	return bin.GetUint32(wire)
}

func (blockID) Compare(a, b []byte) int {
	av, bv := bin.GetUint32(a), bin.GetUint32(b)
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}

// IndexSchema builds the 2-field (separator key, child block id)
// schema an internal page's records are packed with, derived from the
// tree's own key type. Exported so diagnostics (engine/debug) can decode
// internal pages the same way the tree itself does.
func IndexSchema(keyType schema.FieldType) schema.Schema {
	return schema.Schema{
		Fields: []schema.Field{
			{Name: "sep", Type: keyType},
			{Name: "child", Type: blockID{}},
		},
		KeyIndex: 0,
	}
}
