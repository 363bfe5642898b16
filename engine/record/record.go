// Package record is the narrow seam between the slotted-page engine
// and the actual row bytes: sizing, packing, and unpacking
// a tuple of schema.Field values into/from a contiguous byte buffer
// that starts with a one-byte tombstone header.
package record

import (
	bin "github.com/dbkit/slotdb/engine/binary"
	"github.com/dbkit/slotdb/engine/schema"
)

// Codec is the record codec contract the core calls against. Every
// method takes the record's own buffer — the codec never
// allocates a page, only describes/packs/unpacks one record's bytes.
type Codec interface {
	// Size returns the packed byte length (tombstone header included)
	// given one value per schema field, in schema.Fields order.
	Size(s schema.Schema, values []interface{}) int

	// Set packs values into buf, which must be at least Size(s, values)
	// bytes. Clears the tombstone bit.
	Set(s schema.Schema, buf []byte, values []interface{})

	// Get unpacks every field of buf back into host values.
	Get(s schema.Schema, buf []byte) []interface{}

	// GetByIndex unpacks a single field's host value.
	GetByIndex(s schema.Schema, buf []byte, fieldIndex int) interface{}

	// RefByIndex returns a single field's wire-encoded bytes without
	// converting to a host value — the zero-copy path the key
	// comparator and schema.FieldType.Compare use directly.
	RefByIndex(s schema.Schema, buf []byte, fieldIndex int) []byte

	// Die sets the tombstone bit on an already-packed record.
	Die(buf []byte)

	// IsDead reports the tombstone bit.
	IsDead(buf []byte) bool
}

// headerSize is the one-byte tombstone header every record carries;
// its low bit is the tombstone flag.
const headerSize = 1

const tombstoneBit = 1

// Tuple is the reference Codec: a flat concatenation of each field's
// wire form (schema.FieldType.HostToWire), fixed-width fields packed
// verbatim and variable-width fields carrying their own length prefix.
type Tuple struct{}

func (Tuple) Size(s schema.Schema, values []interface{}) int {
	n := headerSize
	for i, f := range s.Fields {
		n += len(f.Type.HostToWire(values[i]))
	}
	return n
}

func (Tuple) Set(s schema.Schema, buf []byte, values []interface{}) {
	buf[0] = 0
	offset := headerSize
	for i, f := range s.Fields {
		wire := f.Type.HostToWire(values[i])
		copy(buf[offset:], wire)
		offset += len(wire)
	}
}

func (Tuple) Get(s schema.Schema, buf []byte) []interface{} {
	values := make([]interface{}, len(s.Fields))
	offset := headerSize
	for i, f := range s.Fields {
		n := wireLen(f.Type, buf[offset:])
		values[i] = f.Type.WireToHost(buf[offset : offset+n])
		offset += n
	}
	return values
}

func (Tuple) GetByIndex(s schema.Schema, buf []byte, fieldIndex int) interface{} {
	f := s.Fields[fieldIndex]
	return f.Type.WireToHost(Tuple{}.RefByIndex(s, buf, fieldIndex))
}

func (Tuple) RefByIndex(s schema.Schema, buf []byte, fieldIndex int) []byte {
	offset := headerSize
	for i := 0; i < fieldIndex; i++ {
		offset += wireLen(s.Fields[i].Type, buf[offset:])
	}
	n := wireLen(s.Fields[fieldIndex].Type, buf[offset:])
	return buf[offset : offset+n]
}

func (Tuple) Die(buf []byte) { buf[0] |= tombstoneBit }

func (Tuple) IsDead(buf []byte) bool { return buf[0]&tombstoneBit == tombstoneBit }

// wireLen returns how many bytes ft's wire form occupies starting at
// wire[0]: its fixed Width(), or — for a variable-width type — 2 bytes
// of big-endian length prefix plus that many payload bytes.
func wireLen(ft schema.FieldType, wire []byte) int {
	if w := ft.Width(); w > 0 {
		return w
	}
	return 2 + int(bin.GetUint16(wire))
}
