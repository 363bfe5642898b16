package schema

import (
	"bytes"

	bin "github.com/dbkit/slotdb/engine/binary"
)

// Varchar is a variable-width, length-prefixed string field type. Wire
// form is a 2-byte big-endian length followed by the raw bytes. The
// only variable-width type in the system; internal-node separator keys
// are expected to be fixed-width, so a Varchar key column belongs in
// leaf records only.
type Varchar struct{}

func (Varchar) Tag() byte  { return TagVarchar }
func (Varchar) Width() int { return 0 }

func (Varchar) HostToWire(v interface{}) []byte {
	s := v.(string)
	wire := make([]byte, 2+len(s))
	bin.PutUint16(wire, uint16(len(s)))
	copy(wire[2:], s)
	return wire
}

func (Varchar) WireToHost(wire []byte) interface{} {
	n := bin.GetUint16(wire)
	return string(wire[2 : 2+int(n)])
}

// Compare orders length-then-bytes, not plain
// lexicographic order: a shorter string always sorts before a longer
// one regardless of content.
func (Varchar) Compare(a, b []byte) int {
	al, bl := bin.GetUint16(a), bin.GetUint16(b)
	if al != bl {
		if al < bl {
			return -1
		}
		return 1
	}
	return bytes.Compare(a[2:2+int(al)], b[2:2+int(bl)])
}
