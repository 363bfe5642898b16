package schema

import bin "github.com/dbkit/slotdb/engine/binary"

// Int is a fixed-width 4-byte signed integer field type. Host values
// are plain int32.
type Int struct{}

func (Int) Tag() byte  { return TagInt }
func (Int) Width() int { return 4 }

func (Int) HostToWire(v interface{}) []byte {
	buf := make([]byte, 4)
	bin.PutInt32(buf, v.(int32))
	return buf
}

func (Int) WireToHost(wire []byte) interface{} {
	return bin.GetInt32(wire)
}

func (Int) Compare(a, b []byte) int {
	av, bv := bin.GetInt32(a), bin.GetInt32(b)
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}
