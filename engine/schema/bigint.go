package schema

import bin "github.com/dbkit/slotdb/engine/binary"

// BigInt is a fixed-width 8-byte signed integer field type. Host values
// are plain int64.
type BigInt struct{}

func (BigInt) Tag() byte  { return TagBigInt }
func (BigInt) Width() int { return 8 }

func (BigInt) HostToWire(v interface{}) []byte {
	buf := make([]byte, 8)
	bin.PutInt64(buf, v.(int64))
	return buf
}

func (BigInt) WireToHost(wire []byte) interface{} {
	return bin.GetInt64(wire)
}

func (BigInt) Compare(a, b []byte) int {
	av, bv := bin.GetInt64(a), bin.GetInt64(b)
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}
