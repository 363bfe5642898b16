package schema

import (
	"github.com/shopspring/decimal"

	bin "github.com/dbkit/slotdb/engine/binary"
)

// decimalScale is the number of digits kept after the decimal point
// when a DECIMAL field is packed into its fixed-width wire form.
const decimalScale = 4

var decimalShift = decimal.New(1, decimalScale)

// Decimal is an exact fixed-point field type backed by
// shopspring/decimal, encoded on disk as a scaled int64.
type Decimal struct{}

func (Decimal) Tag() byte  { return TagDecimal }
func (Decimal) Width() int { return 8 }

func (Decimal) HostToWire(v interface{}) []byte {
	d := v.(decimal.Decimal)
	scaled := d.Mul(decimalShift).Round(0)
	buf := make([]byte, 8)
	bin.PutInt64(buf, scaled.IntPart())
	return buf
}

func (Decimal) WireToHost(wire []byte) interface{} {
	scaled := bin.GetInt64(wire)
	return decimal.New(scaled, -decimalScale)
}

func (Decimal) Compare(a, b []byte) int {
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
