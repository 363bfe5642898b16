package record

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dbkit/slotdb/engine/schema"
)

func testSchema() schema.Schema {
	return schema.Schema{
		Fields: []schema.Field{
			{Name: "id", Type: schema.BigInt{}},
			{Name: "name", Type: schema.Varchar{}},
		},
		KeyIndex: 0,
	}
}

func TestTupleRoundTrip(t *testing.T) {
	s := testSchema()
	values := []interface{}{int64(7), "hello"}

	var codec Codec = Tuple{}
	buf := make([]byte, codec.Size(s, values))
	codec.Set(s, buf, values)

	assert.False(t, codec.IsDead(buf))
	got := codec.Get(s, buf)
	assert.Equal(t, int64(7), got[0])
	assert.Equal(t, "hello", got[1])
}

func TestTupleGetByIndexAndRefByIndex(t *testing.T) {
	s := testSchema()
	values := []interface{}{int64(42), "world"}

	var codec Codec = Tuple{}
	buf := make([]byte, codec.Size(s, values))
	codec.Set(s, buf, values)

	assert.Equal(t, int64(42), codec.GetByIndex(s, buf, 0))
	assert.Equal(t, "world", codec.GetByIndex(s, buf, 1))

	keyWire := codec.RefByIndex(s, buf, 0)
	assert.Equal(t, s.KeyType().HostToWire(int64(42)), keyWire)
}

func TestTupleDie(t *testing.T) {
	s := testSchema()
	values := []interface{}{int64(1), "x"}

	var codec Codec = Tuple{}
	buf := make([]byte, codec.Size(s, values))
	codec.Set(s, buf, values)

	assert.False(t, codec.IsDead(buf))
	codec.Die(buf)
	assert.True(t, codec.IsDead(buf))
}
