package slotted

import (
	"testing"

	"github.com/smartystreets/assertions"

	"github.com/dbkit/slotdb/engine/page"
	"github.com/dbkit/slotdb/engine/record"
)

func TestReorderRestoresAscendingKeyOrderAfterShrink(t *testing.T) {
	p := freshLeaf()
	s := testSchema()
	var codec record.Codec = record.Tuple{}

	for _, k := range []int64{5, 1, 9, 3, 7} {
		done, _, err := InsertRecord(p, codec, s, []interface{}{k, "payload"})
		if msg := assertions.ShouldBeNil(err); msg != "" {
			t.Fatal(msg)
		}
		if msg := assertions.ShouldBeTrue(done); msg != "" {
			t.Fatal(msg)
		}
	}

	keyWire := s.KeyType().HostToWire(int64(3))
	if msg := assertions.ShouldBeTrue(RemoveRecord(p, codec, s, keyWire)); msg != "" {
		t.Fatal(msg)
	}

	Shrink(p)
	Reorder(p, codec, s)

	var prev int64 = -1
	for i := 0; i < p.SlotCount(); i++ {
		got := codec.GetByIndex(s, p.Record(i), 0).(int64)
		if msg := assertions.ShouldBeTrue(got > prev); msg != "" {
			t.Fatalf("slot %d out of order: %s", i, msg)
		}
		prev = got
	}
	if msg := assertions.ShouldEqual(p.SlotCount(), 4); msg != "" {
		t.Fatal(msg)
	}
}

func TestSlotRoundTripsOnClearedPage(t *testing.T) {
	buf := make([]byte, page.PageSize)
	p1 := page.Clear(buf, 1, 1, page.TypeData)
	p1.SetSlot(0, 100, 8)
	offset, length := p1.Slot(0)

	if msg := assertions.ShouldEqual(offset, uint16(100)); msg != "" {
		t.Fatal(msg)
	}
	if msg := assertions.ShouldEqual(length, uint16(8)); msg != "" {
		t.Fatal(msg)
	}
}
