// Package schema is the type-system seam the core consumes but never
// owns: field types, the ordered field list, and the designated key
// field. Everything here is pure metadata plus the
// byte-level callbacks the slotted-page engine needs to compare and
// sort keys without knowing what a VARCHAR or a DECIMAL actually is.
package schema

// FieldType is one column's type: its on-disk tag and width, the
// host/wire converters, and the comparator used when this type backs
// a key field. Width is 0 for a variable-width type.
type FieldType interface {
	Tag() byte
	Width() int
	HostToWire(v interface{}) []byte
	WireToHost(wire []byte) interface{}
	// Compare orders two wire-encoded values of this type. Fixed-width
	// integer types compare by numeric value; the variable-width
	// VARCHAR type compares length-then-bytes.
	Compare(a, b []byte) int
}

// KeyType is the contract engine/slotted and engine/btree depend on —
// just the comparator, so a leaf/internal page's key column can be
// compared without importing the rest of the type system.
type KeyType = FieldType

// Field is one column of a Schema.
type Field struct {
	Name string
	Type FieldType
}

// Schema is an ordered field list plus the index of the field that
// backs the clustered key.
type Schema struct {
	Fields   []Field
	KeyIndex int
}

// KeyField returns the field backing the clustered index.
func (s Schema) KeyField() Field { return s.Fields[s.KeyIndex] }

// KeyType returns the comparator for the clustered key field.
func (s Schema) KeyType() KeyType { return s.Fields[s.KeyIndex].Type }

// FieldByName looks up a field by name, ok=false if absent.
func (s Schema) FieldByName(name string) (int, Field, bool) {
	for i, f := range s.Fields {
		if f.Name == name {
			return i, f, true
		}
	}
	return -1, Field{}, false
}

// Type tags.
const (
	TagBigInt byte = iota + 1
	TagInt
	TagVarchar
	TagDecimal
)
