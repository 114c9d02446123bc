// Package value defines the decoded form of data described by a schema.Type.
//
// A TypedValue tree mirrors the schema it was decoded with: a Struct holds its
// fields in schema order, an Enum holds the single variant that was selected,
// and so on. Trees are created fresh by every decode call and are owned by the
// caller.
package value

import (
	"math/big"
)

// TypedValue is a decoded value. The set of implementations is closed.
type TypedValue interface {
	isTypedValue()
}

// Node is a named value, used for struct fields and enum variants
type Node struct {
	Name  string
	Value TypedValue
}

func NewNode(name string, v TypedValue) Node {
	return Node{Name: name, Value: v}
}

type (
	Empty  struct{}
	Pubkey string
	String string
	I8     int8
	U8     uint8
	I16    int16
	U16    uint16
	I32    int32
	U32    uint32
	I64    int64
	U64    uint64
	F32    float32
	F64    float64
	Bool   bool

	// Array has a length fixed by its schema with homogeneous elements
	Array []TypedValue

	// Tuple has a length fixed by its schema with heterogeneous elements
	Tuple []TypedValue

	// Vec is a variable length sequence with homogeneous elements
	Vec []TypedValue

	// Struct is an ordered list of fields. The struct's own name lives on the
	// enclosing Node.
	Struct []Node

	// Bytes is a raw byte buffer, produced for byte vectors and trailing data
	Bytes []byte
)

// I128 is a signed 128 bit integer
type I128 struct {
	Int *big.Int
}

// U128 is an unsigned 128 bit integer
type U128 struct {
	Int *big.Int
}

// Option is an optional value. A nil Value means the option is absent.
type Option struct {
	Value TypedValue
}

// Enum holds the selected variant, named after it
type Enum struct {
	Variant Node
}

func (Empty) isTypedValue()  {}
func (Pubkey) isTypedValue() {}
func (String) isTypedValue() {}
func (I8) isTypedValue()     {}
func (U8) isTypedValue()     {}
func (I16) isTypedValue()    {}
func (U16) isTypedValue()    {}
func (I32) isTypedValue()    {}
func (U32) isTypedValue()    {}
func (I64) isTypedValue()    {}
func (U64) isTypedValue()    {}
func (I128) isTypedValue()   {}
func (U128) isTypedValue()   {}
func (F32) isTypedValue()    {}
func (F64) isTypedValue()    {}
func (Bool) isTypedValue()   {}
func (Option) isTypedValue() {}
func (Array) isTypedValue()  {}
func (Tuple) isTypedValue()  {}
func (Vec) isTypedValue()    {}
func (Struct) isTypedValue() {}
func (Enum) isTypedValue()   {}
func (Bytes) isTypedValue()  {}

// NewU128 builds a U128 from its low and high 64 bit words
func NewU128(lo, hi uint64) U128 {
	v := new(big.Int).SetUint64(hi)
	v.Lsh(v, 64)
	v.Or(v, new(big.Int).SetUint64(lo))
	return U128{Int: v}
}

// NewI128 builds an I128 from the low and high 64 bit words of its two's
// complement representation
func NewI128(lo, hi uint64) I128 {
	v := NewU128(lo, hi).Int
	if hi>>63 == 1 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), 128))
	}
	return I128{Int: v}
}

// Some returns a present Option holding v
func Some(v TypedValue) Option {
	return Option{Value: v}
}

// None returns an absent Option
func None() Option {
	return Option{}
}

// IsSome returns whether the option holds a value
func (o Option) IsSome() bool {
	return o.Value != nil
}

// NewStruct builds a Struct from its fields, in order
func NewStruct(fields ...Node) Struct {
	return Struct(fields)
}

// Field returns the first field with the given name
func (s Struct) Field(name string) (TypedValue, bool) {
	for _, f := range s {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}
