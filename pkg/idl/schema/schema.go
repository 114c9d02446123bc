// Package schema describes the shape of Borsh encoded data.
//
// A Type is a closed, recursive description of serialized data: primitives,
// composites (option, array, tuple, vec, struct, enum, smallvec) and the
// trailing-bytes marker. A Node attaches a name and a visibility flag to a
// Type. Both are immutable once built and are safe to share between
// goroutines.
package schema

import "fmt"

// Kind identifies the variant of a Type
type Kind uint8

const (
	KindEmpty Kind = iota
	KindPubkey
	KindString
	KindI8
	KindU8
	KindI16
	KindU16
	KindI32
	KindU32
	KindI64
	KindU64
	KindI128
	KindU128
	KindF32
	KindF64
	KindBool
	KindOption
	KindArray
	KindTuple
	KindVec
	KindStruct
	KindEnum
	KindSmallVec
	KindRemainingBytes
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindPubkey:
		return "pubkey"
	case KindString:
		return "string"
	case KindI8:
		return "i8"
	case KindU8:
		return "u8"
	case KindI16:
		return "i16"
	case KindU16:
		return "u16"
	case KindI32:
		return "i32"
	case KindU32:
		return "u32"
	case KindI64:
		return "i64"
	case KindU64:
		return "u64"
	case KindI128:
		return "i128"
	case KindU128:
		return "u128"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	case KindBool:
		return "bool"
	case KindOption:
		return "option"
	case KindArray:
		return "array"
	case KindTuple:
		return "tuple"
	case KindVec:
		return "vec"
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	case KindSmallVec:
		return "smallvec"
	case KindRemainingBytes:
		return "bytes_remaining"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// SmallVecLen is the integer width used for a SmallVec's element count
type SmallVecLen uint8

const (
	SmallVecLenU8 SmallVecLen = iota
	SmallVecLenU16
)

func (l SmallVecLen) String() string {
	switch l {
	case SmallVecLenU8:
		return "u8"
	case SmallVecLenU16:
		return "u16"
	default:
		return fmt.Sprintf("smallvec_len(%d)", uint8(l))
	}
}

// Type describes serialized data. Only the fields relevant to Kind are set:
//
//   - Option, Vec: Elem
//   - Array: Len and Elem
//   - SmallVec: LenWidth and Elem
//   - Tuple: Types
//   - Struct, Enum: Nodes (fields or variants, in declared order)
type Type struct {
	Kind     Kind
	Len      uint64
	LenWidth SmallVecLen
	Elem     *Type
	Types    []Type
	Nodes    []Node
}

// Node is a named Type. Hidden nodes are left out of decoded output unless
// explicitly requested.
type Node struct {
	Name     string
	Type     Type
	IsHidden bool
}

var (
	Empty          = Type{Kind: KindEmpty}
	Pubkey         = Type{Kind: KindPubkey}
	String         = Type{Kind: KindString}
	I8             = Type{Kind: KindI8}
	U8             = Type{Kind: KindU8}
	I16            = Type{Kind: KindI16}
	U16            = Type{Kind: KindU16}
	I32            = Type{Kind: KindI32}
	U32            = Type{Kind: KindU32}
	I64            = Type{Kind: KindI64}
	U64            = Type{Kind: KindU64}
	I128           = Type{Kind: KindI128}
	U128           = Type{Kind: KindU128}
	F32            = Type{Kind: KindF32}
	F64            = Type{Kind: KindF64}
	Bool           = Type{Kind: KindBool}
	RemainingBytes = Type{Kind: KindRemainingBytes}
)

func Option(elem Type) Type {
	return Type{Kind: KindOption, Elem: &elem}
}

func Array(size uint64, elem Type) Type {
	return Type{Kind: KindArray, Len: size, Elem: &elem}
}

func Tuple(types ...Type) Type {
	return Type{Kind: KindTuple, Types: types}
}

func Vec(elem Type) Type {
	return Type{Kind: KindVec, Elem: &elem}
}

func Struct(fields ...Node) Type {
	return Type{Kind: KindStruct, Nodes: fields}
}

func Enum(variants ...Node) Type {
	return Type{Kind: KindEnum, Nodes: variants}
}

func SmallVec(width SmallVecLen, elem Type) Type {
	return Type{Kind: KindSmallVec, LenWidth: width, Elem: &elem}
}

func NewNode(name string, t Type) Node {
	return Node{Name: name, Type: t}
}

// NewStruct builds a named struct node from its fields
func NewStruct(name string, fields ...Node) Node {
	return NewNode(name, Struct(fields...))
}

// Hidden returns a copy of the node flagged as hidden
func (n Node) Hidden() Node {
	n.IsHidden = true
	return n
}

// IsBytes reports whether the type is a byte vector, which decodes to a raw
// buffer rather than a sequence of integers
func (t Type) IsBytes() bool {
	switch t.Kind {
	case KindVec, KindSmallVec:
		return t.Elem != nil && t.Elem.Kind == KindU8
	}
	return false
}

// Equal reports whether two types describe exactly the same shape, including
// field names and visibility
func (t Type) Equal(other Type) bool {
	if t.Kind != other.Kind {
		return false
	}

	switch t.Kind {
	case KindOption, KindVec:
		return elemEqual(t.Elem, other.Elem)
	case KindArray:
		return t.Len == other.Len && elemEqual(t.Elem, other.Elem)
	case KindSmallVec:
		return t.LenWidth == other.LenWidth && elemEqual(t.Elem, other.Elem)
	case KindTuple:
		if len(t.Types) != len(other.Types) {
			return false
		}
		for i := range t.Types {
			if !t.Types[i].Equal(other.Types[i]) {
				return false
			}
		}
		return true
	case KindStruct, KindEnum:
		if len(t.Nodes) != len(other.Nodes) {
			return false
		}
		for i := range t.Nodes {
			if !t.Nodes[i].Equal(other.Nodes[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func (n Node) Equal(other Node) bool {
	return n.Name == other.Name && n.IsHidden == other.IsHidden && n.Type.Equal(other.Type)
}

func elemEqual(a, b *Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
