package schema

import (
	"github.com/pkg/errors"

	"github.com/code-payments/code-idl/pkg/solana/binary"
)

// Every Type is written as a u16 tag followed by a variant specific payload.
// Tags are part of the persisted format: never renumber or reuse one, only
// append new tags for new kinds.
const (
	tagEmpty          uint16 = 0
	tagPubkey         uint16 = 1
	tagString         uint16 = 2
	tagI8             uint16 = 3
	tagU8             uint16 = 4
	tagI16            uint16 = 5
	tagU16            uint16 = 6
	tagI32            uint16 = 7
	tagU32            uint16 = 8
	tagI64            uint16 = 9
	tagU64            uint16 = 10
	tagI128           uint16 = 11
	tagU128           uint16 = 12
	tagF32            uint16 = 13
	tagF64            uint16 = 14
	tagBool           uint16 = 15
	tagOption         uint16 = 16
	tagArray          uint16 = 17
	tagTuple          uint16 = 18
	tagVec            uint16 = 19
	tagStruct         uint16 = 20
	tagEnum           uint16 = 21
	tagSmallVec       uint16 = 22
	tagRemainingBytes uint16 = 23
)

var (
	ErrUnknownTag         = errors.New("unknown schema tag")
	ErrUnknownKind        = errors.New("unknown schema kind")
	ErrUnknownSmallVecLen = errors.New("unknown smallvec length width")
	ErrTrailingData       = errors.New("trailing data after schema")
)

// MarshalBinary implements encoding.BinaryMarshaler
func (t Type) MarshalBinary() ([]byte, error) {
	w := binary.NewWriter()
	if err := EncodeType(w, t); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. The data must hold
// exactly one encoded Type.
func (t *Type) UnmarshalBinary(data []byte) error {
	r := binary.NewReader(data)
	decoded, err := DecodeType(r)
	if err != nil {
		return err
	}
	if r.Remaining() > 0 {
		return errors.Wrapf(ErrTrailingData, "%d bytes", r.Remaining())
	}

	*t = decoded
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler
func (n Node) MarshalBinary() ([]byte, error) {
	w := binary.NewWriter()
	if err := EncodeNode(w, n); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler
func (n *Node) UnmarshalBinary(data []byte) error {
	r := binary.NewReader(data)
	decoded, err := DecodeNode(r)
	if err != nil {
		return err
	}
	if r.Remaining() > 0 {
		return errors.Wrapf(ErrTrailingData, "%d bytes", r.Remaining())
	}

	*n = decoded
	return nil
}

// EncodeNode writes the node's name, type and hidden flag
func EncodeNode(w *binary.Writer, n Node) error {
	w.PutString(n.Name)
	if err := EncodeType(w, n.Type); err != nil {
		return errors.Wrapf(err, "failed to encode node %s", n.Name)
	}
	w.PutBool(n.IsHidden)
	return nil
}

// DecodeNode reads a node written by EncodeNode
func DecodeNode(r *binary.Reader) (Node, error) {
	var n Node
	var err error

	if n.Name, err = r.GetString(); err != nil {
		return n, errors.Wrap(err, "failed to read node name")
	}

	if n.Type, err = DecodeType(r); err != nil {
		return n, errors.Wrapf(err, "failed to decode node %s", n.Name)
	}

	hidden, err := r.GetUint8()
	if err != nil {
		return n, errors.Wrapf(err, "failed to read hidden flag of node %s", n.Name)
	}
	switch hidden {
	case 0:
	case 1:
		n.IsHidden = true
	default:
		return n, errors.Wrapf(ErrInvalidBool, "hidden flag of node %s is %d", n.Name, hidden)
	}

	return n, nil
}

// EncodeType writes the tag and payload for t
func EncodeType(w *binary.Writer, t Type) error {
	switch t.Kind {
	case KindEmpty:
		w.PutUint16(tagEmpty)
	case KindPubkey:
		w.PutUint16(tagPubkey)
	case KindString:
		w.PutUint16(tagString)
	case KindI8:
		w.PutUint16(tagI8)
	case KindU8:
		w.PutUint16(tagU8)
	case KindI16:
		w.PutUint16(tagI16)
	case KindU16:
		w.PutUint16(tagU16)
	case KindI32:
		w.PutUint16(tagI32)
	case KindU32:
		w.PutUint16(tagU32)
	case KindI64:
		w.PutUint16(tagI64)
	case KindU64:
		w.PutUint16(tagU64)
	case KindI128:
		w.PutUint16(tagI128)
	case KindU128:
		w.PutUint16(tagU128)
	case KindF32:
		w.PutUint16(tagF32)
	case KindF64:
		w.PutUint16(tagF64)
	case KindBool:
		w.PutUint16(tagBool)
	case KindRemainingBytes:
		w.PutUint16(tagRemainingBytes)
	case KindOption:
		w.PutUint16(tagOption)
		return encodeElem(w, t)
	case KindArray:
		w.PutUint16(tagArray)
		w.PutUint64(t.Len)
		return encodeElem(w, t)
	case KindVec:
		w.PutUint16(tagVec)
		return encodeElem(w, t)
	case KindSmallVec:
		w.PutUint16(tagSmallVec)
		switch t.LenWidth {
		case SmallVecLenU8, SmallVecLenU16:
			w.PutUint8(uint8(t.LenWidth))
		default:
			return errors.Wrapf(ErrUnknownSmallVecLen, "%d", t.LenWidth)
		}
		return encodeElem(w, t)
	case KindTuple:
		w.PutUint16(tagTuple)
		w.PutUint64(uint64(len(t.Types)))
		for i, inner := range t.Types {
			if err := EncodeType(w, inner); err != nil {
				return errors.Wrapf(err, "failed to encode tuple element %d", i)
			}
		}
	case KindStruct, KindEnum:
		if t.Kind == KindStruct {
			w.PutUint16(tagStruct)
		} else {
			w.PutUint16(tagEnum)
		}
		w.PutUint64(uint64(len(t.Nodes)))
		for _, node := range t.Nodes {
			if err := EncodeNode(w, node); err != nil {
				return err
			}
		}
	default:
		return errors.Wrapf(ErrUnknownKind, "%d", t.Kind)
	}

	return nil
}

func encodeElem(w *binary.Writer, t Type) error {
	if t.Elem == nil {
		return errors.Errorf("%s type is missing its element type", t.Kind)
	}
	return EncodeType(w, *t.Elem)
}

// DecodeType reads a Type written by EncodeType
func DecodeType(r *binary.Reader) (Type, error) {
	tag, err := r.GetUint16()
	if err != nil {
		return Type{}, errors.Wrap(err, "failed to read schema tag")
	}

	switch tag {
	case tagEmpty:
		return Empty, nil
	case tagPubkey:
		return Pubkey, nil
	case tagString:
		return String, nil
	case tagI8:
		return I8, nil
	case tagU8:
		return U8, nil
	case tagI16:
		return I16, nil
	case tagU16:
		return U16, nil
	case tagI32:
		return I32, nil
	case tagU32:
		return U32, nil
	case tagI64:
		return I64, nil
	case tagU64:
		return U64, nil
	case tagI128:
		return I128, nil
	case tagU128:
		return U128, nil
	case tagF32:
		return F32, nil
	case tagF64:
		return F64, nil
	case tagBool:
		return Bool, nil
	case tagRemainingBytes:
		return RemainingBytes, nil
	case tagOption:
		elem, err := DecodeType(r)
		if err != nil {
			return Type{}, errors.Wrap(err, "failed to decode option element")
		}
		return Option(elem), nil
	case tagArray:
		size, err := r.GetUint64()
		if err != nil {
			return Type{}, errors.Wrap(err, "failed to read array length")
		}
		elem, err := DecodeType(r)
		if err != nil {
			return Type{}, errors.Wrap(err, "failed to decode array element")
		}
		return Array(size, elem), nil
	case tagVec:
		elem, err := DecodeType(r)
		if err != nil {
			return Type{}, errors.Wrap(err, "failed to decode vec element")
		}
		return Vec(elem), nil
	case tagSmallVec:
		width, err := r.GetUint8()
		if err != nil {
			return Type{}, errors.Wrap(err, "failed to read smallvec length width")
		}
		switch SmallVecLen(width) {
		case SmallVecLenU8, SmallVecLenU16:
		default:
			return Type{}, errors.Wrapf(ErrUnknownSmallVecLen, "%d", width)
		}
		elem, err := DecodeType(r)
		if err != nil {
			return Type{}, errors.Wrap(err, "failed to decode smallvec element")
		}
		return SmallVec(SmallVecLen(width), elem), nil
	case tagTuple:
		count, err := r.GetUint64()
		if err != nil {
			return Type{}, errors.Wrap(err, "failed to read tuple length")
		}
		types := make([]Type, 0, capacity(count, r))
		for i := uint64(0); i < count; i++ {
			inner, err := DecodeType(r)
			if err != nil {
				return Type{}, errors.Wrapf(err, "failed to decode tuple element %d", i)
			}
			types = append(types, inner)
		}
		return Tuple(types...), nil
	case tagStruct, tagEnum:
		count, err := r.GetUint64()
		if err != nil {
			return Type{}, errors.Wrap(err, "failed to read node count")
		}
		nodes := make([]Node, 0, capacity(count, r))
		for i := uint64(0); i < count; i++ {
			node, err := DecodeNode(r)
			if err != nil {
				return Type{}, err
			}
			nodes = append(nodes, node)
		}
		if tag == tagStruct {
			return Struct(nodes...), nil
		}
		return Enum(nodes...), nil
	default:
		return Type{}, errors.Wrapf(ErrUnknownTag, "%d", tag)
	}
}

// capacity bounds a preallocation by the data left to read, so a corrupt
// count can't force a huge allocation
func capacity(count uint64, r *binary.Reader) int {
	if count > uint64(r.Remaining()) {
		return r.Remaining()
	}
	return int(count)
}
