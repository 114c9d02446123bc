package schema

import (
	"math"
	"unicode/utf8"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/code-idl/pkg/idl/value"
	"github.com/code-payments/code-idl/pkg/solana/binary"
)

var (
	ErrHiddenVariant      = errors.New("selected enum variant is hidden")
	ErrInvalidEnumVariant = errors.New("enum variant index out of range")
	ErrInvalidUTF8        = errors.New("string is not valid utf-8")
	ErrInvalidOption      = errors.New("invalid option flag")
	ErrInvalidBool        = errors.New("invalid bool value")
	ErrTooManyElements    = errors.New("too many zero-width elements")
)

// MaxZeroWidthElements bounds the elements of zero-width types, which consume
// no input, that a single decode may produce
const MaxZeroWidthElements = 1 << 16

// Decode reads the node's value from r. Hidden nodes still consume their
// bytes, but yield a nil node unless showHidden is set.
func (n Node) Decode(r *binary.Reader, showHidden bool) (*value.Node, error) {
	return newDecoder(r, showHidden).node(n)
}

func (n Node) label() string {
	if len(n.Name) == 0 {
		return "<anonymous>"
	}
	return n.Name
}

// DecodeBytes decodes data against t, which must consume the buffer entirely
func (t Type) DecodeBytes(data []byte, showHidden bool) (value.TypedValue, error) {
	r := binary.NewReader(data)
	v, err := t.Decode(r, showHidden)
	if err != nil {
		return nil, err
	}
	if r.Remaining() > 0 {
		return nil, errors.Wrapf(ErrTrailingData, "%d bytes", r.Remaining())
	}
	return v, nil
}

// Decode reads one value of type t from r, advancing it past exactly the
// bytes the type prescribes
func (t Type) Decode(r *binary.Reader, showHidden bool) (value.TypedValue, error) {
	return newDecoder(r, showHidden).value(t)
}

// decoder carries the state of a single decode: its input, the hidden policy
// and the count of zero-width sequence elements produced so far
type decoder struct {
	r          *binary.Reader
	showHidden bool
	zeroWidth  uint64
}

func newDecoder(r *binary.Reader, showHidden bool) *decoder {
	return &decoder{r: r, showHidden: showHidden}
}

func (d *decoder) node(n Node) (*value.Node, error) {
	v, err := d.value(n.Type)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", n.label())
	}

	if n.IsHidden && !d.showHidden {
		return nil, nil
	}

	decoded := value.NewNode(n.Name, v)
	return &decoded, nil
}

func (d *decoder) value(t Type) (value.TypedValue, error) {
	r := d.r
	switch t.Kind {
	case KindEmpty:
		return value.Empty{}, nil
	case KindPubkey:
		key, err := r.GetKey32()
		if err != nil {
			return nil, err
		}
		return value.Pubkey(base58.Encode(key)), nil
	case KindString:
		s, err := r.GetString()
		if err != nil {
			return nil, err
		}
		if !utf8.ValidString(s) {
			return nil, ErrInvalidUTF8
		}
		return value.String(s), nil
	case KindI8:
		v, err := r.GetUint8()
		return value.I8(int8(v)), err
	case KindU8:
		v, err := r.GetUint8()
		return value.U8(v), err
	case KindI16:
		v, err := r.GetUint16()
		return value.I16(int16(v)), err
	case KindU16:
		v, err := r.GetUint16()
		return value.U16(v), err
	case KindI32:
		v, err := r.GetUint32()
		return value.I32(int32(v)), err
	case KindU32:
		v, err := r.GetUint32()
		return value.U32(v), err
	case KindI64:
		v, err := r.GetUint64()
		return value.I64(int64(v)), err
	case KindU64:
		v, err := r.GetUint64()
		return value.U64(v), err
	case KindI128:
		lo, hi, err := r.GetUint128()
		if err != nil {
			return nil, err
		}
		return value.NewI128(lo, hi), nil
	case KindU128:
		lo, hi, err := r.GetUint128()
		if err != nil {
			return nil, err
		}
		return value.NewU128(lo, hi), nil
	case KindF32:
		v, err := r.GetUint32()
		return value.F32(math.Float32frombits(v)), err
	case KindF64:
		v, err := r.GetUint64()
		return value.F64(math.Float64frombits(v)), err
	case KindBool:
		v, err := r.GetUint8()
		if err != nil {
			return nil, err
		}
		switch v {
		case 0:
			return value.Bool(false), nil
		case 1:
			return value.Bool(true), nil
		default:
			return nil, errors.Wrapf(ErrInvalidBool, "%d", v)
		}
	case KindOption:
		flag, err := r.GetUint8()
		if err != nil {
			return nil, err
		}
		switch flag {
		case 0:
			return value.None(), nil
		case 1:
			inner, err := d.value(t.elem())
			if err != nil {
				return nil, err
			}
			return value.Some(inner), nil
		default:
			return nil, errors.Wrapf(ErrInvalidOption, "%d", flag)
		}
	case KindArray:
		values, err := d.sequence(t.elem(), t.Len)
		if err != nil {
			return nil, err
		}
		return value.Array(values), nil
	case KindTuple:
		values := make([]value.TypedValue, 0, len(t.Types))
		for i, inner := range t.Types {
			v, err := d.value(inner)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to decode tuple element %d", i)
			}
			values = append(values, v)
		}
		return value.Tuple(values), nil
	case KindVec:
		count, err := r.GetUint32()
		if err != nil {
			return nil, errors.Wrap(err, "failed to read vec length")
		}
		return d.vec(t, uint64(count))
	case KindSmallVec:
		var count uint64
		switch t.LenWidth {
		case SmallVecLenU8:
			v, err := r.GetUint8()
			if err != nil {
				return nil, errors.Wrap(err, "failed to read smallvec length")
			}
			count = uint64(v)
		case SmallVecLenU16:
			v, err := r.GetUint16()
			if err != nil {
				return nil, errors.Wrap(err, "failed to read smallvec length")
			}
			count = uint64(v)
		default:
			return nil, errors.Wrapf(ErrUnknownSmallVecLen, "%d", t.LenWidth)
		}
		return d.vec(t, count)
	case KindStruct:
		fields := make([]value.Node, 0, len(t.Nodes))
		for _, node := range t.Nodes {
			field, err := d.node(node)
			if err != nil {
				return nil, err
			}
			if field != nil {
				fields = append(fields, *field)
			}
		}
		return value.Struct(fields), nil
	case KindEnum:
		selector, err := r.GetUint8()
		if err != nil {
			return nil, errors.Wrap(err, "failed to read enum variant")
		}
		if int(selector) >= len(t.Nodes) {
			return nil, errors.Wrapf(ErrInvalidEnumVariant, "variant %d of %d", selector, len(t.Nodes))
		}

		variant := t.Nodes[selector]
		if variant.IsHidden {
			return nil, errors.Wrapf(ErrHiddenVariant, "variant %s", variant.Name)
		}

		decoded, err := d.node(variant)
		if err != nil {
			return nil, err
		}
		return value.Enum{Variant: *decoded}, nil
	case KindRemainingBytes:
		return value.Bytes(r.GetRemaining()), nil
	default:
		return nil, errors.Wrapf(ErrUnknownKind, "%d", t.Kind)
	}
}

// vec handles the element payload shared by Vec and SmallVec. Byte vectors are
// copied out verbatim.
func (d *decoder) vec(t Type, count uint64) (value.TypedValue, error) {
	if t.IsBytes() {
		if count > uint64(d.r.Remaining()) {
			return nil, errors.Wrapf(binary.ErrUnexpectedEOF, "byte vector of length %d, have %d", count, d.r.Remaining())
		}
		b, err := d.r.GetBytes(int(count))
		if err != nil {
			return nil, err
		}
		return value.Bytes(b), nil
	}

	values, err := d.sequence(t.elem(), count)
	if err != nil {
		return nil, err
	}
	return value.Vec(values), nil
}

// sequence decodes count elements of type elem. Elements that occupy bytes
// must fit in the remaining input; zero-width elements draw on a fixed budget
// shared by the whole decode.
func (d *decoder) sequence(elem Type, count uint64) ([]value.TypedValue, error) {
	if width := elem.MinWidth(); width > 0 {
		if count > uint64(d.r.Remaining())/width {
			return nil, errors.Wrapf(binary.ErrUnexpectedEOF, "%d elements of at least %d bytes, have %d", count, width, d.r.Remaining())
		}
	} else {
		if count > MaxZeroWidthElements-d.zeroWidth {
			return nil, errors.Wrapf(ErrTooManyElements, "%d zero-width elements", d.zeroWidth+count)
		}
		d.zeroWidth += count
	}

	values := make([]value.TypedValue, 0, capacity(count, d.r))
	for i := uint64(0); i < count; i++ {
		v, err := d.value(elem)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode element %d", i)
		}
		values = append(values, v)
	}
	return values, nil
}

// MinWidth returns the fewest bytes any encoding of t occupies, saturating at
// math.MaxUint64
func (t Type) MinWidth() uint64 {
	switch t.Kind {
	case KindEmpty, KindRemainingBytes:
		return 0
	case KindI8, KindU8, KindBool, KindOption, KindEnum:
		return 1
	case KindI16, KindU16:
		return 2
	case KindI32, KindU32, KindF32, KindString, KindVec:
		return 4
	case KindI64, KindU64, KindF64:
		return 8
	case KindI128, KindU128:
		return 16
	case KindPubkey:
		return 32
	case KindSmallVec:
		if t.LenWidth == SmallVecLenU16 {
			return 2
		}
		return 1
	case KindArray:
		width := t.elem().MinWidth()
		if width > 0 && t.Len > math.MaxUint64/width {
			return math.MaxUint64
		}
		return t.Len * width
	case KindTuple:
		var total uint64
		for _, inner := range t.Types {
			total = addWidth(total, inner.MinWidth())
		}
		return total
	case KindStruct:
		var total uint64
		for _, node := range t.Nodes {
			total = addWidth(total, node.Type.MinWidth())
		}
		return total
	default:
		return 0
	}
}

func addWidth(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

func (t Type) elem() Type {
	if t.Elem == nil {
		return Empty
	}
	return *t.Elem
}
