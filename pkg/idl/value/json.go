package value

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// JSON rendering. 64 and 128 bit integers and floats are rendered as decimal
// strings since JSON numbers can't hold them without loss.

func (Empty) MarshalJSON() ([]byte, error) {
	return []byte(`""`), nil
}

func (v I64) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(v), 10))
}

func (v U64) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(v), 10))
}

func (v I128) MarshalJSON() ([]byte, error) {
	if v.Int == nil {
		return []byte(`"0"`), nil
	}
	return json.Marshal(v.Int.String())
}

func (v U128) MarshalJSON() ([]byte, error) {
	if v.Int == nil {
		return []byte(`"0"`), nil
	}
	return json.Marshal(v.Int.String())
}

func (v F32) MarshalJSON() ([]byte, error) {
	return json.Marshal(formatFloat(float64(v), 32))
}

func (v F64) MarshalJSON() ([]byte, error) {
	return json.Marshal(formatFloat(float64(v), 64))
}

func (v Option) MarshalJSON() ([]byte, error) {
	if v.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v.Value)
}

func (v Array) MarshalJSON() ([]byte, error) {
	return marshalList(v)
}

func (v Tuple) MarshalJSON() ([]byte, error) {
	return marshalList(v)
}

func (v Vec) MarshalJSON() ([]byte, error) {
	return marshalList(v)
}

// MarshalJSON renders the struct as an object with keys in field order
func (v Struct) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range v {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(field.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		val, err := marshalValue(field.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON renders a unit variant as its bare name and any other variant as
// its named node
func (v Enum) MarshalJSON() ([]byte, error) {
	if _, ok := v.Variant.Value.(Empty); ok || v.Variant.Value == nil {
		return json.Marshal(v.Variant.Name)
	}
	return json.Marshal(v.Variant)
}

// MarshalJSON renders the buffer as an array of byte values
func (v Bytes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, b := range v {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Itoa(int(b)))
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func (v Node) MarshalJSON() ([]byte, error) {
	name, err := json.Marshal(v.Name)
	if err != nil {
		return nil, err
	}

	val, err := marshalValue(v.Value)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"name":`)
	buf.Write(name)
	buf.WriteString(`,"value":`)
	buf.Write(val)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalList(values []TypedValue) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range values {
		if i > 0 {
			buf.WriteByte(',')
		}

		val, err := marshalValue(v)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalValue(v TypedValue) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func formatFloat(v float64, bitSize int) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'f', -1, bitSize)
}
