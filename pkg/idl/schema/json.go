package schema

import (
	"bytes"
	"encoding/json"
)

// MarshalJSON renders the type in its descriptive form. Primitives render as
// their type name, composites as small tagged objects, and structs as an
// object of field name to field type in declared order.
func (t Type) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeType(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalJSON renders the node as {"name":...,"type":...}
func (n Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"name":`)
	if err := writeString(&buf, n.Name); err != nil {
		return nil, err
	}
	buf.WriteString(`,"type":`)
	if err := writeType(&buf, n.Type); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeType(buf *bytes.Buffer, t Type) error {
	switch t.Kind {
	case KindEmpty:
		buf.WriteString("null")
	case KindOption:
		buf.WriteString(`{"type:option":`)
		if err := writeElem(buf, t); err != nil {
			return err
		}
		buf.WriteByte('}')
	case KindArray:
		buf.WriteString(`{"size":`)
		b, _ := json.Marshal(t.Len)
		buf.Write(b)
		buf.WriteString(`,"type":`)
		if err := writeElem(buf, t); err != nil {
			return err
		}
		buf.WriteByte('}')
	case KindVec:
		buf.WriteString(`{"type:vec":`)
		if err := writeElem(buf, t); err != nil {
			return err
		}
		buf.WriteByte('}')
	case KindSmallVec:
		buf.WriteString(`{"type:smallvec":{"len":`)
		if err := writeString(buf, t.LenWidth.String()); err != nil {
			return err
		}
		buf.WriteString(`,"elem":`)
		if err := writeElem(buf, t); err != nil {
			return err
		}
		buf.WriteString("}}")
	case KindTuple:
		buf.WriteString(`{"type:tuple":[`)
		for i, inner := range t.Types {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeType(buf, inner); err != nil {
				return err
			}
		}
		buf.WriteString("]}")
	case KindStruct:
		if err := writeNodes(buf, t.Nodes); err != nil {
			return err
		}
	case KindEnum:
		buf.WriteString(`{"type:enum":`)
		if err := writeNodes(buf, t.Nodes); err != nil {
			return err
		}
		buf.WriteByte('}')
	default:
		return writeString(buf, t.Kind.String())
	}
	return nil
}

func writeElem(buf *bytes.Buffer, t Type) error {
	if t.Elem == nil {
		buf.WriteString("null")
		return nil
	}
	return writeType(buf, *t.Elem)
}

// writeNodes renders nodes as an ordered object of name to type
func writeNodes(buf *bytes.Buffer, nodes []Node) error {
	buf.WriteByte('{')
	for i, node := range nodes {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(buf, node.Name); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := writeType(buf, node.Type); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
