package parser

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/code-idl/pkg/idl/schema"
)

var primitives = map[string]schema.Type{
	"string": schema.String,
	"i8":     schema.I8,
	"u8":     schema.U8,
	"i16":    schema.I16,
	"u16":    schema.U16,
	"i32":    schema.I32,
	"u32":    schema.U32,
	"i64":    schema.I64,
	"u64":    schema.U64,
	"i128":   schema.I128,
	"u128":   schema.U128,
	"f32":    schema.F32,
	"f64":    schema.F64,
	"bool":   schema.Bool,
}

// compiler resolves the named types of a single document. It isn't safe for
// concurrent use, and each Parse call gets its own.
type compiler struct {
	log *logrus.Entry

	types    map[string]map[string]interface{}
	resolved map[string]schema.Node

	// names currently being resolved, in order, to detect cycles
	resolving []string
}

func newCompiler(root map[string]interface{}) (*compiler, error) {
	rawTypes, ok := root["types"].([]interface{})
	if !ok {
		return nil, errors.Wrap(ErrInvalidIDL, "types is not an array")
	}

	c := &compiler{
		log:      logrus.StandardLogger().WithField("type", "idl/parser"),
		types:    make(map[string]map[string]interface{}),
		resolved: make(map[string]schema.Node),
	}

	for i, rawType := range rawTypes {
		def, ok := rawType.(map[string]interface{})
		if !ok {
			return nil, errors.Wrapf(ErrInvalidIDL, "type %d is not an object", i)
		}
		name, err := requireString(def, "name")
		if err != nil {
			return nil, errors.Wrapf(err, "type %d", i)
		}
		c.types[name] = def
	}

	return c, nil
}

// mergeAccountTypes adds legacy account entries carrying an inline type
// definition. Existing definitions win.
func (c *compiler) mergeAccountTypes(accounts []map[string]interface{}) error {
	for i, account := range accounts {
		name, err := requireString(account, "name")
		if err != nil {
			return errors.Wrapf(err, "account %d", i)
		}

		if _, ok := account["type"]; !ok {
			continue
		}
		if _, ok := c.types[name]; !ok {
			c.types[name] = account
		}
	}
	return nil
}

// resolveAll resolves every named type, logging and skipping the ones that
// fail
func (c *compiler) resolveAll() {
	names := make([]string, 0, len(c.types))
	for name := range c.types {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := c.resolveType(name); err != nil {
			c.log.WithError(err).WithField("type_name", name).Warn("skipping unresolvable type")
		}
	}
}

// resolveType resolves a named type definition into a node named after it
func (c *compiler) resolveType(name string) (schema.Node, error) {
	if node, ok := c.resolved[name]; ok {
		return node, nil
	}

	for i, inProgress := range c.resolving {
		if inProgress == name {
			chain := append(append([]string{}, c.resolving[i:]...), name)
			return schema.Node{}, errors.Wrap(ErrTypeCycle, strings.Join(chain, " -> "))
		}
	}

	def, ok := c.types[name]
	if !ok {
		return schema.Node{}, errors.Wrap(ErrTypeNotFound, name)
	}

	c.resolving = append(c.resolving, name)
	defer func() {
		c.resolving = c.resolving[:len(c.resolving)-1]
	}()

	node, err := c.resolveDefinition(name, def)
	if err != nil {
		return schema.Node{}, errors.Wrapf(err, "type %s", name)
	}

	c.resolved[name] = node
	return node, nil
}

func (c *compiler) resolveDefinition(name string, def map[string]interface{}) (schema.Node, error) {
	typ, ok := def["type"].(map[string]interface{})
	if !ok {
		return schema.Node{}, errors.Wrap(ErrInvalidIDL, "type is not an object")
	}

	kind, err := requireString(typ, "kind")
	if err != nil {
		return schema.Node{}, err
	}

	switch kind {
	case "struct":
		fields, ok := typ["fields"].([]interface{})
		if !ok {
			return schema.Node{}, errors.Wrap(ErrInvalidIDL, "fields is not an array")
		}
		return c.resolveFields(name, fields)
	case "enum":
		variants, ok := typ["variants"].([]interface{})
		if !ok {
			return schema.Node{}, errors.Wrap(ErrInvalidIDL, "variants is not an array")
		}

		nodes := make([]schema.Node, 0, len(variants))
		for i, rawVariant := range variants {
			variant, ok := rawVariant.(map[string]interface{})
			if !ok {
				return schema.Node{}, errors.Wrapf(ErrInvalidIDL, "variant %d is not an object", i)
			}
			variantName, err := requireString(variant, "name")
			if err != nil {
				return schema.Node{}, errors.Wrapf(err, "variant %d", i)
			}

			rawFields, ok := variant["fields"]
			if !ok {
				nodes = append(nodes, schema.NewNode(variantName, schema.Empty))
				continue
			}

			fields, ok := rawFields.([]interface{})
			if !ok {
				return schema.Node{}, errors.Wrapf(ErrInvalidIDL, "fields of variant %s is not an array", variantName)
			}
			payload, err := c.resolveFields(variantName, fields)
			if err != nil {
				return schema.Node{}, errors.Wrapf(err, "variant %s", variantName)
			}
			nodes = append(nodes, payload)
		}
		return schema.NewNode(name, schema.Enum(nodes...)), nil
	default:
		return schema.Node{}, errors.Wrapf(ErrUnknownType, "kind %q", kind)
	}
}

// resolveFields resolves a field list into a struct node
func (c *compiler) resolveFields(name string, rawFields []interface{}) (schema.Node, error) {
	fields := make([]schema.Node, 0, len(rawFields))
	for i, rawField := range rawFields {
		field, err := c.resolveField(rawField)
		if err != nil {
			return schema.Node{}, errors.Wrapf(err, "field %d", i)
		}
		fields = append(fields, field)
	}
	return schema.NewStruct(name, fields...), nil
}

// resolveField resolves a named field object. Anything else, including tuple
// style entries that are bare types, becomes an anonymous field.
func (c *compiler) resolveField(rawField interface{}) (schema.Node, error) {
	field, ok := rawField.(map[string]interface{})
	if !ok {
		typ, err := c.resolveFieldType(rawField)
		return schema.NewNode("", typ), err
	}

	rawType, ok := field["type"]
	if !ok {
		typ, err := c.resolveFieldType(rawField)
		return schema.NewNode("", typ), err
	}

	name, err := requireString(field, "name")
	if err != nil {
		return schema.Node{}, err
	}

	typ, err := c.resolveFieldType(rawType)
	if err != nil {
		return schema.Node{}, errors.Wrapf(err, "field %s", name)
	}

	node := schema.NewNode(name, typ)
	if hidden, _ := field["hidden"].(bool); hidden {
		node = node.Hidden()
	}
	return node, nil
}

func (c *compiler) resolveFieldType(raw interface{}) (schema.Type, error) {
	switch v := raw.(type) {
	case string:
		return parseRawType(v)
	case map[string]interface{}:
		if inner, ok := v["vec"]; ok {
			elem, err := c.resolveFieldType(inner)
			if err != nil {
				return schema.Type{}, errors.Wrap(err, "vec")
			}
			return schema.Vec(elem), nil
		}

		if inner, ok := v["option"]; ok {
			elem, err := c.resolveFieldType(inner)
			if err != nil {
				return schema.Type{}, errors.Wrap(err, "option")
			}
			return schema.Option(elem), nil
		}

		if inner, ok := v["array"]; ok {
			parts, ok := inner.([]interface{})
			if !ok || len(parts) != 2 {
				return schema.Type{}, errors.Wrap(ErrInvalidIDL, "array is not a [type, size] pair")
			}
			size, err := parseSize(parts[1])
			if err != nil {
				return schema.Type{}, errors.Wrap(err, "array size")
			}
			elem, err := c.resolveFieldType(parts[0])
			if err != nil {
				return schema.Type{}, errors.Wrap(err, "array")
			}
			return schema.Array(size, elem), nil
		}

		if inner, ok := v["defined"]; ok {
			name, ok := inner.(string)
			if !ok {
				// newer idls nest the name alongside generics
				if obj, isObj := inner.(map[string]interface{}); isObj {
					name, ok = obj["name"].(string)
				}
			}
			if !ok {
				return schema.Type{}, errors.Wrap(ErrInvalidIDL, "defined type is not a string")
			}
			return c.resolveDefined(name)
		}

		return schema.Type{}, errors.Wrap(ErrUnknownType, "unrecognized field type object")
	default:
		return schema.Type{}, errors.Wrapf(ErrInvalidIDL, "field type is a %T", raw)
	}
}

func (c *compiler) resolveDefined(name string) (schema.Type, error) {
	if inner, ok := smallVecParams(name); ok {
		return c.resolveSmallVec(inner)
	}

	node, err := c.resolveType(name)
	if err != nil {
		return schema.Type{}, err
	}
	return node.Type, nil
}

// resolveSmallVec resolves the parameters of SmallVec<LenWidth,Elem>
func (c *compiler) resolveSmallVec(params string) (schema.Type, error) {
	parts := strings.Split(params, ",")
	if len(parts) != 2 {
		return schema.Type{}, errors.Wrapf(ErrInvalidIDL, "smallvec takes 2 parameters, got %d", len(parts))
	}

	var width schema.SmallVecLen
	switch lenWidth := strings.TrimSpace(parts[0]); lenWidth {
	case "u8":
		width = schema.SmallVecLenU8
	case "u16":
		width = schema.SmallVecLenU16
	default:
		return schema.Type{}, errors.Wrapf(ErrInvalidIDL, "unsupported smallvec length %q", lenWidth)
	}

	elemName := strings.TrimSpace(parts[1])
	if strings.EqualFold(elemName, "pubkey") || strings.EqualFold(elemName, "publickey") {
		return schema.SmallVec(width, schema.Pubkey), nil
	}
	if elem, ok := primitives[elemName]; ok {
		return schema.SmallVec(width, elem), nil
	}

	node, err := c.resolveType(elemName)
	if err != nil {
		return schema.Type{}, errors.Wrap(err, "smallvec element")
	}
	return schema.SmallVec(width, node.Type), nil
}

func smallVecParams(name string) (string, bool) {
	if !strings.HasPrefix(name, "SmallVec<") || !strings.HasSuffix(name, ">") {
		return "", false
	}
	return name[len("SmallVec<") : len(name)-1], true
}

// parseRawType parses a primitive type name or the "[T; N]" array shorthand
func parseRawType(name string) (schema.Type, error) {
	if strings.HasPrefix(name, "[") && strings.HasSuffix(name, "]") {
		// The size follows the last separator, so the element may itself be
		// an array
		inner := name[1 : len(name)-1]
		sep := strings.LastIndex(inner, ";")
		if sep < 0 {
			return schema.Type{}, errors.Wrapf(ErrInvalidIDL, "malformed array type %q", name)
		}

		size, err := strconv.ParseUint(strings.TrimSpace(inner[sep+1:]), 10, 64)
		if err != nil {
			return schema.Type{}, errors.Wrapf(ErrInvalidIDL, "malformed array size in %q", name)
		}

		elem, err := parseRawType(strings.TrimSpace(inner[:sep]))
		if err != nil {
			return schema.Type{}, err
		}
		return schema.Array(size, elem), nil
	}

	switch name {
	case "pubkey", "publicKey":
		return schema.Pubkey, nil
	case "bytes":
		return schema.Vec(schema.U8), nil
	case "bytes_remaining", "rest":
		return schema.RemainingBytes, nil
	}

	if typ, ok := primitives[name]; ok {
		return typ, nil
	}
	return schema.Type{}, errors.Wrapf(ErrUnknownType, "%q", name)
}

func parseSize(raw interface{}) (uint64, error) {
	n, ok := raw.(json.Number)
	if !ok {
		return 0, errors.Wrapf(ErrInvalidIDL, "%v is not a number", raw)
	}

	size, err := strconv.ParseUint(n.String(), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidIDL, "%s is not an unsigned integer", n)
	}
	return size, nil
}
