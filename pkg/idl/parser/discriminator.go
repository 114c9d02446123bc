package parser

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"

	"github.com/code-payments/code-idl/pkg/idl"
)

const (
	accountNamespace     = "account"
	instructionNamespace = "global"
)

// AccountDiscriminator is the implicit discriminator of a named account
func AccountDiscriminator(name string) uint64 {
	return sighash(accountNamespace, name)
}

// InstructionDiscriminator is the implicit discriminator of a named
// instruction
func InstructionDiscriminator(name string) uint64 {
	return sighash(instructionNamespace, SnakeCase(name))
}

func sighash(namespace, name string) uint64 {
	h := sha256.Sum256([]byte(namespace + ":" + name))
	return binary.LittleEndian.Uint64(h[:8])
}

func accountDiscriminator(name string, account map[string]interface{}) (uint64, uint8, error) {
	if raw, ok := explicitDiscriminator(account); ok {
		return parseDiscriminator(raw)
	}
	return AccountDiscriminator(name), idl.DefaultDiscriminatorLen, nil
}

func instructionDiscriminator(name string, instruction map[string]interface{}) (uint64, uint8, error) {
	if raw, ok := explicitDiscriminator(instruction); ok {
		return parseDiscriminator(raw)
	}
	return InstructionDiscriminator(name), idl.DefaultDiscriminatorLen, nil
}

func explicitDiscriminator(obj map[string]interface{}) (interface{}, bool) {
	if raw, ok := obj["discriminant"]; ok {
		return raw, true
	}
	raw, ok := obj["discriminator"]
	return raw, ok
}

// parseDiscriminator accepts either {"type": "u8"|"u64", "value": n} or a
// little endian byte array of 1 to 8 bytes
func parseDiscriminator(raw interface{}) (uint64, uint8, error) {
	switch v := raw.(type) {
	case map[string]interface{}:
		var width uint8
		switch typ, _ := v["type"].(string); typ {
		case "u8":
			width = 1
		case "u64":
			width = 8
		default:
			return 0, 0, errors.Wrapf(ErrInvalidIDL, "unsupported discriminator type %q", typ)
		}

		n, ok := v["value"].(json.Number)
		if !ok {
			return 0, 0, errors.Wrap(ErrInvalidIDL, "discriminator value is not a number")
		}
		value, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil {
			return 0, 0, errors.Wrapf(ErrInvalidIDL, "discriminator value %s is not a u64", n)
		}
		if width == 1 && value > 0xff {
			return 0, 0, errors.Wrapf(ErrInvalidIDL, "discriminator value %d does not fit a u8", value)
		}
		return value, width, nil
	case []interface{}:
		if len(v) == 0 || len(v) > idl.MaxDiscriminatorLen {
			return 0, 0, errors.Wrapf(ErrInvalidIDL, "discriminator has %d bytes", len(v))
		}

		var value uint64
		for i, rawByte := range v {
			n, ok := rawByte.(json.Number)
			if !ok {
				return 0, 0, errors.Wrapf(ErrInvalidIDL, "discriminator byte %d is not a number", i)
			}
			b, err := strconv.ParseUint(n.String(), 10, 8)
			if err != nil {
				return 0, 0, errors.Wrapf(ErrInvalidIDL, "discriminator byte %d is not a u8", i)
			}
			value |= b << (8 * i)
		}
		return value, uint8(len(v)), nil
	default:
		return 0, 0, errors.Wrap(ErrInvalidIDL, "discriminator is neither an object nor a byte array")
	}
}

// SnakeCase converts a camel or pascal case name to snake case. An underscore
// is inserted before an upper case letter followed by a lower case letter or
// digit, unless it starts the name, so acronyms stay together:
// NFTMetadataUpdate becomes nft_metadata_update.
func SnakeCase(s string) string {
	runes := []rune(s)

	var sb strings.Builder
	for i, r := range runes {
		if !unicode.IsUpper(r) {
			sb.WriteRune(r)
			continue
		}

		if sb.Len() > 0 && i+1 < len(runes) {
			next := runes[i+1]
			if unicode.IsLower(next) || ('0' <= next && next <= '9') {
				sb.WriteByte('_')
			}
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}
