// Package parser compiles Anchor style JSON IDL documents into an idl.Program.
package parser

import (
	"bytes"
	"encoding/json"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/code-idl/pkg/idl"
	"github.com/code-payments/code-idl/pkg/idl/schema"
)

var (
	ErrInvalidIDL          = errors.New("invalid idl")
	ErrUnknownType         = errors.New("unknown type")
	ErrTypeNotFound        = errors.New("type not found")
	ErrTypeCycle           = errors.New("type references itself")
	ErrMixedDiscriminators = errors.New("mixed discriminator lengths")
	ErrRoundTrip           = errors.New("program does not survive an encoding round trip")
)

// ParseFile compiles the IDL document at path
func ParseFile(path string) (*idl.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read idl file %s", path)
	}

	program, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse idl file %s", path)
	}
	return program, nil
}

// Parse compiles a JSON IDL document.
//
// Every named type is resolved up front. Types that fail to resolve are
// logged and skipped, so a document only fails when an account or
// instruction actually needs a broken type.
func Parse(data []byte) (*idl.Program, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var doc interface{}
	if err := decoder.Decode(&doc); err != nil {
		return nil, errors.Wrap(ErrInvalidIDL, err.Error())
	}

	root, ok := doc.(map[string]interface{})
	if !ok {
		return nil, errors.Wrap(ErrInvalidIDL, "root is not an object")
	}

	c, err := newCompiler(root)
	if err != nil {
		return nil, err
	}

	accounts, err := objectList(root, "accounts")
	if err != nil {
		return nil, err
	}
	if err := c.mergeAccountTypes(accounts); err != nil {
		return nil, err
	}

	c.resolveAll()

	program := idl.NewProgram(programName(root))

	if program.AccountDiscriminatorLen, err = c.compileAccounts(accounts, program.Accounts); err != nil {
		return nil, err
	}

	instructions, err := objectList(root, "instructions")
	if err != nil {
		return nil, err
	}
	if program.InstructionDiscriminatorLen, err = c.compileInstructions(instructions, program.Instructions); err != nil {
		return nil, err
	}

	if err := verifyRoundTrip(program); err != nil {
		return nil, err
	}
	return program, nil
}

func (c *compiler) compileAccounts(accounts []map[string]interface{}, out map[uint64]schema.Node) (uint8, error) {
	widths := make(map[uint8]struct{})
	for i, account := range accounts {
		name, err := requireString(account, "name")
		if err != nil {
			return 0, errors.Wrapf(err, "account %d", i)
		}

		disc, width, err := accountDiscriminator(name, account)
		if err != nil {
			return 0, errors.Wrapf(err, "account %s", name)
		}
		widths[width] = struct{}{}

		node, err := c.resolveType(name)
		if err != nil {
			return 0, errors.Wrapf(err, "account %s", name)
		}

		if existing, ok := out[disc]; ok {
			c.log.WithFields(logrus.Fields{
				"account":       name,
				"replaces":      existing.Name,
				"discriminator": disc,
			}).Warn("duplicate account discriminator")
		}
		out[disc] = node
	}

	width, err := uniformWidth(widths)
	if err != nil {
		return 0, errors.Wrap(err, "accounts")
	}
	return width, nil
}

func (c *compiler) compileInstructions(instructions []map[string]interface{}, out map[uint64]idl.InstructionDecoder) (uint8, error) {
	widths := make(map[uint8]struct{})
	for i, instruction := range instructions {
		name, err := requireString(instruction, "name")
		if err != nil {
			return 0, errors.Wrapf(err, "instruction %d", i)
		}

		decoder, err := c.compileInstruction(name, instruction)
		if err != nil {
			return 0, errors.Wrapf(err, "instruction %s", name)
		}

		disc, width, err := instructionDiscriminator(name, instruction)
		if err != nil {
			return 0, errors.Wrapf(err, "instruction %s", name)
		}
		widths[width] = struct{}{}

		if existing, ok := out[disc]; ok {
			c.log.WithFields(logrus.Fields{
				"instruction":   name,
				"replaces":      existing.Args.Name,
				"discriminator": disc,
			}).Warn("duplicate instruction discriminator")
		}
		out[disc] = decoder
	}

	width, err := uniformWidth(widths)
	if err != nil {
		return 0, errors.Wrap(err, "instructions")
	}
	return width, nil
}

func (c *compiler) compileInstruction(name string, instruction map[string]interface{}) (idl.InstructionDecoder, error) {
	var decoder idl.InstructionDecoder

	rawAccounts, ok := instruction["accounts"].([]interface{})
	if !ok {
		return decoder, errors.Wrap(ErrInvalidIDL, "accounts is not an array")
	}
	decoder.Accounts = make([]string, 0, len(rawAccounts))
	for i, rawAccount := range rawAccounts {
		account, ok := rawAccount.(map[string]interface{})
		if !ok {
			return decoder, errors.Wrapf(ErrInvalidIDL, "account %d is not an object", i)
		}
		accountName, err := requireString(account, "name")
		if err != nil {
			return decoder, errors.Wrapf(err, "account %d", i)
		}
		decoder.Accounts = append(decoder.Accounts, accountName)
	}

	var args []interface{}
	if rawArgs, ok := instruction["args"]; ok && rawArgs != nil {
		if args, ok = rawArgs.([]interface{}); !ok {
			return decoder, errors.Wrap(ErrInvalidIDL, "args is not an array")
		}
	}

	if len(args) == 0 {
		decoder.Args = schema.NewNode(name, schema.Empty)
		return decoder, nil
	}

	var err error
	decoder.Args, err = c.resolveFields(name, args)
	return decoder, err
}

func uniformWidth(widths map[uint8]struct{}) (uint8, error) {
	switch len(widths) {
	case 0:
		return idl.DefaultDiscriminatorLen, nil
	case 1:
		for width := range widths {
			return width, nil
		}
	}

	var found []int
	for width := range widths {
		found = append(found, int(width))
	}
	sort.Ints(found)
	return 0, errors.Wrapf(ErrMixedDiscriminators, "found widths %v", found)
}

func verifyRoundTrip(program *idl.Program) error {
	encoded, err := program.MarshalBinary()
	if err != nil {
		return errors.Wrap(ErrRoundTrip, err.Error())
	}

	var decoded idl.Program
	if err := decoded.UnmarshalBinary(encoded); err != nil {
		return errors.Wrap(ErrRoundTrip, err.Error())
	}

	if !program.Equal(&decoded) {
		return ErrRoundTrip
	}
	return nil
}

// programName reads the legacy top level name, falling back to the newer
// metadata block
func programName(root map[string]interface{}) string {
	if name, ok := root["name"].(string); ok {
		return name
	}
	if metadata, ok := root["metadata"].(map[string]interface{}); ok {
		if name, ok := metadata["name"].(string); ok {
			return name
		}
	}
	return ""
}

// objectList reads an optional top level array of objects
func objectList(root map[string]interface{}, key string) ([]map[string]interface{}, error) {
	raw, ok := root[key]
	if !ok || raw == nil {
		return nil, nil
	}

	list, ok := raw.([]interface{})
	if !ok {
		return nil, errors.Wrapf(ErrInvalidIDL, "%s is not an array", key)
	}

	res := make([]map[string]interface{}, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, errors.Wrapf(ErrInvalidIDL, "%s entry %d is not an object", key, i)
		}
		res = append(res, obj)
	}
	return res, nil
}

func requireString(obj map[string]interface{}, key string) (string, error) {
	v, ok := obj[key].(string)
	if !ok {
		return "", errors.Wrapf(ErrInvalidIDL, "%s is not a string", key)
	}
	return v, nil
}
