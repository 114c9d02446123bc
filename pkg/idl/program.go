// Package idl holds the compiled form of a program's interface description:
// the discriminator keyed account and instruction schemas used to decode raw
// account data and instruction data.
package idl

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/code-payments/code-idl/pkg/idl/schema"
	"github.com/code-payments/code-idl/pkg/solana/binary"
)

const (
	// MinDiscriminatorLen is the narrowest discriminator. A zero width would
	// map every buffer to the same key.
	MinDiscriminatorLen = 1

	// MaxDiscriminatorLen is the widest discriminator that fits in the uint64
	// lookup key
	MaxDiscriminatorLen = 8

	// DefaultDiscriminatorLen is the Anchor discriminator width
	DefaultDiscriminatorLen = 8
)

var (
	ErrDataTooShort         = errors.New("data is shorter than the discriminator")
	ErrAccountNotFound      = errors.New("account discriminator not found")
	ErrInstructionNotFound  = errors.New("instruction discriminator not found")
	ErrHiddenSchema         = errors.New("top level schema is hidden")
	ErrInvalidDiscriminator = errors.New("invalid discriminator length")
)

// InstructionDecoder describes a single instruction: the role names of its
// accounts, in order, and the schema of its argument payload
type InstructionDecoder struct {
	Accounts []string
	Args     schema.Node
}

// Program is the compiled, immutable index of a program's accounts and
// instructions. It's safe for concurrent use once built.
type Program struct {
	Name string

	AccountDiscriminatorLen     uint8
	InstructionDiscriminatorLen uint8

	Accounts     map[uint64]schema.Node
	Instructions map[uint64]InstructionDecoder
}

// NewProgram returns an empty program using default discriminator widths
func NewProgram(name string) *Program {
	return &Program{
		Name:                        name,
		AccountDiscriminatorLen:     DefaultDiscriminatorLen,
		InstructionDiscriminatorLen: DefaultDiscriminatorLen,
		Accounts:                    make(map[uint64]schema.Node),
		Instructions:                make(map[uint64]InstructionDecoder),
	}
}

// Validate checks the discriminator widths are within 1 to 8 bytes
func (p *Program) Validate() error {
	if !validDiscriminatorLen(p.AccountDiscriminatorLen) {
		return errors.Wrapf(ErrInvalidDiscriminator, "account discriminator is %d bytes", p.AccountDiscriminatorLen)
	}
	if !validDiscriminatorLen(p.InstructionDiscriminatorLen) {
		return errors.Wrapf(ErrInvalidDiscriminator, "instruction discriminator is %d bytes", p.InstructionDiscriminatorLen)
	}
	return nil
}

// AccountDiscriminator extracts the account discriminator key from data
func (p *Program) AccountDiscriminator(data []byte) (uint64, error) {
	return discriminator(data, p.AccountDiscriminatorLen)
}

// InstructionDiscriminator extracts the instruction discriminator key from data
func (p *Program) InstructionDiscriminator(data []byte) (uint64, error) {
	return discriminator(data, p.InstructionDiscriminatorLen)
}

// DecodeAccount decodes account data, including its discriminator prefix
func (p *Program) DecodeAccount(data []byte, showHidden bool) (*AccountResult, error) {
	disc, err := p.AccountDiscriminator(data)
	if err != nil {
		return nil, err
	}

	node, ok := p.Accounts[disc]
	if !ok {
		return nil, errors.Wrapf(ErrAccountNotFound, "discriminator %d", disc)
	}

	decoded, err := node.Decode(binary.NewReader(data[p.AccountDiscriminatorLen:]), showHidden)
	if err != nil {
		return nil, err
	}
	if decoded == nil {
		return nil, errors.Wrapf(ErrHiddenSchema, "account %s", node.Name)
	}

	return &AccountResult{
		Name:   node.Name,
		Schema: node.Type,
		Value:  decoded.Value,
	}, nil
}

// DecodeInstruction decodes instruction data, including its discriminator
// prefix. The addresses of the instruction's accounts are paired positionally
// with their declared role names.
func (p *Program) DecodeInstruction(data []byte, accounts []string, showHidden bool) (*InstructionResult, error) {
	disc, err := p.InstructionDiscriminator(data)
	if err != nil {
		return nil, err
	}

	decoder, ok := p.Instructions[disc]
	if !ok {
		return nil, errors.Wrapf(ErrInstructionNotFound, "discriminator %d", disc)
	}

	decoded, err := decoder.Args.Decode(binary.NewReader(data[p.InstructionDiscriminatorLen:]), showHidden)
	if err != nil {
		return nil, err
	}
	if decoded == nil {
		return nil, errors.Wrapf(ErrHiddenSchema, "instruction %s", decoder.Args.Name)
	}

	names := decoder.AccountNames(len(accounts))
	return &InstructionResult{
		Name:             decoder.Args.Name,
		Schema:           decoder.Args.Type,
		Accounts:         names,
		AccountAddresses: accountAddresses(names, accounts),
		Value:            decoded.Value,
	}, nil
}

// AccountNames returns n account names, using the declared role name where
// there is one and a numbered placeholder otherwise
func (d InstructionDecoder) AccountNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		if i < len(d.Accounts) {
			names[i] = d.Accounts[i]
		} else {
			names[i] = fmt.Sprintf("Account %d", i+1)
		}
	}
	return names
}

func (d InstructionDecoder) Equal(other InstructionDecoder) bool {
	if len(d.Accounts) != len(other.Accounts) {
		return false
	}
	for i := range d.Accounts {
		if d.Accounts[i] != other.Accounts[i] {
			return false
		}
	}
	return d.Args.Equal(other.Args)
}

// Equal reports whether two programs decode identically
func (p *Program) Equal(other *Program) bool {
	if p == nil || other == nil {
		return p == other
	}

	if p.Name != other.Name ||
		p.AccountDiscriminatorLen != other.AccountDiscriminatorLen ||
		p.InstructionDiscriminatorLen != other.InstructionDiscriminatorLen ||
		len(p.Accounts) != len(other.Accounts) ||
		len(p.Instructions) != len(other.Instructions) {
		return false
	}

	for disc, node := range p.Accounts {
		otherNode, ok := other.Accounts[disc]
		if !ok || !node.Equal(otherNode) {
			return false
		}
	}

	for disc, decoder := range p.Instructions {
		otherDecoder, ok := other.Instructions[disc]
		if !ok || !decoder.Equal(otherDecoder) {
			return false
		}
	}

	return true
}

func discriminator(data []byte, width uint8) (uint64, error) {
	if !validDiscriminatorLen(width) {
		return 0, errors.Wrapf(ErrInvalidDiscriminator, "%d bytes", width)
	}
	if len(data) < int(width) {
		return 0, errors.Wrapf(ErrDataTooShort, "have %d bytes, need %d", len(data), width)
	}

	var disc uint64
	for i := 0; i < int(width); i++ {
		disc |= uint64(data[i]) << (8 * i)
	}
	return disc, nil
}

func validDiscriminatorLen(width uint8) bool {
	return width >= MinDiscriminatorLen && width <= MaxDiscriminatorLen
}

// accountAddresses maps role names to addresses. A role name declared more
// than once is keyed with its occurrence number from the second time on, as
// in "payer (2)".
func accountAddresses(names, addresses []string) map[string]string {
	if len(addresses) == 0 {
		return nil
	}

	res := make(map[string]string, len(addresses))
	seen := make(map[string]int, len(addresses))
	for i, address := range addresses {
		key := names[i]
		seen[key]++
		for n := seen[key]; ; n++ {
			if _, taken := res[key]; !taken {
				break
			}
			key = fmt.Sprintf("%s (%d)", names[i], n)
		}
		res[key] = address
	}
	return res
}
