package idl

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/code-payments/code-idl/pkg/idl/schema"
	"github.com/code-payments/code-idl/pkg/solana/binary"
)

var ErrDuplicateDiscriminator = errors.New("duplicate discriminator")

// MarshalBinary encodes the program in its persisted form. Entries are written
// in discriminator order so equal programs always encode to the same bytes.
func (p *Program) MarshalBinary() ([]byte, error) {
	w := binary.NewWriter()

	w.PutString(p.Name)
	w.PutUint8(p.AccountDiscriminatorLen)
	w.PutUint8(p.InstructionDiscriminatorLen)

	accounts := sortedKeys(p.Accounts)
	w.PutUint32(uint32(len(accounts)))
	for _, disc := range accounts {
		w.PutUint64(disc)
		if err := schema.EncodeNode(w, p.Accounts[disc]); err != nil {
			return nil, errors.Wrapf(err, "failed to encode account %d", disc)
		}
	}

	instructions := sortedKeys(p.Instructions)
	w.PutUint32(uint32(len(instructions)))
	for _, disc := range instructions {
		decoder := p.Instructions[disc]

		w.PutUint64(disc)
		w.PutUint32(uint32(len(decoder.Accounts)))
		for _, name := range decoder.Accounts {
			w.PutString(name)
		}
		if err := schema.EncodeNode(w, decoder.Args); err != nil {
			return nil, errors.Wrapf(err, "failed to encode instruction %d", disc)
		}
	}

	return w.Bytes(), nil
}

// UnmarshalBinary decodes a program written by MarshalBinary
func (p *Program) UnmarshalBinary(data []byte) error {
	r := binary.NewReader(data)

	name, err := r.GetString()
	if err != nil {
		return errors.Wrap(err, "failed to read program name")
	}

	decoded := NewProgram(name)
	if decoded.AccountDiscriminatorLen, err = r.GetUint8(); err != nil {
		return errors.Wrap(err, "failed to read account discriminator length")
	}
	if decoded.InstructionDiscriminatorLen, err = r.GetUint8(); err != nil {
		return errors.Wrap(err, "failed to read instruction discriminator length")
	}
	if err := decoded.Validate(); err != nil {
		return err
	}

	count, err := r.GetUint32()
	if err != nil {
		return errors.Wrap(err, "failed to read account count")
	}
	for i := uint32(0); i < count; i++ {
		disc, err := r.GetUint64()
		if err != nil {
			return errors.Wrapf(err, "failed to read account %d discriminator", i)
		}
		node, err := schema.DecodeNode(r)
		if err != nil {
			return errors.Wrapf(err, "failed to decode account %d", disc)
		}
		if _, ok := decoded.Accounts[disc]; ok {
			return errors.Wrapf(ErrDuplicateDiscriminator, "account %d", disc)
		}
		decoded.Accounts[disc] = node
	}

	if count, err = r.GetUint32(); err != nil {
		return errors.Wrap(err, "failed to read instruction count")
	}
	for i := uint32(0); i < count; i++ {
		disc, err := r.GetUint64()
		if err != nil {
			return errors.Wrapf(err, "failed to read instruction %d discriminator", i)
		}

		numAccounts, err := r.GetUint32()
		if err != nil {
			return errors.Wrapf(err, "failed to read instruction %d account count", disc)
		}

		var decoder InstructionDecoder
		for j := uint32(0); j < numAccounts; j++ {
			accountName, err := r.GetString()
			if err != nil {
				return errors.Wrapf(err, "failed to read instruction %d account %d", disc, j)
			}
			decoder.Accounts = append(decoder.Accounts, accountName)
		}

		if decoder.Args, err = schema.DecodeNode(r); err != nil {
			return errors.Wrapf(err, "failed to decode instruction %d", disc)
		}
		if _, ok := decoded.Instructions[disc]; ok {
			return errors.Wrapf(ErrDuplicateDiscriminator, "instruction %d", disc)
		}
		decoded.Instructions[disc] = decoder
	}

	if r.Remaining() > 0 {
		return errors.Wrapf(schema.ErrTrailingData, "%d bytes", r.Remaining())
	}

	*p = *decoded
	return nil
}

func sortedKeys[V any](m map[uint64]V) []uint64 {
	keys := make([]uint64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
