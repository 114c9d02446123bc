package idl

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-idl/pkg/idl/schema"
	"github.com/code-payments/code-idl/pkg/solana/binary"
)

func newTestProgram() *Program {
	p := NewProgram("counter")
	p.AccountDiscriminatorLen = 1
	p.InstructionDiscriminatorLen = 1

	p.Accounts[1] = schema.NewStruct("Counter",
		schema.NewNode("authority", schema.Pubkey),
		schema.NewNode("count", schema.U32),
		schema.NewNode("bump", schema.U8).Hidden(),
	)
	p.Accounts[2] = schema.NewNode("Secret", schema.U8).Hidden()

	p.Instructions[0] = InstructionDecoder{
		Accounts: []string{"counter", "authority"},
		Args: schema.NewStruct("increment",
			schema.NewNode("amount", schema.U32),
		),
	}
	p.Instructions[1] = InstructionDecoder{
		Args: schema.NewNode("reset", schema.Empty),
	}
	return p
}

func TestDiscriminator(t *testing.T) {
	p := NewProgram("test")

	data := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}
	disc, err := p.AccountDiscriminator(data)
	require.NoError(t, err)
	assert.EqualValues(t, 0x0807060504030201, disc)

	p.InstructionDiscriminatorLen = 2
	disc, err = p.InstructionDiscriminator(data)
	require.NoError(t, err)
	assert.EqualValues(t, 0x0201, disc)

	p.InstructionDiscriminatorLen = 0
	_, err = p.InstructionDiscriminator(data)
	assert.ErrorIs(t, err, ErrInvalidDiscriminator)

	_, err = p.AccountDiscriminator(data[:7])
	assert.ErrorIs(t, err, ErrDataTooShort)

	p.AccountDiscriminatorLen = 9
	_, err = p.AccountDiscriminator(data)
	assert.ErrorIs(t, err, ErrInvalidDiscriminator)
}

func TestDecodeAccount(t *testing.T) {
	p := newTestProgram()

	w := binary.NewWriter()
	w.PutUint8(1)
	w.PutBytes(make([]byte, 32))
	w.PutUint32(42)
	w.PutUint8(254)

	result, err := p.DecodeAccount(w.Bytes(), false)
	require.NoError(t, err)
	assert.Equal(t, "Counter", result.Name)

	rendered, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"name": "Counter",
		"schema": {"authority": "pubkey", "count": "u32", "bump": "u8"},
		"value": {"authority": "11111111111111111111111111111111", "count": 42}
	}`, string(rendered))

	result, err = p.DecodeAccount(w.Bytes(), true)
	require.NoError(t, err)
	rendered, err = json.Marshal(result.Value)
	require.NoError(t, err)
	assert.Equal(t, `{"authority":"11111111111111111111111111111111","count":42,"bump":254}`, string(rendered))
}

func TestDecodeAccount_Errors(t *testing.T) {
	p := newTestProgram()

	_, err := p.DecodeAccount(nil, false)
	assert.ErrorIs(t, err, ErrDataTooShort)

	_, err = p.DecodeAccount([]byte{9}, false)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, err = p.DecodeAccount([]byte{2, 1}, false)
	assert.ErrorIs(t, err, ErrHiddenSchema)

	_, err = p.DecodeAccount([]byte{1, 0, 0}, false)
	assert.ErrorIs(t, err, binary.ErrUnexpectedEOF)
}

func TestDecodeInstruction(t *testing.T) {
	p := newTestProgram()

	result, err := p.DecodeInstruction([]byte{0, 5, 0, 0, 0}, []string{"addr1", "addr2", "addr3"}, false)
	require.NoError(t, err)
	assert.Equal(t, "increment", result.Name)
	assert.Equal(t, []string{"counter", "authority", "Account 3"}, result.Accounts)
	assert.Equal(t, map[string]string{
		"counter":   "addr1",
		"authority": "addr2",
		"Account 3": "addr3",
	}, result.AccountAddresses)

	rendered, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"name": "increment",
		"schema": {"amount": "u32"},
		"accounts": ["counter", "authority", "Account 3"],
		"value": {"amount": 5},
		"account_addresses": {"counter": "addr1", "authority": "addr2", "Account 3": "addr3"}
	}`, string(rendered))

	result, err = p.DecodeInstruction([]byte{1}, nil, false)
	require.NoError(t, err)
	assert.Equal(t, "reset", result.Name)
	assert.Empty(t, result.Accounts)
	assert.Nil(t, result.AccountAddresses)

	rendered, err = json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"reset","schema":null,"accounts":[],"value":""}`, string(rendered))
}

func TestDecodeInstruction_Errors(t *testing.T) {
	p := newTestProgram()

	_, err := p.DecodeInstruction(nil, nil, false)
	assert.ErrorIs(t, err, ErrDataTooShort)

	_, err = p.DecodeInstruction([]byte{7}, nil, false)
	assert.ErrorIs(t, err, ErrInstructionNotFound)

	_, err = p.DecodeInstruction([]byte{0, 5}, nil, false)
	assert.ErrorIs(t, err, binary.ErrUnexpectedEOF)

	p.Instructions[2] = InstructionDecoder{Args: schema.NewNode("hidden", schema.Empty).Hidden()}
	_, err = p.DecodeInstruction([]byte{2}, nil, false)
	assert.ErrorIs(t, err, ErrHiddenSchema)
}

func TestProgram_RoundTrip(t *testing.T) {
	expected := newTestProgram()

	encoded, err := expected.MarshalBinary()
	require.NoError(t, err)

	var actual Program
	require.NoError(t, actual.UnmarshalBinary(encoded))
	assert.True(t, expected.Equal(&actual))

	reencoded, err := actual.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, encoded, reencoded)

	empty := NewProgram("")
	encoded, err = empty.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0, 8, 8, 0, 0, 0, 0, 0, 0, 0, 0}, encoded)
	require.NoError(t, actual.UnmarshalBinary(encoded))
	assert.True(t, empty.Equal(&actual))
}

func TestProgram_UnmarshalErrors(t *testing.T) {
	var actual Program

	encoded, err := newTestProgram().MarshalBinary()
	require.NoError(t, err)

	for i := 0; i < len(encoded); i++ {
		assert.Error(t, actual.UnmarshalBinary(encoded[:i]))
	}

	assert.ErrorIs(t, actual.UnmarshalBinary(append(encoded, 0)), schema.ErrTrailingData)

	assert.ErrorIs(t, actual.UnmarshalBinary([]byte{0, 0, 0, 0, 9, 8, 0, 0, 0, 0, 0, 0, 0, 0}), ErrInvalidDiscriminator)
	assert.ErrorIs(t, actual.UnmarshalBinary([]byte{0, 0, 0, 0, 0, 8, 0, 0, 0, 0, 0, 0, 0, 0}), ErrInvalidDiscriminator)
	assert.ErrorIs(t, actual.UnmarshalBinary([]byte{0, 0, 0, 0, 8, 0, 0, 0, 0, 0, 0, 0, 0, 0}), ErrInvalidDiscriminator)

	w := binary.NewWriter()
	w.PutString("dup")
	w.PutUint8(1)
	w.PutUint8(1)
	w.PutUint32(2)
	for i := 0; i < 2; i++ {
		w.PutUint64(1)
		require.NoError(t, schema.EncodeNode(w, schema.NewNode("A", schema.U8)))
	}
	w.PutUint32(0)
	assert.ErrorIs(t, actual.UnmarshalBinary(w.Bytes()), ErrDuplicateDiscriminator)
}

func TestProgram_Equal(t *testing.T) {
	a := newTestProgram()
	b := newTestProgram()
	assert.True(t, a.Equal(b))

	b.Instructions[0] = InstructionDecoder{
		Accounts: []string{"counter"},
		Args:     b.Instructions[0].Args,
	}
	assert.False(t, a.Equal(b))

	b = newTestProgram()
	b.Accounts[1] = b.Accounts[1].Hidden()
	assert.False(t, a.Equal(b))

	assert.False(t, a.Equal(nil))
}

func TestProgram_Validate(t *testing.T) {
	p := NewProgram("widths")
	require.NoError(t, p.Validate())

	for _, width := range []uint8{1, 4, 8} {
		p.AccountDiscriminatorLen = width
		p.InstructionDiscriminatorLen = width
		assert.NoError(t, p.Validate())
	}

	for _, width := range []uint8{0, 9, 255} {
		p.AccountDiscriminatorLen = width
		p.InstructionDiscriminatorLen = DefaultDiscriminatorLen
		assert.ErrorIs(t, p.Validate(), ErrInvalidDiscriminator)

		p.AccountDiscriminatorLen = DefaultDiscriminatorLen
		p.InstructionDiscriminatorLen = width
		assert.ErrorIs(t, p.Validate(), ErrInvalidDiscriminator)
	}
}

func TestDecodeInstruction_DuplicateRoleNames(t *testing.T) {
	p := NewProgram("dup_roles")
	p.InstructionDiscriminatorLen = 1
	p.Instructions[0] = InstructionDecoder{
		Accounts: []string{"payer", "payer (2)", "payer", "payer"},
		Args:     schema.NewNode("transfer", schema.Empty),
	}

	result, err := p.DecodeInstruction([]byte{0}, []string{"a1", "a2", "a3", "a4"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"payer", "payer (2)", "payer", "payer"}, result.Accounts)
	assert.Equal(t, map[string]string{
		"payer":     "a1",
		"payer (2)": "a2",
		"payer (3)": "a3",
		"payer (4)": "a4",
	}, result.AccountAddresses)
}
