package parser

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-idl/pkg/idl"
	"github.com/code-payments/code-idl/pkg/idl/schema"
	"github.com/code-payments/code-idl/pkg/solana/binary"
)

const smallVecIDL = `{
  "version": "1.0.0",
  "name": "test_prog",
  "instructions": [
    {
      "name": "foo",
      "accounts": [{"name": "a", "isMut": false, "isSigner": false}],
      "args": [
        { "name": "msg", "type": { "defined": "SmallVec<u8,Pubkey>" } },
        { "name": "ixs", "type": { "defined": "SmallVec<u8,CompiledInstruction>" } }
      ]
    }
  ],
  "types": [
    {
      "name": "CompiledInstruction",
      "type": {
        "kind": "struct",
        "fields": [
          { "name": "programIdIndex", "type": "u8" },
          { "name": "accountIndexes", "type": { "defined": "SmallVec<u8,u8>" } },
          { "name": "data", "type": { "defined": "SmallVec<u16,u8>" } }
        ]
      }
    }
  ]
}`

func onlyInstruction(t *testing.T, program *idl.Program) idl.InstructionDecoder {
	require.Len(t, program.Instructions, 1)
	for _, decoder := range program.Instructions {
		return decoder
	}
	return idl.InstructionDecoder{}
}

func TestParse_SmallVec(t *testing.T) {
	program, err := Parse([]byte(smallVecIDL))
	require.NoError(t, err)

	assert.Equal(t, "test_prog", program.Name)
	assert.EqualValues(t, 8, program.InstructionDiscriminatorLen)
	assert.EqualValues(t, 8, program.AccountDiscriminatorLen)
	assert.Empty(t, program.Accounts)

	decoder, ok := program.Instructions[InstructionDiscriminator("foo")]
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, decoder.Accounts)

	compiledInstruction := schema.Struct(
		schema.NewNode("programIdIndex", schema.U8),
		schema.NewNode("accountIndexes", schema.SmallVec(schema.SmallVecLenU8, schema.U8)),
		schema.NewNode("data", schema.SmallVec(schema.SmallVecLenU16, schema.U8)),
	)
	expected := schema.NewStruct("foo",
		schema.NewNode("msg", schema.SmallVec(schema.SmallVecLenU8, schema.Pubkey)),
		schema.NewNode("ixs", schema.SmallVec(schema.SmallVecLenU8, compiledInstruction)),
	)
	assert.True(t, expected.Equal(decoder.Args))
}

func TestParse_BracketArrays(t *testing.T) {
	program, err := Parse([]byte(`{
	  "name": "arr_prog",
	  "instructions": [
	    {
	      "name": "bar",
	      "accounts": [],
	      "args": [
	        { "name": "three", "type": "[u8; 3]" },
	        { "name": "twoKeys", "type": "[publicKey; 2]" },
	        { "name": "nested", "type": "[[u16; 2]; 4]" }
	      ]
	    }
	  ],
	  "types": []
	}`))
	require.NoError(t, err)

	decoder := onlyInstruction(t, program)
	expected := schema.NewStruct("bar",
		schema.NewNode("three", schema.Array(3, schema.U8)),
		schema.NewNode("twoKeys", schema.Array(2, schema.Pubkey)),
		schema.NewNode("nested", schema.Array(4, schema.Array(2, schema.U16))),
	)
	assert.True(t, expected.Equal(decoder.Args))
}

func TestParse_FieldTypes(t *testing.T) {
	program, err := Parse([]byte(`{
	  "name": "types_prog",
	  "instructions": [
	    {
	      "name": "everything",
	      "accounts": [],
	      "args": [
	        { "name": "a", "type": "pubkey" },
	        { "name": "b", "type": "bytes" },
	        { "name": "c", "type": { "vec": { "option": "i128" } } },
	        { "name": "d", "type": { "array": ["u8", 32] } },
	        { "name": "e", "type": { "array": [{ "defined": "Point" }, 2] } },
	        { "name": "f", "type": { "defined": { "name": "Point" } } },
	        { "name": "g", "type": { "option": { "defined": "SmallVec<u16,publickey>" } } },
	        { "name": "h", "type": "f64" },
	        { "name": "rest", "type": "bytes_remaining" }
	      ]
	    }
	  ],
	  "types": [
	    {
	      "name": "Point",
	      "type": { "kind": "struct", "fields": [ { "name": "x", "type": "i32" }, { "name": "y", "type": "i32" } ] }
	    }
	  ]
	}`))
	require.NoError(t, err)

	point := schema.Struct(schema.NewNode("x", schema.I32), schema.NewNode("y", schema.I32))
	expected := schema.NewStruct("everything",
		schema.NewNode("a", schema.Pubkey),
		schema.NewNode("b", schema.Vec(schema.U8)),
		schema.NewNode("c", schema.Vec(schema.Option(schema.I128))),
		schema.NewNode("d", schema.Array(32, schema.U8)),
		schema.NewNode("e", schema.Array(2, point)),
		schema.NewNode("f", point),
		schema.NewNode("g", schema.Option(schema.SmallVec(schema.SmallVecLenU16, schema.Pubkey))),
		schema.NewNode("h", schema.F64),
		schema.NewNode("rest", schema.RemainingBytes),
	)
	assert.True(t, expected.Equal(onlyInstruction(t, program).Args))
}

func TestParse_LegacyAccountTypes(t *testing.T) {
	program, err := ParseFile("testdata/counter.json")
	require.NoError(t, err)

	require.Len(t, program.Accounts, 1)
	counter, ok := program.Accounts[AccountDiscriminator("Counter")]
	require.True(t, ok)

	status := schema.Enum(
		schema.NewNode("Active", schema.Empty),
		schema.NewNode("Frozen", schema.Struct(schema.NewNode("reason", schema.String))),
		schema.NewNode("Migrated", schema.Struct(schema.NewNode("", schema.Pubkey), schema.NewNode("", schema.I64))),
	)
	expected := schema.NewStruct("Counter",
		schema.NewNode("authority", schema.Pubkey),
		schema.NewNode("count", schema.U64),
		schema.NewNode("status", status),
		schema.NewNode("bump", schema.U8).Hidden(),
	)
	assert.True(t, expected.Equal(counter))

	require.Len(t, program.Instructions, 2)
	initialize := program.Instructions[InstructionDiscriminator("initialize")]
	assert.Equal(t, []string{"counter", "authority", "systemProgram"}, initialize.Accounts)
	assert.True(t, schema.NewNode("initialize", schema.Empty).Equal(initialize.Args))

	incrementBy, ok := program.Instructions[InstructionDiscriminator("increment_by")]
	require.True(t, ok)
	assert.Equal(t, "incrementBy", incrementBy.Args.Name)
}

func TestParse_EndToEnd(t *testing.T) {
	program, err := ParseFile("testdata/counter.json")
	require.NoError(t, err)

	w := binary.NewWriter()
	w.PutUint64(AccountDiscriminator("Counter"))
	w.PutBytes(make([]byte, 32))
	w.PutUint64(12)
	w.PutUint8(1)
	w.PutString("audit")
	w.PutUint8(255)

	result, err := program.DecodeAccount(w.Bytes(), false)
	require.NoError(t, err)
	rendered, err := json.Marshal(result.Value)
	require.NoError(t, err)
	assert.Equal(t, `{"authority":"11111111111111111111111111111111","count":"12","status":{"name":"Frozen","value":{"reason":"audit"}}}`, string(rendered))

	w = binary.NewWriter()
	w.PutUint64(InstructionDiscriminator("incrementBy"))
	w.PutUint64(3)
	w.PutUint8(0)

	ix, err := program.DecodeInstruction(w.Bytes(), []string{"counterAddress", "authorityAddress"}, false)
	require.NoError(t, err)
	rendered, err = json.Marshal(ix)
	require.NoError(t, err)
	assert.JSONEq(t, `{
	  "name": "incrementBy",
	  "schema": {"amount": "u64", "memo": {"type:option": "string"}},
	  "accounts": ["counter", "authority"],
	  "value": {"amount": "3", "memo": null},
	  "account_addresses": {"counter": "counterAddress", "authority": "authorityAddress"}
	}`, string(rendered))
}

func TestParse_ExplicitDiscriminators(t *testing.T) {
	program, err := Parse([]byte(`{
	  "name": "explicit",
	  "accounts": [
	    { "name": "Market", "discriminant": { "type": "u8", "value": 1 } },
	    { "name": "Seat", "discriminant": { "type": "u8", "value": 2 } }
	  ],
	  "instructions": [
	    { "name": "swap", "accounts": [], "args": [], "discriminator": [0] },
	    { "name": "deposit", "accounts": [], "args": [], "discriminator": [9] }
	  ],
	  "types": [
	    { "name": "Market", "type": { "kind": "struct", "fields": [ { "name": "size", "type": "u64" } ] } },
	    { "name": "Seat", "type": { "kind": "struct", "fields": [ { "name": "trader", "type": "pubkey" } ] } }
	  ]
	}`))
	require.NoError(t, err)

	assert.EqualValues(t, 1, program.AccountDiscriminatorLen)
	assert.EqualValues(t, 1, program.InstructionDiscriminatorLen)
	assert.Equal(t, "Market", program.Accounts[1].Name)
	assert.Equal(t, "Seat", program.Accounts[2].Name)
	assert.Equal(t, "swap", program.Instructions[0].Args.Name)
	assert.Equal(t, "deposit", program.Instructions[9].Args.Name)

	result, err := program.DecodeAccount([]byte{1, 5, 0, 0, 0, 0, 0, 0, 0}, false)
	require.NoError(t, err)
	assert.Equal(t, "Market", result.Name)
}

func TestParse_MixedDiscriminators(t *testing.T) {
	_, err := Parse([]byte(`{
	  "name": "mixed",
	  "accounts": [
	    { "name": "A", "discriminant": { "type": "u8", "value": 1 } },
	    { "name": "B", "discriminant": { "type": "u64", "value": 2 } }
	  ],
	  "types": [
	    { "name": "A", "type": { "kind": "struct", "fields": [] } },
	    { "name": "B", "type": { "kind": "struct", "fields": [] } }
	  ]
	}`))
	assert.ErrorIs(t, err, ErrMixedDiscriminators)

	_, err = Parse([]byte(`{
	  "name": "mixed",
	  "instructions": [
	    { "name": "a", "accounts": [], "discriminator": [1] },
	    { "name": "b", "accounts": [] }
	  ],
	  "types": []
	}`))
	assert.ErrorIs(t, err, ErrMixedDiscriminators)
}

func TestParse_TypeCycle(t *testing.T) {
	idlJSON := []byte(`{
	  "name": "cyclic",
	  "accounts": [ { "name": "Node" } ],
	  "types": [
	    { "name": "Node", "type": { "kind": "struct", "fields": [ { "name": "next", "type": { "option": { "defined": "Link" } } } ] } },
	    { "name": "Link", "type": { "kind": "struct", "fields": [ { "name": "node", "type": { "defined": "Node" } } ] } }
	  ]
	}`)

	_, err := Parse(idlJSON)
	assert.ErrorIs(t, err, ErrTypeCycle)
	assert.Contains(t, err.Error(), "Node -> Link -> Node")
}

func TestParse_SkipsUnusedBrokenTypes(t *testing.T) {
	program, err := Parse([]byte(`{
	  "name": "partial",
	  "instructions": [
	    { "name": "ok", "accounts": [], "args": [ { "name": "v", "type": { "defined": "Good" } } ] }
	  ],
	  "types": [
	    { "name": "Good", "type": { "kind": "struct", "fields": [ { "name": "x", "type": "u8" } ] } },
	    { "name": "Bad", "type": { "kind": "struct", "fields": [ { "name": "x", "type": "u256" } ] } },
	    { "name": "Worse", "type": { "kind": "union" } }
	  ]
	}`))
	require.NoError(t, err)
	assert.Len(t, program.Instructions, 1)
}

func TestParse_Errors(t *testing.T) {
	for _, tc := range []struct {
		name     string
		idl      string
		expected error
	}{
		{"not json", `{`, ErrInvalidIDL},
		{"root not object", `[]`, ErrInvalidIDL},
		{"missing types", `{"name":"x"}`, ErrInvalidIDL},
		{"accounts not array", `{"types":[],"accounts":{}}`, ErrInvalidIDL},
		{"instructions not array", `{"types":[],"instructions":"x"}`, ErrInvalidIDL},
		{"type without name", `{"types":[{"type":{"kind":"struct","fields":[]}}]}`, ErrInvalidIDL},
		{"account without schema", `{"types":[],"accounts":[{"name":"Missing"}]}`, ErrTypeNotFound},
		{
			"account with broken type",
			`{"types":[{"name":"A","type":{"kind":"struct","fields":[{"name":"x","type":"u256"}]}}],"accounts":[{"name":"A"}]}`,
			ErrUnknownType,
		},
		{
			"unknown kind",
			`{"types":[{"name":"A","type":{"kind":"union"}}],"accounts":[{"name":"A"}]}`,
			ErrUnknownType,
		},
		{
			"field without name",
			`{"types":[],"instructions":[{"name":"a","accounts":[],"args":[{"type":"u8"}]}]}`,
			ErrInvalidIDL,
		},
		{
			"unknown field type object",
			`{"types":[],"instructions":[{"name":"a","accounts":[],"args":[{"name":"x","type":{"map":"u8"}}]}]}`,
			ErrUnknownType,
		},
		{
			"instruction accounts missing",
			`{"types":[],"instructions":[{"name":"a","args":[]}]}`,
			ErrInvalidIDL,
		},
		{
			"instruction type missing",
			`{"types":[],"instructions":[{"name":"a","accounts":[],"args":[{"name":"x","type":{"defined":"Nope"}}]}]}`,
			ErrTypeNotFound,
		},
		{
			"smallvec bad width",
			`{"types":[],"instructions":[{"name":"a","accounts":[],"args":[{"name":"x","type":{"defined":"SmallVec<u32,u8>"}}]}]}`,
			ErrInvalidIDL,
		},
		{
			"smallvec bad arity",
			`{"types":[],"instructions":[{"name":"a","accounts":[],"args":[{"name":"x","type":{"defined":"SmallVec<u8,u8,u8>"}}]}]}`,
			ErrInvalidIDL,
		},
		{
			"malformed bracket array",
			`{"types":[],"instructions":[{"name":"a","accounts":[],"args":[{"name":"x","type":"[u8; three]"}]}]}`,
			ErrInvalidIDL,
		},
	} {
		_, err := Parse([]byte(tc.idl))
		assert.ErrorIs(t, err, tc.expected, tc.name)
	}
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile("testdata/does-not-exist.json")
	assert.Error(t, err)
}

func TestParseRawType_BracketArrays(t *testing.T) {
	for _, tc := range []struct {
		raw      string
		expected schema.Type
	}{
		{"[u8; 3]", schema.Array(3, schema.U8)},
		{"[publicKey;2]", schema.Array(2, schema.Pubkey)},
		{"[[u16; 2]; 4]", schema.Array(4, schema.Array(2, schema.U16))},
		{"[[[bool; 1]; 2]; 3]", schema.Array(3, schema.Array(2, schema.Array(1, schema.Bool)))},
	} {
		actual, err := parseRawType(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.True(t, tc.expected.Equal(actual), tc.raw)
	}

	for _, raw := range []string{"[u8]", "[u8; -1]", "[[u8; 2]]", "[; 2]", "[u8; 2; 3]"} {
		_, err := parseRawType(raw)
		assert.Error(t, err, raw)
	}
}
