package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddress = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

func TestRecord_Validate(t *testing.T) {
	valid := &Record{
		Address: testAddress,
		Name:    "token",
		Data:    []byte{1},
	}
	require.NoError(t, valid.Validate())

	for _, tc := range []struct {
		name   string
		mutate func(r *Record)
	}{
		{"missing address", func(r *Record) { r.Address = "" }},
		{"non base58 address", func(r *Record) { r.Address = "0OIl" }},
		{"short address", func(r *Record) { r.Address = "abc" }},
		{"missing name", func(r *Record) { r.Name = "" }},
		{"missing data", func(r *Record) { r.Data = nil }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cloned := valid.Clone()
			tc.mutate(&cloned)
			assert.Error(t, cloned.Validate())
		})
	}
}

func TestRecord_CloneAndCopy(t *testing.T) {
	now := time.Now()
	record := &Record{
		Id:        1,
		Address:   testAddress,
		Name:      "token",
		Data:      []byte{1, 2, 3},
		Version:   4,
		CreatedAt: now,
		UpdatedAt: now.Add(time.Second),
	}

	cloned := record.Clone()
	assert.Equal(t, *record, cloned)

	cloned.Data[0] = 0xff
	assert.EqualValues(t, 1, record.Data[0])

	var copied Record
	record.CopyTo(&copied)
	assert.Equal(t, *record, copied)

	copied.Data[0] = 0xff
	assert.EqualValues(t, 1, record.Data[0])
}
