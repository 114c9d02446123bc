package tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-idl/pkg/idl/store"
)

const (
	systemProgram = "11111111111111111111111111111111"
	ataProgram    = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
	tokenProgram  = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	metaProgram   = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"
)

func RunTests(t *testing.T, s store.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s store.Store){
		testHappyPath,
		testVersioning,
		testGetAll,
		testDelete,
		testInvalidRecord,
	} {
		tf(t, s)
		teardown()
	}
}

func testHappyPath(t *testing.T, s store.Store) {
	t.Run("testHappyPath", func(t *testing.T) {
		ctx := context.Background()
		start := time.Now().Add(-time.Second)

		record := &store.Record{
			Address: tokenProgram,
			Name:    "token",
			Data:    []byte{1, 2, 3, 4},
		}

		_, err := s.Get(ctx, record.Address)
		assert.Equal(t, store.ErrProgramNotFound, err)

		require.NoError(t, s.Save(ctx, record))
		assert.True(t, record.Id > 0)
		assert.EqualValues(t, 1, record.Version)
		assert.True(t, record.CreatedAt.After(start))
		assert.False(t, record.UpdatedAt.Before(record.CreatedAt))

		actual, err := s.Get(ctx, record.Address)
		require.NoError(t, err)
		assertEquivalentRecords(t, record, actual)

		record.Name = "token_v2"
		record.Data = []byte{5, 6}
		require.NoError(t, s.Save(ctx, record))
		assert.EqualValues(t, 2, record.Version)

		actual, err = s.Get(ctx, record.Address)
		require.NoError(t, err)
		assertEquivalentRecords(t, record, actual)
		assert.Equal(t, []byte{5, 6}, actual.Data)
	})
}

func testVersioning(t *testing.T, s store.Store) {
	t.Run("testVersioning", func(t *testing.T) {
		ctx := context.Background()

		stale := &store.Record{
			Address: metaProgram,
			Name:    "metadata",
			Data:    []byte{1},
			Version: 3,
		}
		assert.Equal(t, store.ErrStaleVersion, s.Save(ctx, stale))

		_, err := s.Get(ctx, metaProgram)
		assert.Equal(t, store.ErrProgramNotFound, err)

		first := &store.Record{
			Address: metaProgram,
			Name:    "metadata",
			Data:    []byte{1},
		}
		second := first.Clone()

		require.NoError(t, s.Save(ctx, first))
		assert.Equal(t, store.ErrStaleVersion, s.Save(ctx, &second))

		second.Version = first.Version
		second.Data = []byte{2}
		require.NoError(t, s.Save(ctx, &second))
		assert.Equal(t, store.ErrStaleVersion, s.Save(ctx, first))

		actual, err := s.Get(ctx, metaProgram)
		require.NoError(t, err)
		assert.EqualValues(t, 2, actual.Version)
		assert.Equal(t, []byte{2}, actual.Data)
	})
}

func testGetAll(t *testing.T, s store.Store) {
	t.Run("testGetAll", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetAll(ctx)
		assert.Equal(t, store.ErrProgramNotFound, err)

		for _, address := range []string{metaProgram, systemProgram, tokenProgram, ataProgram} {
			require.NoError(t, s.Save(ctx, &store.Record{
				Address: address,
				Name:    "program",
				Data:    []byte(address),
			}))
		}

		actual, err := s.GetAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{systemProgram, ataProgram, tokenProgram, metaProgram}, actual)
	})
}

func testDelete(t *testing.T, s store.Store) {
	t.Run("testDelete", func(t *testing.T) {
		ctx := context.Background()

		assert.Equal(t, store.ErrProgramNotFound, s.Delete(ctx, ataProgram))

		record := &store.Record{
			Address: ataProgram,
			Name:    "associated_token",
			Data:    []byte{1},
		}
		require.NoError(t, s.Save(ctx, record))
		require.NoError(t, s.Delete(ctx, ataProgram))

		_, err := s.Get(ctx, ataProgram)
		assert.Equal(t, store.ErrProgramNotFound, err)
		assert.Equal(t, store.ErrProgramNotFound, s.Delete(ctx, ataProgram))

		// A deleted address starts over from a fresh record
		record.Version = 0
		require.NoError(t, s.Save(ctx, record))
		assert.EqualValues(t, 1, record.Version)
	})
}

func testInvalidRecord(t *testing.T, s store.Store) {
	t.Run("testInvalidRecord", func(t *testing.T) {
		ctx := context.Background()

		for _, record := range []*store.Record{
			{Address: "", Name: "name", Data: []byte{1}},
			{Address: "not-an-address", Name: "name", Data: []byte{1}},
			{Address: tokenProgram, Name: "", Data: []byte{1}},
			{Address: tokenProgram, Name: "name", Data: nil},
		} {
			assert.Error(t, s.Save(ctx, record))
		}

		_, err := s.GetAll(ctx)
		assert.Equal(t, store.ErrProgramNotFound, err)
	})
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *store.Record) {
	assert.Equal(t, obj1.Id, obj2.Id)
	assert.Equal(t, obj1.Address, obj2.Address)
	assert.Equal(t, obj1.Name, obj2.Name)
	assert.Equal(t, obj1.Data, obj2.Data)
	assert.Equal(t, obj1.Version, obj2.Version)
	assert.Equal(t, obj1.CreatedAt.Unix(), obj2.CreatedAt.Unix())
	assert.Equal(t, obj1.UpdatedAt.Unix(), obj2.UpdatedAt.Unix())
}
