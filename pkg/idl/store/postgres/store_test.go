package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pgutil "github.com/code-payments/code-idl/pkg/database/postgres"
	postgrestest "github.com/code-payments/code-idl/pkg/database/postgres/test"
	"github.com/code-payments/code-idl/pkg/idl/store"
	"github.com/code-payments/code-idl/pkg/idl/store/tests"

	_ "github.com/jackc/pgx/v4/stdlib"
)

const (
	// Used for testing ONLY, the table and migrations are external to this repository
	tableCreate = `
	CREATE TABLE idl__core_program (
		id serial NOT NULL PRIMARY KEY,

		address TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		data BYTEA NOT NULL,

		version BIGINT NOT NULL,

		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL
	);
	`

	// Used for testing ONLY, the table and migrations are external to this repository
	tableDestroy = `
		DROP TABLE idl__core_program;
	`
)

var (
	testDb    *sqlx.DB
	testStore store.Store
	teardown  func()
)

func TestMain(m *testing.M) {
	log := logrus.StandardLogger()

	testPool, err := dockertest.NewPool("")
	if err != nil {
		log.WithError(err).Error("Error creating docker pool")
		os.Exit(1)
	}

	var cleanUpFunc func()
	db, cleanUpFunc, err := postgrestest.StartPostgresDB(testPool)
	if err != nil {
		log.WithError(err).Error("Error starting postgres image")
		os.Exit(1)
	}
	defer db.Close()

	if err := createTestTables(db); err != nil {
		log.WithError(err).Error("Error creating test tables")
		cleanUpFunc()
		os.Exit(1)
	}

	testDb = db
	testStore = New(db)
	teardown = func() {
		if pc := recover(); pc != nil {
			cleanUpFunc()
			panic(pc)
		}

		if err := resetTestTables(db); err != nil {
			log.WithError(err).Error("Error resetting test tables")
			cleanUpFunc()
			os.Exit(1)
		}
	}

	code := m.Run()
	cleanUpFunc()
	os.Exit(code)
}

func TestProgramPostgresStore(t *testing.T) {
	tests.RunTests(t, testStore, teardown)
}

func TestProgramPostgresStore_SharedTransaction(t *testing.T) {
	defer teardown()

	ctx := context.Background()
	record := &store.Record{
		Address: "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
		Name:    "token",
		Data:    []byte{1, 2, 3},
	}

	// Saves made through a context carrying a transaction are rolled back with it
	err := pgutil.ExecuteTxWithinCtx(ctx, testDb, sql.LevelDefault, func(ctx context.Context) error {
		require.NoError(t, testStore.Save(ctx, record))
		return store.ErrStaleVersion
	})
	assert.Equal(t, store.ErrStaleVersion, err)

	_, err = testStore.Get(ctx, record.Address)
	assert.Equal(t, store.ErrProgramNotFound, err)

	record.Version = 0
	err = pgutil.ExecuteTxWithinCtx(ctx, testDb, sql.LevelDefault, func(ctx context.Context) error {
		return testStore.Save(ctx, record)
	})
	require.NoError(t, err)

	actual, err := testStore.Get(ctx, record.Address)
	require.NoError(t, err)
	assert.EqualValues(t, 1, actual.Version)
}

func createTestTables(db *sqlx.DB) error {
	_, err := db.Exec(tableCreate)
	if err != nil {
		logrus.StandardLogger().WithError(err).Error("could not create test tables")
		return err
	}
	return nil
}

func resetTestTables(db *sqlx.DB) error {
	_, err := db.Exec(tableDestroy)
	if err != nil {
		logrus.StandardLogger().WithError(err).Error("could not drop test tables")
		return err
	}

	return createTestTables(db)
}
