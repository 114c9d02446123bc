package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/code-idl/pkg/idl/store"
)

type pgStore struct {
	db *sqlx.DB
}

// New returns a new postgres-backed store.Store
func New(db *sqlx.DB) store.Store {
	return &pgStore{
		db: db,
	}
}

// Save implements store.Store.Save
func (s *pgStore) Save(ctx context.Context, record *store.Record) error {
	obj, err := toModel(record)
	if err != nil {
		return err
	}

	err = obj.dbSave(ctx, s.db)
	if err != nil {
		return err
	}

	res := fromModel(obj)
	res.CopyTo(record)

	return nil
}

// Get implements store.Store.Get
func (s *pgStore) Get(ctx context.Context, address string) (*store.Record, error) {
	model, err := dbGet(ctx, s.db, address)
	if err != nil {
		return nil, err
	}

	return fromModel(model), nil
}

// GetAll implements store.Store.GetAll
func (s *pgStore) GetAll(ctx context.Context) ([]string, error) {
	return dbGetAllAddresses(ctx, s.db)
}

// Delete implements store.Store.Delete
func (s *pgStore) Delete(ctx context.Context, address string) error {
	return dbDelete(ctx, s.db, address)
}
