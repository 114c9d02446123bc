package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	pgutil "github.com/code-payments/code-idl/pkg/database/postgres"
	"github.com/code-payments/code-idl/pkg/idl/store"
)

const (
	tableName = "idl__core_program"

	allColumns = `id, address, name, data, version, created_at, updated_at`
)

type model struct {
	Id sql.NullInt64 `db:"id"`

	Address string `db:"address"`
	Name    string `db:"name"`
	Data    []byte `db:"data"`

	Version int64 `db:"version"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func toModel(obj *store.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	return &model{
		Address: obj.Address,
		Name:    obj.Name,
		Data:    obj.Data,

		Version: int64(obj.Version),

		CreatedAt: obj.CreatedAt,
		UpdatedAt: obj.UpdatedAt,
	}, nil
}

func fromModel(obj *model) *store.Record {
	return &store.Record{
		Id: uint64(obj.Id.Int64),

		Address: obj.Address,
		Name:    obj.Name,
		Data:    obj.Data,

		Version: uint64(obj.Version),

		CreatedAt: obj.CreatedAt,
		UpdatedAt: obj.UpdatedAt,
	}
}

func (m *model) dbSave(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteRetryable(ctx, func() error {
		return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
			var current int64
			err := tx.GetContext(
				ctx,
				&current,
				`SELECT version FROM `+tableName+` WHERE address = $1 FOR UPDATE`,
				m.Address,
			)
			if err != nil && !pgutil.IsNoRows(err) {
				return err
			}

			now := time.Now()

			if pgutil.IsNoRows(err) {
				if m.Version != 0 {
					return store.ErrStaleVersion
				}

				query := `INSERT INTO ` + tableName + `
					(address, name, data, version, created_at, updated_at)
					VALUES ($1, $2, $3, 1, $4, $4)
					RETURNING ` + allColumns

				err = tx.QueryRowxContext(ctx, query, m.Address, m.Name, m.Data, now).StructScan(m)
				return pgutil.CheckUniqueViolation(err, store.ErrStaleVersion)
			}

			if current != m.Version {
				return store.ErrStaleVersion
			}

			query := `UPDATE ` + tableName + `
				SET name = $2, data = $3, version = version + 1, updated_at = $4
				WHERE address = $1
				RETURNING ` + allColumns

			return tx.QueryRowxContext(ctx, query, m.Address, m.Name, m.Data, now).StructScan(m)
		})
	})
}

func dbGet(ctx context.Context, db *sqlx.DB, address string) (*model, error) {
	var res model
	query := `SELECT ` + allColumns + ` FROM ` + tableName + `
		WHERE address = $1
	`

	err := db.GetContext(ctx, &res, query, address)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, store.ErrProgramNotFound)
	}
	return &res, nil
}

func dbGetAllAddresses(ctx context.Context, db *sqlx.DB) ([]string, error) {
	res := []string{}
	query := `SELECT address FROM ` + tableName + `
		ORDER BY address COLLATE "C" ASC
	`

	err := db.SelectContext(ctx, &res, query)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, store.ErrProgramNotFound)
	} else if len(res) == 0 {
		return nil, store.ErrProgramNotFound
	}
	return res, nil
}

func dbDelete(ctx context.Context, db *sqlx.DB, address string) error {
	return pgutil.ExecuteRetryable(ctx, func() error {
		res, err := db.ExecContext(ctx, `DELETE FROM `+tableName+` WHERE address = $1`, address)
		if err != nil {
			return err
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return err
		} else if rows == 0 {
			return store.ErrProgramNotFound
		}
		return nil
	})
}
