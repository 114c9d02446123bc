// Package store persists encoded programs keyed by their on-chain address.
package store

import (
	"context"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

var (
	ErrProgramNotFound = errors.New("program record not found")
	ErrStaleVersion    = errors.New("program record version is stale")
)

// Record is a compiled program, in its binary encoding, registered under a
// program address
type Record struct {
	Id uint64

	Address string
	Name    string
	Data    []byte

	// Version is incremented on every save. A save must carry the version it
	// last observed, or zero for a new record.
	Version uint64

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Store interface {
	// Save creates or replaces the program record at the record's address
	//
	// Returns ErrStaleVersion if the record's version doesn't match the
	// stored version.
	Save(ctx context.Context, record *Record) error

	// Get gets the program record for an address
	//
	// Returns ErrProgramNotFound if no record is found.
	Get(ctx context.Context, address string) (*Record, error)

	// GetAll gets the addresses of every stored program, in ascending order
	//
	// Returns ErrProgramNotFound if no record is found.
	GetAll(ctx context.Context) ([]string, error)

	// Delete removes the program record for an address
	//
	// Returns ErrProgramNotFound if no record is found.
	Delete(ctx context.Context, address string) error
}

func (r *Record) Validate() error {
	if err := ValidateAddress(r.Address); err != nil {
		return err
	}

	if len(r.Name) == 0 {
		return errors.New("name is required")
	}

	if len(r.Data) == 0 {
		return errors.New("data is required")
	}

	return nil
}

func (r *Record) Clone() Record {
	data := make([]byte, len(r.Data))
	copy(data, r.Data)

	return Record{
		Id: r.Id,

		Address: r.Address,
		Name:    r.Name,
		Data:    data,

		Version: r.Version,

		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id

	dst.Address = r.Address
	dst.Name = r.Name
	dst.Data = make([]byte, len(r.Data))
	copy(dst.Data, r.Data)

	dst.Version = r.Version

	dst.CreatedAt = r.CreatedAt
	dst.UpdatedAt = r.UpdatedAt
}

// ValidateAddress checks address is a base58 encoded 32 byte public key
func ValidateAddress(address string) error {
	if len(address) == 0 {
		return errors.New("address is required")
	}

	decoded, err := base58.Decode(address)
	if err != nil {
		return errors.Wrap(err, "address is not base58")
	}
	if len(decoded) != 32 {
		return errors.Errorf("address is %d bytes, expected 32", len(decoded))
	}

	return nil
}
