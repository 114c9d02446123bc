package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/code-payments/code-idl/pkg/idl/store"
)

type memoryStore struct {
	mu      sync.Mutex
	last    uint64
	records map[string]*store.Record
}

// New returns a new in memory store.Store
func New() store.Store {
	return &memoryStore{
		records: make(map[string]*store.Record),
	}
}

// Save implements store.Store.Save
func (s *memoryStore) Save(_ context.Context, record *store.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	item, ok := s.records[record.Address]
	if !ok {
		if record.Version != 0 {
			return store.ErrStaleVersion
		}

		s.last++
		cloned := record.Clone()
		cloned.Id = s.last
		cloned.Version = 1
		cloned.CreatedAt = now
		cloned.UpdatedAt = now
		s.records[record.Address] = &cloned

		cloned.CopyTo(record)
		return nil
	}

	if item.Version != record.Version {
		return store.ErrStaleVersion
	}

	item.Name = record.Name
	item.Data = make([]byte, len(record.Data))
	copy(item.Data, record.Data)
	item.Version++
	item.UpdatedAt = now

	item.CopyTo(record)
	return nil
}

// Get implements store.Store.Get
func (s *memoryStore) Get(_ context.Context, address string) (*store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.records[address]
	if !ok {
		return nil, store.ErrProgramNotFound
	}

	cloned := item.Clone()
	return &cloned, nil
}

// GetAll implements store.Store.GetAll
func (s *memoryStore) GetAll(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) == 0 {
		return nil, store.ErrProgramNotFound
	}

	res := make([]string, 0, len(s.records))
	for address := range s.records {
		res = append(res, address)
	}
	sort.Strings(res)
	return res, nil
}

// Delete implements store.Store.Delete
func (s *memoryStore) Delete(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[address]; !ok {
		return store.ErrProgramNotFound
	}

	delete(s.records, address)
	return nil
}

func (s *memoryStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = 0
	s.records = make(map[string]*store.Record)
}
