package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/code-payments/code-idl/pkg/config"
)

var errDeveloperInduced = errors.New("in memory config: developer induced error")

// Store is an in memory set of keyed config values, used for testing. Configs
// handed out by a Store observe later changes to their key.
type Store struct {
	stateMu  sync.RWMutex
	values   map[string]interface{}
	err      error
	shutdown bool
}

// NewStore returns an empty store
func NewStore() *Store {
	return &Store{
		values: make(map[string]interface{}),
	}
}

// Config returns the config for key
func (s *Store) Config(key string) config.Config {
	return &keyed{store: s, key: key}
}

// SetValue sets the value returned for key on subsequent Get calls
func (s *Store) SetValue(key string, value interface{}) {
	s.stateMu.Lock()
	s.values[key] = value
	s.stateMu.Unlock()
}

// ClearValue sets up key as if no value has been set, resulting in
// ErrNoValue being returned on subsequent Get calls
func (s *Store) ClearValue(key string) {
	s.stateMu.Lock()
	delete(s.values, key)
	s.stateMu.Unlock()
}

// InduceErrors instructs every config of the store to simulate an error
// getting a value
func (s *Store) InduceErrors() {
	s.stateMu.Lock()
	s.err = errDeveloperInduced
	s.stateMu.Unlock()
}

// StopInducingErrors stops the store from simulating errors
func (s *Store) StopInducingErrors() {
	s.stateMu.Lock()
	s.err = nil
	s.stateMu.Unlock()
}

// Shutdown shuts down every config of the store
func (s *Store) Shutdown() {
	s.stateMu.Lock()
	s.shutdown = true
	s.stateMu.Unlock()
}

func (s *Store) get(key string) (interface{}, error) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	if s.shutdown {
		return nil, config.ErrShutdown
	}
	if s.err != nil {
		return nil, s.err
	}

	value, ok := s.values[key]
	if !ok || value == nil {
		return nil, config.ErrNoValue
	}
	return value, nil
}

type keyed struct {
	store *Store
	key   string
}

// Get implements Config.Get
func (c *keyed) Get(_ context.Context) (interface{}, error) {
	return c.store.get(c.key)
}

// Shutdown implements Config.Shutdown. The store owns the values, so this is
// a no-op.
func (c *keyed) Shutdown() {
}

// NewConfig returns a standalone in memory config. Use an initial nil value to
// indicate no value is set.
func NewConfig(value interface{}) *Config {
	store := NewStore()
	store.SetValue("", value)
	return &Config{store: store}
}

// Config is a single in memory config value
type Config struct {
	store *Store
}

// Get implements Config.Get
func (c *Config) Get(_ context.Context) (interface{}, error) {
	return c.store.get("")
}

// Shutdown implements Config.Shutdown
func (c *Config) Shutdown() {
	c.store.Shutdown()
}

// SetValue sets the value that should be returned on subsequent Get calls
func (c *Config) SetValue(value interface{}) {
	c.store.SetValue("", value)
}

// ClearValue sets up the config as if no value has been set
func (c *Config) ClearValue() {
	c.store.ClearValue("")
}

// InduceErrors instructs the config to simulate an error getting a value
func (c *Config) InduceErrors() {
	c.store.InduceErrors()
}

// StopInducingErrors stops the config from simulating errors
func (c *Config) StopInducingErrors() {
	c.store.StopInducingErrors()
}
