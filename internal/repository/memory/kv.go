// Package memory is an in-process key-value store for tests and tooling.
package memory

import (
	"sort"
	"sync"

	"potholewatch/internal/repository"
)

// KeyValueStore implements repository.KeyValueStore in memory.
type KeyValueStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewKeyValueStore returns an empty store.
func NewKeyValueStore() *KeyValueStore {
	return &KeyValueStore{values: make(map[string]string)}
}

func (s *KeyValueStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *KeyValueStore) Put(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *KeyValueStore) Update(key string, fn repository.UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.values[key]
	next, err := fn(current, ok)
	if err != nil {
		return err
	}
	s.values[key] = next
	return nil
}

func (s *KeyValueStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *KeyValueStore) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *KeyValueStore) Close() error {
	return nil
}
