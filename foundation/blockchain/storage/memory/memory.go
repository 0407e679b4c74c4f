// Package memory implements the ability to read and write the blockchain to
// memory using a map.
package memory

import (
	"sync"

	"github.com/ardanlabs/nullchain/foundation/blockchain/database"
)

// Memory represents the storage implementation for reading and storing
// key/value pairs in memory. This implements the database.Storage
// interface.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New constructs an Memory value for use.
func New() *Memory {
	return &Memory{
		data: make(map[string][]byte),
	}
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// Get returns a copy of the value stored under the key.
func (m *Memory) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, exists := m.data[string(key)]
	if !exists {
		return nil, database.ErrNotFound
	}

	return append([]byte(nil), v...), nil
}

// Has reports whether the key exists.
func (m *Memory) Has(key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.data[string(key)]
	return exists, nil
}

// Write applies every operation of the batch under one lock.
func (m *Memory) Write(batch *database.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, op := range batch.Ops() {
		if op.Delete {
			delete(m.data, string(op.Key))
			continue
		}
		m.data[string(op.Key)] = append([]byte(nil), op.Value...)
	}

	return nil
}

// Len returns the number of keys held.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.data)
}
