package core

import (
	"sync"
)

// KV is the pluggable backing store contract the arena is built on: a
// byte-oriented key-value store with atomic batch commit. Keys are always
// the 32-byte content hash of a node; values are its serialized body.
// Concurrency: multiple readers are always safe; writers serialize at the
// backend's discretion.
type KV interface {
	Get(key HashOutput) ([]byte, bool, error)
	Put(batch []KVPair) error
	Delete(keys []HashOutput) error
}

type KVPair struct {
	Key   HashOutput
	Value []byte
}

// MemoryKV is the in-memory backend variant used by tests and by any
// process that does not need durability across restarts.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[HashOutput][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[HashOutput][]byte)}
}

func (m *MemoryKV) Get(key HashOutput) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *MemoryKV) Put(batch []KVPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, kv := range batch {
		cp := make([]byte, len(kv.Value))
		copy(cp, kv.Value)
		m.data[kv.Key] = cp
	}
	return nil
}

func (m *MemoryKV) Delete(keys []HashOutput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *MemoryKV) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
