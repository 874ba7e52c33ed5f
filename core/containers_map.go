package core

import (
	"bytes"
	"sort"
)

// ByteKeyed is implemented by any type usable as a Map or HashMap key: it
// must have a canonical byte serialization so ordering (Map) and bucketing
// (HashMap) are deterministic across platforms.
type ByteKeyed interface {
	KeyBytes() []byte
}

type mapEntry[K ByteKeyed, V any] struct {
	key K
	val V
}

// Map is a persistent, sorted-by-serialized-key associative container.
// Canonical order makes its root hash (and therefore any commitment built
// from it) independent of insertion order — the container-determinism
// property required by the ledger's state commitments.
type Map[K ByteKeyed, V any] struct {
	entries []mapEntry[K, V]
}

func NewMap[K ByteKeyed, V any]() Map[K, V] { return Map[K, V]{} }

func (m Map[K, V]) Len() int { return len(m.entries) }

func (m Map[K, V]) find(k K) (int, bool) {
	kb := k.KeyBytes()
	i := sort.Search(len(m.entries), func(i int) bool {
		return bytes.Compare(m.entries[i].key.KeyBytes(), kb) >= 0
	})
	if i < len(m.entries) && bytes.Equal(m.entries[i].key.KeyBytes(), kb) {
		return i, true
	}
	return i, false
}

func (m Map[K, V]) Get(k K) (V, bool) {
	i, ok := m.find(k)
	if !ok {
		var zero V
		return zero, false
	}
	return m.entries[i].val, true
}

// Insert returns a new Map with k bound to v, replacing any existing entry.
func (m Map[K, V]) Insert(k K, v V) Map[K, V] {
	i, exists := m.find(k)
	out := make([]mapEntry[K, V], len(m.entries), len(m.entries)+1)
	copy(out, m.entries)
	if exists {
		out[i] = mapEntry[K, V]{k, v}
		return Map[K, V]{entries: out}
	}
	out = append(out, mapEntry[K, V]{})
	copy(out[i+1:], out[i:len(out)-1])
	out[i] = mapEntry[K, V]{k, v}
	return Map[K, V]{entries: out}
}

func (m Map[K, V]) Remove(k K) Map[K, V] {
	i, exists := m.find(k)
	if !exists {
		return m
	}
	out := make([]mapEntry[K, V], 0, len(m.entries)-1)
	out = append(out, m.entries[:i]...)
	out = append(out, m.entries[i+1:]...)
	return Map[K, V]{entries: out}
}

// Iterate visits entries in ascending key-byte order — the canonical
// iteration order.
func (m Map[K, V]) Iterate(fn func(k K, v V) bool) {
	for _, e := range m.entries {
		if !fn(e.key, e.val) {
			return
		}
	}
}

// Hash hashes the ordered sequence of (key, value-hash) pairs. Because
// entries are always stored in sorted order, this is independent of
// insertion order.
func (m Map[K, V]) Hash(valueHash func(V) HashOutput) HashOutput {
	w := NewHashWriter()
	w.WriteU32(uint32(len(m.entries)))
	for _, e := range m.entries {
		w.WriteLenPrefixed(e.key.KeyBytes())
		w.WriteHash(valueHash(e.val))
	}
	return PersistentHash(w.Bytes())
}
