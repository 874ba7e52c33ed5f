package core

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

// MaxRecursionDepth caps cooperative (non-iterative) helper recursion still
// present in leaf encoders; the arena's own DAG walks (drop, serialize,
// translate) are iterative and unbounded by this constant. Debug builds use
// the lower bound; callers building release binaries should raise it via
// SetMaxRecursionDepth during init.
var MaxRecursionDepth = 50

func SetMaxRecursionDepth(n int) { MaxRecursionDepth = n }

// nodeMeta tracks the refcount and declared children of a node independent
// of whether its body is currently cached in memory.
type nodeMeta struct {
	refcount uint32
	children []HashOutput
}

// cachedNode is what actually lives in the arena's LRU: the node's serialized
// body and its children's keys. Get decodes the body again on every hit.
type cachedNode struct {
	body     []byte
	children []HashOutput
}

// Arena is the content-addressed, ref-counted storage DAG. It deduplicates
// nodes by key, maintains a bounded in-memory cache with LRU eviction,
// persists to a pluggable KV backend, and hands out Sp handles with
// copy-on-write semantics (mutation always allocates a new node; existing
// Sp handles are never mutated in place).
type Arena struct {
	backend KV
	cache   *lru.Cache[HashOutput, *cachedNode]

	mu    sync.Mutex
	meta  map[HashOutput]*nodeMeta
	stats ArenaStats
}

type ArenaStats struct {
	CacheHits   uint64
	CacheMisses uint64
	Allocs      uint64
}

func NewArena(backend KV, cacheSize int) (*Arena, error) {
	c, err := lru.New[HashOutput, *cachedNode](cacheSize)
	if err != nil {
		return nil, wrapErr(KindBackend, "arena_cache_init", err)
	}
	return &Arena{
		backend: backend,
		cache:   c,
		meta:    make(map[HashOutput]*nodeMeta),
	}, nil
}

func (a *Arena) Stats() ArenaStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// storageKey computes a node's StorageKey: the hash of its serialized body
// plus the hashes of its declared children, represented externally as a
// CIDv1 (raw codec, sha2-256 multihash) so the arena's keys interoperate
// with any IPLD-shaped tooling that wants to address the same DAG.
func storageKey(body []byte, children []HashOutput) (HashOutput, cid.Cid, error) {
	w := NewHashWriter()
	w.WriteLenPrefixed(body)
	w.WriteU32(uint32(len(children)))
	for _, c := range children {
		w.WriteHash(c)
	}
	h := PersistentHash(w.Bytes())

	sum, err := mh.Sum(w.Bytes(), mh.SHA2_256, -1)
	if err != nil {
		return h, cid.Undef, wrapErr(KindBackend, "storage_key_multihash", err)
	}
	return h, cid.NewCidV1(cid.Raw, sum), nil
}

// Alloc serializes v (a value with a known byte encoding) together with its
// declared children, computes its StorageKey, and inserts it into the
// cache, pinning it until the returned Sp (and every clone of it) is
// dropped. Allocating a value equal to an existing node is idempotent: it
// returns a new Sp to the same key and bumps its refcount rather than
// duplicating storage.
func Alloc[T any](a *Arena, v T, encode func(T) []byte, children []HashOutput) (*Sp[T], error) {
	body := encode(v)
	key, _, err := storageKey(body, children)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	m, exists := a.meta[key]
	if !exists {
		m = &nodeMeta{children: children}
		a.meta[key] = m
	}
	m.refcount++
	a.stats.Allocs++
	a.mu.Unlock()

	a.cache.Add(key, &cachedNode{body: body, children: children})

	return &Sp[T]{arena: a, key: key, value: &v}, nil
}

// Get loads the node at key, preferring the in-memory cache, falling back
// to the backend. It fails with ErrMissingNode if the key is unknown to
// either. The supplied decode/invariant functions mirror the arena's
// deserialization contract: decode produces T from the raw body, and — if
// non-nil — invariant runs once immediately after a backend load (not on a
// cache hit, since a cached node already passed it when it was first
// allocated or loaded) and a failure is reported as a decode error rather
// than surfaced to the caller as a valid value.
func Get[T any](a *Arena, key HashOutput, decode func([]byte) (T, error), invariant func(T) error) (*Sp[T], error) {
	if cn, ok := a.cache.Get(key); ok {
		a.mu.Lock()
		a.stats.CacheHits++
		a.mu.Unlock()
		v, err := decode(cn.body)
		if err != nil {
			return nil, wrapErr(KindDecode, "arena_decode", err)
		}
		a.bumpRef(key, cn.children)
		return &Sp[T]{arena: a, key: key, value: &v}, nil
	}

	a.mu.Lock()
	a.stats.CacheMisses++
	a.mu.Unlock()

	raw, ok, err := a.backend.Get(key)
	if err != nil {
		return nil, wrapErr(KindBackend, "arena_backend_get", err)
	}
	if !ok {
		return nil, wrapErr(KindBackend, "missing_node", ErrMissingNode)
	}
	v, err := decode(raw)
	if err != nil {
		return nil, wrapErr(KindDecode, "arena_decode", err)
	}
	if invariant != nil {
		if err := invariant(v); err != nil {
			return nil, wrapErr(KindDecode, "arena_invariant", err)
		}
	}

	a.mu.Lock()
	m, exists := a.meta[key]
	if !exists {
		m = &nodeMeta{}
		a.meta[key] = m
	}
	m.refcount++
	children := m.children
	a.mu.Unlock()

	a.cache.Add(key, &cachedNode{body: raw, children: children})
	return &Sp[T]{arena: a, key: key, value: &v}, nil
}

func (a *Arena) bumpRef(key HashOutput, children []HashOutput) {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.meta[key]
	if !ok {
		m = &nodeMeta{children: children}
		a.meta[key] = m
	}
	m.refcount++
}

// GetLazy returns a handle that defers loading until first dereference,
// failing lazily at that point rather than at construction.
type LazySp[T any] struct {
	arena   *Arena
	key     HashOutput
	decode  func([]byte) (T, error)
	invar   func(T) error
	loaded  *Sp[T]
}

func GetLazy[T any](a *Arena, key HashOutput, decode func([]byte) (T, error), invariant func(T) error) *LazySp[T] {
	return &LazySp[T]{arena: a, key: key, decode: decode, invar: invariant}
}

func (l *LazySp[T]) Force() (*Sp[T], error) {
	if l.loaded != nil {
		return l.loaded, nil
	}
	sp, err := Get(l.arena, l.key, l.decode, l.invar)
	if err != nil {
		return nil, err
	}
	l.loaded = sp
	return sp, nil
}

// Sp is a "stored pointer": a handle to a value of type T whose backing
// node is resident in the arena's cache and tracked by refcount. An Sp owns
// exactly one logical reference to its node; Clone increments the
// refcount, Drop decrements it.
type Sp[T any] struct {
	arena *Arena
	key   HashOutput
	value *T
}

func (s *Sp[T]) Key() HashOutput { return s.key }

func (s *Sp[T]) Value() T { return *s.value }

// Clone increments the refcount and returns a new handle to the same node.
func (s *Sp[T]) Clone() *Sp[T] {
	s.arena.mu.Lock()
	if m, ok := s.arena.meta[s.key]; ok {
		m.refcount++
	}
	s.arena.mu.Unlock()
	return &Sp[T]{arena: s.arena, key: s.key, value: s.value}
}

// Drop decrements the refcount. When it reaches zero the node's children
// are decremented too — iteratively, via an explicit work-list, since a
// recursive walk would overflow the stack on a deep production DAG (see
// the iterative-traversal design note). A node whose refcount reaches zero
// loses its refcount entry and is removed from the LRU cache; the KV
// backend is not touched here.
func (s *Sp[T]) Drop() {
	s.arena.dropKey(s.key)
}

func (a *Arena) dropKey(root HashOutput) {
	pending := []HashOutput{root}
	visited := make(map[HashOutput]struct{})

	for len(pending) > 0 {
		key := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if _, seen := visited[key]; seen {
			continue
		}
		visited[key] = struct{}{}

		a.mu.Lock()
		m, ok := a.meta[key]
		if !ok {
			a.mu.Unlock()
			continue
		}
		m.refcount--
		reachedZero := m.refcount == 0
		var children []HashOutput
		if reachedZero {
			children = append(children, m.children...)
			delete(a.meta, key)
		}
		a.mu.Unlock()

		if reachedZero {
			a.cache.Remove(key)
			pending = append(pending, children...)
		}
	}
}

// Refcount reports the current logical refcount of a key, 0 if unknown —
// used directly by the refcount-soundness property tests.
func (a *Arena) Refcount(key HashOutput) uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if m, ok := a.meta[key]; ok {
		return m.refcount
	}
	return 0
}

// Contains reports whether key is currently resident in the in-memory
// cache (not whether it exists in the backend).
func (a *Arena) Contains(key HashOutput) bool {
	return a.cache.Contains(key)
}

// Commit flushes every cached node reachable from roots to the backing
// store in one atomic batch — the arena's "persist transactionally" duty.
func (a *Arena) Commit(roots []HashOutput) error {
	pending := append([]HashOutput{}, roots...)
	visited := make(map[HashOutput]struct{})
	var batch []KVPair

	for len(pending) > 0 {
		key := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if _, seen := visited[key]; seen {
			continue
		}
		visited[key] = struct{}{}

		cn, ok := a.cache.Get(key)
		if !ok {
			continue
		}
		batch = append(batch, KVPair{Key: key, Value: cn.body})
		pending = append(pending, cn.children...)
	}

	if len(batch) == 0 {
		return nil
	}
	return a.backend.Put(batch)
}
