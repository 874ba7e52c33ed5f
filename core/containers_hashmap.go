package core

// HashMap is a persistent hashed-bucket associative container used where
// lookup performance matters more than key-order iteration (unlike Map,
// its iteration order is not meaningful — only its Hash() is required to be
// order-independent, which it already is by construction here).
type HashMap[K ByteKeyed, V any] struct {
	buckets map[HashOutput]mapEntry[K, V]
}

func NewHashMap[K ByteKeyed, V any]() HashMap[K, V] {
	return HashMap[K, V]{buckets: make(map[HashOutput]mapEntry[K, V])}
}

func bucketKey(k ByteKeyed) HashOutput {
	return PersistentHash(k.KeyBytes())
}

func (h HashMap[K, V]) Len() int { return len(h.buckets) }

func (h HashMap[K, V]) Get(k K) (V, bool) {
	e, ok := h.buckets[bucketKey(k)]
	if !ok {
		var zero V
		return zero, false
	}
	return e.val, true
}

// Insert returns a new HashMap (copy-on-write over the bucket map) with k
// bound to v.
func (h HashMap[K, V]) Insert(k K, v V) HashMap[K, V] {
	out := make(map[HashOutput]mapEntry[K, V], len(h.buckets)+1)
	for bk, e := range h.buckets {
		out[bk] = e
	}
	out[bucketKey(k)] = mapEntry[K, V]{k, v}
	return HashMap[K, V]{buckets: out}
}

func (h HashMap[K, V]) Remove(k K) HashMap[K, V] {
	out := make(map[HashOutput]mapEntry[K, V], len(h.buckets))
	target := bucketKey(k)
	for bk, e := range h.buckets {
		if bk == target {
			continue
		}
		out[bk] = e
	}
	return HashMap[K, V]{buckets: out}
}

func (h HashMap[K, V]) Iterate(fn func(k K, v V) bool) {
	for _, e := range h.buckets {
		if !fn(e.key, e.val) {
			return
		}
	}
}

// Hash XORs every bucket's own (key,value) hash together; XOR is
// commutative and self-canceling on duplicates, which is exactly what an
// unordered container's digest needs: the result depends on the set of
// bindings, not on map iteration order.
func (h HashMap[K, V]) Hash(valueHash func(V) HashOutput) HashOutput {
	var acc HashOutput
	for bk, e := range h.buckets {
		w := NewHashWriter()
		w.WriteHash(bk)
		w.WriteHash(valueHash(e.val))
		leaf := PersistentHash(w.Bytes())
		for i := range acc {
			acc[i] ^= leaf[i]
		}
	}
	return acc
}
