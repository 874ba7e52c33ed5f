package core

// BoundedMerkleTree is a fixed-height, append-only Merkle tree over
// AlignedValue leaves — the shape used for the shielded coin commitment
// tree and the DUST generation tree. Height is fixed at construction;
// inserting beyond 2^height leaves is a fatal (programmer) error since
// callers must size the tree for its domain ahead of time.
type BoundedMerkleTree struct {
	height int
	leaves []AlignedValue
}

func NewBoundedMerkleTree(height int) *BoundedMerkleTree {
	return &BoundedMerkleTree{height: height}
}

func (t *BoundedMerkleTree) Height() int { return t.height }

func (t *BoundedMerkleTree) Len() int { return len(t.leaves) }

func (t *BoundedMerkleTree) Capacity() int { return 1 << uint(t.height) }

// Insert appends value as the next leaf, returning its index. It panics if
// the tree has reached its fixed capacity — a caller bug, not a recoverable
// runtime condition, mirroring the spec's "fatal" framing.
func (t *BoundedMerkleTree) Insert(value AlignedValue) int {
	if len(t.leaves) >= t.Capacity() {
		panic("bounded merkle tree: capacity exceeded")
	}
	t.leaves = append(t.leaves, value)
	return len(t.leaves) - 1
}

// leafHash is the domain-separated hash of a single leaf value.
func leafHash(v AlignedValue) HashOutput {
	w := NewHashWriter()
	w.WriteBytes([]byte("bmt-leaf"))
	w.WriteHash(v.Hash())
	return PersistentHash(w.Bytes())
}

// emptySentinel is the zero-valued hash assigned to unfilled slots.
var emptySentinel = ZeroHash

func innerHash(l, r HashOutput) HashOutput {
	fe := TransientHash([]Fr{DegradeToTransient(l), DegradeToTransient(r)})
	return UpgradeToPersistent(fe)
}

// Root computes the tree's root by folding leaf hashes up through `height`
// levels, padding unfilled slots with the empty sentinel.
func (t *BoundedMerkleTree) Root() HashOutput {
	width := t.Capacity()
	level := make([]HashOutput, width)
	for i := 0; i < width; i++ {
		if i < len(t.leaves) {
			level[i] = leafHash(t.leaves[i])
		} else {
			level[i] = emptySentinel
		}
	}
	for len(level) > 1 {
		next := make([]HashOutput, len(level)/2)
		for i := range next {
			next[i] = innerHash(level[2*i], level[2*i+1])
		}
		level = next
	}
	if len(level) == 0 {
		return emptySentinel
	}
	return level[0]
}

// MerklePath is the sibling hashes from a leaf up to the root, used both to
// re-derive a ZSwap spend proof and to answer light-wallet inclusion
// queries.
type MerklePath struct {
	Index    int
	Siblings []HashOutput
}

func (t *BoundedMerkleTree) Path(index int) (MerklePath, error) {
	if index < 0 || index >= len(t.leaves) {
		return MerklePath{}, wrapErr(KindResource, "bounds_exceeded", ErrBoundsExceeded)
	}
	width := t.Capacity()
	level := make([]HashOutput, width)
	for i := 0; i < width; i++ {
		if i < len(t.leaves) {
			level[i] = leafHash(t.leaves[i])
		} else {
			level[i] = emptySentinel
		}
	}
	var siblings []HashOutput
	idx := index
	for len(level) > 1 {
		sibIdx := idx ^ 1
		siblings = append(siblings, level[sibIdx])
		next := make([]HashOutput, len(level)/2)
		for i := range next {
			next[i] = innerHash(level[2*i], level[2*i+1])
		}
		level = next
		idx /= 2
	}
	return MerklePath{Index: index, Siblings: siblings}, nil
}

// VerifyMerklePath recomputes the root implied by leaf at path.Index with
// the given siblings and checks it against root.
func VerifyMerklePath(root HashOutput, leaf AlignedValue, path MerklePath) bool {
	h := leafHash(leaf)
	idx := path.Index
	for _, sib := range path.Siblings {
		if idx%2 == 0 {
			h = innerHash(h, sib)
		} else {
			h = innerHash(sib, h)
		}
		idx /= 2
	}
	return h == root
}

// Collapsed produces the minimal sub-tree plus witness data needed to
// prove a set of leaf indices against the current root — the form ZSwap's
// local wallet state filtering ships to light clients.
type CollapsedMerkle struct {
	Root   HashOutput
	Leaves map[int]AlignedValue
	Paths  map[int]MerklePath
}

func (t *BoundedMerkleTree) Collapsed(indices []int) (CollapsedMerkle, error) {
	out := CollapsedMerkle{Root: t.Root(), Leaves: make(map[int]AlignedValue), Paths: make(map[int]MerklePath)}
	for _, i := range indices {
		if i < 0 || i >= len(t.leaves) {
			return CollapsedMerkle{}, wrapErr(KindResource, "bounds_exceeded", ErrBoundsExceeded)
		}
		p, err := t.Path(i)
		if err != nil {
			return CollapsedMerkle{}, err
		}
		out.Leaves[i] = t.leaves[i]
		out.Paths[i] = p
	}
	return out, nil
}
