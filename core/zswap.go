package core

import "bytes"

// ZswapCoinTreeHeight bounds the shielded coin commitment tree at 2^32
// leaves - generous enough that no network before a deliberate hard-fork
// upgrade should exhaust it, matching the teacher's practice of picking a
// single conservative constant rather than a configurable-by-default one.
const ZswapCoinTreeHeight = 32

// ZswapOffer is one side of a shielded transaction: the coins it creates
// (new commitments) and the coins it spends (nullifiers), plus a
// zero-knowledge proof (opaque here - proving is out of scope) that the
// two sides balance per token type.
type ZswapOffer struct {
	Inputs  []Nullifier
	Outputs []Commitment
	Proof   []byte
	Deltas  Map[TokenType, int64]
	// Root is the coin-tree root every input's membership proof was
	// checked against - must be a recent root the pool still remembers
	// (ZswapPool.KnownRoot) at apply time. Meaningless when Inputs is empty.
	Root HashOutput
}

func NewZswapOffer() ZswapOffer {
	return ZswapOffer{Deltas: NewMap[TokenType, int64]()}
}

func (o ZswapOffer) WithInput(n Nullifier, tokenType TokenType, value uint64) ZswapOffer {
	o.Inputs = append(o.Inputs, n)
	cur, _ := o.Deltas.Get(tokenType)
	o.Deltas = o.Deltas.Insert(tokenType, cur+int64(value))
	return o
}

func (o ZswapOffer) WithOutput(c Commitment, tokenType TokenType, value uint64) ZswapOffer {
	o.Outputs = append(o.Outputs, c)
	cur, _ := o.Deltas.Get(tokenType)
	o.Deltas = o.Deltas.Insert(tokenType, cur-int64(value))
	return o
}

// Balanced reports whether this offer's per-token deltas are all zero -
// the well-formedness check applied before an offer may be merged into a
// guaranteed transaction segment. A nonzero delta is the offer's
// contribution to the transaction's overall fee balance instead.
func (o ZswapOffer) Balanced() bool {
	balanced := true
	o.Deltas.Iterate(func(_ TokenType, v int64) bool {
		if v != 0 {
			balanced = false
		}
		return true
	})
	return balanced
}

// normalized reports whether offer is in canonical form: inputs and
// outputs sorted ascending by their own hash bytes, and deltas (already a
// sorted Map) carrying no zero-value entries.
func (o ZswapOffer) normalized() bool {
	for i := 1; i < len(o.Inputs); i++ {
		a, b := HashOutput(o.Inputs[i-1]), HashOutput(o.Inputs[i])
		if bytes.Compare(a[:], b[:]) >= 0 {
			return false
		}
	}
	for i := 1; i < len(o.Outputs); i++ {
		a, b := HashOutput(o.Outputs[i-1]), HashOutput(o.Outputs[i])
		if bytes.Compare(a[:], b[:]) >= 0 {
			return false
		}
	}
	zeroElided := true
	o.Deltas.Iterate(func(_ TokenType, v int64) bool {
		if v == 0 {
			zeroElided = false
			return false
		}
		return true
	})
	return zeroElided
}

func (o ZswapOffer) Hash() HashOutput {
	w := NewHashWriter()
	w.WriteU32(uint32(len(o.Inputs)))
	for _, n := range o.Inputs {
		w.WriteHash(HashOutput(n))
	}
	w.WriteU32(uint32(len(o.Outputs)))
	for _, c := range o.Outputs {
		w.WriteHash(HashOutput(c))
	}
	w.WriteLenPrefixed(o.Proof)
	return PersistentHash(w.Bytes())
}

// RootHistoryDepth bounds how many past coin-tree roots a spend's
// merkle-root proof may reference - a bounded ring rather than the full
// root history, so the recent-roots check stays O(1) regardless of how
// long the pool has been live.
const RootHistoryDepth = 256

// ZswapPool is the global shielded-pool state: the append-only coin
// commitment tree and the set of nullifiers ever published. Applying an
// offer checks every input's nullifier is fresh and every output's
// commitment goes into the tree at the next free leaf.
type ZswapPool struct {
	tree        *BoundedMerkleTree
	nullifiers  map[Nullifier]struct{}
	commitments map[Commitment]int
	roots       []HashOutput
}

func NewZswapPool() *ZswapPool {
	p := &ZswapPool{
		tree:        NewBoundedMerkleTree(ZswapCoinTreeHeight),
		nullifiers:  make(map[Nullifier]struct{}),
		commitments: make(map[Commitment]int),
	}
	p.roots = append(p.roots, p.tree.Root())
	return p
}

func (p *ZswapPool) Root() HashOutput { return p.tree.Root() }

// KnownRoot reports whether root appears in the bounded recent-roots
// history a spend's merkle-root proof is checked against.
func (p *ZswapPool) KnownRoot(root HashOutput) bool {
	for _, r := range p.roots {
		if r == root {
			return true
		}
	}
	return false
}

func (p *ZswapPool) advanceRoot() {
	p.roots = append(p.roots, p.tree.Root())
	if len(p.roots) > RootHistoryDepth {
		p.roots = p.roots[len(p.roots)-RootHistoryDepth:]
	}
}

func (p *ZswapPool) ContainsNullifier(n Nullifier) bool {
	_, ok := p.nullifiers[n]
	return ok
}

func (p *ZswapPool) ContainsCommitment(c Commitment) bool {
	_, ok := p.commitments[c]
	return ok
}

// Apply spends every input and inserts every output of offer, failing
// atomically (no partial effect) if any nullifier was already spent, any
// commitment already present, the offer's claimed root isn't recent
// enough, or the offer isn't normalized.
func (p *ZswapPool) Apply(offer ZswapOffer) error {
	if len(offer.Inputs) > 0 && !p.KnownRoot(offer.Root) {
		return wrapErr(KindWellFormedness, "unknown_merkle_root", ErrUnknownMerkleRoot)
	}
	if !offer.normalized() {
		return wrapErr(KindWellFormedness, "offer_not_normalized", ErrOfferNotNormalized)
	}
	for _, n := range offer.Inputs {
		if p.ContainsNullifier(n) {
			return wrapErr(KindWellFormedness, "nullifier_already_present", ErrNullifierAlreadyPresent)
		}
	}
	for _, c := range offer.Outputs {
		if p.ContainsCommitment(c) {
			return wrapErr(KindWellFormedness, "commitment_already_present", ErrCommitmentAlreadyPresent)
		}
	}
	for _, n := range offer.Inputs {
		p.nullifiers[n] = struct{}{}
	}
	for _, c := range offer.Outputs {
		idx := p.tree.Insert(AlignedBytes(HashOutput(c).Bytes()))
		p.commitments[c] = idx
	}
	if len(offer.Outputs) > 0 {
		p.advanceRoot()
	}
	return nil
}

// LocalWalletState is the subset of the shielded pool a single wallet can
// see: the coins it owns (decrypted from outputs addressed to it) and the
// merkle path evidence needed to later spend them.
type LocalWalletState struct {
	Coins map[Commitment]CoinInfo
}

func NewLocalWalletState() *LocalWalletState {
	return &LocalWalletState{Coins: make(map[Commitment]CoinInfo)}
}

func (w *LocalWalletState) Observe(c Commitment, info CoinInfo) {
	w.Coins[c] = info
}

func (w *LocalWalletState) Balance(t TokenType) uint64 {
	var total uint64
	for _, c := range w.Coins {
		if c.Type == t {
			total += c.Value
		}
	}
	return total
}
