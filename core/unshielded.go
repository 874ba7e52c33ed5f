package core

// UnshieldedUtxo is one spendable output of the transparent (unshielded)
// ledger: an owner, a token type and value, and the intent hash that
// created it (so a UTXO can be traced back to the transaction that minted
// it, the way the teacher's ledger traces balances back to transfers).
type UnshieldedUtxo struct {
	Owner   Address
	Type    TokenType
	Value   uint64
	Created HashOutput
}

func (u UnshieldedUtxo) id() HashOutput {
	w := NewHashWriter()
	w.WriteBytes(u.Owner[:])
	u.Type.BinaryRepr(w)
	w.WriteU64(u.Value)
	w.WriteHash(u.Created)
	return PersistentHash(w.Bytes())
}

// UnshieldedUtxoRef names a specific prior output being spent, the
// transparent-pool analogue of a Zswap nullifier.
type UnshieldedUtxoRef struct {
	TxHash HashOutput
	Index  uint32
}

// UnshieldedPool is the global set of unspent transparent outputs, keyed
// by the (txHash, index) pair that created them.
type UnshieldedPool struct {
	utxos map[UnshieldedUtxoRef]UnshieldedUtxo
}

func NewUnshieldedPool() *UnshieldedPool {
	return &UnshieldedPool{utxos: make(map[UnshieldedUtxoRef]UnshieldedUtxo)}
}

func (p *UnshieldedPool) Get(ref UnshieldedUtxoRef) (UnshieldedUtxo, bool) {
	u, ok := p.utxos[ref]
	return u, ok
}

func (p *UnshieldedPool) Insert(ref UnshieldedUtxoRef, u UnshieldedUtxo) {
	p.utxos[ref] = u
}

// Spend removes refs from the pool; it is all-or-nothing - if any ref is
// missing, the pool is left untouched and an error is returned so the
// caller's transaction apply stays atomic.
func (p *UnshieldedPool) Spend(refs []UnshieldedUtxoRef) ([]UnshieldedUtxo, error) {
	spent := make([]UnshieldedUtxo, 0, len(refs))
	for _, ref := range refs {
		u, ok := p.utxos[ref]
		if !ok {
			return nil, wrapErr(KindWellFormedness, "unknown_utxo", ErrMissingKey)
		}
		spent = append(spent, u)
	}
	for _, ref := range refs {
		delete(p.utxos, ref)
	}
	return spent, nil
}

func (p *UnshieldedPool) BalanceOf(owner Address, t TokenType) uint64 {
	var total uint64
	for _, u := range p.utxos {
		if u.Owner == owner && u.Type == t {
			total += u.Value
		}
	}
	return total
}
