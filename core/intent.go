package core

// Intent bundles one unshielded offer with the contract calls and
// deployments it funds, a TTL, and a signature over the canonical hash of
// its content. A Transaction carries one or more Intents (plus a single
// ledger-wide ZswapOffer covering every intent's shielded side).

// UnshieldedOfferTx is the transparent side of one Intent: the UTXOs it
// spends and the UTXOs it creates. All spends must belong to the same
// signer, whose signature over the enclosing Intent stands in for a
// per-UTXO signature set.
type UnshieldedOfferTx struct {
	Spends  []UnshieldedUtxoRef
	Outputs []UnshieldedUtxo
}

func (o UnshieldedOfferTx) hash(w *HashWriter) {
	w.WriteU32(uint32(len(o.Spends)))
	for _, s := range o.Spends {
		w.WriteHash(s.TxHash)
		w.WriteU32(s.Index)
	}
	w.WriteU32(uint32(len(o.Outputs)))
	for _, out := range o.Outputs {
		w.WriteBytes(out.Owner[:])
		out.Type.BinaryRepr(w)
		w.WriteU64(out.Value)
		w.WriteHash(out.Created)
	}
}

// ClaimedUnshieldedSpend is a contract's declared claim that it produced an
// `unshielded_outputs[T] = v` effect destined for Recipient, matched by the
// enclosing UnshieldedOfferTx against an actual output (or a paired
// receiver contract's own `unshielded_inputs[T]` claim).
type ClaimedUnshieldedSpend struct {
	Type      TokenType
	Recipient Address
	Value     uint64
}

// ContractCall invokes one entry point of a deployed contract.
// UnshieldedInputs/UnshieldedOutputs are the call's declared
// transparent-balance effects; ClaimedSpends ties each declared output to
// a recipient. Transaction.checkContractAccounting reconciles all three
// against the enclosing Intent's UnshieldedOfferTx and any paired call in
// the same transaction.
type ContractCall struct {
	Address    ContractAddress
	EntryPoint string
	GasLimit   uint64

	UnshieldedInputs  Map[TokenType, uint64]
	UnshieldedOutputs Map[TokenType, uint64]
	ClaimedSpends     []ClaimedUnshieldedSpend
}

// ContractDeploy registers a fresh ContractState at Deploy-time, addressed
// by DeriveContractAddress(Deployer, Nonce, State).
type ContractDeploy struct {
	Deployer    Address
	Nonce       uint64
	State       ContractState
	EntryPoints map[string][]Instruction
}

func (d ContractDeploy) hash(w *HashWriter) {
	w.WriteBytes(d.Deployer[:])
	w.WriteU64(d.Nonce)
	w.WriteHash(d.State.Hash())
}

// Intent is the signed, time-bounded unit of transparent-offer-plus-calls
// a User transaction carries one or more of.
type Intent struct {
	Offer   UnshieldedOfferTx
	Calls   []ContractCall
	Deploys []ContractDeploy
	TTL     uint64 // dust_validity_end, unix seconds

	Signer    EmbeddedPoint
	Signature Signature
}

// Hash is the canonical content hash an Intent's Signature is computed
// over.
func (i Intent) Hash() HashOutput {
	w := NewHashWriter()
	i.Offer.hash(w)
	w.WriteU32(uint32(len(i.Calls)))
	for _, c := range i.Calls {
		w.WriteHash(HashOutput(c.Address))
		w.WriteLenPrefixed([]byte(c.EntryPoint))
		w.WriteU64(c.GasLimit)
	}
	w.WriteU32(uint32(len(i.Deploys)))
	for _, d := range i.Deploys {
		d.hash(w)
	}
	w.WriteU64(i.TTL)
	return PersistentHash(w.Bytes())
}

// VerifySignature reports whether Signature was produced by Signer over
// this Intent's canonical hash.
func (i Intent) VerifySignature() bool {
	h := i.Hash()
	return Verify(i.Signer, h[:], i.Signature)
}

// spendOwner returns the address every spend in this intent's offer must
// belong to - the address derived from the intent's own signer.
func (i Intent) spendOwner() Address {
	return AddressFromHash(PersistentHash(i.Signer.Bytes()))
}
