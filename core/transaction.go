package core

// Transaction is the three-variant sum type every block carries: a
// user-submitted bundle of intents plus a shielded offer, a validator's
// reward claim, or an out-of-band system transaction. Well-formedness is a
// pure check (no state mutation); Apply is performed by LedgerState.

import "time"

type TransactionKind uint8

const (
	TxUser TransactionKind = iota
	TxClaimRewards
	TxSystem
)

// ClaimRewardsKind distinguishes what a reward claim draws against.
type ClaimRewardsKind uint8

const (
	ClaimBlockReward ClaimRewardsKind = iota
	ClaimTreasuryPayout
)

// SystemTransactionKind tags the union SystemTransaction carries.
type SystemTransactionKind uint8

const (
	SysDistributeReserve SystemTransactionKind = iota
	SysPayTreasury
	SysUpdateParams
)

// SystemTransaction is out-of-band bookkeeping emitted by the consensus
// layer: moving value between the fixed-supply reserve and the reward
// pool, paying out of the treasury, or updating LedgerParameters.
// Replay-safety is per-transaction Nonce, checked against LedgerState's
// per-issuer nonce table (the zero Address stands for "the protocol
// itself" for reserve/param operations that have no single issuer).
type SystemTransaction struct {
	Kind SystemTransactionKind

	Nonce uint64

	// SysDistributeReserve / SysPayTreasury
	Token     TokenType
	Amount    uint64
	Recipient Address

	// SysUpdateParams
	NewParameters LedgerParameters
}

// Transaction is one of User{...} / ClaimRewards{...} / System(...).
// Exactly the fields for Kind are meaningful; see the three constructors.
type Transaction struct {
	Kind TransactionKind

	// TxUser
	NetworkID       string
	Intents         []Intent
	ShieldedOffer   ZswapOffer
	FeePaymentProof []byte

	// TxClaimRewards
	ClaimValue     uint64
	ClaimOwner     Address
	ClaimNonce     uint64
	ClaimSignature Signature
	ClaimSigner    EmbeddedPoint
	ClaimKindField ClaimRewardsKind

	// TxSystem
	System SystemTransaction
}

func NewUserTransaction(networkID string, intents []Intent, shielded ZswapOffer, feeProof []byte) Transaction {
	return Transaction{
		Kind:            TxUser,
		NetworkID:       networkID,
		Intents:         intents,
		ShieldedOffer:   shielded,
		FeePaymentProof: feeProof,
	}
}

func NewClaimRewardsTransaction(value uint64, owner Address, nonce uint64, signer EmbeddedPoint, sig Signature, kind ClaimRewardsKind) Transaction {
	return Transaction{
		Kind:           TxClaimRewards,
		ClaimValue:     value,
		ClaimOwner:     owner,
		ClaimNonce:     nonce,
		ClaimSignature: sig,
		ClaimSigner:    signer,
		ClaimKindField: kind,
	}
}

func NewSystemTransaction(sys SystemTransaction) Transaction {
	return Transaction{Kind: TxSystem, System: sys}
}

// Hash is the canonical content hash identifying this transaction, used as
// EventSource.TransactionHash and as the message a ClaimRewards signature
// covers.
func (tx Transaction) Hash() HashOutput {
	w := NewHashWriter()
	w.WriteByte(byte(tx.Kind))
	switch tx.Kind {
	case TxUser:
		w.WriteLenPrefixed([]byte(tx.NetworkID))
		w.WriteU32(uint32(len(tx.Intents)))
		for _, in := range tx.Intents {
			w.WriteHash(in.Hash())
		}
		w.WriteHash(tx.ShieldedOffer.Hash())
		w.WriteLenPrefixed(tx.FeePaymentProof)
	case TxClaimRewards:
		w.WriteU64(tx.ClaimValue)
		w.WriteBytes(tx.ClaimOwner[:])
		w.WriteU64(tx.ClaimNonce)
		w.WriteByte(byte(tx.ClaimKindField))
	case TxSystem:
		w.WriteByte(byte(tx.System.Kind))
		w.WriteU64(tx.System.Nonce)
		tx.System.Token.BinaryRepr(w)
		w.WriteU64(tx.System.Amount)
		w.WriteBytes(tx.System.Recipient[:])
	}
	return PersistentHash(w.Bytes())
}

// Strictness toggles which well-formedness checks CheckWellFormed enforces
// - tests disable individual checks (balancing, signatures) to exercise
// one failure mode in isolation without constructing a fully valid
// transaction around it.
type Strictness struct {
	CheckBalancing  bool
	CheckSignatures bool
	CheckTTL        bool
}

func DefaultStrictness() Strictness {
	return Strictness{CheckBalancing: true, CheckSignatures: true, CheckTTL: true}
}

// CheckWellFormed performs the pure (non-mutating) checks: network ID
// match, spent UTXOs exist and are owned, declared entry points exist,
// deploy preconditions, contract accounting, and (when strict) intent TTL,
// offer balancing and signature verification. It does not check that the
// fee payment covers the computed cost: FeePaymentProof is not inspected.
func (tx Transaction) CheckWellFormed(ledger *LedgerState, now time.Time, strict Strictness) error {
	switch tx.Kind {
	case TxUser:
		return tx.checkUserWellFormed(ledger, now, strict)
	case TxClaimRewards:
		if strict.CheckSignatures {
			h := tx.Hash()
			if !Verify(tx.ClaimSigner, h[:], tx.ClaimSignature) {
				return wrapErr(KindCrypto, "claim_rewards_signature_invalid", ErrSignatureInvalid)
			}
		}
		return nil
	case TxSystem:
		return nil
	default:
		return wrapErr(KindDecode, "unknown_transaction_kind", ErrTagMismatch)
	}
}

func (tx Transaction) checkUserWellFormed(ledger *LedgerState, now time.Time, strict Strictness) error {
	if tx.NetworkID != ledger.NetworkID {
		return wrapErr(KindWellFormedness, "network_id_mismatch", ErrNetworkIDMismatch)
	}
	nowSecs := uint64(now.Unix())
	for _, intent := range tx.Intents {
		if strict.CheckTTL && intent.TTL < nowSecs {
			return wrapErr(KindWellFormedness, "intent_expired", ErrIntentExpired)
		}
		if strict.CheckSignatures && !intent.VerifySignature() {
			return wrapErr(KindCrypto, "intent_signature_invalid", ErrSignatureInvalid)
		}
		owner := intent.spendOwner()
		for _, spend := range intent.Offer.Spends {
			utxo, ok := ledger.Unshielded.Get(spend)
			if !ok {
				return wrapErr(KindWellFormedness, "unknown_utxo", ErrMissingKey)
			}
			if utxo.Owner != owner {
				return wrapErr(KindWellFormedness, "spend_not_owned", ErrSpendNotOwned)
			}
		}
		for _, call := range intent.Calls {
			state, ok := ledger.Contracts.Get(call.Address)
			if !ok {
				return wrapErr(KindWellFormedness, "unknown_contract", ErrMissingKey)
			}
			if _, declared := state.Operations.Get(stringKey(call.EntryPoint)); !declared {
				return wrapErr(KindWellFormedness, "unknown_entry_point", ErrUnknownEntryPoint)
			}
		}
		for _, deploy := range intent.Deploys {
			addr := DeriveContractAddress(deploy.Deployer, deploy.Nonce, deploy.State)
			if _, exists := ledger.Contracts.Get(addr); exists {
				return wrapErr(KindWellFormedness, "contract_already_deployed", ErrMalformedContractDeploy)
			}
			if hasNonZeroBalance(deploy.State.Balance) {
				return wrapErr(KindWellFormedness, "deploy_nonzero_balance", ErrMalformedContractDeploy)
			}
		}
	}
	if err := tx.checkContractAccounting(); err != nil {
		return err
	}
	if strict.CheckBalancing && !tx.balanced(ledger) {
		return wrapErr(KindWellFormedness, "unbalanced_offer", ErrUnbalancedOffer)
	}
	return nil
}

// checkContractAccounting reconciles every contract call's declared
// unshielded-balance effects (§4.F) against the transaction's unshielded
// offers: a call's unshielded_inputs[T] must be backed by offer outputs
// paying into the contract's own address (ContractAddress is just an
// Address) plus claimed spends other calls in the same transaction direct
// to it, together at least that much; every claimed_unshielded_spend must sum to exactly
// the call's declared unshielded_outputs[T], and each claim must be matched
// either by a real offer output to its recipient or by a paired contract
// call in the same transaction declaring an equal unshielded_inputs[T]
// (contract-to-contract transfer without UTXOs).
func (tx Transaction) checkContractAccounting() error {
	inputsByAddr := make(map[Address]map[TokenType]uint64)
	for _, intent := range tx.Intents {
		for _, out := range intent.Offer.Outputs {
			m, ok := inputsByAddr[out.Owner]
			if !ok {
				m = make(map[TokenType]uint64)
				inputsByAddr[out.Owner] = m
			}
			m[out.Type] += out.Value
		}
	}
	callInputs := make(map[Address]map[TokenType]uint64)
	claimsTo := make(map[Address]map[TokenType]uint64)
	for _, intent := range tx.Intents {
		for _, call := range intent.Calls {
			call.UnshieldedInputs.Iterate(func(t TokenType, v uint64) bool {
				m, ok := callInputs[call.Address]
				if !ok {
					m = make(map[TokenType]uint64)
					callInputs[call.Address] = m
				}
				m[t] += v
				return true
			})
			for _, claim := range call.ClaimedSpends {
				m, ok := claimsTo[claim.Recipient]
				if !ok {
					m = make(map[TokenType]uint64)
					claimsTo[claim.Recipient] = m
				}
				m[claim.Type] += claim.Value
			}
		}
	}

	for _, intent := range tx.Intents {
		for _, call := range intent.Calls {
			var err error
			call.UnshieldedInputs.Iterate(func(t TokenType, v uint64) bool {
				if inputsByAddr[call.Address][t]+claimsTo[call.Address][t] < v {
					err = wrapErr(KindWellFormedness, "contract_unshielded_input_unbacked", ErrUnbalancedOffer)
					return false
				}
				return true
			})
			if err != nil {
				return err
			}

			declaredOut := make(map[TokenType]uint64)
			for _, claim := range call.ClaimedSpends {
				declaredOut[claim.Type] += claim.Value
			}
			call.UnshieldedOutputs.Iterate(func(t TokenType, v uint64) bool {
				if declaredOut[t] != v {
					err = wrapErr(KindWellFormedness, "contract_unshielded_output_unclaimed", ErrUnbalancedOffer)
					return false
				}
				return true
			})
			if err != nil {
				return err
			}

			for _, claim := range call.ClaimedSpends {
				if inputsByAddr[claim.Recipient][claim.Type] >= claim.Value {
					continue
				}
				if callInputs[claim.Recipient][claim.Type] >= claim.Value {
					continue
				}
				return wrapErr(KindWellFormedness, "claimed_unshielded_spend_unmatched", ErrUnbalancedOffer)
			}
		}
	}
	return nil
}

// hasNonZeroBalance reports whether a freshly deployed contract declares
// any nonzero token balance - a deploy must start empty-handed, every
// balance it holds must flow in through later calls.
func hasNonZeroBalance(balance Map[TokenType, uint64]) bool {
	nonzero := false
	balance.Iterate(func(_ TokenType, v uint64) bool {
		if v != 0 {
			nonzero = true
			return false
		}
		return true
	})
	return nonzero
}

// balanced checks the shielded offer's deltas against the sum of every
// intent's unshielded token-wise net flow (spends in, outputs out), the
// "fee balance" property §8 requires: any nonzero remainder after netting
// every side is exactly the declared fee. Spend values are resolved
// against ledger's UTXO pool - CheckWellFormed has already rejected any
// spend referencing an unknown or not-owned UTXO by the time this runs.
func (tx Transaction) balanced(ledger *LedgerState) bool {
	net := NewMap[TokenType, int64]()
	tx.ShieldedOffer.Deltas.Iterate(func(t TokenType, v int64) bool {
		cur, _ := net.Get(t)
		net = net.Insert(t, cur+v)
		return true
	})
	for _, intent := range tx.Intents {
		for _, spend := range intent.Offer.Spends {
			utxo, ok := ledger.Unshielded.Get(spend)
			if !ok {
				continue
			}
			cur, _ := net.Get(utxo.Type)
			net = net.Insert(utxo.Type, cur+int64(utxo.Value))
		}
		for _, out := range intent.Offer.Outputs {
			cur, _ := net.Get(out.Type)
			net = net.Insert(out.Type, cur-int64(out.Value))
		}
	}
	ok := true
	net.Iterate(func(t TokenType, v int64) bool {
		if t == DustTokenType {
			return true // the fee token legitimately nets nonzero against the fee payment
		}
		if v != 0 {
			ok = false
		}
		return true
	})
	return ok
}
