package core

// LedgerState is the ledger's single root value: the unshielded UTXO set,
// the shielded (Zswap) pool, DUST generation records, deployed contracts,
// the treasury, and network parameters. Every mutation goes through the
// apply entry points (ApplyUser, ApplyClaimRewards, ApplySystem) and produces the next
// LedgerState in place - persistent sharing of unchanged substructure is
// delegated to the containers themselves (Map, BoundedMerkleTree,
// MerklePatriciaTrie) rather than LedgerState copying itself wholesale.
//
// Persistence: after every applied transaction a small JSON ledgerSnapshot
// (network ID, reserve and reward pools, Zswap root) is written to the KV
// under a key derived from the transaction hash; the transaction itself is
// not stored. Applies are logged through logrus the way the teacher's
// block-apply path did.

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type LedgerState struct {
	mu sync.RWMutex

	NetworkID string

	Unshielded *UnshieldedPool
	Zswap      *ZswapPool
	Dust       map[Address]*DustGenerationState
	Contracts  *ContractRegistry

	Treasury        Map[TokenType, uint64]
	ReservePool     uint64
	BlockRewardPool uint64

	Parameters LedgerParameters

	nonces map[Address]uint64 // replay protection for ClaimRewards/System issuers
	events []Event

	kv     KV
	logger *logrus.Logger
}

// NewLedgerState creates a blank ledger rooted at networkID - the only
// state a ledger may ever be created from; every later LedgerState is
// reached by applying a transaction to this one.
func NewLedgerState(networkID string, kv KV, params LedgerParameters, lg *logrus.Logger) *LedgerState {
	if lg == nil {
		lg = logrus.New()
	}
	ls := &LedgerState{
		NetworkID:  networkID,
		Unshielded: NewUnshieldedPool(),
		Zswap:      NewZswapPool(),
		Dust:       make(map[Address]*DustGenerationState),
		Contracts:  NewContractRegistry(kv),
		Treasury:   NewMap[TokenType, uint64](),
		Parameters: params,
		nonces:     make(map[Address]uint64),
		kv:         kv,
		logger:     lg,
	}
	lg.WithField("network_id", networkID).Info("ledgerstate: genesis")
	return ls
}

// Events returns the full permanent event stream applied so far.
func (ls *LedgerState) Events() []Event {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	out := make([]Event, len(ls.events))
	copy(out, ls.events)
	return out
}

func (ls *LedgerState) dustState(owner Address, now uint64) *DustGenerationState {
	d, ok := ls.Dust[owner]
	if !ok {
		d = &DustGenerationState{Owner: owner, Since: now}
		ls.Dust[owner] = d
	}
	return d
}

// ApplyResultKind is the three-way outcome spec §4.G assigns an applied
// transaction.
type ApplyResultKind uint8

const (
	ApplySuccess ApplyResultKind = iota
	ApplyPartialSuccess
	ApplyFailure
)

type ApplyResult struct {
	Kind       ApplyResultKind
	FailedCall []int // indices into the flattened guaranteed-call list, for PartialSuccess
	Reason     error // set for ApplyFailure
	Events     []Event
}

// ApplyUser applies a well-formed User transaction. Callers MUST have
// already called tx.CheckWellFormed; Apply re-derives only the checks that
// depend on state mutated by earlier intents in the same transaction
// (double-spend within one tx), trusting the rest.
func (ls *LedgerState) ApplyUser(tx Transaction, now time.Time) (ApplyResult, error) {
	if tx.Kind != TxUser {
		return ApplyResult{}, wrapErr(KindSemantic, "not_a_user_transaction", ErrInvalidArgs)
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()

	txHash := tx.Hash()
	eb := &eventBuilder{}

	// 1. Guaranteed phase: zswap apply, unshielded apply, DUST apply,
	// contract deploys - atomic, any failure rejects the whole transaction.
	if err := ls.Zswap.Apply(tx.ShieldedOffer); err != nil {
		return ApplyResult{Kind: ApplyFailure, Reason: err}, nil
	}
	for i, c := range tx.ShieldedOffer.Outputs {
		eb.zswapOutputs = append(eb.zswapOutputs, Event{
			Kind: EventZswapOutput, Source: EventSource{TransactionHash: txHash, LogicalSegment: 0, PhysicalSegment: uint32(i)},
			Commitment: c,
		})
	}
	for i, n := range tx.ShieldedOffer.Inputs {
		eb.zswapInputs = append(eb.zswapInputs, Event{
			Kind: EventZswapInput, Source: EventSource{TransactionHash: txHash, LogicalSegment: 0, PhysicalSegment: uint32(i)},
			Nullifier: n,
		})
	}

	failedCalls := make([]int, 0)
	callIdx := 0

	for segIdx, intent := range tx.Intents {
		// Unshielded offer apply (guaranteed).
		spent, err := ls.Unshielded.Spend(intent.Offer.Spends)
		if err != nil {
			ls.rollbackGuaranteed(&spent, nil)
			return ApplyResult{Kind: ApplyFailure, Reason: err}, nil
		}
		for i, out := range intent.Offer.Outputs {
			ref := UnshieldedUtxoRef{TxHash: txHash, Index: uint32(i)}
			ls.Unshielded.Insert(ref, out)
		}

		// Contract deploys (guaranteed).
		for _, deploy := range intent.Deploys {
			addr, err := ls.Contracts.Deploy(deploy.Deployer, deploy.Nonce, deploy.State, deploy.EntryPoints)
			if err != nil {
				return ApplyResult{Kind: ApplyFailure, Reason: err}, nil
			}
			eb.deploys = append(eb.deploys, Event{
				Kind: EventContractDeploy, Source: EventSource{TransactionHash: txHash, LogicalSegment: uint32(segIdx)},
				Contract: addr,
			})
		}

		// 2. Fallible phase: each call's guaranteed prefix runs as part of
		// the atomic guaranteed phase (a failure there rejects the whole
		// transaction); its fallible suffix is then attempted independently
		// and reverted to the post-guaranteed state on failure.
		for _, call := range intent.Calls {
			_, fallible, fallibleOK, err := ls.Contracts.Invoke(call.Address, call.EntryPoint, call.GasLimit)
			if err != nil {
				return ApplyResult{Kind: ApplyFailure, Reason: err}, nil
			}
			if !fallibleOK {
				failedCalls = append(failedCalls, callIdx)
				callIdx++
				continue
			}
			for _, effect := range fallible.Effects {
				if effect.Kind == EffectWrite {
					eb.logs = append(eb.logs, Event{
						Kind: EventContractLog, Source: EventSource{TransactionHash: txHash, LogicalSegment: uint32(segIdx), PhysicalSegment: 1},
						Contract: call.Address, LogValue: effect.Value.State,
					})
				}
			}
			callIdx++
		}

		// DUST: advance every spend-owner's generation state to now and
		// record the resulting DustGenerationDtimeUpdate event.
		owner := intent.spendOwner()
		d := ls.dustState(owner, uint64(now.Unix()))
		if err := d.Advance(uint64(now.Unix()), ls.Parameters); err != nil {
			return ApplyResult{Kind: ApplyFailure, Reason: err}, nil
		}
		eb.dust = append(eb.dust, Event{
			Kind: EventDustGenerationDtimeUpdate, Source: EventSource{TransactionHash: txHash, LogicalSegment: uint32(segIdx)},
			Owner: owner, Amount: d.Accrued,
		})
	}

	events := eb.flush()
	ls.events = append(ls.events, events...)
	ls.persist(txHash, tx)

	if len(failedCalls) > 0 {
		ls.logger.WithFields(logrus.Fields{"tx": txHash.String(), "failed_calls": len(failedCalls)}).Warn("ledgerstate: partial success")
		return ApplyResult{Kind: ApplyPartialSuccess, FailedCall: failedCalls, Events: events}, nil
	}
	ls.logger.WithField("tx", txHash.String()).Info("ledgerstate: applied")
	return ApplyResult{Kind: ApplySuccess, Events: events}, nil
}

// rollbackGuaranteed is a placeholder hook for undoing a partially applied
// guaranteed phase; the current guaranteed-phase operations either fully
// succeed or mutate nothing (Spend is all-or-nothing, Zswap.Apply is
// atomic), so there is nothing to unwind yet. Kept as a named step rather
// than inlined so a future guaranteed-phase addition that CAN partially
// apply has an obvious place to plug into.
func (ls *LedgerState) rollbackGuaranteed(spent *[]UnshieldedUtxo, _ *[]Commitment) {}

// ApplyClaimRewards credits a reward claim against the block reward pool
// or treasury, depending on Kind, enforcing per-owner nonce replay
// protection.
func (ls *LedgerState) ApplyClaimRewards(tx Transaction) (ApplyResult, error) {
	if tx.Kind != TxClaimRewards {
		return ApplyResult{}, wrapErr(KindSemantic, "not_a_claim_rewards_transaction", ErrInvalidArgs)
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if tx.ClaimNonce != ls.nonces[tx.ClaimOwner] {
		return ApplyResult{Kind: ApplyFailure, Reason: wrapErr(KindSemantic, "nonce_mismatch", ErrInvalidArgs)}, nil
	}
	switch tx.ClaimKindField {
	case ClaimBlockReward:
		if tx.ClaimValue > ls.BlockRewardPool {
			return ApplyResult{Kind: ApplyFailure, Reason: wrapErr(KindResource, "insufficient_reward_pool", ErrInvalidArgs)}, nil
		}
		ls.BlockRewardPool -= tx.ClaimValue
	case ClaimTreasuryPayout:
		cur, _ := ls.Treasury.Get(NightTokenType)
		if tx.ClaimValue > cur {
			return ApplyResult{Kind: ApplyFailure, Reason: wrapErr(KindResource, "insufficient_treasury", ErrInvalidArgs)}, nil
		}
		ls.Treasury = ls.Treasury.Insert(NightTokenType, cur-tx.ClaimValue)
	}
	ls.nonces[tx.ClaimOwner]++

	ref := UnshieldedUtxoRef{TxHash: tx.Hash(), Index: 0}
	ls.Unshielded.Insert(ref, UnshieldedUtxo{Owner: tx.ClaimOwner, Type: NightTokenType, Value: tx.ClaimValue, Created: ref.TxHash})
	ls.persist(ref.TxHash, tx)
	return ApplyResult{Kind: ApplySuccess}, nil
}

// ApplySystem applies consensus-issued bookkeeping: moving reserve value
// into the reward pool, paying the treasury, or updating parameters.
func (ls *LedgerState) ApplySystem(tx Transaction) (ApplyResult, error) {
	if tx.Kind != TxSystem {
		return ApplyResult{}, wrapErr(KindSemantic, "not_a_system_transaction", ErrInvalidArgs)
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if tx.System.Nonce != ls.nonces[AddressZero] {
		return ApplyResult{Kind: ApplyFailure, Reason: wrapErr(KindSemantic, "nonce_mismatch", ErrInvalidArgs)}, nil
	}

	switch tx.System.Kind {
	case SysDistributeReserve:
		if tx.System.Amount > ls.ReservePool {
			return ApplyResult{Kind: ApplyFailure, Reason: wrapErr(KindResource, "insufficient_reserve", ErrInvalidArgs)}, nil
		}
		ls.ReservePool -= tx.System.Amount
		ls.BlockRewardPool += tx.System.Amount
	case SysPayTreasury:
		cur, _ := ls.Treasury.Get(tx.System.Token)
		if tx.System.Amount > cur {
			return ApplyResult{Kind: ApplyFailure, Reason: wrapErr(KindResource, "insufficient_treasury", ErrInvalidArgs)}, nil
		}
		ls.Treasury = ls.Treasury.Insert(tx.System.Token, cur-tx.System.Amount)
		ref := UnshieldedUtxoRef{TxHash: tx.Hash(), Index: 0}
		ls.Unshielded.Insert(ref, UnshieldedUtxo{Owner: tx.System.Recipient, Type: tx.System.Token, Value: tx.System.Amount, Created: ref.TxHash})
	case SysUpdateParams:
		ls.Parameters = tx.System.NewParameters
		ls.events = append(ls.events, Event{Kind: EventParamChange, Source: EventSource{TransactionHash: tx.Hash()}, ParamName: "all"})
	}
	ls.nonces[AddressZero]++
	ls.persist(tx.Hash(), tx)
	return ApplyResult{Kind: ApplySuccess}, nil
}

// ledgerSnapshot is the JSON-serializable subset of LedgerState persisted
// per applied transaction - the account-level bookkeeping a node restarts
// from, not the full content-addressed state (that lives in the arena and
// is recovered via its own KV backend).
type ledgerSnapshot struct {
	NetworkID       string
	ReservePool     uint64
	BlockRewardPool uint64
	ZswapRoot       HashOutput
}

func (ls *LedgerState) persist(txHash HashOutput, tx Transaction) {
	snap := ledgerSnapshot{
		NetworkID:       ls.NetworkID,
		ReservePool:     ls.ReservePool,
		BlockRewardPool: ls.BlockRewardPool,
		ZswapRoot:       ls.Zswap.Root(),
	}
	data, err := json.Marshal(snap)
	if err != nil {
		ls.logger.WithError(err).Error("ledgerstate: snapshot marshal failed")
		return
	}
	key := PersistentHash(append([]byte("ledger-snapshot:"), txHash[:]...))
	if err := ls.kv.Put([]KVPair{{Key: key, Value: data}}); err != nil {
		ls.logger.WithError(err).Error("ledgerstate: snapshot persist failed")
	}
}

func (ls *LedgerState) String() string {
	return fmt.Sprintf("LedgerState{network=%s, zswap_root=%s}", ls.NetworkID, ls.Zswap.Root())
}
