package core

// Deterministic ledger event stream. Every Apply (user, claim-rewards, or
// system transaction) appends events in one fixed order - zswap inputs,
// zswap outputs, contract deploys, contract logs, DUST events, parameter
// changes - so two nodes applying the same transaction always produce a
// byte-identical event log regardless of map iteration order upstream.

// EventKind tags the union EventBody carries.
type EventKind uint8

const (
	EventZswapInput EventKind = iota
	EventZswapOutput
	EventContractDeploy
	EventContractLog
	EventDustInitialUtxo
	EventDustGenerationDtimeUpdate
	EventDustSpendProcessed
	EventParamChange
)

func (k EventKind) String() string {
	switch k {
	case EventZswapInput:
		return "zswap_input"
	case EventZswapOutput:
		return "zswap_output"
	case EventContractDeploy:
		return "contract_deploy"
	case EventContractLog:
		return "contract_log"
	case EventDustInitialUtxo:
		return "dust_initial_utxo"
	case EventDustGenerationDtimeUpdate:
		return "dust_generation_dtime_update"
	case EventDustSpendProcessed:
		return "dust_spend_processed"
	case EventParamChange:
		return "param_change"
	default:
		return "unknown"
	}
}

// EventSource locates an event within a block: which transaction produced
// it, and the logical/physical segment of that transaction (an Intent's
// index and, within it, the phase - guaranteed vs fallible - that emitted
// it).
type EventSource struct {
	TransactionHash HashOutput
	LogicalSegment  uint32
	PhysicalSegment uint32
}

// Event is one entry in the ledger's deterministic output stream.
type Event struct {
	Kind   EventKind
	Source EventSource

	// Populated depending on Kind; zero-valued fields are simply unused.
	Nullifier  Nullifier
	Commitment Commitment
	MTIndex    int
	Contract   ContractAddress
	LogValue   StateValue
	Owner      Address
	Amount     uint64
	ParamName  string
}

func (e Event) Hash() HashOutput {
	w := NewHashWriter()
	w.WriteByte(byte(e.Kind))
	w.WriteHash(e.Source.TransactionHash)
	w.WriteU32(e.Source.LogicalSegment)
	w.WriteU32(e.Source.PhysicalSegment)
	w.WriteHash(HashOutput(e.Nullifier))
	w.WriteHash(HashOutput(e.Commitment))
	w.WriteU32(uint32(e.MTIndex))
	w.WriteHash(HashOutput(e.Contract))
	w.WriteHash(e.LogValue.Hash())
	w.WriteHash(HashOutput(e.Owner))
	w.WriteU64(e.Amount)
	w.WriteLenPrefixed([]byte(e.ParamName))
	return PersistentHash(w.Bytes())
}

// eventBuilder is a small ordering helper used by LedgerState.ApplyUser
// (ledgerstate.go) to collect events phase-by-phase and flush
// them in the fixed category order before appending to the ledger's
// permanent stream.
type eventBuilder struct {
	zswapInputs    []Event
	zswapOutputs   []Event
	deploys        []Event
	logs           []Event
	dust           []Event
	paramChanges   []Event
}

func (b *eventBuilder) flush() []Event {
	out := make([]Event, 0, len(b.zswapInputs)+len(b.zswapOutputs)+len(b.deploys)+len(b.logs)+len(b.dust)+len(b.paramChanges))
	out = append(out, b.zswapInputs...)
	out = append(out, b.zswapOutputs...)
	out = append(out, b.deploys...)
	out = append(out, b.logs...)
	out = append(out, b.dust...)
	out = append(out, b.paramChanges...)
	return out
}
